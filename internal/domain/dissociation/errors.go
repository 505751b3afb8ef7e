package dissociation

import (
	stderrors "errors"
	"fmt"

	"github.com/jasmincar/milo-lab/pkg/errors"
)

// MissingDissociationConstantError reports that a conversion or transform
// needs an equilibrium that is not recorded. It is recoverable: batch callers
// skip the affected compound or reaction and continue.
type MissingDissociationConstantError struct {
	CID     CID
	NHFrom  int
	NMgFrom int
	NHTo    int
	NMgTo   int

	// NoTable is set when the compound has no dissociation table at all.
	NoTable bool
}

func (e *MissingDissociationConstantError) Error() string {
	if e.NoTable {
		return fmt.Sprintf("no dissociation table for %s", e.CID)
	}
	return fmt.Sprintf("the dissociation constant for %s: (nH=%d,nMg=%d) -> (nH=%d,nMg=%d) is missing",
		e.CID, e.NHFrom, e.NMgFrom, e.NHTo, e.NMgTo)
}

// Code lets transport layers map the error like an AppError.
func (e *MissingDissociationConstantError) Code() errors.ErrorCode {
	return errors.ErrCodeMissingDissociationConstant
}

// IsMissingDissociationConstant reports whether err's chain holds a
// *MissingDissociationConstantError.
func IsMissingDissociationConstant(err error) bool {
	var missing *MissingDissociationConstantError
	return stderrors.As(err, &missing)
}

// IsInvalidEquilibrium reports whether err's chain carries ErrCodeInvalidEquilibrium.
func IsInvalidEquilibrium(err error) bool {
	return errors.IsCode(err, errors.ErrCodeInvalidEquilibrium)
}

func invalidEquilibrium(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeInvalidEquilibrium, format, args...)
}

func chargeUndefined(cid CID, what string) error {
	return errors.New(errors.ErrCodeChargeUndefined, what).WithDetail("cid=" + cid.String())
}

//Personal.AI order the ending
