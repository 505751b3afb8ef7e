package dissociation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// Reaction is a sparse stoichiometric vector: negative coefficients for
// substrates, positive for products.
type Reaction map[CID]float64

// CIDs returns the participating compounds in ascending order.
func (r Reaction) CIDs() []CID {
	cids := make([]CID, 0, len(r))
	for cid := range r {
		cids = append(cids, cid)
	}
	sort.Slice(cids, func(i, j int) bool { return cids[i] < cids[j] })
	return cids
}

// String renders the reaction as "C00002 + C00001 => C00008 + C00009".
func (r Reaction) String() string {
	var left, right []string
	for _, cid := range r.CIDs() {
		coeff := r[cid]
		term := cid.String()
		if a := abs(coeff); a != 1 {
			term = strconv.FormatFloat(a, 'g', -1, 64) + " " + term
		}
		switch {
		case coeff < 0:
			left = append(left, term)
		case coeff > 0:
			right = append(right, term)
		}
	}
	return strings.Join(left, " + ") + " => " + strings.Join(right, " + ")
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// ParseReaction reads a whitespace-separated list of cid:coefficient terms,
// such as "C00002:-1 C00001:-1 C00008:1 C00009:1". Repeated compounds are summed.
func ParseReaction(s string) (Reaction, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, errors.InvalidParam("empty reaction")
	}
	r := make(Reaction, len(fields))
	for _, f := range fields {
		cidPart, coeffPart, ok := strings.Cut(f, ":")
		if !ok {
			return nil, errors.InvalidParam("reaction term must be cid:coefficient").WithDetail("term=" + f)
		}
		cid, err := ParseCID(cidPart)
		if err != nil {
			return nil, err
		}
		coeff, err := strconv.ParseFloat(coeffPart, 64)
		if err != nil {
			return nil, errors.InvalidParam("invalid stoichiometric coefficient").WithDetail("term=" + f)
		}
		r[cid] += coeff
	}
	for cid, coeff := range r {
		if coeff == 0 {
			delete(r, cid)
		}
	}
	return r, nil
}

// ReverseTransformReaction returns dG'0_r − dG0_r of reaction at c: the sum
// over compounds of coefficient times the compound's ensemble energy. The
// energy of a compound is taken relative to its reference microstate, or to
// nHOverride[cid] when given. A compound without a table yields a
// *MissingDissociationConstantError.
func (r *Registry) ReverseTransformReaction(ctx context.Context, reaction Reaction, c thermo.Conditions, nHOverride map[CID]int) (float64, error) {
	return r.reverseTransformReaction(ctx, reaction, c, nHOverride, true)
}

func (r *Registry) reverseTransformReaction(ctx context.Context, reaction Reaction, c thermo.Conditions,
	nHOverride map[CID]int, createIfMissing bool) (float64, error) {
	var ddG0 float64
	for _, cid := range reaction.CIDs() {
		t, err := r.lookupTable(ctx, cid, createIfMissing)
		if err != nil {
			return 0, err
		}
		nH, ok := nHOverride[cid]
		if !ok {
			if nH, ok = t.MinNH(); !ok {
				return 0, chargeUndefined(cid, "reference hydrogen count is not set")
			}
		}
		d, err := t.GetDeltaDeltaG0(c, nH, 0)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", cid, err)
		}
		ddG0 += reaction[cid] * d
	}
	return ddG0, nil
}

//Personal.AI order the ending
