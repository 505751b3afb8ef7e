// Package handlers holds the gin handlers of the gibbs HTTP API.
package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jasmincar/milo-lab/internal/domain/dissociation"
	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// coder is implemented by domain errors that carry their own code.
type coder interface {
	Code() errors.ErrorCode
}

// errorCode finds the code of err. Errors without one are internal.
func errorCode(err error) errors.ErrorCode {
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	var c coder
	if stderrors.As(err, &c) {
		return c.Code()
	}
	return errors.ErrCodeInternal
}

// writeError maps err to its HTTP status. Server errors are masked.
func writeError(c *gin.Context, err error) {
	code := errorCode(err)
	status := errors.HTTPStatusForCode(code)
	_ = c.Error(err)

	resp := ErrorResponse{Code: string(code), Message: err.Error()}
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	}
	if status >= http.StatusInternalServerError {
		resp.Message = errors.DefaultMessageForCode(code)
		resp.Detail = ""
	}
	c.AbortWithStatusJSON(status, resp)
}

// parseCIDParam reads the :cid path parameter.
func parseCIDParam(c *gin.Context) (dissociation.CID, error) {
	return dissociation.ParseCID(c.Param("cid"))
}

// parseConditions overlays the ph, i, pmg and t query parameters on def.
// It returns nil when none is present.
func parseConditions(c *gin.Context, def thermo.Conditions) (*thermo.Conditions, error) {
	out := def
	found := false
	for _, q := range []struct {
		name string
		dst  *float64
	}{
		{"ph", &out.PH},
		{"i", &out.I},
		{"pmg", &out.PMg},
		{"t", &out.T},
	} {
		raw, ok := c.GetQuery(q.name)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.InvalidParam("invalid query parameter").WithDetail(q.name + "=" + raw)
		}
		*q.dst = v
		found = true
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

//Personal.AI order the ending
