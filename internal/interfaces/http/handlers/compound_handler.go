package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jasmincar/milo-lab/internal/application/gibbs"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
)

// CompoundHandler serves the per-compound endpoints.
type CompoundHandler struct {
	svc    gibbs.Service
	logger logging.Logger
}

// NewCompoundHandler creates a CompoundHandler.
func NewCompoundHandler(svc gibbs.Service, logger logging.Logger) *CompoundHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CompoundHandler{svc: svc, logger: logger}
}

// CompoundListResponse wraps the compound listing.
type CompoundListResponse struct {
	Compounds []gibbs.CompoundSummary `json:"compounds"`
	Total     int                     `json:"total"`
}

// List handles GET /api/v1/compounds.
func (h *CompoundHandler) List(c *gin.Context) {
	list, err := h.svc.ListCompounds(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []gibbs.CompoundSummary{}
	}
	c.JSON(http.StatusOK, CompoundListResponse{Compounds: list, Total: len(list)})
}

// Transform handles GET /api/v1/compounds/:cid/transform. Missing condition
// parameters take the service defaults.
func (h *CompoundHandler) Transform(c *gin.Context) {
	cid, err := parseCIDParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	cond, err := parseConditions(c, h.svc.DefaultConditions())
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.svc.Transform(c.Request.Context(), &gibbs.TransformInput{CID: cid, Conditions: cond})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Pseudoisomers handles GET /api/v1/compounds/:cid/pseudoisomers.
func (h *CompoundHandler) Pseudoisomers(c *gin.Context) {
	cid, err := parseCIDParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.svc.Pseudoisomers(c.Request.Context(), cid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

//Personal.AI order the ending
