package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jasmincar/milo-lab/internal/application/gibbs"
	"github.com/jasmincar/milo-lab/internal/domain/dissociation"
	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// ReactionHandler serves the batch reverse transform.
type ReactionHandler struct {
	svc    gibbs.Service
	logger logging.Logger
}

// NewReactionHandler creates a ReactionHandler.
func NewReactionHandler(svc gibbs.Service, logger logging.Logger) *ReactionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ReactionHandler{svc: svc, logger: logger}
}

// MeasuredReaction is one measured transformed reaction energy. Omitted
// conditions take the service defaults.
type MeasuredReaction struct {
	Reaction string   `json:"reaction" binding:"required"`
	DG0RTag  *float64 `json:"dG0_r_tag" binding:"required"`
	PH       *float64 `json:"pH"`
	I        *float64 `json:"I"`
	PMg      *float64 `json:"pMg"`
	T        *float64 `json:"T"`
	Ref      string   `json:"ref"`
}

// ReverseTransformRequest is the JSON body of a reverse transform.
type ReverseTransformRequest struct {
	BatchID    string             `json:"batch_id"`
	Reactions  []MeasuredReaction `json:"reactions" binding:"required,min=1,dive"`
	NHOverride map[string]int     `json:"nH_override"`
	ResultKey  string             `json:"result_key"`
}

// ReverseTransform handles POST /api/v1/reactions/reverse-transform. The
// body is either a ReverseTransformRequest or, with Content-Type text/csv, a
// table of measured reactions.
func (h *ReactionHandler) ReverseTransform(c *gin.Context) {
	input, err := h.bindInput(c)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.svc.ReverseTransform(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReactionHandler) bindInput(c *gin.Context) (*gibbs.ReverseTransformInput, error) {
	if strings.HasPrefix(c.ContentType(), "text/csv") {
		rows, err := dissociation.ParseNistCSV(c.Request.Body)
		if err != nil {
			return nil, err
		}
		return &gibbs.ReverseTransformInput{
			BatchID:   c.Query("batch_id"),
			Rows:      rows,
			ResultKey: c.Query("result_key"),
		}, nil
	}

	var req ReverseTransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, errors.InvalidParam("invalid request body").WithDetail(err.Error())
	}
	return req.toInput(h.svc.DefaultConditions())
}

func (r *ReverseTransformRequest) toInput(def thermo.Conditions) (*gibbs.ReverseTransformInput, error) {
	rows := make([]dissociation.NistRow, 0, len(r.Reactions))
	for _, m := range r.Reactions {
		reaction, err := dissociation.ParseReaction(m.Reaction)
		if err != nil {
			return nil, err
		}
		cond := def
		for _, f := range []struct {
			src *float64
			dst *float64
		}{{m.PH, &cond.PH}, {m.I, &cond.I}, {m.PMg, &cond.PMg}, {m.T, &cond.T}} {
			if f.src != nil {
				*f.dst = *f.src
			}
		}
		rows = append(rows, dissociation.NistRow{Reaction: reaction, DG0RTag: *m.DG0RTag, Conditions: cond, Ref: m.Ref})
	}

	var override map[dissociation.CID]int
	if len(r.NHOverride) > 0 {
		override = make(map[dissociation.CID]int, len(r.NHOverride))
		for k, nH := range r.NHOverride {
			cid, err := dissociation.ParseCID(k)
			if err != nil {
				return nil, err
			}
			override[cid] = nH
		}
	}
	return &gibbs.ReverseTransformInput{
		BatchID:    r.BatchID,
		Rows:       rows,
		NHOverride: override,
		ResultKey:  r.ResultKey,
	}, nil
}

//Personal.AI order the ending
