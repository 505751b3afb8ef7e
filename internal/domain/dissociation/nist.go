package dissociation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
)

// NistRow is one measured reaction: the transformed reaction energy observed
// at a condition.
type NistRow struct {
	Reaction   Reaction          `json:"reaction"`
	DG0RTag    float64           `json:"dG0_r_tag"`
	Conditions thermo.Conditions `json:"conditions"`
	Ref        string            `json:"ref,omitempty"`
}

// NistTransformResult holds the reverse-transformed rows. All slices are
// parallel and hold only the rows that could be transformed.
type NistTransformResult struct {
	DG0RTag []float64 `json:"dG0_r_tag"`
	DG0R    []float64 `json:"dG0_r"`
	DDG0R   []float64 `json:"ddG0_r"`
	PH      []float64 `json:"pH"`
	I       []float64 `json:"I"`
	PMg     []float64 `json:"pMg"`
	T       []float64 `json:"T"`

	// S is the stoichiometric matrix, one row per kept reaction and one
	// column per entry of CIDsToEstimate.
	S              [][]float64 `json:"S"`
	Rows           []NistRow   `json:"-"`
	CIDsToEstimate []CID       `json:"cids_to_estimate"`

	// Excluded counts rows skipped for a missing dissociation constant.
	Excluded int `json:"excluded"`
}

// BatchOption configures ReverseTransformNistRows.
type BatchOption func(*batchOptions)

type batchOptions struct {
	workers         int
	createIfMissing bool
}

// WithWorkers evaluates up to n rows concurrently. n <= 1 runs sequentially.
func WithWorkers(n int) BatchOption {
	return func(o *batchOptions) { o.workers = n }
}

// WithCreateIfMissing controls whether compounds without a table are sent
// to the estimator. It defaults to true; when false they count as missing.
func WithCreateIfMissing(v bool) BatchOption {
	return func(o *batchOptions) { o.createIfMissing = v }
}

// ReverseTransformNistRows converts measured transformed reaction energies to
// chemical ones. Rows involving a compound with a missing dissociation
// constant are skipped; any other error aborts the batch. Columns of S follow
// the order in which compounds first appear; columns that end up all zero are
// dropped.
func (r *Registry) ReverseTransformNistRows(ctx context.Context, rows []NistRow, nHOverride map[CID]int, opts ...BatchOption) (*NistTransformResult, error) {
	o := batchOptions{workers: 1, createIfMissing: true}
	for _, opt := range opts {
		opt(&o)
	}

	var cids []CID
	column := make(map[CID]int)
	for _, row := range rows {
		for _, cid := range row.Reaction.CIDs() {
			if _, ok := column[cid]; !ok {
				column[cid] = len(cids)
				cids = append(cids, cid)
			}
		}
	}

	ddGs := make([]float64, len(rows))
	missing := make([]bool, len(rows))
	eval := func(i int) error {
		d, err := r.reverseTransformReaction(ctx, rows[i].Reaction, rows[i].Conditions, nHOverride, o.createIfMissing)
		if err != nil {
			if IsMissingDissociationConstant(err) {
				r.logger.Debug("reaction contains compounds with missing pKa values",
					logging.String("reaction", rows[i].Reaction.String()), logging.Err(err))
				missing[i] = true
				return nil
			}
			return err
		}
		ddGs[i] = d
		return nil
	}

	if o.workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.workers)
		for i := range rows {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return eval(i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range rows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := eval(i); err != nil {
				return nil, err
			}
		}
	}

	res := &NistTransformResult{}
	used := make([]bool, len(cids))
	var full [][]float64
	for i, row := range rows {
		if missing[i] {
			res.Excluded++
			continue
		}
		res.DG0RTag = append(res.DG0RTag, row.DG0RTag)
		res.DDG0R = append(res.DDG0R, ddGs[i])
		res.DG0R = append(res.DG0R, row.DG0RTag-ddGs[i])
		res.PH = append(res.PH, row.Conditions.PH)
		res.I = append(res.I, row.Conditions.I)
		res.PMg = append(res.PMg, row.Conditions.PMg)
		res.T = append(res.T, row.Conditions.T)
		res.Rows = append(res.Rows, row)

		vec := make([]float64, len(cids))
		for cid, coeff := range row.Reaction {
			j := column[cid]
			vec[j] = coeff
			if coeff != 0 {
				used[j] = true
			}
		}
		full = append(full, vec)
	}

	var keep []int
	for j, cid := range cids {
		if used[j] {
			keep = append(keep, j)
			res.CIDsToEstimate = append(res.CIDsToEstimate, cid)
		}
	}
	res.S = make([][]float64, len(full))
	for i, vec := range full {
		res.S[i] = make([]float64, len(keep))
		for k, j := range keep {
			res.S[i][k] = vec[j]
		}
	}
	return res, nil
}

//Personal.AI order the ending
