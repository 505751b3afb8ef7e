package gibbs

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/jasmincar/milo-lab/internal/domain/dissociation"
	"github.com/jasmincar/milo-lab/internal/infrastructure/messaging/kafka"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/prometheus"
	"github.com/jasmincar/milo-lab/internal/infrastructure/storage/minio"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// ReverseTransformInput is a batch of measured reactions.
type ReverseTransformInput struct {
	// BatchID identifies the batch in events and logs. Empty gets a new UUID.
	BatchID string

	Rows []dissociation.NistRow

	// NHOverride fixes the reference hydrogen count of selected compounds.
	NHOverride map[dissociation.CID]int

	// ResultKey, when set, stores the result table in the object store.
	ResultKey string
}

// ReverseTransformResult is the batch result with its identifiers.
type ReverseTransformResult struct {
	BatchID   string `json:"batch_id"`
	ResultKey string `json:"result_key,omitempty"`
	ResultURL string `json:"result_url,omitempty"`
	*dissociation.NistTransformResult
}

func (s *serviceImpl) ReverseTransform(ctx context.Context, input *ReverseTransformInput) (*ReverseTransformResult, error) {
	if input == nil || len(input.Rows) == 0 {
		return nil, errors.InvalidParam("at least one measured reaction is required")
	}
	batchID := input.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}
	log := s.logger.With(logging.String("batch_id", batchID))

	timer := s.metrics.StartReverseTransform()
	res, err := s.registry.ReverseTransformNistRows(ctx, input.Rows, input.NHOverride,
		dissociation.WithWorkers(s.workers), dissociation.WithCreateIfMissing(s.createIfMissing))
	if err != nil {
		s.metrics.RecordError("reverse_transform", string(errors.GetCode(err)))
		return nil, err
	}
	elapsed := timer.ObserveDuration()
	s.metrics.RecordReverseTransform(len(res.Rows), res.Excluded)

	out := &ReverseTransformResult{BatchID: batchID, NistTransformResult: res}
	if input.ResultKey != "" {
		if err := s.storeResult(ctx, input.ResultKey, res); err != nil {
			return nil, err
		}
		out.ResultKey = input.ResultKey
		out.ResultURL = s.presign(ctx, input.ResultKey, log)
	}

	log.Info("reverse transform finished",
		logging.Int("rows", len(res.Rows)),
		logging.Int("excluded", res.Excluded),
		logging.Int("compounds", len(res.CIDsToEstimate)),
		logging.Duration("elapsed", elapsed))
	s.publishCompleted(ctx, out, log)
	return out, nil
}

// ReverseTransformObject runs a batch whose measured reactions are stored as
// a CSV object.
func (s *serviceImpl) ReverseTransformObject(ctx context.Context, req kafka.ReverseTransformRequestedPayload) (*ReverseTransformResult, error) {
	if s.objects == nil {
		return nil, ErrNoObjectStore
	}
	rc, err := s.objects.Open(ctx, req.ObjectKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	rows, err := dissociation.ParseNistCSV(rc)
	if err != nil {
		return nil, err
	}
	return s.ReverseTransform(ctx, &ReverseTransformInput{
		BatchID:   req.BatchID,
		Rows:      rows,
		ResultKey: req.ResultKey,
	})
}

// publishCompleted announces the batch. A failed publish does not fail the
// batch: the result is already computed and, if requested, stored.
func (s *serviceImpl) publishCompleted(ctx context.Context, res *ReverseTransformResult, log logging.Logger) {
	if s.events == nil {
		return
	}
	cids := make([]string, len(res.CIDsToEstimate))
	for i, cid := range res.CIDsToEstimate {
		cids[i] = cid.String()
	}
	err := s.events.PublishReverseTransformCompleted(ctx, kafka.ReverseTransformCompletedPayload{
		BatchID:        res.BatchID,
		Rows:           len(res.Rows),
		Excluded:       res.Excluded,
		CIDsToEstimate: cids,
		ResultKey:      res.ResultKey,
		ResultURL:      res.ResultURL,
		CompletedAt:    s.now().UTC(),
	})
	s.metrics.RecordEvent(kafka.TopicReverseTransformCompleted, err)
	if err != nil {
		log.Error("failed to publish reverse transform event", logging.Err(err))
	}
}

// presign returns a download link for a stored result, or "" when the store
// cannot sign one. A signing failure only costs the link.
func (s *serviceImpl) presign(ctx context.Context, key string, log logging.Logger) string {
	p, ok := s.objects.(Presigner)
	if !ok {
		return ""
	}
	u, err := p.PresignedGetURL(ctx, key, 0)
	if err != nil {
		log.Warn("failed to presign result", logging.String("key", key), logging.Err(err))
		return ""
	}
	return u
}

func (s *serviceImpl) storeResult(ctx context.Context, key string, res *dissociation.NistTransformResult) error {
	if s.objects == nil {
		return ErrNoObjectStore
	}
	var buf bytes.Buffer
	if err := WriteResultCSV(&buf, res); err != nil {
		return err
	}
	_, err := s.objects.Put(ctx, key, buf.Bytes(), minio.ContentTypeCSV)
	return err
}

// ResultColumns precede one stoichiometry column per compound in a result table.
var ResultColumns = []string{"dG0_r_tag", "dG0_r", "ddG0_r", "pH", "I", "pMg", "T"}

// WriteResultCSV writes one line per kept reaction: the energies, the
// condition and the stoichiometric coefficient of every compound.
func WriteResultCSV(w io.Writer, res *dissociation.NistTransformResult) error {
	cw := csv.NewWriter(w)
	header := append([]string{}, ResultColumns...)
	for _, cid := range res.CIDsToEstimate {
		header = append(header, cid.String())
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to write result header")
	}

	record := make([]string, len(header))
	for i := range res.DG0R {
		for j, v := range []float64{res.DG0RTag[i], res.DG0R[i], res.DDG0R[i], res.PH[i], res.I[i], res.PMg[i], res.T[i]} {
			record[j] = formatFloat(v)
		}
		for j, v := range res.S[i] {
			record[len(ResultColumns)+j] = formatFloat(v)
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to write result row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to flush result table")
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ─────────────────────────────────────────────────────────────────────────────
// Worker
// ─────────────────────────────────────────────────────────────────────────────

// RequestHandler adapts the service to the request consumer. Malformed
// envelopes are returned as errors so the consumer dead-letters them.
func RequestHandler(svc Service, metrics *prometheus.Metrics, logger logging.Logger) kafka.MessageHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopMetrics()
	}
	return func(ctx context.Context, msg *kafka.Message) error {
		status, err := handleRequest(ctx, svc, msg, logger)
		metrics.WorkerMessagesTotal.WithLabelValues(status).Inc()
		return err
	}
}

func handleRequest(ctx context.Context, svc Service, msg *kafka.Message, logger logging.Logger) (string, error) {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return "malformed", err
	}
	if env.EventType != kafka.EventReverseTransformRequested {
		logger.Warn("ignoring unexpected event", logging.String("event_type", env.EventType),
			logging.String("event_id", env.EventID))
		return "ignored", nil
	}
	var req kafka.ReverseTransformRequestedPayload
	if err := env.DecodePayload(&req); err != nil {
		return "malformed", err
	}
	if req.ObjectKey == "" {
		return "malformed", errors.InvalidParam("reverse transform request has no object key").
			WithDetail("event_id=" + env.EventID)
	}
	if req.BatchID == "" {
		req.BatchID = env.EventID
	}
	if _, err := svc.ReverseTransformObject(ctx, req); err != nil {
		return "error", err
	}
	return "ok", nil
}

//Personal.AI order the ending
