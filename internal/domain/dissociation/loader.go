package dissociation

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jasmincar/milo-lab/internal/domain/molecule"
	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// EquilibriumType classifies a row of the equilibrium table.
type EquilibriumType string

const (
	EquilibriumAcidBase EquilibriumType = "acid-base"
	EquilibriumMg       EquilibriumType = "Mg"
)

// EquilibriumRecord is one validated row of the equilibrium table: a pKa, a
// pKMg, or (any other type) the description of a single microstate.
type EquilibriumRecord struct {
	Line        int
	CID         CID
	Type        EquilibriumType
	PK          *float64
	NHBelow     int
	NHAbove     int
	NMgBelow    int
	NMgAbove    int
	SMILESBelow string
	SMILESAbove string
	Ref         string
	T           float64
}

// Validate checks the shape of the record for its type.
func (r EquilibriumRecord) Validate() error {
	switch r.Type {
	case EquilibriumAcidBase:
		if r.PK == nil {
			return r.invalid("acid-base row without a pK")
		}
		if r.NMgBelow != r.NMgAbove {
			return r.invalid("different nMg below and above the pKa")
		}
	case EquilibriumMg:
		if r.PK == nil {
			return r.invalid("Mg row without a pK")
		}
		if r.NHBelow != r.NHAbove {
			return r.invalid("different nH below and above the pKMg")
		}
	default:
		if r.PK != nil {
			return r.invalid(`row has a pK although it is not "acid-base" nor "Mg"`)
		}
		if r.NMgBelow != r.NMgAbove {
			return r.invalid(`row has different nMg although it is not "Mg"`)
		}
		if r.NHBelow != r.NHAbove {
			return r.invalid(`row has different nH although it is not "acid-base"`)
		}
	}
	return nil
}

func (r EquilibriumRecord) invalid(msg string) error {
	return errors.New(errors.ErrCodeInvalidEquilibriumRecord, msg).
		WithDetail(fmt.Sprintf("line=%d cid=%s", r.Line, r.CID))
}

// EquilibriumColumns is the header of the equilibrium table.
var EquilibriumColumns = []string{
	"cid", "type", "pK", "nH_below", "nH_above", "nMg_below", "nMg_above",
	"smiles_below", "smiles_above", "ref", "T",
}

// csvRow gives by-name access to one CSV record.
type csvRow struct {
	line   int
	index  map[string]int
	fields []string
}

func newHeaderIndex(header []string, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidEquilibriumRecord, "missing column").WithDetail("column=" + col)
		}
	}
	return index, nil
}

func (r csvRow) get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r csvRow) fieldError(col, value string) error {
	return errors.New(errors.ErrCodeInvalidEquilibriumRecord, "invalid value").
		WithDetail(fmt.Sprintf("line=%d column=%s value=%q", r.line, col, value))
}

func (r csvRow) intField(col string) (int, error) {
	v := r.get(col)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, r.fieldError(col, v)
	}
	return n, nil
}

func (r csvRow) floatField(col string, def float64) (float64, error) {
	v := r.get(col)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, r.fieldError(col, v)
	}
	return f, nil
}

// ParseEquilibriumCSV reads the equilibrium table. Rows without a cid are
// skipped. Malformed numbers and rows of the wrong shape fail the whole read
// with the offending line number.
func ParseEquilibriumCSV(rd io.Reader) ([]EquilibriumRecord, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidEquilibriumRecord, "failed to read header")
	}
	index, err := newHeaderIndex(header, EquilibriumColumns[:7])
	if err != nil {
		return nil, err
	}

	var out []EquilibriumRecord
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidEquilibriumRecord, "failed to read row").
				WithDetail(fmt.Sprintf("line=%d", line))
		}
		row := csvRow{line: line, index: index, fields: fields}
		if row.get("cid") == "" {
			continue
		}
		rec, err := parseEquilibriumRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseEquilibriumRow(row csvRow) (EquilibriumRecord, error) {
	rec := EquilibriumRecord{
		Line:        row.line,
		Type:        EquilibriumType(row.get("type")),
		SMILESBelow: row.get("smiles_below"),
		SMILESAbove: row.get("smiles_above"),
		Ref:         row.get("ref"),
	}
	cid, err := ParseCID(row.get("cid"))
	if err != nil {
		return rec, row.fieldError("cid", row.get("cid"))
	}
	rec.CID = cid

	for _, f := range []struct {
		col string
		dst *int
	}{
		{"nH_below", &rec.NHBelow},
		{"nH_above", &rec.NHAbove},
		{"nMg_below", &rec.NMgBelow},
		{"nMg_above", &rec.NMgAbove},
	} {
		if *f.dst, err = row.intField(f.col); err != nil {
			return rec, err
		}
	}
	if v := row.get("pK"); v != "" {
		pk, err := row.floatField("pK", 0)
		if err != nil {
			return rec, err
		}
		rec.PK = &pk
	}
	if rec.T, err = row.floatField("T", thermo.DefaultT); err != nil {
		return rec, err
	}
	return rec, rec.Validate()
}

// LoadReport summarises a LoadRecords call.
type LoadReport struct {
	Records   int `json:"records"`
	Skipped   int `json:"skipped"`
	Compounds int `json:"compounds"`
}

// LoadRecords applies validated records to the registry and then computes
// every reference charge. Records whose structures do not parse are skipped
// with a warning; equilibrium violations abort the load.
func (r *Registry) LoadRecords(ctx context.Context, records []EquilibriumRecord) (LoadReport, error) {
	var report LoadReport
	seen := make(map[CID]struct{})
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return report, err
		}
		if err := validStructures(rec.SMILESBelow, rec.SMILESAbove); err != nil {
			r.logger.Warn("skipping equilibrium row with malformed structure",
				logging.Int("line", rec.Line), logging.Stringer("cid", rec.CID), logging.Err(err))
			report.Skipped++
			continue
		}
		if err := r.applyRecord(rec); err != nil {
			return report, fmt.Errorf("line %d: %w", rec.Line, err)
		}
		report.Records++
		seen[rec.CID] = struct{}{}
	}
	report.Compounds = len(seen)
	return report, r.CalculateAllCharges(ctx)
}

func (r *Registry) applyRecord(rec EquilibriumRecord) error {
	t := r.GetOrCreate(rec.CID)
	t.UpdateMinNumHydrogens(rec.NHAbove)
	opts := []EdgeOption{
		WithRef(rec.Ref),
		WithTemperature(rec.T),
		WithStructures(rec.SMILESBelow, rec.SMILESAbove),
	}

	switch rec.Type {
	case EquilibriumAcidBase:
		return t.AddpKa(*rec.PK, rec.NHBelow, rec.NHAbove, rec.NMgBelow, opts...)
	case EquilibriumMg:
		return t.AddpKMg(*rec.PK, rec.NMgBelow, rec.NMgAbove, rec.NHBelow, opts...)
	}
	if rec.SMILESBelow != "" {
		return t.SetOnlyPseudoisomer(rec.SMILESBelow, rec.NMgBelow)
	}
	t.SetMinNumHydrogens(rec.NHBelow)
	return nil
}

func validStructures(smiles ...string) error {
	for _, s := range smiles {
		if s == "" {
			continue
		}
		if _, err := molecule.FromSMILES(s); err != nil {
			return err
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Measured reactions
// ─────────────────────────────────────────────────────────────────────────────

// NistColumns is the header of the measured-reaction table. ref is optional.
var NistColumns = []string{"reaction", "dG0_r_tag", "pH", "I", "pMg", "T"}

// ParseNistCSV reads measured reactions. Empty pH, I, pMg or T columns take
// the default condition.
func ParseNistCSV(rd io.Reader) ([]NistRow, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidEquilibriumRecord, "failed to read header")
	}
	index, err := newHeaderIndex(header, NistColumns[:2])
	if err != nil {
		return nil, err
	}

	def := thermo.DefaultConditions()
	var out []NistRow
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidEquilibriumRecord, "failed to read row").
				WithDetail(fmt.Sprintf("line=%d", line))
		}
		row := csvRow{line: line, index: index, fields: fields}
		if row.get("reaction") == "" {
			continue
		}
		reaction, err := ParseReaction(row.get("reaction"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		nr := NistRow{Reaction: reaction, Ref: row.get("ref")}
		if row.get("dG0_r_tag") == "" {
			return nil, row.fieldError("dG0_r_tag", "")
		}
		for _, f := range []struct {
			col string
			def float64
			dst *float64
		}{
			{"dG0_r_tag", 0, &nr.DG0RTag},
			{"pH", def.PH, &nr.Conditions.PH},
			{"I", def.I, &nr.Conditions.I},
			{"pMg", def.PMg, &nr.Conditions.PMg},
			{"T", def.T, &nr.Conditions.T},
		} {
			if *f.dst, err = row.floatField(f.col, f.def); err != nil {
				return nil, err
			}
		}
		if err := nr.Conditions.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, nr)
	}
	return out, nil
}

// WriteRowsCSV writes rows in the persisted column order. Nil fields are
// written as empty cells.
func WriteRowsCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RowColumns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(int(r.CID)), r.Name,
			fmtInt(r.NHBelow), fmtInt(r.NHAbove), fmtInt(r.NMgBelow), fmtInt(r.NMgAbove),
			deref(r.SMILESBelow), deref(r.SMILESAbove),
			fmtFloat(r.DDG0), deref(r.Ref),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RowColumns is the column order of the persisted row contract.
var RowColumns = []string{
	"cid", "name", "nH_below", "nH_above", "nMg_below", "nMg_above",
	"mol_below", "mol_above", "ddG", "ref",
}

func fmtInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func fmtFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'g', -1, 64)
}

//Personal.AI order the ending
