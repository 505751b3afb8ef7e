package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jasmincar/milo-lab/internal/application/gibbs"
	"github.com/jasmincar/milo-lab/internal/domain/dissociation"
	"github.com/jasmincar/milo-lab/internal/infrastructure/messaging/kafka"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

type reverseOptions struct {
	input      string
	object     string
	batchID    string
	resultKey  string
	out        string
	nhOverride []string
	async      bool
}

// NewReverseTransformCmd creates the reverse-transform command.
func NewReverseTransformCmd() *cobra.Command {
	opts := &reverseOptions{}

	cmd := &cobra.Command{
		Use:   "reverse-transform",
		Short: "Reverse-transform measured reaction energies",
		Long: "Reads measured reactions (reaction,dG0_r_tag,pH,I,pMg,T) and converts each\n" +
			"dG0'_r to the chemical reference dG0_r. The input is a local CSV file, or\n" +
			"an object in the configured store. With --async the object is handed to\n" +
			"the worker through Kafka instead of being processed here.",
		Example: "  gibbs reverse-transform --input nist.csv --data equilibria.csv --out result.csv\n" +
			"  gibbs reverse-transform --object inputs/nist.csv --result-key results/nist.csv --async",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReverseTransform(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "measured reactions CSV (- for stdin)")
	f.StringVar(&opts.object, "object", "", "object key of the measured reactions CSV")
	f.StringVar(&opts.batchID, "batch-id", "", "batch identifier (default: generated)")
	f.StringVar(&opts.resultKey, "result-key", "", "object key the result table is stored under")
	f.StringVar(&opts.out, "out", "", "write the result table to this file (- for stdout)")
	f.StringSliceVar(&opts.nhOverride, "nh-override", nil, "reference nH per compound, as CID=nH")
	f.BoolVar(&opts.async, "async", false, "publish a request for the worker instead of processing locally")
	cmd.MarkFlagsMutuallyExclusive("input", "object")
	cmd.MarkFlagsOneRequired("input", "object")
	return cmd
}

func runReverseTransform(cmd *cobra.Command, opts *reverseOptions) error {
	if opts.async && opts.object == "" {
		return errors.InvalidParam("--async requires --object")
	}
	nh, err := parseNHOverride(opts.nhOverride)
	if err != nil {
		return err
	}

	var rows []dissociation.NistRow
	if opts.input != "" {
		if rows, err = readNistRows(cmd, opts.input); err != nil {
			return err
		}
	}

	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	rt, err := runtimeFor(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if opts.async {
		if rt.Events == nil {
			return errors.New(errors.ErrCodeServiceUnavailable, "kafka is not enabled")
		}
		req := kafka.ReverseTransformRequestedPayload{
			BatchID:   opts.batchID,
			ObjectKey: opts.object,
			ResultKey: opts.resultKey,
		}
		if err := rt.Events.RequestReverseTransform(ctx, req); err != nil {
			return err
		}
		PrintSuccess(cmd, "reverse transform of "+opts.object+" requested")
		return nil
	}

	var res *gibbs.ReverseTransformResult
	if opts.object != "" {
		res, err = rt.Service.ReverseTransformObject(ctx, kafka.ReverseTransformRequestedPayload{
			BatchID:   opts.batchID,
			ObjectKey: opts.object,
			ResultKey: opts.resultKey,
		})
	} else {
		res, err = rt.Service.ReverseTransform(ctx, &gibbs.ReverseTransformInput{
			BatchID:    opts.batchID,
			Rows:       rows,
			NHOverride: nh,
			ResultKey:  opts.resultKey,
		})
	}
	if err != nil {
		return err
	}

	switch opts.out {
	case "":
	case "-":
		return gibbs.WriteResultCSV(cmd.OutOrStdout(), res.NistTransformResult)
	default:
		if err := writeResultFile(opts.out, res); err != nil {
			return err
		}
		PrintSuccess(cmd, fmt.Sprintf("%d reactions written to %s", len(res.DG0R), opts.out))
	}
	return PrintResult(cmd, reverseView{res})
}

func readNistRows(cmd *cobra.Command, path string) ([]dissociation.NistRow, error) {
	if path == "-" {
		return dissociation.ParseNistCSV(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "cannot open input")
	}
	defer f.Close()
	return dissociation.ParseNistCSV(f)
}

func writeResultFile(path string, res *gibbs.ReverseTransformResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return gibbs.WriteResultCSV(f, res.NistTransformResult)
}

// parseNHOverride reads CID=nH pairs.
func parseNHOverride(pairs []string) (map[dissociation.CID]int, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[dissociation.CID]int, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, errors.InvalidParam("nH override must be CID=nH").WithDetail(p)
		}
		cid, err := dissociation.ParseCID(k)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, errors.InvalidParam("nH override must be an integer").WithDetail(p)
		}
		out[cid] = n
	}
	return out, nil
}

type reverseView struct {
	*gibbs.ReverseTransformResult
}

func (v reverseView) String() string {
	cids := make([]string, len(v.CIDsToEstimate))
	for i, c := range v.CIDsToEstimate {
		cids[i] = c.String()
	}
	s := fmt.Sprintf("batch %s: %d reactions transformed, %d excluded\ncompounds: %s",
		v.BatchID, len(v.DG0R), v.Excluded, strings.Join(cids, " "))
	if v.ResultKey != "" {
		s += "\nresult: " + v.ResultKey
	}
	if v.ResultURL != "" {
		s += "\ndownload: " + v.ResultURL
	}
	return s
}

func (v reverseView) TableHeaders() []string {
	return []string{"dG0'_r", "dG0_r", "ddG0_r", "pH", "I", "pMg", "T"}
}

func (v reverseView) TableRows() [][]string {
	r := v.NistTransformResult
	rows := make([][]string, len(r.DG0R))
	for i := range r.DG0R {
		rows[i] = []string{
			fmtF(r.DG0RTag[i]), fmtF(r.DG0R[i]), fmtF(r.DDG0R[i]),
			fmtG(r.PH[i]), fmtG(r.I[i]), fmtG(r.PMg[i]), fmtG(r.T[i]),
		}
	}
	return rows
}

//Personal.AI order the ending
