package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jasmincar/milo-lab/internal/application/gibbs"
	"github.com/jasmincar/milo-lab/internal/domain/dissociation"
	"github.com/jasmincar/milo-lab/internal/domain/thermo"
)

// conditionFlags binds --ph, --i, --pmg and --t. Unset flags keep the
// configured default condition.
type conditionFlags struct {
	ph, i, pmg, t float64
}

func (f *conditionFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&f.ph, "ph", thermo.DefaultPH, "pH")
	fs.Float64Var(&f.i, "i", thermo.DefaultI, "ionic strength (M)")
	fs.Float64Var(&f.pmg, "pmg", thermo.DefaultPMg, "pMg")
	fs.Float64Var(&f.t, "t", thermo.DefaultT, "temperature (K)")
}

func (f *conditionFlags) resolve(fs *pflag.FlagSet, def thermo.Conditions) *thermo.Conditions {
	c := def
	changed := false
	if fs.Changed("ph") {
		c.PH, changed = f.ph, true
	}
	if fs.Changed("i") {
		c.I, changed = f.i, true
	}
	if fs.Changed("pmg") {
		c.PMg, changed = f.pmg, true
	}
	if fs.Changed("t") {
		c.T, changed = f.t, true
	}
	if !changed {
		return nil
	}
	return &c
}

// NewTransformCmd creates the transform command.
func NewTransformCmd() *cobra.Command {
	var cond conditionFlags

	cmd := &cobra.Command{
		Use:   "transform <cid>",
		Short: "Transformed formation energy of a compound",
		Long: "Computes dG0' of a compound at the given condition from its dissociation\n" +
			"table. Unset condition flags keep the configured default.",
		Example: "  gibbs transform C00009 --ph 7.4 --i 0.15 --data equilibria.csv",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cid, err := dissociation.ParseCID(args[0])
			if err != nil {
				return err
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

			res, err := rt.Service.Transform(ctx, &gibbs.TransformInput{
				CID:        cid,
				Conditions: cond.resolve(cmd.Flags(), rt.Service.DefaultConditions()),
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, transformView{res})
		},
	}
	cond.register(cmd.Flags())
	return cmd
}

// NewPseudoisomersCmd creates the pseudoisomers command.
func NewPseudoisomersCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "pseudoisomers <cid>",
		Short:   "List the generated pseudoisomers of a compound",
		Example: "  gibbs pseudoisomers 9 --data equilibria.csv -o table",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cid, err := dissociation.ParseCID(args[0])
			if err != nil {
				return err
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

			res, err := rt.Service.Pseudoisomers(ctx, cid)
			if err != nil {
				return err
			}
			return PrintResult(cmd, pseudoisomerView{res})
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────────────────

type transformView struct {
	*gibbs.TransformResult
}

func (v transformView) String() string {
	c := v.Conditions
	s := fmt.Sprintf("%s  dG0' = %.3f kJ/mol  (pH=%g I=%g pMg=%g T=%g)",
		v.CID, v.DG0Prime, c.PH, c.I, c.PMg, c.T)
	if v.MostAbundant != nil {
		s += fmt.Sprintf("\nmost abundant: nH=%d nMg=%d", v.MostAbundant.NH, v.MostAbundant.NMg)
		if v.SMILES != "" {
			s += " " + v.SMILES
		}
	}
	return s
}

func (v transformView) TableHeaders() []string {
	return []string{"CID", "pH", "I", "pMg", "T", "dG0'"}
}

func (v transformView) TableRows() [][]string {
	c := v.Conditions
	return [][]string{{v.CID, fmtG(c.PH), fmtG(c.I), fmtG(c.PMg), fmtG(c.T), fmtF(v.DG0Prime)}}
}

type pseudoisomerView struct {
	*gibbs.PseudoisomerResult
}

func (v pseudoisomerView) String() string {
	return v.Table
}

func (v pseudoisomerView) TableHeaders() []string {
	return []string{"nH", "z", "nMg", "dG0", "ref", "smiles"}
}

func (v pseudoisomerView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Pseudoisomers))
	for _, p := range v.Pseudoisomers {
		rows = append(rows, []string{
			strconv.Itoa(p.Hydrogens), strconv.Itoa(p.NetCharge), strconv.Itoa(p.Magnesiums),
			fmtF(p.DG0), p.Ref, p.SMILES,
		})
	}
	return rows
}

func fmtG(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
func fmtF(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

//Personal.AI order the ending
