package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jasmincar/milo-lab/internal/application/gibbs"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	var (
		object string
		noSave bool
	)

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import an equilibrium table into the registry",
		Long: "Parses an equilibrium CSV (cid,type,pK,nH_below,nH_above,nMg_below,\n" +
			"nMg_above,smiles_below,smiles_above,ref,T) from a file, stdin (-) or an\n" +
			"object, merges it into the registry and saves the registry to the\n" +
			"configured database.",
		Example: "  gibbs import equilibria.csv\n  gibbs import --object tables/alberty.csv",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (object != "") {
				return errors.InvalidParam("give either a file or --object")
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

			var res *gibbs.ImportResult
			switch {
			case object != "":
				res, err = rt.Service.ImportObject(ctx, object)
			case args[0] == "-":
				res, err = rt.Service.ImportCSV(ctx, cmd.InOrStdin())
			default:
				f, oerr := os.Open(args[0])
				if oerr != nil {
					return errors.Wrap(oerr, errors.CodeInvalidParam, "cannot open equilibrium table")
				}
				defer f.Close()
				res, err = rt.Service.ImportCSV(ctx, f)
				if res != nil {
					res.Source = args[0]
				}
			}
			if err != nil {
				return err
			}

			if rt.HasStore() && !noSave {
				n, err := rt.Service.SaveToStore(ctx)
				if err != nil {
					return err
				}
				rt.Logger.Debug("registry persisted")
				PrintSuccess(cmd, fmt.Sprintf("%d rows saved to %s", n, rt.Config.Database.Driver))
			}
			return PrintResult(cmd, importView{res})
		},
	}

	cmd.Flags().StringVar(&object, "object", "", "object key of the equilibrium table")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the registry")
	return cmd
}

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	var (
		out    string
		object string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the registry in the row format",
		Long: "Writes every dissociation table of the registry as rows of\n" +
			"cid,name,nH_below,nH_above,nMg_below,nMg_above,mol_below,mol_above,ddG,ref\n" +
			"to stdout, a file or an object.",
		Example: "  gibbs export --out rows.csv\n  gibbs export --object exports/rows.csv",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if object != "" {
				info, err := rt.Service.ExportObject(ctx, object)
				if err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("registry exported to %s (%d bytes)", info.Key, info.Size))
				return nil
			}
			if out == "" || out == "-" {
				_, err := rt.Service.ExportCSV(ctx, cmd.OutOrStdout())
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			n, err := rt.Service.ExportCSV(ctx, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("%d rows written to %s", n, out))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&object, "object", "", "store the export under this object key")
	cmd.MarkFlagsMutuallyExclusive("out", "object")
	return cmd
}

type importView struct {
	*gibbs.ImportResult
}

func (v importView) String() string {
	return fmt.Sprintf("imported %d records (%d skipped) from %s; registry holds %d compounds",
		v.Records, v.Skipped, v.Source, v.Compounds)
}

func (v importView) TableHeaders() []string {
	return []string{"source", "records", "skipped", "compounds"}
}

func (v importView) TableRows() [][]string {
	return [][]string{{v.Source, strconv.Itoa(v.Records), strconv.Itoa(v.Skipped), strconv.Itoa(v.Compounds)}}
}

//Personal.AI order the ending
