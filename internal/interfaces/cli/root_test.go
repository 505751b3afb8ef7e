package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasmincar/milo-lab/pkg/errors"
)

const equilibriumCSV = "cid,type,pK,nH_below,nH_above,nMg_below,nMg_above,smiles_below,smiles_above,ref,T\n" +
	"9,acid-base,2.12,3,2,0,0,OP(O)(O)=O,OP(O)([O-])=O,Alberty,\n" +
	"9,acid-base,7.2,2,1,0,0,,,Alberty,\n" +
	"9,acid-base,12.3,1,0,0,0,,,Alberty,\n" +
	"9,Mg,1.65,1,1,1,0,,,Alberty,\n" +
	"1,,,2,2,0,0,,,,\n"

func init() {
	gin.SetMode(gin.TestMode)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// testConfig writes a config file using driver and returns its path.
func testConfig(t *testing.T, dir, driver string) string {
	t.Helper()
	yaml := "server:\n  mode: test\n" +
		"database:\n  driver: " + driver + "\n  sqlite:\n    path: " + filepath.Join(dir, "gibbs.db") + "\n" +
		"monitoring:\n  log:\n    level: error\n  metrics:\n    enabled: false\n"
	return writeFile(t, dir, "gibbs.yaml", yaml)
}

// run executes the root command with args and captures stdout and stderr.
func run(args ...string) (string, string, error) {
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	t.Parallel()
	cmd := NewRootCommand()
	assert.Equal(t, "gibbs", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{
		"transform", "pseudoisomers", "reverse-transform", "import", "export",
		"migrate", "serve", "worker", "version",
	} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	t.Parallel()
	pf := NewRootCommand().PersistentFlags()

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{name: "config", shorthand: "c", def: ""},
		{name: "log-level", def: ""},
		{name: "output", shorthand: "o", def: "text"},
		{name: "verbose", shorthand: "v", def: "false"},
		{name: "timeout", def: "1m0s"},
		{name: "data", def: ""},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := pf.Lookup(tc.name)
			require.NotNil(t, f)
			assert.Equal(t, tc.shorthand, f.Shorthand)
			assert.Equal(t, tc.def, f.DefValue)
		})
	}
}

func TestPersistentPreRun_InvalidOutput(t *testing.T) {
	t.Parallel()
	_, _, err := run("--output", "yaml", "version")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.GetCode(err))
}

func TestPersistentPreRun_MissingConfigFile(t *testing.T) {
	t.Parallel()
	_, _, err := run("--config", filepath.Join(t.TempDir(), "absent.yaml"), "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestGetCLIContext(t *testing.T) {
	t.Parallel()
	cmd := &cobra.Command{}
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)

	want := &CLIContext{OutputFormat: "json"}
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, want))
	got, err := GetCLIContext(cmd)
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestFormatTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers []string
		rows    [][]string
		want    string
	}{
		{name: "no headers", want: ""},
		{
			name:    "aligned",
			headers: []string{"a", "bb"},
			rows:    [][]string{{"xxx", "y"}},
			want:    "a    bb\n---  --\nxxx  y\n",
		},
		{
			name:    "short row",
			headers: []string{"a", "bb"},
			rows:    [][]string{{"x"}},
			want:    "a  bb\n-  --\nx  \n",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, FormatTable(tc.headers, tc.rows))
		})
	}
}

type tableResult struct{ N int }

func (r tableResult) String() string          { return "n is set" }
func (r tableResult) TableHeaders() []string { return []string{"n"} }
func (r tableResult) TableRows() [][]string  { return [][]string{{"1"}} }

func TestPrintResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format string
		want   string
	}{
		{name: "no context", format: "", want: "{\n  \"N\": 1\n}\n"},
		{name: "json", format: "json", want: "{\n  \"N\": 1\n}\n"},
		{name: "table", format: "table", want: "n\n-\n1\n"},
		{name: "text", format: "text", want: "n is set\n"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cmd := &cobra.Command{}
			var out bytes.Buffer
			cmd.SetOut(&out)
			if tc.format != "" {
				cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, &CLIContext{OutputFormat: tc.format}))
			}
			require.NoError(t, PrintResult(cmd, tableResult{N: 1}))
			assert.Equal(t, tc.want, out.String())
		})
	}
}

func TestPrintError(t *testing.T) {
	t.Parallel()
	cmd := &cobra.Command{}
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)

	PrintError(cmd, nil)
	assert.Empty(t, errOut.String())

	PrintError(cmd, errors.InvalidParam("bad cid"))
	assert.Contains(t, errOut.String(), "Error ["+string(errors.CodeInvalidParam)+"]: ")
	assert.Contains(t, errOut.String(), "bad cid")
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t, t.TempDir(), "none")

	out, _, err := run("-c", cfg, "-o", "json", "version")
	require.NoError(t, err)

	var v versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v.Version)
	assert.NotEmpty(t, v.GoVersion)
	assert.Contains(t, v.Platform, "/")
}

//Personal.AI order the ending
