package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roach88/litelog/internal/testutil"
)

func testOptions() *RootOptions {
	return &RootOptions{
		Logger: zap.NewNop(),
		RunIDs: testutil.NewSequentialRunIDGenerator("run"),
	}
}

// execute runs the CLI with args and returns its standard output.
func execute(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommandWithOptions(opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	resp := CLIResponse{Data: data}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "litelog", cmd.Use)
	assert.Contains(t, cmd.Long, "Datalog")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "explain", "strata", "validate", "test", "runs", "souffle"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, ":memory:", dbFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, testOptions(), "--format", "yaml", "run", "testdata/transitive.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRunText(t *testing.T) {
	out, err := execute(t, testOptions(), "run", "testdata/transitive.cue")
	require.NoError(t, err)
	assert.Equal(t, `run run-0001: 2 strata, 5 rounds, 5 new facts

edge (2)
  edge(1, 2)
  edge(2, 3)

path (3)
  path(1, 2)
  path(1, 3)
  path(2, 3)
`, out)
}

func TestRunRuleTextJSON(t *testing.T) {
	out, err := execute(t, testOptions(), "--format", "json", "run", "--naive", "--relation", "path", "testdata/transitive.dl")
	require.NoError(t, err)

	var data RunOutput
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "transitive", data.Program)
	assert.Equal(t, "naive", data.Strategy)
	assert.Equal(t, 5, data.Rounds)
	assert.Equal(t, int64(1), data.FirstTimestamp)
	assert.Equal(t, int64(5), data.LastTimestamp)
	require.Len(t, data.Relations, 1)
	assert.Equal(t, []string{"path(1, 2)", "path(1, 3)", "path(2, 3)"}, data.Relations[0].Facts)
}

func TestRunRoundLimit(t *testing.T) {
	out, err := execute(t, testOptions(), "run", "--max-rounds", "5", "testdata/counter.dl")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [ROUND_LIMIT]")
}

func TestRunMissingProgram(t *testing.T) {
	out, err := execute(t, testOptions(), "run", "testdata/nowhere.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "program not found")
}

func TestExplain(t *testing.T) {
	out, err := execute(t, testOptions(), "explain", "testdata/transitive.cue", "path(1, 3)")
	require.NoError(t, err)
	assert.Equal(t, `path(1, 3) [rule 3, t=4]
  edge(1, 2) [rule 0, t=1]
  path(2, 3) [rule 2, t=3]
    edge(2, 3) [rule 1, t=1]
`, out)
}

func TestExplainJSON(t *testing.T) {
	out, err := execute(t, testOptions(), "--format", "json", "explain", "--latex", "testdata/transitive.cue", "path(1, 3)")
	require.NoError(t, err)

	var data ExplainOutput
	decodeResponse(t, out, &data)
	assert.Equal(t, 3, data.Depth)
	assert.Equal(t, "path(1, 3)", data.Proof.Fact)
	assert.Equal(t, 3, data.Proof.Rule)
	require.Len(t, data.Proof.Premises, 2)
	assert.Equal(t, "edge(2, 3)", data.Proof.Premises[1].Premises[0].Fact)
	assert.Contains(t, data.Latex, `\BinaryInfC{path(1, 3)}`)
}

func TestExplainNoDerivation(t *testing.T) {
	out, err := execute(t, testOptions(), "explain", "testdata/transitive.cue", "path(3, 1)")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [NO_DERIVATION]")
}

func TestExplainAtBeforeCommit(t *testing.T) {
	_, err := execute(t, testOptions(), "explain", "--at", "4", "testdata/transitive.cue", "path(1, 3)")
	require.Error(t, err)

	_, err = execute(t, testOptions(), "explain", "--at", "5", "testdata/transitive.cue", "path(1, 3)")
	require.NoError(t, err)
}

func TestStrata(t *testing.T) {
	out, err := execute(t, testOptions(), "strata", "testdata/transitive.cue")
	require.NoError(t, err)
	assert.Equal(t, `stratum 0: edge
  one-shot  0: edge(1, 2).
  one-shot  1: edge(2, 3).
stratum 1: path
  one-shot  2: path(X, Y) :- edge(X, Y).
  recursive 3: path(X, Z) :- edge(X, Y), path(Y, Z).
`, out)
}

func TestValidate(t *testing.T) {
	out, err := execute(t, testOptions(), "validate", "testdata/transitive.dl")
	require.NoError(t, err)
	assert.Equal(t, "✓ transitive is valid: 2 relations, 4 clauses, 2 strata\n", out)
}

func TestValidateUnstratifiable(t *testing.T) {
	out, err := execute(t, testOptions(), "--format", "json", "validate", "testdata/unstratifiable.dl")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNSTRATIFIABLE", resp.Error.Code)
}

func TestRunsAfterRerun(t *testing.T) {
	opts := testOptions()
	db := filepath.Join(t.TempDir(), "facts.db")

	_, err := execute(t, opts, "--db", db, "run", "testdata/transitive.cue")
	require.NoError(t, err)
	out, err := execute(t, opts, "--db", db, "run", "testdata/transitive.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "run run-0002: 2 strata, 2 rounds, 0 new facts")

	out, err = execute(t, opts, "--db", db, "--format", "json", "runs")
	require.NoError(t, err)
	var runs []RunEntry
	decodeResponse(t, out, &runs)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-0001", runs[0].ID)
	assert.Equal(t, int64(5), runs[0].Facts)
	assert.Equal(t, "run-0002", runs[1].ID)
	assert.Equal(t, int64(0), runs[1].Facts)
	assert.Greater(t, runs[1].FirstTimestamp, runs[0].LastTimestamp)
}

func TestRunsEmpty(t *testing.T) {
	out, err := execute(t, testOptions(), "runs")
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)
}

func TestTestCommand(t *testing.T) {
	out, err := execute(t, testOptions(), "test", "--golden", "../harness/testdata/golden", "../harness/testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ transitive_closure\n")
	assert.Contains(t, out, "Test Summary: 6 passed, 0 failed, 6 total")
}

func TestTestCommandUpdateAndFilter(t *testing.T) {
	golden := t.TempDir()
	out, err := execute(t, testOptions(), "--format", "json", "test", "--filter", "negation", "--golden", golden, "--update", "../harness/testdata/scenarios")
	require.NoError(t, err)

	var summary TestResult
	decodeResponse(t, out, &summary)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, "stratified_negation", summary.Scenarios[0].Name)
	assert.FileExists(t, filepath.Join(golden, "stratified_negation.golden"))

	// The fresh golden file now matches.
	_, err = execute(t, testOptions(), "test", "--filter", "negation", "--golden", golden, "../harness/testdata/scenarios")
	require.NoError(t, err)
}

func TestTestCommandMissingGolden(t *testing.T) {
	out, err := execute(t, testOptions(), "test", "--filter", "counter", "--golden", t.TempDir(), "../harness/testdata/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed to read golden file")
}

func TestTestCommandMissingDir(t *testing.T) {
	_, err := execute(t, testOptions(), "test", "testdata/no-scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSouffleEmit(t *testing.T) {
	out, err := execute(t, testOptions(), "souffle", "--emit", "testdata/transitive.dl")
	require.NoError(t, err)
	assert.Contains(t, out, ".decl edge(x0: number, x1: number)\n")
	assert.Contains(t, out, `.output path(IO=sqlite, filename="output.db")`)
	assert.Contains(t, out, "path(X, Z) :- edge(X, Y), path(Y, Z).\n")
}

func TestSouffleNotInstalled(t *testing.T) {
	_, err := execute(t, testOptions(), "souffle", "--exec", "litelog-no-such-souffle", "testdata/transitive.dl")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
