package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocktrigger/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{
		"BLOCKTRIGGER_DB": filepath.Join(t.TempDir(), "cli.db"),
	})
	require.NoError(t, err)
	return cfg
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "blocktrigger", cmd.Use)
	assert.Contains(t, cmd.Long, "rule document")
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand(testConfig(t), nil)
	commands := []string{"validate", "simulate", "import", "export", "revisions", "documents", "find"}

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
	cfg := testConfig(t)
	cmd := newRootCommand(cfg, nil)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, cfg.DB, dbFlag.DefValue)

	docFlag := cmd.PersistentFlags().Lookup("doc")
	require.NotNil(t, docFlag)
	assert.Equal(t, "default", docFlag.DefValue)

	cascadeFlag := cmd.PersistentFlags().Lookup("max-cascade")
	require.NotNil(t, cascadeFlag)
	assert.Equal(t, "10000", cascadeFlag.DefValue)
}

func TestSimulateCommandFlags(t *testing.T) {
	cmd := newRootCommand(testConfig(t), nil)
	simCmd, _, err := cmd.Find([]string{"simulate"})
	require.NoError(t, err)

	updateFlag := simCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	require.NotNil(t, simCmd.Flags().Lookup("filter"))
}

func TestImportCommandFlags(t *testing.T) {
	cmd := newRootCommand(testConfig(t), nil)
	importCmd, _, err := cmd.Find([]string{"import"})
	require.NoError(t, err)

	require.NotNil(t, importCmd.Flags().Lookup("handler"))
}

func TestRootInvalidFormat(t *testing.T) {
	cmd := newRootCommand(testConfig(t), nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "documents"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootNegativeMaxCascade(t *testing.T) {
	cmd := newRootCommand(testConfig(t), nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--max-cascade", "-1", "documents"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid max-cascade")
}

func TestRootReportsEnvironmentError(t *testing.T) {
	cmd := newRootCommand(testConfig(t), errors.New("invalid format \"yaml\""))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"documents"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootImportThenExport(t *testing.T) {
	cfg := testConfig(t)
	path := writeFile(t, t.TempDir(), "quiz.json", quizRules)

	out := &bytes.Buffer{}
	logs := &bytes.Buffer{}
	cmd := newRootCommand(cfg, nil)
	cmd.SetOut(out)
	cmd.SetErr(logs)
	cmd.SetArgs([]string{"--doc", "quiz", "-v", "import", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "stored revision 1")
	assert.Contains(t, logs.String(), "document saved", "verbose enables debug logs on stderr")

	out.Reset()
	cmd = newRootCommand(cfg, nil)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--doc", "quiz", "export"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"reveal-feedback"`)
}

func TestCommandHelp(t *testing.T) {
	cmd := newRootCommand(testConfig(t), nil)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	output := buf.String()
	assert.Contains(t, output, "validate")
	assert.Contains(t, output, "simulate")
	assert.Contains(t, output, "--max-cascade")
}
