package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocktrigger/internal/ir"
)

// seedRevisions imports quizRules then loopingRules under opts.Document.
func seedRevisions(t *testing.T, opts *RootOptions) {
	t.Helper()
	dir := t.TempDir()
	text := *opts
	text.Format = "text"
	for _, content := range []string{quizRules, loopingRules} {
		_, err := runImportCmd(t, &text, writeFile(t, dir, "rules.json", content))
		require.NoError(t, err)
	}
}

func runExportCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewExportCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestExportCurrentRevision(t *testing.T) {
	opts := storeOpts(t, "text")
	seedRevisions(t, opts)

	out, err := runExportCmd(t, opts)
	require.NoError(t, err)

	doc, err := ir.DecodeDocument([]byte(out))
	require.NoError(t, err)
	require.Len(t, doc.Rules, 1)
	assert.Equal(t, "count-up", doc.Rules[0].ID)
}

func TestExportBySeq(t *testing.T) {
	opts := storeOpts(t, "text")
	seedRevisions(t, opts)

	out, err := runExportCmd(t, opts, "--seq", "1")
	require.NoError(t, err)

	doc, err := ir.DecodeDocument([]byte(out))
	require.NoError(t, err)
	require.Len(t, doc.Rules, 2)
	assert.Equal(t, "reveal-feedback", doc.Rules[0].ID)
}

func TestExportByHashJSON(t *testing.T) {
	opts := storeOpts(t, "json")
	seedRevisions(t, opts)

	out, err := runExportCmd(t, opts, "--seq", "2")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ExportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(2), resp.Data.Seq)

	out, err = runExportCmd(t, opts, "--hash", resp.Data.Hash)
	require.NoError(t, err)

	var byHash struct {
		Data ExportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &byHash))
	assert.Equal(t, int64(2), byHash.Data.Seq)

	doc, err := ir.DecodeDocument(byHash.Data.Rules)
	require.NoError(t, err)
	assert.Len(t, doc.Rules, 1)
}

func TestExportSeqAndHashExclusive(t *testing.T) {
	opts := storeOpts(t, "text")

	_, err := runExportCmd(t, opts, "--seq", "1", "--hash", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestExportNotFound(t *testing.T) {
	opts := storeOpts(t, "text")

	out, err := runExportCmd(t, opts)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")

	seedRevisions(t, opts)
	_, err = runExportCmd(t, opts, "--seq", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}
