package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, newCmd func(*RootOptions) *cobra.Command, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newCmd(opts)
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestDocumentsEmptyStore(t *testing.T) {
	opts := storeOpts(t, "text")

	out, err := runCmd(t, NewDocumentsCommand, opts)
	require.NoError(t, err)
	assert.Contains(t, out, "No documents stored.")
}

func TestDocumentsListAndDelete(t *testing.T) {
	opts := storeOpts(t, "text")
	seedRevisions(t, opts)

	other := *opts
	other.Document = "intro"
	seedRevisions(t, &other)

	out, err := runCmd(t, NewDocumentsCommand, opts)
	require.NoError(t, err)
	assert.Equal(t, "intro\nquiz\n", out)

	out, err = runCmd(t, NewDocumentsCommand, opts, "delete", "intro")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ deleted intro")

	jsonOpts := *opts
	jsonOpts.Format = "json"
	out, err = runCmd(t, NewDocumentsCommand, &jsonOpts)
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   DocumentsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"quiz"}, resp.Data.Documents)
}

func TestDocumentsDeleteMissing(t *testing.T) {
	opts := storeOpts(t, "text")

	_, err := runCmd(t, NewDocumentsCommand, opts, "delete", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestRevisionsList(t *testing.T) {
	opts := storeOpts(t, "json")
	seedRevisions(t, opts)

	out, err := runCmd(t, NewRevisionsCommand, opts)
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   RevisionsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "quiz", resp.Data.Document)
	require.Len(t, resp.Data.Revisions, 2)
	assert.Equal(t, int64(1), resp.Data.Revisions[0].Seq)
	assert.Equal(t, 2, resp.Data.Revisions[0].Rules)
	assert.Equal(t, int64(2), resp.Data.Revisions[1].Seq)
	assert.NotEqual(t, resp.Data.Revisions[0].Hash, resp.Data.Revisions[1].Hash)
	assert.NotEmpty(t, resp.Data.Revisions[0].EngineVersion)
}

func TestRevisionsText(t *testing.T) {
	opts := storeOpts(t, "text")

	out, err := runCmd(t, NewRevisionsCommand, opts)
	require.NoError(t, err)
	assert.Contains(t, out, "No revisions for quiz.")

	seedRevisions(t, opts)
	out, err = runCmd(t, NewRevisionsCommand, opts)
	require.NoError(t, err)
	assert.Contains(t, out, "   1  ")
	assert.Contains(t, out, "2 rules")
	assert.Contains(t, out, "1 rules")
}
