package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocktrigger/internal/ir"
)

const jsonDoc = `{
  "rules": [
    {
      "id": "open-panel",
      "sourceObjectId": "btn1",
      "sourceEvent": {"type": "click"},
      "targetObjectId": "panel1",
      "targetAction": {"type": "go-to-state", "stateId": "open"}
    }
  ]
}`

const yamlDoc = `
rules:
  - id: gated
    name: Gated reveal
    enabled: false
    sourceObjectId: quiz1
    sourceEvent:
      type: quiz-correct
    targetObjectId: panel2
    targetAction:
      type: show
    conditions:
      - type: variable-gte
        variableName: score
        value: 3
    priority: 5
  - id: bump
    sourceObjectId: quiz1
    sourceEvent:
      type: quiz-correct
    targetAction:
      type: increment-variable
      variableName: score
`

const cueDoc = `
rules: [{
	id:             "seek"
	sourceObjectId: "video1"
	sourceEvent: {type: "media-time", time: 12.5}
	targetObjectId: "video1"
	targetAction: {type: "seek-media", time: 0}
}, {
	id:             "track"
	sourceObjectId: "btn1"
	sourceEvent: type: "click"
	targetAction: {
		type:    "custom"
		handler: "track"
		data: {label: "cta", weight: 2}
	}
}]
`

func TestCompileJSON(t *testing.T) {
	c, err := Compile([]byte(jsonDoc), FormatJSON, "rules.json")
	require.NoError(t, err)
	require.Len(t, c.Document.Rules, 1)

	r := c.Document.Rules[0]
	assert.Equal(t, "open-panel", r.ID)
	assert.True(t, r.Enabled, "enabled defaults to true")
	assert.Equal(t, "", r.Name)
	assert.Equal(t, ir.Click(), r.SourceEvent)
	assert.Equal(t, ir.GoToState{StateID: "open"}, r.TargetAction)
	assert.Empty(t, r.Conditions)
	assert.Nil(t, r.Priority)

	require.Len(t, c.Lines, 1)
	assert.Positive(t, c.Lines[0], "JSON carries positions")
	assert.Empty(t, Validate(c))
}

func TestCompileYAML(t *testing.T) {
	c, err := Compile([]byte(yamlDoc), FormatYAML, "rules.yaml")
	require.NoError(t, err)
	require.Len(t, c.Document.Rules, 2)

	gated := c.Document.Rules[0]
	assert.Equal(t, "Gated reveal", gated.Name)
	assert.False(t, gated.Enabled)
	assert.Equal(t, ir.Signal{Kind: ir.EventQuizCorrect}, gated.SourceEvent)
	assert.Equal(t, ir.Show{}, gated.TargetAction)
	require.Len(t, gated.Conditions, 1)
	assert.Equal(t, ir.ConditionVariableGTE, gated.Conditions[0].Type)
	assert.True(t, ir.Equal(ir.Number(3), gated.Conditions[0].Value))
	require.NotNil(t, gated.Priority)
	assert.Equal(t, 5, *gated.Priority)

	bump := c.Document.Rules[1]
	assert.Equal(t, ir.IncrementVariable{VariableName: "score"}, bump.TargetAction)
	assert.Equal(t, "", bump.TargetObjectID)

	assert.Equal(t, []int{0, 0}, c.Lines)
	assert.Empty(t, Validate(c))
}

func TestCompileCUE(t *testing.T) {
	c, err := Compile([]byte(cueDoc), FormatCUE, "rules.cue")
	require.NoError(t, err)
	require.Len(t, c.Document.Rules, 2)

	assert.Equal(t, ir.MediaTime{Time: 12.5}, c.Document.Rules[0].SourceEvent)
	assert.Equal(t, ir.SeekMedia{Time: 0}, c.Document.Rules[0].TargetAction)

	custom, ok := c.Document.Rules[1].TargetAction.(ir.Custom)
	require.True(t, ok)
	assert.Equal(t, "track", custom.Handler)
	assert.True(t, ir.Equal(ir.Object{"label": ir.String("cta"), "weight": ir.Number(2)}, custom.Data))

	require.Len(t, c.Lines, 2)
	assert.Less(t, c.Lines[0], c.Lines[1])
}

func TestCompileSameDocumentAcrossFormats(t *testing.T) {
	const cueSrc = `rules: [{
	id: "open-panel"
	sourceObjectId: "btn1"
	sourceEvent: type: "click"
	targetObjectId: "panel1"
	targetAction: {type: "go-to-state", stateId: "open"}
}]`
	const yamlSrc = `
rules:
  - id: open-panel
    sourceObjectId: btn1
    sourceEvent: {type: click}
    targetObjectId: panel1
    targetAction: {type: go-to-state, stateId: open}
`
	var hashes []string
	for _, tc := range []struct {
		src    string
		format Format
	}{
		{jsonDoc, FormatJSON},
		{yamlSrc, FormatYAML},
		{cueSrc, FormatCUE},
	} {
		c, err := Compile([]byte(tc.src), tc.format, "rules."+string(tc.format))
		require.NoError(t, err, tc.format)
		h, err := ir.DocumentHash(c.Document)
		require.NoError(t, err)
		hashes = append(hashes, h)
	}

	assert.Equal(t, hashes[0], hashes[1])
	assert.Equal(t, hashes[0], hashes[2])
}

func TestCompileRejectsUnknownField(t *testing.T) {
	src := `{"rules": [{
		"id": "r1",
		"sourceObjectID": "btn1",
		"sourceEvent": {"type": "click"},
		"targetObjectId": "panel1",
		"targetAction": {"type": "show"}
	}]}`

	_, err := Compile([]byte(src), FormatJSON, "typo.json")
	require.Error(t, err)

	var cErr *CompileError
	require.ErrorAs(t, err, &cErr)
	assert.Contains(t, cErr.Message, "not allowed")
}

func TestCompileRejectsUnknownEventType(t *testing.T) {
	src := `
rules:
  - id: r1
    sourceObjectId: btn1
    sourceEvent: {type: double-click}
    targetObjectId: panel1
    targetAction: {type: show}
`
	_, err := Compile([]byte(src), FormatYAML, "bad.yaml")
	var cErr *CompileError
	require.ErrorAs(t, err, &cErr)
}

func TestCompileRejectsUnknownActionType(t *testing.T) {
	src := `rules: [{id: "r1", sourceObjectId: "b", sourceEvent: type: "click", targetObjectId: "p", targetAction: type: "explode"}]`
	_, err := Compile([]byte(src), FormatCUE, "bad.cue")
	require.Error(t, err)
}

func TestCompileRejectsNegativeTime(t *testing.T) {
	src := `{"rules": [{"id": "r1", "sourceObjectId": "v", "sourceEvent": {"type": "media-time", "time": -1},
		"targetObjectId": "p", "targetAction": {"type": "show"}}]}`
	_, err := Compile([]byte(src), FormatJSON, "neg.json")
	require.Error(t, err)
}

func TestCompileRejectsWrongOperandType(t *testing.T) {
	src := `{"rules": [{"id": "r1", "sourceObjectId": "v", "sourceEvent": {"type": "timer", "delay": "soon"},
		"targetObjectId": "p", "targetAction": {"type": "show"}}]}`
	_, err := Compile([]byte(src), FormatJSON, "delay.json")
	require.Error(t, err)
}

func TestCompileMissingRules(t *testing.T) {
	_, err := Compile([]byte(`{"triggers": []}`), FormatJSON, "empty.json")

	var cErr *CompileError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "rules", cErr.Field)
}

func TestCompileEmptyRuleList(t *testing.T) {
	c, err := Compile([]byte(`{"rules": []}`), FormatJSON, "none.json")
	require.NoError(t, err)
	assert.NotNil(t, c.Document.Rules)
	assert.Empty(t, c.Document.Rules)
}

func TestCompileEmptyYAML(t *testing.T) {
	_, err := Compile([]byte("   \n"), FormatYAML, "blank.yaml")
	require.Error(t, err)
}

func TestCompileInvalidCUESyntax(t *testing.T) {
	_, err := Compile([]byte(`rules: [{id: "r1"`), FormatCUE, "broken.cue")
	require.Error(t, err)
}

func TestCompileInvalidJSONSyntax(t *testing.T) {
	_, err := Compile([]byte(`{"rules": [`), FormatJSON, "broken.json")
	require.Error(t, err)
}

func TestCompileSemanticErrorsLeftToValidate(t *testing.T) {
	src := `{
  "rules": [
    {"id": "a", "sourceObjectId": "btn1", "sourceEvent": {"type": "click"},
     "targetObjectId": "panel1", "targetAction": {"type": "go-to-state"}},
    {"id": "a", "sourceObjectId": "btn1", "sourceEvent": {"type": "click"},
     "targetObjectId": "panel1", "targetAction": {"type": "show"}}
  ]
}`
	c, err := Compile([]byte(src), FormatJSON, "dupes.json")
	require.NoError(t, err, "schema accepts missing stateId and duplicate ids")

	errs := Validate(c)
	require.Len(t, errs, 2)
	assert.Equal(t, ErrInvalidTargetAction, errs[0].Code)
	assert.Equal(t, ErrDuplicateRuleID, errs[1].Code)
	assert.Equal(t, 3, errs[0].Line)
	assert.Equal(t, 5, errs[1].Line)
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	c, err := CompileFile(path)
	require.NoError(t, err)
	assert.Len(t, c.Document.Rules, 2)
}

func TestCompileFileMissing(t *testing.T) {
	_, err := CompileFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.cue", FormatCUE},
		{"a.json", FormatJSON},
		{"a.yaml", FormatYAML},
		{"dir/A.YML", FormatYAML},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := FormatFromPath("rules.toml")
	assert.Error(t, err)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "rules", Message: "rules is required"}
	assert.Equal(t, "rules: rules is required", err.Error())
}
