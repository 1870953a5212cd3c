package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, Config{
		DB:         "blocktrigger.db",
		Format:     "text",
		Document:   "default",
		MaxCascade: 10000,
	}, cfg)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BLOCKTRIGGER_DB", "/tmp/rules.db")
	t.Setenv("BLOCKTRIGGER_FORMAT", "json")
	t.Setenv("BLOCKTRIGGER_VERBOSE", "true")
	t.Setenv("BLOCKTRIGGER_DOCUMENT", "course-101")
	t.Setenv("BLOCKTRIGGER_MAX_CASCADE", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/rules.db", cfg.DB)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "course-101", cfg.Document)
	assert.Equal(t, 50, cfg.MaxCascade)
}

func TestLoadParseError(t *testing.T) {
	_, err := LoadFrom(map[string]string{"BLOCKTRIGGER_MAX_CASCADE": "lots"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadInvalidFormat(t *testing.T) {
	_, err := LoadFrom(map[string]string{"BLOCKTRIGGER_FORMAT": "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestValidateNegativeCascade(t *testing.T) {
	err := Config{Format: "text", MaxCascade: -1}.Validate()
	assert.Error(t, err)
}
