package client

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBackendSet_NormalizesAndSaves(t *testing.T) {
	useConfigPath(t, filepath.Join(t.TempDir(), "config.json"))

	var out bytes.Buffer
	require.NoError(t, runBackendSet(&out, "search.internal:8000/ignored?x=1"))
	assert.Contains(t, out.String(), "http://search.internal:8000")

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://search.internal:8000", config.BackendURL)
}

func TestRunBackendSet_Invalid(t *testing.T) {
	useConfigPath(t, filepath.Join(t.TempDir(), "config.json"))

	var out bytes.Buffer
	assert.Error(t, runBackendSet(&out, "http://"))
}

func TestRunBackendShow_JSON(t *testing.T) {
	useConfigPath(t, filepath.Join(t.TempDir(), "config.json"))
	t.Setenv("VSEARCH_BACKEND_URL", "")

	var out bytes.Buffer
	require.NoError(t, runBackendShow(&out, "http://flag:9000", true))

	var status map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Equal(t, "flag", status["source"])
	assert.Equal(t, "http://flag:9000", status["backend_url"])
}

func TestRunServerSet_KeepsBackend(t *testing.T) {
	useConfigPath(t, filepath.Join(t.TempDir(), "config.json"))

	var out bytes.Buffer
	require.NoError(t, runBackendSet(&out, "http://search:8000"))
	require.NoError(t, runServerSet(&out, "http://vsearchd.internal:8080/"))
	assert.Contains(t, out.String(), "Server set to http://vsearchd.internal:8080")

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://search:8000", config.BackendURL)
	assert.Equal(t, "http://vsearchd.internal:8080", config.ServerURL)
}

func TestRunServerSet_Invalid(t *testing.T) {
	useConfigPath(t, filepath.Join(t.TempDir(), "config.json"))

	var out bytes.Buffer
	assert.Error(t, runServerSet(&out, "vsearchd"))
	assert.Error(t, runServerSet(&out, "ftp://vsearchd"))
}
