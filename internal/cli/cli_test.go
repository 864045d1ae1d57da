package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/quotevec/quote"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := map[string]any{
		"embedder": map[string]any{"dimension": 128},
		"store":    map[string]any{"backend": "sqlite", "dsn": filepath.Join(dir, "quotes.sqlite")},
		"log":      map[string]any{"level": "error"},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "quotevec.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_QuoteLifecycle(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "add", "Premature optimization is the root of all evil")
	require.NoError(t, err)
	assert.Equal(t, "added #1\n", out)

	_, err = run(t, cfg, "add", "--label", "proverb", "A", "stitch", "in", "time", "saves", "nine")
	require.NoError(t, err)

	out, err = run(t, cfg, "count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = run(t, cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "A stitch in time saves nine")
	assert.Contains(t, out, "proverb")

	out, err = run(t, cfg, "query", "--top", "1", "optimization is evil")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Premature optimization")

	out, err = run(t, cfg, "query", "--metric", "euclidean", "--threshold", "0", "completely different")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)

	_, err = run(t, cfg, "query", "--metric", "manhattan", "x")
	assert.Error(t, err)

	out, err = run(t, cfg, "remove", "--index", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "removed #1")

	_, err = run(t, cfg, "remove")
	assert.Error(t, err)

	out, err = run(t, cfg, "random")
	require.NoError(t, err)
	assert.Equal(t, "A stitch in time saves nine\n", out)

	out, err = run(t, cfg, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "reindexed 1 quotes")

	out, err = run(t, cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "embedder")
	assert.Contains(t, out, "quotes:  1")

	_, err = run(t, cfg, "reset")
	assert.Error(t, err)
	_, err = run(t, cfg, "reset", "--yes")
	require.NoError(t, err)

	out, err = run(t, cfg, "add", "fresh start")
	require.NoError(t, err)
	assert.Equal(t, "added #3\n", out)
}

func TestCLI_ExportImport(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, cfg, "add", "one")
	require.NoError(t, err)
	_, err = run(t, cfg, "add", "two")
	require.NoError(t, err)

	exportPath := filepath.Join(t.TempDir(), "quotes.json")
	_, err = run(t, cfg, "export", "--out", exportPath)
	require.NoError(t, err)
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var records []quote.ExportRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)

	other := writeConfig(t)
	out, err := run(t, other, "import", exportPath)
	require.NoError(t, err)
	assert.Equal(t, "imported 2 quotes\n", out)

	legacy := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`["three", "four"]`), 0o600))
	_, err = run(t, other, "import", legacy)
	require.NoError(t, err)
	out, err = run(t, other, "count")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)
}

func TestCLI_ServeRequiresTransport(t *testing.T) {
	_, err := run(t, writeConfig(t), "serve")
	assert.ErrorContains(t, err, "nothing to serve")
}
