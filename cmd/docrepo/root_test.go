package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-document-repository/config"
	"github.com/gcbaptista/go-document-repository/internal/similarity"
)

// runCmd executes the root command with args and returns stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRootCmd_Structure(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "docrepo", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "extract", "compare", "version"}, names)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "", configFlag.DefValue)

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, ".env", envFlag.DefValue)
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docrepo "+version)
	assert.Contains(t, out, "Commit: "+commit)
}

func TestExtractCmd(t *testing.T) {
	path := writeFile(t, "notes.txt", "Quarterly   REPORT:\n\tRevenue up 12%!")

	out, err := runCmd(t, "extract", path)
	require.NoError(t, err)
	assert.Equal(t, "quarterly report: revenue up 12!\n", out)

	_, err = runCmd(t, "extract", writeFile(t, "photo.jpg", "not text"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format not supported")

	_, err = runCmd(t, "extract")
	assert.Error(t, err)
}

func TestCompareCmd(t *testing.T) {
	a := writeFile(t, "a.txt", "the quick brown fox jumps over the lazy dog")
	b := writeFile(t, "b.txt", "the quick brown fox jumps over the lazy dog")
	c := writeFile(t, "c.txt", "completely unrelated words here")

	t.Run("identical files as json", func(t *testing.T) {
		out, err := runCmd(t, "compare", "--json", a, b)
		require.NoError(t, err)

		var scores similarity.Scores
		require.NoError(t, json.Unmarshal([]byte(out), &scores))
		assert.InDelta(t, 1.0, scores.Cosine, 1e-9)
		assert.InDelta(t, 1.0, scores.Jaccard, 1e-9)
		assert.InDelta(t, 100.0, scores.Percentage, 1e-9)
	})

	t.Run("disjoint files as text", func(t *testing.T) {
		out, err := runCmd(t, "compare", a, c)
		require.NoError(t, err)
		assert.Contains(t, out, "cosine:     0.0000")
		assert.Contains(t, out, "similarity: 0.0%")
	})

	t.Run("config file weights are used", func(t *testing.T) {
		cfgPath := writeFile(t, "docrepo.yaml", strings.Join([]string{
			"versioning:",
			"  cosine_weight: 0",
			"  jaccard_weight: 1",
		}, "\n"))
		partial := writeFile(t, "partial.txt", "the quick brown fox")

		out, err := runCmd(t, "--config", cfgPath, "compare", "--json", a, partial)
		require.NoError(t, err)

		var scores similarity.Scores
		require.NoError(t, json.Unmarshal([]byte(out), &scores))
		assert.InDelta(t, scores.Jaccard, scores.Combined, 1e-9)
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := newLogger(config.LogConfig{Level: "WARN", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)

	buf.Reset()
	logger, err = newLogger(config.LogConfig{Level: "debug", Format: "text"}, &buf)
	require.NoError(t, err)
	logger.Debug("details")
	assert.Contains(t, buf.String(), "msg=details")

	_, err = newLogger(config.LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)

	_, err = newLogger(config.LogConfig{Format: "xml"}, &buf)
	assert.Error(t, err)
}
