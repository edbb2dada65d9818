package apps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestBuildCommandPositionalThenFlagged(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "input.zarr"), []byte("x"), 0644))

	ep := EntryPoint{
		ID:      "convert",
		Command: "pixi run convert",
		Parameters: []Parameter{
			{Key: "input", Name: "Input", Type: "file", Required: true},
			{Key: "threads", Name: "Threads", Type: "integer", Flag: "--threads", Min: floatPtr(1), Max: floatPtr(64)},
			{Key: "verbose", Name: "Verbose", Type: "boolean", Flag: "--verbose"},
		},
	}

	cmd, err := BuildCommand(ep, map[string]any{
		"input":   filepath.Join(dir, "input.zarr"),
		"threads": float64(8),
		"verbose": true,
	})
	require.NoError(t, err)

	lines := strings.Split(cmd, " \\\n  ")
	require.Len(t, lines, 4)
	assert.Equal(t, "pixi run convert", lines[0])
	assert.Equal(t, filepath.Join(dir, "input.zarr"), lines[1])
	assert.Equal(t, "--threads 8", lines[2])
	assert.Equal(t, "--verbose", lines[3])
}

func TestBuildCommandValidation(t *testing.T) {
	dir := t.TempDir()
	ep := EntryPoint{
		ID:      "run",
		Command: "tool",
		Parameters: []Parameter{
			{Key: "mode", Name: "Mode", Type: "enum", Options: []string{"fast", "slow"}},
			{Key: "count", Name: "Count", Type: "integer", Min: floatPtr(1)},
			{Key: "name", Name: "Name", Type: "string", Pattern: `[a-z]+`},
			{Key: "path", Name: "Path", Type: "directory", Required: true},
		},
	}

	base := map[string]any{"path": dir}

	_, err := BuildCommand(ep, map[string]any{})
	assert.ErrorContains(t, err, "required parameter")

	_, err = BuildCommand(ep, merge(base, "bogus", "x"))
	assert.ErrorContains(t, err, "unknown parameter")

	_, err = BuildCommand(ep, merge(base, "mode", "medium"))
	assert.ErrorContains(t, err, "must be one of")

	_, err = BuildCommand(ep, merge(base, "count", float64(0)))
	assert.ErrorContains(t, err, "must be >=")

	_, err = BuildCommand(ep, merge(base, "count", 2.5))
	assert.ErrorContains(t, err, "must be an integer")

	_, err = BuildCommand(ep, merge(base, "name", "UPPER"))
	assert.ErrorContains(t, err, "does not match")

	_, err = BuildCommand(ep, map[string]any{"path": "relative/path"})
	assert.ErrorContains(t, err, "absolute path")

	_, err = BuildCommand(ep, map[string]any{"path": "/definitely/not/here"})
	assert.ErrorContains(t, err, "does not exist")

	_, err = BuildCommand(ep, map[string]any{"path": dir + "; rm -rf /"})
	assert.ErrorContains(t, err, "invalid characters")

	cmd, err := BuildCommand(ep, base)
	require.NoError(t, err)
	assert.Equal(t, "tool \\\n  "+dir, cmd)
}

func merge(base map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out[key] = value
	return out
}

func TestBuildCommandDefaults(t *testing.T) {
	ep := EntryPoint{
		ID:      "run",
		Command: "tool",
		Parameters: []Parameter{
			{Key: "level", Name: "Level", Type: "integer", Default: float64(3), Flag: "--level"},
		},
	}
	cmd, err := BuildCommand(ep, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "tool \\\n  --level 3", cmd)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "simple", ShellQuote("simple"))
	assert.Equal(t, "/a/b-c.txt", ShellQuote("/a/b-c.txt"))
	assert.Equal(t, "'has space'", ShellQuote("has space"))
	assert.Equal(t, `'it'"'"'s'`, ShellQuote("it's"))
	assert.Equal(t, "''", ShellQuote(""))
	assert.Equal(t, "'a;b'", ShellQuote("a;b"))
}

func TestBuildEnvExports(t *testing.T) {
	out, err := BuildEnvExports(map[string]string{
		"ZARR_DIR": "/data/out dir",
		"THREADS":  "4",
	})
	require.NoError(t, err)
	assert.Equal(t, "export THREADS=4\nexport ZARR_DIR='/data/out dir'", out)

	_, err = BuildEnvExports(map[string]string{"BAD-NAME": "x"})
	assert.ErrorContains(t, err, "invalid environment variable name")

	out, err = BuildEnvExports(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
