package apps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitHubURL(t *testing.T) {
	tests := []struct {
		url                 string
		owner, repo, branch string
	}{
		{"https://github.com/janelia/zarr-tools", "janelia", "zarr-tools", "main"},
		{"https://github.com/janelia/zarr-tools.git", "janelia", "zarr-tools", "main"},
		{"https://github.com/janelia/zarr-tools/", "janelia", "zarr-tools", "main"},
		{"https://github.com/janelia/zarr-tools/tree/dev", "janelia", "zarr-tools", "dev"},
		{"http://github.com/o/r/tree/v1.2", "o", "r", "v1.2"},
	}
	for _, tt := range tests {
		owner, repo, branch, err := ParseGitHubURL(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.owner, owner, tt.url)
		assert.Equal(t, tt.repo, repo, tt.url)
		assert.Equal(t, tt.branch, branch, tt.url)
	}

	for _, bad := range []string{
		"",
		"github.com/o/r",
		"https://gitlab.com/o/r",
		"https://github.com/only-owner",
		"https://github.com/o/r/blob/main/file.yaml",
		"https://github.com/o/r/tree/a..b",
	} {
		_, _, _, err := ParseGitHubURL(bad)
		assert.Error(t, err, bad)
	}
}

const sampleManifest = `
name: zarr-tools
description: Conversion utilities
version: "1.0"
runnables:
  - id: convert
    name: Convert to Zarr
    command: pixi run convert
    parameters:
      - key: input
        name: Input
        type: file
        required: true
      - key: threads
        name: Threads
        type: integer
        flag: --threads
        default: 4
        min: 1
        max: 64
    env:
      OMP_NUM_THREADS: "4"
    resources:
      cpus: 8
      memory: 16G
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)
	assert.Equal(t, "zarr-tools", m.Name)
	require.Len(t, m.Runnables, 1)

	ep, ok := m.EntryPoint("convert")
	require.True(t, ok)
	assert.Equal(t, "pixi run convert", ep.Command)
	require.Len(t, ep.Parameters, 2)
	assert.True(t, ep.Parameters[0].Required)
	assert.Equal(t, "--threads", ep.Parameters[1].Flag)
	require.NotNil(t, ep.Parameters[1].Min)
	assert.Equal(t, float64(1), *ep.Parameters[1].Min)
	require.NotNil(t, ep.Resources)
	require.NotNil(t, ep.Resources.CPUs)
	assert.Equal(t, 8, *ep.Resources.CPUs)

	_, ok = m.EntryPoint("missing")
	assert.False(t, ok)
}

func TestParseManifestRejectsIncomplete(t *testing.T) {
	_, err := ParseManifest([]byte("runnables: ["))
	assert.Error(t, err)

	_, err = ParseManifest([]byte("description: nameless\nrunnables:\n  - id: x\n    command: y\n"))
	assert.ErrorContains(t, err, "no name")

	_, err = ParseManifest([]byte("name: empty\n"))
	assert.ErrorContains(t, err, "no runnables")

	_, err = ParseManifest([]byte("name: broken\nrunnables:\n  - id: x\n"))
	assert.ErrorContains(t, err, "without id or command")
}

func TestDiscoverManifests(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	write(ManifestName, sampleManifest)
	write(filepath.Join("tools", "stitch", ManifestName), "name: stitch\nrunnables:\n  - id: run\n    command: stitch\n")
	write(filepath.Join(".git", ManifestName), "name: hidden\nrunnables:\n  - id: run\n    command: x\n")
	write(filepath.Join("broken", ManifestName), "name: broken\n")
	write("README.md", "docs")

	found, err := DiscoverManifests(root)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "zarr-tools", found[""].Name)
	assert.Equal(t, "stitch", found["tools/stitch"].Name)
}
