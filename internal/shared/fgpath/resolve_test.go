package fgpath

import (
	"testing"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShares() []model.FileSharePath {
	return []model.FileSharePath{
		{
			Name:        "data",
			Zone:        "primary",
			MountPath:   "/data",
			LinuxPath:   "/data",
			MacPath:     "/Volumes/data",
			WindowsPath: "\\\\server\\data",
		},
		{
			Name:      "data-sub",
			Zone:      "primary",
			MountPath: "/data/sub",
			LinuxPath: "/data/sub",
		},
		{
			Name:      "scratch",
			Zone:      "secondary",
			MountPath: "/scratch",
		},
	}
}

func TestResolveLongestMatchWins(t *testing.T) {
	m, err := Resolve("/data/sub/x", testShares())
	require.NoError(t, err)
	assert.Equal(t, "data-sub", m.FSP.Name)
	assert.Equal(t, "x", m.Subpath)
}

func TestResolveShorterMount(t *testing.T) {
	m, err := Resolve("/data/other/x", testShares())
	require.NoError(t, err)
	assert.Equal(t, "data", m.FSP.Name)
	assert.Equal(t, "other/x", m.Subpath)
}

func TestResolveWindowsNotation(t *testing.T) {
	m, err := Resolve("\\\\server\\data\\proj\\run1", testShares())
	require.NoError(t, err)
	assert.Equal(t, "data", m.FSP.Name)
	assert.Equal(t, "proj/run1", m.Subpath)
}

func TestResolveMacNotation(t *testing.T) {
	m, err := Resolve("/Volumes/data/proj", testShares())
	require.NoError(t, err)
	assert.Equal(t, "data", m.FSP.Name)
	assert.Equal(t, "proj", m.Subpath)
}

func TestResolveExactMountNoSubpath(t *testing.T) {
	m, err := Resolve("  /scratch/  ", testShares())
	require.NoError(t, err)
	assert.Equal(t, "scratch", m.FSP.Name)
	assert.Equal(t, "", m.Subpath)
}

func TestResolveNoMatch(t *testing.T) {
	_, err := Resolve("/nowhere/at/all", testShares())
	require.Error(t, err)
	assert.Equal(t, "No matching file share path found for the input value.", err.Error())
}

func TestResolveSubstringContainment(t *testing.T) {
	// Containment is not anchored: a mount appearing mid-path still
	// matches. Longest match is the only mitigation.
	m, err := Resolve("/mnt/remote/scratch/x", testShares())
	require.NoError(t, err)
	assert.Equal(t, "scratch", m.FSP.Name)
	assert.Equal(t, "x", m.Subpath)
}
