package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildZonesAndPaths(t *testing.T) {
	shares := []FileSharePath{
		{Name: "archive", Zone: "Cold", MountPath: "/vol/archive"},
		{Name: "imaging", Zone: "Lab", MountPath: "/groups/lab/imaging"},
		{Name: "scratch", Zone: "Lab", MountPath: "/groups/lab/scratch"},
	}

	m := BuildZonesAndPaths(shares)
	require.Len(t, m, 5)

	lab, ok := m["zone_Lab"].(Zone)
	require.True(t, ok)
	assert.Equal(t, "Lab", lab.Name)
	require.Len(t, lab.FileSharePaths, 2)
	assert.Equal(t, "imaging", lab.FileSharePaths[0].Name)

	cold, ok := m["zone_Cold"].(Zone)
	require.True(t, ok)
	require.Len(t, cold.FileSharePaths, 1)

	fsp, ok := m["fsp_scratch"].(FileSharePath)
	require.True(t, ok)
	assert.Equal(t, "/groups/lab/scratch", fsp.MountPath)
}

func TestBuildZonesAndPathsEmpty(t *testing.T) {
	assert.Empty(t, BuildZonesAndPaths(nil))
}
