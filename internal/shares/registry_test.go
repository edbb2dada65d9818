package shares

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaneliaSciComp/fileglancer-server/internal/config"
	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
)

func TestFromConfigDefaults(t *testing.T) {
	fc := &config.FileConfig{
		Shares: []config.ShareMount{
			{Name: "primary", Zone: "Lab", MountPath: "/groups/lab/primary", LinuxPath: "/nfs/lab/primary"},
			{MountPath: "/data/scratch space"},
			{Name: "no-mount"},
		},
	}

	reg := FromConfig(fc, false)
	all := reg.All()
	require.Len(t, all, 2, "shares without a mount path are dropped")

	named, ok := reg.Get("primary")
	require.True(t, ok)
	assert.Equal(t, "Lab", named.Zone)
	assert.Equal(t, "/nfs/lab/primary", named.LinuxPath)

	slugged, ok := reg.Get("data_scratch_space")
	require.True(t, ok, "unnamed shares get a slug of the mount path")
	assert.Equal(t, "Local", slugged.Zone)
	assert.Equal(t, "/data/scratch space", slugged.LinuxPath, "linux path falls back to the mount path")
}

func TestFromConfigHomeShare(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	reg := FromConfig(&config.FileConfig{}, true)
	all := reg.All()
	require.Len(t, all, 1)
	assert.Equal(t, "Home", all[0].Zone)
	assert.Equal(t, home, all[0].MountPath)
}

func TestAllSortedByZoneThenName(t *testing.T) {
	reg := NewRegistry([]model.FileSharePath{
		{Name: "zeta", Zone: "Lab", MountPath: "/a"},
		{Name: "alpha", Zone: "Lab", MountPath: "/b"},
		{Name: "beta", Zone: "Archive", MountPath: "/c"},
	})

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "beta", all[0].Name)
	assert.Equal(t, "alpha", all[1].Name)
	assert.Equal(t, "zeta", all[2].Name)
}

func TestBucketsFiltering(t *testing.T) {
	fc := &config.FileConfig{
		Shares: []config.ShareMount{
			{Name: "imaging", MountPath: "/data/imaging"},
			{Name: "archive", MountPath: "/data/archive"},
		},
		ExternalBuckets: []config.BucketEntry{
			{FSPName: "imaging", FullPath: "/data/imaging/em", ExternalURL: "https://s3.example.org/em"},
			{FSPName: "imaging", FullPath: "/data/imaging/lm", ExternalURL: "https://s3.example.org/lm"},
			{FSPName: "archive", FullPath: "/data/archive", ExternalURL: "https://s3.example.org/archive"},
		},
	}
	reg := FromConfig(fc, false)

	imaging := reg.Buckets("imaging")
	require.Len(t, imaging, 2)
	assert.Equal(t, "https://s3.example.org/em", imaging[0].ExternalURL)

	all := reg.Buckets("")
	require.Len(t, all, 3)
	assert.Equal(t, "archive", all[0].FSPName, "all-bucket listing is ordered by share name")

	assert.Empty(t, reg.Buckets("missing"))
}
