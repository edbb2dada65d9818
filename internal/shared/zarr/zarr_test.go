package zarr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectVersions(t *testing.T) {
	assert.Equal(t, []string{"v2", "v3"},
		DetectVersions([]string{"zarr.json", ".zarray", ".zattrs"}))
	assert.Equal(t, []string{"v3"},
		DetectVersions([]string{"zarr.json", "0/c/0/0/0"}))
	assert.Equal(t, []string{"v3"},
		DetectVersions([]string{"scale0/zarr.json"}))
	assert.Equal(t, []string{"v2"},
		DetectVersions([]string{"0/.zarray", "0/.zattrs"}))
	assert.Empty(t, DetectVersions([]string{"readme.txt", "data.bin"}))
	assert.Empty(t, DetectVersions(nil))
	// Names merely containing the markers do not count.
	assert.Empty(t, DetectVersions([]string{"notzarr.json", "x.zarray.bak"}))
}

func TestDetectOZXVersions(t *testing.T) {
	assert.Equal(t, []string{"v3"},
		DetectOZXVersions([]string{"zarr.json", ".zarray", "0/c/0/0/0"}))
	// v2 markers alone never qualify in an OZX container.
	assert.Empty(t, DetectOZXVersions([]string{".zarray", ".zattrs"}))
	assert.Empty(t, DetectOZXVersions(nil))
}
