// Package zarr detects Zarr format versions from archive or directory
// entry listings.
package zarr

import "strings"

const (
	V2 = "v2"
	V3 = "v3"
)

// DetectVersions reports the Zarr versions indicated by a set of entry
// names. A zarr.json entry at any depth indicates v3; .zarray or .zattrs
// entries indicate v2. The result is sorted ascending and may be empty.
func DetectVersions(entries []string) []string {
	var hasV2, hasV3 bool
	for _, name := range entries {
		if isV3Marker(name) {
			hasV3 = true
		}
		if isV2Marker(name) {
			hasV2 = true
		}
	}
	versions := make([]string, 0, 2)
	if hasV2 {
		versions = append(versions, V2)
	}
	if hasV3 {
		versions = append(versions, V3)
	}
	return versions
}

// DetectOZXVersions reports Zarr versions for an OZX archive. The OZX
// container format only carries Zarr v3, so v2 markers are ignored.
func DetectOZXVersions(entries []string) []string {
	for _, name := range entries {
		if isV3Marker(name) {
			return []string{V3}
		}
	}
	return []string{}
}

func isV3Marker(name string) bool {
	return name == "zarr.json" || strings.HasSuffix(name, "/zarr.json")
}

func isV2Marker(name string) bool {
	base := name
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		base = name[idx+1:]
	}
	return base == ".zarray" || base == ".zattrs"
}
