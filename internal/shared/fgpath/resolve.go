package fgpath

import (
	"errors"
	"strings"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
)

// ErrNoMatch is returned when no known mount path matches the input.
var ErrNoMatch = errors.New("No matching file share path found for the input value.")

// Match is the result of resolving a free-text path against the share
// registry: the winning share and the relative subpath within it.
type Match struct {
	FSP     model.FileSharePath
	Subpath string
}

// Resolve determines which file share a free-text path refers to.
//
// The input and every platform variant of every share are normalized to
// forward slashes. A variant matches when it occurs anywhere in the
// normalized input as a substring. This is deliberately looser than an
// anchored prefix match; the longest matched variant wins, which keeps
// short mount names from shadowing more specific ones. Ties fall to the
// first share in registry order.
func Resolve(input string, shares []model.FileSharePath) (Match, error) {
	normInput := ToForwardSlash(strings.TrimSpace(input))

	var (
		best    model.FileSharePath
		bestVar string
		bestIdx int
		found   bool
	)
	for _, fsp := range shares {
		for _, variant := range []string{fsp.MountPath, fsp.LinuxPath, fsp.MacPath, fsp.WindowsPath} {
			if variant == "" {
				continue
			}
			norm := RemoveTrailingSlashes(ToForwardSlash(strings.TrimSpace(variant)))
			if norm == "" {
				continue
			}
			idx := strings.Index(normInput, norm)
			if idx < 0 {
				continue
			}
			if !found || len(norm) > len(bestVar) {
				best = fsp
				bestVar = norm
				bestIdx = idx
				found = true
			}
		}
	}
	if !found {
		return Match{}, ErrNoMatch
	}

	subpath := normInput[bestIdx+len(bestVar):]
	subpath = strings.Trim(strings.TrimSpace(subpath), "/")
	return Match{FSP: best, Subpath: subpath}, nil
}
