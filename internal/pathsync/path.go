// Package pathsync addresses remote projects, folders and assets with
// slash-delimited paths ("Project/Folder/Sub/asset.mov"). It resolves paths
// against the remote, classifies which segments exist, creates the missing
// suffix of a path and prunes containers bottom-up.
//
// Every remote call is issued sequentially. Nothing is rolled back: a failed
// multi-step operation returns what it completed so far.
package pathsync

import (
	"strconv"
	"strings"
)

const separator = "/"

// Path is a remote path split into segments. When ContainsAsset is set the
// last segment names an asset, otherwise every segment names a container.
type Path struct {
	Segments      []string
	ContainsAsset bool
}

// ParsePath splits raw on "/" and drops empty segments, so leading, trailing
// and doubled separators are ignored.
func ParsePath(raw string, containsAsset bool) Path {
	var segments []string
	for _, s := range strings.Split(raw, separator) {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return Path{Segments: segments, ContainsAsset: containsAsset}
}

func (p Path) String() string {
	return strings.Join(p.Segments, separator)
}

// containers returns the project and folder segments.
func (p Path) containers() []string {
	if p.ContainsAsset && len(p.Segments) > 0 {
		return p.Segments[:len(p.Segments)-1]
	}
	return p.Segments
}

// assetName returns the terminal asset segment, if any.
func (p Path) assetName() string {
	if p.ContainsAsset && len(p.Segments) > 0 {
		return p.Segments[len(p.Segments)-1]
	}
	return ""
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
