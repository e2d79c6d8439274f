package transform

import (
	"path/filepath"
	"strings"
)

// Resolver maps program references to absolute file paths. "~" denotes the
// application root; relative references resolve against a base directory or,
// without one, the view root.
type Resolver struct {
	AppRoot  string
	ViewRoot string
}

// Resolve returns the absolute path for ref.
func (r Resolver) Resolve(ref, base string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "~":
		return absPath(r.AppRoot)
	case strings.HasPrefix(ref, "~/"):
		return absPath(filepath.Join(r.AppRoot, filepath.FromSlash(ref[2:])))
	case filepath.IsAbs(ref):
		return filepath.Clean(ref)
	case base != "":
		return absPath(filepath.Join(base, filepath.FromSlash(ref)))
	default:
		return absPath(filepath.Join(r.ViewRoot, filepath.FromSlash(ref)))
	}
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
