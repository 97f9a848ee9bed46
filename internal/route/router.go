// Package route implements the longest-prefix location matcher (spec
// §4.2). It is deliberately simple: configuration load rejects duplicate
// location paths, so ties never occur, and a linear scan over the
// (typically small) location list is cheaper than building and
// maintaining a trie for this workload — the approach is grounded in the
// same "longest prefix wins" idea as the teacher's radix-tree Router
// (bolt/core/router.go), stripped down to what a location table actually
// needs: no params, no wildcards, just prefixes.
package route

import (
	"path"
	"strings"

	"github.com/nullform/webserv/internal/config"
)

// Table resolves request paths against a Config's locations.
type Table struct {
	cfg *config.Config
}

// NewTable builds a routing table over cfg's locations.
func NewTable(cfg *config.Config) *Table {
	return &Table{cfg: cfg}
}

// Match returns the Location whose Path is the longest prefix of
// reqPath, or nil if none match.
func (t *Table) Match(reqPath string) *config.Location {
	var best *config.Location
	for i := range t.cfg.Locations {
		loc := &t.cfg.Locations[i]
		if isPrefix(loc.Path, reqPath) {
			if best == nil || len(loc.Path) > len(best.Path) {
				best = loc
			}
		}
	}
	return best
}

// isPrefix reports whether prefix matches reqPath as a path-segment
// prefix: "/api" matches "/api" and "/api/x" but not "/apiary".
func isPrefix(prefix, reqPath string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(reqPath, prefix) {
		return false
	}
	rest := reqPath[len(prefix):]
	return rest == "" || rest[0] == '/'
}

// Root returns the effective document root for loc, falling back to the
// server's global root.
func (t *Table) Root(loc *config.Location) string {
	if loc != nil && loc.Root != "" {
		return loc.Root
	}
	return t.cfg.Root
}

// ResolveFilesystemPath derives the filesystem path for reqPath under
// loc, replacing the matched prefix with the effective root (spec
// §4.2). It never appends an index filename — a directory-style
// reqPath resolves to the directory itself, and the caller (spec
// §4.3's static handler) is responsible for the index-file-or-autoindex
// decision once it knows the path names a directory.
func (t *Table) ResolveFilesystemPath(loc *config.Location, reqPath string) string {
	root := t.Root(loc)
	rel := reqPath
	if loc != nil && loc.Path != "/" {
		rel = strings.TrimPrefix(reqPath, loc.Path)
	}
	if rel == "" {
		rel = "/"
	}

	return path.Join(root, rel)
}
