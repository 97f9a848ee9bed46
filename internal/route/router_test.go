package route

import (
	"testing"

	"github.com/nullform/webserv/internal/config"
)

func tableWithLocations(paths ...string) *Table {
	cfg := &config.Config{Root: "www"}
	for _, p := range paths {
		cfg.Locations = append(cfg.Locations, config.Location{Path: p, Index: "index.html"})
	}
	return NewTable(cfg)
}

func TestMatchLongestPrefixWins(t *testing.T) {
	tbl := tableWithLocations("/", "/api", "/api/v2")

	loc := tbl.Match("/api/v2/users")
	if loc == nil || loc.Path != "/api/v2" {
		t.Fatalf("Match = %+v, want /api/v2", loc)
	}
}

func TestMatchRequiresSegmentBoundary(t *testing.T) {
	tbl := tableWithLocations("/", "/api")

	loc := tbl.Match("/apiary")
	if loc == nil || loc.Path != "/" {
		t.Fatalf("Match(/apiary) = %+v, want root location", loc)
	}
}

func TestMatchNoLocations(t *testing.T) {
	tbl := tableWithLocations()
	if got := tbl.Match("/anything"); got != nil {
		t.Fatalf("Match = %+v, want nil", got)
	}
}

func TestResolveFilesystemPathDirectoryStaysBare(t *testing.T) {
	tbl := tableWithLocations("/")
	loc := tbl.Match("/")

	got := tbl.ResolveFilesystemPath(loc, "/")
	if got != "www" {
		t.Fatalf("ResolveFilesystemPath = %q, want www (index resolution is the static handler's job)", got)
	}
}

func TestResolveFilesystemPathWithLocationRoot(t *testing.T) {
	cfg := &config.Config{Root: "www"}
	cfg.Locations = []config.Location{{Path: "/static", Root: "assets", Index: "index.html"}}
	tbl := NewTable(cfg)
	loc := tbl.Match("/static/css/app.css")

	got := tbl.ResolveFilesystemPath(loc, "/static/css/app.css")
	if got != "assets/css/app.css" {
		t.Fatalf("ResolveFilesystemPath = %q, want assets/css/app.css", got)
	}
}
