package handlers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAutoindexListsSortedEntries(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"banana.txt", "apple.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	body, err := Autoindex(dir, "/files/")
	if err != nil {
		t.Fatalf("Autoindex: %v", err)
	}
	out := string(body)

	appleIdx := strings.Index(out, "apple.txt")
	bananaIdx := strings.Index(out, "banana.txt")
	subIdx := strings.Index(out, "sub/")
	if appleIdx < 0 || bananaIdx < 0 || subIdx < 0 {
		t.Fatalf("listing missing an entry: %q", out)
	}
	if !(appleIdx < bananaIdx && bananaIdx < subIdx) {
		t.Fatalf("entries not sorted: %q", out)
	}
	if !strings.Contains(out, `href="sub/"`) {
		t.Fatalf("directory entry missing trailing slash in href: %q", out)
	}
}

func TestAutoindexOmitsParentLinkAtRoot(t *testing.T) {
	dir := t.TempDir()

	body, err := Autoindex(dir, "/")
	if err != nil {
		t.Fatalf("Autoindex: %v", err)
	}
	if strings.Contains(string(body), `href="../"`) {
		t.Fatalf("root listing should not link to a parent: %q", body)
	}
}

func TestAutoindexIncludesParentLinkBelowRoot(t *testing.T) {
	dir := t.TempDir()

	body, err := Autoindex(dir, "/sub/")
	if err != nil {
		t.Fatalf("Autoindex: %v", err)
	}
	if !strings.Contains(string(body), `href="../"`) {
		t.Fatalf("non-root listing should link to its parent: %q", body)
	}
}

func TestAutoindexMissingDirectoryErrors(t *testing.T) {
	if _, err := Autoindex(filepath.Join(t.TempDir(), "missing"), "/missing/"); err == nil {
		t.Fatal("expected an error for a non-existent directory")
	}
}
