package handlers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestServeDeleteRemovesFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "gone.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, tbl, loc := testCfgAndTable(t, root)

	resp := ServeDelete(cfg, tbl, loc, "/gone.txt")
	if resp.Status != 200 {
		t.Fatalf("Status = %d, want 200", resp.Status)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed, stat err = %v", err)
	}
}

func TestServeDeleteMissingFileReturns404(t *testing.T) {
	root := t.TempDir()
	cfg, tbl, loc := testCfgAndTable(t, root)

	resp := ServeDelete(cfg, tbl, loc, "/missing.txt")
	if resp.Status != 404 {
		t.Fatalf("Status = %d, want 404", resp.Status)
	}
}

func TestServeDeleteReadOnlyFileReturns403(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "locked.txt")
	if err := os.WriteFile(target, []byte("x"), 0444); err != nil {
		t.Fatal(err)
	}
	cfg, tbl, loc := testCfgAndTable(t, root)

	resp := ServeDelete(cfg, tbl, loc, "/locked.txt")
	if resp.Status != 403 {
		t.Fatalf("Status = %d, want 403", resp.Status)
	}
}
