package handlers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nullform/webserv/internal/config"
	"github.com/nullform/webserv/internal/wire"
)

func TestServeUploadRawBodyFallback(t *testing.T) {
	uploadDir := t.TempDir()
	loc := &config.Location{Path: "/upload", UploadDir: uploadDir}
	cfg := &config.Config{}

	req := &wire.Request{Method: wire.MethodPost, Body: []byte("raw content"), Header: wire.NewHeader()}
	resp := ServeUpload(cfg, loc, "/upload", req, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if resp.Status != 200 {
		t.Fatalf("Status = %d, want 200", resp.Status)
	}

	entries, err := os.ReadDir(uploadDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one uploaded file, got %v (err=%v)", entries, err)
	}
}

func TestServeUploadNamedByTrailingPathComponent(t *testing.T) {
	uploadDir := t.TempDir()
	loc := &config.Location{Path: "/upload", UploadDir: uploadDir}
	cfg := &config.Config{}

	req := &wire.Request{Method: wire.MethodPost, Body: []byte("data"), Header: wire.NewHeader()}
	resp := ServeUpload(cfg, loc, "/upload/report.txt", req, time.Now())
	if resp.Status != 200 {
		t.Fatalf("Status = %d, want 200", resp.Status)
	}

	if _, err := os.Stat(filepath.Join(uploadDir, "report.txt")); err != nil {
		t.Fatalf("expected report.txt to exist: %v", err)
	}
}

func TestServeUploadMultipartExtractsFilePart(t *testing.T) {
	uploadDir := t.TempDir()
	loc := &config.Location{Path: "/upload", UploadDir: uploadDir}
	cfg := &config.Config{}

	boundary := "BOUNDARY123"
	body := "--" + boundary + "\r\n" +
		`Content-Disposition: form-data; name="file"; filename="note.txt"` + "\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"hello from multipart\r\n" +
		"--" + boundary + "--\r\n"

	header := wire.NewHeader()
	header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	req := &wire.Request{Method: wire.MethodPost, Body: []byte(body), Header: header}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	resp := ServeUpload(cfg, loc, "/upload", req, now)
	if resp.Status != 200 {
		t.Fatalf("Status = %d, want 200", resp.Status)
	}

	// Posted to the bare location (no trailing path component), so the
	// multipart-derived name is still timestamped rather than kept
	// verbatim (spec §4.4's target path derivation applies regardless of
	// where the filename came from).
	wantName := "note.txt_" + now.Format("20060102_150405") + ".txt"
	data, err := os.ReadFile(filepath.Join(uploadDir, wantName))
	if err != nil {
		t.Fatalf("expected %s to exist: %v", wantName, err)
	}
	if string(data) != "hello from multipart" {
		t.Fatalf("uploaded content = %q", data)
	}
}
