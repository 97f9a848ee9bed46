package handlers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nullform/webserv/internal/config"
)

func TestErrorResponseUsesBuiltinPage(t *testing.T) {
	cfg := &config.Config{}

	resp := ErrorResponse(cfg, 404)
	if resp.Status != 404 {
		t.Fatalf("Status = %d, want 404", resp.Status)
	}
	if resp.Header.Get("Connection") != "close" {
		t.Fatalf("Connection = %q, want close", resp.Header.Get("Connection"))
	}
	if resp.Header.Get("Content-Type") != "text/html" {
		t.Fatalf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(resp.Body), "404 Not Found") {
		t.Fatalf("Body = %q, want builtin 404 page", resp.Body)
	}
}

func TestErrorResponsePrefersCustomPage(t *testing.T) {
	root := t.TempDir()
	pagePath := filepath.Join(root, "custom-404.html")
	if err := os.WriteFile(pagePath, []byte("<p>nope</p>"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{ErrorPages: map[int]string{404: pagePath}}

	resp := ErrorResponse(cfg, 404)
	if string(resp.Body) != "<p>nope</p>" {
		t.Fatalf("Body = %q, want custom page content", resp.Body)
	}
}

func TestErrorResponseFallsBackWhenCustomPageMissing(t *testing.T) {
	cfg := &config.Config{ErrorPages: map[int]string{404: "/does/not/exist.html"}}

	resp := ErrorResponse(cfg, 404)
	if !strings.Contains(string(resp.Body), "404 Not Found") {
		t.Fatalf("Body = %q, want builtin fallback when custom page is unreadable", resp.Body)
	}
}

func TestErrorResponseUnknownCodeFallsBackTo500(t *testing.T) {
	cfg := &config.Config{}

	resp := ErrorResponse(cfg, 418)
	if !strings.Contains(string(resp.Body), "500 Internal Server Error") {
		t.Fatalf("Body = %q, want 500 builtin page for an unmapped code", resp.Body)
	}
}
