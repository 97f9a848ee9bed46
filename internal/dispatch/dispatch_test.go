package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nullform/webserv/internal/config"
	"github.com/nullform/webserv/internal/route"
	"github.com/nullform/webserv/internal/wire"
)

func newReq(method wire.Method, rawPath string) *wire.Request {
	return &wire.Request{Method: method, RawPath: rawPath, Header: wire.NewHeader()}
}

func TestRouteNoMatchingLocationReturns404(t *testing.T) {
	cfg := &config.Config{}
	tbl := route.NewTable(cfg)

	out := Route(cfg, tbl, newReq(wire.MethodGet, "/anything"))
	if out.Kind != KindResponse || out.Response.Status != 404 {
		t.Fatalf("got %+v, want 404 response", out)
	}
}

func TestRouteRedirectLocationRespondsBeforeMethodCheck(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{Root: root, Locations: []config.Location{
		{Path: "/old", Redirect: &config.Redirect{Code: 301, URL: "/new"}},
	}}
	tbl := route.NewTable(cfg)

	out := Route(cfg, tbl, newReq(wire.MethodDelete, "/old"))
	if out.Kind != KindResponse || out.Response.Status != 301 {
		t.Fatalf("got %+v, want 301 response", out)
	}
	if out.Response.Header.Get("Location") != "/new" {
		t.Fatalf("Location header = %q", out.Response.Header.Get("Location"))
	}
}

func TestRouteMethodNotAllowedForcesClose(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{Root: root, Locations: []config.Location{
		{Path: "/", Methods: []config.Method{config.MethodGet}},
	}}
	tbl := route.NewTable(cfg)

	out := Route(cfg, tbl, newReq(wire.MethodDelete, "/"))
	if out.Kind != KindResponse || out.Response.Status != 405 {
		t.Fatalf("got %+v, want 405 response", out)
	}
	if !out.ForceClose {
		t.Fatal("expected ForceClose for a 405")
	}
}

func TestRouteUnknownMethodReturns501AndForcesClose(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{Root: root, Locations: []config.Location{
		{Path: "/", Methods: []config.Method{config.MethodGet}},
	}}
	tbl := route.NewTable(cfg)

	out := Route(cfg, tbl, newReq(wire.Method("PUT"), "/"))
	if out.Kind != KindResponse || out.Response.Status != 501 {
		t.Fatalf("got %+v, want 501 response", out)
	}
	if !out.ForceClose {
		t.Fatal("expected ForceClose for a 501")
	}
}

func TestRouteGetServesStaticFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{Root: root, Locations: []config.Location{
		{Path: "/", Root: root, Index: "index.html", Methods: []config.Method{config.MethodGet}},
	}}
	tbl := route.NewTable(cfg)

	out := Route(cfg, tbl, newReq(wire.MethodGet, "/"))
	if out.Kind != KindResponse || out.Response.Status != 200 {
		t.Fatalf("got %+v, want 200 response", out)
	}
	if string(out.Response.Body) != "hi" {
		t.Fatalf("Body = %q", out.Response.Body)
	}
}

func TestRoutePostWithoutUploadDirReturns403(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{Root: root, Locations: []config.Location{
		{Path: "/", Root: root, Methods: []config.Method{config.MethodPost}},
	}}
	tbl := route.NewTable(cfg)

	out := Route(cfg, tbl, newReq(wire.MethodPost, "/"))
	if out.Kind != KindResponse || out.Response.Status != 403 {
		t.Fatalf("got %+v, want 403 response", out)
	}
}

func TestRoutePostWithUploadDirSavesBody(t *testing.T) {
	root := t.TempDir()
	uploadDir := t.TempDir()
	cfg := &config.Config{Root: root, Locations: []config.Location{
		{Path: "/upload", UploadDir: uploadDir, Methods: []config.Method{config.MethodPost}},
	}}
	tbl := route.NewTable(cfg)

	req := newReq(wire.MethodPost, "/upload/report.txt")
	req.Body = []byte("data")
	out := Route(cfg, tbl, req)
	if out.Kind != KindResponse || out.Response.Status != 200 {
		t.Fatalf("got %+v, want 200 response", out)
	}
	if _, err := os.Stat(filepath.Join(uploadDir, "report.txt")); err != nil {
		t.Fatalf("expected report.txt to exist: %v", err)
	}
}

func TestRouteDeleteRemovesFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "gone.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{Root: root, Locations: []config.Location{
		{Path: "/", Root: root, Methods: []config.Method{config.MethodDelete}},
	}}
	tbl := route.NewTable(cfg)

	out := Route(cfg, tbl, newReq(wire.MethodDelete, "/gone.txt"))
	if out.Kind != KindResponse || out.Response.Status != 200 {
		t.Fatalf("got %+v, want 200 response", out)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err = %v", err)
	}
}

func TestRouteCGIExtensionDispatchesToCGI(t *testing.T) {
	root := t.TempDir()
	cgiRoot := t.TempDir()
	scriptPath := filepath.Join(cgiRoot, "hello.cgi")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\necho hi\n"), 0755); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{Root: root, Locations: []config.Location{
		{Path: "/cgi-bin", CGIExtension: ".cgi", CGIRoot: cgiRoot, Methods: []config.Method{config.MethodGet}},
	}}
	tbl := route.NewTable(cfg)

	out := Route(cfg, tbl, newReq(wire.MethodGet, "/cgi-bin/hello.cgi"))
	if out.Kind != KindCGI {
		t.Fatalf("Kind = %v, want KindCGI", out.Kind)
	}
	if out.ScriptPath != scriptPath {
		t.Fatalf("ScriptPath = %q, want %q", out.ScriptPath, scriptPath)
	}
	if out.Location == nil || out.Location.CGIRoot != cgiRoot {
		t.Fatalf("Location = %+v", out.Location)
	}
	foundScriptName := false
	for _, e := range out.Env {
		if e == "SCRIPT_NAME=/cgi-bin/hello.cgi" {
			foundScriptName = true
		}
	}
	if !foundScriptName {
		t.Fatalf("Env missing SCRIPT_NAME, got %v", out.Env)
	}
}

func TestRouteCGIExtensionMissingScriptReturns404(t *testing.T) {
	root := t.TempDir()
	cgiRoot := t.TempDir()
	cfg := &config.Config{Root: root, Locations: []config.Location{
		{Path: "/cgi-bin", CGIExtension: ".cgi", CGIRoot: cgiRoot, Methods: []config.Method{config.MethodGet}},
	}}
	tbl := route.NewTable(cfg)

	out := Route(cfg, tbl, newReq(wire.MethodGet, "/cgi-bin/missing.cgi"))
	if out.Kind != KindResponse || out.Response.Status != 404 {
		t.Fatalf("got %+v, want 404 response", out)
	}
}
