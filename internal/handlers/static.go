package handlers

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/nullform/webserv/internal/config"
	"github.com/nullform/webserv/internal/mime"
	"github.com/nullform/webserv/internal/route"
	"github.com/nullform/webserv/internal/wire"
)

// ServeStatic implements the GET static file handler (spec §4.3).
func ServeStatic(cfg *config.Config, tbl *route.Table, loc *config.Location, reqPath string) *wire.Response {
	fsPath := tbl.ResolveFilesystemPath(loc, reqPath)

	info, err := os.Stat(fsPath)
	if err != nil {
		if os.IsPermission(err) {
			return ErrorResponse(cfg, 403)
		}
		return ErrorResponse(cfg, 404)
	}

	if info.IsDir() {
		return serveDirectory(cfg, loc, fsPath, reqPath)
	}

	return serveFile(cfg, fsPath, info.Size())
}

func serveDirectory(cfg *config.Config, loc *config.Location, fsPath, reqPath string) *wire.Response {
	index := "index.html"
	if loc != nil && loc.Index != "" {
		index = loc.Index
	}
	indexPath := filepath.Join(fsPath, index)
	if info, err := os.Stat(indexPath); err == nil && !info.IsDir() {
		return serveFile(cfg, indexPath, info.Size())
	}

	if loc != nil && loc.Autoindex {
		body, err := Autoindex(fsPath, reqPath)
		if err != nil {
			return ErrorResponse(cfg, 403)
		}
		resp := wire.NewResponse(200)
		resp.Header.Set("Content-Type", "text/html")
		resp.Body = body
		return resp
	}

	return ErrorResponse(cfg, 403)
}

func serveFile(cfg *config.Config, fsPath string, size int64) *wire.Response {
	f, err := os.Open(fsPath)
	if err != nil {
		if os.IsPermission(err) {
			return ErrorResponse(cfg, 403)
		}
		return ErrorResponse(cfg, 404)
	}
	defer f.Close()

	body := make([]byte, size)
	if _, err := readFull(f, body); err != nil {
		return ErrorResponse(cfg, 500)
	}

	resp := wire.NewResponse(200)
	resp.Header.Set("Content-Type", mime.TypeFor(fsPath))
	resp.Header.Set("Content-Length", strconv.FormatInt(size, 10))
	resp.Body = body
	return resp
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			if total == len(buf) {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
