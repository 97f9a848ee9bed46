package handlers

import (
	"os"

	"github.com/nullform/webserv/internal/config"
	"github.com/nullform/webserv/internal/route"
	"github.com/nullform/webserv/internal/wire"
)

// ServeDelete implements the DELETE handler (spec §4.5).
func ServeDelete(cfg *config.Config, tbl *route.Table, loc *config.Location, reqPath string) *wire.Response {
	fsPath := tbl.ResolveFilesystemPath(loc, reqPath)

	info, err := os.Stat(fsPath)
	if err != nil {
		return ErrorResponse(cfg, 404)
	}
	if info.Mode().Perm()&0200 == 0 {
		return ErrorResponse(cfg, 403)
	}

	if err := os.Remove(fsPath); err != nil {
		if os.IsPermission(err) {
			return ErrorResponse(cfg, 403)
		}
		return ErrorResponse(cfg, 500)
	}

	resp := wire.NewResponse(200)
	resp.Header.Set("Content-Type", "text/html")
	resp.Body = []byte("<html><body><p>deleted</p></body></html>")
	return resp
}
