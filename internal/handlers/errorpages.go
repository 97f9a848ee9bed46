package handlers

import (
	"os"

	"github.com/nullform/webserv/internal/config"
	"github.com/nullform/webserv/internal/wire"
)

// builtinPages holds a minimal HTML template per status code this server
// emits (spec §6). Custom error_page directives take priority (spec
// §4.9).
var builtinPages = map[int]string{
	400: "<html><body><h1>400 Bad Request</h1></body></html>",
	403: "<html><body><h1>403 Forbidden</h1></body></html>",
	404: "<html><body><h1>404 Not Found</h1></body></html>",
	405: "<html><body><h1>405 Method Not Allowed</h1></body></html>",
	408: "<html><body><h1>408 Request Timeout</h1></body></html>",
	413: "<html><body><h1>413 Payload Too Large</h1></body></html>",
	500: "<html><body><h1>500 Internal Server Error</h1></body></html>",
	501: "<html><body><h1>501 Not Implemented</h1></body></html>",
	504: "<html><body><h1>504 Gateway Timeout</h1></body></html>",
	505: "<html><body><h1>505 HTTP Version Not Supported</h1></body></html>",
}

// ErrorResponse builds the canonical status-coded Response for code
// (spec §4.9). Every error response is built with Connection: close;
// internal/conn replaces that header with keep-alive for outcomes that
// leave the connection open (e.g. 404, CGI failures).
func ErrorResponse(cfg *config.Config, code int) *wire.Response {
	resp := wire.NewResponse(code)
	resp.Header.Set("Connection", "close")

	if path, ok := cfg.ErrorPage(code); ok {
		if body, err := os.ReadFile(path); err == nil {
			resp.Header.Set("Content-Type", "text/html")
			resp.Body = body
			return resp
		}
	}

	body, ok := builtinPages[code]
	if !ok {
		body = builtinPages[500]
	}
	resp.Header.Set("Content-Type", "text/html")
	resp.Body = []byte(body)
	return resp
}
