// Package dispatch implements the router-and-method-dispatch phase of
// the connection state machine (spec §4.7 "Dispatching"): it matches a
// parsed request's path against the location table, enforces the
// allowed-method and CGI-extension rules, and either produces an
// in-memory Response directly or hands back the information needed to
// spawn a CGI child. internal/conn calls Route once per request and
// leaves location matching and handler selection to this package (it
// uses internal/route only for the Table type and internal/handlers
// only for error responses), keeping routing, method policy, and
// handler selection as one phase distinct from the state machine
// around it.
package dispatch

import (
	"strings"
	"time"

	"github.com/nullform/webserv/internal/cgi"
	"github.com/nullform/webserv/internal/config"
	"github.com/nullform/webserv/internal/handlers"
	"github.com/nullform/webserv/internal/route"
	"github.com/nullform/webserv/internal/wire"
)

// Kind discriminates an Outcome.
type Kind int

const (
	// KindResponse means Response is ready to serialize immediately.
	KindResponse Kind = iota
	// KindCGI means the caller must spawn a CGI child using ScriptPath
	// and Env before a Response exists.
	KindCGI
)

// Outcome is the result of routing and dispatching one request.
type Outcome struct {
	Kind     Kind
	Response *wire.Response

	// ForceClose is true for taxonomy ParseError/PolicyError outcomes
	// (spec §7 "the connection is closed after flush"); false for
	// NotFound/Forbidden, which are eligible for keep-alive reuse.
	ForceClose bool

	// Populated only when Kind == KindCGI.
	Location   *config.Location
	ScriptPath string
	Env        []string
}

// Route matches req against tbl and dispatches it to the appropriate
// handler or CGI spawn point (spec §4.2, §4.6).
func Route(cfg *config.Config, tbl *route.Table, req *wire.Request) Outcome {
	loc := tbl.Match(req.RawPath)
	if loc == nil {
		return respond(handlers.ErrorResponse(cfg, 404), false)
	}

	if loc.Redirect != nil {
		resp := wire.NewResponse(loc.Redirect.Code)
		resp.Header.Set("Location", loc.Redirect.URL)
		resp.Body = []byte(`<html><body><a href="` + loc.Redirect.URL + `">moved</a></body></html>`)
		resp.Header.Set("Content-Type", "text/html")
		return respond(resp, false)
	}

	switch req.Method {
	case wire.MethodGet, wire.MethodPost, wire.MethodDelete:
	default:
		return respond(handlers.ErrorResponse(cfg, 501), true)
	}

	method := config.Method(req.Method)
	if !loc.AllowsMethod(method) {
		return respond(handlers.ErrorResponse(cfg, 405), true)
	}

	if loc.CGIExtension != "" && strings.HasPrefix(req.RawPath, loc.Path) {
		afterLocation := strings.TrimPrefix(req.RawPath, loc.Path)
		afterLocation = strings.TrimPrefix(afterLocation, "/")
		if hasCGIExtension(afterLocation, loc.CGIExtension) {
			scriptPath, scriptName, pathInfo, ok := cgi.ResolveScript(loc.CGIRoot, afterLocation)
			if !ok {
				return respond(handlers.ErrorResponse(cfg, 404), false)
			}
			env := cgi.BuildEnv(req, joinPrefix(loc.Path, scriptName), pathInfo)
			return Outcome{Kind: KindCGI, Location: loc, ScriptPath: scriptPath, Env: env}
		}
	}

	switch req.Method {
	case wire.MethodGet:
		return respond(handlers.ServeStatic(cfg, tbl, loc, req.RawPath), false)
	case wire.MethodPost:
		if loc.UploadDir == "" {
			return respond(handlers.ErrorResponse(cfg, 403), false)
		}
		return respond(handlers.ServeUpload(cfg, loc, req.RawPath, req, time.Now()), false)
	case wire.MethodDelete:
		return respond(handlers.ServeDelete(cfg, tbl, loc, req.RawPath), false)
	default:
		return respond(handlers.ErrorResponse(cfg, 501), true)
	}
}

func respond(resp *wire.Response, forceClose bool) Outcome {
	return Outcome{Kind: KindResponse, Response: resp, ForceClose: forceClose}
}

// hasCGIExtension reports whether the first path segment of
// afterLocation (or the whole remainder, for a script at the location
// root) ends with the configured CGI extension, e.g. ".py".
func hasCGIExtension(afterLocation, ext string) bool {
	segment := afterLocation
	if i := strings.IndexByte(segment, '/'); i >= 0 {
		segment = segment[:i]
	}
	return strings.HasSuffix(segment, ext)
}

func joinPrefix(locPath, scriptName string) string {
	if locPath == "/" {
		return scriptName
	}
	return strings.TrimSuffix(locPath, "/") + scriptName
}
