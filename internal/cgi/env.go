package cgi

import (
	"strconv"

	"github.com/nullform/webserv/internal/wire"
)

// ServerSoftware identifies this implementation in SERVER_SOFTWARE and
// error pages.
const ServerSoftware = "webserv/1.0"

// BuildEnv constructs the CGI/1.1 environment (spec §4.6) for req
// dispatched to a script matched at scriptName with the given
// pathInfo.
func BuildEnv(req *wire.Request, scriptName, pathInfo string) []string {
	env := []string{
		"REQUEST_METHOD=" + string(req.Method),
		"SCRIPT_NAME=" + scriptName,
		"QUERY_STRING=" + req.Query,
		"PATH_INFO=" + pathInfo,
		"GATEWAY_INTERFACE=CGI/1.1",
		"SERVER_PROTOCOL=HTTP/1.1",
		"SERVER_SOFTWARE=" + ServerSoftware,
		"REDIRECT_STATUS=200",
	}

	if req.Method == wire.MethodPost {
		env = append(env,
			"CONTENT_LENGTH="+strconv.FormatInt(req.ContentLength, 10),
			"CONTENT_TYPE="+req.Header.Get("Content-Type"),
		)
	}

	return env
}
