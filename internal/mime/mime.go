// Package mime is the MIME-type lookup table spec.md lists as an
// external collaborator (§1), sketched here as a small static extension
// map — the set original_source/Webserv/utils/utils.cpp's getMimeType
// helper covers, extended with a few more common web types.
package mime

import (
	"path/filepath"
	"strings"
)

const Default = "application/octet-stream"

var byExtension = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".xml":  "application/xml",
}

// TypeFor returns the MIME type for path's extension, or Default when the
// extension is unknown.
func TypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := byExtension[ext]; ok {
		return t
	}
	return Default
}
