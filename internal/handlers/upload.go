package handlers

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nullform/webserv/internal/config"
	"github.com/nullform/webserv/internal/wire"
)

// ServeUpload implements the POST upload handler (spec §4.4). It engages
// only when loc.UploadDir is non-empty.
func ServeUpload(cfg *config.Config, loc *config.Location, reqPath string, req *wire.Request, now time.Time) *wire.Response {
	filename, content := extractUpload(req)
	filename = sanitizeFilename(filename)

	if target := trailingComponent(loc.Path, reqPath); target != "" {
		filename = sanitizeFilename(target)
	} else {
		filename = timestampedFilename(filename, now)
	}

	targetPath := filepath.Join(loc.UploadDir, filename)

	if info, err := os.Stat(targetPath); err == nil {
		if info.Mode().Perm()&0200 == 0 {
			return ErrorResponse(cfg, 403)
		}
	}

	if err := os.MkdirAll(loc.UploadDir, 0755); err != nil {
		return ErrorResponse(cfg, 500)
	}

	// O_EXCL-free write is intentional: re-uploading the same filename
	// overwrites, matching the original handler's semantics. The target
	// must not be a symlink escaping the upload directory (spec §5).
	if resolved, err := filepath.EvalSymlinks(loc.UploadDir); err == nil {
		if !strings.HasPrefix(filepath.Clean(targetPath), resolved) {
			return ErrorResponse(cfg, 403)
		}
		if info, err := os.Lstat(targetPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
			dest, err := filepath.EvalSymlinks(targetPath)
			if err != nil || !strings.HasPrefix(dest, resolved+string(filepath.Separator)) {
				return ErrorResponse(cfg, 403)
			}
		}
	}

	if err := os.WriteFile(targetPath, content, 0644); err != nil {
		if os.IsPermission(err) {
			return ErrorResponse(cfg, 403)
		}
		return ErrorResponse(cfg, 500)
	}

	resp := wire.NewResponse(200)
	resp.Header.Set("Content-Type", "text/html")
	resp.Body = []byte(fmt.Sprintf("<html><body><p>upload of %q succeeded</p></body></html>", filename))
	return resp
}

// extractUpload locates the first file part of a multipart/form-data
// body, or falls back to treating the whole body as the file with
// filename "upload" (spec §4.4).
func extractUpload(req *wire.Request) (filename string, content []byte) {
	ct := req.Header.Get("Content-Type")
	boundary, ok := multipartBoundary(ct)
	if !ok {
		return "upload", req.Body
	}

	marker := []byte("--" + boundary)
	parts := bytes.Split(req.Body, marker)
	for _, part := range parts {
		part = bytes.TrimPrefix(part, []byte("\r\n"))
		headerEnd := bytes.Index(part, []byte("\r\n\r\n"))
		if headerEnd < 0 {
			continue
		}
		header := string(part[:headerEnd])
		if !strings.Contains(header, "filename=") {
			continue
		}
		name := filenameFromDisposition(header)
		body := part[headerEnd+4:]
		body = bytes.TrimSuffix(body, []byte("\r\n"))
		return name, body
	}
	return "upload", req.Body
}

// multipartBoundary extracts the boundary token from a
// "multipart/form-data; boundary=<B>" Content-Type value.
func multipartBoundary(contentType string) (string, bool) {
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return "", false
	}
	idx := strings.Index(contentType, "boundary=")
	if idx < 0 {
		return "", false
	}
	b := contentType[idx+len("boundary="):]
	b = strings.Trim(b, `"`)
	if semi := strings.IndexByte(b, ';'); semi >= 0 {
		b = b[:semi]
	}
	return strings.TrimSpace(b), b != ""
}

func filenameFromDisposition(header string) string {
	idx := strings.Index(header, "filename=")
	if idx < 0 {
		return "upload"
	}
	rest := header[idx+len("filename="):]
	rest = strings.TrimSpace(rest)
	if end := strings.IndexAny(rest, "\r\n;"); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.Trim(rest, `"`)
	if rest == "" {
		return "upload"
	}
	return rest
}

// sanitizeFilename strips path separators, keeping only the final path
// component (spec §4.4).
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

// trailingComponent returns the part of reqPath beyond locPath, without
// its leading "/", or "" if reqPath does not extend past the location
// prefix. A multi-segment remainder is returned whole; ServeUpload
// reduces it to its final segment with sanitizeFilename.
func trailingComponent(locPath, reqPath string) string {
	if locPath != "/" {
		reqPath = strings.TrimPrefix(reqPath, locPath)
	}
	reqPath = strings.TrimPrefix(reqPath, "/")
	if reqPath == "" {
		return ""
	}
	return reqPath
}

func timestampedFilename(base string, now time.Time) string {
	if base == "" || base == "upload" {
		base = "upload"
	}
	return fmt.Sprintf("%s_%s.txt", base, now.Format("20060102_150405"))
}
