package cgi

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/nullform/webserv/internal/wire"
)

// ParseOutput parses a CGI script's stdout (spec §4.6 "Output
// protocol"): CGI headers terminated by a blank line (CRLF or bare LF),
// then body bytes. Content-Type must be present or ok is false (caller
// responds 500). A Status pseudo-header supplies the response status
// line; its absence means 200.
func ParseOutput(output []byte) (resp *wire.Response, ok bool) {
	headerEnd, sep := findHeaderEnd(output)
	if headerEnd < 0 {
		return nil, false
	}

	resp = wire.NewResponse(200)
	hasContentType := false

	for _, line := range splitLines(output[:headerEnd]) {
		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		name := strings.TrimSpace(string(line[:colon]))
		value := strings.TrimSpace(string(line[colon+1:]))
		if strings.EqualFold(name, "Status") {
			applyStatus(resp, value)
			continue
		}
		if strings.EqualFold(name, "Content-Type") {
			hasContentType = true
		}
		resp.Header.Set(name, value)
	}

	if !hasContentType {
		return nil, false
	}

	resp.Body = output[headerEnd+sep:]
	return resp, true
}

// findHeaderEnd locates the first blank line terminating the CGI header
// block, accepting either "\r\n\r\n" or a bare "\n\n" (spec §4.6 allows
// either line ending). It returns the offset of the blank line and its
// length.
func findHeaderEnd(output []byte) (offset, sepLen int) {
	crlf := bytes.Index(output, []byte("\r\n\r\n"))
	lf := bytes.Index(output, []byte("\n\n"))
	if crlf >= 0 && (lf < 0 || crlf < lf) {
		return crlf, 4
	}
	if lf >= 0 {
		return lf, 2
	}
	return -1, 0
}

func splitLines(block []byte) [][]byte {
	block = bytes.ReplaceAll(block, []byte("\r\n"), []byte("\n"))
	return bytes.Split(block, []byte("\n"))
}

func applyStatus(resp *wire.Response, value string) {
	fields := strings.SplitN(value, " ", 2)
	if code, err := strconv.Atoi(fields[0]); err == nil {
		resp.Status = code
		resp.Reason = wire.ReasonPhrase(code)
		if len(fields) == 2 {
			resp.Reason = fields[1]
		}
	}
}
