package wire

import (
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// Response is an in-memory HTTP response awaiting serialization (spec
// §3). Handlers build one of these; the connection state machine
// serializes it into the write buffer.
type Response struct {
	Status int
	Reason string
	Header *Header
	Body   []byte
}

// NewResponse returns a Response with an empty header set and the
// canonical reason phrase for status.
func NewResponse(status int) *Response {
	return &Response{
		Status: status,
		Reason: ReasonPhrase(status),
		Header: NewHeader(),
	}
}

// Serialize writes the status line, headers, and body of r into buf,
// filling in Content-Length and Connection if the caller hasn't already
// set them (spec §4.1 "Response serializer").
//
// Responses are never chunked — the body is always fully buffered and a
// Content-Length is always emitted, per spec §6.
func (r *Response) Serialize(buf *bytebufferpool.ByteBuffer) {
	if !r.Header.Has("Content-Length") {
		r.Header.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}
	if !r.Header.Has("Connection") {
		r.Header.Set("Connection", "close")
	}

	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(r.Status))
	buf.WriteString(" ")
	buf.WriteString(r.Reason)
	buf.WriteString("\r\n")

	r.Header.Each(func(name, value string) {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	})
	buf.WriteString("\r\n")
	buf.Write(r.Body)
}

// ReasonPhrase returns the canonical reason phrase for an HTTP status
// code, falling back to a generic phrase for codes this server doesn't
// otherwise emit.
func ReasonPhrase(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 408:
		return "Request Timeout"
	case 413:
		return "Payload Too Large"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	case 504:
		return "Gateway Timeout"
	case 505:
		return "HTTP Version Not Supported"
	default:
		return "Unknown"
	}
}
