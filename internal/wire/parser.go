package wire

import (
	"bytes"
	"strconv"
	"strings"
)

// ParseRequest parses one HTTP/1.1 request from the front of buf.
//
// It returns exactly one of:
//   - (req, consumed, nil): a complete request, and how many bytes of buf
//     it occupied.
//   - (nil, 0, ErrNeedMore): buf does not yet hold a complete request.
//   - (nil, 0, *ParseError): the request is malformed.
//
// This is the discriminated result type spec §9 calls for in place of
// the original's exception-based parser: callers branch on the returned
// error's identity/type, never on a thrown exception.
//
// maxBodySize bounds the declared or chunked body size; exceeding it
// yields a *ParseError with Kind KindTooLarge (maps to 413).
func ParseRequest(buf []byte, maxBodySize int64) (*Request, int, error) {
	headerEnd := bytes.Index(buf, []byte("\r\n\r\n"))
	if headerEnd < 0 {
		if int64(len(buf)) > maxBodySize+HeaderHeadroom {
			return nil, 0, newParseError(KindTooLarge, "request headers exceed allowed size")
		}
		return nil, 0, ErrNeedMore
	}
	headerBlock := buf[:headerEnd+2] // keep the blank line's leading CRLF
	bodyStart := headerEnd + 4

	lineEnd := bytes.Index(headerBlock, []byte("\r\n"))
	if lineEnd < 0 {
		return nil, 0, newParseError(KindBadRequest, "missing request line terminator")
	}
	requestLine := headerBlock[:lineEnd]

	req := &Request{Header: NewHeader()}
	if err := parseRequestLine(req, requestLine); err != nil {
		return nil, 0, err
	}

	if err := parseHeaderLines(req, headerBlock[lineEnd+2:]); err != nil {
		return nil, 0, err
	}

	if req.ContentLength > 0 && req.ContentLength > maxBodySize {
		return nil, 0, newParseError(KindTooLarge, "Content-Length exceeds max body size")
	}

	switch {
	case req.Chunked:
		body, bodyConsumed, err := decodeChunked(buf[bodyStart:], maxBodySize)
		if err != nil {
			return nil, 0, err
		}
		req.Body = body
		return req, bodyStart + bodyConsumed, nil

	case req.ContentLength > 0:
		need := int(req.ContentLength)
		if len(buf)-bodyStart < need {
			return nil, 0, ErrNeedMore
		}
		req.Body = append([]byte(nil), buf[bodyStart:bodyStart+need]...)
		return req, bodyStart + need, nil

	default:
		req.Body = nil
		return req, bodyStart, nil
	}
}

// parseRequestLine parses "METHOD target HTTP/1.1" (spec §4.1 phase 1).
func parseRequestLine(req *Request, line []byte) error {
	parts := strings.Split(string(line), " ")
	if len(parts) != 3 {
		return newParseError(KindBadRequest, "request line must have exactly 3 tokens")
	}
	method, target, version := parts[0], parts[1], parts[2]
	if method == "" || target == "" || version == "" {
		return newParseError(KindBadRequest, "empty token in request line")
	}
	if version != http11 {
		return newParseError(KindVersionUnsupported, "unsupported HTTP version "+version)
	}

	switch method {
	case "GET":
		req.Method = MethodGet
	case "POST":
		req.Method = MethodPost
	case "DELETE":
		req.Method = MethodDelete
	default:
		req.Method = Method(method) // unknown verb, dispatcher rejects with 501
	}

	req.RawPath, req.Query = splitTarget(target)
	req.Version = version
	return nil
}

// parseHeaderLines parses CRLF-terminated header lines (spec §4.1 phase
// 2). block does not include the request line and ends right before the
// blank-line CRLF that was already stripped by the caller's slicing.
func parseHeaderLines(req *Request, block []byte) error {
	var hasContentLength, hasTransferEncoding bool

	for len(block) > 0 {
		idx := bytes.Index(block, []byte("\r\n"))
		var line []byte
		if idx < 0 {
			line = block
			block = nil
		} else {
			line = block[:idx]
			block = block[idx+2:]
		}
		if len(line) == 0 {
			continue
		}

		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			return newParseError(KindBadRequest, "header line missing colon")
		}
		name := strings.TrimSpace(string(line[:colon]))
		value := strings.TrimSpace(string(line[colon+1:]))
		if name == "" {
			return newParseError(KindBadRequest, "empty header name")
		}

		req.Header.Add(name, value)

		switch strings.ToLower(name) {
		case headerContentLength:
			hasContentLength = true
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 0 {
				return newParseError(KindBadRequest, "invalid Content-Length")
			}
			req.ContentLength = n
		case headerTransferEncoding:
			hasTransferEncoding = strings.EqualFold(value, transferEncodingChunked)
			req.Chunked = hasTransferEncoding
		case headerConnection:
			req.Close = strings.EqualFold(value, connectionClose)
		}
	}

	if hasContentLength && hasTransferEncoding {
		return newParseError(KindBadRequest, "both Content-Length and Transfer-Encoding present")
	}
	return nil
}
