package wire

import (
	"bytes"
	"strconv"
)

// decodeChunked decodes a chunked-transfer body from buf, returning the
// decoded body bytes and the number of input bytes consumed (through and
// including the terminating zero-size chunk's trailing CRLF).
//
// If buf does not yet contain a complete chunked body, it returns
// ErrNeedMore — the caller should accumulate more bytes and retry. This
// mirrors the repeated chunk-size/chunk-data/CRLF cycle described in
// spec §4.1, reimplemented as a pure function over a byte slice instead
// of the teacher's blocking io.Reader-based ChunkedReader, since the
// connection state machine here is never allowed to block on a read.
func decodeChunked(buf []byte, maxBodySize int64) ([]byte, int, error) {
	var (
		out    []byte
		offset int
	)

	for {
		lineEnd := bytes.Index(buf[offset:], []byte("\r\n"))
		if lineEnd < 0 {
			return nil, 0, ErrNeedMore
		}
		sizeLine := buf[offset : offset+lineEnd]
		offset += lineEnd + 2

		// Chunk extensions (";ext=value") are permitted and ignored.
		if i := bytes.IndexByte(sizeLine, ';'); i >= 0 {
			sizeLine = sizeLine[:i]
		}
		sizeLine = bytes.TrimSpace(sizeLine)
		if len(sizeLine) == 0 {
			return nil, 0, newParseError(KindBadRequest, "empty chunk size line")
		}

		size, err := strconv.ParseUint(string(sizeLine), 16, 64)
		if err != nil {
			return nil, 0, newParseError(KindBadRequest, "invalid chunk size")
		}

		if size == 0 {
			// Last chunk: a single trailing CRLF terminates the body.
			// Trailer headers are not supported (spec is silent; none of
			// the handled scenarios require them).
			if len(buf) < offset+2 {
				return nil, 0, ErrNeedMore
			}
			if buf[offset] != '\r' || buf[offset+1] != '\n' {
				return nil, 0, newParseError(KindBadRequest, "missing final chunk CRLF")
			}
			offset += 2
			return out, offset, nil
		}

		need := int(size) + 2 // chunk data plus trailing CRLF
		if len(buf)-offset < need {
			return nil, 0, ErrNeedMore
		}

		chunk := buf[offset : offset+int(size)]
		if buf[offset+int(size)] != '\r' || buf[offset+int(size)+1] != '\n' {
			return nil, 0, newParseError(KindBadRequest, "missing chunk trailing CRLF")
		}

		if maxBodySize > 0 && int64(len(out)+len(chunk)) > maxBodySize {
			return nil, 0, newParseError(KindTooLarge, "chunked body exceeds max body size")
		}

		out = append(out, chunk...)
		offset += need
	}
}
