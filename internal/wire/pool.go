package wire

import "github.com/valyala/bytebufferpool"

// bufferPool backs every Connection's read and write buffer. Pooling
// avoids a fresh allocation per connection the way the teacher's
// http11/pool.go pools bufio.Reader/bufio.Writer/Request — here the
// pooled unit is the flat byte buffer itself, acquired on accept and
// released on connection teardown (spec §9: one aggregate owned by the
// event loop, not per-request state).
var bufferPool bytebufferpool.Pool

// GetBuffer returns a pooled, empty byte buffer.
func GetBuffer() *bytebufferpool.ByteBuffer {
	return bufferPool.Get()
}

// PutBuffer returns buf to the pool for reuse.
func PutBuffer(buf *bytebufferpool.ByteBuffer) {
	bufferPool.Put(buf)
}
