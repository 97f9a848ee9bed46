package wire

// Size limits for request parsing (spec §3 invariant: "read buffer
// never exceeds max_body_size + header_headroom"). ParseRequest checks
// only HeaderHeadroom; MaxRequestLineSize and MaxHeaderBlockSize are
// declared here but no code path compares a request against them.
const (
	// MaxRequestLineSize is the size limit for the first line of a
	// request.
	MaxRequestLineSize = 8 * 1024

	// MaxHeaderBlockSize is the size limit for the header section (all
	// header lines combined, excluding the body).
	MaxHeaderBlockSize = 64 * 1024

	// HeaderHeadroom is added on top of the configured max body size
	// when deciding how much unparsed data a connection may buffer.
	HeaderHeadroom = 8 * 1024
)

const http11 = "HTTP/1.1"

const (
	headerContentLength     = "content-length"
	headerTransferEncoding  = "transfer-encoding"
	headerConnection        = "connection"
	headerContentType       = "content-type"
	headerContentDisp       = "content-disposition"
	transferEncodingChunked = "chunked"
	connectionClose         = "close"
	connectionKeepAlive     = "keep-alive"
)
