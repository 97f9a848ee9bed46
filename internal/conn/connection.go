// Package conn implements the per-connection state machine (spec §4.7):
// the aggregate of read buffer, write buffer, and optional CGI
// attachment that the event loop drives forward on every readiness
// event. It replaces shockwave's http11.Connection — which owns a
// bufio.Reader/Writer over a blocking net.Conn and advances itself
// inside a goroutine's Serve loop — with a non-blocking state machine
// that never calls a blocking read or write: the event loop (internal
// /eventloop) is the only thing that touches the raw socket, handing
// this type whatever bytes readiness produced and asking it what it
// wants to do next (spec §9 redesign flag).
package conn

import (
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/bytebufferpool"

	"github.com/nullform/webserv/internal/cgi"
	"github.com/nullform/webserv/internal/config"
	"github.com/nullform/webserv/internal/dispatch"
	"github.com/nullform/webserv/internal/handlers"
	"github.com/nullform/webserv/internal/logging"
	"github.com/nullform/webserv/internal/route"
	"github.com/nullform/webserv/internal/wire"
)

// State is one of the five states spec §4.7 names for a connection.
type State int

const (
	// StateReadingRequest is waiting for readable bytes to complete a
	// request.
	StateReadingRequest State = iota
	// StateDispatching is running a synchronous handler (static,
	// upload, delete) — entered and left within a single OnReadable or
	// Advance call, never observed by the event loop.
	StateDispatching
	// StateAwaitingCGI has a live CGI attachment and is waiting on its
	// pipe descriptors or wall-clock timeout.
	StateAwaitingCGI
	// StateWritingResponse is draining WriteBuf to the socket.
	StateWritingResponse
	// StateClosed is terminal; the event loop tears the connection
	// down on the next pass.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReadingRequest:
		return "reading_request"
	case StateDispatching:
		return "dispatching"
	case StateAwaitingCGI:
		return "awaiting_cgi"
	case StateWritingResponse:
		return "writing_response"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// IdleTimeout is how long a connection may sit in StateReadingRequest
// with no bytes arriving before it is closed with a 408 (spec §4.7).
const IdleTimeout = 30 * time.Second

// Connection is the aggregate state spec §3 calls "Connection": one per
// accepted socket, owned exclusively by the event loop via its
// descriptor index (no parallel client_buffers map, per spec §9).
type Connection struct {
	Fd         int
	RemoteAddr string

	cfg *config.Config
	tbl *route.Table
	log *logrus.Logger

	State State

	readBuf  *bytebufferpool.ByteBuffer
	writeBuf *bytebufferpool.ByteBuffer
	writeOff int

	LastActivity time.Time
	keepAlive    bool
	closeAfter   bool

	pendingReq *wire.Request
	cgiInv     *cgi.Invocation
	cgiLoc     *config.Location

	requestsServed int
}

// New allocates a Connection for a freshly accepted socket.
func New(fd int, remoteAddr string, cfg *config.Config, tbl *route.Table, log *logrus.Logger) *Connection {
	return &Connection{
		Fd:           fd,
		RemoteAddr:   remoteAddr,
		cfg:          cfg,
		tbl:          tbl,
		log:          log,
		State:        StateReadingRequest,
		readBuf:      wire.GetBuffer(),
		writeBuf:     wire.GetBuffer(),
		LastActivity: time.Now(),
	}
}

// WantsWrite reports whether the event loop should watch Fd for
// writability.
func (c *Connection) WantsWrite() bool {
	return c.State == StateWritingResponse
}

// WantsRead reports whether the event loop should watch Fd for
// readability.
func (c *Connection) WantsRead() bool {
	return c.State == StateReadingRequest
}

// CGI returns the live CGI invocation, or nil if none is attached.
func (c *Connection) CGI() *cgi.Invocation {
	return c.cgiInv
}

// IdleFor reports how long the connection has been waiting in
// StateReadingRequest.
func (c *Connection) IdleFor() time.Duration {
	return time.Since(c.LastActivity)
}

// OnReadable appends newly read bytes to the read buffer and advances
// the state machine. It never blocks: a parse that needs more data
// simply returns with the connection still in StateReadingRequest.
func (c *Connection) OnReadable(data []byte) error {
	c.LastActivity = time.Now()
	c.readBuf.Write(data)
	return c.tryParse()
}

func (c *Connection) tryParse() error {
	if c.State != StateReadingRequest {
		return nil
	}

	req, consumed, err := wire.ParseRequest(c.readBuf.B, c.cfg.ClientMaxBodySize)
	switch {
	case err == wire.ErrNeedMore:
		return nil
	case err != nil:
		status := 400
		if pe, ok := err.(*wire.ParseError); ok {
			status = pe.StatusCode()
		}
		c.respondAndClose(status)
		return nil
	}

	c.retainResidual(consumed)
	c.requestsServed++
	return c.dispatch(req)
}

// retainResidual drops the consumed prefix of readBuf, keeping any
// pipelined bytes that follow the request just parsed (spec's
// corrected keep-alive invariant: the read buffer must retain residual
// bytes beyond one parsed request).
func (c *Connection) retainResidual(consumed int) {
	rest := append([]byte(nil), c.readBuf.B[consumed:]...)
	c.readBuf.Reset()
	c.readBuf.Write(rest)
}

func (c *Connection) dispatch(req *wire.Request) error {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Errorf("handler panic, closing connection\n%s", debug.Stack())
			c.State = StateClosed
		}
	}()
	c.State = StateDispatching
	c.keepAlive = !req.Close

	outcome := dispatch.Route(c.cfg, c.tbl, req)
	switch outcome.Kind {
	case dispatch.KindCGI:
		return c.startCGI(req, outcome.Location, outcome.ScriptPath, outcome.Env)
	default:
		c.pendingReq = req
		if outcome.ForceClose {
			c.closeAfter = true
		}
		c.finishResponse(outcome.Response)
		return nil
	}
}

func (c *Connection) startCGI(req *wire.Request, loc *config.Location, scriptPath string, env []string) error {
	inv, err := cgi.Spawn(scriptPath, env, req.Body)
	if err != nil {
		c.pendingReq = req
		c.respondCGIFailure(500)
		return nil
	}
	c.cgiInv = inv
	c.cgiLoc = loc
	c.pendingReq = req
	c.State = StateAwaitingCGI
	return nil
}

// PumpCGI drains whatever progress the CGI invocation's pipes can make
// right now (spec §4.6). The event loop calls this whenever one of the
// invocation's fds reports readiness, or once per idle-sweep tick to
// check for a timeout.
func (c *Connection) PumpCGI() error {
	if c.State != StateAwaitingCGI || c.cgiInv == nil {
		return nil
	}
	inv := c.cgiInv

	if inv.TimedOut() && !inv.Done() {
		inv.Kill()
		c.teardownCGI()
		c.respondCGIFailure(504)
		return nil
	}

	if err := inv.WriteStdin(); err != nil {
		c.teardownCGI()
		c.respondCGIFailure(500)
		return nil
	}
	if err := inv.ReadStdout(); err != nil {
		c.teardownCGI()
		c.respondCGIFailure(500)
		return nil
	}
	if err := inv.ReadStderr(); err != nil {
		c.teardownCGI()
		c.respondCGIFailure(500)
		return nil
	}
	c.drainStderrLines()

	if !inv.Done() {
		return nil
	}

	resp, ok := cgi.ParseOutput(inv.Output)
	c.teardownCGI()
	if !ok {
		c.respondCGIFailure(500)
		return nil
	}
	c.finishResponse(resp)
	return nil
}

// respondCGIFailure builds the canonical error response for a
// CGIFailure outcome (spec §7 taxonomy). Unlike ParseError/PolicyError,
// a CGI failure does not force the connection closed — it is still
// eligible for keep-alive reuse.
func (c *Connection) respondCGIFailure(code int) {
	c.finishResponse(handlers.ErrorResponse(c.cfg, code))
}

func (c *Connection) drainStderrLines() {
	if c.cgiInv == nil || len(c.cgiInv.StderrBuf) == 0 {
		return
	}
	for {
		idx := -1
		for i, b := range c.cgiInv.StderrBuf {
			if b == '\n' {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		line := string(c.cgiInv.StderrBuf[:idx])
		c.cgiInv.StderrBuf = c.cgiInv.StderrBuf[idx+1:]
		if line != "" {
			logging.CGIStderr(c.log, c.cgiInv.Pid, line)
		}
	}
}

func (c *Connection) teardownCGI() {
	if c.cgiInv != nil {
		c.cgiInv.Close()
	}
	c.cgiInv = nil
	c.cgiLoc = nil
}

// respondAndClose builds the canonical error response for code and
// forces the connection closed once it drains (spec §4.9). Used for
// ParseError/PolicyError outcomes, which spec §7 always closes after
// flush.
func (c *Connection) respondAndClose(code int) {
	c.closeAfter = true
	c.finishResponse(handlers.ErrorResponse(c.cfg, code))
}

func (c *Connection) finishResponse(resp *wire.Response) {
	if c.closeAfter || !c.keepAlive {
		resp.Header.Set("Connection", "close")
	} else {
		resp.Header.Set("Connection", "keep-alive")
		resp.Header.Set("Keep-Alive", "timeout=5, max=100")
	}

	c.writeBuf.Reset()
	resp.Serialize(c.writeBuf)
	c.writeOff = 0
	c.State = StateWritingResponse

	logging.Access(c.log, c.RemoteAddr, string(pendingMethod(c)), pendingPath(c), resp.Status, len(resp.Body))
}

func pendingMethod(c *Connection) wire.Method {
	if c.pendingReq != nil {
		return c.pendingReq.Method
	}
	return wire.MethodUnknown
}

func pendingPath(c *Connection) string {
	if c.pendingReq != nil {
		return c.pendingReq.Target()
	}
	return ""
}

// PendingWrite returns the unsent tail of the current response.
func (c *Connection) PendingWrite() []byte {
	return c.writeBuf.B[c.writeOff:]
}

// Advance records that n bytes of the pending response were written,
// and when the buffer is fully drained, either tears the connection
// down (closeAfter, or a request that did not keep the connection
// alive) or resets it to read the next pipelined request (keep-alive),
// immediately trying to parse any residual bytes already buffered.
func (c *Connection) Advance(n int) error {
	c.writeOff += n
	if c.writeOff < c.writeBuf.Len() {
		return nil
	}

	if c.closeAfter || !c.keepAlive {
		c.State = StateClosed
		return nil
	}

	c.writeBuf.Reset()
	c.writeOff = 0
	c.pendingReq = nil
	c.State = StateReadingRequest
	c.LastActivity = time.Now()
	return c.tryParse()
}

// TimeoutIdle responds 408 and closes the connection once the response
// drains (spec §4.7 "any | idle > timeout | WritingResponse (408) or
// Closed"). Call only when IdleFor() has exceeded IdleTimeout.
func (c *Connection) TimeoutIdle() {
	if c.State != StateReadingRequest {
		return
	}
	c.respondAndClose(408)
}

// Close releases the connection's pooled buffers and any live CGI
// attachment. Safe to call more than once.
func (c *Connection) Close() {
	c.teardownCGI()
	if c.readBuf != nil {
		wire.PutBuffer(c.readBuf)
		c.readBuf = nil
	}
	if c.writeBuf != nil {
		wire.PutBuffer(c.writeBuf)
		c.writeBuf = nil
	}
	c.State = StateClosed
}
