// Package eventloop is the readiness multiplexer (spec §4.8): a single
// OS thread polls a unified descriptor set covering listeners, client
// sockets, and CGI pipes, and drives each ready descriptor's
// internal/conn.Connection forward. No goroutine is created per
// connection; the event loop is the entire concurrency model except
// for the one reaper goroutine internal/cgi.Spawn starts per child.
//
// This is the structural redesign spec §9 calls for in place of
// shockwave's accept-loop-plus-goroutine-per-connection model
// (pkg/shockwave/server/server.go): here, Accept still happens in a
// loop, but instead of handing the new connection to `go conn.Serve()`
// it is registered as one more descriptor in the same poller that owns
// every other connection.
package eventloop

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/nullform/webserv/internal/conn"
	"github.com/nullform/webserv/internal/config"
	"github.com/nullform/webserv/internal/route"
)

// idleSweepInterval is how often the loop checks client idle timeouts
// and CGI wall-clock timeouts (spec §4.8 "bounded cadence, e.g. once
// per second").
const idleSweepInterval = 1 * time.Second

// tag classifies a registered descriptor the way spec §4.8 lists:
// Listener, Client(read|write), CGIStdin(write), CGIStdout(read),
// plus CGIStderr as this implementation's drained-logging extension
// (spec §12).
type tag int

const (
	tagListener tag = iota
	tagClient
	tagCGIStdin
	tagCGIStdout
	tagCGIStderr
)

type registration struct {
	tag  tag
	conn *conn.Connection
}

// Server owns the listening sockets, the connection table, and the
// platform poller.
type Server struct {
	cfg *config.Config
	tbl *route.Table
	log *logrus.Logger

	poller    poller
	listeners []*os.File

	descriptors map[int]registration
	conns       map[int]*conn.Connection

	// cgiFds tracks which CGI pipe descriptors are currently registered
	// with the poller on behalf of each client connection (keyed by
	// client fd), so they can be deregistered the moment the attachment
	// no longer needs them — leaving a stale registration around would
	// risk a later accept() reusing that fd number under the wrong tag.
	cgiFds map[int][]int

	lastSweep time.Time
	closing   bool
}

// NewServer builds a Server bound to every port in cfg.Listen.
func NewServer(cfg *config.Config, log *logrus.Logger) (*Server, error) {
	p, err := newPoller()
	if err != nil {
		return nil, fmt.Errorf("eventloop: create poller: %w", err)
	}

	s := &Server{
		cfg:         cfg,
		tbl:         route.NewTable(cfg),
		log:         log,
		poller:      p,
		descriptors: make(map[int]registration),
		conns:       make(map[int]*conn.Connection),
		cgiFds:      make(map[int][]int),
		lastSweep:   time.Now(),
	}

	for _, port := range cfg.Listen {
		if err := s.listen(port); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// listen binds port and registers the resulting descriptor as a
// Listener (spec §4.8 "On Listener readiness: accept, set
// non-blocking, register as Client(read)").
//
// net.Listen is used for address resolution and binding because it is
// the idiomatic way to get there; File() is then used to extract the
// raw descriptor for the poller, the same fd-pinning trick
// internal/cgi.Spawn uses for pipes — after File() returns, the dup'd
// descriptor is ours to manage non-blocking, and the original
// net.Listener is closed without affecting it.
func (s *Server) listen(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("eventloop: listen on port %d: %w", port, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return fmt.Errorf("eventloop: port %d did not yield a TCP listener", port)
	}

	file, err := tcpLn.File()
	tcpLn.Close()
	if err != nil {
		return fmt.Errorf("eventloop: extract listener fd for port %d: %w", port, err)
	}

	fd := int(file.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		file.Close()
		return fmt.Errorf("eventloop: set listener fd non-blocking: %w", err)
	}

	if err := s.poller.Add(fd, false); err != nil {
		file.Close()
		return err
	}
	s.descriptors[fd] = registration{tag: tagListener}
	s.listeners = append(s.listeners, file)
	s.log.WithField("port", port).Info("listening")
	return nil
}

// Close releases every listener and connection the server owns.
func (s *Server) Close() {
	for fd := range s.conns {
		s.dropConnection(fd)
	}
	for _, f := range s.listeners {
		s.poller.Remove(int(f.Fd()))
		f.Close()
	}
	s.poller.Close()
}

// Shutdown requests that the loop stop accepting new connections and
// exit once existing connections drain, the graceful-shutdown
// behavior of spec §12 (replacing the original's sig_atomic_t flag
// checked inside a busy-wait with a flag checked once per idle-sweep
// tick).
func (s *Server) Shutdown() {
	s.closing = true
}

// Run polls forever, driving connections and CGI pipes until Shutdown
// is called and every connection has drained, or an unrecoverable
// poller error occurs.
func (s *Server) Run() error {
	for {
		if s.closing && len(s.conns) == 0 {
			return nil
		}

		events, err := s.poller.Wait(idleSweepInterval)
		if err != nil {
			if err == errInterrupted {
				continue
			}
			return fmt.Errorf("eventloop: poll: %w", err)
		}

		for _, ev := range events {
			s.handleEvent(ev)
		}

		if time.Since(s.lastSweep) >= idleSweepInterval {
			s.idleSweep()
			s.lastSweep = time.Now()
		}
	}
}

func (s *Server) handleEvent(ev event) {
	reg, ok := s.descriptors[ev.fd]
	if !ok {
		return
	}

	switch reg.tag {
	case tagListener:
		s.accept(ev.fd)
	case tagClient:
		s.handleClientEvent(reg.conn, ev)
	case tagCGIStdin, tagCGIStdout, tagCGIStderr:
		s.handleCGIEvent(reg.conn)
	}
}

func (s *Server) accept(listenerFd int) {
	for {
		if s.closing {
			return
		}
		clientFd, sa, err := unix.Accept4(listenerFd, unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			s.log.WithError(err).Warn("accept failed")
			return
		}

		c := conn.New(clientFd, remoteAddrString(sa), s.cfg, s.tbl, s.log)
		if err := s.poller.Add(clientFd, false); err != nil {
			c.Close()
			unix.Close(clientFd)
			continue
		}
		s.descriptors[clientFd] = registration{tag: tagClient, conn: c}
		s.conns[clientFd] = c
	}
}

func remoteAddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3], a.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%x]:%d", a.Addr, a.Port)
	default:
		return "unknown"
	}
}

func (s *Server) handleClientEvent(c *conn.Connection, ev event) {
	if ev.readable && c.WantsRead() {
		var buf [16 * 1024]byte
		n, err := unix.Read(c.Fd, buf[:])
		if err != nil && err != unix.EAGAIN {
			s.dropConnection(c.Fd)
			return
		}
		if n == 0 && err == nil {
			s.dropConnection(c.Fd)
			return
		}
		if n > 0 {
			if err := c.OnReadable(buf[:n]); err != nil {
				s.dropConnection(c.Fd)
				return
			}
		}
	}

	if ev.writable && c.WantsWrite() {
		pending := c.PendingWrite()
		if len(pending) > 0 {
			n, err := unix.Write(c.Fd, pending)
			if err != nil && err != unix.EAGAIN {
				s.dropConnection(c.Fd)
				return
			}
			if n > 0 {
				if err := c.Advance(n); err != nil {
					s.dropConnection(c.Fd)
					return
				}
			}
		}
	}

	s.syncCGIDescriptors(c)
	s.reregister(c)

	if c.State == conn.StateClosed {
		s.dropConnection(c.Fd)
	}
}

func (s *Server) handleCGIEvent(c *conn.Connection) {
	if err := c.PumpCGI(); err != nil {
		s.dropConnection(c.Fd)
		return
	}
	s.syncCGIDescriptors(c)
	s.reregister(c)
	if c.State == conn.StateClosed {
		s.dropConnection(c.Fd)
	}
}

// syncCGIDescriptors registers or deregisters a connection's CGI pipe
// fds to match its current CGI attachment (spec §4.6 "Integration with
// the event loop"), removing any previously registered fd the
// attachment no longer needs — including all three once the attachment
// is torn down — so a later accept() can never reuse that fd number
// under a stale CGI registration.
func (s *Server) syncCGIDescriptors(c *conn.Connection) {
	want := map[int]struct {
		t     tag
		write bool
	}{}

	if inv := c.CGI(); inv != nil {
		if len(inv.PendingStdin) > 0 && !inv.StdinClosed {
			want[inv.StdinFd] = struct {
				t     tag
				write bool
			}{tagCGIStdin, true}
		}
		if !inv.StdoutEOF {
			want[inv.StdoutFd] = struct {
				t     tag
				write bool
			}{tagCGIStdout, false}
		}
		if !inv.StderrEOF {
			want[inv.StderrFd] = struct {
				t     tag
				write bool
			}{tagCGIStderr, false}
		}
	}

	for _, fd := range s.cgiFds[c.Fd] {
		if _, stillWanted := want[fd]; !stillWanted {
			s.poller.Remove(fd)
			delete(s.descriptors, fd)
		}
	}

	registered := make([]int, 0, len(want))
	for fd, w := range want {
		if _, ok := s.descriptors[fd]; !ok {
			if err := s.poller.Add(fd, w.write); err != nil {
				continue
			}
			s.descriptors[fd] = registration{tag: w.t, conn: c}
		}
		registered = append(registered, fd)
	}

	if len(registered) == 0 {
		delete(s.cgiFds, c.Fd)
	} else {
		s.cgiFds[c.Fd] = registered
	}
}

// reregister updates the client socket's armed direction to match
// WantsRead/WantsWrite (spec §3 invariant: "exactly one direction is
// armed for events at any moment").
func (s *Server) reregister(c *conn.Connection) {
	_ = s.poller.Modify(c.Fd, c.WantsWrite())
}

func (s *Server) dropConnection(fd int) {
	c, ok := s.conns[fd]
	if !ok {
		return
	}

	for _, cgiFd := range s.cgiFds[fd] {
		s.poller.Remove(cgiFd)
		delete(s.descriptors, cgiFd)
	}
	delete(s.cgiFds, fd)

	s.poller.Remove(fd)
	delete(s.descriptors, fd)
	delete(s.conns, fd)
	c.Close()
	unix.Close(fd)
}

// idleSweep enforces the client idle timeout and the CGI wall-clock
// timeout (spec §4.8, §4.7 "Cancellation and timeouts").
func (s *Server) idleSweep() {
	for fd, c := range s.conns {
		switch {
		case c.State == conn.StateAwaitingCGI:
			if err := c.PumpCGI(); err != nil {
				s.dropConnection(fd)
				continue
			}
			s.syncCGIDescriptors(c)
			s.reregister(c)
		case c.WantsRead() && c.IdleFor() > conn.IdleTimeout:
			s.timeoutConnection(c)
			s.reregister(c)
		}

		if c.State == conn.StateClosed {
			s.dropConnection(fd)
		}
	}
}

func (s *Server) timeoutConnection(c *conn.Connection) {
	c.TimeoutIdle()
}
