// Package cgi is the CGI subprocess supervisor (spec §4.6): it resolves
// the script, builds the CGI/1.1 environment, forks/execs the script
// itself, and exposes raw, non-blocking pipe descriptors so the
// event loop (internal/eventloop) can multiplex them alongside client
// sockets instead of blocking a goroutine on waitpid/read the way
// original_source/Webserv/cgi/CGIHandler.cpp's busy-wait does (spec §9
// redesign flag).
package cgi

import (
	"errors"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultTimeout is the CGI wall-clock timeout recommended by spec §4.6.
const DefaultTimeout = 5 * time.Second

// Invocation is a live CGI child process and its pipe descriptors — the
// "CGI attachment" of spec §3. Exactly one exists per Connection at a
// time (spec §8 invariant).
type Invocation struct {
	Pid int
	cmd *exec.Cmd

	StdinFd  int // write end, non-blocking; request body is written here
	StdoutFd int // read end, non-blocking
	StderrFd int // read end, non-blocking

	stdinFile, stdoutFile, stderrFile *os.File

	// PendingStdin is the request body not yet written to StdinFd.
	PendingStdin []byte
	StdinClosed  bool

	// Output accumulates bytes read from StdoutFd.
	Output []byte

	// StderrBuf accumulates bytes read from StderrFd, drained to the
	// logger line by line by the caller.
	StderrBuf []byte

	StdoutEOF bool
	StderrEOF bool

	Started time.Time
	Timeout time.Duration

	exited   bool
	exitErr  error
	waitDone chan struct{}
}

// Spawn forks and execs scriptPath with env, returning an Invocation
// whose pipe descriptors are already non-blocking and ready to be
// registered with the event loop.
func Spawn(scriptPath string, env []string, body []byte) (*Invocation, error) {
	stdinRead, stdinWrite, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	stdoutRead, stdoutWrite, err := os.Pipe()
	if err != nil {
		stdinRead.Close()
		stdinWrite.Close()
		return nil, err
	}
	stderrRead, stderrWrite, err := os.Pipe()
	if err != nil {
		stdinRead.Close()
		stdinWrite.Close()
		stdoutRead.Close()
		stdoutWrite.Close()
		return nil, err
	}

	cmd := exec.Command(scriptPath)
	cmd.Env = env
	cmd.Stdin = stdinRead
	cmd.Stdout = stdoutWrite
	cmd.Stderr = stderrWrite

	if err := cmd.Start(); err != nil {
		stdinRead.Close()
		stdinWrite.Close()
		stdoutRead.Close()
		stdoutWrite.Close()
		stderrRead.Close()
		stderrWrite.Close()
		return nil, err
	}

	// Parent closes the child's ends (spec §4.6 "In the parent, close
	// the child ends").
	stdinRead.Close()
	stdoutWrite.Close()
	stderrWrite.Close()

	// Fd() pins these descriptors in blocking mode and hands us the raw
	// int; we immediately flip them non-blocking ourselves so the event
	// loop — not the Go runtime poller — owns their readiness.
	stdinFd := int(stdinWrite.Fd())
	stdoutFd := int(stdoutRead.Fd())
	stderrFd := int(stderrRead.Fd())
	for _, fd := range []int{stdinFd, stdoutFd, stderrFd} {
		_ = unix.SetNonblock(fd, true)
	}

	inv := &Invocation{
		Pid:          cmd.Process.Pid,
		cmd:          cmd,
		StdinFd:      stdinFd,
		StdoutFd:     stdoutFd,
		StderrFd:     stderrFd,
		stdinFile:    stdinWrite,
		stdoutFile:   stdoutRead,
		stderrFile:   stderrRead,
		PendingStdin: body,
		Started:      time.Now(),
		Timeout:      DefaultTimeout,
		waitDone:     make(chan struct{}),
	}

	go inv.wait()

	return inv, nil
}

// wait reaps the child in the background and records its exit status.
// This is the one unavoidable goroutine per CGI invocation: os/exec's
// Wait is the only portable way to reap without racing the event loop's
// own fd bookkeeping, and it touches no connection state — it only
// publishes exitErr/exited behind waitDone, which the event loop reads
// from its own goroutine after a close() happens-before signal.
func (inv *Invocation) wait() {
	inv.exitErr = inv.cmd.Wait()
	inv.exited = true
	close(inv.waitDone)
}

// Exited reports whether the child has been reaped, and if so its exit
// error (nil on a clean zero exit).
func (inv *Invocation) Exited() (bool, error) {
	select {
	case <-inv.waitDone:
		return true, inv.exitErr
	default:
		return false, nil
	}
}

// WriteStdin performs one non-blocking write attempt of PendingStdin to
// StdinFd, advancing it and closing stdin once fully flushed (spec §4.6:
// "send the request body ... then close stdin"). It returns
// unix.EAGAIN-wrapped errors as nil progress so the caller knows to wait
// for the next writable event.
func (inv *Invocation) WriteStdin() error {
	for len(inv.PendingStdin) > 0 {
		n, err := unix.Write(inv.StdinFd, inv.PendingStdin)
		if n > 0 {
			inv.PendingStdin = inv.PendingStdin[n:]
		}
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				return nil
			}
			return err
		}
		if n == 0 {
			break
		}
	}
	if len(inv.PendingStdin) == 0 && !inv.StdinClosed {
		inv.StdinClosed = true
		return unix.Close(inv.StdinFd)
	}
	return nil
}

// ReadStdout performs one non-blocking read attempt from StdoutFd,
// appending to Output and marking StdoutEOF on a zero-length read.
func (inv *Invocation) ReadStdout() error {
	return readInto(inv.StdoutFd, &inv.Output, &inv.StdoutEOF)
}

// ReadStderr performs one non-blocking read attempt from StderrFd,
// appending to StderrBuf (drained line-by-line to the logger by the
// caller) and marking StderrEOF on a zero-length read.
func (inv *Invocation) ReadStderr() error {
	return readInto(inv.StderrFd, &inv.StderrBuf, &inv.StderrEOF)
}

func readInto(fd int, buf *[]byte, eof *bool) error {
	var tmp [4096]byte
	for {
		n, err := unix.Read(fd, tmp[:])
		if n > 0 {
			*buf = append(*buf, tmp[:n]...)
		}
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				return nil
			}
			return err
		}
		if n == 0 {
			*eof = true
			return nil
		}
	}
}

// Done reports whether the child has exited and its stdout has reached
// EOF — the point at which the CGI attachment may be torn down and its
// response parsed (spec §3 "CGI attachment destroyed after the child is
// reaped and its stdout is fully read").
func (inv *Invocation) Done() bool {
	exited, _ := inv.Exited()
	return exited && inv.StdoutEOF
}

// TimedOut reports whether the invocation has exceeded its wall-clock
// timeout.
func (inv *Invocation) TimedOut() bool {
	return time.Since(inv.Started) > inv.Timeout
}

// Kill sends SIGKILL to the child and waits for it to be reaped (spec
// §4.6 timeout handling). Safe to call after the child has already
// exited.
func (inv *Invocation) Kill() {
	if inv.cmd.Process != nil {
		_ = inv.cmd.Process.Kill()
	}
	<-inv.waitDone
}

// Close releases the invocation's pipe descriptors.
func (inv *Invocation) Close() {
	if !inv.StdinClosed {
		inv.stdinFile.Close()
	}
	inv.stdoutFile.Close()
	inv.stderrFile.Close()
}
