package eventloop

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// event is one ready descriptor reported by a poll call.
type event struct {
	fd       int
	readable bool
	writable bool
}

// errInterrupted is returned by a poller's Wait when the underlying
// syscall was interrupted by a signal (EINTR) and should simply be
// retried.
var errInterrupted = errors.New("eventloop: poll interrupted")

// poller is the readiness-multiplexer primitive spec §4.8 describes in
// OS-agnostic terms. Linux uses epoll (poller_linux.go); every other
// platform falls back to poll(2) (poller_other.go), per the glossary's
// note that the multiplexer implementation is platform-specific but its
// contract is not.
type poller interface {
	// Add registers fd for readability, or for writability if write is
	// true.
	Add(fd int, write bool) error
	// Modify rearms fd for writability if write is true, else
	// readability.
	Modify(fd int, write bool) error
	// Remove deregisters fd. Safe to call on an fd that was already
	// removed.
	Remove(fd int) error
	// Wait blocks for at most timeout for one or more descriptors to
	// become ready.
	Wait(timeout time.Duration) ([]event, error)
	Close() error
}

func isEINTR(err error) bool {
	return errors.Is(err, unix.EINTR)
}
