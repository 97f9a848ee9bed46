//go:build linux

package eventloop

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux readiness multiplexer, grounded on the same
// epoll primitives docker-compose/archutils/epoll.go wraps around
// syscall.Epoll*, used here directly through golang.org/x/sys/unix
// instead — the dependency already wired for non-blocking CGI pipe
// I/O in internal/cgi.
type epollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

func newPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &epollPoller{epfd: fd, events: make([]unix.EpollEvent, 256)}, nil
}

func (p *epollPoller) Add(fd int, write bool) error {
	ev := unix.EpollEvent{Fd: int32(fd), Events: flagsFor(write)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Modify(fd int, write bool) error {
	ev := unix.EpollEvent{Fd: int32(fd), Events: flagsFor(write)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) Remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

func (p *epollPoller) Wait(timeout time.Duration) ([]event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, int(timeout.Milliseconds()))
	if err != nil {
		if isEINTR(err) {
			return nil, errInterrupted
		}
		return nil, err
	}

	out := make([]event, 0, n)
	for i := 0; i < n; i++ {
		ev := p.events[i]
		out = append(out, event{
			fd:       int(ev.Fd),
			readable: ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			writable: ev.Events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0,
		})
	}
	return out, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}

func flagsFor(write bool) uint32 {
	if write {
		return unix.EPOLLOUT
	}
	return unix.EPOLLIN
}
