//go:build !linux

package eventloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollPoller is the portability fallback promised by the glossary: any
// platform lacking epoll gets a poll(2)-based multiplexer with the same
// contract. It is O(descriptors) per Wait call instead of epoll's
// O(ready), which is an acceptable tradeoff for a fallback path that
// isn't this server's primary target.
type pollPoller struct {
	fds   map[int]bool // fd -> registered for write
	order []int
}

func newPoller() (poller, error) {
	return &pollPoller{fds: make(map[int]bool)}, nil
}

func (p *pollPoller) Add(fd int, write bool) error {
	if _, ok := p.fds[fd]; !ok {
		p.order = append(p.order, fd)
	}
	p.fds[fd] = write
	return nil
}

func (p *pollPoller) Modify(fd int, write bool) error {
	if _, ok := p.fds[fd]; !ok {
		return p.Add(fd, write)
	}
	p.fds[fd] = write
	return nil
}

func (p *pollPoller) Remove(fd int) error {
	if _, ok := p.fds[fd]; !ok {
		return nil
	}
	delete(p.fds, fd)
	for i, f := range p.order {
		if f == fd {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

func (p *pollPoller) Wait(timeout time.Duration) ([]event, error) {
	pollFds := make([]unix.PollFd, 0, len(p.order))
	for _, fd := range p.order {
		var events int16 = unix.POLLIN
		if p.fds[fd] {
			events = unix.POLLOUT
		}
		pollFds = append(pollFds, unix.PollFd{Fd: int32(fd), Events: events})
	}

	n, err := unix.Poll(pollFds, int(timeout.Milliseconds()))
	if err != nil {
		if isEINTR(err) {
			return nil, errInterrupted
		}
		return nil, err
	}

	out := make([]event, 0, n)
	for _, pfd := range pollFds {
		if pfd.Revents == 0 {
			continue
		}
		out = append(out, event{
			fd:       int(pfd.Fd),
			readable: pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0,
			writable: pfd.Revents&(unix.POLLOUT|unix.POLLHUP|unix.POLLERR) != 0,
		})
	}
	return out, nil
}

func (p *pollPoller) Close() error {
	return nil
}
