//go:build !linux
// +build !linux

// Stub for unsupported platforms: the original C program is POSIX/epoll-
// only (original_source/main.c uses poll(2) and Linux-only socket flags),
// so this port targets Linux exclusively rather than inventing a kqueue or
// IOCP backend with no source to ground it on.
package reactor

import (
	"errors"
	"log"

	"github.com/momentics/linechat/internal/control"
)

// Loop is an empty placeholder so non-Linux builds still type-check.
type Loop struct{}

// Listen always fails on unsupported platforms.
func Listen(port int) (int, error) {
	return -1, errors.New("reactor: linux is the only supported platform")
}

// New always fails on unsupported platforms.
func New(listenFD int, logger *log.Logger, ctrl *control.Control) (*Loop, error) {
	return nil, errors.New("reactor: linux is the only supported platform")
}

func (l *Loop) Run() error   { return errors.New("reactor: linux is the only supported platform") }
func (l *Loop) Close() error { return nil }
