//go:build linux
// +build linux

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Listen creates a non-blocking, reusable-address IPv4 stream socket bound
// to the given port on every local address and puts it into the listening
// state with a backlog of 128 connections, matching the original C
// program's prepare_server (original_source/main.c): socket() with
// SOCK_NONBLOCK, SO_REUSEADDR, bind(), listen(fd, 128).
//
// Socket setup is an external collaborator of the core reactor (spec.md
// §6): the core only ever receives the resulting descriptor.
func Listen(port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("reactor: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("reactor: setsockopt SO_REUSEADDR: %w", err)
	}

	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("reactor: bind port %d: %w", port, err)
	}

	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("reactor: listen: %w", err)
	}

	return fd, nil
}
