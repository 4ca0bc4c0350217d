//go:build darwin || freebsd

package network

import (
	"net"

	"golang.org/x/sys/unix"
)

// The idle time is already applied through SetKeepAlivePeriod.
func setKeepAliveParams(conn *net.TCPConn, opts keepAliveOptions) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if opts.Interval > 0 {
			if sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, seconds(opts.Interval)); sockErr != nil {
				return
			}
		}
		if opts.Count > 0 {
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, opts.Count)
		}
	})
	if err != nil {
		return err
	}

	return sockErr
}
