//go:build !linux && !darwin && !freebsd

package network

import "net"

func setKeepAliveParams(conn *net.TCPConn, opts keepAliveOptions) error {
	return nil
}
