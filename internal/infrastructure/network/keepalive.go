package network

import (
	"crypto/tls"
	"net"
	"time"
)

type keepAliveOptions struct {
	Enabled  bool
	Idle     time.Duration
	Interval time.Duration
	Count    int
}

func setKeepAlive(conn net.Conn, opts keepAliveOptions) error {
	if tlsConn, ok := conn.(*tls.Conn); ok {
		conn = tlsConn.NetConn()
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	if err := tcpConn.SetKeepAlive(opts.Enabled); err != nil {
		return err
	}

	if !opts.Enabled {
		return nil
	}

	if opts.Idle > 0 {
		if err := tcpConn.SetKeepAlivePeriod(opts.Idle); err != nil {
			return err
		}
	}

	return setKeepAliveParams(tcpConn, opts)
}

func seconds(d time.Duration) int {
	s := int(d / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

// keepAliveListener applies the keepalive options to every accepted socket
// before any wrapping listener (TLS, connection limit) hides the TCP conn.
type keepAliveListener struct {
	net.Listener
	opts  keepAliveOptions
	onErr func(net.Conn, error)
}

func (l *keepAliveListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if err := setKeepAlive(conn, l.opts); err != nil && l.onErr != nil {
		l.onErr(conn, err)
	}

	return conn, nil
}
