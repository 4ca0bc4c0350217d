package network

import (
	"NSSaDS/fileshare/internal/domain"
	"NSSaDS/fileshare/pkg/config"
	"bufio"
	"io"
	"net"
	"time"
)

// tcpSession is the server side of one connection as handed to commands.
type tcpSession struct {
	conn     net.Conn
	reader   *bufio.Reader
	info     domain.ConnInfo
	config   *config.ServerConfig
	observer domain.Observer
}

func (s *tcpSession) ID() string         { return s.info.ID }
func (s *tcpSession) RemoteAddr() string { return s.info.RemoteAddr }

func (s *tcpSession) ReadToken() (string, error) {
	return ReadToken(s.reader, s.config.MaxTokenSize)
}

func (s *tcpSession) WriteTokens(tokens ...string) error {
	return WriteTokens(s.conn, tokens...)
}

func (s *tcpSession) ReadLength() (int64, error) {
	return ReadLength(s.reader)
}

// ReceiveBody reads through the buffered reader so bytes that arrived with
// the length token are not lost.
func (s *tcpSession) ReceiveBody(dst io.Writer, total int64, onProgress domain.ProgressFunc) (int64, error) {
	return ReceiveBody(s.reader, dst, total, s.config.BufferSize, onProgress)
}

func (s *tcpSession) SendFile(src io.Reader, total int64, onProgress domain.ProgressFunc) error {
	return Send(s.conn, src, total, s.config.ChunkSize, onProgress)
}

func (s *tcpSession) Progress(command, file string) domain.ProgressFunc {
	if s.observer == nil {
		return nil
	}

	return Throttle(func(percent float64) {
		s.observer.Notify(domain.Event{
			Type:     domain.EventProgress,
			ConnID:   s.info.ID,
			Remote:   s.info.RemoteAddr,
			Command:  command,
			File:     file,
			Progress: percent,
			Time:     time.Now(),
		})
	})
}
