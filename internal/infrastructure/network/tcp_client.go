package network

import (
	"NSSaDS/fileshare/internal/domain"
	"NSSaDS/fileshare/pkg/config"
	"NSSaDS/fileshare/pkg/logger"
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// TCPClient is one connection to the file server. Calls are serialised so
// that only one exchange is ever in flight on the socket.
type TCPClient struct {
	config  *config.ClientConfig
	log     *logger.Logger
	allowed []string

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

func NewTCPClient(cfg *config.ClientConfig, log *logger.Logger) *TCPClient {
	return &TCPClient{
		config:  cfg,
		log:     log,
		allowed: config.NormalizeExtensions(cfg.AllowedExtensions),
	}
}

// Connect dials addr, or the configured address when addr is empty.
func (c *TCPClient) Connect(ctx context.Context, addr string) error {
	if addr == "" {
		addr = c.config.Addr()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn, c.reader = nil, nil
	}

	dialer := net.Dialer{Timeout: c.config.Timeout, KeepAlive: -1}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to %s: %w", domain.ErrConnection, addr, err)
	}

	opts := keepAliveOptions{
		Enabled:  c.config.KeepAlive,
		Idle:     c.config.KeepAliveIdle,
		Interval: c.config.KeepAliveIntvl,
		Count:    c.config.KeepAliveCount,
	}
	if err := setKeepAlive(raw, opts); err != nil {
		c.log.Warnf("Failed to set keepalive: %v", err)
	}

	conn := raw
	if c.config.TLS.Enabled {
		host, _, _ := net.SplitHostPort(addr)
		tlsCfg, err := clientTLSConfig(c.config.TLS, host)
		if err != nil {
			raw.Close()
			return fmt.Errorf("%w: %w", domain.ErrConnection, err)
		}

		tlsConn := tls.Client(raw, tlsCfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return fmt.Errorf("%w: TLS handshake with %s failed: %w", domain.ErrConnection, addr, err)
		}
		conn = tlsConn
	}

	c.conn = withIdleTimeout(conn, c.config.Timeout)
	c.reader = bufio.NewReaderSize(c.conn, max(c.config.BufferSize, 16))

	c.log.Infof("Connected to server: %s", addr)
	return nil
}

// Disconnect tells the server the session is over and closes the socket.
// It is safe to call when not connected.
func (c *TCPClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	if err := WriteTokens(c.conn, domain.CmdDisconnect); err != nil {
		c.log.Debugf("DISCONNECT not delivered: %v", err)
	}

	err := c.conn.Close()
	c.conn, c.reader = nil, nil
	return err
}

func (c *TCPClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *TCPClient) List() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, domain.ErrNotConnected
	}

	if err := WriteTokens(c.conn, domain.CmdList); err != nil {
		return nil, c.fail(err)
	}

	if err := c.expect(domain.StatusOK); err != nil {
		return nil, err
	}

	listing, err := ReadToken(c.reader, c.config.MaxTokenSize)
	if err != nil {
		return nil, c.fail(eofAsConnection(err))
	}

	if listing == "" {
		return []string{}, nil
	}
	return strings.Split(listing, "\n"), nil
}

// ValidateUpload checks a local file against the client-side upload policy
// and returns its size. Nothing is sent to the server.
func (c *TCPClient) ValidateUpload(localPath string) (int64, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is not a regular file", domain.ErrValidation, localPath)
	}
	if c.config.MaxUploadSize > 0 && info.Size() > c.config.MaxUploadSize {
		return 0, fmt.Errorf("%w: %s is %d bytes, limit is %d", domain.ErrValidation, localPath, info.Size(), c.config.MaxUploadSize)
	}

	if len(c.allowed) > 0 {
		ext := strings.ToLower(filepath.Ext(localPath))
		if !slices.Contains(c.allowed, ext) {
			return 0, fmt.Errorf("%w: extension %q is not allowed (allowed: %s)", domain.ErrValidation, ext, strings.Join(c.allowed, ", "))
		}
	}

	if err := domain.ValidateFilename(filepath.Base(localPath)); err != nil {
		return 0, err
	}

	return info.Size(), nil
}

// Upload stores localPath on the server under its base name.
func (c *TCPClient) Upload(localPath string, onProgress domain.ProgressFunc) (*domain.TransferProgress, error) {
	size, err := c.ValidateUpload(localPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceRead, err)
	}
	defer file.Close()

	remoteName := filepath.Base(localPath)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, domain.ErrNotConnected
	}

	if err := WriteTokens(c.conn, domain.CmdUpload, remoteName, strconv.FormatInt(size, 10)); err != nil {
		return nil, c.fail(err)
	}
	if err := c.expect(domain.StatusOK); err != nil {
		return nil, err
	}

	monitor := NewPerformanceMonitor(remoteName, size)
	report, complete := holdCompletion(monitor.Track(onProgress))
	if err := SendBody(c.conn, file, size, c.config.ChunkSize, report); err != nil {
		return nil, c.fail(err)
	}

	if err := c.expect(domain.StatusUploadOK); err != nil {
		return nil, err
	}
	complete()

	progress := monitor.GetProgress()
	c.log.Infof("Uploaded %s (%d bytes, %.2f MB/s)", remoteName, size, progress.Bitrate)
	return progress, nil
}

// Download fetches remoteName into localPath, or into the download directory
// when localPath is empty. Bytes land in a temporary file that is renamed
// into place only after the whole body has arrived.
func (c *TCPClient) Download(remoteName, localPath string, onProgress domain.ProgressFunc) (*domain.TransferProgress, error) {
	if err := domain.ValidateFilename(remoteName); err != nil {
		return nil, err
	}
	if localPath == "" {
		localPath = filepath.Join(c.config.DownloadDir, remoteName)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, domain.ErrNotConnected
	}

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSinkWrite, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(localPath)+".part-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSinkWrite, err)
	}

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := WriteTokens(c.conn, domain.CmdDownload, remoteName); err != nil {
		return nil, c.fail(err)
	}

	status, err := ReadStatus(c.reader, c.config.MaxTokenSize)
	if err != nil {
		var replyErr *domain.ReplyError
		if errors.As(err, &replyErr) {
			return nil, err
		}
		return nil, c.fail(err)
	}
	switch status {
	case domain.StatusOK:
	case domain.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, remoteName)
	default:
		return nil, c.fail(fmt.Errorf("%w: unexpected reply %q to DOWNLOAD", domain.ErrProtocol, status))
	}

	total, err := ReadLength(c.reader)
	if err != nil {
		return nil, c.fail(err)
	}

	monitor := NewPerformanceMonitor(remoteName, total)
	if _, err := ReceiveBody(c.reader, tmp, total, c.config.BufferSize, monitor.Track(onProgress)); err != nil {
		return nil, c.fail(err)
	}

	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSinkWrite, err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSinkWrite, err)
	}
	committed = true

	progress := monitor.GetProgress()
	c.log.Infof("Downloaded %s to %s (%d bytes, %.2f MB/s)", remoteName, localPath, total, progress.Bitrate)
	return progress, nil
}

// expect reads a status and checks it against want. An ERROR reply is
// returned as *domain.ReplyError and leaves the connection usable; anything
// else that goes wrong closes it.
func (c *TCPClient) expect(want string) error {
	status, err := ReadStatus(c.reader, c.config.MaxTokenSize)
	if err != nil {
		var replyErr *domain.ReplyError
		if errors.As(err, &replyErr) {
			return err
		}
		return c.fail(err)
	}

	if status != want {
		return c.fail(fmt.Errorf("%w: expected %s, got %q", domain.ErrProtocol, want, status))
	}
	return nil
}

// fail drops the connection after an error that leaves the stream in an
// unknown state. Later calls return ErrNotConnected.
func (c *TCPClient) fail(err error) error {
	if c.conn != nil {
		c.conn.Close()
		c.conn, c.reader = nil, nil
	}
	return err
}

// holdCompletion forwards partial progress and keeps back the final 100
// until complete is called, so an upload the server refuses after the last
// byte never reports completion.
func holdCompletion(next domain.ProgressFunc) (report domain.ProgressFunc, complete func()) {
	report = func(percent float64) {
		if percent < 100 {
			next(percent)
		}
	}
	complete = func() { next(100) }
	return report, complete
}

func eofAsConnection(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: server closed the connection", domain.ErrConnection)
	}
	return err
}
