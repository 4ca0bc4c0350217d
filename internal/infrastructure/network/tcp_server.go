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
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/netutil"
)

type TCPServer struct {
	config   *config.ServerConfig
	connMgr  domain.ConnectionManager
	registry domain.ConnectionRegistry
	log      *logger.Logger

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	done     chan struct{}
	wg       sync.WaitGroup
}

func NewTCPServer(cfg *config.ServerConfig, connMgr domain.ConnectionManager, registry domain.ConnectionRegistry, log *logger.Logger) *TCPServer {
	return &TCPServer{
		config:   cfg,
		connMgr:  connMgr,
		registry: registry,
		log:      log,
	}
}

// Listen binds the listening socket. Start calls it when needed; calling it
// first lets the caller learn the bound address before serving.
func (s *TCPServer) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	ln = &keepAliveListener{
		Listener: ln,
		opts: keepAliveOptions{
			Enabled:  s.config.KeepAlive,
			Idle:     s.config.KeepAliveIdle,
			Interval: s.config.KeepAliveIntvl,
			Count:    s.config.KeepAliveCount,
		},
		onErr: func(conn net.Conn, err error) {
			s.log.Warnf("Failed to set keepalive for %s: %v", conn.RemoteAddr(), err)
		},
	}

	if s.config.TLS.Enabled {
		tlsCfg, err := serverTLSConfig(s.config.TLS)
		if err != nil {
			ln.Close()
			return err
		}
		ln = tls.NewListener(ln, tlsCfg)
	}

	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}

	s.listener = ln
	return nil
}

func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start accepts connections until ctx is cancelled or Stop is called. Each
// connection is served on its own goroutine.
func (s *TCPServer) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	listener := s.listener
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()
	defer close(done)

	s.log.Infof("Server started on %s", listener.Addr())

	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if isTimeout(err) {
				s.log.Warnf("Accept error: %v", err)
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept error: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.connMgr.HandleConnection(ctx, conn)
		}()
	}
}

// Stop closes the listener and every live connection, then waits for the
// handlers to finish.
func (s *TCPServer) Stop() error {
	s.mu.Lock()
	listener, cancel, done := s.listener, s.cancel, s.done
	s.mu.Unlock()

	var err error
	if listener != nil {
		if closeErr := listener.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			err = closeErr
		}
	}
	if cancel != nil {
		cancel()
		<-done
	}

	s.registry.CloseAll()
	s.wg.Wait()

	return err
}

type TCPConnectionManager struct {
	config   *config.ServerConfig
	handler  domain.CommandHandler
	registry domain.ConnectionRegistry
	observer domain.Observer
	log      *logger.Logger
}

func NewTCPConnectionManager(cfg *config.ServerConfig, handler domain.CommandHandler, registry domain.ConnectionRegistry, observer domain.Observer, log *logger.Logger) *TCPConnectionManager {
	return &TCPConnectionManager{
		config:   cfg,
		handler:  handler,
		registry: registry,
		observer: observer,
		log:      log,
	}
}

// HandleConnection runs the command loop for one client. Failures are
// contained here: the connection is closed and removed from the registry,
// nothing propagates to other clients.
func (cm *TCPConnectionManager) HandleConnection(ctx context.Context, conn net.Conn) error {
	info := domain.ConnInfo{
		ID:          uuid.NewString(),
		RemoteAddr:  conn.RemoteAddr().String(),
		ConnectedAt: time.Now(),
	}

	count := cm.registry.Add(info, conn)
	cm.log.Infof("New connection from %s (%s)", info.RemoteAddr, info.ID)
	cm.notify(domain.Event{Type: domain.EventConnected, ConnID: info.ID, Remote: info.RemoteAddr})
	cm.notify(domain.Event{Type: domain.EventConnections, Count: count})

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})

	defer func() {
		stop()
		conn.Close()
		count := cm.registry.Remove(info.ID)
		cm.log.Infof("Connection closed from %s", info.RemoteAddr)
		cm.notify(domain.Event{Type: domain.EventDisconnected, ConnID: info.ID, Remote: info.RemoteAddr})
		cm.notify(domain.Event{Type: domain.EventConnections, Count: count})
	}()

	stream := withIdleTimeout(conn, cm.config.SessionTimeout)
	sess := &tcpSession{
		conn:     stream,
		reader:   bufio.NewReaderSize(stream, max(cm.config.BufferSize, 16)),
		info:     info,
		config:   cm.config,
		observer: cm.observer,
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		cmd, err := sess.ReadToken()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				cm.log.Debugf("Client %s closed the connection", info.RemoteAddr)
				return nil
			case isTimeout(err):
				cm.log.Infof("Client %s timeout", info.RemoteAddr)
				return nil
			case errors.Is(err, net.ErrClosed) || ctx.Err() != nil:
				return nil
			default:
				cm.log.Warnf("Read error from %s: %v", info.RemoteAddr, err)
				return err
			}
		}

		cmd = strings.ToUpper(strings.TrimSpace(cmd))
		if !cm.dispatch(ctx, cmd, sess) {
			return nil
		}
	}
}

// dispatch runs one command and reports whether the loop should continue.
func (cm *TCPConnectionManager) dispatch(ctx context.Context, cmd string, sess *tcpSession) bool {
	err := cm.execute(ctx, cmd, sess)

	var replyErr *domain.ReplyError
	switch {
	case err == nil:
		cm.notify(domain.Event{Type: domain.EventCommandDone, ConnID: sess.info.ID, Command: cmd})
		if cmd == domain.CmdDisconnect {
			cm.log.Infof("Client %s disconnected", sess.info.RemoteAddr)
			return false
		}
		return true

	case errors.As(err, &replyErr):
		cm.log.Warnf("%s from %s failed: %s", cmd, sess.info.RemoteAddr, replyErr.Message)
		cm.notify(domain.Event{Type: domain.EventCommandFailed, ConnID: sess.info.ID, Command: cmd, Message: replyErr.Message})
		if writeErr := sess.WriteTokens(domain.StatusError, replyErr.Message); writeErr != nil {
			cm.log.Warnf("Write error to %s: %v", sess.info.RemoteAddr, writeErr)
			return false
		}
		return true

	case errors.Is(err, domain.ErrNotFound):
		cm.log.Infof("%s from %s: %v", cmd, sess.info.RemoteAddr, err)
		cm.notify(domain.Event{Type: domain.EventCommandFailed, ConnID: sess.info.ID, Command: cmd, Message: err.Error()})
		return true

	default:
		cm.log.Errorf("Error handling client %s: %v", sess.info.RemoteAddr, err)
		cm.notify(domain.Event{Type: domain.EventCommandFailed, ConnID: sess.info.ID, Command: cmd, Message: err.Error()})
		return false
	}
}

func (cm *TCPConnectionManager) execute(ctx context.Context, cmd string, sess *tcpSession) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling %s: %v", cmd, r)
		}
	}()

	return cm.handler.HandleCommand(ctx, cmd, sess)
}

func (cm *TCPConnectionManager) notify(event domain.Event) {
	if cm.observer == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	cm.observer.Notify(event)
}
