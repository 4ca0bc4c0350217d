package domain

import (
	"context"
	"io"
	"net"
	"time"
)

type Server interface {
	Listen() error
	Start(ctx context.Context) error
	Stop() error
	Addr() net.Addr
}

type Client interface {
	Connect(ctx context.Context, addr string) error
	Disconnect() error
	Connected() bool
	List() ([]string, error)
	Upload(localPath string, onProgress ProgressFunc) (*TransferProgress, error)
	Download(remoteName, localPath string, onProgress ProgressFunc) (*TransferProgress, error)
}

type ConnectionManager interface {
	HandleConnection(ctx context.Context, conn net.Conn) error
}

type ConnInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ConnectionRegistry is the single owner of the live-connection set.
type ConnectionRegistry interface {
	Add(info ConnInfo, conn io.Closer) int
	Remove(id string) int
	Count() int
	List() []ConnInfo
	CloseAll()
}

type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

type TransferProgress struct {
	FileName    string
	TotalBytes  int64
	Transferred int64
	StartTime   time.Time
	Bitrate     float64
	Percentage  float64
}

// Upload is a staged store entry. Nothing is visible under the final name
// until Commit succeeds.
type Upload interface {
	io.Writer
	Commit() error
	Abort() error
}

type FileStore interface {
	ValidateName(name string) error
	List() ([]string, error)
	Open(name string) (io.ReadCloser, *FileInfo, error)
	Create(name string) (Upload, error)
}
