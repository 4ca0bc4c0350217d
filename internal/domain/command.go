package domain

import (
	"context"
	"io"
)

const (
	CmdList       = "LIST"
	CmdUpload     = "UPLOAD"
	CmdDownload   = "DOWNLOAD"
	CmdDisconnect = "DISCONNECT"
)

const (
	StatusOK       = "OK"
	StatusUploadOK = "UPLOAD_OK"
	StatusNotFound = "FILE_NOT_FOUND"
	StatusError    = "ERROR"
)

// ProgressFunc receives the transferred share of a file in percent, 0..100.
type ProgressFunc func(percent float64)

type Command interface {
	Execute(ctx context.Context, sess Session) error
	Name() string
}

type CommandHandler interface {
	HandleCommand(ctx context.Context, cmd string, sess Session) error
	RegisterCommand(command Command)
}

// Session is one server-side connection as seen by a command.
type Session interface {
	ID() string
	RemoteAddr() string

	ReadToken() (string, error)
	WriteTokens(tokens ...string) error

	ReadLength() (int64, error)
	ReceiveBody(dst io.Writer, total int64, onProgress ProgressFunc) (int64, error)
	SendFile(src io.Reader, total int64, onProgress ProgressFunc) error

	// Progress returns a callback that publishes progress events for file.
	Progress(command, file string) ProgressFunc
}
