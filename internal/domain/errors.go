package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConnection = errors.New("connection error")
	ErrProtocol   = errors.New("protocol error")
	ErrValidation = errors.New("validation error")
	ErrTransfer   = errors.New("transfer error")
	ErrNotFound   = errors.New("file not found")

	ErrIO                = fmt.Errorf("%w: connection i/o failed", ErrTransfer)
	ErrSourceRead        = fmt.Errorf("%w: source read failed", ErrTransfer)
	ErrTruncatedTransfer = fmt.Errorf("%w: truncated transfer", ErrTransfer)
	ErrSinkWrite         = fmt.Errorf("%w: sink write failed", ErrTransfer)

	ErrNotConnected = fmt.Errorf("%w: not connected to server", ErrConnection)
)

// ReplyError is a command failure that is reported to the peer as an ERROR
// status with Message. The connection stays usable afterwards.
type ReplyError struct {
	Message string
	Err     error
}

func NewReplyError(err error) *ReplyError {
	return &ReplyError{Message: err.Error(), Err: err}
}

func (e *ReplyError) Error() string {
	return "server error: " + e.Message
}

func (e *ReplyError) Unwrap() error {
	return e.Err
}
