package usecase

import (
	"NSSaDS/fileshare/internal/domain"
	"NSSaDS/fileshare/pkg/logger"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

type ListCommand struct {
	store domain.FileStore
}

func (c *ListCommand) Execute(ctx context.Context, sess domain.Session) error {
	names, err := c.store.List()
	if err != nil {
		return domain.NewReplyError(err)
	}

	return sess.WriteTokens(domain.StatusOK, strings.Join(names, "\n"))
}

func (c *ListCommand) Name() string {
	return domain.CmdList
}

// UploadCommand receives a file into a staging entry and commits it once
// every byte has arrived. The filename and declared length arrive together,
// so every refusal happens before the client starts streaming the body.
type UploadCommand struct {
	store   domain.FileStore
	maxSize int64
	log     *logger.Logger
}

func (c *UploadCommand) Execute(ctx context.Context, sess domain.Session) error {
	name, err := sess.ReadToken()
	if err != nil {
		return fmt.Errorf("%w: failed to read filename: %w", domain.ErrProtocol, err)
	}

	size, err := sess.ReadLength()
	if err != nil {
		return err
	}

	if err := c.store.ValidateName(name); err != nil {
		return domain.NewReplyError(err)
	}

	if c.maxSize > 0 && size > c.maxSize {
		return domain.NewReplyError(fmt.Errorf("%w: file too large: %d bytes (limit %d)", domain.ErrValidation, size, c.maxSize))
	}

	upload, err := c.store.Create(name)
	if err != nil {
		return domain.NewReplyError(err)
	}

	if err := sess.WriteTokens(domain.StatusOK); err != nil {
		upload.Abort()
		return err
	}

	consumed, err := sess.ReceiveBody(upload, size, sess.Progress(domain.CmdUpload, name))
	if err != nil {
		upload.Abort()
		if !errors.Is(err, domain.ErrSinkWrite) {
			return err
		}
		// The client keeps sending; skip the rest so the next command lines up.
		if _, drainErr := sess.ReceiveBody(io.Discard, size-consumed, nil); drainErr != nil {
			return drainErr
		}
		return domain.NewReplyError(err)
	}

	if err := upload.Commit(); err != nil {
		return domain.NewReplyError(err)
	}

	c.log.Infof("File %s received from %s (%d bytes)", name, sess.RemoteAddr(), size)
	return sess.WriteTokens(domain.StatusUploadOK)
}

func (c *UploadCommand) Name() string {
	return domain.CmdUpload
}

type DownloadCommand struct {
	store domain.FileStore
	log   *logger.Logger
}

func (c *DownloadCommand) Execute(ctx context.Context, sess domain.Session) error {
	name, err := sess.ReadToken()
	if err != nil {
		return fmt.Errorf("%w: failed to read filename: %w", domain.ErrProtocol, err)
	}

	if err := c.store.ValidateName(name); err != nil {
		return domain.NewReplyError(err)
	}

	file, info, err := c.store.Open(name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if writeErr := sess.WriteTokens(domain.StatusNotFound); writeErr != nil {
				return writeErr
			}
			return err
		}
		return domain.NewReplyError(err)
	}
	defer file.Close()

	if err := sess.WriteTokens(domain.StatusOK); err != nil {
		return err
	}

	if err := sess.SendFile(file, info.Size, sess.Progress(domain.CmdDownload, name)); err != nil {
		return err
	}

	c.log.Infof("File %s sent to %s (%d bytes)", name, sess.RemoteAddr(), info.Size)
	return nil
}

func (c *DownloadCommand) Name() string {
	return domain.CmdDownload
}

// DisconnectCommand has no reply; the connection loop closes the socket
// once it returns.
type DisconnectCommand struct{}

func (c *DisconnectCommand) Execute(ctx context.Context, sess domain.Session) error {
	return nil
}

func (c *DisconnectCommand) Name() string {
	return domain.CmdDisconnect
}

type CommandHandler struct {
	commands map[string]domain.Command
}

func NewCommandHandler(store domain.FileStore, maxUploadSize int64, log *logger.Logger) *CommandHandler {
	handler := &CommandHandler{
		commands: make(map[string]domain.Command),
	}

	handler.RegisterCommand(&ListCommand{store: store})
	handler.RegisterCommand(&UploadCommand{store: store, maxSize: maxUploadSize, log: log})
	handler.RegisterCommand(&DownloadCommand{store: store, log: log})
	handler.RegisterCommand(&DisconnectCommand{})

	return handler
}

func (h *CommandHandler) RegisterCommand(command domain.Command) {
	h.commands[command.Name()] = command
}

func (h *CommandHandler) HandleCommand(ctx context.Context, cmd string, sess domain.Session) error {
	command, exists := h.commands[cmd]
	if !exists {
		return &domain.ReplyError{
			Message: fmt.Sprintf("unknown command: %s", cmd),
			Err:     domain.ErrProtocol,
		}
	}

	return command.Execute(ctx, sess)
}
