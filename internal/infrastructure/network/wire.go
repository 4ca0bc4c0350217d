package network

import (
	"NSSaDS/fileshare/internal/domain"
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

// Every token on the wire is a netstring: "<len>:<bytes>,". File bodies are
// the only unframed data; they follow a length token and are exactly that
// many raw bytes.

const (
	maxLengthDigits     = 20
	defaultMaxTokenSize = 16 * 1024 * 1024
)

// WriteTokens frames all tokens into a single write.
func WriteTokens(w io.Writer, tokens ...string) error {
	size := 0
	for _, token := range tokens {
		size += len(token) + maxLengthDigits + 2
	}

	buf := make([]byte, 0, size)
	for _, token := range tokens {
		buf = strconv.AppendInt(buf, int64(len(token)), 10)
		buf = append(buf, ':')
		buf = append(buf, token...)
		buf = append(buf, ',')
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("%w: failed to write token: %w", domain.ErrConnection, err)
	}
	return nil
}

// ReadToken reads one netstring of at most maxSize bytes (a default limit
// applies when maxSize <= 0). A clean EOF before the first byte is returned
// as io.EOF so callers can tell an orderly close from a broken frame.
func ReadToken(r *bufio.Reader, maxSize int) (string, error) {
	if maxSize <= 0 {
		maxSize = defaultMaxTokenSize
	}

	length := 0
	digits := 0

	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if digits == 0 {
					return "", io.EOF
				}
				return "", fmt.Errorf("%w: connection closed inside token length", domain.ErrProtocol)
			}
			return "", fmt.Errorf("%w: %w", domain.ErrConnection, err)
		}

		if b == ':' {
			if digits == 0 {
				return "", fmt.Errorf("%w: empty token length", domain.ErrProtocol)
			}
			break
		}
		if b < '0' || b > '9' {
			return "", fmt.Errorf("%w: unexpected byte %q in token length", domain.ErrProtocol, b)
		}
		if digits == 1 && length == 0 {
			return "", fmt.Errorf("%w: token length has a leading zero", domain.ErrProtocol)
		}

		digits++
		if digits > maxLengthDigits {
			return "", fmt.Errorf("%w: token length too long", domain.ErrProtocol)
		}
		d := int(b - '0')
		if length > maxSize/10 || length*10 > maxSize-d {
			return "", fmt.Errorf("%w: token exceeds limit of %d bytes", domain.ErrProtocol, maxSize)
		}
		length = length*10 + d
	}

	buf := make([]byte, length+1)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", fmt.Errorf("%w: connection closed inside token", domain.ErrProtocol)
		}
		return "", fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}

	if buf[length] != ',' {
		return "", fmt.Errorf("%w: missing token terminator", domain.ErrProtocol)
	}
	if !utf8.Valid(buf[:length]) {
		return "", fmt.Errorf("%w: token is not valid UTF-8", domain.ErrProtocol)
	}

	return string(buf[:length]), nil
}

// ReadLength reads a file-length token.
func ReadLength(r *bufio.Reader) (int64, error) {
	token, err := ReadToken(r, maxLengthDigits)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: connection closed before file length", domain.ErrTruncatedTransfer)
		}
		return 0, err
	}

	size, err := strconv.ParseInt(token, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("%w: invalid file length %q", domain.ErrProtocol, token)
	}

	return size, nil
}

// ReadStatus reads a status token and, for ERROR, the message that follows it.
func ReadStatus(r *bufio.Reader, maxSize int) (string, error) {
	status, err := ReadToken(r, maxSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: server closed the connection", domain.ErrConnection)
		}
		return "", err
	}

	if status != domain.StatusError {
		return status, nil
	}

	message, err := ReadToken(r, maxSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: server closed the connection", domain.ErrConnection)
		}
		return "", err
	}

	return status, &domain.ReplyError{Message: message}
}
