package network

import (
	"NSSaDS/fileshare/internal/domain"
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

const (
	DefaultChunkSize  = 8192
	DefaultBufferSize = 4096
)

// Send writes total as a length token and then streams exactly total bytes
// from src in chunks of chunkSize, reporting progress after every chunk.
func Send(w io.Writer, src io.Reader, total int64, chunkSize int, onProgress domain.ProgressFunc) error {
	if total < 0 {
		return fmt.Errorf("%w: negative file length %d", domain.ErrSourceRead, total)
	}

	if err := WriteTokens(w, strconv.FormatInt(total, 10)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIO, err)
	}

	return SendBody(w, src, total, chunkSize, onProgress)
}

// SendBody streams the raw bytes that follow a length token.
func SendBody(w io.Writer, src io.Reader, total int64, chunkSize int, onProgress domain.ProgressFunc) error {
	if total == 0 {
		report(onProgress, 0, 0)
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	buffer := make([]byte, min(int64(chunkSize), total))
	var sent int64

	for sent < total {
		want := min(int64(len(buffer)), total-sent)

		n, readErr := io.ReadFull(src, buffer[:want])
		if n > 0 {
			if _, err := w.Write(buffer[:n]); err != nil {
				return fmt.Errorf("%w: sent %d of %d bytes: %w", domain.ErrIO, sent, total, err)
			}
			sent += int64(n)
			report(onProgress, sent, total)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: source ended after %d of %d bytes", domain.ErrSourceRead, sent, total)
			}
			return fmt.Errorf("%w: %w", domain.ErrSourceRead, readErr)
		}
	}

	return nil
}

// Receive reads a length token and then exactly that many bytes into dst.
func Receive(r *bufio.Reader, dst io.Writer, bufferSize int, onProgress domain.ProgressFunc) (int64, error) {
	total, err := ReadLength(r)
	if err != nil {
		return 0, err
	}

	return ReceiveBody(r, dst, total, bufferSize, onProgress)
}

// ReceiveBody copies exactly total bytes from r to dst using reads no larger
// than bufferSize. It returns the number of bytes consumed from r, which on a
// sink failure includes the chunk that could not be written.
func ReceiveBody(r io.Reader, dst io.Writer, total int64, bufferSize int, onProgress domain.ProgressFunc) (int64, error) {
	if total == 0 {
		report(onProgress, 0, 0)
		return 0, nil
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	buffer := make([]byte, min(int64(bufferSize), total))
	var received int64

	for received < total {
		want := min(int64(len(buffer)), total-received)

		n, readErr := r.Read(buffer[:want])
		if n > 0 {
			if _, err := dst.Write(buffer[:n]); err != nil {
				return received + int64(n), fmt.Errorf("%w: %w", domain.ErrSinkWrite, err)
			}
			received += int64(n)
			report(onProgress, received, total)
		}

		if readErr != nil && received < total {
			return received, fmt.Errorf("%w: received %d of %d bytes: %w", domain.ErrTruncatedTransfer, received, total, readErr)
		}
	}

	return received, nil
}

func report(onProgress domain.ProgressFunc, done, total int64) {
	if onProgress != nil {
		onProgress(Percent(done, total))
	}
}

// Percent is done/total in percent. It is exactly 100 only when done has
// reached total; partial values are clamped below 100 so float rounding on
// very large files never reports completion early.
func Percent(done, total int64) float64 {
	if total <= 0 || done >= total {
		return 100
	}

	p := float64(done) / float64(total) * 100
	if p >= 100 {
		p = math.Nextafter(100, 0)
	}
	return p
}
