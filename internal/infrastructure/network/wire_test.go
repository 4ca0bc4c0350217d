package network

import (
	"NSSaDS/fileshare/internal/domain"
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestWriteTokensFraming(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTokens(&buf, "LIST", "", "héllo"); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "4:LIST,0:,6:héllo,"; got != want {
		t.Fatalf("framed = %q, want %q", got, want)
	}
}

func TestReadTokenRoundTripWithShortReads(t *testing.T) {
	tokens := []string{"UPLOAD", "a.txt", "", "name with spaces", "multi\nline"}

	var buf bytes.Buffer
	if err := WriteTokens(&buf, tokens...); err != nil {
		t.Fatal(err)
	}

	r := bufio.NewReaderSize(iotest.OneByteReader(&buf), 16)
	for _, want := range tokens {
		got, err := ReadToken(r, 0)
		if err != nil {
			t.Fatalf("ReadToken: %v", err)
		}
		if got != want {
			t.Fatalf("token = %q, want %q", got, want)
		}
	}

	if _, err := ReadToken(r, 0); err != io.EOF {
		t.Fatalf("after last token err = %v, want io.EOF", err)
	}
}

func TestReadTokenMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
	}{
		{"leading zero", "01:a,", 0},
		{"non digit", "x:", 0},
		{"empty length", ":a,", 0},
		{"missing terminator", "3:abcd", 0},
		{"closed inside token", "3:ab", 0},
		{"closed inside length", "12", 0},
		{"over limit", "100:", 10},
		{"single digit over limit", "9:123456789,", 5},
		{"too many digits", "123456789012345678901:", 1 << 62},
		{"invalid utf8", "2:\xff\xfe,", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadToken(reader(tt.input), tt.max)
			if !errors.Is(err, domain.ErrProtocol) {
				t.Fatalf("err = %v, want ErrProtocol", err)
			}
		})
	}
}

func TestReadTokenAtLimit(t *testing.T) {
	got, err := ReadToken(reader("5:12345,"), 5)
	if err != nil || got != "12345" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestReadTokenZeroLength(t *testing.T) {
	got, err := ReadToken(reader("0:,"), 0)
	if err != nil || got != "" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestReadLength(t *testing.T) {
	n, err := ReadLength(reader("5:12345,"))
	if err != nil || n != 12345 {
		t.Fatalf("ReadLength = %d, %v", n, err)
	}

	if _, err := ReadLength(reader("2:-1,")); !errors.Is(err, domain.ErrProtocol) {
		t.Fatalf("negative length err = %v", err)
	}
	if _, err := ReadLength(reader("3:abc,")); !errors.Is(err, domain.ErrProtocol) {
		t.Fatalf("non numeric length err = %v", err)
	}
	if _, err := ReadLength(reader("")); !errors.Is(err, domain.ErrTruncatedTransfer) {
		t.Fatalf("closed before length err = %v", err)
	}
}

func TestReadStatus(t *testing.T) {
	status, err := ReadStatus(reader("2:OK,"), 0)
	if err != nil || status != domain.StatusOK {
		t.Fatalf("ReadStatus = %q, %v", status, err)
	}

	_, err = ReadStatus(reader("5:ERROR,4:oops,"), 0)
	var replyErr *domain.ReplyError
	if !errors.As(err, &replyErr) || replyErr.Message != "oops" {
		t.Fatalf("ERROR reply err = %v", err)
	}

	if _, err := ReadStatus(reader(""), 0); !errors.Is(err, domain.ErrConnection) {
		t.Fatalf("closed connection err = %v", err)
	}
	if _, err := ReadStatus(reader("5:ERROR,"), 0); !errors.Is(err, domain.ErrConnection) {
		t.Fatalf("ERROR without message err = %v", err)
	}
}
