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

type recorder struct {
	values []float64
}

func (r *recorder) fn(p float64) { r.values = append(r.values, p) }

func (r *recorder) check(t *testing.T, completed bool) {
	t.Helper()
	for i := 1; i < len(r.values); i++ {
		if r.values[i] < r.values[i-1] {
			t.Fatalf("progress decreased: %v", r.values)
		}
	}
	for i, v := range r.values {
		if v == 100 && (!completed || i != len(r.values)-1) {
			t.Fatalf("100 reported out of place: %v", r.values)
		}
	}
	if completed && (len(r.values) == 0 || r.values[len(r.values)-1] != 100) {
		t.Fatalf("completed transfer did not end at 100: %v", r.values)
	}
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestSendReceiveRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 1000)

	var wire bytes.Buffer
	var sent recorder
	if err := Send(&wire, bytes.NewReader(payload), int64(len(payload)), 1000, sent.fn); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent.check(t, true)
	if len(sent.values) != 16 {
		t.Errorf("sent %d progress reports, want one per chunk (16)", len(sent.values))
	}

	var out bytes.Buffer
	var received recorder
	r := bufio.NewReader(iotest.HalfReader(&wire))
	n, err := Receive(r, &out, 777, received.fn)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	received.check(t, true)

	if n != int64(len(payload)) || !bytes.Equal(out.Bytes(), payload) {
		t.Fatalf("received %d bytes, payload mismatch", n)
	}
}

func TestZeroLengthTransfer(t *testing.T) {
	var wire bytes.Buffer
	var sent recorder
	if err := Send(&wire, strings.NewReader(""), 0, 0, sent.fn); err != nil {
		t.Fatal(err)
	}
	if len(sent.values) != 1 || sent.values[0] != 100 {
		t.Fatalf("progress = %v, want [100]", sent.values)
	}
	if wire.String() != "1:0," {
		t.Fatalf("wire = %q", wire.String())
	}

	var out bytes.Buffer
	var received recorder
	n, err := Receive(bufio.NewReader(&wire), &out, 0, received.fn)
	if err != nil || n != 0 {
		t.Fatalf("Receive = %d, %v", n, err)
	}
	if len(received.values) != 1 || received.values[0] != 100 {
		t.Fatalf("progress = %v, want [100]", received.values)
	}
}

func TestSendShortSource(t *testing.T) {
	var wire bytes.Buffer
	var sent recorder
	err := Send(&wire, strings.NewReader("abcd"), 10, 3, sent.fn)
	if !errors.Is(err, domain.ErrSourceRead) || !errors.Is(err, domain.ErrTransfer) {
		t.Fatalf("err = %v, want ErrSourceRead", err)
	}
	sent.check(t, false)
}

func TestSendSourceError(t *testing.T) {
	err := Send(io.Discard, iotest.ErrReader(errors.New("bad sector")), 10, 0, nil)
	if !errors.Is(err, domain.ErrSourceRead) {
		t.Fatalf("err = %v, want ErrSourceRead", err)
	}
}

func TestSendConnectionWriteFails(t *testing.T) {
	err := Send(&failingWriter{after: 1}, strings.NewReader("abcdef"), 6, 2, nil)
	if !errors.Is(err, domain.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}

	err = Send(&failingWriter{}, strings.NewReader("abcdef"), 6, 2, nil)
	if !errors.Is(err, domain.ErrIO) {
		t.Fatalf("length write err = %v, want ErrIO", err)
	}
}

func TestReceiveTruncated(t *testing.T) {
	var out bytes.Buffer
	var received recorder
	n, err := Receive(reader("2:10,abcd"), &out, 2, received.fn)
	if !errors.Is(err, domain.ErrTruncatedTransfer) {
		t.Fatalf("err = %v, want ErrTruncatedTransfer", err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}
	received.check(t, false)
}

func TestReceiveSinkFails(t *testing.T) {
	var received recorder
	r := reader("1:6,abcdef")
	n, err := Receive(r, &failingWriter{after: 1}, 2, received.fn)
	if !errors.Is(err, domain.ErrSinkWrite) {
		t.Fatalf("err = %v, want ErrSinkWrite", err)
	}
	received.check(t, false)

	// The chunk that failed to write was still taken off the wire.
	if n != 4 {
		t.Fatalf("consumed = %d, want 4", n)
	}
	if rest, _ := io.ReadAll(r); string(rest) != "ef" {
		t.Fatalf("left on the wire = %q, want %q", rest, "ef")
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(5, 5); got != 100 {
		t.Errorf("Percent(5, 5) = %v", got)
	}
	if got := Percent(0, 0); got != 100 {
		t.Errorf("Percent(0, 0) = %v", got)
	}
	if got := Percent(1, 4); got != 25 {
		t.Errorf("Percent(1, 4) = %v", got)
	}

	const big = int64(1) << 60
	if got := Percent(big-1, big); got >= 100 {
		t.Errorf("Percent(big-1, big) = %v, want < 100", got)
	}
}

func TestThrottle(t *testing.T) {
	var out recorder
	fn := Throttle(out.fn)
	for _, p := range []float64{0.1, 0.5, 1.2, 1.9, 50, 50.5, 99.99, 100} {
		fn(p)
	}
	want := []float64{0.1, 1.2, 50, 99.99, 100}
	if len(out.values) != len(want) {
		t.Fatalf("forwarded %v, want %v", out.values, want)
	}
	for i := range want {
		if out.values[i] != want[i] {
			t.Fatalf("forwarded %v, want %v", out.values, want)
		}
	}
}

func TestPerformanceMonitor(t *testing.T) {
	pm := NewPerformanceMonitor("a.bin", 200)
	track := pm.Track(nil)
	track(50)
	if p := pm.GetProgress(); p.Transferred != 100 || p.Percentage != 50 {
		t.Fatalf("progress = %+v", p)
	}
	track(100)
	if p := pm.GetProgress(); p.Transferred != 200 || p.FileName != "a.bin" {
		t.Fatalf("progress = %+v", p)
	}
}
