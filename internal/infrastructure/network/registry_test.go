package network

import (
	"NSSaDS/fileshare/internal/domain"
	"encoding/json"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type countingCloser struct{ closed *atomic.Int32 }

func (c countingCloser) Close() error {
	c.closed.Add(1)
	return nil
}

func TestConnectionRegistry(t *testing.T) {
	r := NewConnectionRegistry()
	var closed atomic.Int32
	now := time.Now()

	if n := r.Add(domain.ConnInfo{ID: "b", ConnectedAt: now.Add(time.Second)}, countingCloser{&closed}); n != 1 {
		t.Fatalf("Add = %d", n)
	}
	if n := r.Add(domain.ConnInfo{ID: "a", ConnectedAt: now}, countingCloser{&closed}); n != 2 {
		t.Fatalf("Add = %d", n)
	}

	list := r.List()
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("List = %+v", list)
	}

	r.CloseAll()
	if closed.Load() != 2 {
		t.Fatalf("closed %d connections", closed.Load())
	}
	if r.Count() != 2 {
		t.Fatal("CloseAll must leave removal to the handlers")
	}

	if n := r.Remove("a"); n != 1 {
		t.Fatalf("Remove = %d", n)
	}
	if n := r.Remove("a"); n != 1 {
		t.Fatalf("second Remove = %d", n)
	}
	if n := r.Remove("b"); n != 0 {
		t.Fatalf("Remove = %d", n)
	}
}

func TestConnectionRegistryServeHTTP(t *testing.T) {
	r := NewConnectionRegistry()
	var closed atomic.Int32
	r.Add(domain.ConnInfo{ID: "c1", RemoteAddr: "127.0.0.1:4000", ConnectedAt: time.Now()}, countingCloser{&closed})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/connections", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	var got []domain.ConnInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c1" || got[0].RemoteAddr != "127.0.0.1:4000" {
		t.Fatalf("connections = %+v", got)
	}
}
