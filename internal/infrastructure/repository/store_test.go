package repository

import (
	"NSSaDS/fileshare/internal/domain"
	"NSSaDS/fileshare/pkg/logger"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func put(t *testing.T, s *Store, name, content string) {
	t.Helper()
	up, err := s.Create(name)
	if err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
	if _, err := io.WriteString(up, content); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := up.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestCreateCommitListOpen(t *testing.T) {
	s := newTestStore(t)

	names, err := s.List()
	if err != nil || len(names) != 0 {
		t.Fatalf("empty store List = %v, %v", names, err)
	}

	put(t, s, "b.txt", "bee")
	put(t, s, "a.txt", "hello")

	names, err = s.List()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a.txt", "b.txt"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("List = %v, want %v", names, want)
	}

	r, info, err := s.Open("a.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if info.Size != 5 {
		t.Errorf("size = %d, want 5", info.Size)
	}
	data, _ := io.ReadAll(r)
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
}

func TestStagedUploadInvisibleUntilCommit(t *testing.T) {
	s := newTestStore(t)

	up, err := s.Create("draft.txt")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(up, "partial")

	names, _ := s.List()
	if len(names) != 0 {
		t.Fatalf("staging file visible: %v", names)
	}
	if _, _, err := s.Open("draft.txt"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Open before commit = %v, want ErrNotFound", err)
	}

	if err := up.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Fatalf("abort left files behind: %d entries", len(entries))
	}
}

func TestCommitReplacesPriorVersion(t *testing.T) {
	s := newTestStore(t)
	put(t, s, "v.txt", "one")
	put(t, s, "v.txt", "two!")

	r, info, err := s.Open("v.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "two!" || info.Size != 4 {
		t.Fatalf("got %q (%d bytes)", data, info.Size)
	}
}

func TestOpenMissing(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.Open("missing.txt"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Open missing = %v, want ErrNotFound", err)
	}
	if _, _, err := s.Open("../x"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Open traversal = %v, want ErrValidation", err)
	}
	if s.locks.size() != 0 {
		t.Fatalf("lock leaked on failed open")
	}
}

func TestCommitWaitsForReaders(t *testing.T) {
	s := newTestStore(t)
	put(t, s, "shared.bin", "old")

	r, _, err := s.Open("shared.bin")
	if err != nil {
		t.Fatal(err)
	}

	up, err := s.Create("shared.bin")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(up, "new")

	committed := make(chan error, 1)
	go func() { committed <- up.Commit() }()

	select {
	case <-committed:
		t.Fatal("commit finished while a reader held the name")
	case <-time.After(50 * time.Millisecond):
	}

	data, _ := io.ReadAll(r)
	if string(data) != "old" {
		t.Fatalf("reader saw %q", data)
	}
	r.Close()

	if err := <-committed; err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if s.locks.size() != 0 {
		t.Fatalf("lock table not drained: %d", s.locks.size())
	}
}

func TestConcurrentDistinctUploads(t *testing.T) {
	s := newTestStore(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			up, err := s.Create(string(rune('a'+i)) + ".dat")
			if err != nil {
				t.Error(err)
				return
			}
			io.WriteString(up, strings.Repeat("x", i))
			if err := up.Commit(); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	names, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != n {
		t.Fatalf("List returned %d names, want %d", len(names), n)
	}
}

func TestCleanupRemovesStaleStaging(t *testing.T) {
	s := newTestStore(t)
	put(t, s, "keep.txt", "k")
	os.WriteFile(filepath.Join(s.Dir(), domain.StagingPrefix+"stale"), []byte("junk"), 0644)

	removed, err := s.Cleanup()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	names, _ := s.List()
	if !reflect.DeepEqual(names, []string{"keep.txt"}) {
		t.Fatalf("List = %v", names)
	}
}

func TestWatcherPublishesStoreChanges(t *testing.T) {
	s := newTestStore(t)

	events := make(chan domain.Event, 8)
	w, err := NewWatcher(s, domain.ObserverFunc(func(e domain.Event) { events <- e }), logger.Discard())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.window = 10 * time.Millisecond
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	put(t, s, "watched.txt", "w")

	select {
	case e := <-events:
		if e.Type != domain.EventStoreChanged {
			t.Fatalf("event type = %s", e.Type)
		}
		if !reflect.DeepEqual(e.Files, []string{"watched.txt"}) {
			t.Fatalf("files = %v", e.Files)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no store_changed event")
	}
}
