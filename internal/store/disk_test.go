package store

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
)

func newTestDiskStore(t *testing.T) *DiskStore {
	t.Helper()
	s, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDiskSetGet(t *testing.T) {
	s := newTestDiskStore(t)
	payload := []byte(`{"hello":"world"}`)

	if err := s.Set("abc123", payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, storedAt, ok, err := s.Get("abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected the entry to exist")
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %s", got)
	}
	if time.Since(storedAt) > 5*time.Second || storedAt.IsZero() {
		t.Fatalf("storedAt not recorded at write time: %v", storedAt)
	}
}

func TestDiskGetAbsent(t *testing.T) {
	s := newTestDiskStore(t)
	if _, _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("expected a clean miss, ok=%v err=%v", ok, err)
	}
}

func TestDiskOverwriteLastWriteWins(t *testing.T) {
	s := newTestDiskStore(t)
	if err := s.Set("k", []byte("old")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Set("k", []byte("new")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _, ok, err := s.Get("k")
	if err != nil || !ok {
		t.Fatalf("unexpected miss: ok=%v err=%v", ok, err)
	}
	if string(got) != "new" {
		t.Fatalf("expected the later write, got %s", got)
	}
}

func TestDiskDeleteIsIdempotent(t *testing.T) {
	s := newTestDiskStore(t)
	if err := s.Set("k", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("deleting an absent key must be a no-op, got %v", err)
	}
	if _, _, ok, _ := s.Get("k"); ok {
		t.Fatal("entry survived delete")
	}
}

func TestDiskClearAndStats(t *testing.T) {
	s := newTestDiskStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Set(fmt.Sprintf("key%d", i), []byte("payload")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Entries != 3 {
		t.Fatalf("expected 3 entries, got %d", stats.Entries)
	}
	if stats.TotalBytes <= 0 {
		t.Fatal("expected a positive byte footprint")
	}
	if stats.Path != s.Path() {
		t.Fatalf("expected path %s, got %s", s.Path(), stats.Path)
	}

	clearedAt, err := s.Clear()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clearedAt.IsZero() {
		t.Fatal("expected a clear timestamp")
	}

	stats, err = s.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Entries != 0 {
		t.Fatalf("expected an empty store after clear, got %d entries", stats.Entries)
	}
	if _, _, ok, _ := s.Get("key0"); ok {
		t.Fatal("entry survived clear")
	}
}

func TestDiskKeys(t *testing.T) {
	s := newTestDiskStore(t)
	if err := s.Set("aaa", []byte("1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Set("bbb", []byte("2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}

func TestDiskCorruptEnvelopeIsRemoved(t *testing.T) {
	s := newTestDiskStore(t)
	if err := s.Set("k", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(s.Location("k"), []byte("not an envelope"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, ok, err := s.Get("k"); err != nil || ok {
		t.Fatalf("expected a silent miss for a corrupt envelope, ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(s.Location("k")); !os.IsNotExist(err) {
		t.Fatal("corrupt file was not removed")
	}
}

func TestDiskDirectoryIsSingleOwner(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := NewDiskStore(dir); err == nil {
		t.Fatal("expected opening a locked directory to fail")
	}

	if err := s1.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("expected the directory to be reusable after close: %v", err)
	}
	s2.Close()
}

func TestDiskRejectsPathKeys(t *testing.T) {
	s := newTestDiskStore(t)
	for _, key := range []string{"", "../escape", `a\b`} {
		if err := s.Set(key, []byte("v")); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestDiskConcurrentAccess(t *testing.T) {
	s := newTestDiskStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", i%4)
			for j := 0; j < 25; j++ {
				if err := s.Set(key, []byte(fmt.Sprintf("value-%d-%d", i, j))); err != nil {
					t.Errorf("set failed: %v", err)
					return
				}
				if _, _, _, err := s.Get(key); err != nil {
					t.Errorf("get failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Entries != 4 {
		t.Fatalf("expected 4 entries after concurrent writes, got %d", stats.Entries)
	}
}
