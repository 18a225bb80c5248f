package cache

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStorePutAndGet(t *testing.T) {
	store := newTestStore(t)
	key := "pic.jpeg"

	modTime := time.Now().Add(-time.Hour).UTC()
	payload := []byte("payload")
	if _, err := store.Put(context.Background(), key, bytes.NewReader(payload), PutOptions{ModTime: modTime}); err != nil {
		t.Fatalf("put error: %v", err)
	}

	result, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	defer result.Reader.Close()

	body, err := io.ReadAll(result.Reader)
	if err != nil {
		t.Fatalf("read cached body error: %v", err)
	}
	if string(body) != string(payload) {
		t.Fatalf("cached payload mismatch: %s", string(body))
	}
	if result.Entry.SizeBytes != int64(len(payload)) {
		t.Fatalf("size mismatch: %d", result.Entry.SizeBytes)
	}
	if !result.Entry.ModTime.Equal(modTime) {
		t.Fatalf("modtime mismatch: expected %v got %v", modTime, result.Entry.ModTime)
	}
}

func TestStorePutOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, payload := range []string{"first", "second"} {
		if _, err := store.Put(ctx, "timestamp.txt", bytes.NewReader([]byte(payload)), PutOptions{}); err != nil {
			t.Fatalf("put error: %v", err)
		}
	}
	result, err := store.Get(ctx, "timestamp.txt")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	defer result.Reader.Close()
	body, _ := io.ReadAll(result.Reader)
	if string(body) != "second" {
		t.Fatalf("expected last write to win, got %s", string(body))
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "missing.jpeg")
	if err == nil || err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)
	key := "cache/remove"
	if _, err := store.Put(context.Background(), key, bytes.NewReader([]byte("data")), PutOptions{}); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := store.Remove(context.Background(), key); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if _, err := store.Get(context.Background(), key); err == nil || err != ErrNotFound {
		t.Fatalf("expected not found after remove, got %v", err)
	}
}

func TestStoreIgnoresDirectories(t *testing.T) {
	store := newTestStore(t)
	key := "nested"

	fs, ok := store.(*fileStore)
	if !ok {
		t.Fatalf("unexpected store type %T", store)
	}

	filePath, err := fs.entryPath(key)
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	if err := os.MkdirAll(filePath, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	if _, err := store.Get(context.Background(), key); err == nil || err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
}

func TestStoreAcceptsAbsoluteKeys(t *testing.T) {
	store := newTestStore(t)
	target := filepath.Join(t.TempDir(), "elsewhere", "pic.jpeg")

	entry, err := store.Put(context.Background(), target, bytes.NewReader([]byte("abs")), PutOptions{})
	if err != nil {
		t.Fatalf("put error: %v", err)
	}
	if entry.Location != target {
		t.Fatalf("expected location %s, got %s", target, entry.Location)
	}
	if data, err := os.ReadFile(target); err != nil || string(data) != "abs" {
		t.Fatalf("expected file at absolute key, data=%q err=%v", data, err)
	}
}

func TestStoreRejectsEscapingKeys(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Put(context.Background(), "../outside.jpeg", bytes.NewReader(nil), PutOptions{}); err == nil {
		t.Fatalf("expected error for key escaping storage root")
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
