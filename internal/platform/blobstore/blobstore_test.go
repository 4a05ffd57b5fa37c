package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	disk, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"disk":   disk,
	}
}

func TestPutGetDelete(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()
			content := []byte("scanned referral letter")

			size, hash, err := store.Put(ctx, id, bytes.NewReader(content))
			if err != nil {
				t.Fatalf("Put: %v", err)
			}
			if size != int64(len(content)) {
				t.Errorf("size = %d, want %d", size, len(content))
			}
			if len(hash) != 64 {
				t.Errorf("hash %q is not sha256 hex", hash)
			}

			rc, err := store.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			got, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if !bytes.Equal(got, content) {
				t.Errorf("content mismatch: %q", got)
			}

			if err := store.Delete(ctx, id); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := store.Get(ctx, id); err != ErrBlobNotFound {
				t.Errorf("Get after delete = %v, want ErrBlobNotFound", err)
			}
			if err := store.Delete(ctx, id); err != ErrBlobNotFound {
				t.Errorf("second Delete = %v, want ErrBlobNotFound", err)
			}
		})
	}
}

func TestPutRejectsOversize(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			huge := strings.NewReader(strings.Repeat("x", MaxFileSize+1))
			_, _, err := store.Put(context.Background(), uuid.New(), huge)
			if err != ErrFileTooLarge {
				t.Errorf("err = %v, want ErrFileTooLarge", err)
			}
		})
	}
}

func TestGetUnknownID(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(context.Background(), uuid.New()); err != ErrBlobNotFound {
				t.Errorf("err = %v, want ErrBlobNotFound", err)
			}
		})
	}
}
