// Package blobstore stores attachment content. Metadata (file name, owner
// note, uploader) lives in the database; this layer only moves bytes keyed
// by attachment id. The disk store is the production backend, the in-memory
// store backs tests and development without a writable volume.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
)

// MaxFileSize caps a single attachment at 25 MB.
const MaxFileSize = 25 * 1024 * 1024

// AllowedContentTypes lists the MIME types accepted for attachments.
var AllowedContentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"application/pdf": true,
	"text/plain":      true,
}

// Store is the contract for attachment content backends. Put returns the
// stored size and SHA-256 hex digest of the content.
type Store interface {
	Put(ctx context.Context, id uuid.UUID, content io.Reader) (size int64, hash string, err error)
	Get(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

func readLimited(content io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, "", ErrFileTooLarge
	}
	sum := sha256.Sum256(data)
	return data, fmt.Sprintf("%x", sum), nil
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[uuid.UUID][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[uuid.UUID][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, id uuid.UUID, content io.Reader) (int64, string, error) {
	data, hash, err := readLimited(content)
	if err != nil {
		return 0, "", err
	}
	s.mu.Lock()
	s.blobs[id] = data
	s.mu.Unlock()
	return int64(len(data)), hash, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, id)
	return nil
}

// DiskStore writes attachment content under a root directory, sharded by the
// first two characters of the id to keep directories small.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) path(id uuid.UUID) string {
	name := id.String()
	return filepath.Join(s.root, name[:2], name)
}

func (s *DiskStore) Put(_ context.Context, id uuid.UUID, content io.Reader) (int64, string, error) {
	data, hash, err := readLimited(content)
	if err != nil {
		return 0, "", err
	}

	path := s.path(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, "", fmt.Errorf("create shard dir: %w", err)
	}

	// Write to a temp file first so a crash never leaves a partial blob
	// at the final path.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return 0, "", fmt.Errorf("finalize blob: %w", err)
	}
	return int64(len(data)), hash, nil
}

func (s *DiskStore) Get(_ context.Context, id uuid.UUID) (io.ReadCloser, error) {
	f, err := os.Open(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *DiskStore) Delete(_ context.Context, id uuid.UUID) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return ErrBlobNotFound
	}
	return err
}
