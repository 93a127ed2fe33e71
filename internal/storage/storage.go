// Package storage abstracts attachment storage. The service treats it as an
// opaque capability: store bytes, get back a stable id and a public URL.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/openlms/assignment-service/internal/models"
)

// FileStore is the boundary to the external file storage/CDN.
type FileStore interface {
	Store(ctx context.Context, name string, data []byte) (*models.FileRef, error)
	Delete(ctx context.Context, id string) error
}

// Error wraps a storage backend failure. Uploads are not retried; callers
// abort the surrounding write when one surfaces.
type Error struct {
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MemoryFileStore keeps uploads in process memory. Used in tests and as the
// local-development fallback when no Cloudinary credentials are configured.
type MemoryFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemoryFileStore() *MemoryFileStore {
	return &MemoryFileStore{files: make(map[string][]byte)}
}

func (m *MemoryFileStore) Store(ctx context.Context, name string, data []byte) (*models.FileRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.files[id] = data
	return &models.FileRef{
		ID:   id,
		Name: name,
		URL:  "memory://" + id,
	}, nil
}

func (m *MemoryFileStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[id]; !ok {
		return &Error{Op: "delete", Err: fmt.Errorf("no such file: %s", id)}
	}
	delete(m.files, id)
	return nil
}

// Len reports the number of stored files (test helper).
func (m *MemoryFileStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}
