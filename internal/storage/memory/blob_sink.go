package memory

import (
	"context"
	"sync"

	"github.com/davmora/siteforge/internal/sitegen"
)

// BlobSink stores artifacts in-memory and returns pseudo URIs.
type BlobSink struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobSink creates a new in-memory blob sink.
func NewBlobSink() *BlobSink {
	return &BlobSink{data: make(map[string][]byte)}
}

// Put persists the content and returns a memory:// locator.
func (s *BlobSink) Put(_ context.Context, path string, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), data...)
	return "memory://" + path, nil
}

// Get returns the stored content for path.
func (s *BlobSink) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	if !ok {
		return nil, sitegen.NewNotFoundError("blob", path)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the content for path.
func (s *BlobSink) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[path]; !ok {
		return sitegen.NewNotFoundError("blob", path)
	}
	delete(s.data, path)
	return nil
}

// Len reports how many objects the sink holds.
func (s *BlobSink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
