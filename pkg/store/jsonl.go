package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/audit"
)

// JSONL writes audit records as JSON lines to an append-only file. Suitable
// for shipping to a log collector.
type JSONL struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewJSONL creates a JSONL store writing to path. The file is created if it
// does not exist and appended to if it does.
func NewJSONL(path string) (*JSONL, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &JSONL{file: file, encoder: json.NewEncoder(file)}, nil
}

// Store appends the record as one JSON line.
func (s *JSONL) Store(_ context.Context, rec *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("store: jsonl store is closed")
	}
	if err := s.encoder.Encode(rec); err != nil {
		return fmt.Errorf("store: encode record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	_ = s.file.Sync() // best effort; the close error is what matters
	err := s.file.Close()
	s.file = nil
	return err
}

var _ audit.Store = (*JSONL)(nil)
