package output

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"ListingScraper/internal/models"
)

// Sink collects the records of one run and writes them to disk once.
type Sink struct {
	path string

	mu      sync.Mutex
	records []models.ProductRecord
	flushed bool
}

// NewSink returns a sink that will write to path.
func NewSink(path string) *Sink {
	return &Sink{path: path, records: []models.ProductRecord{}}
}

// Path is the file the sink writes to.
func (s *Sink) Path() string {
	return s.path
}

// Add appends rec. Records added after Flush are dropped.
func (s *Sink) Add(rec models.ProductRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flushed {
		log.Printf("Output already written, dropping record %q", rec.Title)
		return
	}
	s.records = append(s.records, rec)
}

// Records returns a copy of the collected records in insertion order.
func (s *Sink) Records() []models.ProductRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ProductRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len is the number of records collected so far.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Flush writes the collected records as a JSON array. Only the first call
// writes; later calls are no-ops. The file is replaced atomically so a
// reader never sees a partial array.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flushed {
		return nil
	}
	s.flushed = true

	if err := writeJSON(s.path, s.records); err != nil {
		return err
	}
	log.Printf("Saved %d products to %s", len(s.records), s.path)
	return nil
}

func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode products: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
