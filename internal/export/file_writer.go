package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileWriter appends records to a JSONL file
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter opens path for appending, creating it if needed
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open result file %s: %w", path, err)
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// WriteResult writes the record as one JSON line
func (w *FileWriter) WriteResult(_ context.Context, rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("write result %s: %w", rec.RunID, err)
	}
	return nil
}

// Close closes the underlying file
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
