// Package export persists finished simulation results to external sinks.
package export

import (
	"context"
	"errors"
	"time"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

// Record is one finished run as written to a sink
type Record struct {
	RunID      string         `json:"run_id"`
	Scenario   string         `json:"scenario,omitempty"`
	FinishedAt time.Time      `json:"finished_at"`
	Result     *models.Result `json:"result"`
}

// ResultWriter is implemented by every sink
type ResultWriter interface {
	WriteResult(ctx context.Context, rec Record) error
	Close() error
}

// MultiWriter fans a record out to several writers, stopping at the first failure
type MultiWriter struct {
	writers []ResultWriter
}

// NewMultiWriter creates a new MultiWriter
func NewMultiWriter(writers ...ResultWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Len returns the number of sinks
func (m *MultiWriter) Len() int {
	return len(m.writers)
}

// WriteResult sends the record to all writers
func (m *MultiWriter) WriteResult(ctx context.Context, rec Record) error {
	for _, w := range m.writers {
		if err := w.WriteResult(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer and returns the combined errors
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
