package report

import (
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecrawl/internal/model"
)

// ErrPersist wraps every failure to write a snapshot.
var ErrPersist = errors.New("failed to persist snapshot")

// Checkpointer persists a snapshot of the crawl state.
type Checkpointer interface {
	Checkpoint(ctx context.Context, snap *model.Snapshot) error
}

// MultiCheckpointer hands the same snapshot to several sinks concurrently.
// A failing sink does not keep the others from writing.
type MultiCheckpointer struct {
	sinks []Checkpointer
}

// NewMultiCheckpointer creates a MultiCheckpointer. nil sinks are skipped.
func NewMultiCheckpointer(sinks ...Checkpointer) *MultiCheckpointer {
	m := &MultiCheckpointer{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Checkpoint writes snap to every sink and returns all of their errors joined.
func (m *MultiCheckpointer) Checkpoint(ctx context.Context, snap *model.Snapshot) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	for _, s := range m.sinks {
		g.Go(func() error {
			if err := s.Checkpoint(ctx, snap); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // errors are collected above

	return errors.Join(errs...)
}

// baseWriter provides common functionality for terminal and file writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
