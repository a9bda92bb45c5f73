package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/palantir/survey-tabulator/pkg/pipeline/core"
	"github.com/palantir/survey-tabulator/pkg/table"
)

// FileSource loads a table from a delimited text file on disk.
// Stats is filled in by each successful Load.
type FileSource struct {
	Path    string
	Options ReadOptions
	Stats   ReadStats
}

var _ core.Source = (*FileSource)(nil)

func (s *FileSource) Load(ctx context.Context) (*table.Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, classify(fmt.Errorf("open input: %w", err))
	}
	defer func() {
		_ = f.Close()
	}()

	tbl, stats, err := ReadTable(ctx, f, s.Options)
	if err != nil {
		return nil, classify(fmt.Errorf("load %s: %w", s.Path, err))
	}
	s.Stats = stats
	return tbl, nil
}

// classify marks I/O errors that are worth retrying. A busy file gets a
// single extra attempt.
func classify(err error) error {
	switch {
	case errors.Is(err, syscall.EBUSY):
		return &core.LimitedTransientError{Err: err, MaxRetries: 1}
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EINTR):
		return &core.TransientError{Err: err}
	}
	return err
}

// LoadStats returns the statistics of the most recent Load.
func (s *FileSource) LoadStats() ReadStats { return s.Stats }
