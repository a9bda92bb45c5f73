package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/palantir/survey-tabulator/internal/pipeline"
	"github.com/palantir/survey-tabulator/internal/tabulate"
	"github.com/palantir/survey-tabulator/pkg/pipeline/core"
	"github.com/palantir/survey-tabulator/pkg/pipeline/io/local"
)

// ReportFile writes the frequency report to path.
func ReportFile(path string, format tabulate.Format) core.Sink[pipeline.Result] {
	return core.SinkFunc[pipeline.Result](func(_ context.Context, res pipeline.Result) error {
		return writeFileAtomic(path, func(w io.Writer) error {
			return tabulate.Encode(w, res.Report, format)
		})
	})
}

// CleanedCSV writes the cleaned table to path.
func CleanedCSV(path string) core.Sink[pipeline.Result] {
	return core.SinkFunc[pipeline.Result](func(_ context.Context, res pipeline.Result) error {
		return writeFileAtomic(path, func(w io.Writer) error {
			return local.WriteTableCSV(w, res.Cleaned)
		})
	})
}

// writeFileAtomic writes into a temporary file next to path and renames it
// into place, so readers never observe a partial artifact.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
