package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/palantir/survey-tabulator/internal/logging"
	"github.com/palantir/survey-tabulator/internal/pipeline"
	"github.com/palantir/survey-tabulator/internal/tabulate"
	"github.com/palantir/survey-tabulator/pkg/pipeline/core"
	"github.com/palantir/survey-tabulator/pkg/pipeline/io/local"
	"github.com/palantir/survey-tabulator/pkg/pipeline/worker"
)

// LocalOptions configures a single-file run.
type LocalOptions struct {
	Input  string
	Output string
	// Cleaned, when set, also receives the cleaned table as CSV.
	Cleaned  string
	Read     local.ReadOptions
	Format   tabulate.Format
	Pipeline pipeline.Options
}

// RunLocal tabulates one input file into one report file.
func RunLocal(ctx context.Context, opts LocalOptions, log logging.Logger) (pipeline.Result, error) {
	if log == nil {
		log = logging.Nop()
	}
	if opts.Input == "" || opts.Output == "" {
		return pipeline.Result{}, errors.New("input and output paths are required")
	}
	start := time.Now()
	log.Info("run start", "input", opts.Input, "output", opts.Output, "format", string(opts.Format), "encoding", opts.Read.Encoding)

	sinks := []core.Sink[pipeline.Result]{ReportFile(opts.Output, opts.Format)}
	if opts.Cleaned != "" {
		sinks = append(sinks, CleanedCSV(opts.Cleaned))
	}

	src := &local.FileSource{Path: opts.Input, Options: opts.Read}
	res, err := pipeline.Run(ctx, src, opts.Pipeline, log, sinks...)
	if err != nil {
		return pipeline.Result{}, err
	}
	log.Info("analysis exported", "output", opts.Output, "columns", res.Report.Len(), "duration", time.Since(start).Round(time.Millisecond).String())
	if opts.Cleaned != "" {
		log.Info("cleaned table exported", "output", opts.Cleaned, "rows", res.Rows)
	}
	return res, nil
}

// BatchOptions configures a multi-file run.
type BatchOptions struct {
	Inputs []string
	OutDir string
	// WriteCleaned also writes <name>.cleaned.csv next to each report.
	WriteCleaned bool
	Read         local.ReadOptions
	Format       tabulate.Format
	Pipeline     pipeline.Options
	Worker       worker.Options
}

// BatchItem is the outcome for one input of a batch.
type BatchItem struct {
	Input    string
	Output   string
	Columns  int
	Attempts int
	Err      error
}

// RunBatch tabulates every input independently. Each file still runs
// single-threaded; files are spread over the worker pool. Per-file failures
// are reported in the returned items unless the worker policy is fail-fast.
func RunBatch(ctx context.Context, opts BatchOptions, log logging.Logger) ([]BatchItem, error) {
	if log == nil {
		log = logging.Nop()
	}
	if len(opts.Inputs) == 0 {
		return nil, errors.New("batch requires at least one input")
	}
	if opts.OutDir == "" {
		return nil, errors.New("batch requires an output directory")
	}
	outputs, err := planOutputs(opts.Inputs, opts.OutDir, opts.Format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	type job struct {
		input  string
		output string
	}
	jobs := make([]job, len(opts.Inputs))
	for i, in := range opts.Inputs {
		jobs[i] = job{input: in, output: outputs[i]}
	}

	log.Info("batch start", "inputs", len(jobs), "out_dir", opts.OutDir, "workers", opts.Worker.Workers)
	start := time.Now()

	process := func(ctx context.Context, j job) (pipeline.Result, error) {
		cleaned := ""
		if opts.WriteCleaned {
			cleaned = strings.TrimSuffix(j.output, filepath.Ext(j.output)) + ".cleaned.csv"
		}
		return RunLocal(ctx, LocalOptions{
			Input:    j.input,
			Output:   j.output,
			Cleaned:  cleaned,
			Read:     opts.Read,
			Format:   opts.Format,
			Pipeline: opts.Pipeline,
		}, logging.With(log, "input", j.input))
	}

	completed := 0
	onResult := func(r worker.Result[job, pipeline.Result]) error {
		completed++
		if r.Err != nil {
			log.Error("input failed", "input", r.Input.input, "attempts", r.Attempts, "error", r.Err.Error(), "completed", completed, "total", len(jobs))
			return nil
		}
		log.Info("input done", "input", r.Input.input, "completed", completed, "total", len(jobs))
		return nil
	}

	results, err := worker.Run(ctx, jobs, process, onResult, opts.Worker)
	if err != nil {
		return nil, err
	}

	items := make([]BatchItem, len(results))
	failed := 0
	for i, r := range results {
		items[i] = BatchItem{
			Input:    r.Input.input,
			Output:   r.Input.output,
			Columns:  r.Output.Report.Len(),
			Attempts: r.Attempts,
			Err:      r.Err,
		}
		if r.Err != nil {
			failed++
		}
	}
	log.Info("batch complete", "ok", len(items)-failed, "failed", failed, "duration", time.Since(start).Round(time.Millisecond).String())
	return items, nil
}

// planOutputs maps each input to <outDir>/<base>.<ext> and rejects inputs
// that would write to the same report.
func planOutputs(inputs []string, outDir string, format tabulate.Format) ([]string, error) {
	out := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		path := filepath.Join(outDir, base+"."+format.Ext())
		if prev, ok := seen[path]; ok {
			return nil, fmt.Errorf("inputs %q and %q would both write %s", prev, in, path)
		}
		seen[path] = in
		out[i] = path
	}
	return out, nil
}
