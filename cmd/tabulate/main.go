package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/palantir/survey-tabulator/internal/app"
	"github.com/palantir/survey-tabulator/internal/clean"
	"github.com/palantir/survey-tabulator/internal/config"
	"github.com/palantir/survey-tabulator/internal/logging"
	"github.com/palantir/survey-tabulator/internal/pipeline"
	"github.com/palantir/survey-tabulator/internal/tabulate"
	"github.com/palantir/survey-tabulator/internal/version"
	"github.com/palantir/survey-tabulator/pkg/pipeline/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version":
		_, _ = fmt.Fprintln(os.Stdout, version.Current)
		return
	case "run":
		code = runLocal(ctx, os.Args[2:])
	case "batch":
		code = runBatch(ctx, os.Args[2:])
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		code = 2
	}
	stop()
	os.Exit(code)
}

// common holds the flags shared by every subcommand.
type common struct {
	configPath string
	encoding   string
	delimiter  string
	inferRows  int
	format     string
	noMerge    bool
	noBool     bool
	redactPII  bool
	logJSON    bool
	verbose    bool
}

func (c *common) register(fs *flag.FlagSet, cfg config.Config) {
	fs.StringVar(&c.configPath, "config", os.Getenv(config.EnvConfigPath), "YAML config file (env: TABULATE_CONFIG)")
	fs.StringVar(&c.encoding, "encoding", cfg.Encoding, "Input text encoding, e.g. latin-1, utf-8, cp1252 (env: TABULATE_ENCODING)")
	fs.StringVar(&c.delimiter, "delimiter", cfg.Delimiter, "Field delimiter; \"tab\" for TSV (env: TABULATE_DELIMITER)")
	fs.IntVar(&c.inferRows, "infer-rows", cfg.InferRows, "Rows sampled for numeric inference, <=0 scans all (env: TABULATE_INFER_ROWS)")
	fs.StringVar(&c.format, "format", cfg.Format, "Report format: json or yaml (env: TABULATE_FORMAT)")
	fs.BoolVar(&c.noMerge, "no-merge", !cfg.MergeDuplicates, "Keep columns whose names differ only by case or whitespace")
	fs.BoolVar(&c.noBool, "no-bool", !cfg.CoerceBooleans, "Do not convert 0/1 columns to booleans")
	fs.BoolVar(&c.redactPII, "redact-pii", cfg.RedactPII, "Mask e-mail addresses and phone numbers in value labels (env: TABULATE_REDACT_PII)")
	fs.BoolVar(&c.logJSON, "log-json", cfg.LogJSON, "Emit JSON log lines (env: TABULATE_LOG_JSON)")
	fs.BoolVar(&c.verbose, "v", cfg.Verbose, "Verbose logging (env: TABULATE_VERBOSE)")
}

// resolve re-reads the config when -config was given on the command line and
// re-applies every flag the user set explicitly on top of it.
func (c *common) resolve(fs *flag.FlagSet, cfg config.Config) (config.Config, error) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["config"] {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if set["encoding"] {
		cfg.Encoding = c.encoding
	}
	if set["delimiter"] {
		cfg.Delimiter = c.delimiter
	}
	if set["infer-rows"] {
		cfg.InferRows = c.inferRows
	}
	if set["format"] {
		cfg.Format = c.format
	}
	if set["no-merge"] {
		cfg.MergeDuplicates = !c.noMerge
	}
	if set["no-bool"] {
		cfg.CoerceBooleans = !c.noBool
	}
	if set["redact-pii"] {
		cfg.RedactPII = c.redactPII
	}
	if set["log-json"] {
		cfg.LogJSON = c.logJSON
	}
	if set["v"] {
		cfg.Verbose = c.verbose
	}
	return cfg, cfg.Validate()
}

func pipelineOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		Clean: clean.Options{
			MergeDuplicates: cfg.MergeDuplicates,
			CoerceBooleans:  cfg.CoerceBooleans,
		},
		RedactPII: cfg.RedactPII,
	}
}

func newLogger(cfg config.Config) (logging.Logger, func(), error) {
	base, err := logging.New(logging.Config{Output: os.Stderr, JSON: cfg.LogJSON, Verbose: cfg.Verbose})
	if err != nil {
		return nil, nil, err
	}
	log := logging.With(base, "run", uuid.NewString(), "version", version.Current)
	return log, func() { _ = base.Close() }, nil
}

func runLocal(ctx context.Context, args []string) int {
	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var flags common
	flags.register(fs, cfg)
	inputPath := fs.String("input", "", "Input CSV file path")
	outputPath := fs.String("output", "", "Report file path")
	cleanedPath := fs.String("cleaned", "", "Optional path for the cleaned table as CSV")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" || *outputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "run requires --input and --output")
		return 2
	}
	if cfg, err = flags.resolve(fs, cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}
	readOpts, err := cfg.ReadOptions()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "logger error: %s\n", err)
		return 2
	}
	defer closeLog()

	if _, err := app.RunLocal(ctx, app.LocalOptions{
		Input:    *inputPath,
		Output:   *outputPath,
		Cleaned:  *cleanedPath,
		Read:     readOpts,
		Format:   tabulate.NormalizeFormat(cfg.Format),
		Pipeline: pipelineOptions(cfg),
	}, log); err != nil {
		log.Error("run failed", "error", err.Error())
		_, _ = fmt.Fprintf(os.Stderr, "run failed: %s\n", err)
		return 1
	}
	return 0
}

func runBatch(ctx context.Context, args []string) int {
	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}

	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var flags common
	flags.register(fs, cfg)
	outDir := fs.String("out-dir", "", "Directory receiving one report per input")
	writeCleaned := fs.Bool("cleaned", false, "Also write <name>.cleaned.csv per input")
	workers := fs.Int("workers", cfg.Workers, "Number of files processed concurrently (env: TABULATE_WORKERS)")
	maxRetries := fs.Int("max-retries", cfg.MaxRetries, "Retries per file for transient I/O failures (env: TABULATE_MAX_RETRIES)")
	rateLimitRPS := fs.Float64("rate-limit-rps", cfg.RateLimitRPS, "Max file starts per second, 0 disables (env: TABULATE_RATE_LIMIT_RPS)")
	failFast := fs.Bool("fail-fast", cfg.FailFast, "Stop at the first failed file (env: TABULATE_FAIL_FAST)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	inputs := fs.Args()
	if len(inputs) == 0 || *outDir == "" {
		_, _ = fmt.Fprintln(os.Stderr, "batch requires --out-dir and at least one input file")
		return 2
	}
	if cfg, err = flags.resolve(fs, cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Workers = *workers
		case "max-retries":
			cfg.MaxRetries = *maxRetries
		case "rate-limit-rps":
			cfg.RateLimitRPS = *rateLimitRPS
		case "fail-fast":
			cfg.FailFast = *failFast
		}
	})
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}
	readOpts, err := cfg.ReadOptions()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "logger error: %s\n", err)
		return 2
	}
	defer closeLog()

	policy := worker.FailurePolicyPartialOutput
	if cfg.FailFast {
		policy = worker.FailurePolicyFailFast
	}
	items, err := app.RunBatch(ctx, app.BatchOptions{
		Inputs:       inputs,
		OutDir:       *outDir,
		WriteCleaned: *writeCleaned,
		Read:         readOpts,
		Format:       tabulate.NormalizeFormat(cfg.Format),
		Pipeline:     pipelineOptions(cfg),
		Worker: worker.Options{
			Workers:       cfg.Workers,
			MaxRetries:    cfg.MaxRetries,
			RateLimitRPS:  cfg.RateLimitRPS,
			FailurePolicy: policy,
		},
	}, log)
	if err != nil {
		log.Error("batch failed", "error", err.Error())
		_, _ = fmt.Fprintf(os.Stderr, "batch failed: %s\n", err)
		return 1
	}

	var failed []string
	for _, it := range items {
		if it.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %s", it.Input, it.Err))
		}
	}
	if len(failed) > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "%d of %d inputs failed:\n  %s\n", len(failed), len(items), strings.Join(failed, "\n  "))
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, `tabulate: survey CSV column normalizer and frequency tabulator

Usage:
  tabulate <command> [flags]

Commands:
  run      Clean one CSV file and write its frequency report
  batch    Clean and tabulate several CSV files into an output directory
  version  Print the version

Examples:
  tabulate run --input survey.csv --output analysis.json
  tabulate run --input survey.csv --output analysis.yaml --format yaml --cleaned cleaned.csv
  tabulate batch --out-dir reports --workers 8 wave1.csv wave2.csv

Cleaning:
  1. drop columns with no values
  2. merge columns whose names match ignoring case and whitespace
  3. turn columns holding only 0/1 (plus blanks) into booleans

Environment:
  TABULATE_CONFIG          YAML config file applied before other variables
  TABULATE_ENCODING        Input encoding (default latin-1)
  TABULATE_DELIMITER       Field delimiter (default ",")
  TABULATE_INFER_ROWS      Rows sampled for numeric inference (default 10000)
  TABULATE_FORMAT          json or yaml (default json)
  TABULATE_MERGE_DUPLICATES, TABULATE_COERCE_BOOLEANS, TABULATE_REDACT_PII
  TABULATE_WORKERS, TABULATE_MAX_RETRIES, TABULATE_RATE_LIMIT_RPS, TABULATE_FAIL_FAST
  TABULATE_LOG_JSON, TABULATE_VERBOSE

`)
}
