package pipeline

import (
	"context"
	"fmt"

	"github.com/palantir/survey-tabulator/internal/clean"
	"github.com/palantir/survey-tabulator/internal/logging"
	"github.com/palantir/survey-tabulator/internal/tabulate"
	"github.com/palantir/survey-tabulator/pkg/pipeline/core"
	"github.com/palantir/survey-tabulator/pkg/pipeline/io/local"
	"github.com/palantir/survey-tabulator/pkg/pipeline/redact"
	"github.com/palantir/survey-tabulator/pkg/pipeline/schema"
	"github.com/palantir/survey-tabulator/pkg/table"
)

type Options struct {
	Clean     clean.Options
	RedactPII bool
}

func DefaultOptions() Options {
	return Options{Clean: clean.DefaultOptions()}
}

// Result is everything one run produced.
type Result struct {
	Original int
	Rows     int
	Cleaned  *table.Table
	Summary  clean.Summary
	Schema   schema.Contract
	Report   tabulate.Report
	// Redacted counts distinct text values masked before tabulation.
	Redacted int
}

type statsSource interface {
	LoadStats() local.ReadStats
}

// Run loads the table from src, cleans it, tabulates it and hands the
// result to every sink in order. The first sink error ends the run.
func Run(ctx context.Context, src core.Source, opts Options, log logging.Logger, sinks ...core.Sink[Result]) (Result, error) {
	if log == nil {
		log = logging.Nop()
	}

	raw, err := src.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	if s, ok := src.(statsSource); ok {
		st := s.LoadStats()
		log.Info("input loaded", "rows", st.Rows, "skipped_rows", st.SkippedRows, "cast_failures", st.CastFailures)
		if st.SkippedRows > 0 {
			log.Warn("malformed rows skipped", "count", st.SkippedRows)
		}
	}
	log.Info("original columns", "count", raw.Width())
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	cleaned, sum := clean.Normalize(raw, opts.Clean, log)
	log.Info("cleaned columns", "columns", cleaned.Names())
	log.Info("after cleaning", "columns", sum.ColumnsOut, "removed", sum.Removed())

	contract := schema.ContractFromTable(cleaned)
	for _, f := range contract.Fields {
		log.Debug("column type", "column", f.Name, "type", string(f.Type), "nullable", f.Nullable)
	}
	byType := contract.CountByType()
	log.Info("column types",
		"boolean", byType[schema.TypeBoolean],
		"double", byType[schema.TypeDouble],
		"string", byType[schema.TypeString],
		"mixed", byType[schema.TypeMixed],
	)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	counted := cleaned
	redacted := 0
	if opts.RedactPII {
		counted, redacted, err = redactText(cleaned)
		if err != nil {
			return Result{}, err
		}
		if redacted > 0 {
			log.Info("masked personal data in value labels", "labels", redacted)
		}
	}
	rep := tabulate.Tabulate(counted)
	log.Info("analysis ready", "columns", rep.Len(), "distinct_values", rep.DistinctValues())

	res := Result{
		Original: raw.Width(),
		Rows:     cleaned.Rows(),
		Cleaned:  cleaned,
		Summary:  sum,
		Schema:   contract,
		Report:   rep,
		Redacted: redacted,
	}
	for i, sink := range sinks {
		if err := sink.Store(ctx, res); err != nil {
			return Result{}, fmt.Errorf("store output %d: %w", i+1, err)
		}
	}
	return res, nil
}

// redactText returns t with personal data masked in text cells. Numbers,
// booleans and nulls are never touched. The count is the number of distinct
// texts per column that were changed.
func redactText(t *table.Table) (*table.Table, int, error) {
	cols := t.Columns()
	masked := 0
	for i, c := range cols {
		seen := make(map[string]bool)
		var vals []table.Value
		for r, v := range c.Values {
			s, ok := v.Str()
			if !ok {
				continue
			}
			m := redact.PII(s)
			if m == s {
				continue
			}
			if vals == nil {
				vals = make([]table.Value, len(c.Values))
				copy(vals, c.Values)
			}
			vals[r] = table.Text(m)
			if !seen[s] {
				seen[s] = true
				masked++
			}
		}
		if vals != nil {
			cols[i] = table.Column{Name: c.Name, Values: vals}
		}
	}
	out, err := t.Derive(cols)
	if err != nil {
		return nil, 0, fmt.Errorf("redact: %w", err)
	}
	return out, masked, nil
}
