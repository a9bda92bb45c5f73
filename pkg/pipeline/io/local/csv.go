package local

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/palantir/survey-tabulator/pkg/table"
)

// ErrEmptyInput is returned when the input has no header row.
var ErrEmptyInput = errors.New("input has no header row")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DefaultInferRows is how many data rows are inspected to decide whether a
// column is numeric.
const DefaultInferRows = 10000

// ReadOptions controls how delimited text is turned into a table.
type ReadOptions struct {
	// Encoding names the input character encoding. Empty means UTF-8.
	Encoding string
	// Delimiter separates fields. Zero means ','.
	Delimiter rune
	// InferRows bounds the type-inference look-ahead. Set to <=0 to scan
	// every row.
	InferRows int
}

func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		Encoding:  DefaultEncoding,
		Delimiter: ',',
		InferRows: DefaultInferRows,
	}
}

// ReadStats describes what the reader tolerated while loading.
type ReadStats struct {
	// Rows is the number of data rows kept.
	Rows int
	// SkippedRows counts malformed rows that were dropped.
	SkippedRows int
	// CastFailures counts cells in numeric columns that did not parse as a
	// number past the inference window and were loaded as null.
	CastFailures int
}

// ReadTable reads delimited text with a header row into a table.
//
// Empty cells are null. A column is numeric when every non-empty cell within
// the first InferRows data rows parses as a number; otherwise it is text.
// Rows with the wrong number of fields or broken quoting are skipped.
func ReadTable(ctx context.Context, r io.Reader, opts ReadOptions) (*table.Table, ReadStats, error) {
	var stats ReadStats

	// Drop a UTF-8 byte order mark before any decoding.
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	dec, err := decodingReader(br, opts.Encoding)
	if err != nil {
		return nil, stats, err
	}
	cr := csv.NewReader(dec)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, stats, ErrEmptyInput
	}
	if err != nil {
		return nil, stats, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	cr.FieldsPerRecord = len(header)

	var records [][]string
	for {
		if len(records)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				stats.SkippedRows++
				continue
			}
			return nil, stats, fmt.Errorf("read row: %w", err)
		}
		records = append(records, rec)
	}
	stats.Rows = len(records)

	numeric := inferNumeric(len(header), records, opts.InferRows)
	cols := make([]table.Column, len(header))
	for i, name := range header {
		vals := make([]table.Value, len(records))
		for r, rec := range records {
			cell := rec[i]
			switch {
			case cell == "":
			case numeric[i]:
				v, ok := table.ParseNumber(cell)
				if !ok {
					stats.CastFailures++
					continue
				}
				vals[r] = v
			default:
				vals[r] = table.Text(cell)
			}
		}
		cols[i] = table.Column{Name: name, Values: vals}
	}

	tbl, err := table.NewWithRows(len(records), cols...)
	if err != nil {
		return nil, stats, err
	}
	return tbl, stats, nil
}

func inferNumeric(width int, records [][]string, limit int) []bool {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	numeric := make([]bool, width)
	for i := range numeric {
		seen := false
		ok := true
		for _, rec := range records[:limit] {
			cell := rec[i]
			if cell == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				ok = false
				break
			}
		}
		numeric[i] = seen && ok
	}
	return numeric
}

// WriteTableCSV writes t with a header row. Nulls are empty fields and
// booleans are written as true/false.
func WriteTableCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}
	cols := t.Columns()
	rec := make([]string, len(cols))
	for r := 0; r < t.Rows(); r++ {
		for i, c := range cols {
			rec[i] = cellText(c.Values[r])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellText(v table.Value) string {
	switch v.Kind() {
	case table.KindNull:
		return ""
	case table.KindBool:
		b, _ := v.Truth()
		return strconv.FormatBool(b)
	default:
		return v.String()
	}
}
