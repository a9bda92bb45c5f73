package logging_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/palantir/survey-tabulator/internal/logging"
)

func TestWithPrependsFields(t *testing.T) {
	t.Parallel()

	var rec logging.Recorder
	log := logging.With(&rec, "run", "abc")
	log.Info("loaded", "rows", 3)
	log.Warn("skipped", "rows", 1)

	want := []logging.Entry{
		{Level: "info", Message: "loaded", Fields: []any{"run", "abc", "rows", 3}},
		{Level: "warn", Message: "skipped", Fields: []any{"run", "abc", "rows", 1}},
	}
	if diff := cmp.Diff(want, rec.Entries()); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestRecorderField(t *testing.T) {
	t.Parallel()

	var rec logging.Recorder
	rec.Info("dropping empty columns", "count", 2)

	got, ok := rec.Field("dropping empty columns", "count")
	if !ok || got != 2 {
		t.Fatalf("Field()=(%v,%t)", got, ok)
	}
	if _, ok := rec.Field("dropping empty columns", "missing"); ok {
		t.Fatalf("expected missing key to be absent")
	}
}

func TestNopDiscards(t *testing.T) {
	t.Parallel()

	log := logging.Nop()
	log.Debug("x")
	log.Error("y", "k", "v")
	if err := log.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}
