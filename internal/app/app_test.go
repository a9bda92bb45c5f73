package app_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/palantir/survey-tabulator/internal/app"
	"github.com/palantir/survey-tabulator/internal/logging"
	"github.com/palantir/survey-tabulator/internal/pipeline"
	"github.com/palantir/survey-tabulator/internal/tabulate"
	"github.com/palantir/survey-tabulator/pkg/pipeline/io/local"
	"github.com/palantir/survey-tabulator/pkg/pipeline/worker"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestRunLocal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "survey.csv")
	out := filepath.Join(dir, "analysis.json")
	cleaned := filepath.Join(dir, "cleaned.csv")
	// 0xE9 is "é" in latin-1.
	writeFile(t, in, "Name,name,Smoker,Empty\nRen\xe9,,1,\n,Ana,0,\n")

	var rec logging.Recorder
	res, err := app.RunLocal(context.Background(), app.LocalOptions{
		Input:    in,
		Output:   out,
		Cleaned:  cleaned,
		Read:     local.DefaultReadOptions(),
		Format:   tabulate.FormatJSON,
		Pipeline: pipeline.DefaultOptions(),
	}, &rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rows != 2 {
		t.Fatalf("Rows=%d want=2", res.Rows)
	}

	want := "{\n" +
		"  \"Name\": {\n" +
		"    \"René\": 1,\n" +
		"    \"Ana\": 1\n" +
		"  },\n" +
		"  \"Smoker\": {\n" +
		"    \"True\": 1,\n" +
		"    \"False\": 1\n" +
		"  }\n" +
		"}\n"
	if diff := cmp.Diff(want, readFile(t, out)); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("Name,Smoker\nRené,true\nAna,false\n", readFile(t, cleaned)); diff != "" {
		t.Fatalf("cleaned csv mismatch (-want +got):\n%s", diff)
	}
	if got, _ := rec.Field("analysis exported", "output"); got != out {
		t.Fatalf("exported path logged as %v", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestRunLocalYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "survey.csv")
	out := filepath.Join(dir, "analysis.yaml")
	writeFile(t, in, "Score\n2\n3\n2\n")

	_, err := app.RunLocal(context.Background(), app.LocalOptions{
		Input:    in,
		Output:   out,
		Read:     local.DefaultReadOptions(),
		Format:   tabulate.FormatYAML,
		Pipeline: pipeline.DefaultOptions(),
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff("Score:\n  \"2\": 2\n  \"3\": 1\n", readFile(t, out)); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestRunLocalErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("missing paths", func(t *testing.T) {
		if _, err := app.RunLocal(context.Background(), app.LocalOptions{}, nil); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing input", func(t *testing.T) {
		out := filepath.Join(dir, "never.json")
		_, err := app.RunLocal(context.Background(), app.LocalOptions{
			Input:  filepath.Join(dir, "nope.csv"),
			Output: out,
			Read:   local.DefaultReadOptions(),
		}, nil)
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("expected not-exist error, got %v", err)
		}
		if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
			t.Fatalf("report must not be written on failure")
		}
	})
}

func TestRunBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	writeFile(t, a, "Q\nx\ny\n")
	writeFile(t, b, "Q,q\n1,\n,2\n")
	missing := filepath.Join(dir, "c.csv")

	var rec logging.Recorder
	items, err := app.RunBatch(context.Background(), app.BatchOptions{
		Inputs:       []string{a, b, missing},
		OutDir:       outDir,
		WriteCleaned: true,
		Read:         local.DefaultReadOptions(),
		Format:       tabulate.FormatJSON,
		Pipeline:     pipeline.DefaultOptions(),
		Worker:       worker.Options{Workers: 2},
	}, &rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}
	for i, want := range []string{"a.json", "b.json", "c.json"} {
		if got := filepath.Base(items[i].Output); got != want {
			t.Fatalf("item %d output=%s want=%s", i, got, want)
		}
	}
	if items[0].Err != nil || items[1].Err != nil {
		t.Fatalf("unexpected item errors: %v, %v", items[0].Err, items[1].Err)
	}
	if items[2].Err == nil {
		t.Fatalf("expected error for missing input")
	}

	if diff := cmp.Diff("{\n  \"Q\": {\n    \"1\": 1,\n    \"2\": 1\n  }\n}\n", readFile(t, items[1].Output)); diff != "" {
		t.Fatalf("b report mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(outDir, "a.cleaned.csv")); err != nil {
		t.Fatalf("cleaned export missing: %v", err)
	}
	if failed, _ := rec.Field("batch complete", "failed"); failed != 1 {
		t.Fatalf("failed logged as %v", failed)
	}
}

func TestRunBatchFailFast(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := app.RunBatch(context.Background(), app.BatchOptions{
		Inputs: []string{filepath.Join(dir, "missing.csv")},
		OutDir: filepath.Join(dir, "out"),
		Read:   local.DefaultReadOptions(),
		Format: tabulate.FormatJSON,
		Worker: worker.Options{Workers: 1, FailurePolicy: worker.FailurePolicyFailFast},
	}, nil)
	if err == nil {
		t.Fatalf("expected error under fail-fast")
	}
}

func TestRunBatchRejectsCollidingOutputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := app.RunBatch(context.Background(), app.BatchOptions{
		Inputs: []string{filepath.Join(dir, "x", "s.csv"), filepath.Join(dir, "y", "s.csv")},
		OutDir: filepath.Join(dir, "out"),
		Format: tabulate.FormatJSON,
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "would both write") {
		t.Fatalf("expected collision error, got %v", err)
	}
}
