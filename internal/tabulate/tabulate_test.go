package tabulate_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/palantir/survey-tabulator/internal/tabulate"
	"github.com/palantir/survey-tabulator/pkg/table"
)

func sampleTable() *table.Table {
	return table.MustNew(
		table.Column{Name: "Score", Values: []table.Value{table.Text("2"), table.Text("3"), table.Text("2"), table.Null()}},
		table.Column{Name: "Smoker", Values: []table.Value{table.Bool(true), table.Bool(false), table.Null(), table.Bool(true)}},
		table.Column{Name: "Ville", Values: []table.Value{table.Text("Montréal"), table.Text("Montréal"), table.Text("<Québec>"), table.Text("Montréal")}},
		table.Column{Name: "Age", Values: []table.Value{table.Number(10), table.Number(2.5), table.Number(10), table.Null()}},
	)
}

func TestTabulate(t *testing.T) {
	t.Parallel()

	tbl := sampleTable()
	rep := tabulate.Tabulate(tbl)

	want := []tabulate.ColumnCounts{
		{Name: "Score", Counts: []tabulate.ValueCount{{Value: "2", Count: 2}, {Value: "3", Count: 1}, {Value: "null", Count: 1}}},
		{Name: "Smoker", Counts: []tabulate.ValueCount{{Value: "True", Count: 2}, {Value: "False", Count: 1}, {Value: "null", Count: 1}}},
		{Name: "Ville", Counts: []tabulate.ValueCount{{Value: "Montréal", Count: 3}, {Value: "<Québec>", Count: 1}}},
		{Name: "Age", Counts: []tabulate.ValueCount{{Value: "10", Count: 2}, {Value: "2.5", Count: 1}, {Value: "null", Count: 1}}},
	}
	if diff := cmp.Diff(want, rep.Columns()); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}

	for _, c := range rep.Columns() {
		if c.Total() != tbl.Rows() {
			t.Fatalf("column %q counts sum to %d, want %d", c.Name, c.Total(), tbl.Rows())
		}
	}
	if rep.DistinctValues() != 11 {
		t.Fatalf("DistinctValues()=%d want=11", rep.DistinctValues())
	}
	if n, ok := mustLookup(t, rep, "Score").Get("2"); !ok || n != 2 {
		t.Fatalf("Get(2)=(%d,%t)", n, ok)
	}
}

func TestTabulateLabelsMixedKindsByString(t *testing.T) {
	t.Parallel()

	tbl := table.MustNew(table.Column{Name: "q", Values: []table.Value{table.Text("1"), table.Number(1), table.Null()}})
	got := mustLookup(t, tabulate.Tabulate(tbl), "q").Counts
	want := []tabulate.ValueCount{{Value: "1", Count: 2}, {Value: "null", Count: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := tabulate.Encode(&buf, tabulate.Tabulate(sampleTable()), tabulate.FormatJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "{\n  \"Score\": {\n    \"2\": 2,") {
		t.Fatalf("unexpected layout: %q", out)
	}
	if !strings.Contains(out, `"Montréal": 3`) || !strings.Contains(out, `"<Québec>": 1`) {
		t.Fatalf("non-ASCII or HTML characters were escaped: %q", out)
	}
	if strings.Index(out, `"Score"`) > strings.Index(out, `"Smoker"`) ||
		strings.Index(out, `"Smoker"`) > strings.Index(out, `"Ville"`) ||
		strings.Index(out, `"Ville"`) > strings.Index(out, `"Age"`) {
		t.Fatalf("column order not preserved: %q", out)
	}

	var decoded map[string]map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["Smoker"]["null"] != 1 || decoded["Age"]["10"] != 2 {
		t.Fatalf("unexpected decoded report: %#v", decoded)
	}
}

func TestEncodeEmptyReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := tabulate.Encode(&buf, tabulate.NewReport(), tabulate.FormatJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "{}\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestEncodeYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := tabulate.Encode(&buf, tabulate.Tabulate(sampleTable()), tabulate.FormatYAML); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Score:\n  \"2\": 2\n") {
		t.Fatalf("unexpected layout: %q", out)
	}

	var decoded map[string]map[string]int
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded["Smoker"]["null"] != 1 || decoded["Smoker"]["True"] != 2 || decoded["Ville"]["Montréal"] != 3 {
		t.Fatalf("unexpected decoded report: %#v", decoded)
	}
}

func TestNormalizeFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want tabulate.Format
	}{
		{in: "", want: tabulate.FormatJSON},
		{in: "json", want: tabulate.FormatJSON},
		{in: " YAML ", want: tabulate.FormatYAML},
		{in: "yml", want: tabulate.FormatYAML},
		{in: "toml", want: tabulate.FormatJSON},
	}
	for _, tt := range tests {
		if got := tabulate.NormalizeFormat(tt.in); got != tt.want {
			t.Fatalf("NormalizeFormat(%q)=%q want=%q", tt.in, got, tt.want)
		}
	}
}

func mustLookup(t *testing.T, rep tabulate.Report, name string) tabulate.ColumnCounts {
	t.Helper()
	c, ok := rep.Lookup(name)
	if !ok {
		t.Fatalf("column %q missing from report", name)
	}
	return c
}
