package chart

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/table"
)

func salesTable() *table.Table {
	b := table.NewBuilder(
		table.Column{Name: "month", Kind: table.KindString},
		table.Column{Name: "region", Kind: table.KindString},
		table.Column{Name: "revenue", Kind: table.KindFloat},
		table.Column{Name: "units", Kind: table.KindInt},
	)
	_ = b.Append("Jan", "north", 10.5, 3)
	_ = b.Append("Jan", "south", 4.0, 1)
	_ = b.Append("Feb", "north", nil, 2)
	return b.MustBuild()
}

func edgeTable() *table.Table {
	b := table.NewBuilder(
		table.Column{Name: "src", Kind: table.KindString},
		table.Column{Name: "dst", Kind: table.KindString},
		table.Column{Name: "weight", Kind: table.KindInt},
	)
	_ = b.Append("api", "db", 3)
	_ = b.Append("api", "cache", nil)
	_ = b.Append("web", "api", 1)
	_ = b.Append(nil, "orphan", 1)
	return b.MustBuild()
}

func TestNewLine(t *testing.T) {
	c, err := NewLine("revenue_trend", "sales", salesTable(), LineConfig{
		Title: "Revenue", X: "month", Y: []string{"revenue", "units"}, Group: "region",
	})
	if err != nil {
		t.Fatalf("NewLine() error: %v", err)
	}
	if got := c.Dependencies(); !reflect.DeepEqual(got, []string{"sales"}) {
		t.Errorf("Dependencies() = %v, want [sales]", got)
	}
	if got := c.ScriptDependencies(); !reflect.DeepEqual(got, []string{PlotlyURL}) {
		t.Errorf("ScriptDependencies() = %v", got)
	}
	if !strings.Contains(string(c.AppearanceFragment()), `data-role="group"`) {
		t.Error("AppearanceFragment() missing group selector")
	}
	js := string(c.FunctionalFragment())
	for _, want := range []string{`data["sales"]`, `ys = ["revenue","units"]`, `"Revenue"`, "Plotly.react"} {
		if !strings.Contains(js, want) {
			t.Errorf("FunctionalFragment() missing %q", want)
		}
	}
}

func TestChartValidation(t *testing.T) {
	sales := salesTable()
	tests := []struct {
		name string
		fn   func() error
	}{
		{"line missing x", func() error {
			_, err := NewLine("c", "sales", sales, LineConfig{X: "nope", Y: []string{"revenue"}})
			return err
		}},
		{"line no y", func() error {
			_, err := NewLine("c", "sales", sales, LineConfig{X: "month"})
			return err
		}},
		{"line string y", func() error {
			_, err := NewLine("c", "sales", sales, LineConfig{X: "month", Y: []string{"region"}})
			return err
		}},
		{"line bad group", func() error {
			_, err := NewLine("c", "sales", sales, LineConfig{X: "month", Y: []string{"units"}, Group: "zone"})
			return err
		}},
		{"bar bad agg", func() error {
			_, err := NewBar("c", "sales", sales, BarConfig{X: "month", Y: "revenue", Agg: "median"})
			return err
		}},
		{"bar string y", func() error {
			_, err := NewBar("c", "sales", sales, BarConfig{X: "month", Y: "region"})
			return err
		}},
		{"table unknown column", func() error {
			_, err := NewTable("c", "sales", sales, TableConfig{Columns: []string{"month", "profit"}})
			return err
		}},
		{"nil table", func() error {
			_, err := NewTable("c", "sales", nil, TableConfig{})
			return err
		}},
		{"empty dataset", func() error {
			_, err := NewTable("c", "", sales, TableConfig{})
			return err
		}},
		{"empty id", func() error {
			_, err := NewText("", "<p>hi</p>")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, errors.ErrCodeInvalidChart) {
				t.Errorf("error = %v, want INVALID_CHART", err)
			}
		})
	}
}

func TestNewBar(t *testing.T) {
	c, err := NewBar("by_month", "sales", salesTable(), BarConfig{X: "month", Y: "revenue"})
	if err != nil {
		t.Fatalf("NewBar() error: %v", err)
	}
	html := string(c.AppearanceFragment())
	for _, a := range Aggregations {
		if !strings.Contains(html, `<option value="`+a+`">`) {
			t.Errorf("AppearanceFragment() missing option %q", a)
		}
	}
	if !strings.Contains(string(c.FunctionalFragment()), `agg.value = "sum"`) {
		t.Error("FunctionalFragment() does not default to sum")
	}
}

func TestNewTableEscapesHeaders(t *testing.T) {
	b := table.NewBuilder(table.Column{Name: "<b>name</b>", Kind: table.KindString})
	c, err := NewTable("t", "people", b.MustBuild(), TableConfig{Title: "A & B"})
	if err != nil {
		t.Fatalf("NewTable() error: %v", err)
	}
	html := string(c.AppearanceFragment())
	if strings.Contains(html, "<b>name</b>") {
		t.Error("column header not escaped")
	}
	if !strings.Contains(html, "A &amp; B") {
		t.Error("title not escaped")
	}
	if !strings.Contains(string(c.FunctionalFragment()), "pageSize = 50") {
		t.Error("default page size not applied")
	}
}

func TestNewText(t *testing.T) {
	c, err := NewText("intro", "<p>Hello</p>")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Dependencies()) != 0 || len(c.ScriptDependencies()) != 0 || c.FunctionalFragment() != "" {
		t.Error("Text chart should have no dependencies or script")
	}
	if c.AppearanceFragment() != "<p>Hello</p>" {
		t.Errorf("AppearanceFragment() = %q", c.AppearanceFragment())
	}
}

func TestDependenciesAreCopies(t *testing.T) {
	c, _ := NewBar("b", "sales", salesTable(), BarConfig{X: "month", Y: "units", Agg: "count"})
	deps := c.Dependencies()
	deps[0] = "mutated"
	if c.Dependencies()[0] != "sales" {
		t.Error("Dependencies() exposes internal slice")
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(edgeTable(), DiagramConfig{From: "src", To: "dst", Label: "weight", RankDir: "TB"})
	for _, want := range []string{
		`rankdir="TB"`,
		`"api" -> "db" [label="3"];`,
		`"api" -> "cache";`,
		`"web" -> "api" [label="1"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "orphan") {
		t.Error("ToDOT() included an edge with a null endpoint")
	}
	if strings.Index(dot, `"api";`) > strings.Index(dot, `"db";`) {
		t.Error("ToDOT() nodes not in first-seen order")
	}
}

func TestInlineSVG(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{
			name: "prolog and viewBox",
			svg:  `<?xml version="1.0"?><!DOCTYPE svg><svg viewBox="10 20 800 600" xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800.00 600.00" style="max-width:100%;height:auto" width="800" height="600">content</svg>`,
		},
		{
			name: "no viewBox",
			svg:  `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
		},
		{
			name: "zero dimensions",
			svg:  `<svg viewBox="0 0 0 0">content</svg>`,
			want: `<svg viewBox="0 0 0 0">content</svg>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(inlineSVG([]byte(tt.svg))); got != tt.want {
				t.Errorf("inlineSVG() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewDiagram(t *testing.T) {
	c, err := NewDiagram(context.Background(), "topology", "edges", edgeTable(), DiagramConfig{From: "src", To: "dst"})
	if err != nil {
		t.Fatalf("NewDiagram() error: %v", err)
	}
	html := string(c.AppearanceFragment())
	if !strings.Contains(html, "<svg") || strings.Contains(html, "<?xml") {
		t.Errorf("AppearanceFragment() does not carry an inline svg")
	}
	if !strings.Contains(string(c.FunctionalFragment()), `g.node`) {
		t.Error("FunctionalFragment() missing node click wiring")
	}
}

func TestRenderSVGInvalidDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), `not valid DOT {{{`); err == nil {
		t.Error("RenderSVG() should return error for invalid DOT")
	}
}
