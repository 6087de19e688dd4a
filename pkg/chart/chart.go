// Package chart defines the contract between chart generators and the page
// assembler, plus a handful of reference charts.
//
// A [Chart] is immutable once constructed. Constructors validate every
// referenced column against the table they will read and pre-render both
// fragments, so a chart that exists is a chart that can be assembled.
//
// The functional fragment is the body of a JavaScript function
//
//	function (data, container) { ... }
//
// where data maps each dependency name to its rows (an array of objects keyed
// by column name) and container is the chart's section element. The page
// runtime calls it exactly once, after every dependency has loaded. Fragments
// should scope DOM lookups to container so the same chart type can appear
// several times on a page.
package chart

import (
	"bytes"
	"encoding/json"
	"html/template"
	texttemplate "text/template"

	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/table"
)

// PlotlyURL is the charting library used by the Plotly-based charts.
const PlotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

// Chart is one visual block of a page.
type Chart interface {
	// ID identifies the chart within a page.
	ID() string
	// Dependencies lists the dataset names the chart reads.
	Dependencies() []string
	// ScriptDependencies lists script or stylesheet URLs the chart needs.
	ScriptDependencies() []string
	// AppearanceFragment is the static markup placed in the chart's section.
	AppearanceFragment() template.HTML
	// FunctionalFragment is the body of the chart's init function.
	FunctionalFragment() template.JS
}

// base carries the pre-rendered state shared by all reference charts.
type base struct {
	id         string
	deps       []string
	scripts    []string
	appearance template.HTML
	functional template.JS
}

func (b *base) ID() string                        { return b.id }
func (b *base) Dependencies() []string            { return append([]string(nil), b.deps...) }
func (b *base) ScriptDependencies() []string      { return append([]string(nil), b.scripts...) }
func (b *base) AppearanceFragment() template.HTML { return b.appearance }
func (b *base) FunctionalFragment() template.JS   { return b.functional }

func newBase(id string) (*base, error) {
	if err := errors.ValidateName("chart", id); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidChart, err, "invalid chart id")
	}
	return &base{id: id}, nil
}

var funcs = texttemplate.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// render fills the appearance and functional templates with data.
func (b *base) render(appearance *template.Template, functional *texttemplate.Template, data any) error {
	var buf bytes.Buffer
	if appearance != nil {
		if err := appearance.Execute(&buf, data); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "render chart %q markup", b.id)
		}
		b.appearance = template.HTML(buf.String())
	}
	if functional != nil {
		buf.Reset()
		if err := functional.Execute(&buf, data); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "render chart %q script", b.id)
		}
		b.functional = template.JS(buf.String())
	}
	return nil
}

// requireColumn checks that col exists in t and, when kinds is non-empty,
// has one of the listed kinds.
func requireColumn(chartID, dataset string, t *table.Table, col string, kinds ...table.Kind) error {
	c, ok := t.Column(col)
	if !ok {
		return errors.New(errors.ErrCodeInvalidChart, "chart %q: dataset %q has no column %q", chartID, dataset, col)
	}
	if len(kinds) == 0 {
		return nil
	}
	for _, k := range kinds {
		if c.Kind == k {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidChart, "chart %q: column %q is %s, want one of %v", chartID, col, c.Kind, kinds)
}

func requireTable(chartID, dataset string, t *table.Table) error {
	if dataset == "" {
		return errors.New(errors.ErrCodeInvalidChart, "chart %q: no dataset given", chartID)
	}
	if t == nil {
		return errors.New(errors.ErrCodeInvalidChart, "chart %q: dataset %q has no table", chartID, dataset)
	}
	return nil
}

var numeric = []table.Kind{table.KindInt, table.KindFloat}
