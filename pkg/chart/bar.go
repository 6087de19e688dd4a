package chart

import (
	"html/template"
	texttemplate "text/template"

	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/table"
)

// Aggregations supported by [Bar], in dropdown order.
var Aggregations = []string{"sum", "mean", "count"}

// BarConfig configures a [Bar] chart.
type BarConfig struct {
	Title string
	X     string // category column
	Y     string // numeric value column
	Agg   string // initial aggregation; "sum" when empty
}

// Bar aggregates Y per distinct X in the browser and plots the result. The
// aggregation can be switched without reloading data.
type Bar struct{ *base }

var barAppearance = template.Must(template.New("bar").Parse(`<div class="vp-chart">
<label>Aggregate <select data-role="agg">{{range .Aggregations}}<option value="{{.}}">{{.}}</option>{{end}}</select></label>
<div class="vp-plot" data-role="plot"></div>
</div>`))

var barFunctional = texttemplate.Must(texttemplate.New("bar").Funcs(funcs).Parse(`var rows = data[{{json .Dataset}}];
var x = {{json .X}}, y = {{json .Y}};
var plot = container.querySelector('[data-role="plot"]');
var agg = container.querySelector('[data-role="agg"]');
function draw() {
  var res = vizpage.aggregate(rows, x, y, agg.value);
  Plotly.react(plot, [{type: "bar", x: res.keys, y: res.values, name: agg.value + "(" + y + ")"}],
    {title: {{json .Title}}, margin: {t: 40}});
}
agg.value = {{json .Agg}};
agg.addEventListener("change", draw);
draw();
`))

// NewBar builds a bar chart over dataset, whose rows are t.
func NewBar(id, dataset string, t *table.Table, cfg BarConfig) (*Bar, error) {
	b, err := newBase(id)
	if err != nil {
		return nil, err
	}
	if err := requireTable(id, dataset, t); err != nil {
		return nil, err
	}
	if cfg.Agg == "" {
		cfg.Agg = "sum"
	}
	valid := false
	for _, a := range Aggregations {
		valid = valid || a == cfg.Agg
	}
	if !valid {
		return nil, errors.New(errors.ErrCodeInvalidChart, "chart %q: unknown aggregation %q (valid: %v)", id, cfg.Agg, Aggregations)
	}
	if err := requireColumn(id, dataset, t, cfg.X); err != nil {
		return nil, err
	}
	if err := requireColumn(id, dataset, t, cfg.Y, numeric...); err != nil {
		return nil, err
	}
	b.deps = []string{dataset}
	b.scripts = []string{PlotlyURL}
	data := struct {
		BarConfig
		Dataset      string
		Aggregations []string
	}{cfg, dataset, Aggregations}
	if err := b.render(barAppearance, barFunctional, data); err != nil {
		return nil, err
	}
	return &Bar{b}, nil
}
