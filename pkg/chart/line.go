package chart

import (
	"html/template"
	texttemplate "text/template"

	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/table"
)

// LineConfig configures a [Line] chart.
type LineConfig struct {
	Title string
	X     string   // x axis column, any kind
	Y     []string // numeric series columns
	Group string   // optional column driving a filter dropdown
}

// Line plots one or more numeric series against X with Plotly.
type Line struct{ *base }

var lineAppearance = template.Must(template.New("line").Parse(`<div class="vp-chart">
{{- if .Group}}<label>{{.Group}} <select data-role="group"><option value="">All</option></select></label>{{end}}
<div class="vp-plot" data-role="plot"></div>
</div>`))

var lineFunctional = texttemplate.Must(texttemplate.New("line").Funcs(funcs).Parse(`var rows = data[{{json .Dataset}}];
var x = {{json .X}}, ys = {{json .Y}}, group = {{json .Group}};
var plot = container.querySelector('[data-role="plot"]');
var select = container.querySelector('[data-role="group"]');
function draw() {
  var sel = select ? select.value : "";
  var subset = rows.filter(function (r) {
    return !sel || vizpage.format(r[group]) === sel;
  });
  var traces = ys.map(function (y) {
    return {
      type: "scatter",
      mode: "lines+markers",
      name: y,
      x: subset.map(function (r) { return r[x]; }),
      y: subset.map(function (r) { return r[y]; })
    };
  });
  Plotly.react(plot, traces, {title: {{json .Title}}, margin: {t: 40}});
}
if (select) {
  vizpage.unique(rows.map(function (r) { return r[group]; })).forEach(function (g) {
    var o = document.createElement("option");
    o.value = vizpage.format(g);
    o.textContent = o.value;
    select.appendChild(o);
  });
  select.addEventListener("change", draw);
}
draw();
`))

// NewLine builds a line chart over dataset, whose rows are t.
func NewLine(id, dataset string, t *table.Table, cfg LineConfig) (*Line, error) {
	b, err := newBase(id)
	if err != nil {
		return nil, err
	}
	if err := requireTable(id, dataset, t); err != nil {
		return nil, err
	}
	if err := requireColumn(id, dataset, t, cfg.X); err != nil {
		return nil, err
	}
	if len(cfg.Y) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidChart, "chart %q: at least one y column is required", id)
	}
	for _, y := range cfg.Y {
		if err := requireColumn(id, dataset, t, y, numeric...); err != nil {
			return nil, err
		}
	}
	if cfg.Group != "" {
		if err := requireColumn(id, dataset, t, cfg.Group); err != nil {
			return nil, err
		}
	}
	b.deps = []string{dataset}
	b.scripts = []string{PlotlyURL}
	data := struct {
		LineConfig
		Dataset string
	}{cfg, dataset}
	if err := b.render(lineAppearance, lineFunctional, data); err != nil {
		return nil, err
	}
	return &Line{b}, nil
}
