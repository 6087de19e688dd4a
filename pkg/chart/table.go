package chart

import (
	"html/template"
	texttemplate "text/template"

	"github.com/matzehuels/vizpage/pkg/table"
)

// TableConfig configures a [Table] chart.
type TableConfig struct {
	Title    string
	Columns  []string // columns to show; all when empty
	PageSize int      // rows shown at once; 50 when zero
}

// Table renders rows as an HTML table with a free-text filter.
type Table struct{ *base }

var tableAppearance = template.Must(template.New("table").Parse(`<div class="vp-table">
{{- if .Title}}<h3>{{.Title}}</h3>{{end}}
<input type="search" data-role="filter" placeholder="Filter rows">
<table><thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead><tbody></tbody></table>
<p class="vp-info" data-role="info"></p>
</div>`))

var tableFunctional = texttemplate.Must(texttemplate.New("table").Funcs(funcs).Parse(`var rows = data[{{json .Dataset}}];
var cols = {{json .Columns}};
var pageSize = {{.PageSize}};
var input = container.querySelector('[data-role="filter"]');
var body = container.querySelector("tbody");
var info = container.querySelector('[data-role="info"]');
function draw() {
  var q = input.value.toLowerCase();
  var shown = rows.filter(function (r) {
    return !q || cols.some(function (c) {
      return r[c] != null && vizpage.format(r[c]).toLowerCase().indexOf(q) >= 0;
    });
  });
  body.textContent = "";
  shown.slice(0, pageSize).forEach(function (r) {
    var tr = document.createElement("tr");
    cols.forEach(function (c) {
      var td = document.createElement("td");
      td.textContent = vizpage.format(r[c]);
      tr.appendChild(td);
    });
    body.appendChild(tr);
  });
  info.textContent = Math.min(shown.length, pageSize) + " of " + shown.length + " matching rows (" + rows.length + " total)";
}
input.addEventListener("input", draw);
draw();
`))

// NewTable builds a table chart over dataset, whose rows are t.
func NewTable(id, dataset string, t *table.Table, cfg TableConfig) (*Table, error) {
	b, err := newBase(id)
	if err != nil {
		return nil, err
	}
	if err := requireTable(id, dataset, t); err != nil {
		return nil, err
	}
	cols := cfg.Columns
	if len(cols) == 0 {
		for _, c := range t.Columns() {
			cols = append(cols, c.Name)
		}
	}
	for _, c := range cols {
		if err := requireColumn(id, dataset, t, c); err != nil {
			return nil, err
		}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	b.deps = []string{dataset}
	data := struct {
		Title    string
		Dataset  string
		Columns  []string
		PageSize int
	}{cfg.Title, dataset, cols, cfg.PageSize}
	if err := b.render(tableAppearance, tableFunctional, data); err != nil {
		return nil, err
	}
	return &Table{b}, nil
}
