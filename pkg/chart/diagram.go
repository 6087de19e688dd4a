package chart

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"regexp"
	"strconv"
	texttemplate "text/template"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/table"
)

// DiagramConfig configures a [Diagram] chart.
type DiagramConfig struct {
	Title   string
	From    string // source node column
	To      string // target node column
	Label   string // optional edge label column
	RankDir string // Graphviz rankdir; "LR" when empty
}

// Diagram draws the edge list in a dataset as a node-link diagram. Layout is
// computed once with Graphviz when the chart is built; in the browser,
// clicking a node lists its outgoing edges from the loaded rows.
type Diagram struct{ *base }

var diagramAppearance = template.Must(template.New("diagram").Parse(`<div class="vp-diagram">
{{- if .Title}}<h3>{{.Title}}</h3>{{end}}
<div data-role="svg">{{.SVG}}</div>
<ul data-role="edges"></ul>
</div>`))

var diagramFunctional = texttemplate.Must(texttemplate.New("diagram").Funcs(funcs).Parse(`var rows = data[{{json .Dataset}}];
var from = {{json .From}}, to = {{json .To}}, label = {{json .Label}};
var list = container.querySelector('[data-role="edges"]');
container.querySelectorAll("g.node").forEach(function (node) {
  var title = node.querySelector("title");
  if (!title) return;
  var id = title.textContent;
  node.style.cursor = "pointer";
  node.addEventListener("click", function () {
    list.textContent = "";
    rows.filter(function (r) { return vizpage.format(r[from]) === id; }).forEach(function (r) {
      var li = document.createElement("li");
      li.textContent = id + " -> " + vizpage.format(r[to]) + (label ? " (" + vizpage.format(r[label]) + ")" : "");
      list.appendChild(li);
    });
  });
});
`))

// NewDiagram builds a diagram over dataset, whose rows are t. Rows with a
// null endpoint are skipped.
func NewDiagram(ctx context.Context, id, dataset string, t *table.Table, cfg DiagramConfig) (*Diagram, error) {
	b, err := newBase(id)
	if err != nil {
		return nil, err
	}
	if err := requireTable(id, dataset, t); err != nil {
		return nil, err
	}
	for _, col := range []string{cfg.From, cfg.To} {
		if err := requireColumn(id, dataset, t, col); err != nil {
			return nil, err
		}
	}
	if cfg.Label != "" {
		if err := requireColumn(id, dataset, t, cfg.Label); err != nil {
			return nil, err
		}
	}
	if cfg.RankDir == "" {
		cfg.RankDir = "LR"
	}

	svg, err := RenderSVG(ctx, ToDOT(t, cfg))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidChart, err, "chart %q: render diagram", id)
	}

	b.deps = []string{dataset}
	data := struct {
		DiagramConfig
		Dataset string
		SVG     template.HTML
	}{cfg, dataset, template.HTML(svg)}
	if err := b.render(diagramAppearance, diagramFunctional, data); err != nil {
		return nil, err
	}
	return &Diagram{b}, nil
}

// ToDOT converts the edge list in t to Graphviz DOT. Nodes are declared in
// first-seen order so the output is deterministic.
func ToDOT(t *table.Table, cfg DiagramConfig) string {
	from, to, lbl := t.ColumnIndex(cfg.From), t.ColumnIndex(cfg.To), t.ColumnIndex(cfg.Label)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", strconv.Quote(cfg.RankDir))
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=12];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	seen := make(map[string]bool)
	var edges bytes.Buffer
	for r := 0; r < t.NumRows(); r++ {
		fv, tv := t.Value(from, r), t.Value(to, r)
		if fv == nil || tv == nil {
			continue
		}
		src, dst := table.FormatValue(fv), table.FormatValue(tv)
		for _, n := range []string{src, dst} {
			if !seen[n] {
				seen[n] = true
				fmt.Fprintf(&buf, "  %s;\n", strconv.Quote(n))
			}
		}
		fmt.Fprintf(&edges, "  %s -> %s", strconv.Quote(src), strconv.Quote(dst))
		if lbl >= 0 {
			if lv := t.Value(lbl, r); lv != nil {
				fmt.Fprintf(&edges, " [label=%s]", strconv.Quote(table.FormatValue(lv)))
			}
		}
		edges.WriteString(";\n")
	}
	buf.WriteString("\n")
	buf.Write(edges.Bytes())
	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to an inline SVG element using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return inlineSVG(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// inlineSVG drops the XML prolog and doctype Graphviz emits and rewrites the
// root element so the diagram scales with its container.
func inlineSVG(svg []byte) []byte {
	if i := bytes.Index(svg, []byte("<svg")); i > 0 {
		svg = svg[i:]
	}
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" style="max-width:100%%;height:auto" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
