package manifest

import (
	"context"
	"html/template"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizpage/pkg/chart"
	"github.com/matzehuels/vizpage/pkg/codec"
	"github.com/matzehuels/vizpage/pkg/dataset"
	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/page"
	"github.com/matzehuels/vizpage/pkg/sanitize"
	"github.com/matzehuels/vizpage/pkg/table"
)

// Report is a manifest with its data loaded and its pages validated.
type Report struct {
	Title    string
	Output   string       // output path of the cover page
	Format   codec.Format // collection-wide format; empty keeps page formats
	Cover    *page.Page
	Pages    []*page.Page
	Datasets *dataset.Registry
}

// BuildOptions configures [Manifest.Build].
type BuildOptions struct {
	// Now is the time stamped on pages when the manifest enables stamps.
	// Zero means time.Now().
	Now time.Time

	// Logger receives debug output about loaded datasets.
	Logger *log.Logger
}

// Build reads every dataset the manifest declares and constructs its pages.
func (m *Manifest) Build(ctx context.Context, opts BuildOptions) (*Report, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	reg := dataset.NewRegistry()
	for _, d := range m.Datasets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols, err := d.Schema()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "dataset %q", d.Name)
		}
		path := m.resolve(d.Path)
		t, err := table.ReadFile(ctx, path, cols)
		if err != nil {
			return nil, errors.Wrap(codeOr(err, errors.ErrCodeIO), err, "dataset %q", d.Name)
		}
		if err := reg.Register(d.Name, t); err != nil {
			return nil, err
		}
		logger.Debug("loaded dataset", "dataset", d.Name, "path", path, "rows", t.NumRows(), "columns", t.NumCols())
	}

	var stamp time.Time
	if m.Stamp {
		stamp = opts.Now
		if stamp.IsZero() {
			stamp = time.Now()
		}
	}

	title := m.Title
	coverSpec := m.Cover
	if coverSpec.Title == "" {
		coverSpec.Title = title
	}
	if title == "" {
		title = coverSpec.Title
	}

	r := &Report{
		Title:    title,
		Output:   m.output(title),
		Format:   codec.Format(m.Format),
		Datasets: reg,
	}
	cover, err := m.buildPage(ctx, coverSpec, reg, stamp)
	if err != nil {
		return nil, err
	}
	r.Cover = cover
	for _, spec := range m.Pages {
		p, err := m.buildPage(ctx, spec, reg, stamp)
		if err != nil {
			return nil, err
		}
		r.Pages = append(r.Pages, p)
	}
	return r, nil
}

func (m *Manifest) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || m.Dir == "" {
		return path
	}
	return filepath.Join(m.Dir, path)
}

func (m *Manifest) output(title string) string {
	if m.Output != "" {
		return m.resolve(m.Output)
	}
	return m.resolve(sanitize.Name(title) + ".html")
}

func (m *Manifest) buildPage(ctx context.Context, spec PageSpec, reg *dataset.Registry, stamp time.Time) (*page.Page, error) {
	format := codec.Format(spec.Format)
	if format == "" {
		format = codec.Format(m.Format)
	}

	// Explicit ids are reserved first so generated ones never collide.
	var ids sanitize.Allocator
	for _, c := range spec.Charts {
		if c.ID == "" {
			continue
		}
		if ids.Taken(sanitize.Name(c.ID)) {
			return nil, invalid("page %q: chart id %q used twice", spec.Title, c.ID)
		}
		ids.Claim(c.ID)
	}

	charts := make([]chart.Chart, 0, len(spec.Charts))
	for _, c := range spec.Charts {
		id := c.ID
		if id == "" {
			id = ids.Next(c.Type)
		}
		ch, err := buildChart(ctx, id, c, reg)
		if err != nil {
			return nil, errors.Wrap(codeOr(err, errors.ErrCodeInvalidManifest), err, "page %q", spec.Title)
		}
		charts = append(charts, ch)
	}

	return page.New(page.Config{
		Title:       spec.Title,
		Header:      template.HTML(spec.Header),
		Notes:       spec.Notes,
		NotesFile:   spec.NotesFile,
		Format:      format,
		Charts:      charts,
		Datasets:    reg,
		GeneratedOn: stamp,
	})
}

func buildChart(ctx context.Context, id string, c ChartSpec, reg *dataset.Registry) (chart.Chart, error) {
	var (
		ch  chart.Chart
		err error
	)
	if c.Type == ChartText {
		ch, err = chart.NewText(id, template.HTML(c.HTML))
		return orNil(ch, err)
	}
	t, ok := reg.Get(c.Dataset)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownDataset, "chart %q: dataset %q is not declared", id, c.Dataset)
	}
	switch c.Type {
	case ChartTable:
		ch, err = chart.NewTable(id, c.Dataset, t, chart.TableConfig{Title: c.Title, Columns: c.Columns, PageSize: c.PerPage})
	case ChartLine:
		ch, err = chart.NewLine(id, c.Dataset, t, chart.LineConfig{Title: c.Title, X: c.X, Y: c.Y, Group: c.Group})
	case ChartBar:
		var y string
		if len(c.Y) > 0 {
			y = c.Y[0]
		}
		ch, err = chart.NewBar(id, c.Dataset, t, chart.BarConfig{Title: c.Title, X: c.X, Y: y, Agg: c.Agg})
	case ChartDiagram:
		ch, err = chart.NewDiagram(ctx, id, c.Dataset, t, chart.DiagramConfig{
			Title: c.Title, From: c.From, To: c.To, Label: c.Label, RankDir: c.RankDir,
		})
	default:
		return nil, invalid("chart %q: unknown chart type %q", id, c.Type)
	}
	return orNil(ch, err)
}

// orNil drops the typed nil a failed constructor leaves in ch.
func orNil(ch chart.Chart, err error) (chart.Chart, error) {
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// codeOr returns the code carried by err, or fallback when it has none.
func codeOr(err error, fallback errors.Code) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return fallback
}
