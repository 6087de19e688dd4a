// Package page validates a page description and assembles it into a single
// HTML document.
//
// Assembly is pure: [Assemble] takes a [Page] and the already-encoded
// datasets it references and returns the document text. Writing files is the
// job of package project.
//
// The document is laid out in a fixed order: library tags and the loader
// runtime in the head, then header and navigation, one section per chart in
// list order, the footer, embedded data containers, loader registrations,
// one gated init call per chart, and finally vizpage.start().
package page

import (
	"html/template"
	"strings"
	"time"

	"github.com/matzehuels/vizpage/pkg/chart"
	"github.com/matzehuels/vizpage/pkg/codec"
	"github.com/matzehuels/vizpage/pkg/dataset"
	"github.com/matzehuels/vizpage/pkg/errors"
)

// Config describes a page. It is copied by [New]; later changes to the
// caller's Config do not affect the page.
type Config struct {
	Title       string
	Header      template.HTML // trusted markup shown under the title
	Notes       string        // plain text shown in the footer
	NotesFile   string        // editable notes file stem; empty disables it
	Format      codec.Format  // defaults to codec.DefaultFormat
	Charts      []chart.Chart
	Datasets    *dataset.Registry
	GeneratedOn time.Time // omitted from the output when zero
}

// Page is a validated, immutable page description.
type Page struct {
	cfg      Config
	deps     []string
	datasets []dataset.Dataset
	scripts  []string
}

// New validates cfg. It fails with UNSUPPORTED_FORMAT for an unknown format,
// INVALID_CHART for nil charts, duplicate chart ids or unsafe script URLs,
// and UNKNOWN_DATASET when a chart references an unregistered dataset.
func New(cfg Config) (*Page, error) {
	if cfg.Format == "" {
		cfg.Format = codec.DefaultFormat
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	if cfg.Datasets == nil {
		cfg.Datasets = dataset.NewRegistry()
	}
	cfg.Charts = append([]chart.Chart(nil), cfg.Charts...)

	seen := make(map[string]bool, len(cfg.Charts))
	var scripts []string
	seenScript := make(map[string]bool)
	for i, c := range cfg.Charts {
		if c == nil {
			return nil, errors.New(errors.ErrCodeInvalidChart, "chart %d is nil", i)
		}
		if seen[c.ID()] {
			return nil, errors.New(errors.ErrCodeInvalidChart, "duplicate chart id %q", c.ID())
		}
		seen[c.ID()] = true
		for _, u := range c.ScriptDependencies() {
			if seenScript[u] {
				continue
			}
			if err := errors.ValidateURL(u); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidChart, err, "chart %q", c.ID())
			}
			seenScript[u] = true
			scripts = append(scripts, u)
		}
	}

	deps := dataset.DependenciesOf(cfg.Charts)
	resolved, err := cfg.Datasets.Resolve(deps)
	if err != nil {
		return nil, err
	}
	return &Page{cfg: cfg, deps: deps, datasets: resolved, scripts: scripts}, nil
}

// Title returns the page title.
func (p *Page) Title() string { return p.cfg.Title }

// Format returns the page's data format.
func (p *Page) Format() codec.Format { return p.cfg.Format }

// Notes returns the static footer text.
func (p *Page) Notes() string { return p.cfg.Notes }

// NotesFile returns the editable notes file stem, or "".
func (p *Page) NotesFile() string { return p.cfg.NotesFile }

// GeneratedOn returns the stamp time, zero when the page is unstamped.
func (p *Page) GeneratedOn() time.Time { return p.cfg.GeneratedOn }

// Charts returns the charts in display order.
func (p *Page) Charts() []chart.Chart { return append([]chart.Chart(nil), p.cfg.Charts...) }

// Dependencies returns the dataset names the charts need, first-seen order.
func (p *Page) Dependencies() []string { return append([]string(nil), p.deps...) }

// Datasets returns the referenced datasets in registration order. Registered
// datasets no chart uses are not included.
func (p *Page) Datasets() []dataset.Dataset { return append([]dataset.Dataset(nil), p.datasets...) }

// ScriptURLs returns the deduplicated script and stylesheet URLs in
// first-seen order.
func (p *Page) ScriptURLs() []string { return append([]string(nil), p.scripts...) }

// WithFormat returns a copy of p using format f.
func (p *Page) WithFormat(f codec.Format) (*Page, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	cp := *p
	cp.cfg.Format = f
	return &cp, nil
}

// Encode serializes every referenced dataset in the page's format.
func (p *Page) Encode() ([]codec.Encoded, error) {
	out := make([]codec.Encoded, 0, len(p.datasets))
	for _, d := range p.datasets {
		enc, err := codec.Encode(d.Name, d.Table, p.cfg.Format)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	return out, nil
}

func splitAssets(urls []string) (scripts, styles []string) {
	for _, u := range urls {
		path := u
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
		if strings.HasSuffix(strings.ToLower(path), ".css") {
			styles = append(styles, u)
		} else {
			scripts = append(scripts, u)
		}
	}
	return scripts, styles
}
