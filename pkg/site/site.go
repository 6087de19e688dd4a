package site

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/vizpage/pkg/cache"
	"github.com/matzehuels/vizpage/pkg/codec"
	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/observability"
	"github.com/matzehuels/vizpage/pkg/page"
	"github.com/matzehuels/vizpage/pkg/project"
	"github.com/matzehuels/vizpage/pkg/sanitize"
	"github.com/matzehuels/vizpage/pkg/table"
)

// ManifestFile is the name of the collection manifest.
const ManifestFile = "pages.json"

// Options configures a build. The zero value is usable.
type Options struct {
	// Format overrides the data format of every page. When empty, all pages
	// must already agree on one format.
	Format codec.Format

	// Cache stores encoded payloads between builds. Nil disables caching.
	Cache cache.Cache

	// Logger receives per-file debug output. Nil discards it.
	Logger *log.Logger
}

// Manifest lists the pages of a collection. It is written as pages.json.
type Manifest struct {
	Title string  `json:"title"`
	Cover string  `json:"cover"`
	Pages []Entry `json:"pages"`
}

// Entry describes one page in the manifest.
type Entry struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	File     string   `json:"file"`
	Cover    bool     `json:"cover,omitempty"`
	Datasets []string `json:"datasets"`
}

// PageID returns the stable id of the page stored in file: a name-based
// (version 5) UUID of the file name.
func PageID(file string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("vizpage:"+file)).String()
}

// Render writes a single page to root. It is Build without content pages.
func Render(ctx context.Context, root string, p *page.Page, opts Options) (project.Layout, error) {
	return Build(ctx, root, p, nil, opts)
}

// build carries the state of one Build call.
type build struct {
	opts    Options
	logger  *log.Logger
	writer  *project.Writer
	format  codec.Format
	pages   []*page.Page // cover first
	files   []string     // file name per page
	links   map[string]string
	encoded map[string]codec.Encoded
	order   []string // dataset names, first-seen
}

// Build writes cover and pages as one linked collection under root and
// returns what was written. With no content pages the cover is rendered like
// a single page.
func Build(ctx context.Context, root string, cover *page.Page, pages []*page.Page, opts Options) (layout project.Layout, err error) {
	start := time.Now()
	observability.Build().OnBuildStart(ctx, root, len(pages)+1)
	defer func() {
		observability.Build().OnBuildComplete(ctx, root, len(layout.Files), time.Since(start), err)
	}()

	b, err := prepare(root, cover, pages, opts)
	if err != nil {
		return project.Layout{}, err
	}
	if err := b.encode(ctx); err != nil {
		return project.Layout{}, err
	}
	docs, err := b.assemble(ctx)
	if err != nil {
		return project.Layout{}, err
	}
	return b.write(ctx, docs)
}

// prepare validates the inputs without touching the filesystem.
func prepare(root string, cover *page.Page, pages []*page.Page, opts Options) (*build, error) {
	if cover == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cover page is required")
	}
	all := append([]*page.Page{cover}, pages...)
	for i, p := range all {
		if p == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "page %d is nil", i)
		}
	}

	format, all, err := resolveFormat(opts.Format, all)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	wopts := []project.Option{project.WithLogger(logger)}
	if len(pages) > 0 {
		wopts = append(wopts, project.WithProjectDir())
	}
	w, err := project.New(root, format, wopts...)
	if err != nil {
		return nil, err
	}

	b := &build{
		opts:    opts,
		logger:  logger,
		writer:  w,
		format:  format,
		pages:   all,
		links:   make(map[string]string, len(all)),
		encoded: make(map[string]codec.Encoded),
	}
	if err := b.assignFiles(); err != nil {
		return nil, err
	}
	if err := b.unionDatasets(); err != nil {
		return nil, err
	}
	return b, nil
}

func resolveFormat(override codec.Format, all []*page.Page) (codec.Format, []*page.Page, error) {
	if override != "" {
		if err := override.Validate(); err != nil {
			return "", nil, err
		}
		out := make([]*page.Page, len(all))
		for i, p := range all {
			cp, err := p.WithFormat(override)
			if err != nil {
				return "", nil, err
			}
			out[i] = cp
		}
		return override, out, nil
	}
	format := all[0].Format()
	for _, p := range all[1:] {
		if p.Format() != format {
			return "", nil, errors.New(errors.ErrCodeMixedFormat,
				"page %q uses %s but %q uses %s; set a collection format to override", p.Title(), p.Format(), all[0].Title(), format)
		}
	}
	return format, all, nil
}

func (b *build) assignFiles() error {
	cover := filepath.Base(b.writer.MainHTML())
	owner := map[string]string{cover: b.pages[0].Title()}
	b.files = []string{cover}
	b.links[b.pages[0].Title()] = cover
	for _, p := range b.pages[1:] {
		file := sanitize.Name(p.Title()) + ".html"
		if prev, taken := owner[file]; taken {
			return errors.New(errors.ErrCodeDuplicateFilename, "pages %q and %q both map to %s", prev, p.Title(), file)
		}
		owner[file] = p.Title()
		b.files = append(b.files, file)
		if _, dup := b.links[p.Title()]; !dup {
			b.links[p.Title()] = file
		}
	}
	return nil
}

func (b *build) unionDatasets() error {
	tables := make(map[string]*table.Table)
	stems := make(map[string]string)
	for _, p := range b.pages {
		for _, d := range p.Datasets() {
			if prev, ok := tables[d.Name]; ok {
				if prev != d.Table && !prev.Equal(d.Table) {
					return errors.New(errors.ErrCodeDuplicateName, "dataset %q is bound to different tables on different pages", d.Name)
				}
				continue
			}
			if other, ok := stems[d.File()]; ok {
				return errors.New(errors.ErrCodeDuplicateFilename, "datasets %q and %q both map to file %q", other, d.Name, d.File())
			}
			tables[d.Name] = d.Table
			stems[d.File()] = d.Name
			b.order = append(b.order, d.Name)
		}
	}
	return nil
}

// encode serializes every dataset of the collection exactly once.
func (b *build) encode(ctx context.Context) error {
	for _, p := range b.pages {
		for _, d := range p.Datasets() {
			if _, done := b.encoded[d.Name]; done {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			e, err := b.encodeCached(ctx, d.Name, d.Table)
			if err != nil {
				return err
			}
			observability.Build().OnDatasetEncoded(ctx, d.Name, string(b.format), len(e.Payload), time.Since(start))
			b.encoded[d.Name] = e
		}
	}
	return nil
}

func (b *build) encodeCached(ctx context.Context, name string, t *table.Table) (codec.Encoded, error) {
	if b.opts.Cache == nil {
		return codec.Encode(name, t, b.format)
	}
	key := cache.Key(string(b.format), t.Fingerprint())
	data, hit, err := b.opts.Cache.Get(ctx, key)
	if err != nil {
		b.logger.Warn("cache read failed", "dataset", name, "err", err)
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, "payload")
		b.logger.Debug("cache hit", "dataset", name)
		return codec.FromPayload(name, t.Columns(), b.format, data)
	}
	observability.Cache().OnCacheMiss(ctx, "payload")

	e, err := codec.Encode(name, t, b.format)
	if err != nil {
		return codec.Encoded{}, err
	}
	if err := b.opts.Cache.Set(ctx, key, e.Payload, cache.DefaultTTL); err != nil {
		b.logger.Warn("cache write failed", "dataset", name, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "payload", len(e.Payload))
	}
	return e, nil
}

// nav returns the navigation list as seen from page i.
func (b *build) nav(i int) []page.NavLink {
	if len(b.pages) == 1 {
		return nil
	}
	links := make([]page.NavLink, len(b.pages))
	for j, p := range b.pages {
		links[j] = page.NavLink{Title: p.Title(), Href: b.files[j], Current: i == j}
	}
	return links
}

type document struct {
	html         string
	notes        string
	writeNotes   bool
	assembleTime time.Duration
}

// assemble renders every page in memory. Existing notes files are read but
// nothing is written.
func (b *build) assemble(ctx context.Context) ([]document, error) {
	docs := make([]document, len(b.pages))
	for i, p := range b.pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		observability.Build().OnPageStart(ctx, p.Title())

		opts := []page.Option{page.WithNav(b.nav(i))}
		if p.NotesFile() != "" {
			content, ok, err := b.writer.ReadNotes(p.NotesFile())
			if err != nil {
				return nil, err
			}
			if !ok {
				content = p.Notes()
				docs[i].writeNotes = true
			}
			docs[i].notes = content
			opts = append(opts, page.WithNotes(content))
		}

		encoded := make([]codec.Encoded, 0, len(p.Dependencies()))
		for _, d := range p.Datasets() {
			encoded = append(encoded, b.encoded[d.Name])
		}
		html, err := page.Assemble(p, encoded, opts...)
		if err == nil {
			html, err = rewriteLinks(html, b.links)
		}
		if err != nil {
			observability.Build().OnPageComplete(ctx, p.Title(), b.files[i], 0, time.Since(start), err)
			code := errors.GetCode(err)
			if code == "" {
				code = errors.ErrCodeInternal
			}
			return nil, errors.Wrap(code, err, "page %q", p.Title())
		}
		docs[i].html = html
		docs[i].assembleTime = time.Since(start)
	}
	return docs, nil
}

// write puts the validated build on disk.
func (b *build) write(ctx context.Context, docs []document) (project.Layout, error) {
	ordered := make([]codec.Encoded, 0, len(b.order))
	for _, name := range b.order {
		ordered = append(ordered, b.encoded[name])
	}
	if _, err := b.writer.Layout(ordered); err != nil {
		return project.Layout{}, err
	}

	for i, p := range b.pages {
		if docs[i].writeNotes {
			if _, err := b.writer.EnsureNotes(p.NotesFile(), docs[i].notes); err != nil {
				return project.Layout{}, err
			}
		}
		start := time.Now()
		name := b.files[i]
		if i == 0 {
			name = ""
		}
		path, err := b.writer.WritePage(name, docs[i].html)
		observability.Build().OnPageComplete(ctx, p.Title(), b.files[i], len(docs[i].html), docs[i].assembleTime+time.Since(start), err)
		if err != nil {
			return project.Layout{}, err
		}
		b.logger.Debug("wrote page", "title", p.Title(), "path", path)
	}

	if len(b.pages) > 1 {
		data, err := json.MarshalIndent(b.manifest(), "", "  ")
		if err != nil {
			return project.Layout{}, errors.Wrap(errors.ErrCodeInternal, err, "encode %s", ManifestFile)
		}
		if err := b.writer.WriteFile(ManifestFile, append(data, '\n')); err != nil {
			return project.Layout{}, err
		}
	}
	return b.writer.Snapshot(), nil
}

func (b *build) manifest() Manifest {
	m := Manifest{Title: b.pages[0].Title(), Cover: b.files[0]}
	for i, p := range b.pages {
		deps := p.Dependencies()
		if deps == nil {
			deps = []string{}
		}
		m.Pages = append(m.Pages, Entry{
			ID:       PageID(b.files[i]),
			Title:    p.Title(),
			File:     b.files[i],
			Cover:    i == 0,
			Datasets: deps,
		})
	}
	return m
}
