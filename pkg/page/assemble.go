package page

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/matzehuels/vizpage/pkg/codec"
	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/sanitize"
)

//go:embed assets/page.html
var pageTemplate string

//go:embed assets/runtime.js
var runtimeJS string

//go:embed assets/styles.css
var stylesCSS string

var docTemplate = template.Must(template.New("page").Parse(pageTemplate))

// Runtime returns the client-side loader runtime that defines the global
// vizpage object.
func Runtime() string { return runtimeJS }

// NavLink is one entry of the navigation list.
type NavLink struct {
	Title   string
	Href    string
	Current bool
}

type assembleOptions struct {
	nav   []NavLink
	notes *string
}

// Option customizes [Assemble].
type Option func(*assembleOptions)

// WithNav renders links in a nav element under the header.
func WithNav(links []NavLink) Option {
	return func(o *assembleOptions) { o.nav = links }
}

// WithNotes replaces the page's static notes, typically with the content of
// its editable notes file.
func WithNotes(notes string) Option {
	return func(o *assembleOptions) { o.notes = &notes }
}

type section struct {
	ID   string
	HTML template.HTML
}

type document struct {
	Title       string
	Header      template.HTML
	Nav         []NavLink
	Styles      []string
	Scripts     []string
	CSS         template.CSS
	Runtime     template.JS
	Sections    []section
	Notes       string
	GeneratedOn string
	Containers  []template.HTML
	Bootstrap   template.JS
}

// Assemble renders p into a complete HTML document. encoded must contain an
// entry in p's format for every dataset p references; entries for other
// datasets are ignored. Assemble performs no I/O.
func Assemble(p *Page, encoded []codec.Encoded, opts ...Option) (string, error) {
	var o assembleOptions
	for _, opt := range opts {
		opt(&o)
	}

	byName := make(map[string]codec.Encoded, len(encoded))
	for _, e := range encoded {
		byName[e.Name] = e
	}

	var boot strings.Builder
	doc := document{
		Title:   p.cfg.Title,
		Header:  p.cfg.Header,
		Nav:     o.nav,
		CSS:     template.CSS(stylesCSS),
		Runtime: template.JS(runtimeJS),
		Notes:   p.cfg.Notes,
	}
	if o.notes != nil {
		doc.Notes = *o.notes
	}
	if !p.cfg.GeneratedOn.IsZero() {
		doc.GeneratedOn = p.cfg.GeneratedOn.UTC().Format("2006-01-02 15:04 MST")
	}
	doc.Scripts, doc.Styles = splitAssets(p.scripts)

	for _, d := range p.datasets {
		e, ok := byName[d.Name]
		if !ok {
			return "", errors.New(errors.ErrCodeUnknownDataset, "page %q: no encoding supplied for dataset %q", p.cfg.Title, d.Name)
		}
		if e.Format != p.cfg.Format {
			return "", errors.New(errors.ErrCodeMixedFormat, "page %q: dataset %q encoded as %s, page uses %s", p.cfg.Title, d.Name, e.Format, p.cfg.Format)
		}
		if c := e.Container(); c != "" {
			doc.Containers = append(doc.Containers, template.HTML(c))
		}
		boot.WriteString(e.Loader())
		boot.WriteByte('\n')
	}

	var ids sanitize.Allocator
	for _, c := range p.cfg.Charts {
		id := ids.Claim(c.ID())
		doc.Sections = append(doc.Sections, section{ID: id, HTML: c.AppearanceFragment()})

		fn := c.FunctionalFragment()
		if strings.TrimSpace(string(fn)) == "" {
			continue
		}
		deps := c.Dependencies()
		if deps == nil {
			deps = []string{}
		}
		depsJSON, err := json.Marshal(deps)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInternal, err, "chart %q", c.ID())
		}
		idJSON, _ := json.Marshal(id)
		fmt.Fprintf(&boot, "vizpage.whenLoaded(%s, function (data, container) {\n%s\n}, %s);\n", depsJSON, strings.TrimRight(string(fn), "\n"), idJSON)
	}
	boot.WriteString("vizpage.start();")
	doc.Bootstrap = template.JS(boot.String())

	var buf bytes.Buffer
	if err := docTemplate.Execute(&buf, doc); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "render page %q", p.cfg.Title)
	}
	return buf.String(), nil
}
