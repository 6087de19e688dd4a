// Package manifest reads report descriptions from TOML or YAML files and
// turns them into pages ready for package site.
//
// A manifest names the source files of every dataset, then lists the cover
// page and any number of content pages with their charts:
//
//	title  = "Quarterly sales"
//	output = "out/sales.html"
//	format = "csv_external"
//
//	[[datasets]]
//	name = "sales"
//	path = "data/sales.csv"
//
//	[[cover.charts]]
//	type    = "line"
//	dataset = "sales"
//	x       = "month"
//	y       = ["revenue"]
//
//	[[pages]]
//	title = "Raw data"
//	[[pages.charts]]
//	type    = "table"
//	dataset = "sales"
//
// Relative paths are resolved against the manifest's directory.
package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/vizpage/pkg/codec"
	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/table"
)

// Syntax is the file syntax of a manifest.
type Syntax string

const (
	SyntaxTOML Syntax = "toml"
	SyntaxYAML Syntax = "yaml"
)

// Chart types understood by the manifest.
const (
	ChartText    = "text"
	ChartTable   = "table"
	ChartLine    = "line"
	ChartBar     = "bar"
	ChartDiagram = "diagram"
)

var chartTypes = map[string]bool{
	ChartText:    true,
	ChartTable:   true,
	ChartLine:    true,
	ChartBar:     true,
	ChartDiagram: true,
}

// Manifest is a parsed report description.
type Manifest struct {
	Title    string        `toml:"title" yaml:"title"`
	Output   string        `toml:"output" yaml:"output"`
	Format   string        `toml:"format" yaml:"format"`
	Stamp    bool          `toml:"stamp" yaml:"stamp"`
	Datasets []DatasetSpec `toml:"datasets" yaml:"datasets"`
	Cover    PageSpec      `toml:"cover" yaml:"cover"`
	Pages    []PageSpec    `toml:"pages" yaml:"pages"`

	// Dir is the directory relative paths are resolved against. Load sets it
	// to the manifest's directory.
	Dir string `toml:"-" yaml:"-"`
}

// DatasetSpec names a source file. Columns, when given, declare the schema
// instead of inferring it.
type DatasetSpec struct {
	Name    string       `toml:"name" yaml:"name"`
	Path    string       `toml:"path" yaml:"path"`
	Columns []ColumnSpec `toml:"columns" yaml:"columns"`
}

// ColumnSpec declares one column.
type ColumnSpec struct {
	Name string `toml:"name" yaml:"name"`
	Kind string `toml:"kind" yaml:"kind"`
}

// PageSpec describes one page.
type PageSpec struct {
	Title     string      `toml:"title" yaml:"title"`
	Header    string      `toml:"header" yaml:"header"` // trusted HTML
	Notes     string      `toml:"notes" yaml:"notes"`
	NotesFile string      `toml:"notes_file" yaml:"notes_file"`
	Format    string      `toml:"format" yaml:"format"`
	Charts    []ChartSpec `toml:"charts" yaml:"charts"`
}

// ChartSpec describes one chart. Which fields apply depends on Type.
type ChartSpec struct {
	Type    string   `toml:"type" yaml:"type"`
	ID      string   `toml:"id" yaml:"id"`
	Dataset string   `toml:"dataset" yaml:"dataset"`
	Title   string   `toml:"title" yaml:"title"`
	HTML    string   `toml:"html" yaml:"html"`       // text
	Columns []string `toml:"columns" yaml:"columns"` // table
	PerPage int      `toml:"page_size" yaml:"page_size"`
	X       string   `toml:"x" yaml:"x"`         // line, bar
	Y       []string `toml:"y" yaml:"y"`         // line; bar uses the first
	Group   string   `toml:"group" yaml:"group"` // line
	Agg     string   `toml:"agg" yaml:"agg"`     // bar
	From    string   `toml:"from" yaml:"from"`   // diagram
	To      string   `toml:"to" yaml:"to"`
	Label   string   `toml:"label" yaml:"label"`
	RankDir string   `toml:"rankdir" yaml:"rankdir"`
}

// SyntaxOf picks the syntax from a file extension.
func SyntaxOf(path string) (Syntax, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return SyntaxTOML, nil
	case ".yaml", ".yml":
		return SyntaxYAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidManifest, "%s: unknown manifest extension (want .toml, .yaml or .yml)", path)
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	syntax, err := SyntaxOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read manifest %s", path)
	}
	m, err := Parse(data, syntax)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s", path)
	}
	m.Dir = filepath.Dir(path)
	return m, nil
}

// Parse decodes and validates a manifest. Unknown keys are errors so that
// typos do not silently drop configuration.
func Parse(data []byte, syntax Syntax) (*Manifest, error) {
	var m Manifest
	switch syntax {
	case SyntaxTOML:
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "unknown key %q", undecoded[0].String())
		}
	case SyntaxYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse yaml")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidManifest, "unknown syntax %q", syntax)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest without reading any data files.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Title) == "" && strings.TrimSpace(m.Cover.Title) == "" {
		return invalid("title is required")
	}
	if m.Format != "" {
		if err := codec.Format(m.Format).Validate(); err != nil {
			return err
		}
	}

	names := make(map[string]bool, len(m.Datasets))
	for i, d := range m.Datasets {
		if err := errors.ValidateName("dataset", d.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidManifest, err, "datasets[%d]", i)
		}
		if names[d.Name] {
			return invalid("dataset %q declared twice", d.Name)
		}
		names[d.Name] = true
		if d.Path == "" {
			return invalid("dataset %q: path is required", d.Name)
		}
		for _, c := range d.Columns {
			if c.Name == "" {
				return invalid("dataset %q: column without a name", d.Name)
			}
			if _, err := table.ParseKind(c.Kind); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidManifest, err, "dataset %q column %q", d.Name, c.Name)
			}
		}
	}

	pages := append([]PageSpec{m.Cover}, m.Pages...)
	for i, p := range pages {
		where := "cover"
		if i > 0 {
			where = "page " + quote(p.Title)
			if strings.TrimSpace(p.Title) == "" {
				return invalid("pages[%d]: title is required", i-1)
			}
		}
		if p.Format != "" {
			if err := codec.Format(p.Format).Validate(); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s", where)
			}
		}
		for j, c := range p.Charts {
			if !chartTypes[c.Type] {
				return invalid("%s: charts[%d]: unknown chart type %q", where, j, c.Type)
			}
			if c.Type != ChartText && !names[c.Dataset] {
				return errors.New(errors.ErrCodeUnknownDataset, "%s: charts[%d]: dataset %q is not declared", where, j, c.Dataset)
			}
		}
	}
	return nil
}

// Schema returns the declared columns, or nil when they are inferred.
func (d DatasetSpec) Schema() ([]table.Column, error) {
	if len(d.Columns) == 0 {
		return nil, nil
	}
	cols := make([]table.Column, len(d.Columns))
	for i, c := range d.Columns {
		k, err := table.ParseKind(c.Kind)
		if err != nil {
			return nil, err
		}
		cols[i] = table.Column{Name: c.Name, Kind: k}
	}
	return cols, nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidManifest, format, args...)
}

func quote(s string) string { return `"` + s + `"` }
