package project

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizpage/pkg/codec"
	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/sanitize"
)

// NotesDir is the project-relative directory of editable notes files.
const NotesDir = "notes"

// Layout describes what a Writer has put on disk so far.
type Layout struct {
	Dir      string   // directory holding the HTML files
	MainHTML string   // path of the main page
	Project  bool     // whether a project directory was created
	Files    []string // Dir-relative paths written, in write order
}

// DataFiles returns the Dir-relative paths under data/.
func (l Layout) DataFiles() []string {
	var out []string
	for _, f := range l.Files {
		if strings.HasPrefix(f, codec.DataDir+"/") {
			out = append(out, f)
		}
	}
	return out
}

// Writer lays out one report on disk. A Writer is not safe for concurrent
// use; concurrent builds into the same root are unsupported.
type Writer struct {
	format  codec.Format
	dir     string
	stem    string
	main    string
	project bool
	logger  *log.Logger

	scaffolded bool
	datasets   map[string]string // dataset name -> relative path
	owners     map[string]string // relative path -> dataset name
	files      []string
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger used for per-file debug output.
func WithLogger(l *log.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// WithProjectDir forces a project directory even for embedded formats.
// Multi-page collections always use one.
func WithProjectDir() Option {
	return func(w *Writer) { w.project = true }
}

// New prepares a Writer for the page at root (".html" is appended when root
// has no extension). Nothing is written until Layout or WritePage is called.
func New(root string, format codec.Format, opts ...Option) (*Writer, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if root == "" {
		return nil, errors.New(errors.ErrCodeInvalidPath, "output path cannot be empty")
	}
	if filepath.Ext(root) == "" {
		root += ".html"
	}
	base := filepath.Base(root)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		return nil, errors.New(errors.ErrCodeInvalidPath, "output path %q has no file name", root)
	}
	if i := strings.IndexAny(base, launcherUnsafe); i >= 0 {
		return nil, errors.New(errors.ErrCodeInvalidPath, "output file name %q contains %q, which launcher scripts cannot quote", base, base[i])
	}

	w := &Writer{
		format:   format,
		stem:     stem,
		project:  format.External(),
		logger:   log.New(io.Discard),
		datasets: make(map[string]string),
		owners:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.dir = filepath.Dir(root)
	if w.project {
		w.dir = filepath.Join(w.dir, stem)
	}
	w.main = filepath.Join(w.dir, base)
	return w, nil
}

// Dir returns the directory that holds the HTML files.
func (w *Writer) Dir() string { return w.dir }

// MainHTML returns the path of the main page.
func (w *Writer) MainHTML() string { return w.main }

// Stem returns the output file name without extension.
func (w *Writer) Stem() string { return w.stem }

// Format returns the data format the Writer was created for.
func (w *Writer) Format() codec.Format { return w.format }

// Snapshot returns the current layout.
func (w *Writer) Snapshot() Layout {
	return Layout{
		Dir:      w.dir,
		MainHTML: w.main,
		Project:  w.project,
		Files:    append([]string(nil), w.files...),
	}
}

// Layout writes the payload of every external dataset in encoded under
// data/, creating the project scaffolding on first use. Datasets already
// written by this Writer are skipped. For embedded formats without a project
// directory it writes nothing.
func (w *Writer) Layout(encoded []codec.Encoded) (Layout, error) {
	if !w.project {
		return w.Snapshot(), nil
	}
	if err := w.scaffold(); err != nil {
		return Layout{}, err
	}
	for _, e := range encoded {
		if !e.Format.External() {
			continue
		}
		if e.Format != w.format {
			return Layout{}, errors.New(errors.ErrCodeMixedFormat, "dataset %q encoded as %s, project uses %s", e.Name, e.Format, w.format)
		}
		if _, done := w.datasets[e.Name]; done {
			w.logger.Debug("dataset already written", "dataset", e.Name)
			continue
		}
		rel := e.Path()
		if owner, taken := w.owners[rel]; taken {
			return Layout{}, errors.New(errors.ErrCodeDuplicateFilename, "datasets %q and %q both map to %s", owner, e.Name, rel)
		}
		if err := w.write(rel, e.Payload, 0o644); err != nil {
			return Layout{}, err
		}
		w.datasets[e.Name] = rel
		w.owners[rel] = e.Name
		w.logger.Debug("wrote dataset", "dataset", e.Name, "path", rel, "bytes", len(e.Payload))
	}
	return w.Snapshot(), nil
}

// WritePage writes an HTML page. An empty name writes the main page. It
// returns the path written.
func (w *Writer) WritePage(name, html string) (string, error) {
	if name == "" {
		name = filepath.Base(w.main)
	}
	if w.project {
		if err := w.scaffold(); err != nil {
			return "", err
		}
	}
	if err := w.write(name, []byte(html), 0o644); err != nil {
		return "", err
	}
	return filepath.Join(w.dir, name), nil
}

// WriteFile writes an auxiliary file at a Dir-relative path.
func (w *Writer) WriteFile(rel string, data []byte) error {
	return w.write(rel, data, 0o644)
}

// NotesPath returns the Dir-relative path of the notes file for stem.
func NotesPath(stem string) string {
	return NotesDir + "/" + sanitize.Name(stem) + ".md"
}

// ReadNotes returns the content of an existing notes file without writing
// anything. The boolean reports whether the file exists.
func (w *Writer) ReadNotes(stem string) (string, bool, error) {
	path := filepath.Join(w.dir, filepath.FromSlash(NotesPath(stem)))
	data, err := os.ReadFile(path)
	if err == nil {
		return string(data), true, nil
	}
	if os.IsNotExist(err) {
		return "", false, nil
	}
	return "", false, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
}

// EnsureNotes returns the content of notes/<stem>.md, creating it with
// initial when it does not exist. An existing file is never overwritten so
// that hand edits survive regeneration.
func (w *Writer) EnsureNotes(stem, initial string) (string, error) {
	content, ok, err := w.ReadNotes(stem)
	if err != nil {
		return "", err
	}
	rel := NotesPath(stem)
	if ok {
		w.logger.Debug("keeping existing notes", "path", rel)
		return content, nil
	}
	if err := w.write(rel, []byte(initial), 0o644); err != nil {
		return "", err
	}
	return initial, nil
}

func (w *Writer) scaffold() error {
	if w.scaffolded {
		return nil
	}
	if err := mkdir(w.dir); err != nil {
		return err
	}
	files, err := scaffoldFiles(w.stem, filepath.Base(w.main), w.format)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := w.write(f.name, f.data, f.mode); err != nil {
			return err
		}
	}
	w.scaffolded = true
	return nil
}

func (w *Writer) write(rel string, data []byte, mode fs.FileMode) error {
	if err := errors.ValidatePath(rel); err != nil {
		return err
	}
	path := filepath.Join(w.dir, filepath.FromSlash(rel))
	if err := mkdir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	// WriteFile leaves the mode of existing files alone.
	if err := os.Chmod(path, mode); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "chmod %s", path)
	}
	w.files = append(w.files, filepath.ToSlash(rel))
	return nil
}

func mkdir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create directory %s", dir)
	}
	return nil
}

// launcherUnsafe lists the characters that cmd.exe interprets even inside a
// quoted string, plus line breaks, which end a script line.
const launcherUnsafe = "\"%!^&|<>`$\r\n"

// shQuote single-quotes s for a POSIX shell.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

type scaffoldFile struct {
	name string
	data []byte
	mode fs.FileMode
}

var launcherSH = template.Must(template.New("sh").Funcs(template.FuncMap{"shquote": shQuote}).Parse(`#!/bin/sh
# Opens {{.Main}} in Chrome or Chromium with local file access enabled so
# the page can load its data files.
DIR="$(cd "$(dirname "$0")" && pwd)"
PAGE="$DIR"/{{shquote .Main}}
for b in google-chrome google-chrome-stable chromium chromium-browser; do
  if command -v "$b" >/dev/null 2>&1; then
    exec "$b" --allow-file-access-from-files "file://$PAGE"
  fi
done
if [ "$(uname)" = "Darwin" ]; then
  exec open -na "Google Chrome" --args --allow-file-access-from-files "file://$PAGE"
fi
echo "Chrome or Chromium not found. Serve this directory over HTTP instead:" >&2
echo "  python3 -m http.server --directory \"$DIR\"" >&2
exit 1
`))

var launcherBAT = template.Must(template.New("bat").Parse(`@echo off
rem Opens {{.Main}} in Chrome with local file access enabled.
set "DIR=%~dp0"
start "" chrome --allow-file-access-from-files "file:///%DIR%{{.Main}}"
`))

var readme = template.Must(template.New("readme").Parse(`# {{.Stem}}

Open ` + "`{{.Main}}`" + ` to view the report.
{{- if .External}}

The page loads its data from the ` + "`data/`" + ` directory. Browsers block
such loads for pages opened from disk, so use one of the launchers:

- Linux/macOS: ` + "`./open_{{.Stem}}.sh`" + `
- Windows: ` + "`open_{{.Stem}}.bat`" + `

Alternatively serve this directory over HTTP, for example with
` + "`python3 -m http.server`" + `.
{{- end}}

Files under ` + "`notes/`" + ` are yours to edit; they are shown in the page
footer and are never overwritten when the report is regenerated.
`))

func scaffoldFiles(stem, main string, format codec.Format) ([]scaffoldFile, error) {
	data := struct {
		Stem, Main string
		External   bool
	}{stem, main, format.External()}

	render := func(t *template.Template) ([]byte, error) {
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", t.Name())
		}
		return buf.Bytes(), nil
	}

	md, err := render(readme)
	if err != nil {
		return nil, err
	}
	files := []scaffoldFile{{name: "README.md", data: md, mode: 0o644}}
	if !format.External() {
		return files, nil
	}
	sh, err := render(launcherSH)
	if err != nil {
		return nil, err
	}
	bat, err := render(launcherBAT)
	if err != nil {
		return nil, err
	}
	bat = bytes.ReplaceAll(bat, []byte("\n"), []byte("\r\n"))
	return append(files,
		scaffoldFile{name: "open_" + stem + ".sh", data: sh, mode: 0o755},
		scaffoldFile{name: "open_" + stem + ".bat", data: bat, mode: 0o644},
	), nil
}
