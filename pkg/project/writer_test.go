package project

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/vizpage/pkg/codec"
	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/table"
)

func salesEncoded(t *testing.T, f codec.Format) codec.Encoded {
	t.Helper()
	b := table.NewBuilder(
		table.Column{Name: "x", Kind: table.KindInt},
		table.Column{Name: "y", Kind: table.KindFloat},
	)
	_ = b.Append(1, 1.5)
	_ = b.Append(2, nil)
	_ = b.Append(3, 3.25)
	e, err := codec.Encode("sales", b.MustBuild(), f)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	return string(data)
}

func TestExternalLayout(t *testing.T) {
	out := t.TempDir()
	w, err := New(filepath.Join(out, "report.html"), codec.CSVExternal)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if got, want := w.Dir(), filepath.Join(out, "report"); got != want {
		t.Errorf("Dir() = %q, want %q", got, want)
	}
	if got, want := w.MainHTML(), filepath.Join(out, "report", "report.html"); got != want {
		t.Errorf("MainHTML() = %q, want %q", got, want)
	}

	sales := salesEncoded(t, codec.CSVExternal)
	layout, err := w.Layout([]codec.Encoded{sales})
	if err != nil {
		t.Fatalf("Layout() error: %v", err)
	}
	if _, err := w.WritePage("", "<html></html>"); err != nil {
		t.Fatalf("WritePage() error: %v", err)
	}

	if got := readFile(t, filepath.Join(out, "report", "data", "sales.csv")); got != "x,y\n1,1.5\n2,\n3,3.25\n" {
		t.Errorf("sales.csv = %q", got)
	}
	if got := layout.DataFiles(); !reflect.DeepEqual(got, []string{"data/sales.csv"}) {
		t.Errorf("DataFiles() = %v", got)
	}

	info, err := os.Stat(filepath.Join(out, "report", "open_report.sh"))
	if err != nil {
		t.Fatalf("launcher missing: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("launcher mode = %v, want 0755", info.Mode().Perm())
	}
	sh := readFile(t, filepath.Join(out, "report", "open_report.sh"))
	if !strings.Contains(sh, "--allow-file-access-from-files") || !strings.Contains(sh, `PAGE="$DIR"/'report.html'`) {
		t.Errorf("launcher content unexpected:\n%s", sh)
	}
	bat := readFile(t, filepath.Join(out, "report", "open_report.bat"))
	if !strings.Contains(bat, "\r\n") || !strings.Contains(bat, "report.html") {
		t.Errorf("bat launcher content unexpected: %q", bat)
	}
	if !strings.Contains(readFile(t, filepath.Join(out, "report", "README.md")), "open_report.sh") {
		t.Error("README does not mention the launcher")
	}
}

func TestDatasetWrittenOnce(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "r.html"), codec.JSONExternal)
	if err != nil {
		t.Fatal(err)
	}
	sales := salesEncoded(t, codec.JSONExternal)
	if _, err := w.Layout([]codec.Encoded{sales}); err != nil {
		t.Fatal(err)
	}
	layout, err := w.Layout([]codec.Encoded{sales, sales})
	if err != nil {
		t.Fatal(err)
	}
	if got := layout.DataFiles(); len(got) != 1 {
		t.Errorf("DataFiles() = %v, want one file", got)
	}
	n := 0
	for _, f := range layout.Files {
		if f == "README.md" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("README written %d times", n)
	}
}

func TestFileCollision(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "r.html"), codec.CSVExternal)
	if err != nil {
		t.Fatal(err)
	}
	a := salesEncoded(t, codec.CSVExternal)
	b := a
	b.Name = "Sales"
	if _, err := w.Layout([]codec.Encoded{a, b}); !errors.Is(err, errors.ErrCodeDuplicateFilename) {
		t.Errorf("Layout() error = %v, want DUPLICATE_FILENAME", err)
	}
}

func TestEmbeddedIsNoOp(t *testing.T) {
	out := t.TempDir()
	w, err := New(filepath.Join(out, "single"), codec.CSVEmbedded)
	if err != nil {
		t.Fatal(err)
	}
	layout, err := w.Layout([]codec.Encoded{salesEncoded(t, codec.CSVEmbedded)})
	if err != nil {
		t.Fatal(err)
	}
	if layout.Project || len(layout.Files) != 0 {
		t.Errorf("embedded Layout() = %+v, want no files", layout)
	}
	path, err := w.WritePage("", "<html></html>")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(out, "single.html") {
		t.Errorf("WritePage() path = %q", path)
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 1 {
		t.Errorf("embedded output created %d entries, want 1", len(entries))
	}
}

func TestEmbeddedWithProjectDir(t *testing.T) {
	out := t.TempDir()
	w, err := New(filepath.Join(out, "site.html"), codec.JSONEmbedded, WithProjectDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.WritePage("", "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(out, "site", "README.md")); err != nil {
		t.Errorf("README missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "site", "open_site.sh")); !os.IsNotExist(err) {
		t.Error("embedded collection should not get launchers")
	}
}

func TestEnsureNotesPreservesEdits(t *testing.T) {
	out := t.TempDir()
	w, _ := New(filepath.Join(out, "r.html"), codec.CSVEmbedded)
	got, err := w.EnsureNotes("Overview Page", "initial")
	if err != nil || got != "initial" {
		t.Fatalf("EnsureNotes() = %q, %v", got, err)
	}
	path := filepath.Join(out, "notes", "overview_page.md")
	if err := os.WriteFile(path, []byte("edited by hand"), 0o644); err != nil {
		t.Fatal(err)
	}

	w2, _ := New(filepath.Join(out, "r.html"), codec.CSVEmbedded)
	got, err = w2.EnsureNotes("Overview Page", "initial")
	if err != nil || got != "edited by hand" {
		t.Errorf("EnsureNotes() after edit = %q, %v", got, err)
	}
	if readFile(t, path) != "edited by hand" {
		t.Error("notes file was overwritten")
	}
}

func TestIOErrorsKeepCause(t *testing.T) {
	out := t.TempDir()
	blocker := filepath.Join(out, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := New(filepath.Join(blocker, "report.html"), codec.CSVExternal)
	if err != nil {
		t.Fatal(err)
	}
	_, err = w.Layout([]codec.Encoded{salesEncoded(t, codec.CSVExternal)})
	if !errors.Is(err, errors.ErrCodeIO) {
		t.Fatalf("Layout() error = %v, want IO_ERROR", err)
	}
	var pathErr *fs.PathError
	if !stderrors.As(err, &pathErr) {
		t.Errorf("IO error does not wrap the *fs.PathError: %v", err)
	}
}

func TestDeterministicAcrossRoots(t *testing.T) {
	build := func(root string) map[string]string {
		w, err := New(filepath.Join(root, "report.html"), codec.ParquetExternal)
		if err != nil {
			t.Fatal(err)
		}
		layout, err := w.Layout([]codec.Encoded{salesEncoded(t, codec.ParquetExternal)})
		if err != nil {
			t.Fatal(err)
		}
		out := make(map[string]string)
		for _, f := range layout.Files {
			out[f] = readFile(t, filepath.Join(w.Dir(), f))
		}
		return out
	}
	a, b := build(t.TempDir()), build(t.TempDir())
	if !reflect.DeepEqual(a, b) {
		t.Error("outputs differ between roots")
	}
	if _, ok := a["data/sales.parquet"]; !ok {
		t.Errorf("parquet file missing: %v", a)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New("out.html", codec.Format("nope")); !errors.Is(err, errors.ErrCodeUnsupportedFormat) {
		t.Errorf("New(bad format) error = %v", err)
	}
	if _, err := New("", codec.CSVEmbedded); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("New(empty) error = %v", err)
	}
	if err := func() error {
		w, _ := New(filepath.Join(t.TempDir(), "r.html"), codec.CSVEmbedded)
		return w.WriteFile("../escape.txt", nil)
	}(); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("WriteFile(../) error = %v, want INVALID_PATH", err)
	}
}

func TestNewRejectsLauncherUnsafeNames(t *testing.T) {
	tests := []struct {
		name string
		root string
		ok   bool
	}{
		{"plain", "report.html", true},
		{"space", "q1 report.html", true},
		{"single quote", "bob's report.html", true},
		{"double quote", `a"b.html`, false},
		{"percent", "100%.html", false},
		{"bang", "wow!.html", false},
		{"caret", "a^b.html", false},
		{"ampersand", "a&calc.html", false},
		{"pipe", "a|b.html", false},
		{"redirect", "a>b.html", false},
		{"backtick", "a`id`.html", false},
		{"dollar", "$(id).html", false},
		{"newline", "a\nb.html", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(filepath.Join(t.TempDir(), tt.root), codec.CSVExternal)
			if tt.ok && err != nil {
				t.Errorf("New(%q) error = %v, want nil", tt.root, err)
			}
			if !tt.ok && !errors.Is(err, errors.ErrCodeInvalidPath) {
				t.Errorf("New(%q) error = %v, want %s", tt.root, err, errors.ErrCodeInvalidPath)
			}
		})
	}
}

func TestLauncherQuotesPageName(t *testing.T) {
	tests := []struct {
		main string
		want string
	}{
		{"report.html", `PAGE="$DIR"/'report.html'`},
		{"q1 report.html", `PAGE="$DIR"/'q1 report.html'`},
		{"bob's.html", `PAGE="$DIR"/'bob'\''s.html'`},
	}
	for _, tt := range tests {
		files, err := scaffoldFiles(strings.TrimSuffix(tt.main, ".html"), tt.main, codec.CSVExternal)
		if err != nil {
			t.Fatalf("scaffoldFiles(%q) error: %v", tt.main, err)
		}
		var sh string
		for _, f := range files {
			if strings.HasSuffix(f.name, ".sh") {
				sh = string(f.data)
			}
		}
		if !strings.Contains(sh, tt.want+"\n") {
			t.Errorf("launcher for %q = %q, want line %s", tt.main, sh, tt.want)
		}
	}
}
