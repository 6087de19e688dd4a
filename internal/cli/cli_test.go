package cli

import (
	"bytes"
	"context"
	goerrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizpage/pkg/cache"
	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/observability"
	"github.com/matzehuels/vizpage/pkg/pipeline"
)

const testManifest = "../../pkg/manifest/testdata/report.toml"

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	want := []string{"render", "formats", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
	if root.Use != "vizpage" {
		t.Errorf("Use = %q, want vizpage", root.Use)
	}
}

func TestRenderCommand(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv(redisURLEnv, "")
	out := filepath.Join(t.TempDir(), "sales.html")

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"render", testManifest, "-o", out})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("render: %v", err)
	}

	dir := filepath.Join(filepath.Dir(out), "sales")
	for _, name := range []string{"sales.html", "raw_data.html", "data/sales.csv", "open_sales.sh", "pages.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestRenderCommandFormatOverride(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sales.html")

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"render", testManifest, "-o", out, "--format", "parquet_external", "--no-cache"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(out), "sales", "data", "sales.parquet")); err != nil {
		t.Errorf("parquet payload missing: %v", err)
	}
}

func TestRenderCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"bad format", []string{"render", testManifest, "--format", "not_a_real_format", "--no-cache"}, errors.ErrCodeUnsupportedFormat},
		{"missing manifest", []string{"render", "does-not-exist.toml", "--no-cache"}, errors.ErrCodeFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := New(io.Discard, LogInfo).RootCommand()
			root.SetArgs(tt.args)
			err := root.ExecuteContext(context.Background())
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestRenderCommandRequiresManifest(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"render"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Error("render without arguments should fail")
	}
}

func TestRenderCommandCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"render", testManifest, "-o", filepath.Join(t.TempDir(), "x.html"), "--no-cache"})
	if err := root.ExecuteContext(ctx); !goerrors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var buf bytes.Buffer
			root := New(io.Discard, LogInfo).RootCommand()
			root.SetOut(&buf)
			root.SetArgs([]string{"completion", shell})
			if err := root.Execute(); err != nil {
				t.Fatalf("completion %s: %v", shell, err)
			}
			if !strings.Contains(buf.String(), "vizpage") {
				t.Errorf("completion %s output does not mention vizpage", shell)
			}
		})
	}
}

func TestCompleteFormats(t *testing.T) {
	got, _ := completeFormats(nil, nil, "")
	if len(got) != 5 {
		t.Fatalf("completeFormats() returned %d entries, want 5", len(got))
	}
	if !strings.HasPrefix(got[0], "csv_embedded\t") {
		t.Errorf("first completion = %q, want csv_embedded with description", got[0])
	}
}

func TestSetLogLevelInstallsHooks(t *testing.T) {
	t.Cleanup(observability.Reset)

	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	if c.verbose() {
		t.Error("verbose() = true at info level")
	}

	c.SetLogLevel(LogDebug)
	if !c.verbose() {
		t.Error("verbose() = false at debug level")
	}
	observability.Cache().OnCacheHit(context.Background(), "payload")
	if !strings.Contains(buf.String(), "cache hit") {
		t.Errorf("debug hooks not installed, log = %q", buf.String())
	}
}

func TestNewCache(t *testing.T) {
	t.Setenv(redisURLEnv, "")
	c := &CLI{Logger: log.New(io.Discard)}
	ctx := context.Background()

	cc, err := c.newCache(ctx, cacheOpts{disabled: true})
	if err != nil {
		t.Fatalf("newCache(disabled): %v", err)
	}
	if _, ok := cc.(*cache.NullCache); !ok {
		t.Errorf("newCache(disabled) = %T, want *cache.NullCache", cc)
	}

	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	cc, err = c.newCache(ctx, cacheOpts{})
	if err != nil {
		t.Fatalf("newCache(): %v", err)
	}
	if _, ok := cc.(*cache.ScopedCache); !ok {
		t.Errorf("newCache() = %T, want *cache.ScopedCache", cc)
	}

	if err := cc.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if n := countEntries(filepath.Join(os.Getenv("XDG_CACHE_HOME"), appName)); n != 1 {
		t.Errorf("cache entries = %d, want 1", n)
	}
}

func TestNewCacheBadRedisURL(t *testing.T) {
	c := &CLI{Logger: log.New(io.Discard)}
	if _, err := c.newCache(context.Background(), cacheOpts{redisURL: "not a url"}); err == nil {
		t.Error("newCache with bad redis url should fail")
	}
}

func TestStatsLine(t *testing.T) {
	tests := []struct {
		name  string
		stats pipeline.Stats
		info  pipeline.CacheInfo
		want  []string
	}{
		{"fresh", pipeline.Stats{Pages: 2, Datasets: 1, Files: 7}, pipeline.CacheInfo{Misses: 1}, []string{"2 pages", "1 dataset", "7 files", "fresh"}},
		{"cached", pipeline.Stats{Pages: 1, Datasets: 3, Files: 1}, pipeline.CacheInfo{Hits: 3}, []string{"1 page", "3 datasets", "1 file", "cached"}},
		{"partial", pipeline.Stats{Pages: 1}, pipeline.CacheInfo{Hits: 1, Misses: 1}, []string{"fresh"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statsLine(tt.stats, tt.info)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("statsLine() = %q, want %q", got, w)
				}
			}
		})
	}
}

func TestFindLauncher(t *testing.T) {
	files := []string{"README.md", "open_sales.bat", "open_sales.sh", "data/sales.csv", "sales.html"}
	if got := findLauncher(files); got != "open_sales.sh" {
		t.Errorf("findLauncher() = %q, want open_sales.sh", got)
	}
	if got := findLauncher([]string{"sales.html"}); got != "" {
		t.Errorf("findLauncher() = %q, want empty", got)
	}
}
