package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", "vizpage")
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(xdg, "vizpage"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheClearCommand(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)
	t.Setenv(redisURLEnv, "")

	c := New(io.Discard, LogInfo)
	ctx := context.Background()

	// Empty cache is not an error.
	root := c.RootCommand()
	root.SetArgs([]string{"cache", "clear"})
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("cache clear on empty cache: %v", err)
	}

	cc, err := c.newCache(ctx, cacheOpts{})
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := cc.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	dir := filepath.Join(xdg, "vizpage")
	if n := countEntries(dir); n != 3 {
		t.Fatalf("entries before clear = %d, want 3", n)
	}

	root = c.RootCommand()
	root.SetArgs([]string{"cache", "clear"})
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if n := countEntries(dir); n != 0 {
		t.Errorf("entries after clear = %d, want 0", n)
	}
}

func TestCachePathCommand(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	out := captureStdout(t, func() {
		root := New(io.Discard, LogInfo).RootCommand()
		root.SetArgs([]string{"cache", "path"})
		if err := root.Execute(); err != nil {
			t.Fatalf("cache path: %v", err)
		}
	})
	if got := strings.TrimSpace(out); got != filepath.Join(xdg, "vizpage") {
		t.Errorf("cache path = %q, want %q", got, filepath.Join(xdg, "vizpage"))
	}
}

func TestFormatsCommand(t *testing.T) {
	out := captureStdout(t, func() {
		root := New(io.Discard, LogInfo).RootCommand()
		root.SetArgs([]string{"formats"})
		if err := root.Execute(); err != nil {
			t.Fatalf("formats: %v", err)
		}
	})
	for _, name := range []string{"csv_embedded", "json_embedded", "csv_external", "json_external", "parquet_external", "(default)"} {
		if !strings.Contains(out, name) {
			t.Errorf("formats output missing %q:\n%s", name, out)
		}
	}
}

// captureStdout runs fn with os.Stdout redirected and returns what it printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	done := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		done <- string(data)
	}()

	fn()
	w.Close()
	return <-done
}
