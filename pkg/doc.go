// Package pkg provides the core libraries for vizpage report generation.
//
// # Overview
//
// vizpage turns in-memory tables into interactive HTML pages. Each dataset
// is serialized once, in one of five formats, and every chart that needs it
// loads it lazily in the browser. The pkg directory is organized into four
// main areas:
//
//  1. Data: [table] (Arrow-backed columns), [dataset] (named registry) and
//     [codec] (CSV/JSON/Parquet payloads)
//  2. Pages: [chart] (chart generators), [page] (validation + HTML assembly)
//     and [site] (multi-page collections)
//  3. Output: [project] (files on disk) and [cache] (encoded payloads)
//  4. Orchestration: [manifest] (TOML/YAML reports) and [pipeline]
//     (load → render)
//
// # Architecture
//
// The typical data flow through vizpage:
//
//	CSV / JSON / Parquet files
//	         ↓
//	    [table] package (typed columns, nulls)
//	         ↓
//	    [chart] package (dataset dependencies + HTML fragment)
//	         ↓
//	    [page] package (prune datasets, encode, assemble)
//	         ↓
//	    [site] + [project] packages (collection, data/, launchers)
//	         ↓
//	    HTML pages + data files
//
// # Quick Start
//
// Build a page from a table and write it:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/vizpage/pkg/chart"
//	    "github.com/matzehuels/vizpage/pkg/codec"
//	    "github.com/matzehuels/vizpage/pkg/dataset"
//	    "github.com/matzehuels/vizpage/pkg/page"
//	    "github.com/matzehuels/vizpage/pkg/site"
//	    "github.com/matzehuels/vizpage/pkg/table"
//	)
//
//	// 1. Build a table
//	sales := table.NewBuilder(
//	    table.Column{Name: "region", Kind: table.KindString},
//	    table.Column{Name: "revenue", Kind: table.KindFloat},
//	)
//	sales.Append("north", 10.0)
//	t, _ := sales.Build()
//
//	// 2. Chart it
//	bar, _ := chart.NewBar("by_region", "sales", t, chart.BarConfig{X: "region", Y: "revenue"})
//
//	// 3. Register it and validate the page
//	reg := dataset.NewRegistry()
//	reg.MustRegister("sales", t)
//	p, _ := page.New(page.Config{
//	    Title:    "Sales",
//	    Charts:   []chart.Chart{bar},
//	    Datasets: reg,
//	    Format:   codec.CSVExternal,
//	})
//
//	// 4. Write it
//	layout, _ := site.Render(context.Background(), "out/sales.html", p, site.Options{})
//
// # Main Packages
//
// [sanitize] - Identifier sanitizer and per-page id allocation. Every file
// stem and DOM id is restricted to [A-Za-z0-9_].
//
// [errors] - Coded errors shared by all packages (DUPLICATE_NAME,
// UNKNOWN_DATASET, MIXED_FORMAT, ...).
//
// [codec] - The five dataset formats. Embedded formats inline the payload in
// a non-executing script element; external formats write data/<name>.<ext>.
//
// [page] - Page construction, the JavaScript runtime and HTML assembly.
//
// [site] - Cover page plus content pages sharing one data directory and a
// pages.json manifest.
//
// [cache] - Encoded payload cache with file, memory, Redis and null backends.
//
// [observability] - Build and cache event hooks.
//
// [pipeline] - Manifest → pages → files, used by the CLI.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/page/...               # Specific package
//	go test -run Example ./pkg/...       # Examples only
//	go test -tags integration ./pkg/...  # Include Redis integration tests
//
// [table]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/table
// [dataset]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/dataset
// [codec]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/codec
// [chart]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/chart
// [page]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/page
// [site]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/site
// [project]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/project
// [cache]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/cache
// [manifest]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/manifest
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/pipeline
// [sanitize]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/sanitize
// [errors]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/vizpage/pkg/observability
package pkg
