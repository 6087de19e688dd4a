// Package pipeline runs a report manifest end to end.
//
// This package implements the load → render pipeline shared by the CLI and
// any program embedding vizpage. By centralizing it, every entry point gets
// the same defaults, overrides and caching behavior.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Load: Parse the manifest, read its data files and construct the pages
//  2. Render: Encode datasets (through the cache) and write the site
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Manifest: "report.toml",
//	    Format:   "parquet_external",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Layout.MainHTML)
//
// Run individual stages:
//
//	report, err := runner.Load(ctx, opts)
//	layout, err := runner.Render(ctx, report, opts)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizpage/pkg/codec"
	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/manifest"
	"github.com/matzehuels/vizpage/pkg/project"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run. Fields left empty
// fall back to what the manifest says.
type Options struct {
	// Load options
	Manifest string `json:"manifest"`
	Stamp    bool   `json:"stamp,omitempty"` // stamp pages even if the manifest does not

	// Render options
	Output  string `json:"output,omitempty"`  // overrides the manifest output path
	Format  string `json:"format,omitempty"`  // overrides every page's format
	Refresh bool   `json:"refresh,omitempty"` // ignore cached payloads, still refill the cache

	// Runtime options (not serialized)
	Now    time.Time   `json:"-"`
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Report is the loaded manifest with its pages.
	Report *manifest.Report

	// Layout lists the files written.
	Layout project.Layout

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo counts payload cache lookups.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Datasets   int
	Pages      int
	Files      int
	LoadTime   time.Duration
	RenderTime time.Duration
}

// CacheInfo counts payload cache lookups during the render stage.
type CacheInfo struct {
	Hits   int
	Misses int
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a data format name is valid. The empty string
// means "keep the manifest's format" and is accepted.
func ValidateFormat(format string) error {
	if format == "" {
		return nil
	}
	return codec.Format(format).Validate()
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks required fields for loading.
func (o *Options) ValidateForLoad() error {
	if o.Manifest == "" {
		return errors.New(errors.ErrCodeInvalidInput, "manifest is required")
	}
	o.setLogger()
	return nil
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.setLogger()
	return ValidateFormat(o.Format)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}
