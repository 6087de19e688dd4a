package pipeline

import (
	"context"

	"github.com/matzehuels/vizpage/pkg/cache"
	"github.com/matzehuels/vizpage/pkg/codec"
	"github.com/matzehuels/vizpage/pkg/manifest"
	"github.com/matzehuels/vizpage/pkg/project"
	"github.com/matzehuels/vizpage/pkg/site"
)

// render writes report to disk, applying the render overrides in opts.
func render(ctx context.Context, c cache.Cache, report *manifest.Report, opts Options) (project.Layout, error) {
	output := report.Output
	if opts.Output != "" {
		output = opts.Output
	}
	format := report.Format
	if opts.Format != "" {
		format = codec.Format(opts.Format)
	}
	return site.Build(ctx, output, report.Cover, report.Pages, site.Options{
		Format: format,
		Cache:  c,
		Logger: opts.Logger,
	})
}
