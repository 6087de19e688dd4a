package pipeline

import (
	"context"

	"github.com/matzehuels/vizpage/pkg/manifest"
)

// load reads the manifest named in opts and applies the load overrides.
func load(ctx context.Context, opts Options) (*manifest.Report, error) {
	m, err := manifest.Load(opts.Manifest)
	if err != nil {
		return nil, err
	}
	if opts.Stamp {
		m.Stamp = true
	}
	opts.Logger.Debug("parsed manifest", "path", opts.Manifest, "datasets", len(m.Datasets), "pages", 1+len(m.Pages))
	return m.Build(ctx, manifest.BuildOptions{Now: opts.Now, Logger: opts.Logger})
}
