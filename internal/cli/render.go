package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vizpage/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // overrides the manifest's output path
	format  string // overrides every page's data format
	stamp   bool   // add a "generated on" line to every page
	refresh bool   // re-encode every dataset, then refill the cache
	cache   cacheOpts
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <manifest>",
		Short: "Render the pages described by a TOML or YAML manifest",
		Long: `Render reads a report manifest (.toml, .yaml or .yml), loads its data files
and writes the HTML pages. External data formats produce a project directory
with the data files, launch scripts and a README next to the main page.`,
		Example: `  vizpage render report.toml
  vizpage render report.yaml -o out/sales.html --format parquet_external
  vizpage render report.toml --stamp --no-cache`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateFormat(opts.format); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output HTML file (default from manifest)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "data format for every page (see 'vizpage formats')")
	cmd.Flags().BoolVar(&opts.stamp, "stamp", false, "add a generated-on line to every page")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached payloads and re-encode")
	cmd.Flags().BoolVar(&opts.cache.disabled, "no-cache", false, "disable the payload cache")
	cmd.Flags().StringVar(&opts.cache.redisURL, "redis", "", "redis URL for a shared cache (default $"+redisURLEnv+")")

	cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

// runRender executes the pipeline and prints a summary of the written files.
func (c *CLI) runRender(ctx context.Context, path string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return err
	}
	defer runner.Close()

	// The spinner and debug log lines would interleave on stderr.
	var spinner *Spinner
	if !c.verbose() {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", filepath.Base(path)))
		spinner.Start()
	}
	prog := newProgress(logger)

	result, err := runner.Execute(ctx, pipeline.Options{
		Manifest: path,
		Output:   opts.output,
		Format:   opts.format,
		Stamp:    opts.stamp,
		Refresh:  opts.refresh,
		Logger:   logger,
	})
	if err != nil {
		if spinner != nil {
			spinner.StopWithError("Render failed")
		}
		return err
	}
	if spinner != nil {
		spinner.Stop()
	} else {
		prog.done(fmt.Sprintf("Rendered %d pages", result.Stats.Pages))
	}

	printSuccess("Rendered %s", StyleHighlight.Render(result.Report.Title))
	printStats(result.Stats, result.CacheInfo)
	for _, f := range result.Layout.Files {
		printFile(filepath.Join(result.Layout.Dir, f))
	}
	if launcher := findLauncher(result.Layout.Files); launcher != "" {
		printNextStep("Open it", filepath.Join(result.Layout.Dir, launcher))
	} else {
		printNextStep("Open it", result.Layout.MainHTML)
	}
	return nil
}

// findLauncher returns the POSIX launch script among files, if any. External
// formats need it because browsers block file:// fetches by default.
func findLauncher(files []string) string {
	for _, f := range files {
		if strings.HasPrefix(f, "open_") && strings.HasSuffix(f, ".sh") {
			return f
		}
	}
	return ""
}
