package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gaurav-prasanna/pageloader/core"
	"github.com/gaurav-prasanna/pageloader/core/download"
	"github.com/gaurav-prasanna/pageloader/core/fetch"
	"github.com/gaurav-prasanna/pageloader/core/logger"
	"github.com/gaurav-prasanna/pageloader/core/pipeline"
	"github.com/gaurav-prasanna/pageloader/core/render"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	renderers, err := selectRenderers(cfg.Export)
	if err != nil {
		return err
	}

	fetcher := fetch.New(fetch.WithTimeout(cfg.Timeout), fetch.WithUserAgent(cfg.UserAgent))
	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithExports(renderers...),
	}

	var tracker *progressTracker
	if cfg.Progress {
		tracker = newProgressTracker(cmd.ErrOrStderr())
		opts = append(opts, pipeline.WithObserver(tracker))
	}

	log.Debug("loading page", logger.String("url", args[0]), logger.String("output", cfg.Output))
	result, err := pipeline.New(fetcher, opts...).Load(cmd.Context(), args[0], cfg.Output)
	if tracker != nil {
		tracker.Stop()
	}
	if err != nil {
		return err
	}

	if failed := result.Failed(); len(failed) > 0 {
		printFailures(cmd.ErrOrStderr(), failed)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Page was successfully downloaded into %s\n", result.DocFilename)
	for _, path := range result.Exports {
		fmt.Fprintf(out, "Exported %s\n", path)
	}
	return nil
}

func newLogger(debug bool) (logger.Logger, error) {
	if debug {
		return logger.New(logger.Config{Level: "debug", Development: true})
	}
	return logger.New(logger.Config{Level: "error", Development: true})
}

// selectRenderers accepts both repeated flags and comma-separated values,
// since PAGE_LOADER_EXPORT arrives as a single string.
func selectRenderers(names []string) ([]core.Renderer, error) {
	var renderers []core.Renderer
	seen := make(map[string]bool)
	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			r, err := render.ByName(name)
			if err != nil {
				return nil, err
			}
			if seen[r.Extension()] {
				continue
			}
			seen[r.Extension()] = true
			renderers = append(renderers, r)
		}
	}
	return renderers, nil
}

func printFailures(w io.Writer, failed []download.Outcome) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%d resource(s) not saved", len(failed)))
	t.AppendHeader(table.Row{"Kind", "URL", "Reason"})
	for _, o := range failed {
		t.AppendRow(table.Row{o.Ref.Kind, o.Ref.URL.String(), failureReason(o.Err)})
	}
	t.Render()
}

func failureReason(err error) string {
	var fetchErr *core.ResourceFetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Err.Error()
	}
	return err.Error()
}
