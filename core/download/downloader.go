// Package download fetches page resources concurrently and writes them
// to their local filenames. Every reference settles on its own: a failed
// download is recorded in its Outcome and never cancels the others.
package download

import (
	"context"
	"time"

	"github.com/gaurav-prasanna/pageloader/core"
	"github.com/gaurav-prasanna/pageloader/core/logger"
	"github.com/gaurav-prasanna/pageloader/core/naming"
	"github.com/gaurav-prasanna/pageloader/core/output"
	"github.com/gaurav-prasanna/pageloader/core/scan"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Outcome is the settled result of one reference.
type Outcome struct {
	Ref      core.Reference
	Filename naming.Filename
	Size     int
	Err      error
}

// Fulfilled reports whether the resource was fetched and written.
func (o Outcome) Fulfilled() bool { return o.Err == nil }

// Downloader downloads the resources of a page.
type Downloader struct {
	fetcher     core.Fetcher
	writer      *output.Writer
	log         logger.Logger
	concurrency int
	onSettled   func(Outcome)
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.log = l
		}
	}
}

// WithConcurrency bounds the number of in-flight downloads per call.
// Zero or less means no bound.
func WithConcurrency(n int) Option {
	return func(d *Downloader) { d.concurrency = n }
}

// WithObserver registers fn to be called as each outcome settles. It is
// called from the downloading goroutines.
func WithObserver(fn func(Outcome)) Option {
	return func(d *Downloader) { d.onSettled = fn }
}

// New creates a Downloader.
func New(fetcher core.Fetcher, writer *output.Writer, opts ...Option) *Downloader {
	d := &Downloader{
		fetcher: fetcher,
		writer:  writer,
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches refs and writes them under resourcesDir. It returns
// one Outcome per reference, in the order of refs.
func (d *Downloader) Download(ctx context.Context, refs []core.Reference, resourcesDir string) []Outcome {
	outcomes := make([]Outcome, len(refs))

	var g errgroup.Group
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}
	for i, ref := range refs {
		g.Go(func() error {
			outcomes[i] = d.one(ctx, ref, resourcesDir)
			if d.onSettled != nil {
				d.onSettled(outcomes[i])
			}
			// Never fail the group: every reference must settle.
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (d *Downloader) one(ctx context.Context, ref core.Reference, resourcesDir string) Outcome {
	out := Outcome{Ref: ref, Filename: scan.Filename(ref, resourcesDir)}
	log := d.log.With(logger.String("kind", ref.Kind.String()), logger.String("url", ref.URL.String()))

	start := time.Now()
	log.Debug("downloading resource")
	res, err := d.fetcher.Fetch(ctx, ref.URL.String(), ref.Kind.ResponseType())
	if err != nil {
		out.Err = &core.ResourceFetchError{Kind: ref.Kind, URL: ref.URL.String(), Err: err}
		log.Warn("resource download failed", logger.Error(err))
		return out
	}

	if err := d.writer.EnsureDir(resourcesDir); err != nil {
		out.Err = err
		log.Warn("creating resources directory failed", logger.Error(err))
		return out
	}
	if err := d.writer.Write(out.Filename.Abs, res.Body); err != nil {
		out.Err = err
		log.Warn("writing resource failed", logger.String("file", out.Filename.Abs), logger.Error(err))
		return out
	}

	out.Size = len(res.Body)
	log.Debug("resource saved",
		logger.String("file", out.Filename.Abs),
		logger.Int("bytes", out.Size),
		logger.Duration("took", time.Since(start)))
	return out
}

// Settled counts fulfilled and rejected outcomes.
func Settled(outcomes []Outcome) (fulfilled, rejected int) {
	for _, o := range outcomes {
		if o.Fulfilled() {
			fulfilled++
		} else {
			rejected++
		}
	}
	return fulfilled, rejected
}

// Errors combines the errors of all rejected outcomes, or returns nil.
func Errors(outcomes []Outcome) error {
	var err error
	for _, o := range outcomes {
		err = multierr.Append(err, o.Err)
	}
	return err
}
