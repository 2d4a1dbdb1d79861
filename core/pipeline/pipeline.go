// Package pipeline saves a page: validate, fetch, scan and download,
// rewrite, write, export. Only a bad URL, a failed page fetch, a failed
// document write or a failed export abort the run; resource failures are
// recorded in the Result.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gaurav-prasanna/pageloader/core"
	"github.com/gaurav-prasanna/pageloader/core/download"
	"github.com/gaurav-prasanna/pageloader/core/logger"
	"github.com/gaurav-prasanna/pageloader/core/naming"
	"github.com/gaurav-prasanna/pageloader/core/output"
	"github.com/gaurav-prasanna/pageloader/core/rewrite"
	"github.com/gaurav-prasanna/pageloader/core/scan"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Result describes a saved page.
type Result struct {
	DocFilename  string
	ResourcesDir string
	RawHTML      string
	StatusCode   int
	Outcomes     map[core.Kind][]download.Outcome
	// Exports lists the companion files written next to the document.
	Exports []string
}

// Failed returns the rejected outcomes of every kind, in kind order.
func (r *Result) Failed() []download.Outcome {
	var failed []download.Outcome
	for _, kind := range core.Kinds() {
		for _, o := range r.Outcomes[kind] {
			if !o.Fulfilled() {
				failed = append(failed, o)
			}
		}
	}
	return failed
}

// Err combines all resource failures, or returns nil.
func (r *Result) Err() error {
	var err error
	for _, kind := range core.Kinds() {
		err = multierr.Append(err, download.Errors(r.Outcomes[kind]))
	}
	return err
}

// Loader runs the pipeline.
type Loader struct {
	fetcher     core.Fetcher
	writer      *output.Writer
	log         logger.Logger
	observer    Observer
	concurrency int
	exporter    *exporter
	now         func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithObserver receives stage and resource progress.
func WithObserver(o Observer) Option {
	return func(ld *Loader) {
		if o != nil {
			ld.observer = o
		}
	}
}

// WithConcurrency bounds in-flight downloads per resource kind.
func WithConcurrency(n int) Option {
	return func(ld *Loader) { ld.concurrency = n }
}

// WithWriter replaces the filesystem writer.
func WithWriter(w *output.Writer) Option {
	return func(ld *Loader) {
		if w != nil {
			ld.writer = w
		}
	}
}

// WithExports writes a companion file per renderer after the document.
func WithExports(renderers ...core.Renderer) Option {
	return func(ld *Loader) {
		if len(renderers) > 0 {
			ld.exporter = newExporter(renderers)
		}
	}
}

// New creates a Loader.
func New(fetcher core.Fetcher, opts ...Option) *Loader {
	ld := &Loader{
		fetcher:  fetcher,
		writer:   output.New(),
		log:      logger.NewNop(),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load saves the page at rawURL into outputDir, which must exist.
func (l *Loader) Load(ctx context.Context, rawURL, outputDir string) (*Result, error) {
	if !naming.IsHTTPURL(rawURL) {
		return nil, fmt.Errorf("%w: %q (maybe forgot the protocol?)", core.ErrInvalidURL, rawURL)
	}
	page, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidURL, err)
	}
	layout := naming.NewLayout(page, outputDir)
	log := l.log.With(logger.String("page", page.String()))

	// Fetch document.
	l.observer.StageStarted(StageFetch, 1)
	fetched, err := l.fetchDocument(ctx, page)
	l.observer.StageFinished(StageFetch, err)
	if err != nil {
		log.Error("page fetch failed", logger.Error(err))
		return nil, err
	}
	log.Debug("document loaded", logger.Int("status", fetched.StatusCode), logger.Int("bytes", len(fetched.Body)))

	rawHTML := string(fetched.Body)
	doc, err := scan.Parse(rawHTML)
	if err != nil {
		return nil, err
	}

	result := &Result{
		DocFilename:  layout.DocFilename,
		ResourcesDir: layout.ResourcesDir,
		RawHTML:      rawHTML,
		StatusCode:   fetched.StatusCode,
		Outcomes:     l.downloadAll(ctx, scan.ScanAll(doc, page), layout.ResourcesDir),
	}
	if err := result.Err(); err != nil {
		log.Warn("some resources were not saved", logger.Int("failed", len(result.Failed())))
	}

	// Rewrite.
	l.observer.StageStarted(StageRewrite, 1)
	changed := rewrite.RewriteDocument(doc, page, layout.ResourcesDir)
	if fetched.Transcoded != "" {
		rewrite.DeclareUTF8(doc)
		log.Debug("document converted to utf-8", logger.String("from", fetched.Transcoded))
	}
	html, err := rewrite.Serialize(doc)
	l.observer.StageFinished(StageRewrite, err)
	if err != nil {
		return nil, err
	}
	log.Debug("html transformed", logger.Int("attributes", changed))

	// Persist.
	l.observer.StageStarted(StageWrite, 1)
	err = l.writer.Write(layout.DocFilename, []byte(html))
	l.observer.StageFinished(StageWrite, err)
	if err != nil {
		log.Error("writing document failed", logger.Error(err))
		return nil, err
	}
	log.Debug("document saved", logger.String("file", layout.DocFilename))

	if l.exporter != nil {
		l.observer.StageStarted(StageExport, len(l.exporter.renderers))
		files, err := l.exporter.export(l.writer, l.snapshot(page, html, result))
		l.observer.StageFinished(StageExport, err)
		result.Exports = files
		if err != nil {
			log.Error("export failed", logger.Error(err))
			return result, err
		}
	}

	return result, nil
}

func (l *Loader) fetchDocument(ctx context.Context, page *url.URL) (*core.FetchResult, error) {
	res, err := l.fetcher.Fetch(ctx, page.String(), core.ResponseText)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, &core.NetworkError{URL: page.String(), StatusCode: res.StatusCode}
	}
	return res, nil
}

// downloadAll runs the three kinds concurrently with each other.
func (l *Loader) downloadAll(ctx context.Context, refs map[core.Kind][]core.Reference, resourcesDir string) map[core.Kind][]download.Outcome {
	var (
		mu       sync.Mutex
		outcomes = make(map[core.Kind][]download.Outcome, len(refs))
		g        errgroup.Group
	)
	for _, kind := range core.Kinds() {
		stage := StageFor(kind)
		d := download.New(l.fetcher, l.writer,
			download.WithLogger(l.log),
			download.WithConcurrency(l.concurrency),
			download.WithObserver(func(o download.Outcome) { l.observer.ResourceSettled(kind, o) }),
		)
		g.Go(func() error {
			l.observer.StageStarted(stage, len(refs[kind]))
			got := d.Download(ctx, refs[kind], resourcesDir)
			l.observer.StageFinished(stage, download.Errors(got))

			mu.Lock()
			outcomes[kind] = got
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (l *Loader) snapshot(page *url.URL, html string, result *Result) *core.Snapshot {
	snap := &core.Snapshot{
		Meta: core.PageMetadata{
			URL:       page.String(),
			Domain:    page.Host,
			Path:      page.Path,
			FetchedAt: l.now().UTC().Format(time.RFC3339),
			Document:  result.DocFilename,
		},
	}
	for _, kind := range core.Kinds() {
		for _, o := range result.Outcomes[kind] {
			rec := core.ResourceRecord{
				Kind:      kind.String(),
				URL:       o.Ref.URL.String(),
				Original:  o.Ref.Raw,
				LocalPath: o.Filename.Rel,
				Saved:     o.Fulfilled(),
				Size:      o.Size,
			}
			if o.Err != nil {
				rec.Error = o.Err.Error()
			}
			snap.Resources = append(snap.Resources, rec)
		}
	}
	snap.Meta.Title, snap.Meta.Language = l.exporter.metadata(html)
	snap.Markdown = l.exporter.markdown(html)
	return snap
}

// exportFilename places a companion file next to the document.
func exportFilename(docFilename, ext string) string {
	return strings.TrimSuffix(docFilename, ".html") + ext
}
