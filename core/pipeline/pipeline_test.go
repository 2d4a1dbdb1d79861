package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/gaurav-prasanna/pageloader/core"
	"github.com/gaurav-prasanna/pageloader/core/download"
	"github.com/gaurav-prasanna/pageloader/core/fetch"
	"github.com/gaurav-prasanna/pageloader/core/pipeline"
	"github.com/gaurav-prasanna/pageloader/core/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

// stubFetcher serves canned responses keyed by URL.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]stubResponse
	calls     []string
}

type stubResponse struct {
	status int
	body   string
}

func (f *stubFetcher) Fetch(_ context.Context, url string, _ core.ResponseType) (*core.FetchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	res, ok := f.responses[url]
	f.mu.Unlock()

	if !ok {
		return nil, &core.NetworkError{URL: url, Err: errors.New("connection refused")}
	}
	if res.status < 200 || res.status >= 300 {
		return nil, &core.NetworkError{URL: url, StatusCode: res.status}
	}
	return &core.FetchResult{URL: url, StatusCode: res.status, Header: http.Header{}, Body: []byte(res.body)}, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestLoad_ExampleCourses(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://example.com/courses":       {200, `<html><body><img src="/assets/a.png"></body></html>`},
		"https://example.com/assets/a.png": {200, "PNG"},
	}}
	dir := t.TempDir()

	result, err := pipeline.New(fetcher).Load(context.Background(), "https://example.com/courses", dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "example-com-courses.html"), result.DocFilename)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, result.RawHTML, `src="/assets/a.png"`)

	assert.FileExists(t, filepath.Join(dir, "example-com-courses_files", "example-com-assets-a.png"))

	saved, err := os.ReadFile(result.DocFilename)
	require.NoError(t, err)
	assert.Contains(t, string(saved), `src="example-com-courses_files/example-com-assets-a.png"`)
	assert.NotContains(t, string(saved), `src="/assets/a.png"`)
}

func TestLoad_InvalidURL(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	for _, raw := range []string{"invalid.com", "ftp://example.com/x", "", "/courses"} {
		_, err := pipeline.New(fetcher).Load(context.Background(), raw, t.TempDir())
		assert.ErrorIs(t, err, core.ErrInvalidURL, raw)
	}
	assert.Zero(t, fetcher.callCount(), "no network activity before validation")
}

func TestLoad_LegacyCharsetSavedAsUTF8(t *testing.T) {
	t.Parallel()

	page := `<html><head><meta charset="windows-1251"><title>Курсы</title></head><body><p>Привет</p></body></html>`
	encoded, err := charmap.Windows1251.NewEncoder().String(page)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(encoded))
	}))
	defer server.Close()

	result, err := pipeline.New(fetch.New()).Load(context.Background(), server.URL+"/", t.TempDir())
	require.NoError(t, err)

	saved, err := os.ReadFile(result.DocFilename)
	require.NoError(t, err)
	assert.True(t, utf8.Valid(saved))
	assert.Contains(t, string(saved), "Привет")
	assert.Contains(t, string(saved), `<meta charset="utf-8"/>`)
	assert.NotContains(t, string(saved), "windows-1251")
}

func TestLoad_PageServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	dir := t.TempDir()

	result, err := pipeline.New(fetch.New()).Load(context.Background(), server.URL+"/courses", dir)

	assert.Nil(t, result)
	var netErr *core.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written when the page fetch fails")
}

func TestLoad_PageNon200Success(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://example.com/": {http.StatusNoContent, ""},
	}}

	_, err := pipeline.New(fetcher).Load(context.Background(), "https://example.com/", t.TempDir())

	var netErr *core.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusNoContent, netErr.StatusCode)
}

func TestLoad_PageTransportError(t *testing.T) {
	t.Parallel()

	_, err := pipeline.New(&stubFetcher{}).Load(context.Background(), "https://unreachable.test/", t.TempDir())

	var netErr *core.NetworkError
	require.ErrorAs(t, err, &netErr)
}

const fixturePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>Courses</title>
  <link rel="stylesheet" href="https://cdn.example.net/menu.css">
  <link rel="stylesheet" href="/assets/application.css">
  <link rel="canonical" href="/courses">
  <script src="/packs/js/runtime.js"></script>
  <script src="https://js.stripe.com/v3/"></script>
</head>
<body>
  <main>
    <h1>Courses</h1>
    <p>Learn <a href="/js">JavaScript</a>.</p>
    <img src="/assets/professions/nodejs.png">
    <img src="/assets/broken.png">
  </main>
</body>
</html>`

func newSite(t *testing.T, failing ...string) *httptest.Server {
	t.Helper()

	fail := make(map[string]bool)
	for _, p := range failing {
		fail[p] = true
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail[r.URL.Path] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.URL.Path {
		case "/courses":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(fixturePage))
		case "/assets/application.css":
			_, _ = w.Write([]byte("body { color: red }"))
		case "/packs/js/runtime.js":
			_, _ = w.Write([]byte("console.log('runtime')"))
		case "/assets/professions/nodejs.png":
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLoad_PartialFailure(t *testing.T) {
	t.Parallel()

	server := newSite(t)
	dir := t.TempDir()

	result, err := pipeline.New(fetch.New()).Load(context.Background(), server.URL+"/courses", dir)
	require.NoError(t, err)

	images := result.Outcomes[core.KindImage]
	require.Len(t, images, 2)
	assert.True(t, images[0].Fulfilled())
	assert.False(t, images[1].Fulfilled())

	scripts := result.Outcomes[core.KindScript]
	require.Len(t, scripts, 1)
	assert.True(t, scripts[0].Fulfilled())

	links := result.Outcomes[core.KindLink]
	require.Len(t, links, 2)
	assert.True(t, links[0].Fulfilled())
	assert.True(t, links[1].Fulfilled())
	assert.True(t, strings.HasSuffix(links[1].Filename.Abs, "127-0-0-1-courses.html"))

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "/assets/broken.png", failed[0].Ref.Raw)
	var fetchErr *core.ResourceFetchError
	assert.ErrorAs(t, result.Err(), &fetchErr)

	saved, err := os.ReadFile(result.DocFilename)
	require.NoError(t, err)
	doc := string(saved)
	// Rewriting does not depend on download success.
	assert.Contains(t, doc, `src="127-0-0-1-courses_files/127-0-0-1-assets-broken.png"`)
	assert.Contains(t, doc, `href="127-0-0-1-courses_files/127-0-0-1-courses.html"`)
	assert.Contains(t, doc, `href="https://cdn.example.net/menu.css"`)
	assert.Contains(t, doc, `src="https://js.stripe.com/v3/"`)
}

func TestLoad_RoundTripAndRerun(t *testing.T) {
	t.Parallel()

	server := newSite(t)
	dir := t.TempDir()
	loader := pipeline.New(fetch.New(), pipeline.WithConcurrency(2))

	first, err := loader.Load(context.Background(), server.URL+"/courses", dir)
	require.NoError(t, err)

	for _, kind := range core.Kinds() {
		for _, o := range first.Outcomes[kind] {
			if !o.Fulfilled() {
				continue
			}
			info, err := os.Stat(o.Filename.Abs)
			require.NoError(t, err)
			assert.Positive(t, info.Size(), o.Filename.Abs)
		}
	}

	second, err := loader.Load(context.Background(), server.URL+"/courses", dir)
	require.NoError(t, err)
	assert.Equal(t, first.DocFilename, second.DocFilename)

	docs, err := filepath.Glob(filepath.Join(dir, "*.html"))
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	files, err := os.ReadDir(first.ResourcesDir)
	require.NoError(t, err)
	assert.Len(t, files, 4)
}

func TestLoad_MissingOutputDir(t *testing.T) {
	t.Parallel()

	server := newSite(t)
	dir := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := pipeline.New(fetch.New()).Load(context.Background(), server.URL+"/courses", dir)

	var fsErr *core.FileSystemError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, "the directory "+dir+" doesn't exist", err.Error())
}

func TestLoad_ReadOnlyOutputDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	t.Parallel()

	server := newSite(t)
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	_, err := pipeline.New(fetch.New()).Load(context.Background(), server.URL+"/courses", dir)

	var fsErr *core.FileSystemError
	require.ErrorAs(t, err, &fsErr)
	assert.Contains(t, err.Error(), "is denied")
}

type recordingObserver struct {
	mu       sync.Mutex
	started  map[pipeline.Stage]int
	finished map[pipeline.Stage]error
	settled  map[core.Kind]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		started:  make(map[pipeline.Stage]int),
		finished: make(map[pipeline.Stage]error),
		settled:  make(map[core.Kind]int),
	}
}

func (o *recordingObserver) StageStarted(stage pipeline.Stage, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started[stage] = total
}

func (o *recordingObserver) ResourceSettled(kind core.Kind, _ download.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settled[kind]++
}

func (o *recordingObserver) StageFinished(stage pipeline.Stage, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished[stage] = err
}

func TestLoad_Observer(t *testing.T) {
	t.Parallel()

	server := newSite(t)
	obs := newRecordingObserver()

	_, err := pipeline.New(fetch.New(), pipeline.WithObserver(obs)).Load(context.Background(), server.URL+"/courses", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 2, obs.started[pipeline.StageImages])
	assert.Equal(t, 1, obs.started[pipeline.StageScripts])
	assert.Equal(t, 2, obs.started[pipeline.StageLinks])
	assert.Equal(t, 2, obs.settled[core.KindImage])
	assert.Error(t, obs.finished[pipeline.StageImages])
	assert.NoError(t, obs.finished[pipeline.StageScripts])
	assert.Contains(t, obs.finished, pipeline.StageWrite)
	assert.NotContains(t, obs.started, pipeline.StageExport)
}

func TestLoad_Exports(t *testing.T) {
	t.Parallel()

	server := newSite(t)
	dir := t.TempDir()
	loader := pipeline.New(fetch.New(), pipeline.WithExports(render.NewMarkdownRenderer(), render.NewJSONRenderer()))

	result, err := loader.Load(context.Background(), server.URL+"/courses", dir)
	require.NoError(t, err)

	base := strings.TrimSuffix(result.DocFilename, ".html")
	assert.Equal(t, []string{base + ".md", base + ".json"}, result.Exports)

	md, err := os.ReadFile(base + ".md")
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Courses")
	assert.Contains(t, string(md), "title: Courses\n")

	raw, err := os.ReadFile(base + ".json")
	require.NoError(t, err)
	var manifest core.Manifest
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Equal(t, "Courses", manifest.Metadata.Title)
	assert.Equal(t, "en", manifest.Metadata.Language)
	assert.Equal(t, result.DocFilename, manifest.Metadata.Document)
	require.Len(t, manifest.Resources, 5)

	var broken []core.ResourceRecord
	for _, r := range manifest.Resources {
		if !r.Saved {
			broken = append(broken, r)
		}
	}
	require.Len(t, broken, 1)
	assert.Equal(t, "/assets/broken.png", broken[0].Original)
	assert.NotEmpty(t, broken[0].Error)
}
