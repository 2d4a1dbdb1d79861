package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gaurav-prasanna/pageloader/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectRenderers(t *testing.T) {
	renderers, err := selectRenderers([]string{"md,json", "markdown", " pdf "})
	require.NoError(t, err)

	var exts []string
	for _, r := range renderers {
		exts = append(exts, r.Extension())
	}
	assert.Equal(t, []string{".md", ".json", ".pdf"}, exts)

	_, err = selectRenderers([]string{"html"})
	assert.Error(t, err)

	renderers, err = selectRenderers(nil)
	require.NoError(t, err)
	assert.Empty(t, renderers)
}

func TestFailureReason(t *testing.T) {
	cause := errors.New("connection reset")
	err := &core.ResourceFetchError{Kind: core.KindScript, URL: "https://example.com/a.js", Err: cause}

	assert.Equal(t, "connection reset", failureReason(err))
	assert.Equal(t, "plain", failureReason(errors.New("plain")))
}

func TestRootCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/courses":
			_, _ = w.Write([]byte(`<html><head><title>Courses</title></head><body>
<img src="/assets/a.png"><img src="/assets/missing.png"></body></html>`))
		case "/assets/a.png":
			_, _ = w.Write([]byte("PNG"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"--no-progress", "-o", dir, "--export", "md", server.URL + "/courses"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	doc := filepath.Join(dir, "127-0-0-1-courses.html")
	assert.FileExists(t, doc)
	assert.FileExists(t, filepath.Join(dir, "127-0-0-1-courses.md"))
	assert.Contains(t, stdout.String(), "Page was successfully downloaded into "+doc+"\n")
	assert.Contains(t, stdout.String(), "Exported "+filepath.Join(dir, "127-0-0-1-courses.md"))
	assert.Contains(t, stderr.String(), "1 resource(s) not saved")
	assert.Contains(t, stderr.String(), "404 Not Found")
}
