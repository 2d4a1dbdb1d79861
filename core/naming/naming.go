// Package naming maps page and resource URLs to deterministic local
// filenames. Everything here is pure: nothing touches the filesystem.
//
// A page https://example.com/courses saved into D produces:
//
//	D/example-com-courses.html
//	D/example-com-courses_files/example-com-assets-a.png
package naming

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

const (
	docExt       = ".html"
	filesSuffix  = "_files"
	canonicalExt = ".html"
)

// Filename is a resource's location on disk (Abs) and as referenced from
// the saved document (Rel, always slash-separated).
type Filename struct {
	Abs string
	Rel string
}

// Canonical returns the filename used for <link rel="canonical"> targets.
func (f Filename) Canonical() Filename {
	return Filename{Abs: f.Abs + canonicalExt, Rel: f.Rel + canonicalExt}
}

// Layout is the on-disk layout of one saved page. Compute it once per run
// and hand it to every stage so they agree on the resources directory.
type Layout struct {
	Page         *url.URL
	OutputDir    string
	DocFilename  string
	ResourcesDir string
}

// NewLayout derives the document filename and resources directory.
func NewLayout(page *url.URL, outputDir string) Layout {
	return Layout{
		Page:         page,
		OutputDir:    outputDir,
		DocFilename:  DocFilename(page, outputDir),
		ResourcesDir: ResourcesDir(page, outputDir),
	}
}

// IsHTTPURL reports whether s is an absolute http or https URL.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ResolveReference turns an attribute value into an absolute URL.
// Absolute http(s) values are used as-is; anything else is resolved
// against the page origin, so an empty value yields the origin itself.
// A relative value that does not parse is taken as a literal path. An
// http(s) value that does not parse is an error.
func ResolveReference(raw string, page *url.URL) (*url.URL, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		if hasHTTPScheme(raw) {
			return nil, err
		}
		ref = &url.URL{Path: raw}
	}
	if IsHTTPURL(raw) {
		return ref, nil
	}
	origin := &url.URL{Scheme: page.Scheme, Host: page.Host, Path: "/"}
	return origin.ResolveReference(ref), nil
}

func hasHTTPScheme(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(s, "http:") || strings.HasPrefix(s, "https:")
}

// SameOrigin compares hostnames only; scheme and port are ignored.
func SameOrigin(u, page *url.URL) bool {
	return u.Hostname() != "" && strings.EqualFold(u.Hostname(), page.Hostname())
}

// LocalFilename maps a resource URL to its file inside resourcesDir.
func LocalFilename(u *url.URL, resourcesDir string) Filename {
	p := escapedPath(u)
	ext := path.Ext(p)
	name := sanitize(hostname(u)+strings.TrimSuffix(p, ext)) + ext
	return Filename{
		Abs: filepath.Join(resourcesDir, name),
		Rel: path.Join(filepath.Base(resourcesDir), name),
	}
}

// DocFilename is where the rewritten page document is written.
func DocFilename(page *url.URL, outputDir string) string {
	return filepath.Join(outputDir, baseName(page)+docExt)
}

// ResourcesDir is the directory holding the page's downloaded resources.
func ResourcesDir(page *url.URL, outputDir string) string {
	return filepath.Join(outputDir, baseName(page)+filesSuffix)
}

func baseName(page *url.URL) string {
	return sanitize(hostname(page) + escapedPath(page))
}

// hostname is lowercased, so the host's spelling in the URL never changes
// the filename.
func hostname(u *url.URL) string {
	return strings.ToLower(u.Hostname())
}

// escapedPath keeps percent-encoding, so distinct non-ASCII paths stay
// distinct after sanitizing.
func escapedPath(u *url.URL) string {
	if p := u.EscapedPath(); p != "" {
		return p
	}
	return "/"
}

// sanitize replaces everything outside [0-9A-Za-z] with '-'.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteRune('-')
		}
	}
	return b.String()
}
