// Package scan finds the resource references in page markup.
// Locate is the one predicate deciding whether an element's resource is
// local; the downloader and the rewriter both go through it.
package scan

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/gaurav-prasanna/pageloader/core"
	"github.com/gaurav-prasanna/pageloader/core/naming"
)

var matchers = func() map[core.Kind]cascadia.Matcher {
	m := make(map[core.Kind]cascadia.Matcher, len(core.Kinds()))
	for _, kind := range core.Kinds() {
		m[kind] = cascadia.MustCompile(kind.Tag())
	}
	return m
}()

// Parse parses markup into a queryable document.
func Parse(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// Elements returns every element of the given kind in document order.
func Elements(doc *goquery.Document, kind core.Kind) *goquery.Selection {
	return doc.FindNodes(cascadia.QueryAll(doc.Get(0), matchers[kind])...)
}

// Locate inspects a single element. It reports false when the element
// lacks the kind's attribute, the attribute is empty or malformed, or the
// reference points at another host.
func Locate(s *goquery.Selection, kind core.Kind, page *url.URL) (core.Reference, bool) {
	raw, ok := s.Attr(kind.Attr())
	if !ok || raw == "" {
		return core.Reference{}, false
	}
	resolved, err := naming.ResolveReference(raw, page)
	if err != nil {
		return core.Reference{}, false
	}
	ref := core.Reference{
		Kind:       kind,
		Attr:       kind.Attr(),
		Raw:        raw,
		URL:        resolved,
		SameOrigin: naming.SameOrigin(resolved, page),
	}
	if kind == core.KindLink {
		rel, _ := s.Attr("rel")
		ref.Canonical = rel == "canonical"
	}
	return ref, ref.SameOrigin
}

// Scan returns the same-origin references of one kind in document order.
func Scan(doc *goquery.Document, kind core.Kind, page *url.URL) []core.Reference {
	var refs []core.Reference
	Elements(doc, kind).Each(func(_ int, s *goquery.Selection) {
		if ref, ok := Locate(s, kind, page); ok {
			refs = append(refs, ref)
		}
	})
	return refs
}

// ScanAll runs Scan for every kind.
func ScanAll(doc *goquery.Document, page *url.URL) map[core.Kind][]core.Reference {
	out := make(map[core.Kind][]core.Reference, len(core.Kinds()))
	for _, kind := range core.Kinds() {
		out[kind] = Scan(doc, kind, page)
	}
	return out
}

// Filename maps a located reference to its local file, applying the
// canonical-link suffix.
func Filename(ref core.Reference, resourcesDir string) naming.Filename {
	name := naming.LocalFilename(ref.URL, resourcesDir)
	if ref.Canonical {
		return name.Canonical()
	}
	return name
}
