// Package rewrite points same-origin resource attributes at their local
// copies. Elements are selected with scan.Locate, so whatever the
// downloader fetched is exactly what gets rewritten.
package rewrite

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/pageloader/core"
	"github.com/gaurav-prasanna/pageloader/core/scan"
)

// Rewrite parses markup, rewrites it and serializes the result.
func Rewrite(markup string, page *url.URL, resourcesDir string) (string, error) {
	doc, err := scan.Parse(markup)
	if err != nil {
		return "", err
	}
	RewriteDocument(doc, page, resourcesDir)
	return Serialize(doc)
}

// RewriteDocument rewrites doc in place and returns how many attributes
// were changed. Rewriting does not depend on whether the resource was
// actually downloaded.
func RewriteDocument(doc *goquery.Document, page *url.URL, resourcesDir string) int {
	changed := 0
	for _, kind := range core.Kinds() {
		scan.Elements(doc, kind).Each(func(_ int, s *goquery.Selection) {
			ref, ok := scan.Locate(s, kind, page)
			if !ok {
				return
			}
			s.SetAttr(ref.Attr, scan.Filename(ref, resourcesDir).Rel)
			changed++
		})
	}
	return changed
}

// DeclareUTF8 points the document's charset declarations at UTF-8, the
// encoding Serialize writes. It returns how many declarations changed.
func DeclareUTF8(doc *goquery.Document) int {
	changed := 0
	doc.Find("meta[charset]").Each(func(_ int, s *goquery.Selection) {
		s.SetAttr("charset", "utf-8")
		changed++
	})
	doc.Find("meta[http-equiv][content]").Each(func(_ int, s *goquery.Selection) {
		if strings.EqualFold(strings.TrimSpace(s.AttrOr("http-equiv", "")), "content-type") {
			s.SetAttr("content", "text/html; charset=utf-8")
			changed++
		}
	})
	return changed
}

// Serialize renders the whole document back to HTML.
func Serialize(doc *goquery.Document) (string, error) {
	html, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("serializing HTML: %w", err)
	}
	return html, nil
}
