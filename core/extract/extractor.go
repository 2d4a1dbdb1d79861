// Package extract reads the readable part of a saved page for the
// companion exports: the content container without page chrome, plus
// the title and language.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// chrome matches elements that carry no readable text. Archived resources
// (img, script, link) are listed in the manifest instead.
const chrome = "script, style, noscript, link, meta, " +
	"nav, header, footer, aside, " +
	"img, picture, figure, figcaption, iframe, video, audio, svg, canvas, " +
	"form, button, input, select, textarea, " +
	".sidebar, .menu, .navigation, .ads, .advertisement"

// containers are tried in order; body always matches a parsed document.
var containers = []string{"main", "article", "[role=main]", "body"}

var errNoContainer = errors.New("no content container")

// HTMLExtractor returns the content container of a page as an HTML fragment.
type HTMLExtractor struct{}

func New() *HTMLExtractor {
	return &HTMLExtractor{}
}

func (e *HTMLExtractor) Extract(html string) (string, error) {
	doc, err := parse(html)
	if err != nil {
		return "", err
	}
	doc.Find(chrome).Remove()

	content := container(doc)
	if content == nil {
		return "", errNoContainer
	}
	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("serializing content: %w", err)
	}
	return fragment, nil
}

// Metadata returns the document title and the <html lang> value, which
// defaults to "en".
func Metadata(html string) (title, lang string) {
	lang = "en"
	doc, err := parse(html)
	if err != nil {
		return "", lang
	}
	title = strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if v := strings.TrimSpace(doc.Find("html").AttrOr("lang", "")); v != "" {
		lang = v
	}
	return title, lang
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

func container(doc *goquery.Document) *goquery.Selection {
	for _, sel := range containers {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return nil
}
