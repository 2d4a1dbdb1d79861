// JSON manifest exporter.
// Describes the archive: page metadata, every same-origin resource with
// its local path and download outcome, and the document structure parsed
// from the Markdown content.
package render

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/pageloader/core"
)

// JSONRenderer produces the archive manifest.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render marshals the manifest for snap.
func (r *JSONRenderer) Render(snap *core.Snapshot) ([]byte, error) {
	resources := snap.Resources
	if resources == nil {
		resources = []core.ResourceRecord{}
	}
	manifest := core.Manifest{
		Metadata:  snap.Meta,
		Resources: resources,
		Structure: core.PageStructure{
			Headings:   extractHeadings(snap.Markdown),
			Links:      extractLinks(snap.Markdown),
			CodeBlocks: strings.Count(snap.Markdown, "```") / 2,
			Tables:     len(tableRowRegex.FindAllString(snap.Markdown, -1)),
			Lists:      len(listItemRegex.FindAllString(snap.Markdown, -1)),
		},
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

var (
	headingRegex = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	// linkRegex matches Markdown links [text](url).
	linkRegex = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	// tableRowRegex matches table separator rows (|---|).
	tableRowRegex = regexp.MustCompile(`(?m)^\|[-:| ]+\|$`)
	listItemRegex = regexp.MustCompile(`(?m)^[\s]*[-*]\s|^[\s]*\d+\.\s`)
)

func extractHeadings(md string) []core.Heading {
	matches := headingRegex.FindAllStringSubmatch(md, -1)
	headings := make([]core.Heading, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, core.Heading{
			Level: len(m[1]),
			Text:  strings.TrimSpace(m[2]),
		})
	}
	return headings
}

func extractLinks(md string) []core.Link {
	matches := linkRegex.FindAllStringSubmatch(md, -1)
	links := make([]core.Link, 0, len(matches))
	for _, m := range matches {
		links = append(links, core.Link{Text: m[1], Href: m[2]})
	}
	return links
}
