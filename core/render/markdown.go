// Package render provides the companion exporters written next to a saved
// page. This file implements the Markdown exporter and the format registry.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/pageloader/core"
	"gopkg.in/yaml.v3"
)

// MarkdownRenderer writes the page content as Markdown with a short
// front matter pointing back at the source and the saved document.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

type frontMatter struct {
	Source    string `yaml:"source"`
	Title     string `yaml:"title,omitempty"`
	SavedAs   string `yaml:"saved_as"`
	FetchedAt string `yaml:"fetched_at"`
}

// Render returns the Markdown document.
func (r *MarkdownRenderer) Render(snap *core.Snapshot) ([]byte, error) {
	header, err := yaml.Marshal(frontMatter{
		Source:    snap.Meta.URL,
		Title:     snap.Meta.Title,
		SavedAs:   snap.Meta.Document,
		FetchedAt: snap.Meta.FetchedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString(snap.Markdown)
	return []byte(b.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

var registry = map[string]func() core.Renderer{
	"md":       func() core.Renderer { return NewMarkdownRenderer() },
	"markdown": func() core.Renderer { return NewMarkdownRenderer() },
	"json":     func() core.Renderer { return NewJSONRenderer() },
	"pdf":      func() core.Renderer { return NewPDFRenderer() },
}

// ByName returns the exporter registered under name (md, markdown, json, pdf).
func ByName(name string) (core.Renderer, error) {
	factory, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown export format %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return factory(), nil
}

// Names lists the registered format names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
