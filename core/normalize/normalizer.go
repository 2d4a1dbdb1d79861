// Package normalize turns extracted page content into Markdown, the input
// of the md, json and pdf exports.
package normalize

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// MarkdownNormalizer wraps html-to-markdown.
type MarkdownNormalizer struct{}

func New() *MarkdownNormalizer {
	return &MarkdownNormalizer{}
}

// Normalize returns the Markdown for fragment, ending in exactly one newline.
// An empty fragment yields an empty string.
func (n *MarkdownNormalizer) Normalize(fragment string) (string, error) {
	md, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("markdown conversion: %w", err)
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	return md + "\n", nil
}
