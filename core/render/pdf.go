// PDF exporter.
// Lays out the page content with gofpdf and appends the list of archived
// resources. Images are not embedded.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/pageloader/core"
	"github.com/jung-kurt/gofpdf"
)

var (
	numberedItemRegex = regexp.MustCompile(`^\d+\.\s`)
	italicRegex       = regexp.MustCompile(`(?:^|\s)\*([^*]+)\*(?:\s|$)`)
	inlineCodeRegex   = regexp.MustCompile("`([^`]+)`")
	inlineLinkRegex   = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
)

var headingSizes = map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}

// PDFRenderer renders a saved page as a PDF document.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render returns the PDF bytes for snap.
func (r *PDFRenderer) Render(snap *core.Snapshot) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if snap.Meta.Title != "" {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.MultiCell(0, 8, tr(snap.Meta.Title), "", "L", false)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, tr("Source: "+snap.Meta.URL), "", "L", false)
	pdf.MultiCell(0, 5, tr("Saved as: "+snap.Meta.Document), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)

	writeMarkdown(pdf, tr, snap.Markdown)

	if len(snap.Resources) > 0 {
		writeResources(pdf, tr, snap.Resources)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func writeMarkdown(pdf *gofpdf.Fpdf, tr func(string) string, markdown string) {
	inCodeBlock := false
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inCodeBlock = !inCodeBlock
			pdf.Ln(2)
			continue
		}

		switch {
		case inCodeBlock:
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(245, 245, 245)
			pdf.MultiCell(0, 4.5, tr(line), "", "L", true)
		case trimmed == "":
			pdf.Ln(3)
		case strings.HasPrefix(line, "#"):
			level := len(line) - len(strings.TrimLeft(line, "#"))
			writeHeading(pdf, tr(strings.TrimSpace(strings.TrimLeft(line, "# "))), level)
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr("- "+cleanInline(trimmed[2:])), "", "L", false)
		case numberedItemRegex.MatchString(trimmed):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(cleanInline(trimmed)), "", "L", false)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(cleanInline(line)), "", "L", false)
		}
	}
}

func writeHeading(pdf *gofpdf.Fpdf, text string, level int) {
	size, ok := headingSizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, cleanInline(text), "", "L", false)
	pdf.Ln(2)
}

func writeResources(pdf *gofpdf.Fpdf, tr func(string) string, resources []core.ResourceRecord) {
	pdf.AddPage()
	writeHeading(pdf, "Archived resources", 2)
	pdf.SetFont("Courier", "", 8)
	for _, res := range resources {
		status := "saved"
		if !res.Saved {
			status = "failed: " + res.Error
		}
		pdf.MultiCell(0, 4, tr(fmt.Sprintf("[%s] %s -> %s (%s)", res.Kind, res.URL, res.LocalPath, status)), "", "L", false)
	}
}

// cleanInline strips inline Markdown formatting.
func cleanInline(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = italicRegex.ReplaceAllString(text, " $1 ")
	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	text = inlineLinkRegex.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
