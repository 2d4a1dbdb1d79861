package pipeline

import (
	"fmt"

	"github.com/gaurav-prasanna/pageloader/core"
	"github.com/gaurav-prasanna/pageloader/core/extract"
	"github.com/gaurav-prasanna/pageloader/core/normalize"
	"github.com/gaurav-prasanna/pageloader/core/output"
)

type exporter struct {
	renderers  []core.Renderer
	extractor  core.Extractor
	normalizer core.Normalizer
}

func newExporter(renderers []core.Renderer) *exporter {
	return &exporter{
		renderers:  renderers,
		extractor:  extract.New(),
		normalizer: normalize.New(),
	}
}

func (e *exporter) metadata(html string) (title, lang string) {
	return extract.Metadata(html)
}

// markdown converts the rewritten page to Markdown. A page without a
// usable content container exports with an empty body.
func (e *exporter) markdown(html string) string {
	content, err := e.extractor.Extract(html)
	if err != nil {
		return ""
	}
	md, err := e.normalizer.Normalize(content)
	if err != nil {
		return ""
	}
	return md
}

// export writes one file per renderer and returns the paths written.
func (e *exporter) export(w *output.Writer, snap *core.Snapshot) ([]string, error) {
	var files []string
	for _, r := range e.renderers {
		data, err := r.Render(snap)
		if err != nil {
			return files, fmt.Errorf("export %s: %w", r.Extension(), err)
		}
		path := exportFilename(snap.Meta.Document, r.Extension())
		if err := w.Write(path, data); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}
