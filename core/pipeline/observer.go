package pipeline

import (
	"github.com/gaurav-prasanna/pageloader/core"
	"github.com/gaurav-prasanna/pageloader/core/download"
)

// Stage is a step of the pipeline as shown to the user.
type Stage int

const (
	StageFetch Stage = iota
	StageImages
	StageScripts
	StageLinks
	StageRewrite
	StageWrite
	StageExport
)

var stageTitles = map[Stage]string{
	StageFetch:   "Loading page data",
	StageImages:  "Loading images",
	StageScripts: "Loading scripts",
	StageLinks:   "Loading link resources",
	StageRewrite: "Transforming HTML",
	StageWrite:   "Writing on disk",
	StageExport:  "Exporting",
}

func (s Stage) String() string { return stageTitles[s] }

// StageFor returns the download stage of a resource kind.
func StageFor(kind core.Kind) Stage {
	switch kind {
	case core.KindImage:
		return StageImages
	case core.KindScript:
		return StageScripts
	default:
		return StageLinks
	}
}

// Observer follows a pipeline run. The resource stages run concurrently,
// so implementations must be safe for concurrent use.
type Observer interface {
	// StageStarted is called with the number of units the stage will process.
	StageStarted(stage Stage, total int)
	ResourceSettled(kind core.Kind, outcome download.Outcome)
	// StageFinished receives the stage error; for resource stages it is
	// the combined resource failures, which do not stop the pipeline.
	StageFinished(stage Stage, err error)
}

type nopObserver struct{}

func (nopObserver) StageStarted(Stage, int)                    {}
func (nopObserver) ResourceSettled(core.Kind, download.Outcome) {}
func (nopObserver) StageFinished(Stage, error)                 {}
