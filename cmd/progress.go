package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gaurav-prasanna/pageloader/core"
	"github.com/gaurav-prasanna/pageloader/core/download"
	"github.com/gaurav-prasanna/pageloader/core/pipeline"
	"github.com/jedib0t/go-pretty/v6/progress"
	"go.uber.org/multierr"
)

// progressTracker shows one tracker per pipeline stage.
type progressTracker struct {
	pw       progress.Writer
	rendered chan struct{}

	mu       sync.Mutex
	trackers map[pipeline.Stage]*progress.Tracker
}

func newProgressTracker(w io.Writer) *progressTracker {
	pw := progress.NewWriter()
	pw.SetOutputWriter(w)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(20)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Time = true

	p := &progressTracker{
		pw:       pw,
		rendered: make(chan struct{}),
		trackers: make(map[pipeline.Stage]*progress.Tracker),
	}
	go func() {
		defer close(p.rendered)
		pw.Render()
	}()
	// Stop is a no-op until the render loop is running.
	for !pw.IsRenderInProgress() {
		time.Sleep(time.Millisecond)
	}
	return p
}

func (p *progressTracker) StageStarted(stage pipeline.Stage, total int) {
	t := &progress.Tracker{
		Message: stage.String(),
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}
	p.mu.Lock()
	p.trackers[stage] = t
	p.mu.Unlock()
	p.pw.AppendTracker(t)
}

func (p *progressTracker) ResourceSettled(kind core.Kind, _ download.Outcome) {
	if t := p.tracker(pipeline.StageFor(kind)); t != nil {
		t.Increment(1)
	}
}

func (p *progressTracker) StageFinished(stage pipeline.Stage, err error) {
	t := p.tracker(stage)
	if t == nil {
		return
	}
	switch stage {
	case pipeline.StageImages, pipeline.StageScripts, pipeline.StageLinks:
		// Resource failures are not fatal; report them and finish the stage.
		if err != nil {
			t.UpdateMessage(fmt.Sprintf("%s (%d failed)", stage, len(multierr.Errors(err))))
		}
		t.MarkAsDone()
	default:
		if err != nil {
			t.MarkAsErrored()
			return
		}
		t.Increment(t.Total - t.Value())
		t.MarkAsDone()
	}
}

func (p *progressTracker) tracker(stage pipeline.Stage) *progress.Tracker {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trackers[stage]
}

// Stop renders the final state and waits for the render loop to exit.
func (p *progressTracker) Stop() {
	p.pw.Stop()
	<-p.rendered
}
