package usvscope

import (
	"time"

	"github.com/mousetube/usvscope/pkg/usvscope/detect"
	"github.com/mousetube/usvscope/pkg/usvscope/render"
)

// State is a step of the per-recording pipeline.
type State int

const (
	StateLoaded State = iota
	StateAnalyzed
	StateCropped
	StateFullSignal
	StateRendered
	StateDone
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateAnalyzed:
		return "analyzed"
	case StateCropped:
		return "cropped"
	case StateFullSignal:
		return "full-signal"
	case StateRendered:
		return "rendered"
	case StateDone:
		return "done"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the result of analyzing one waveform. Exactly one of
// Artifact and SkipReason is set once the pipeline has finished.
type Outcome struct {
	Name     string
	State    State
	Trace    []State // every state visited, in order
	Duration float64 // seconds

	Detection  detect.Result
	SkipReason error

	Artifact  *render.Artifact
	Thumbnail []byte

	// WindowStart and WindowEnd bound the part of the recording shown in
	// the image, in seconds.
	WindowStart float64
	WindowEnd   float64

	// Segment timing; zero when no segment was found.
	StartTime   float64
	EndTime     float64
	MeanPowerDB float64
}

func (o *Outcome) enter(s State) {
	o.State = s
	o.Trace = append(o.Trace, s)
}

func (o *Outcome) skip(reason error) *Outcome {
	o.SkipReason = reason
	o.enter(StateSkipped)
	return o
}

// Skipped reports whether the pipeline ended without an image.
func (o *Outcome) Skipped() bool { return o.State == StateSkipped }

// FileReport is the per-item record of a batch or single-file run.
type FileReport struct {
	Source    string // local path or URL
	Name      string // image stem
	Outcome   *Outcome
	ImagePath string
	Bytes     int64 // size of the downloaded file, remote sources only
	Err       error
	Elapsed   time.Duration
}

// Status is a short label for logs and CLI output.
func (r *FileReport) Status() string {
	switch {
	case r.Err != nil:
		return "failed"
	case r.Outcome == nil:
		return "skipped"
	case r.Outcome.Skipped():
		return "skipped"
	default:
		return "rendered"
	}
}

// BatchReport summarizes a directory or URL-list run.
type BatchReport struct {
	RunID    string
	Items    []*FileReport
	Rendered int
	Skipped  int
	Failed   int
	Elapsed  time.Duration
}

func (b *BatchReport) add(r *FileReport) {
	b.Items = append(b.Items, r)
	b.count(r)
}

func (b *BatchReport) count(r *FileReport) {
	switch r.Status() {
	case "failed":
		b.Failed++
	case "skipped":
		b.Skipped++
	default:
		b.Rendered++
	}
}
