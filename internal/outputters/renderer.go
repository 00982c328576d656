package outputters

import (
	"fmt"
	"io"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/tidewatch/driftsim/internal/sim"
	"github.com/tidewatch/driftsim/internal/simmap"
	"github.com/tidewatch/driftsim/internal/spill"
	"github.com/tidewatch/driftsim/internal/viz"
)

// Renderer writes a braille frame of the particle cloud to w every
// EveryN steps, and an ascii trend of the released-particle count on the
// final step.
type Renderer struct {
	Extent simmap.Rect
	Land   []simmap.Rect
	EveryN int

	w         io.Writer
	cols      int
	rows      int
	spills    *spill.Pair
	modelTime time.Time
	released  []float64
}

// NewRenderer draws frames of cols x rows characters over extent.
func NewRenderer(w io.Writer, extent simmap.Rect, cols, rows int) *Renderer {
	return &Renderer{Extent: extent, EveryN: 1, w: w, cols: cols, rows: rows}
}

// ID returns a stable identifier for the outputter collection.
func (r *Renderer) ID() string { return "renderer" }

func (r *Renderer) PrepareForModelRun(_ time.Time, _ sim.ResultCache, _ bool, spills *spill.Pair) error {
	r.spills = spills
	r.released = r.released[:0]
	return nil
}

func (r *Renderer) PrepareForModelStep(_ time.Duration, modelTime time.Time) error {
	r.modelTime = modelTime
	return nil
}

func (r *Renderer) ModelStepIsDone() {}

func (r *Renderer) WriteOutput(step int, isFinal bool) (sim.Report, error) {
	r.released = append(r.released, float64(r.spills.Certain().NumReleased()))

	every := r.EveryN
	if every < 1 {
		every = 1
	}
	if step%every == 0 || isFinal {
		frame := viz.NewFrame(r.Extent, r.cols, r.rows)
		frame.SetLand(r.Land)
		title := fmt.Sprintf("step %d  %s", step, r.modelTime.Format("2006-01-02 15:04"))
		if _, err := fmt.Fprintln(r.w, frame.Render(title, r.spills.Items()...)); err != nil {
			return nil, fmt.Errorf("outputters: render frame: %w", err)
		}
	}
	if isFinal && len(r.released) > 1 {
		chart := asciigraph.Plot(r.released,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("particles released"))
		if _, err := fmt.Fprintln(r.w, chart); err != nil {
			return nil, fmt.Errorf("outputters: render trend: %w", err)
		}
	}
	return nil, nil
}

// Rewind drops the accumulated trend.
func (r *Renderer) Rewind() {
	r.released = r.released[:0]
}
