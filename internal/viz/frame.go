package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tidewatch/driftsim/internal/simmap"
	"github.com/tidewatch/driftsim/internal/spill"
)

var (
	framePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	frameTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ccff"))

	frameLegend = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))
)

// Frame maps a lon/lat extent onto a canvas and plots particle containers
// into it.
type Frame struct {
	Extent simmap.Rect
	canvas *Canvas
	land   []simmap.Rect
}

// NewFrame returns a frame of cols x rows characters covering extent.
func NewFrame(extent simmap.Rect, cols, rows int) *Frame {
	return &Frame{Extent: extent, canvas: NewCanvas(cols, rows)}
}

// SetLand registers land rectangles to draw as filled regions.
func (f *Frame) SetLand(land []simmap.Rect) { f.land = land }

func (f *Frame) dot(p spill.Point) (int, int, bool) {
	w := f.Extent.MaxLon - f.Extent.MinLon
	h := f.Extent.MaxLat - f.Extent.MinLat
	if w <= 0 || h <= 0 || !f.Extent.Contains(p) {
		return 0, 0, false
	}
	dotsX := f.canvas.Cols*2 - 1
	dotsY := f.canvas.Rows*4 - 1
	x := int((p.Lon - f.Extent.MinLon) / w * float64(dotsX))
	// Screen y grows downward; latitude grows upward.
	y := int((f.Extent.MaxLat - p.Lat) / h * float64(dotsY))
	return x, y, true
}

// Plot draws the containers' particles onto the canvas over any land
// regions.
func (f *Frame) Plot(containers ...*spill.Container) {
	f.canvas.Clear()
	for _, r := range f.land {
		x0, y0, ok0 := f.dot(spill.Point{Lon: r.MinLon, Lat: r.MaxLat})
		x1, y1, ok1 := f.dot(spill.Point{Lon: r.MaxLon, Lat: r.MinLat})
		if ok0 && ok1 {
			f.canvas.Fill(x0, y0, x1, y1)
		}
	}
	for _, c := range containers {
		for i := range c.Positions {
			if x, y, ok := f.dot(c.Positions[i]); ok {
				f.canvas.Set(x, y)
			}
		}
	}
}

// Render returns the framed, styled picture with a title and a per-branch
// particle count legend.
func (f *Frame) Render(title string, containers ...*spill.Container) string {
	f.Plot(containers...)

	counts := make([]string, 0, len(containers))
	for _, c := range containers {
		branch := "certain"
		if c.Uncertain {
			branch = "uncertain"
		}
		beached := 0
		for _, s := range c.Statuses {
			if s == spill.StatusBeached {
				beached++
			}
		}
		counts = append(counts, fmt.Sprintf("%s: %d afloat, %d beached",
			branch, c.NumReleased()-beached, beached))
	}

	var b strings.Builder
	b.WriteString(frameTitle.Render(title))
	b.WriteByte('\n')
	b.WriteString(framePanel.Render(strings.TrimRight(f.canvas.String(), "\n")))
	b.WriteByte('\n')
	b.WriteString(frameLegend.Render(strings.Join(counts, "  |  ")))
	return b.String()
}
