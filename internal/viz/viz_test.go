package viz

import (
	"strings"
	"testing"
	"time"

	"github.com/tidewatch/driftsim/internal/simmap"
	"github.com/tidewatch/driftsim/internal/spill"
)

func TestCanvasSetAndBounds(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(7, 7)
	c.Set(-1, 0) // ignored
	c.Set(8, 0)  // ignored

	out := c.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lines))
	}
	for _, line := range lines {
		if len([]rune(line)) != 4 {
			t.Errorf("expected 4 columns, got %q", line)
		}
	}
	if []rune(lines[0])[0] == 0x2800 {
		t.Error("top-left cell should have a dot set")
	}
	if []rune(lines[1])[3] == 0x2800 {
		t.Error("bottom-right cell should have a dot set")
	}
}

func TestCanvasClear(t *testing.T) {
	c := NewCanvas(2, 2)
	c.Fill(0, 0, 3, 7)
	c.Clear()
	for _, r := range c.String() {
		if r != 0x2800 && r != '\n' {
			t.Fatalf("clear left a dot: %U", r)
		}
	}
}

func TestFramePlotsParticles(t *testing.T) {
	extent := simmap.Rect{MinLon: -145, MinLat: 59, MaxLon: -143, MaxLat: 61}
	f := NewFrame(extent, 20, 10)

	c := spill.NewContainer(false)
	def, err := spill.NewPointRelease("test", time.Now(), spill.Point{Lon: -144, Lat: 60}, 10)
	if err != nil {
		t.Fatal(err)
	}
	c.AddRelease(def)
	c.PrepareForModelRun(nil)
	c.ReleaseElements(time.Minute, def.Start)

	f.Plot(c)
	if !strings.ContainsFunc(f.canvas.String(), func(r rune) bool {
		return r != 0x2800 && r != '\n'
	}) {
		t.Error("plotting in-extent particles should set dots")
	}
}

func TestFrameIgnoresOutOfExtent(t *testing.T) {
	extent := simmap.Rect{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1}
	f := NewFrame(extent, 10, 5)
	c := spill.NewContainer(false)
	def, err := spill.NewPointRelease("far", time.Now(), spill.Point{Lon: 50, Lat: 50}, 3)
	if err != nil {
		t.Fatal(err)
	}
	c.AddRelease(def)
	c.PrepareForModelRun(nil)
	c.ReleaseElements(time.Minute, def.Start)

	f.Plot(c)
	for _, r := range f.canvas.String() {
		if r != 0x2800 && r != '\n' {
			t.Fatalf("out-of-extent particles must not be drawn, got %U", r)
		}
	}
}

func TestRenderLegendCounts(t *testing.T) {
	extent := simmap.Rect{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}
	f := NewFrame(extent, 10, 5)
	c := spill.NewContainer(false)
	def, err := spill.NewPointRelease("test", time.Now(), spill.Point{}, 4)
	if err != nil {
		t.Fatal(err)
	}
	c.AddRelease(def)
	c.PrepareForModelRun(nil)
	c.ReleaseElements(time.Minute, def.Start)
	c.Statuses[0] = spill.StatusBeached

	out := f.Render("spill", c)
	if !strings.Contains(out, "3 afloat") || !strings.Contains(out, "1 beached") {
		t.Errorf("legend should count branch statuses, got %q", out)
	}
}
