package outputters

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tidewatch/driftsim/internal/observability"
	"github.com/tidewatch/driftsim/internal/simmap"
	"github.com/tidewatch/driftsim/internal/spill"
)

var t0 = time.Date(2016, 8, 20, 14, 0, 0, 0, time.UTC)

func pairWithElements(t *testing.T, uncertain bool, n int) *spill.Pair {
	t.Helper()
	p := spill.NewPair(uncertain)
	def, err := spill.NewPointRelease("test", t0, spill.Point{Lon: -144.2, Lat: 60.1}, n)
	if err != nil {
		t.Fatal(err)
	}
	p.AddRelease(def)
	for _, c := range p.Items() {
		c.PrepareForModelRun(nil)
	}
	p.ReleaseElements(time.Minute, t0)
	return p
}

func TestRunStoreArchivesRun(t *testing.T) {
	base := t.TempDir()
	s := NewRunStore(base, "valdez")
	p := pairWithElements(t, false, 5)

	if err := s.PrepareForModelRun(t0, nil, false, p); err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteOutput(0, false); err != nil {
		t.Fatal(err)
	}
	report, err := s.WriteOutput(1, true)
	if err != nil {
		t.Fatal(err)
	}

	runDir, ok := report["output_filename"].(string)
	if !ok {
		t.Fatalf("final report should name the run directory, got %+v", report)
	}
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); err != nil {
		t.Errorf("metadata.json missing: %v", err)
	}
	for _, name := range []string{"step_0000.csv", "step_0001.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}

	runs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Scenario != "valdez" || runs[0].NumSteps != 2 {
		t.Errorf("unexpected run listing: %+v", runs)
	}

	positions, statuses, err := s.LoadStep(runs[0].ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 5 || len(statuses) != 5 {
		t.Fatalf("expected 5 particles back, got %d", len(positions))
	}
	if positions[0].Lat != 60.1 {
		t.Errorf("positions did not round-trip, got %+v", positions[0])
	}
}

func TestRunStoreIntermediateStepsReportNothing(t *testing.T) {
	s := NewRunStore(t.TempDir(), "test")
	p := pairWithElements(t, false, 1)
	if err := s.PrepareForModelRun(t0, nil, false, p); err != nil {
		t.Fatal(err)
	}
	report, err := s.WriteOutput(0, false)
	if err != nil {
		t.Fatal(err)
	}
	if report != nil {
		t.Errorf("non-final steps should contribute no report, got %+v", report)
	}
}

func TestRunStoreWritesBothBranches(t *testing.T) {
	s := NewRunStore(t.TempDir(), "test")
	p := pairWithElements(t, true, 3)
	if err := s.PrepareForModelRun(t0, nil, true, p); err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteOutput(0, true); err != nil {
		t.Fatal(err)
	}
	positions, _, err := s.LoadStep(s.runID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 6 {
		t.Errorf("expected both branches' particles, got %d", len(positions))
	}
}

func TestRendererFramesAndTrend(t *testing.T) {
	var out strings.Builder
	extent := simmap.Rect{MinLon: -145, MinLat: 59, MaxLon: -143, MaxLat: 61}
	r := NewRenderer(&out, extent, 20, 8)
	p := pairWithElements(t, false, 4)

	if err := r.PrepareForModelRun(t0, nil, false, p); err != nil {
		t.Fatal(err)
	}
	for step := 0; step < 3; step++ {
		if err := r.PrepareForModelStep(15*time.Minute, t0.Add(time.Duration(step)*15*time.Minute)); err != nil {
			t.Fatal(err)
		}
		if _, err := r.WriteOutput(step, step == 2); err != nil {
			t.Fatal(err)
		}
	}

	got := out.String()
	if !strings.Contains(got, "step 0") || !strings.Contains(got, "step 2") {
		t.Error("each step should render a titled frame")
	}
	if !strings.Contains(got, "particles released") {
		t.Error("final step should render the release trend")
	}
}

func TestRendererEveryN(t *testing.T) {
	var out strings.Builder
	r := NewRenderer(&out, simmap.Rect{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}, 10, 4)
	r.EveryN = 2
	p := pairWithElements(t, false, 1)
	if err := r.PrepareForModelRun(t0, nil, false, p); err != nil {
		t.Fatal(err)
	}
	for step := 0; step < 4; step++ {
		r.PrepareForModelStep(time.Minute, t0)
		if _, err := r.WriteOutput(step, false); err != nil {
			t.Fatal(err)
		}
	}
	got := out.String()
	if strings.Contains(got, "step 1") || strings.Contains(got, "step 3") {
		t.Error("off-cadence steps should not render")
	}
	if !strings.Contains(got, "step 0") || !strings.Contains(got, "step 2") {
		t.Error("on-cadence steps should render")
	}
}

func TestMetricsOutputter(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewRunCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	o := NewMetricsOutputter(collector)
	p := pairWithElements(t, false, 7)
	p.Certain().Statuses[0] = spill.StatusBeached

	if err := o.PrepareForModelRun(t0, nil, false, p); err != nil {
		t.Fatal(err)
	}
	o.PrepareForModelStep(time.Minute, t0)
	if _, err := o.WriteOutput(0, false); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(collector.StepsTotal); got != 1 {
		t.Errorf("driftsim_steps_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.ParticlesReleased.WithLabelValues("certain")); got != 7 {
		t.Errorf("driftsim_particles_released = %v, want 7", got)
	}
	if got := testutil.ToFloat64(collector.ParticlesBeached.WithLabelValues("certain")); got != 1 {
		t.Errorf("driftsim_particles_beached = %v, want 1", got)
	}

	// Rewind resets gauges but not the step counter.
	o.Rewind()
	if got := testutil.ToFloat64(collector.StepsTotal); got != 1 {
		t.Errorf("steps counter should survive rewind, got %v", got)
	}
}
