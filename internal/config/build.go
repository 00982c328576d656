package config

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/tidewatch/driftsim/internal/cache"
	"github.com/tidewatch/driftsim/internal/environment"
	"github.com/tidewatch/driftsim/internal/movers"
	"github.com/tidewatch/driftsim/internal/observability"
	"github.com/tidewatch/driftsim/internal/outputters"
	"github.com/tidewatch/driftsim/internal/sim"
	"github.com/tidewatch/driftsim/internal/simmap"
	"github.com/tidewatch/driftsim/internal/spill"
)

// BuildOptions carries the run-environment pieces a scenario cannot name:
// where rendered frames go, which metrics collector to publish to, and the
// logger.
type BuildOptions struct {
	RenderTo  io.Writer
	Collector *observability.RunCollector
	Logger    *slog.Logger
}

// Registry maps scenario kind names to constructors. The built-in kinds
// are registered by NewRegistry; callers may add their own.
type Registry struct {
	movers map[string]func(MoverSpec) (sim.Mover, error)
	maps   map[string]func(MapSpec) (sim.Map, error)
}

// NewRegistry returns a registry with the built-in mover and map kinds.
func NewRegistry() *Registry {
	r := &Registry{
		movers: map[string]func(MoverSpec) (sim.Mover, error){},
		maps:   map[string]func(MapSpec) (sim.Map, error){},
	}

	r.movers["wind"] = buildWindMover
	r.movers["cats"] = buildCatsMover
	r.movers["random"] = func(spec MoverSpec) (sim.Mover, error) {
		d := spec.Diffusion
		if d == 0 {
			d = movers.DefaultDiffusion
		}
		return movers.NewRandomMover(d)
	}
	r.movers["constant"] = func(spec MoverSpec) (sim.Mover, error) {
		return movers.NewConstantMover(spec.U, spec.V), nil
	}

	r.maps["all_water"] = func(spec MapSpec) (sim.Map, error) {
		m := &simmap.AllWater{}
		if spec.Bounds != nil {
			b := spec.Bounds.rect()
			m.Bounds = &b
		}
		return m, nil
	}
	r.maps["mask"] = func(spec MapSpec) (sim.Map, error) {
		if spec.Bounds == nil {
			return nil, fmt.Errorf("config: mask map needs bounds")
		}
		land := make([]simmap.Rect, len(spec.Land))
		for i, l := range spec.Land {
			land[i] = l.rect()
		}
		m, err := simmap.NewMaskMap(spec.Bounds.rect(), land)
		if err != nil {
			return nil, err
		}
		if spec.RefloatHalfLife != 0 {
			m.RefloatHalfLife = spec.RefloatHalfLife.Std()
		}
		return m, nil
	}

	return r
}

// RegisterMover adds or overrides a mover kind.
func (r *Registry) RegisterMover(kind string, fn func(MoverSpec) (sim.Mover, error)) {
	r.movers[kind] = fn
}

// MoverKinds lists the registered mover kind names.
func (r *Registry) MoverKinds() []string {
	kinds := make([]string, 0, len(r.movers))
	for kind := range r.movers {
		kinds = append(kinds, kind)
	}
	return kinds
}

func (s RectSpec) rect() simmap.Rect {
	return simmap.Rect{MinLon: s.MinLon, MinLat: s.MinLat, MaxLon: s.MaxLon, MaxLat: s.MaxLat}
}

func (s PointSpec) point() spill.Point {
	return spill.Point{Lon: s.Lon, Lat: s.Lat}
}

func buildWindMover(spec MoverSpec) (sim.Mover, error) {
	if spec.Wind == nil {
		return nil, fmt.Errorf("config: wind mover needs a wind series")
	}
	var (
		wind *environment.Wind
		err  error
	)
	if spec.Wind.File != "" {
		wind, err = environment.NewWindFromFile(spec.Wind.File, spec.Wind.Units)
	} else {
		wind, err = environment.ConstantWind(spec.Wind.Speed, spec.Wind.Direction, spec.Wind.Units)
	}
	if err != nil {
		return nil, err
	}
	m := movers.NewWindMover(wind)
	if spec.UncertainAngle != 0 {
		units := spec.UncertainAngleUnits
		if units == "" {
			units = "rad"
		}
		if err := m.SetUncertainAngle(spec.UncertainAngle, units); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func buildCatsMover(spec MoverSpec) (sim.Mover, error) {
	if spec.File == "" {
		return nil, fmt.Errorf("config: cats mover needs a pattern file")
	}
	cfg := movers.CatsConfig{
		Scale:      spec.Scale,
		ScaleValue: spec.ScaleValue,
	}
	if spec.Tide != nil {
		if spec.Tide.File != "" {
			tide, err := environment.NewTideFromFile(spec.Tide.File)
			if err != nil {
				return nil, err
			}
			cfg.Tide = tide
		} else {
			cfg.Tide = environment.ConstantTide(spec.Tide.Scale)
		}
	}
	if spec.ScaleRefPoint != nil {
		p := spec.ScaleRefPoint.point()
		cfg.ScaleRefPoint = &p
	}
	return movers.NewCatsMover(spec.File, cfg)
}

func buildRelease(spec SpillSpec) (*spill.Release, error) {
	var (
		def *spill.Release
		err error
	)
	if spec.End != nil {
		def, err = spill.NewContinuousRelease(spec.Name, spec.Start, *spec.End,
			spec.Position.point(), spec.NumElements)
	} else {
		def, err = spill.NewPointRelease(spec.Name, spec.Start, spec.Position.point(), spec.NumElements)
	}
	if err != nil {
		return nil, err
	}
	if spec.EndPosition != nil {
		p := spec.EndPosition.point()
		def.EndPosition = &p
	}
	if len(spec.WindageRange) == 2 {
		def.WindageRange = [2]float64{spec.WindageRange[0], spec.WindageRange[1]}
	}
	if spec.WindagePersist != 0 {
		def.WindagePersist = spec.WindagePersist.Std().Seconds()
	}
	return def, nil
}

func buildCache(spec *CacheSpec) (sim.ResultCache, io.Closer, error) {
	if spec == nil {
		return nil, nil, nil
	}
	switch spec.Kind {
	case "", "none":
		return nil, nil, nil
	case "memory":
		return cache.NewMemory(), nil, nil
	case "sqlite":
		path := spec.Path
		if path == "" {
			path = ":memory:"
		}
		c, err := cache.NewSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	default:
		return nil, nil, fmt.Errorf("config: unknown cache kind %q", spec.Kind)
	}
}

// Build assembles a runnable model from the scenario. The returned closer
// releases any backing resources (it is never nil) and must be closed
// after the run.
func (r *Registry) Build(sc *Scenario, opts BuildOptions) (*sim.Model, io.Closer, error) {
	if err := sc.Validate(); err != nil {
		return nil, nil, err
	}

	modelOpts := sim.Options{
		StartTime: sc.StartTime,
		TimeStep:  sc.TimeStep.Std(),
		Duration:  sc.Duration.Std(),
		Uncertain: sc.Uncertain,
		Logger:    opts.Logger,
	}

	if sc.Map != nil {
		fn, ok := r.maps[sc.Map.Kind]
		if !ok {
			return nil, nil, fmt.Errorf("config: unknown map kind %q", sc.Map.Kind)
		}
		lm, err := fn(*sc.Map)
		if err != nil {
			return nil, nil, err
		}
		modelOpts.Map = lm
	}

	resultCache, closer, err := buildCache(sc.Cache)
	if err != nil {
		return nil, nil, err
	}
	if resultCache != nil {
		modelOpts.Cache = resultCache
	}
	if closer == nil {
		closer = nopCloser{}
	}

	m := sim.NewModel(modelOpts)

	for _, spec := range sc.Spills {
		def, err := buildRelease(spec)
		if err != nil {
			closer.Close()
			return nil, nil, err
		}
		m.Spills().AddRelease(def)
	}

	for i, spec := range sc.Movers {
		fn, ok := r.movers[spec.Kind]
		if !ok {
			closer.Close()
			return nil, nil, fmt.Errorf("config: unknown mover kind %q", spec.Kind)
		}
		mv, err := fn(spec)
		if err != nil {
			closer.Close()
			return nil, nil, fmt.Errorf("config: mover %d (%s): %w", i, spec.Kind, err)
		}
		m.Movers().Add(mv)
	}

	if sc.Output.StoreDir != "" {
		m.Outputters().Add(outputters.NewRunStore(sc.Output.StoreDir, sc.Name))
	}
	if sc.Output.Render && opts.RenderTo != nil {
		extent := simmap.Rect{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}
		if sc.Output.Extent != nil {
			extent = sc.Output.Extent.rect()
		} else if sc.Map != nil && sc.Map.Bounds != nil {
			extent = sc.Map.Bounds.rect()
		}
		ren := outputters.NewRenderer(opts.RenderTo, extent, 60, 16)
		if sc.Output.RenderEvery > 0 {
			ren.EveryN = sc.Output.RenderEvery
		}
		if mask, ok := modelOpts.Map.(*simmap.MaskMap); ok {
			ren.Land = mask.Land
		}
		m.Outputters().Add(ren)
	}
	if sc.Output.Metrics && opts.Collector != nil {
		m.Outputters().Add(outputters.NewMetricsOutputter(opts.Collector))
	}

	return m, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
