// Package sim implements the simulation orchestration engine: the
// time-stepping Model that composes movers, a land/water map, scheduled
// releases and output sinks into reproducible runs.
package sim

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/tidewatch/driftsim/internal/collection"
	"github.com/tidewatch/driftsim/internal/random"
	"github.com/tidewatch/driftsim/internal/spill"
)

// Defaults applied by NewModel when options are left zero.
const (
	DefaultTimeStep = 15 * time.Minute
	DefaultDuration = 24 * time.Hour
)

// Options configures a new Model. Zero values fall back to the defaults
// above, a water-everywhere map and a disabled cache.
type Options struct {
	StartTime time.Time
	TimeStep  time.Duration
	Duration  time.Duration
	Map       Map
	Uncertain bool
	Cache     ResultCache
	Logger    *slog.Logger
}

// Model is the top-level orchestrator. It owns the simulation clock, the
// mover/environment/outputter collections, the spill container pair and the
// result cache, and drives the per-step protocol.
//
// A Model is single-threaded: every operation of the step protocol runs to
// completion before the next begins, and movers are prepared and queried in
// collection insertion order. If a mover or outputter hook fails mid-step
// the error propagates and the Model is left mid-step; callers must Rewind
// before reusing it.
type Model struct {
	startTime       time.Time
	timeStep        time.Duration
	duration        time.Duration
	currentTimeStep int
	modelTime       time.Time
	numTimeSteps    int

	movers      *collection.Collection[Mover]
	environment *collection.Collection[Environment]
	outputters  *collection.Collection[Outputter]
	landMap     Map
	spills      *spill.Pair
	cache       ResultCache

	log *slog.Logger
}

// NewModel builds a model and registers the mover-added callback that lifts
// referenced wind/tide series into the environment collection.
func NewModel(opts Options) *Model {
	if opts.TimeStep == 0 {
		opts.TimeStep = DefaultTimeStep
	}
	if opts.Duration == 0 {
		opts.Duration = DefaultDuration
	}
	if opts.StartTime.IsZero() {
		opts.StartTime = time.Now().Truncate(time.Hour)
	}
	if opts.Map == nil {
		opts.Map = waterWorld{}
	}
	if opts.Cache == nil {
		opts.Cache = disabledCache{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &Model{
		startTime:   opts.StartTime,
		timeStep:    opts.TimeStep.Truncate(time.Second),
		duration:    opts.Duration,
		movers:      collection.New[Mover](),
		environment: collection.New[Environment](),
		outputters:  collection.New[Outputter](),
		landMap:     opts.Map,
		spills:      spill.NewPair(opts.Uncertain),
		cache:       opts.Cache,
		log:         opts.Logger,
	}
	m.recomputeNumTimeSteps()
	m.movers.OnEvent(m.moverAdded, collection.EventAdd, collection.EventReplace)
	m.Rewind()
	return m
}

// waterWorld is the default map: water everywhere, so nothing ever beaches.
type waterWorld struct{}

func (waterWorld) RefloatElements(*spill.Container, time.Duration) {}
func (waterWorld) BeachElements(*spill.Container)                 {}

// disabledCache drops every snapshot.
type disabledCache struct{}

func (disabledCache) Enabled() bool                       { return false }
func (disabledCache) Rewind()                             {}
func (disabledCache) SaveTimestep(int, *spill.Pair) error { return nil }

// Movers exposes the ordered mover collection. Inserting or replacing a
// mover rewinds the model.
func (m *Model) Movers() *collection.Collection[Mover] { return m.movers }

// Environment exposes the ordered collection of forcing data series.
func (m *Model) Environment() *collection.Collection[Environment] { return m.environment }

// Outputters exposes the ordered outputter collection.
func (m *Model) Outputters() *collection.Collection[Outputter] { return m.outputters }

// Spills exposes the certain/uncertain container pair.
func (m *Model) Spills() *spill.Pair { return m.spills }

// Cache returns the result cache in use.
func (m *Model) Cache() ResultCache { return m.cache }

// SetCache swaps the result cache and rewinds.
func (m *Model) SetCache(c ResultCache) {
	if c == nil {
		c = disabledCache{}
	}
	m.cache = c
	m.Rewind()
}

// Clock accessors.

func (m *Model) StartTime() time.Time    { return m.startTime }
func (m *Model) TimeStep() time.Duration { return m.timeStep }
func (m *Model) Duration() time.Duration { return m.duration }
func (m *Model) CurrentTimeStep() int    { return m.currentTimeStep }
func (m *Model) ModelTime() time.Time    { return m.modelTime }
func (m *Model) NumTimeSteps() int       { return m.numTimeSteps }
func (m *Model) Map() Map                { return m.landMap }
func (m *Model) Uncertain() bool         { return m.spills.Uncertain() }

// SetStartTime moves the simulation origin and rewinds.
func (m *Model) SetStartTime(t time.Time) {
	m.startTime = t
	m.Rewind()
}

// SetTimeStep changes the step size (seconds resolution), recomputes the
// step count and rewinds.
func (m *Model) SetTimeStep(d time.Duration) error {
	d = d.Truncate(time.Second)
	if d <= 0 {
		return fmt.Errorf("%w: time step %v", ErrNoTimeStep, d)
	}
	m.timeStep = d
	m.recomputeNumTimeSteps()
	m.Rewind()
	return nil
}

// SetDuration changes the total run span. Shortening the run invalidates it
// and rewinds; extending keeps the current position.
func (m *Model) SetDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: duration %v", ErrNoTimeStep, d)
	}
	if d < m.duration {
		m.Rewind()
	}
	m.duration = d
	m.recomputeNumTimeSteps()
	return nil
}

// SetMap swaps the land/water map and rewinds.
func (m *Model) SetMap(lm Map) {
	if lm == nil {
		lm = waterWorld{}
	}
	m.landMap = lm
	m.Rewind()
}

// SetUncertain toggles the uncertainty branch; the model only rewinds when
// the value actually changes.
func (m *Model) SetUncertain(on bool) {
	if m.spills.SetUncertain(on) {
		m.Rewind()
	}
}

// recomputeNumTimeSteps must run whenever timeStep or duration changes. The
// +1 accounts for the zeroth setup step.
func (m *Model) recomputeNumTimeSteps() {
	m.numTimeSteps = int(m.duration/m.timeStep) + 1
}

func (m *Model) setCurrentTimeStep(step int) {
	m.currentTimeStep = step
	m.modelTime = m.startTime.Add(time.Duration(step) * m.timeStep)
}

// Rewind returns the model to the unstarted state: step −1, model time at
// the start, spills and cache cleared, outputters rewound, and the shared
// random source reseeded to its fixed seed so stochastic mover draws
// reproduce identically on the next run. The reseed is part of the rewind
// contract.
func (m *Model) Rewind() {
	m.setCurrentTimeStep(-1)
	m.spills.Rewind()
	random.Seed(random.DefaultSeed)
	m.cache.Rewind()
	for out := range m.outputters.All() {
		out.Rewind()
	}
	m.log.Debug("model rewound", "start_time", m.startTime)
}

// moverAdded runs on every insert/replace in the mover collection: it lifts
// the mover's referenced wind/tide series into the environment collection
// (idempotently, by identity) and invalidates any in-progress run.
func (m *Model) moverAdded(_ collection.Event, mv Mover) {
	if wd, ok := mv.(WindDriven); ok {
		if env := wd.WindSeries(); env != nil && !m.environment.Contains(env.ID()) {
			m.environment.Add(env)
		}
	}
	if td, ok := mv.(TideDriven); ok {
		if env := td.TideSeries(); env != nil && !m.environment.Contains(env.ID()) {
			m.environment.Add(env)
		}
	}
	m.Rewind()
}

// setupModelRun is the zeroth step's one-time preparation: it rewinds
// release progress, readies the outputters, collects the union of
// per-particle array fields the movers require and pushes it into every
// container's allocation contract.
func (m *Model) setupModelRun() error {
	m.spills.Rewind()

	for out := range m.outputters.All() {
		if err := out.PrepareForModelRun(m.startTime, m.cache, m.Uncertain(), m.spills); err != nil {
			return fmt.Errorf("outputter prepare for run: %w", err)
		}
	}

	fields := spill.Fields{}
	for mv := range m.movers.All() {
		if err := mv.PrepareForModelRun(); err != nil {
			return fmt.Errorf("mover prepare for run: %w", err)
		}
		fields.Merge(mv.RequiredFields())
	}
	for _, sc := range m.spills.Items() {
		sc.PrepareForModelRun(fields)
	}
	return nil
}

func (m *Model) setupTimeStep() error {
	for mv := range m.movers.All() {
		for _, sc := range m.spills.Items() {
			if err := mv.PrepareForModelStep(sc, m.timeStep, m.modelTime); err != nil {
				return fmt.Errorf("mover prepare for step %d: %w", m.currentTimeStep, err)
			}
		}
	}
	for out := range m.outputters.All() {
		if err := out.PrepareForModelStep(m.timeStep, m.modelTime); err != nil {
			return fmt.Errorf("outputter prepare for step %d: %w", m.currentTimeStep, err)
		}
	}
	return nil
}

// moveElements advances every container with released particles: refloat,
// reset the scratch buffer, superpose each mover's delta in insertion order
// (single-evaluation explicit integration), beach-correct, then commit.
// Containers with nothing released are skipped entirely.
func (m *Model) moveElements() error {
	if m.spills.LenSpills() == 0 {
		return nil
	}
	for _, sc := range m.spills.Items() {
		if sc.NumReleased() == 0 {
			continue
		}
		m.landMap.RefloatElements(sc, m.timeStep)
		sc.ResetNextPositions()

		for mv := range m.movers.All() {
			delta, err := mv.GetMove(sc, m.timeStep, m.modelTime)
			if err != nil {
				return fmt.Errorf("mover get move at step %d: %w", m.currentTimeStep, err)
			}
			for i := range delta {
				sc.NextPositions[i] = sc.NextPositions[i].Add(delta[i])
			}
		}

		m.landMap.BeachElements(sc)
		sc.CommitPositions()
	}
	return nil
}

func (m *Model) stepIsDone() {
	for mv := range m.movers.All() {
		for _, sc := range m.spills.Items() {
			mv.ModelStepIsDone(sc)
		}
	}
	for _, sc := range m.spills.Items() {
		sc.ModelStepIsDone()
	}
	for out := range m.outputters.All() {
		out.ModelStepIsDone()
	}
}

func (m *Model) writeOutput() (Report, error) {
	report := Report{"step_num": m.currentTimeStep}
	isFinal := m.currentTimeStep == m.numTimeSteps-1
	for out := range m.outputters.All() {
		frag, err := out.WriteOutput(m.currentTimeStep, isFinal)
		if err != nil {
			return nil, fmt.Errorf("outputter write at step %d: %w", m.currentTimeStep, err)
		}
		for k, v := range frag {
			report[k] = v
		}
	}
	return report, nil
}

// Step advances the model by one time step and returns the merged per-step
// report. Once the run is exhausted it returns ErrRunComplete.
func (m *Model) Step() (Report, error) {
	// Stale markers must not survive into this step.
	m.spills.ClearCurrentTimeStamps()

	if m.currentTimeStep >= m.numTimeSteps-1 {
		return nil, ErrRunComplete
	}

	if m.currentTimeStep == -1 {
		if err := m.setupModelRun(); err != nil {
			return nil, err
		}
	} else {
		if err := m.setupTimeStep(); err != nil {
			return nil, err
		}
		if err := m.moveElements(); err != nil {
			return nil, err
		}
		m.stepIsDone()
	}

	m.setCurrentTimeStep(m.currentTimeStep + 1)

	// The new step begins here: elements due during
	// [modelTime, modelTime+timeStep) enter the containers.
	m.spills.ReleaseElements(m.timeStep, m.modelTime)

	if err := m.cache.SaveTimestep(m.currentTimeStep, m.spills); err != nil {
		return nil, fmt.Errorf("cache save at step %d: %w", m.currentTimeStep, err)
	}

	report, err := m.writeOutput()
	if err != nil {
		return nil, err
	}
	m.log.Debug("step complete",
		"step", m.currentTimeStep,
		"model_time", m.modelTime,
		"released", m.spills.Certain().NumReleased())
	return report, nil
}

// Steps rewinds the model and returns an iterator that performs one Step
// per advance, yielding each report. The sequence ends when the run is
// exhausted; any other error is yielded and ends the sequence.
func (m *Model) Steps() iter.Seq2[Report, error] {
	m.Rewind()
	return func(yield func(Report, error) bool) {
		for {
			report, err := m.Step()
			if errors.Is(err, ErrRunComplete) {
				return
			}
			if !yield(report, err) || err != nil {
				return
			}
		}
	}
}

// FullRun steps the model to exhaustion, collecting every report. The
// end-of-run signal is consumed here, not returned.
func (m *Model) FullRun(rewind bool) ([]Report, error) {
	if rewind {
		m.Rewind()
	}
	var reports []Report
	for {
		report, err := m.Step()
		if errors.Is(err, ErrRunComplete) {
			return reports, nil
		}
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
}
