// Package cache provides time-indexed snapshot stores for the particle
// containers: an in-memory cache for interactive runs and a SQLite-backed
// cache for runs whose history must outlive the process.
package cache

import (
	"errors"
	"fmt"

	"github.com/tidewatch/driftsim/internal/spill"
)

// ErrNoStep indicates a Load for a step the cache never saved.
var ErrNoStep = errors.New("cache: no snapshot for step")

// Step is the cached state of one model step: one snapshot per live
// container, certain branch first.
type Step struct {
	Num       int               `json:"num"`
	Snapshots []*spill.Snapshot `json:"snapshots"`
}

func captureStep(num int, spills *spill.Pair) *Step {
	containers := spills.Items()
	st := &Step{Num: num, Snapshots: make([]*spill.Snapshot, 0, len(containers))}
	for _, c := range containers {
		st.Snapshots = append(st.Snapshots, c.Snapshot())
	}
	return st
}

// Memory keeps every step's snapshots in process memory. The zero value is
// a disabled cache; use NewMemory for an enabled one.
type Memory struct {
	enabled bool
	steps   map[int]*Step
}

// NewMemory returns an enabled in-memory cache.
func NewMemory() *Memory {
	return &Memory{enabled: true, steps: map[int]*Step{}}
}

// Enabled reports whether saves are retained.
func (m *Memory) Enabled() bool { return m.enabled }

// SetEnabled toggles retention. Disabling does not drop what was already
// saved; Rewind does.
func (m *Memory) SetEnabled(on bool) { m.enabled = on }

// Rewind drops all saved steps.
func (m *Memory) Rewind() {
	m.steps = map[int]*Step{}
}

// SaveTimestep deep-snapshots every live container under the step number.
// A save while disabled is a no-op.
func (m *Memory) SaveTimestep(step int, spills *spill.Pair) error {
	if !m.enabled {
		return nil
	}
	if m.steps == nil {
		m.steps = map[int]*Step{}
	}
	m.steps[step] = captureStep(step, spills)
	return nil
}

// Load returns the snapshots saved for the step.
func (m *Memory) Load(step int) (*Step, error) {
	st, ok := m.steps[step]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrNoStep, step)
	}
	return st, nil
}

// Len returns how many steps are currently cached.
func (m *Memory) Len() int { return len(m.steps) }
