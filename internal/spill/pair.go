package spill

import "time"

// Pair coordinates the certain particle container and, when uncertainty is
// on, its uncertain shadow container, as a single logical unit. Both
// containers are driven by the same release definitions but track their own
// release progress and arrays.
type Pair struct {
	uncertain bool
	certain   *Container
	shadow    *Container
	defs      []*Release
}

// NewPair returns a pair with the uncertainty branch on or off.
func NewPair(uncertain bool) *Pair {
	p := &Pair{certain: NewContainer(false)}
	p.SetUncertain(uncertain)
	return p
}

// Uncertain reports whether the shadow branch is active.
func (p *Pair) Uncertain() bool { return p.uncertain }

// SetUncertain toggles the shadow branch and reports whether the value
// actually changed. Turning it on creates a fresh shadow container fed by
// the same release definitions; turning it off drops the shadow entirely.
func (p *Pair) SetUncertain(on bool) bool {
	if p.uncertain == on {
		return false
	}
	p.uncertain = on
	if on {
		p.shadow = NewContainer(true)
		for _, def := range p.defs {
			p.shadow.AddRelease(def)
		}
	} else {
		p.shadow = nil
	}
	return true
}

// AddRelease registers a release definition with every container in the
// pair.
func (p *Pair) AddRelease(def *Release) {
	p.defs = append(p.defs, def)
	p.certain.AddRelease(def)
	if p.shadow != nil {
		p.shadow.AddRelease(def)
	}
}

// LenSpills returns the number of registered release definitions.
func (p *Pair) LenSpills() int { return len(p.defs) }

// Items returns the live containers: one, or two when uncertainty is on.
func (p *Pair) Items() []*Container {
	if p.shadow != nil {
		return []*Container{p.certain, p.shadow}
	}
	return []*Container{p.certain}
}

// Certain returns the certain-branch container.
func (p *Pair) Certain() *Container { return p.certain }

// Rewind resets release progress and arrays in every container.
func (p *Pair) Rewind() {
	for _, c := range p.Items() {
		c.Rewind()
	}
}

// ClearCurrentTimeStamps drops the per-container time markers.
func (p *Pair) ClearCurrentTimeStamps() {
	for _, c := range p.Items() {
		c.ClearCurrentTimeStamp()
	}
}

// ReleaseElements stamps every container with modelTime and releases the
// newly due elements into each.
func (p *Pair) ReleaseElements(dt time.Duration, modelTime time.Time) {
	for _, c := range p.Items() {
		c.SetCurrentTimeStamp(modelTime)
		c.ReleaseElements(dt, modelTime)
	}
}

// Equal reports whether both pairs have the same shape and element-wise
// equal container arrays.
func (p *Pair) Equal(other *Pair) bool {
	if other == nil || p.uncertain != other.uncertain {
		return false
	}
	a, b := p.Items(), other.Items()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
