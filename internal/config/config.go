// Package config loads YAML scenario files and assembles runnable models
// from them through a named-constructor registry.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML fields written as "15m" or "24h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// PointSpec is a lon/lat pair in a scenario file.
type PointSpec struct {
	Lon float64 `yaml:"lon"`
	Lat float64 `yaml:"lat"`
}

// RectSpec is an axis-aligned lon/lat rectangle in a scenario file.
type RectSpec struct {
	MinLon float64 `yaml:"min_lon"`
	MinLat float64 `yaml:"min_lat"`
	MaxLon float64 `yaml:"max_lon"`
	MaxLat float64 `yaml:"max_lat"`
}

// MapSpec selects and parameterizes the land/water map.
type MapSpec struct {
	Kind            string     `yaml:"kind"` // all_water | mask
	Bounds          *RectSpec  `yaml:"bounds,omitempty"`
	Land            []RectSpec `yaml:"land,omitempty"`
	RefloatHalfLife Duration   `yaml:"refloat_half_life,omitempty"`
}

// CacheSpec selects the result cache backend.
type CacheSpec struct {
	Kind string `yaml:"kind"` // none | memory | sqlite
	Path string `yaml:"path,omitempty"`
}

// SpillSpec describes one release definition.
type SpillSpec struct {
	Name           string     `yaml:"name"`
	Start          time.Time  `yaml:"start"`
	End            *time.Time `yaml:"end,omitempty"`
	NumElements    int        `yaml:"num_elements"`
	Position       PointSpec  `yaml:"position"`
	EndPosition    *PointSpec `yaml:"end_position,omitempty"`
	WindageRange   []float64  `yaml:"windage_range,omitempty"`
	WindagePersist Duration   `yaml:"windage_persist,omitempty"`
}

// WindSpec describes a wind series: either a data file or a constant.
type WindSpec struct {
	Units     string  `yaml:"units"`
	File      string  `yaml:"file,omitempty"`
	Speed     float64 `yaml:"speed,omitempty"`
	Direction float64 `yaml:"direction,omitempty"`
}

// TideSpec describes a tide series: either a data file or a constant
// scale.
type TideSpec struct {
	File  string  `yaml:"file,omitempty"`
	Scale float64 `yaml:"scale,omitempty"`
}

// MoverSpec selects and parameterizes one mover by registry kind.
type MoverSpec struct {
	Kind string `yaml:"kind"` // wind | cats | random | constant

	Wind                *WindSpec `yaml:"wind,omitempty"`
	UncertainAngle      float64   `yaml:"uncertain_angle,omitempty"`
	UncertainAngleUnits string    `yaml:"uncertain_angle_units,omitempty"`

	File          string     `yaml:"file,omitempty"`
	Tide          *TideSpec  `yaml:"tide,omitempty"`
	Scale         bool       `yaml:"scale,omitempty"`
	ScaleValue    float64    `yaml:"scale_value,omitempty"`
	ScaleRefPoint *PointSpec `yaml:"scale_ref_point,omitempty"`

	Diffusion float64 `yaml:"diffusion,omitempty"`

	U float64 `yaml:"u,omitempty"`
	V float64 `yaml:"v,omitempty"`
}

// OutputSpec selects the run's outputters.
type OutputSpec struct {
	StoreDir    string    `yaml:"store_dir,omitempty"`
	Render      bool      `yaml:"render,omitempty"`
	RenderEvery int       `yaml:"render_every,omitempty"`
	Extent      *RectSpec `yaml:"extent,omitempty"`
	Metrics     bool      `yaml:"metrics,omitempty"`
}

// Scenario is a complete YAML model description.
type Scenario struct {
	Name      string      `yaml:"name"`
	StartTime time.Time   `yaml:"start_time"`
	TimeStep  Duration    `yaml:"time_step"`
	Duration  Duration    `yaml:"duration"`
	Uncertain bool        `yaml:"uncertain"`
	Map       *MapSpec    `yaml:"map,omitempty"`
	Cache     *CacheSpec  `yaml:"cache,omitempty"`
	Spills    []SpillSpec `yaml:"spills"`
	Movers    []MoverSpec `yaml:"movers"`
	Output    OutputSpec  `yaml:"output"`
}

// Load reads and decodes a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &sc, nil
}

// Save writes the scenario as YAML.
func Save(path string, sc *Scenario) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the scenario's shape before any constructor runs.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario needs a name")
	}
	if sc.StartTime.IsZero() {
		return fmt.Errorf("scenario %q needs a start_time", sc.Name)
	}
	for i, sp := range sc.Spills {
		if sp.NumElements <= 0 {
			return fmt.Errorf("spill %d (%s): num_elements must be positive", i, sp.Name)
		}
		if len(sp.WindageRange) != 0 && len(sp.WindageRange) != 2 {
			return fmt.Errorf("spill %d (%s): windage_range needs two values", i, sp.Name)
		}
	}
	for i, mv := range sc.Movers {
		if mv.Kind == "" {
			return fmt.Errorf("mover %d needs a kind", i)
		}
	}
	return nil
}
