package sim

import "errors"

// Domain errors for the simulation engine.
var (
	// ErrRunComplete signals normal end of the run: the model has stepped
	// through its whole duration. It is a control signal, not a failure;
	// FullRun and Steps consume it, direct callers of Step must treat it as
	// termination.
	ErrRunComplete = errors.New("sim: model run complete")

	// ErrNoTimeStep indicates a non-positive time step or duration.
	ErrNoTimeStep = errors.New("sim: time step and duration must be positive")
)
