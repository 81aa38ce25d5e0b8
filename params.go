package tenk

import (
	"math"

	"github.com/pkg/errors"
)

// Params are the learning hyper-parameters shared by every agent.
type Params struct {
	Alpha      float64 // Learning rate.
	Gamma      float64 // Discount of the successor state's estimate.
	Randomness float64 // Probability of taking an exploratory action.
}

// DefaultParams returns the parameters used for training by default.
func DefaultParams() Params {
	return Params{
		Alpha:      0.05,
		Gamma:      0.6,
		Randomness: 0.1,
	}
}

// Validate returns an error wrapping ErrInvalidParams if any
// parameter lies outside of [0, 1].
func (p Params) Validate() error {
	if err := checkUnit("alpha", p.Alpha); err != nil {
		return err
	}

	if err := checkUnit("gamma", p.Gamma); err != nil {
		return err
	}

	return checkUnit("randomness", p.Randomness)
}

func checkUnit(name string, x float64) error {
	if math.IsNaN(x) || x < 0 || x > 1 {
		return errors.Wrapf(ErrInvalidParams, "%s=%v is not in [0, 1]", name, x)
	}

	return nil
}

// LoopParams configure a Loop. An empty LoopParams plays until
// the context passed to Run is done.
type LoopParams struct {
	// MaxTurns stops the loop once this many turns have been played
	// in total, including StartTurn. Zero means no limit.
	MaxTurns int
	// CheckpointEvery calls the Checkpointer whenever the total number of
	// turns played is a multiple of it. Zero disables checkpoints.
	CheckpointEvery int
	// StartTurn is the number of turns already played, e.g. when
	// resuming from a checkpoint.
	StartTurn int
}
