// Package tenk implements tabular temporal-difference learning for the dice
// game TenK, along with the turn state machine that drives a player through
// the game.
package tenk

import (
	"github.com/pkg/errors"

	"github.com/timpalpant/go-tenk/dice"
)

var (
	// ErrInvalidParams is returned when learning parameters are out of range.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrInvariantViolation is returned when an agent observes a transition
	// that the scoring rules cannot produce.
	ErrInvariantViolation = errors.New("invariant violation")
)

// Rand is the source of randomness consumed by the game and its agents.
// It is satisfied by *rand.Rand.
type Rand interface {
	// Float64 returns a uniform random number in [0, 1).
	Float64() float64
	// Intn returns a uniform random number in [0, n).
	Intn(n int) int
}

// Player is the boundary between the TurnController and whoever is playing,
// which may be a learning agent, a pair of agents, a script or a human.
type Player interface {
	// BeginTurn is called once before the first roll of every turn.
	BeginTurn()
	// OfferRoll asks which dice of the roll to set aside. The returned
	// indices must select a scoring combination, or the turn is forfeited.
	OfferRoll(roll dice.Roll) ([]int, error)
	// OfferContinue asks whether to bank the given running score.
	// Returning true ends the turn.
	OfferContinue(score int) (bool, error)
	// EndTurn is called exactly once when the turn is over, with the score
	// that was banked (0 if the turn was forfeited).
	EndTurn(finalScore int) error
}

// TableSizer is implemented by players that learn, so that
// the size of their tables may be reported.
type TableSizer interface {
	TableSizes() []int
}

// Observer is notified of the events of a turn, e.g. to show them to a human.
type Observer interface {
	OnRoll(roll dice.Roll)
	OnKeep(kept dice.Roll, points, score int)
	OnTurnEnd(result TurnResult)
}

// Reporter receives the counters of every completed turn.
type Reporter interface {
	Report(stats TurnStats) error
}

// Checkpointer persists the state of the players, e.g. their tables.
type Checkpointer interface {
	Checkpoint(turn int) error
}
