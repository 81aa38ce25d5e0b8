package tenk

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/timpalpant/go-tenk/dice"
)

// TurnState is a state of the turn state machine.
type TurnState int

const (
	Start TurnState = iota
	Rolling
	Deciding
	Banked
	Busted
)

var turnStateStr = [...]string{
	"start",
	"rolling",
	"deciding",
	"banked",
	"busted",
}

// String implements fmt.Stringer.
func (s TurnState) String() string {
	if s < 0 || int(s) >= len(turnStateStr) {
		return fmt.Sprintf("TurnState(%d)", int(s))
	}

	return turnStateStr[s]
}

// IsTerminal returns true if the turn is over.
func (s TurnState) IsTerminal() bool {
	return s == Banked || s == Busted
}

// TurnResult summarizes a completed turn.
type TurnResult struct {
	Outcome TurnState
	Score   int // Score banked, or 0 if Busted.
	Rolls   int // Number of rolls, including a final bust roll.
}

// TurnController drives a Player through turns of TenK:
//
//	Start -> Rolling -> Deciding -> (Rolling | Banked | Busted)
//
// Rolling busts if the roll has no scoring selection. Deciding busts if the
// player sets aside an illegal selection, and otherwise banks or rolls again.
type TurnController struct {
	player   Player
	rng      Rand
	observer Observer

	state     TurnState
	roll      dice.Roll
	remaining int
	score     int
	rolls     int
}

// NewTurnController returns a TurnController for the given player.
// All dice are rolled using rng.
func NewTurnController(player Player, rng Rand) *TurnController {
	return &TurnController{
		player: player,
		rng:    rng,
		state:  Start,
	}
}

// SetObserver registers an Observer to be notified of the events of each turn.
func (tc *TurnController) SetObserver(o Observer) {
	tc.observer = o
}

// Player returns the player being driven.
func (tc *TurnController) Player() Player {
	return tc.player
}

// State returns the current state of the turn.
func (tc *TurnController) State() TurnState {
	return tc.state
}

// PlayTurn runs one complete turn. Errors returned by the player abort
// the turn and are returned; an illegal selection of dice is not an error.
func (tc *TurnController) PlayTurn() (TurnResult, error) {
	if tc.state != Start {
		return TurnResult{}, errors.Errorf("cannot begin turn in state %v", tc.state)
	}

	for {
		if err := tc.step(); err != nil {
			tc.reset()
			return TurnResult{}, err
		}

		if tc.state.IsTerminal() {
			result := TurnResult{Outcome: tc.state, Score: tc.score, Rolls: tc.rolls}
			if tc.state == Busted {
				result.Score = 0
			}

			if err := tc.player.EndTurn(result.Score); err != nil {
				tc.reset()
				return result, err
			}

			if tc.observer != nil {
				tc.observer.OnTurnEnd(result)
			}

			tc.reset()
			return result, nil
		}
	}
}

func (tc *TurnController) step() error {
	switch tc.state {
	case Start:
		tc.score = 0
		tc.rolls = 0
		tc.remaining = dice.NumDice
		tc.player.BeginTurn()
		tc.state = Rolling
	case Rolling:
		n := tc.remaining
		if n == 0 {
			n = dice.NumDice
		}

		tc.roll = dice.NewRandomRoll(tc.rng, n)
		tc.rolls++
		if tc.observer != nil {
			tc.observer.OnRoll(tc.roll)
		}

		if !dice.HasValidMove(tc.roll) {
			tc.state = Busted
		} else {
			tc.state = Deciding
		}
	case Deciding:
		return tc.decide()
	default:
		panic(fmt.Errorf("step called in terminal state %v", tc.state))
	}

	return nil
}

func (tc *TurnController) decide() error {
	keep, err := tc.player.OfferRoll(tc.roll)
	if err != nil {
		return err
	}

	points, remaining, err := dice.Score(tc.roll, keep)
	if errors.Cause(err) == dice.ErrIllegalMove {
		tc.state = Busted
		return nil
	} else if err != nil {
		return err
	}

	tc.score += points
	tc.remaining = len(remaining)
	if tc.observer != nil {
		_, kept, _ := dice.Split(tc.roll, keep)
		tc.observer.OnKeep(kept, points, tc.score)
	}

	stop, err := tc.player.OfferContinue(tc.score)
	if err != nil {
		return err
	}

	if stop {
		tc.state = Banked
	} else {
		tc.state = Rolling
	}

	return nil
}

func (tc *TurnController) reset() {
	tc.state = Start
	tc.roll = nil
	tc.remaining = 0
	tc.score = 0
	tc.rolls = 0
}
