package agent

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/timpalpant/go-tenk/dice"
)

// DiceState is the state seen by Selection: the dice showing.
type DiceState struct {
	Dice dice.Roll
}

// Key implements State.
func (s DiceState) Key() string {
	return s.Dice.String()
}

// CombinedState is the state seen by Combined: the dice showing
// and the score accumulated before the roll.
type CombinedState struct {
	Dice  dice.Roll
	Score int
}

// Key implements State.
func (s CombinedState) Key() string {
	return s.Dice.String() + "_" + strconv.Itoa(s.Score)
}

// ContinuationState is the state seen by Continuation: the number of dice
// left on the table after setting some aside, and the running score.
type ContinuationState struct {
	Remaining int
	Score     int
}

// Key implements State.
func (s ContinuationState) Key() string {
	return strconv.Itoa(s.Remaining) + "_" + strconv.Itoa(s.Score)
}

// Keep is the ascending list of indices of the dice to set aside.
type Keep []int

// Key implements Action.
func (k Keep) Key() string {
	var sb strings.Builder
	for _, i := range k {
		sb.WriteString(strconv.Itoa(i))
	}

	return sb.String()
}

// ParseKeep decodes the Key of a Keep.
func ParseKeep(key string) (Keep, error) {
	if key == "" {
		return nil, errors.Wrap(ErrCorruptAction, "empty keep")
	}

	keep := make(Keep, len(key))
	for i, c := range key {
		if c < '0' || c >= '0'+dice.NumDice {
			return nil, errors.Wrapf(ErrCorruptAction, "invalid die index %q in %q", c, key)
		}

		keep[i] = int(c - '0')
	}

	return keep, nil
}

// Stop is the decision whether to bank the running score.
type Stop bool

// Key implements Action.
func (s Stop) Key() string {
	if s {
		return "1"
	}

	return "0"
}

// ParseStop decodes the Key of a Stop.
func ParseStop(key string) (Stop, error) {
	switch key {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}

	return false, errors.Wrapf(ErrCorruptAction, "invalid stop %q", key)
}

// CombinedAction is the decision of Combined: which dice to set aside,
// and whether to bank afterwards.
type CombinedAction struct {
	Stop Stop
	Keep Keep
}

// Key implements Action.
func (a CombinedAction) Key() string {
	return a.Stop.Key() + a.Keep.Key()
}

// ParseCombinedAction decodes the Key of a CombinedAction.
func ParseCombinedAction(key string) (CombinedAction, error) {
	if len(key) < 2 {
		return CombinedAction{}, errors.Wrapf(ErrCorruptAction, "invalid combined action %q", key)
	}

	stop, err := ParseStop(key[:1])
	if err != nil {
		return CombinedAction{}, err
	}

	keep, err := ParseKeep(key[1:])
	if err != nil {
		return CombinedAction{}, err
	}

	return CombinedAction{Stop: stop, Keep: keep}, nil
}
