package agent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/timpalpant/go-tenk"
)

// Player is a tenk.Player driven by learning agents.
type Player interface {
	tenk.Player
	tenk.TableSizer
	Agents() []Agent
}

// Kinds of Player accepted by NewPlayer.
const (
	KindCombined = "combined"
	KindSplit    = "split"
)

// NewPlayer returns a Player of the given kind with empty tables.
func NewPlayer(kind string, params tenk.Params, rng tenk.Rand) (Player, error) {
	switch kind {
	case KindCombined:
		c, err := NewCombined(params, rng)
		if err != nil {
			return nil, err
		}

		return NewCombinedPlayer(c), nil
	case KindSplit:
		sel, err := NewSelection(params, rng)
		if err != nil {
			return nil, err
		}

		cont, err := NewContinuation(params, rng)
		if err != nil {
			return nil, err
		}

		return NewSplitPlayer(sel, cont), nil
	default:
		return nil, errors.Errorf("unknown kind of player: %q", kind)
	}
}

// Tag identifies a training run by its name and parameters, e.g.
// "v1_005_06_01" for alpha=0.05, gamma=0.6 and randomness=0.1.
func Tag(name string, params tenk.Params) string {
	return fmt.Sprintf("%s_%s_%s_%s", name,
		formatParam(params.Alpha), formatParam(params.Gamma), formatParam(params.Randomness))
}

func formatParam(x float64) string {
	return strings.Replace(strconv.FormatFloat(x, 'f', -1, 64), ".", "", -1)
}

// CheckpointName is the name under which the table of an agent is saved
// after the given number of turns.
func CheckpointName(a Agent, tag string, turn int) string {
	return fmt.Sprintf("%s_%s_%d", a.Name(), tag, turn)
}

// Checkpointer is a tenk.Checkpointer that saves the tables of
// a set of agents to a store.
type Checkpointer struct {
	Store  tenk.TableStore
	Agents []Agent
	Tag    string
}

// Checkpoint implements tenk.Checkpointer.
func (c *Checkpointer) Checkpoint(turn int) error {
	for _, a := range c.Agents {
		name := CheckpointName(a, c.Tag, turn)
		glog.Infof("Saving %s", name)
		if err := c.Store.SaveTable(name, a.Table()); err != nil {
			return errors.Wrapf(err, "save %s", name)
		}
	}

	return nil
}

// LoadCheckpoint replaces the tables of the agents with the ones saved
// after the given number of turns. No table is replaced unless all of
// them could be loaded.
func LoadCheckpoint(store tenk.TableStore, agents []Agent, tag string, turn int) error {
	tables := make([]*tenk.Table, len(agents))
	for i, a := range agents {
		name := CheckpointName(a, tag, turn)
		t, err := store.LoadTable(name)
		if err != nil {
			return errors.Wrapf(err, "load %s", name)
		}

		tables[i] = t
	}

	for i, a := range agents {
		a.SetTable(tables[i])
	}

	return nil
}
