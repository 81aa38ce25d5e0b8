// Package agent implements learning agents that play TenK.
//
// Two decompositions of the game are provided: Combined learns which dice to
// keep and whether to bank in a single table, while Selection and
// Continuation split those decisions between two independently trained
// agents. CombinedPlayer and SplitPlayer adapt them to tenk.Player.
package agent

import (
	"github.com/pkg/errors"

	"github.com/timpalpant/go-tenk"
	"github.com/timpalpant/go-tenk/dice"
)

// ErrCorruptAction is returned when a stored action key cannot be decoded,
// e.g. because a table was written by a different kind of agent.
var ErrCorruptAction = errors.New("corrupt action")

// Keys of the sentinel state and action an agent starts each turn in.
const (
	startState = "^"
	noAction   = ""
)

// An exploratory selection keeps each die whose draw exceeds dropProbability.
const dropProbability = 0.2

// State is an agent's view of the game, identified by its Key.
type State interface {
	Key() string
}

// Action is a decision of an agent, identified by its Key.
type Action interface {
	Key() string
}

// Agent is the capability set of a learning TenK agent.
type Agent interface {
	// Name identifies the kind of agent, e.g. in checkpoint names.
	Name() string
	// Table returns the table of action values learned by the agent.
	Table() *tenk.Table
	// SetTable replaces the agent's table.
	SetTable(t *tenk.Table)
	// SerializeTable encodes the agent's table.
	SerializeTable() ([]byte, error)
	// LoadTable replaces the agent's table with one encoded by SerializeTable.
	// The table is unchanged if an error is returned.
	LoadTable(blob []byte) error
	// Reset discards the run state of the current turn.
	Reset()

	// EncodeState returns the current state.
	EncodeState() State
	// EncodeAction returns the action the agent has decided on.
	EncodeAction() Action
	// DecodeAction parses the key of a stored action.
	DecodeAction(key string) (Action, error)
	// CalculateReward returns the reward for the previous action.
	CalculateReward() (float64, error)
	// Act decides on the next action in the current state.
	Act() (Action, error)

	run() *learner
}

// learner is the run state and learning configuration shared by all agents.
type learner struct {
	table  *tenk.Table
	params tenk.Params
	rng    tenk.Rand

	prevState  string
	prevAction string
	prevScore  int

	dice  dice.Roll
	score int
	state string
}

func newLearner(params tenk.Params, rng tenk.Rand) (learner, error) {
	if err := params.Validate(); err != nil {
		return learner{}, err
	}

	if rng == nil {
		return learner{}, errors.Wrap(tenk.ErrInvalidParams, "nil random source")
	}

	l := learner{
		table:  tenk.NewTable(tenk.MaxEstimate),
		params: params,
		rng:    rng,
	}
	l.reset()
	return l, nil
}

func (l *learner) run() *learner {
	return l
}

// Table implements Agent.
func (l *learner) Table() *tenk.Table {
	return l.table
}

// SetTable implements Agent.
func (l *learner) SetTable(t *tenk.Table) {
	l.table = t
}

// SerializeTable implements Agent.
func (l *learner) SerializeTable() ([]byte, error) {
	return l.table.MarshalBinary()
}

// LoadTable implements Agent.
func (l *learner) LoadTable(blob []byte) error {
	return l.table.UnmarshalBinary(blob)
}

func (l *learner) reset() {
	l.prevState = startState
	l.prevAction = noAction
	l.prevScore = 0
	l.dice = nil
	l.score = 0
	l.state = startState
}

// explore returns true if the agent should take a random action rather than
// the best recorded one. Unvisited states and states whose best action is
// not worth anything are always explored.
func (l *learner) explore(rewards *tenk.ActionValues) bool {
	_, best, ok := rewards.Best()
	if !ok {
		return true
	}

	return l.rng.Float64() < l.params.Randomness || best <= 0
}

// observe credits the previous action of a with its reward and the
// estimated value of the current state, then decides on the next action.
func observe(a Agent) error {
	l := a.run()
	l.state = a.EncodeState().Key()
	reward, err := a.CalculateReward()
	if err != nil {
		return err
	}

	l.table.Update(l.state, l.prevState, l.prevAction, reward, l.params.Alpha, l.params.Gamma)
	action, err := a.Act()
	if err != nil {
		return err
	}

	l.prevAction = action.Key()
	l.prevState = l.state
	l.prevScore = l.score
	return nil
}

// finish credits the last action of a at the end of a turn. There is no
// successor state, so nothing is bootstrapped.
func finish(a Agent, score int) error {
	l := a.run()
	l.score = score
	reward, err := a.CalculateReward()
	if err != nil {
		return err
	}

	l.table.Update(l.state, l.prevState, l.prevAction, reward, l.params.Alpha, 0)
	return nil
}

// randomKeep selects each of n dice with probability 1-dropProbability,
// retrying until at least one is selected.
func randomKeep(rng tenk.Rand, n int) Keep {
	if n == 0 {
		return nil
	}

	var keep Keep
	for len(keep) == 0 {
		for i := 0; i < n; i++ {
			if rng.Float64() > dropProbability {
				keep = append(keep, i)
			}
		}
	}

	return keep
}

func coin(rng tenk.Rand) bool {
	return rng.Intn(2) == 1
}

// best decodes the best recorded action of the current state.
func best(a Agent, rewards *tenk.ActionValues) (Action, error) {
	key, _, ok := rewards.Best()
	if !ok {
		return nil, errors.Errorf("no recorded actions in state %q", a.run().state)
	}

	return a.DecodeAction(key)
}
