package tenk

import (
	"sort"

	"github.com/golang/glog"
)

// ActionValues holds the estimated value of each action recorded for a state.
// Actions are kept in the order in which they were first recorded, which
// makes tie-breaking between equally valued actions reproducible.
type ActionValues struct {
	index  map[string]int
	keys   []string
	values []float64
}

func newActionValues() *ActionValues {
	return &ActionValues{index: make(map[string]int)}
}

// Len returns the number of recorded actions.
func (av *ActionValues) Len() int {
	return len(av.keys)
}

// Get returns the value of the given action, and whether it has been recorded.
func (av *ActionValues) Get(action string) (float64, bool) {
	i, ok := av.index[action]
	if !ok {
		return 0, false
	}

	return av.values[i], true
}

// Best returns the action with the highest value. Ties go to the action
// recorded first. ok is false if no action has been recorded.
func (av *ActionValues) Best() (action string, value float64, ok bool) {
	if len(av.keys) == 0 {
		return "", 0, false
	}

	best := 0
	for i, v := range av.values[1:] {
		if v > av.values[best] {
			best = i + 1
		}
	}

	return av.keys[best], av.values[best], true
}

// Visit calls f for each recorded action, in insertion order.
func (av *ActionValues) Visit(f func(action string, value float64)) {
	for i, key := range av.keys {
		f(key, av.values[i])
	}
}

func (av *ActionValues) set(action string, value float64) {
	if i, ok := av.index[action]; ok {
		av.values[i] = value
		return
	}

	av.index[action] = len(av.keys)
	av.keys = append(av.keys, action)
	av.values = append(av.values, value)
}

// setDefault records the action with value 0 if it is absent,
// and returns its value.
func (av *ActionValues) setDefault(action string) float64 {
	if v, ok := av.Get(action); ok {
		return v
	}

	av.set(action, 0)
	return 0
}

// Estimator summarizes the worth of a state from its action values.
type Estimator func(*ActionValues) float64

// MaxEstimate is the default Estimator: the value of the best recorded
// action, or 0 if there are none.
func MaxEstimate(av *ActionValues) float64 {
	_, v, ok := av.Best()
	if !ok {
		return 0.0
	}

	return v
}

// Table is a tabular estimate of the value of taking each action in each
// state, keyed by the canonical string encodings of states and actions.
// The Table has no knowledge of the game. It is not safe for concurrent use.
type Table struct {
	estimate Estimator

	// Map of state key -> values of the actions taken in that state.
	states map[string]*ActionValues
}

// NewTable creates an empty Table. If estimate is nil, MaxEstimate is used.
func NewTable(estimate Estimator) *Table {
	if estimate == nil {
		estimate = MaxEstimate
	}

	return &Table{
		estimate: estimate,
		states:   make(map[string]*ActionValues),
	}
}

// Len returns the number of states in the table.
func (t *Table) Len() int {
	return len(t.states)
}

// NumEntries returns the total number of state/action values in the table.
func (t *Table) NumEntries() int {
	n := 0
	for _, av := range t.states {
		n += av.Len()
	}

	return n
}

// RewardsFor returns the action values of the given state,
// adding an empty entry for it to the table if it is absent.
func (t *Table) RewardsFor(state string) *ActionValues {
	av, ok := t.states[state]
	if !ok {
		av = newActionValues()
		t.states[state] = av
		if len(t.states)%100000 == 0 {
			glog.V(2).Infof("Table grew to %d states", len(t.states))
		}
	}

	return av
}

// EstimateValue returns the estimated worth of the given state.
func (t *Table) EstimateValue(state string) float64 {
	return t.estimate(t.RewardsFor(state))
}

// Update performs the one-step temporal-difference update of the value of
// taking prevAction in prevState, having observed the given reward and
// arrived in curState:
//
//	Q[s][a] = (1-alpha)*Q[s][a] + alpha*(reward + gamma*V(curState))
//
// Terminal transitions must pass gamma = 0.
func (t *Table) Update(curState, prevState, prevAction string, reward, alpha, gamma float64) {
	prev := t.RewardsFor(prevState)
	old := prev.setDefault(prevAction)
	target := reward + gamma*t.EstimateValue(curState)
	prev.set(prevAction, (1-alpha)*old+alpha*target)
}

// Compact rewrites the table without zero-valued actions or states that
// have no actions left. If keepSingleBest is true, only the best action of
// each state is kept, with the value 1. Compaction loses information
// needed for further training and is meant to shrink tables for play.
func (t *Table) Compact(keepSingleBest bool) {
	compacted := make(map[string]*ActionValues, len(t.states))
	for state, av := range t.states {
		result := newActionValues()
		if keepSingleBest {
			if action, _, ok := av.Best(); ok {
				result.set(action, 1)
			}
		} else {
			av.Visit(func(action string, value float64) {
				if value != 0 {
					result.set(action, value)
				}
			})
		}

		if result.Len() > 0 {
			compacted[state] = result
		}
	}

	glog.V(1).Infof("Compacted table from %d to %d states", len(t.states), len(compacted))
	t.states = compacted
}

// Visit calls f for every state/action value in the table. States are
// visited in sorted order, actions in the order they were recorded.
func (t *Table) Visit(f func(state, action string, value float64)) {
	for _, state := range t.sortedStates() {
		t.states[state].Visit(func(action string, value float64) {
			f(state, action, value)
		})
	}
}

func (t *Table) sortedStates() []string {
	keys := make([]string, 0, len(t.states))
	for state := range t.states {
		keys = append(keys, state)
	}

	sort.Strings(keys)
	return keys
}

// VisitStates calls f for every state of the table in sorted order.
// The action values must not be modified.
func (t *Table) VisitStates(f func(state string, av *ActionValues)) {
	for _, state := range t.sortedStates() {
		f(state, t.states[state])
	}
}

// SetRewards replaces the action values of the given state.
func (t *Table) SetRewards(state string, av *ActionValues) {
	t.states[state] = av
}
