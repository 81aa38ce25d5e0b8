package agent

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"

	"github.com/timpalpant/go-tenk"
	"github.com/timpalpant/go-tenk/dice"
)

const tol = 1e-9

// scriptedRand replays the given faces (as Intn results) and then returns 0,
// and always returns the same Float64.
type scriptedRand struct {
	ints []int
	f    float64
}

func (r *scriptedRand) Float64() float64 {
	return r.f
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}

	x := r.ints[0]
	r.ints = r.ints[1:]
	return x % n
}

func facesToInts(faces ...int) []int {
	result := make([]int, len(faces))
	for i, f := range faces {
		result[i] = f - 1
	}

	return result
}

var testParams = tenk.Params{Alpha: 0.5, Gamma: 0.6, Randomness: 0.1}

func getValue(t *testing.T, table *tenk.Table, state, action string) float64 {
	v, ok := table.RewardsFor(state).Get(action)
	if !ok {
		t.Fatalf("no value recorded for %q/%q", state, action)
	}

	return v
}

func TestCombined_SixOnes(t *testing.T) {
	rng := &scriptedRand{f: 0.99}
	agent, err := NewCombined(testParams, rng)
	if err != nil {
		t.Fatal(err)
	}

	agent.Table().Update("", "111111_0", "1012345", 10, 1.0, 0)
	tc := tenk.NewTurnController(NewCombinedPlayer(agent), rng)
	result, err := tc.PlayTurn()
	if err != nil {
		t.Fatal(err)
	}

	if result.Outcome != tenk.Banked || result.Score != 4000 || result.Rolls != 1 {
		t.Errorf("expected banked 4000 after 1 roll, got %+v", result)
	}

	expected := 0.5*10 + 0.5*4000
	if v := getValue(t, agent.Table(), "111111_0", "1012345"); math.Abs(v-expected) > tol {
		t.Errorf("expected terminal update to %v, got %v", expected, v)
	}

	// The opening decision is credited to the sentinel start state.
	expected = 0.5 * (0 + 0.6*10)
	if v := getValue(t, agent.Table(), startState, noAction); math.Abs(v-expected) > tol {
		t.Errorf("expected start state value %v, got %v", expected, v)
	}

	if agent.prevState != startState || agent.score != 0 {
		t.Errorf("expected run state to be reset after the turn, got %+v", agent.learner)
	}
}

func TestSplit_SixOnes(t *testing.T) {
	rng := &scriptedRand{f: 0.99}
	selection, err := NewSelection(testParams, rng)
	if err != nil {
		t.Fatal(err)
	}

	continuation, err := NewContinuation(testParams, rng)
	if err != nil {
		t.Fatal(err)
	}

	selection.Table().Update("", "111111", "012345", 10, 1.0, 0)
	continuation.Table().Update("", "0_4000", "1", 10, 1.0, 0)

	tc := tenk.NewTurnController(NewSplitPlayer(selection, continuation), rng)
	result, err := tc.PlayTurn()
	if err != nil {
		t.Fatal(err)
	}

	if result.Outcome != tenk.Banked || result.Score != 4000 {
		t.Errorf("expected banked 4000, got %+v", result)
	}

	expected := 0.5*10 + 0.5*4000
	if v := getValue(t, selection.Table(), "111111", "012345"); math.Abs(v-expected) > tol {
		t.Errorf("expected selection terminal update to %v, got %v", expected, v)
	}

	if v := getValue(t, continuation.Table(), "0_4000", "1"); math.Abs(v-expected) > tol {
		t.Errorf("expected continuation terminal update to %v, got %v", expected, v)
	}

	// Continuation is rewarded with the running score for reaching its first decision.
	expected = 0.5 * (4000 + 0.6*10)
	if v := getValue(t, continuation.Table(), startState, noAction); math.Abs(v-expected) > tol {
		t.Errorf("expected continuation start value %v, got %v", expected, v)
	}
}

func TestCombined_IllegalMoveBusts(t *testing.T) {
	rng := &scriptedRand{ints: facesToInts(1, 2, 3, 4, 6, 6), f: 0.99}
	agent, err := NewCombined(testParams, rng)
	if err != nil {
		t.Fatal(err)
	}

	// Keep the single 2 and continue: not a scoring selection.
	agent.Table().Update("", "123466_0", "01", 10, 1.0, 0)
	tc := tenk.NewTurnController(NewCombinedPlayer(agent), rng)
	result, err := tc.PlayTurn()
	if err != nil {
		t.Fatal(err)
	}

	if result.Outcome != tenk.Busted || result.Score != 0 || result.Rolls != 1 {
		t.Errorf("expected bust with score 0 after 1 roll, got %+v", result)
	}

	expected := 0.5*10 + 0.5*0
	if v := getValue(t, agent.Table(), "123466_0", "01"); math.Abs(v-expected) > tol {
		t.Errorf("expected terminal update to %v, got %v", expected, v)
	}
}

func TestCombined_NoValidMoveBusts(t *testing.T) {
	rng := &scriptedRand{ints: facesToInts(2, 3, 4, 6, 6, 2), f: 0.99}
	agent, err := NewCombined(testParams, rng)
	if err != nil {
		t.Fatal(err)
	}

	tc := tenk.NewTurnController(NewCombinedPlayer(agent), rng)
	result, err := tc.PlayTurn()
	if err != nil {
		t.Fatal(err)
	}

	if result.Outcome != tenk.Busted || result.Score != 0 {
		t.Errorf("expected bust, got %+v", result)
	}

	// The agent never acted, so only the sentinel is credited.
	if v := getValue(t, agent.Table(), startState, noAction); v != 0 {
		t.Errorf("expected start state value 0, got %v", v)
	}

	if agent.Table().NumEntries() != 1 {
		t.Errorf("expected 1 entry, got %d", agent.Table().NumEntries())
	}
}

func TestSelection_NegativeRewardIsInvariantViolation(t *testing.T) {
	selection, err := NewSelection(testParams, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}

	selection.prevScore = 100
	selection.score = 50
	if _, err := selection.CalculateReward(); errors.Cause(err) != tenk.ErrInvariantViolation {
		t.Errorf("expected invariant violation, got %v", err)
	}

	selection.score = 150
	reward, err := selection.CalculateReward()
	if err != nil || reward != 50 {
		t.Errorf("expected reward 50, got %v (%v)", reward, err)
	}
}

func TestCombined_CorruptActionIsRejected(t *testing.T) {
	rng := &scriptedRand{f: 0.99}
	agent, err := NewCombined(testParams, rng)
	if err != nil {
		t.Fatal(err)
	}

	agent.Table().Update("", "111111_0", "x9", 10, 1.0, 0)
	player := NewCombinedPlayer(agent)
	player.BeginTurn()
	if _, err := player.OfferRoll(dice.Roll{1, 1, 1, 1, 1, 1}); errors.Cause(err) != ErrCorruptAction {
		t.Errorf("expected corrupt action, got %v", err)
	}

	if v := getValue(t, agent.Table(), "111111_0", "x9"); v != 10 {
		t.Errorf("expected corrupt entry to be left alone, got %v", v)
	}
}

func TestNew_InvalidParams(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, params := range []tenk.Params{
		{Alpha: 1.5, Gamma: 0.5},
		{Alpha: 0.5, Gamma: -0.1},
		{Alpha: 0.5, Gamma: 0.5, Randomness: 2},
		{Alpha: math.NaN()},
	} {
		if _, err := NewCombined(params, rng); errors.Cause(err) != tenk.ErrInvalidParams {
			t.Errorf("%+v: expected invalid params, got %v", params, err)
		}

		if _, err := NewSelection(params, rng); errors.Cause(err) != tenk.ErrInvalidParams {
			t.Errorf("%+v: expected invalid params, got %v", params, err)
		}

		if _, err := NewContinuation(params, rng); errors.Cause(err) != tenk.ErrInvalidParams {
			t.Errorf("%+v: expected invalid params, got %v", params, err)
		}
	}

	if _, err := NewCombined(testParams, nil); errors.Cause(err) != tenk.ErrInvalidParams {
		t.Errorf("expected invalid params for nil rng, got %v", err)
	}
}

func TestRandomKeep(t *testing.T) {
	// Drop every die on the first pass, keep every die on the second.
	rng := &sequenceRand{floats: []float64{0.1, 0.1, 0.1, 0.9, 0.9, 0.9}}
	keep := randomKeep(rng, 3)
	if keep.Key() != "012" {
		t.Errorf("expected retry to keep all dice, got %v", keep)
	}

	// A draw of exactly 0.2 drops the die.
	rng = &sequenceRand{floats: []float64{0.2, 0.2000001, 0.2}}
	if keep := randomKeep(rng, 3); keep.Key() != "1" {
		t.Errorf("expected only the die drawn above 0.2 to be kept, got %v", keep)
	}

	r := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		n := 1 + r.Intn(dice.NumDice)
		keep := randomKeep(r, n)
		if len(keep) == 0 || len(keep) > n {
			t.Fatalf("invalid keep %v for %d dice", keep, n)
		}

		for j, idx := range keep {
			if idx < 0 || idx >= n || (j > 0 && keep[j-1] >= idx) {
				t.Fatalf("invalid keep %v for %d dice", keep, n)
			}
		}
	}
}

type sequenceRand struct {
	floats []float64
}

func (r *sequenceRand) Float64() float64 {
	x := r.floats[0]
	r.floats = r.floats[1:]
	return x
}

func (r *sequenceRand) Intn(n int) int {
	return 0
}

func TestSplit_DeterministicUnderSeed(t *testing.T) {
	play := func(seed int64) ([]byte, []byte) {
		rng := rand.New(rand.NewSource(seed))
		params := tenk.DefaultParams()
		selection, err := NewSelection(params, rng)
		if err != nil {
			t.Fatal(err)
		}

		continuation, err := NewContinuation(params, rng)
		if err != nil {
			t.Fatal(err)
		}

		loop := &tenk.Loop{
			Controller: tenk.NewTurnController(NewSplitPlayer(selection, continuation), rng),
			Params:     tenk.LoopParams{MaxTurns: 2000},
		}
		if _, err := loop.Run(context.Background()); err != nil {
			t.Fatal(err)
		}

		s, err := selection.SerializeTable()
		if err != nil {
			t.Fatal(err)
		}

		c, err := continuation.SerializeTable()
		if err != nil {
			t.Fatal(err)
		}

		return s, c
	}

	s1, c1 := play(11)
	s2, c2 := play(11)
	if !bytes.Equal(s1, s2) || !bytes.Equal(c1, c2) {
		t.Error("expected identical tables when training with the same seed")
	}
}

func TestCombined_LoadTable(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	agent, err := NewCombined(tenk.DefaultParams(), rng)
	if err != nil {
		t.Fatal(err)
	}

	loop := &tenk.Loop{
		Controller: tenk.NewTurnController(NewCombinedPlayer(agent), rng),
		Params:     tenk.LoopParams{MaxTurns: 500},
	}
	if _, err := loop.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	blob, err := agent.SerializeTable()
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewCombined(tenk.DefaultParams(), rng)
	if err != nil {
		t.Fatal(err)
	}

	if err := other.LoadTable(blob); err != nil {
		t.Fatal(err)
	}

	reloaded, err := other.SerializeTable()
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(blob, reloaded) {
		t.Error("expected reloaded table to serialize identically")
	}

	if err := other.LoadTable(blob[:len(blob)/2]); err == nil {
		t.Error("expected error loading a truncated table")
	}

	if other.Table().Len() != agent.Table().Len() {
		t.Errorf("expected failed load to leave the table alone: %d != %d",
			other.Table().Len(), agent.Table().Len())
	}
}

func TestCombined_Training(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	agent, err := NewCombined(tenk.DefaultParams(), rng)
	if err != nil {
		t.Fatal(err)
	}

	tc := tenk.NewTurnController(NewCombinedPlayer(agent), rng)
	nTurns := 20000
	total := 0
	for i := 1; i <= nTurns; i++ {
		result, err := tc.PlayTurn()
		if err != nil {
			t.Fatal(err)
		}

		total += result.Score
		if i%(nTurns/10) == 0 {
			t.Logf("[turn=%d] Mean score: %.1f, %d states", i, float64(total)/float64(i), agent.Table().Len())
		}
	}
}

func BenchmarkSplitPlayer(b *testing.B) {
	rng := rand.New(rand.NewSource(0))
	selection, _ := NewSelection(tenk.DefaultParams(), rng)
	continuation, _ := NewContinuation(tenk.DefaultParams(), rng)
	tc := tenk.NewTurnController(NewSplitPlayer(selection, continuation), rng)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tc.PlayTurn(); err != nil {
			b.Fatal(err)
		}
	}
}

// countingRand replays the given draws and counts how many were taken.
// It fails the test if more draws are taken than scripted.
type countingRand struct {
	t      *testing.T
	floats []float64
	ints   []int

	nFloats, nInts int
}

func (r *countingRand) Float64() float64 {
	if len(r.floats) == 0 {
		r.t.Fatal("unexpected Float64 draw")
	}

	r.nFloats++
	x := r.floats[0]
	r.floats = r.floats[1:]
	return x
}

func (r *countingRand) Intn(n int) int {
	if len(r.ints) == 0 {
		r.t.Fatal("unexpected Intn draw")
	}

	r.nInts++
	x := r.ints[0]
	r.ints = r.ints[1:]
	return x % n
}

func TestAct_EpsilonGreedy(t *testing.T) {
	sixOnes := dice.Roll{1, 1, 1, 1, 1, 1}
	keepAll := []float64{0.9, 0.9, 0.9, 0.9, 0.9, 0.9}
	keepFirstTwo := []float64{0.9, 0.9, 0.1, 0.1, 0.1, 0.1}
	withDraw := func(eps float64, keeps []float64) []float64 {
		return append([]float64{eps}, keeps...)
	}

	type testCase struct {
		name     string
		best     *float64 // nil leaves the state unvisited
		floats   []float64
		ints     []int
		expected string
		nFloats  int
	}

	negative, positive := -5.0, 50.0
	agents := []struct {
		name     string
		state    string
		bestKey  string
		newAgent func(rng tenk.Rand) (Agent, error)
		cases    []testCase
	}{
		{
			name:    "combined",
			state:   "111111_0",
			bestKey: "1012345",
			newAgent: func(rng tenk.Rand) (Agent, error) {
				a, err := NewCombined(testParams, rng)
				if err != nil {
					return nil, err
				}
				a.dice = sixOnes
				a.state = CombinedState{Dice: sixOnes}.Key()
				return a, nil
			},
			cases: []testCase{
				{"worthless best explores", &negative, withDraw(0.99, keepAll), []int{0}, "0012345", 7},
				{"low draw explores", &positive, withDraw(0.05, keepFirstTwo), []int{1}, "101", 7},
				{"unvisited explores without draw", nil, keepAll, []int{0}, "0012345", 6},
				{"draw at randomness exploits", &positive, []float64{0.1}, nil, "1012345", 1},
				{"high draw exploits", &positive, []float64{0.5}, nil, "1012345", 1},
			},
		},
		{
			name:    "selection",
			state:   "111111",
			bestKey: "012345",
			newAgent: func(rng tenk.Rand) (Agent, error) {
				a, err := NewSelection(testParams, rng)
				if err != nil {
					return nil, err
				}
				a.dice = sixOnes
				a.state = DiceState{Dice: sixOnes}.Key()
				return a, nil
			},
			cases: []testCase{
				{"worthless best explores", &negative, withDraw(0.99, keepFirstTwo), nil, "01", 7},
				{"low draw explores", &positive, withDraw(0.05, keepFirstTwo), nil, "01", 7},
				{"unvisited explores without draw", nil, keepFirstTwo, nil, "01", 6},
				{"draw at randomness exploits", &positive, []float64{0.1}, nil, "012345", 1},
				{"high draw exploits", &positive, []float64{0.5}, nil, "012345", 1},
			},
		},
		{
			name:    "continuation",
			state:   "2_300",
			bestKey: "1",
			newAgent: func(rng tenk.Rand) (Agent, error) {
				a, err := NewContinuation(testParams, rng)
				if err != nil {
					return nil, err
				}
				a.state = ContinuationState{Remaining: 2, Score: 300}.Key()
				return a, nil
			},
			cases: []testCase{
				{"worthless best explores", &negative, []float64{0.99}, []int{0}, "0", 1},
				{"low draw explores", &positive, []float64{0.05}, []int{0}, "0", 1},
				{"unvisited explores without draw", nil, nil, []int{1}, "1", 0},
				{"draw at randomness exploits", &positive, []float64{0.1}, nil, "1", 1},
				{"high draw exploits", &positive, []float64{0.5}, nil, "1", 1},
			},
		},
	}

	for _, at := range agents {
		for _, tc := range at.cases {
			rng := &countingRand{t: t, floats: tc.floats, ints: tc.ints}
			a, err := at.newAgent(rng)
			if err != nil {
				t.Fatal(err)
			}

			if tc.best != nil {
				a.Table().Update("", at.state, at.bestKey, *tc.best, 1.0, 0)
			}

			action, err := a.Act()
			if err != nil {
				t.Fatalf("%s/%s: %v", at.name, tc.name, err)
			}

			if action.Key() != tc.expected {
				t.Errorf("%s/%s: expected action %q, got %q", at.name, tc.name, tc.expected, action.Key())
			}

			if action.Key() != a.EncodeAction().Key() {
				t.Errorf("%s/%s: returned %q but recorded %q", at.name, tc.name, action.Key(), a.EncodeAction().Key())
			}

			if rng.nFloats != tc.nFloats || len(rng.floats) != 0 || len(rng.ints) != 0 {
				t.Errorf("%s/%s: expected %d uniform draws, took %d (%d floats, %d ints left over)",
					at.name, tc.name, tc.nFloats, rng.nFloats, len(rng.floats), len(rng.ints))
			}
		}
	}
}

func TestSplit_NoValidMoveBust(t *testing.T) {
	rng := &scriptedRand{ints: facesToInts(1, 2, 3, 4, 6, 6, 2, 3, 4, 6, 6), f: 0.99}
	selection, err := NewSelection(testParams, rng)
	if err != nil {
		t.Fatal(err)
	}

	continuation, err := NewContinuation(testParams, rng)
	if err != nil {
		t.Fatal(err)
	}

	// Keep the 1, then roll the remaining five dice again.
	selection.Table().Update("", "123466", "0", 40, 1.0, 0)
	continuation.Table().Update("", "5_100", "0", 30, 1.0, 0)

	tc := tenk.NewTurnController(NewSplitPlayer(selection, continuation), rng)
	result, err := tc.PlayTurn()
	if err != nil {
		t.Fatal(err)
	}

	if result.Outcome != tenk.Busted || result.Score != 0 || result.Rolls != 2 {
		t.Fatalf("expected bust after 2 rolls, got %+v", result)
	}

	// Selection is credited with the 100 points of its last keep.
	expected := 40 + testParams.Alpha*(100-40)
	if v := getValue(t, selection.Table(), "123466", "0"); math.Abs(v-expected) > tol {
		t.Errorf("expected selection terminal update to %v, got %v", expected, v)
	}

	// Continuation is credited with the lost turn.
	expected = 30 + testParams.Alpha*(0-30)
	if v := getValue(t, continuation.Table(), "5_100", "0"); math.Abs(v-expected) > tol {
		t.Errorf("expected continuation terminal update to %v, got %v", expected, v)
	}

	expected = testParams.Alpha * (0 + testParams.Gamma*40)
	if v := getValue(t, selection.Table(), startState, noAction); math.Abs(v-expected) > tol {
		t.Errorf("expected selection start value %v, got %v", expected, v)
	}

	expected = testParams.Alpha * (100 + testParams.Gamma*30)
	if v := getValue(t, continuation.Table(), startState, noAction); math.Abs(v-expected) > tol {
		t.Errorf("expected continuation start value %v, got %v", expected, v)
	}

	if selection.Table().NumEntries() != 2 || continuation.Table().NumEntries() != 2 {
		t.Errorf("expected 2 entries per table, got %d and %d",
			selection.Table().NumEntries(), continuation.Table().NumEntries())
	}
}

func TestSplit_IllegalMoveBust(t *testing.T) {
	rng := &scriptedRand{ints: facesToInts(1, 2, 3, 4, 6, 6), f: 0.99}
	selection, err := NewSelection(testParams, rng)
	if err != nil {
		t.Fatal(err)
	}

	continuation, err := NewContinuation(testParams, rng)
	if err != nil {
		t.Fatal(err)
	}

	// Keep the single 2, which does not score.
	selection.Table().Update("", "123466", "1", 40, 1.0, 0)
	continuation.Table().Update("", startState, noAction, 8, 1.0, 0)

	tc := tenk.NewTurnController(NewSplitPlayer(selection, continuation), rng)
	result, err := tc.PlayTurn()
	if err != nil {
		t.Fatal(err)
	}

	if result.Outcome != tenk.Busted || result.Score != 0 || result.Rolls != 1 {
		t.Fatalf("expected bust after 1 roll, got %+v", result)
	}

	// An illegal selection gains nothing.
	expected := 40 + testParams.Alpha*(0-40)
	if v := getValue(t, selection.Table(), "123466", "1"); math.Abs(v-expected) > tol {
		t.Errorf("expected selection terminal update to %v, got %v", expected, v)
	}

	// Continuation never decided, so its start state takes exactly one update.
	expected = 8 + testParams.Alpha*(0-8)
	if v := getValue(t, continuation.Table(), startState, noAction); math.Abs(v-expected) > tol {
		t.Errorf("expected one continuation update to %v, got %v", expected, v)
	}

	if continuation.Table().Len() != 1 || continuation.Table().NumEntries() != 1 {
		t.Errorf("expected continuation to record only its start state, got %d states",
			continuation.Table().Len())
	}
}
