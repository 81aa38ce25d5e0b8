package agent

import (
	"github.com/pkg/errors"

	"github.com/timpalpant/go-tenk"
	"github.com/timpalpant/go-tenk/dice"
)

// Selection is an agent that learns which dice to set aside. Its state is
// the dice showing, and it is rewarded with the points its selection scored.
type Selection struct {
	learner
	keep Keep
}

// NewSelection returns a Selection agent with an empty table.
func NewSelection(params tenk.Params, rng tenk.Rand) (*Selection, error) {
	l, err := newLearner(params, rng)
	if err != nil {
		return nil, err
	}

	return &Selection{learner: l}, nil
}

// Name implements Agent.
func (s *Selection) Name() string {
	return "selection"
}

// Reset implements Agent.
func (s *Selection) Reset() {
	s.learner.reset()
	s.keep = nil
}

// EncodeState implements Agent.
func (s *Selection) EncodeState() State {
	return DiceState{Dice: s.dice}
}

// EncodeAction implements Agent.
func (s *Selection) EncodeAction() Action {
	return s.keep
}

// DecodeAction implements Agent.
func (s *Selection) DecodeAction(key string) (Action, error) {
	return ParseKeep(key)
}

// CalculateReward implements Agent. Setting dice aside can never lose
// points, so a decrease of the score is reported as an error.
func (s *Selection) CalculateReward() (float64, error) {
	delta := s.score - s.prevScore
	if delta < 0 {
		return 0, errors.Wrapf(tenk.ErrInvariantViolation,
			"score decreased from %d to %d after keeping %v", s.prevScore, s.score, s.keep)
	}

	return float64(delta), nil
}

// Act implements Agent.
func (s *Selection) Act() (Action, error) {
	rewards := s.table.RewardsFor(s.state)
	if s.explore(rewards) {
		s.keep = randomKeep(s.rng, len(s.dice))
		return s.keep, nil
	}

	action, err := best(s, rewards)
	if err != nil {
		return nil, err
	}

	s.keep = action.(Keep)
	return s.keep, nil
}

// Continuation is an agent that learns whether to bank the running score.
// Its state is the number of dice left to roll and the running score, and
// it is rewarded with the running score.
type Continuation struct {
	learner
	kept int
	stop Stop
}

// NewContinuation returns a Continuation agent with an empty table.
func NewContinuation(params tenk.Params, rng tenk.Rand) (*Continuation, error) {
	l, err := newLearner(params, rng)
	if err != nil {
		return nil, err
	}

	return &Continuation{learner: l}, nil
}

// Name implements Agent.
func (c *Continuation) Name() string {
	return "continuation"
}

// Reset implements Agent.
func (c *Continuation) Reset() {
	c.learner.reset()
	c.kept = 0
	c.stop = false
}

// EncodeState implements Agent.
func (c *Continuation) EncodeState() State {
	return ContinuationState{Remaining: len(c.dice) - c.kept, Score: c.score}
}

// EncodeAction implements Agent.
func (c *Continuation) EncodeAction() Action {
	return c.stop
}

// DecodeAction implements Agent.
func (c *Continuation) DecodeAction(key string) (Action, error) {
	return ParseStop(key)
}

// CalculateReward implements Agent.
func (c *Continuation) CalculateReward() (float64, error) {
	return float64(c.score), nil
}

// Act implements Agent.
func (c *Continuation) Act() (Action, error) {
	rewards := c.table.RewardsFor(c.state)
	if c.explore(rewards) {
		c.stop = Stop(coin(c.rng))
		return c.stop, nil
	}

	action, err := best(c, rewards)
	if err != nil {
		return nil, err
	}

	c.stop = action.(Stop)
	return c.stop, nil
}

// SplitPlayer plays TenK with a Selection agent choosing the dice and a
// Continuation agent deciding whether to bank.
type SplitPlayer struct {
	selection    *Selection
	continuation *Continuation
}

// NewSplitPlayer returns a tenk.Player for the given pair of agents.
func NewSplitPlayer(selection *Selection, continuation *Continuation) *SplitPlayer {
	return &SplitPlayer{
		selection:    selection,
		continuation: continuation,
	}
}

// Agents returns the agents of the player.
func (p *SplitPlayer) Agents() []Agent {
	return []Agent{p.selection, p.continuation}
}

// TableSizes implements tenk.TableSizer.
func (p *SplitPlayer) TableSizes() []int {
	return []int{p.selection.table.Len(), p.continuation.table.Len()}
}

// BeginTurn implements tenk.Player.
func (p *SplitPlayer) BeginTurn() {
	p.selection.Reset()
	p.continuation.Reset()
}

// OfferRoll implements tenk.Player. The Selection agent is rewarded
// with the score gained since its previous selection.
func (p *SplitPlayer) OfferRoll(roll dice.Roll) ([]int, error) {
	p.selection.dice = roll
	p.selection.score = p.continuation.score
	if err := observe(p.selection); err != nil {
		return nil, err
	}

	return p.selection.keep, nil
}

// OfferContinue implements tenk.Player.
func (p *SplitPlayer) OfferContinue(score int) (bool, error) {
	p.continuation.dice = p.selection.dice
	p.continuation.kept = len(p.selection.keep)
	p.continuation.score = score
	if err := observe(p.continuation); err != nil {
		return false, err
	}

	return bool(p.continuation.stop), nil
}

// EndTurn implements tenk.Player. The Selection agent is credited against
// the last running score reported to the Continuation agent, which includes
// the points of its last selection even if the turn was then lost.
func (p *SplitPlayer) EndTurn(finalScore int) error {
	defer p.BeginTurn()
	if err := finish(p.selection, p.continuation.score); err != nil {
		return err
	}

	return finish(p.continuation, finalScore)
}
