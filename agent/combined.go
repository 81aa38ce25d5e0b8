package agent

import (
	"github.com/timpalpant/go-tenk"
	"github.com/timpalpant/go-tenk/dice"
)

// Combined is an agent that learns both which dice to set aside and whether
// to bank afterwards in a single table. Its state is the dice showing and
// the score accumulated before the roll, and it is rewarded with the running
// score rather than the score gained by each decision.
type Combined struct {
	learner
	keep Keep
	stop Stop
}

// NewCombined returns a Combined agent with an empty table.
func NewCombined(params tenk.Params, rng tenk.Rand) (*Combined, error) {
	l, err := newLearner(params, rng)
	if err != nil {
		return nil, err
	}

	return &Combined{learner: l}, nil
}

// Name implements Agent.
func (c *Combined) Name() string {
	return "combined"
}

// Reset implements Agent.
func (c *Combined) Reset() {
	c.learner.reset()
	c.keep = nil
	c.stop = false
}

// EncodeState implements Agent.
func (c *Combined) EncodeState() State {
	return CombinedState{Dice: c.dice, Score: c.score}
}

// EncodeAction implements Agent.
func (c *Combined) EncodeAction() Action {
	return CombinedAction{Stop: c.stop, Keep: c.keep}
}

// DecodeAction implements Agent.
func (c *Combined) DecodeAction(key string) (Action, error) {
	return ParseCombinedAction(key)
}

// CalculateReward implements Agent.
func (c *Combined) CalculateReward() (float64, error) {
	return float64(c.score), nil
}

// Act implements Agent.
func (c *Combined) Act() (Action, error) {
	rewards := c.table.RewardsFor(c.state)
	if c.explore(rewards) {
		c.keep = randomKeep(c.rng, len(c.dice))
		c.stop = Stop(coin(c.rng))
		return c.EncodeAction(), nil
	}

	action, err := best(c, rewards)
	if err != nil {
		return nil, err
	}

	a := action.(CombinedAction)
	c.keep = a.Keep
	c.stop = a.Stop
	return a, nil
}

// CombinedPlayer plays TenK with a Combined agent.
type CombinedPlayer struct {
	agent *Combined
}

// NewCombinedPlayer returns a tenk.Player for the given agent.
func NewCombinedPlayer(agent *Combined) *CombinedPlayer {
	return &CombinedPlayer{agent: agent}
}

// Agents returns the agent of the player.
func (p *CombinedPlayer) Agents() []Agent {
	return []Agent{p.agent}
}

// TableSizes implements tenk.TableSizer.
func (p *CombinedPlayer) TableSizes() []int {
	return []int{p.agent.table.Len()}
}

// BeginTurn implements tenk.Player.
func (p *CombinedPlayer) BeginTurn() {
	p.agent.Reset()
}

// OfferRoll implements tenk.Player.
func (p *CombinedPlayer) OfferRoll(roll dice.Roll) ([]int, error) {
	p.agent.dice = roll
	if err := observe(p.agent); err != nil {
		return nil, err
	}

	return p.agent.keep, nil
}

// OfferContinue implements tenk.Player. The decision was made together
// with the choice of dice.
func (p *CombinedPlayer) OfferContinue(score int) (bool, error) {
	p.agent.score = score
	return bool(p.agent.stop), nil
}

// EndTurn implements tenk.Player.
func (p *CombinedPlayer) EndTurn(finalScore int) error {
	defer p.agent.Reset()
	return finish(p.agent, finalScore)
}
