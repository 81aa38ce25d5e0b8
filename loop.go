package tenk

import (
	"context"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// TurnStats are the counters of one completed turn.
type TurnStats struct {
	Turn       int // Total number of turns played, including this one.
	Outcome    TurnState
	Score      int
	Rolls      int
	TableSizes []int // Number of states in each of the player's tables, if any.
}

// Loop plays turns until it runs out of budget.
type Loop struct {
	Controller   *TurnController
	Reporter     Reporter     // Optional.
	Checkpointer Checkpointer // Optional.
	Params       LoopParams
}

// Run plays turns until MaxTurns have been played or ctx is done. The budget
// is only checked between turns, so a turn in progress always completes.
// It returns the total number of turns played, including Params.StartTurn.
func (l *Loop) Run(ctx context.Context) (int, error) {
	turn := l.Params.StartTurn
	for {
		if l.Params.MaxTurns > 0 && turn >= l.Params.MaxTurns {
			return turn, nil
		}

		if err := ctx.Err(); err != nil {
			glog.V(1).Infof("Stopping after %d turns: %v", turn, err)
			return turn, nil
		}

		result, err := l.Controller.PlayTurn()
		if err != nil {
			return turn, errors.Wrapf(err, "turn %d", turn+1)
		}

		turn++
		if l.Reporter != nil {
			stats := TurnStats{
				Turn:    turn,
				Outcome: result.Outcome,
				Score:   result.Score,
				Rolls:   result.Rolls,
			}

			if sizer, ok := l.Controller.Player().(TableSizer); ok {
				stats.TableSizes = sizer.TableSizes()
			}

			if err := l.Reporter.Report(stats); err != nil {
				return turn, errors.Wrap(err, "report")
			}
		}

		if l.Checkpointer != nil && l.Params.CheckpointEvery > 0 && turn%l.Params.CheckpointEvery == 0 {
			glog.V(1).Infof("Checkpointing after %d turns", turn)
			if err := l.Checkpointer.Checkpoint(turn); err != nil {
				return turn, errors.Wrapf(err, "checkpoint at turn %d", turn)
			}
		}
	}
}
