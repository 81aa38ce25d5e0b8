// Package report summarizes training progress: per-window statistics
// logged as training proceeds, a columnar log of every turn, and a chart
// of the learning curve.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/timpalpant/go-tenk"
	"github.com/timpalpant/go-tenk/internal/f64"
)

// Window summarizes a block of consecutive turns.
type Window struct {
	EndTurn    int
	MeanScore  float64
	DeltaMean  float64 // Change of the rounded mean since the previous window.
	MaxScore   int
	MeanRolls  float64
	MaxRolls   int
	BustRate   float64
	TableSizes []int
	Elapsed    time.Duration
}

// String formats the window as a single progress line, e.g.
//
//	412[ 13] -  9/2.31 - 6450 - 5630/96 | 1.84
func (w Window) String() string {
	sizes := make([]string, len(w.TableSizes))
	for i, n := range w.TableSizes {
		sizes[i] = fmt.Sprint(n)
	}

	return fmt.Sprintf("%3.0f[%3.0f] - %2d/%.2f - %4d - %s | %.2f",
		math.Round(w.MeanScore), w.DeltaMean, w.MaxRolls, w.MeanRolls,
		w.MaxScore, strings.Join(sizes, "/"), w.Elapsed.Seconds())
}

// Aggregator is a tenk.Reporter that collects turns into windows of a fixed
// number of turns, logging each window as it is completed.
type Aggregator struct {
	size    int
	now     func() time.Time
	onClose func(Window)

	scores   []float64
	rolls    []float64
	start    time.Time
	prevMean float64
	history  []Window
}

// NewAggregator returns an Aggregator with windows of the given number of turns.
func NewAggregator(size int) (*Aggregator, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid window size: %d", size)
	}

	return &Aggregator{
		size:  size,
		now:   time.Now,
		start: time.Now(),
	}, nil
}

// OnWindow registers f to be called with every completed window.
func (a *Aggregator) OnWindow(f func(Window)) {
	a.onClose = f
}

// Report implements tenk.Reporter.
func (a *Aggregator) Report(stats tenk.TurnStats) error {
	a.scores = append(a.scores, float64(stats.Score))
	a.rolls = append(a.rolls, float64(stats.Rolls))
	if len(a.scores) < a.size {
		return nil
	}

	mean := math.Round(f64.Mean(a.scores))
	now := a.now()
	w := Window{
		EndTurn:    stats.Turn,
		MeanScore:  f64.Mean(a.scores),
		DeltaMean:  mean - a.prevMean,
		MaxScore:   int(f64.Max(a.scores)),
		MeanRolls:  f64.Mean(a.rolls),
		MaxRolls:   int(f64.Max(a.rolls)),
		BustRate:   float64(f64.CountIf(a.scores, isZero)) / float64(len(a.scores)),
		TableSizes: append([]int(nil), stats.TableSizes...),
		Elapsed:    now.Sub(a.start),
	}

	glog.Infof("%8d: %v", w.EndTurn, w)
	a.history = append(a.history, w)
	if a.onClose != nil {
		a.onClose(w)
	}

	a.prevMean = mean
	a.scores = a.scores[:0]
	a.rolls = a.rolls[:0]
	a.start = now
	return nil
}

// Windows returns the windows completed so far.
func (a *Aggregator) Windows() []Window {
	return a.history
}

func isZero(x float64) bool {
	return x == 0
}

// Multi fans out turn statistics to several reporters,
// stopping at the first error.
type Multi []tenk.Reporter

// Report implements tenk.Reporter.
func (m Multi) Report(stats tenk.TurnStats) error {
	for _, r := range m {
		if err := r.Report(stats); err != nil {
			return err
		}
	}

	return nil
}
