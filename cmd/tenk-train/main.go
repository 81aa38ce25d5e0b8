package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/timpalpant/go-tenk"
	"github.com/timpalpant/go-tenk/agent"
	"github.com/timpalpant/go-tenk/ldbstore"
	"github.com/timpalpant/go-tenk/rdbstore"
	"github.com/timpalpant/go-tenk/report"
)

type Params struct {
	Mode  string
	Kind  string
	Name  string
	Tag   string
	Learn tenk.Params

	MaxGames   int
	Step       int
	Progress   int
	SampleSize int
	Load       int
	Duration   time.Duration
	Seed       int64

	Store string
	Path  string

	ParquetPath string
	ChartPath   string

	Compact bool
	Single  bool
}

func main() {
	params := Params{Learn: tenk.DefaultParams()}
	flag.StringVar(&params.Mode, "mode", "train", "train or check")
	flag.StringVar(&params.Kind, "agent", agent.KindSplit, "Kind of player: combined or split")
	flag.StringVar(&params.Name, "name", "v1", "Name of the run, used to derive the tag")
	flag.StringVar(&params.Tag, "tag", "", "Tag of checkpoints (default: derived from name and parameters)")
	flag.Float64Var(&params.Learn.Alpha, "alpha", params.Learn.Alpha, "Learning rate")
	flag.Float64Var(&params.Learn.Gamma, "gamma", params.Learn.Gamma, "Discount of successor states")
	flag.Float64Var(&params.Learn.Randomness, "exp", params.Learn.Randomness, "Probability of exploring")
	flag.IntVar(&params.MaxGames, "max_games", 10000000, "Total number of turns to train for")
	flag.IntVar(&params.Step, "step", 1000000, "Save a checkpoint every this many turns")
	flag.IntVar(&params.Progress, "progress", 100000, "Report progress every this many turns")
	flag.IntVar(&params.SampleSize, "sample_size", 100000, "Number of turns to play from each checkpoint in check mode")
	flag.IntVar(&params.Load, "load", 0, "Resume from the checkpoint after this many turns")
	flag.DurationVar(&params.Duration, "duration", 0, "Stop training after this long")
	flag.Int64Var(&params.Seed, "seed", 0, "Random seed (default: time)")
	flag.StringVar(&params.Store, "store", "dir", "Table store: dir, leveldb or rocksdb")
	flag.StringVar(&params.Path, "path", "tables", "Path of the table store")
	flag.StringVar(&params.ParquetPath, "parquet", "", "Write a log of every turn to this Parquet file")
	flag.StringVar(&params.ChartPath, "chart", "", "Write a chart of training progress to this HTML file")
	flag.BoolVar(&params.Compact, "compact", false, "Also save compacted copies of the final tables")
	flag.BoolVar(&params.Single, "single", false, "Keep only the best action of each state when compacting")
	flag.Parse()

	if params.Tag == "" {
		params.Tag = agent.Tag(params.Name, params.Learn)
	}

	if params.Seed == 0 {
		params.Seed = time.Now().UnixNano()
	}

	store, err := openStore(params.Store, params.Path)
	if err != nil {
		glog.Errorf("Unable to open table store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if params.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, params.Duration)
		defer cancel()
	}

	switch params.Mode {
	case "train":
		err = train(ctx, params, store)
	case "check":
		err = check(ctx, params, store)
	default:
		err = errors.Errorf("unknown mode: %q", params.Mode)
	}

	if err != nil {
		glog.Errorf("%s failed: %v", params.Mode, err)
		os.Exit(1)
	}
}

func openStore(kind, path string) (tenk.TableStore, error) {
	switch kind {
	case "dir":
		return tenk.NewDirStore(path)
	case "leveldb":
		return ldbstore.New(path, &opt.Options{})
	case "rocksdb":
		return rdbstore.New(rdbstore.DefaultParams(path))
	default:
		return nil, errors.Errorf("unknown table store: %q", kind)
	}
}

func train(ctx context.Context, params Params, store tenk.TableStore) error {
	glog.Infof("Training %s player %s with seed %d", params.Kind, params.Tag, params.Seed)
	rng := rand.New(rand.NewSource(params.Seed))
	player, err := agent.NewPlayer(params.Kind, params.Learn, rng)
	if err != nil {
		return err
	}

	if params.Load > 0 {
		if err := agent.LoadCheckpoint(store, player.Agents(), params.Tag, params.Load); err != nil {
			return err
		}
	}

	agg, err := report.NewAggregator(params.Progress)
	if err != nil {
		return err
	}

	reporters := report.Multi{agg}
	if params.ParquetPath != "" {
		plog, err := report.NewParquetLog(params.ParquetPath, params.Tag)
		if err != nil {
			return err
		}
		defer func() {
			if err := plog.Close(); err != nil {
				glog.Errorf("Unable to write turn log: %v", err)
			}
		}()

		glog.Infof("Logging turns of run %s to %s", plog.RunID(), params.ParquetPath)
		reporters = append(reporters, plog)
	}

	checkpointer := &agent.Checkpointer{Store: store, Agents: player.Agents(), Tag: params.Tag}
	loop := &tenk.Loop{
		Controller:   tenk.NewTurnController(player, rng),
		Reporter:     reporters,
		Checkpointer: checkpointer,
		Params: tenk.LoopParams{
			MaxTurns:        params.MaxGames,
			CheckpointEvery: params.Step,
			StartTurn:       params.Load,
		},
	}

	turns, err := loop.Run(ctx)
	if err != nil {
		return err
	}

	if params.Step <= 0 || turns%params.Step != 0 {
		if err := checkpointer.Checkpoint(turns); err != nil {
			return err
		}
	}

	if params.Compact {
		for _, a := range player.Agents() {
			t := a.Table()
			t.Compact(params.Single)
			name := agent.CheckpointName(a, params.Tag, turns) + "_compact"
			if err := store.SaveTable(name, t); err != nil {
				return errors.Wrapf(err, "save %s", name)
			}
		}
	}

	if params.ChartPath != "" {
		return writeChart(params.ChartPath, params.Tag, report.Curve{Name: params.Kind, Windows: agg.Windows()})
	}

	return nil
}

// check plays SampleSize turns from every checkpoint of a training run,
// without learning or exploring.
func check(ctx context.Context, params Params, store tenk.TableStore) error {
	glog.Infof("Checking %s player %s", params.Kind, params.Tag)
	rng := rand.New(rand.NewSource(params.Seed))
	frozen := tenk.Params{Gamma: params.Learn.Gamma}
	var curve report.Curve
	curve.Name = params.Kind
	for turn := params.Step; turn <= params.MaxGames; turn += params.Step {
		if ctx.Err() != nil {
			break
		}

		player, err := agent.NewPlayer(params.Kind, frozen, rng)
		if err != nil {
			return err
		}

		if err := agent.LoadCheckpoint(store, player.Agents(), params.Tag, turn); err != nil {
			return err
		}

		agg, err := report.NewAggregator(params.SampleSize)
		if err != nil {
			return err
		}

		loop := &tenk.Loop{
			Controller: tenk.NewTurnController(player, rng),
			Reporter:   agg,
			Params: tenk.LoopParams{
				MaxTurns:  turn + params.SampleSize,
				StartTurn: turn,
			},
		}

		if _, err := loop.Run(ctx); err != nil {
			return err
		}

		for _, w := range agg.Windows() {
			w.EndTurn = turn
			curve.Windows = append(curve.Windows, w)
		}
	}

	if params.ChartPath != "" {
		return writeChart(params.ChartPath, params.Tag+" (check)", curve)
	}

	return nil
}

func writeChart(path, title string, curves ...report.Curve) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := report.Plot(f, title, curves...); err != nil {
		f.Close()
		return err
	}

	glog.Infof("Wrote chart to %s", path)
	return f.Close()
}
