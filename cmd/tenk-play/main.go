package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/timpalpant/go-tenk"
	"github.com/timpalpant/go-tenk/agent"
	"github.com/timpalpant/go-tenk/dice"
	"github.com/timpalpant/go-tenk/ldbstore"
	"github.com/timpalpant/go-tenk/rdbstore"
)

type Params struct {
	Watch bool
	Kind  string
	Tag   string
	Load  int
	Games int
	Delay time.Duration
	Seed  int64
	Color bool

	Store string
	Path  string
}

func main() {
	var params Params
	flag.BoolVar(&params.Watch, "watch", false, "Watch a trained player instead of playing")
	flag.StringVar(&params.Kind, "agent", agent.KindSplit, "Kind of player to watch: combined or split")
	flag.StringVar(&params.Tag, "tag", "v1_005_06_01", "Tag of the training run to watch")
	flag.IntVar(&params.Load, "load", 10000000, "Checkpoint to watch, in number of turns trained")
	flag.IntVar(&params.Games, "games", 3, "Number of turns to play")
	flag.DurationVar(&params.Delay, "delay", time.Second, "Pause between events when watching")
	flag.Int64Var(&params.Seed, "seed", 0, "Random seed (default: time)")
	flag.BoolVar(&params.Color, "color", true, "Colorize output")
	flag.StringVar(&params.Store, "store", "dir", "Table store: dir, leveldb or rocksdb")
	flag.StringVar(&params.Path, "path", "tables", "Path of the table store")
	flag.Parse()

	if params.Seed == 0 {
		params.Seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(params.Seed))
	out := &printer{w: os.Stdout, au: aurora.NewAurora(params.Color)}

	var player tenk.Player
	if params.Watch {
		p, err := loadPlayer(params, rng)
		if err != nil {
			glog.Errorf("Unable to load player: %v", err)
			os.Exit(1)
		}

		player = p
		out.delay = params.Delay
	} else {
		player = &human{in: bufio.NewReader(os.Stdin), out: out}
	}

	tc := tenk.NewTurnController(player, rng)
	tc.SetObserver(out)
	total := 0
	for i := 1; i <= params.Games; i++ {
		out.printf("Turn %d\n", i)
		result, err := tc.PlayTurn()
		if err != nil {
			glog.Errorf("Turn %d failed: %v", i, err)
			os.Exit(1)
		}

		total += result.Score
		out.printf("Total score: %d\n\n", out.au.Bold(total))
	}
}

func loadPlayer(params Params, rng tenk.Rand) (agent.Player, error) {
	var store tenk.TableStore
	var err error
	switch params.Store {
	case "dir":
		store, err = tenk.NewDirStore(params.Path)
	case "leveldb":
		store, err = ldbstore.New(params.Path, &opt.Options{ErrorIfMissing: true, ReadOnly: true})
	case "rocksdb":
		rparams := rdbstore.DefaultParams(params.Path)
		rparams.Options.SetCreateIfMissing(false)
		store, err = rdbstore.New(rparams)
	default:
		err = errors.Errorf("unknown table store: %q", params.Store)
	}
	if err != nil {
		return nil, err
	}
	defer store.Close()

	// Watched players always take their best known action.
	learn := tenk.DefaultParams()
	learn.Randomness = 0
	player, err := agent.NewPlayer(params.Kind, learn, rng)
	if err != nil {
		return nil, err
	}

	if err := agent.LoadCheckpoint(store, player.Agents(), params.Tag, params.Load); err != nil {
		return nil, err
	}

	return player, nil
}

// printer shows the events of each turn, pausing after each one.
type printer struct {
	w     io.Writer
	au    aurora.Aurora
	delay time.Duration
}

func (p *printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) pause() {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
}

// OnRoll implements tenk.Observer.
func (p *printer) OnRoll(roll dice.Roll) {
	p.printf("...rolled %s\n", p.au.Cyan(roll))
	if !dice.HasValidMove(roll) {
		p.printf("......%s\n", p.au.Red("nothing scores"))
	}
	p.pause()
}

// OnKeep implements tenk.Observer.
func (p *printer) OnKeep(kept dice.Roll, points, score int) {
	p.printf("...kept %s for %d, score this turn = %d\n",
		p.au.Green(kept), points, p.au.Yellow(score))
	p.pause()
}

// OnTurnEnd implements tenk.Observer.
func (p *printer) OnTurnEnd(result tenk.TurnResult) {
	if result.Outcome == tenk.Busted {
		p.printf("...%s after %d rolls\n", p.au.Red("busted"), result.Rolls)
	} else {
		p.printf("...banked %d after %d rolls\n", p.au.Green(result.Score), result.Rolls)
	}
	p.pause()
}

// human is a tenk.Player that asks a person what to do.
type human struct {
	in  *bufio.Reader
	out *printer
}

// BeginTurn implements tenk.Player.
func (h *human) BeginTurn() {}

// OfferRoll implements tenk.Player.
func (h *human) OfferRoll(roll dice.Roll) ([]int, error) {
	for {
		h.out.printf("...enter dice to keep: ")
		line, err := readLine(h.in)
		if err != nil {
			return nil, errors.Wrap(err, "read dice")
		}

		keep, err := parseKeep(roll, line)
		if err == nil {
			if _, _, err = dice.Score(roll, keep); err == nil {
				return keep, nil
			}
		}

		h.out.printf("......can't keep %q: %v\n", strings.TrimSpace(line), err)
	}
}

var yesNoResponses = map[string]bool{
	"Y":   true,
	"N":   false,
	"1":   true,
	"0":   false,
	"YES": true,
	"NO":  false,
}

// OfferContinue implements tenk.Player.
func (h *human) OfferContinue(score int) (bool, error) {
	for {
		h.out.printf("...continue rolling (Y/N)? ")
		line, err := readLine(h.in)
		if err != nil {
			return false, errors.Wrap(err, "read answer")
		}

		answer := strings.ToUpper(strings.TrimSpace(line))
		continueRolling, ok := yesNoResponses[answer]
		if !ok {
			h.out.printf("......don't understand '%s'\n", answer)
			continue
		}

		return !continueRolling, nil
	}
}

// EndTurn implements tenk.Player.
func (h *human) EndTurn(finalScore int) error {
	return nil
}

// readLine reads the next line of input. The last line may lack a newline.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF && line != "" {
		return line, nil
	}

	return line, err
}

// parseKeep maps the faces typed by a person, e.g. "1 5 5", to
// the indices of matching dice of the roll.
func parseKeep(roll dice.Roll, s string) ([]int, error) {
	used := make([]bool, len(roll))
	var keep []int
	for _, c := range s {
		if c == ' ' || c == ',' || c == '\n' || c == '\r' || c == '\t' {
			continue
		}

		if c < '1' || c > '6' {
			return nil, errors.Errorf("not a valid die: '%c'", c)
		}

		face := int(c - '0')
		found := false
		for i, f := range roll {
			if f == face && !used[i] {
				used[i] = true
				keep = append(keep, i)
				found = true
				break
			}
		}

		if !found {
			return nil, errors.Errorf("no %d left to keep", face)
		}
	}

	if len(keep) == 0 {
		return nil, errors.New("no dice entered")
	}

	return keep, nil
}
