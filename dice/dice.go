// Package dice implements the scoring and legality rules of TenK.
//
// A turn consists of a series of rolls. After each roll the player must set
// aside a non-empty scoring selection of the dice, and may then either bank
// the running score or roll the remaining dice again.
package dice

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NumDice is the number of dice rolled at the start of a turn,
// and again after every die has been set aside.
const NumDice = 6

const numSides = 6

// ErrIllegalMove is returned when a selection of dice does not score.
var ErrIllegalMove = errors.New("illegal move")

// Rand is the source of randomness used to roll dice.
type Rand interface {
	// Intn returns a uniform random number in [0, n).
	Intn(n int) int
}

// Roll is the ascending sequence of faces showing after a roll.
type Roll []int

// NewRandomRoll rolls n dice.
func NewRandomRoll(rng Rand, n int) Roll {
	result := make(Roll, n)
	for i := range result {
		result[i] = rng.Intn(numSides) + 1
	}

	sort.Ints(result)
	return result
}

// String implements fmt.Stringer. Faces are written without separators,
// e.g. "113456".
func (r Roll) String() string {
	var sb strings.Builder
	for _, face := range r {
		sb.WriteString(strconv.Itoa(face))
	}

	return sb.String()
}

func validFace(face int) bool {
	return face >= 1 && face <= numSides
}

// Counts returns the number of dice showing each face, indexed by face.
// Faces outside 1..6 are not counted.
func (r Roll) Counts() [numSides + 1]int {
	var counts [numSides + 1]int
	for _, face := range r {
		if validFace(face) {
			counts[face]++
		}
	}

	return counts
}

// Split partitions roll into the dice that remain on the table and the
// dice selected by the given indices.
func Split(roll Roll, keep []int) (remaining, kept Roll, err error) {
	selected := make([]bool, len(roll))
	for _, i := range keep {
		if i < 0 || i >= len(roll) {
			return nil, nil, errors.Wrapf(ErrIllegalMove, "index %d out of range for %d dice", i, len(roll))
		}

		if selected[i] {
			return nil, nil, errors.Wrapf(ErrIllegalMove, "die %d selected twice", i)
		}

		selected[i] = true
	}

	remaining = make(Roll, 0, len(roll)-len(keep))
	kept = make(Roll, 0, len(keep))
	for i, face := range roll {
		if selected[i] {
			kept = append(kept, face)
		} else {
			remaining = append(remaining, face)
		}
	}

	return remaining, kept, nil
}

// Score returns the points for setting aside the dice at the given indices,
// along with the dice that remain to be rolled.
func Score(roll Roll, keep []int) (int, Roll, error) {
	if len(keep) == 0 {
		return 0, nil, errors.Wrap(ErrIllegalMove, "no dice kept")
	}

	remaining, kept, err := Split(roll, keep)
	if err != nil {
		return 0, nil, err
	}

	for _, face := range kept {
		if !validFace(face) {
			return 0, nil, errors.Wrapf(ErrIllegalMove, "invalid face %d", face)
		}
	}

	counts := kept.Counts()
	points := 0
	for face := 1; face <= numSides; face++ {
		c := counts[face]
		if c == 0 {
			continue
		}

		switch face {
		case 1:
			if c < 3 {
				points += c * 100
			} else {
				points += (c - 2) * 1000
			}
		case 5:
			if c < 3 {
				points += c * 50
			} else {
				points += (c - 2) * 500
			}
		default:
			if c < 3 {
				return 0, nil, errors.Wrapf(ErrIllegalMove, "%d x %d does not score", c, face)
			}

			points += (c - 2) * 100 * face
		}
	}

	return points, remaining, nil
}

// HasValidMove reports whether any selection of the roll scores.
// A roll without one is a bust. Faces outside 1..6 never score.
func HasValidMove(roll Roll) bool {
	counts := roll.Counts()
	if counts[1] > 0 || counts[5] > 0 {
		return true
	}

	for face := 2; face <= numSides; face++ {
		if counts[face] >= 3 {
			return true
		}
	}

	return false
}
