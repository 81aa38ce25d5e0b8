// Package f64 implements the few reductions over []float64 needed
// to summarize training progress.
package f64

import "math"

// Sum is
//	var sum float64
//	for _, v := range x {
//		sum += v
//	}
func Sum(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum
}

// Mean is Sum(x) / len(x), or 0 if x is empty.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return Sum(x) / float64(len(x))
}

// Max is the largest element of x, or -Inf if x is empty.
func Max(x []float64) float64 {
	max := math.Inf(-1)
	for _, v := range x {
		if v > max {
			max = v
		}
	}
	return max
}

// CountIf is the number of elements of x for which f is true.
func CountIf(x []float64, f func(float64) bool) int {
	n := 0
	for _, v := range x {
		if f(v) {
			n++
		}
	}
	return n
}
