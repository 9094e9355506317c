// Package dsp holds the numerical kernels shared by the visibility engine.
package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/chzchzchz/corrvis/store"
)

// Mean of xs; zero for no samples.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// Median of xs; an even count takes the mean of the two middle values.
// The input is not reordered.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	s := make([]float64, n)
	copy(s, xs)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return 0.5 * (s[n/2-1] + s[n/2])
}

// Reduce applies the statistic to xs.
func Reduce(st store.Statistic, xs []float64) float64 {
	if st == store.Median {
		return Median(xs)
	}
	return Mean(xs)
}

// ReduceComplex applies the statistic to the real and imaginary parts
// independently.
func ReduceComplex(st store.Statistic, zs []complex128) complex128 {
	if len(zs) == 0 {
		return 0
	}
	re, im := make([]float64, len(zs)), make([]float64, len(zs))
	for i, z := range zs {
		re[i], im[i] = real(z), imag(z)
	}
	return complex(Reduce(st, re), Reduce(st, im))
}

// Range tracks the extent of a set of values.
type Range struct {
	Min float64
	Max float64
}

func NewRange() Range { return Range{Min: math.Inf(1), Max: math.Inf(-1)} }

func (r *Range) Update(v float64) {
	if math.IsNaN(v) {
		return
	}
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
}

// Merge widens r to cover o.
func (r *Range) Merge(o Range) {
	r.Update(o.Min)
	r.Update(o.Max)
}

// Valid reports whether any value has been seen.
func (r Range) Valid() bool { return r.Min <= r.Max }
