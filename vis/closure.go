package vis

import (
	"fmt"
	"sort"

	"github.com/chzchzchz/corrvis/dsp"
	"github.com/chzchzchz/corrvis/scan"
)

// ClosurePhase holds the closure quantities of every antenna triangle that
// contains the reference antenna. Phase and Delay are indexed
// [triangle][bin].
type ClosurePhase struct {
	ReferenceAntenna int
	Triangles        [][3]int
	Phase            [][]float64
	Delay            [][]float64
	PhaseRange       dsp.Range
}

// ComputeClosurePhase fills vq.Closure. Triangles without the reference
// antenna are linear combinations of those with it, so only the latter are
// formed.
func ComputeClosurePhase(h *scan.Header, vq *VisQuantities, ref int) error {
	if _, ok := h.AntennaIndex(ref); !ok {
		return fmt.Errorf("%w: reference antenna %d", ErrNotFound, ref)
	}
	var others []int
	for _, a := range h.Antennas {
		if a.Number != ref {
			others = append(others, a.Number)
		}
	}
	sort.Ints(others)

	cp := &ClosurePhase{ReferenceAntenna: ref, PhaseRange: dsp.NewRange()}
	for i := 0; i < len(others); i++ {
		for j := i + 1; j < len(others); j++ {
			tri := [3]int{ref, others[i], others[j]}
			phases, delays := vq.closeTriangle(tri)
			cp.Triangles = append(cp.Triangles, tri)
			cp.Phase = append(cp.Phase, phases)
			cp.Delay = append(cp.Delay, delays)
			for _, p := range phases {
				cp.PhaseRange.Update(p)
			}
		}
	}
	vq.Closure = cp
	return nil
}

// closeTriangle sums a->b, b->c and c->a for every bin present on all three
// baselines. A leg stored in the opposite antenna order contributes with
// its sign flipped.
func (vq *VisQuantities) closeTriangle(tri [3]int) (phases, delays []float64) {
	type leg struct {
		idx  int
		sign float64
	}
	var legs [3]leg
	nbins := -1
	for k := 0; k < 3; k++ {
		a, b := tri[k], tri[(k+1)%3]
		idx, flipped, ok := vq.BaselineIndex(a, b)
		if !ok {
			return nil, nil
		}
		legs[k] = leg{idx, 1}
		if flipped {
			legs[k].sign = -1
		}
		if n := len(vq.Phase[idx]); nbins < 0 || n < nbins {
			nbins = n
		}
	}
	phases, delays = make([]float64, nbins), make([]float64, nbins)
	for bin := 0; bin < nbins; bin++ {
		for _, l := range legs {
			phases[bin] += l.sign * vq.Phase[l.idx][bin]
			delays[bin] += l.sign * vq.Delay[l.idx][bin]
		}
		phases[bin] = dsp.Wrap(phases[bin], vq.PhaseInDegrees)
	}
	return phases, delays
}
