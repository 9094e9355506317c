package dsp

import "math"

// FullTurn is one revolution in the requested phase unit.
func FullTurn(degrees bool) float64 {
	if degrees {
		return 360
	}
	return 2 * math.Pi
}

// ResolveWrap picks whichever of d, d+turn and d-turn has the smallest
// magnitude.
func ResolveWrap(d float64, degrees bool) float64 {
	turn := FullTurn(degrees)
	best := d
	for _, c := range []float64{d + turn, d - turn} {
		if math.Abs(c) < math.Abs(best) {
			best = c
		}
	}
	return best
}

// Wrap folds p into (-turn/2, turn/2].
func Wrap(p float64, degrees bool) float64 {
	turn := FullTurn(degrees)
	p = math.Mod(p, turn)
	if p > turn/2 {
		p -= turn
	} else if p <= -turn/2 {
		p += turn
	}
	return p
}

func ToRadians(p float64, degrees bool) float64 {
	if degrees {
		return p * math.Pi / 180
	}
	return p
}

func FromRadians(p float64, degrees bool) float64 {
	if degrees {
		return p * 180 / math.Pi
	}
	return p
}

// PhaseDelay converts a phase difference across a frequency step in MHz
// into a delay in ns.
func PhaseDelay(dphase float64, degrees bool, dfreqMHz float64) float64 {
	if dfreqMHz == 0 {
		return 0
	}
	return ToRadians(dphase, degrees) / (2 * math.Pi * dfreqMHz) * 1e3
}
