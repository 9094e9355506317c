package vis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/chzchzchz/corrvis/dsp"
	"github.com/chzchzchz/corrvis/scan"
	"github.com/chzchzchz/corrvis/store"
)

// VisQuantities is an AmpPhase reduced over its tv channels. The
// per-bin slices are indexed [baseline][bin].
type VisQuantities struct {
	Window         int
	Pol            scan.Pol
	UTSeconds      float64
	MJD            float64
	PhaseInDegrees bool
	Options        *store.Options

	Baselines []int
	Bins      [][]int
	Amplitude [][]float64
	Phase     [][]float64
	// Delay is in ns.
	Delay [][]float64
	// FlaggedBad counts the bins of each baseline left with flagged
	// channels in the tv range.
	FlaggedBad []int

	AmplitudeRange dsp.Range
	PhaseRange     dsp.Range
	DelayRange     dsp.Range

	Closure *ClosurePhase
}

// BaselineIndex finds the baseline joining two antennas, see
// AmpPhase.BaselineIndex.
func (vq *VisQuantities) BaselineIndex(a1, a2 int) (int, bool, bool) {
	return baselineIndex(vq.Baselines, a1, a2)
}

type chanSample struct {
	ch    int
	freq  float64
	amp   float64
	phase float64
	raw   complex128
}

// AverageAmpPhase reduces every baseline and bin of ap over the tv channel
// range held for its band in reg.
func AverageAmpPhase(h *scan.Header, ap *AmpPhase, reg *store.Registry) (*VisQuantities, error) {
	opts := reg.Snapshot(h)
	wo := opts.Window(ap.Window)
	if wo == nil {
		return nil, fmt.Errorf("%w: window %d in options", ErrNotFound, ap.Window)
	}
	degrees := ap.PhaseInDegrees()
	vq := &VisQuantities{
		Window:         ap.Window,
		Pol:            ap.Pol,
		UTSeconds:      ap.UTSeconds,
		MJD:            ap.MJD,
		PhaseInDegrees: degrees,
		Options:        opts,
		Baselines:      append([]int(nil), ap.Baselines...),
		Bins:           make([][]int, ap.NBaselines()),
		Amplitude:      make([][]float64, ap.NBaselines()),
		Phase:          make([][]float64, ap.NBaselines()),
		Delay:          make([][]float64, ap.NBaselines()),
		FlaggedBad:     make([]int, ap.NBaselines()),
		AmplitudeRange: dsp.NewRange(),
		PhaseRange:     dsp.NewRange(),
		DelayRange:     dsp.NewRange(),
	}
	for bl := range ap.Spectra {
		nbins := len(ap.Spectra[bl])
		vq.Bins[bl] = make([]int, nbins)
		vq.Amplitude[bl] = make([]float64, nbins)
		vq.Phase[bl] = make([]float64, nbins)
		vq.Delay[bl] = make([]float64, nbins)
		for b := range ap.Spectra[bl] {
			sp := &ap.Spectra[bl][b]
			vq.Bins[bl][b] = sp.Bin
			samps, flagged := tvSamples(ap, sp, wo, opts.IncludeFlagged)
			if flagged && !opts.IncludeFlagged {
				vq.FlaggedBad[bl]++
			}
			if len(samps) == 0 {
				continue
			}
			amp, phase := averageSamples(samps, wo.Averaging, degrees)
			delay := subbandDelay(samps, wo, degrees)
			vq.Amplitude[bl][b], vq.Phase[bl][b], vq.Delay[bl][b] = amp, phase, delay
			vq.AmplitudeRange.Update(amp)
			vq.PhaseRange.Update(phase)
			vq.DelayRange.Update(delay)
		}
	}
	return vq, nil
}

// tvSamples collects the channels in [MinTvChannel, MaxTvChannel). Without
// includeFlagged only the flagged view is used; flagged reports whether any
// channel in range was dropped.
func tvSamples(ap *AmpPhase, sp *Spectrum, wo *store.WindowOptions, includeFlagged bool) (ret []chanSample, flagged bool) {
	inRange := func(ch int) bool { return ch >= wo.MinTvChannel && ch < wo.MaxTvChannel }
	// Channel numbers, not array positions: a channel-averaged spectrum
	// keeps the original channel of each averaged point.
	total := 0
	for i := range sp.Raw {
		if inRange(ap.Channel[i]) {
			total++
		}
	}
	if includeFlagged {
		ret = make([]chanSample, 0, total)
		for i := range sp.Raw {
			if ch := ap.Channel[i]; inRange(ch) {
				ret = append(ret, chanSample{ch, ap.Frequency[i], sp.Amplitude[i], sp.Phase[i], sp.Raw[i]})
			}
		}
		return ret, false
	}
	v := &sp.Flagged
	ret = make([]chanSample, 0, total)
	for i, ch := range v.Channel {
		if inRange(ch) {
			ret = append(ret, chanSample{ch, v.Frequency[i], v.Amplitude[i], v.Phase[i], v.Raw[i]})
		}
	}
	return ret, len(ret) < total
}

// averageSamples reduces amplitude and phase. Scalar combination averages
// amplitude and phase directly; vector combination averages the complex
// values first.
func averageSamples(samps []chanSample, m store.AverageMethod, degrees bool) (amp, phase float64) {
	if m.Combination == store.Vector {
		raws := make([]complex128, len(samps))
		for i, s := range samps {
			raws[i] = s.raw
		}
		z := dsp.ReduceComplex(m.Statistic, raws)
		return cmplx.Abs(z), dsp.FromRadians(cmplx.Phase(z), degrees)
	}
	amps, phases := make([]float64, len(samps)), make([]float64, len(samps))
	for i, s := range samps {
		amps[i], phases[i] = s.amp, s.phase
	}
	return dsp.Reduce(m.Statistic, amps), dsp.Reduce(m.Statistic, phases)
}

// subbandDelay groups the samples into runs of DelayAveraging channels,
// takes the phase slope between consecutive populated groups and reduces
// the slopes with the window's statistic.
func subbandDelay(samps []chanSample, wo *store.WindowOptions, degrees bool) float64 {
	davg := wo.DelayAveraging
	if davg < 1 {
		davg = 1
	}
	ngroups := (wo.MaxTvChannel-wo.MinTvChannel+davg-1)/davg + 1
	groups := make([][]chanSample, ngroups)
	for _, s := range samps {
		g := (s.ch - wo.MinTvChannel) / davg
		if g < 0 || g >= ngroups {
			continue
		}
		groups[g] = append(groups[g], s)
	}
	phases, freqs := make([]float64, ngroups), make([]float64, ngroups)
	for g, members := range groups {
		if len(members) == 0 {
			continue
		}
		// The representative phase follows the combination axis.
		_, phases[g] = averageSamples(members, wo.Averaging, degrees)
		f := make([]float64, len(members))
		for i, s := range members {
			f[i] = s.freq
		}
		freqs[g] = dsp.Reduce(wo.Averaging.Statistic, f)
	}
	var incs []float64
	for g := 0; g+1 < ngroups; g++ {
		if len(groups[g]) == 0 || len(groups[g+1]) == 0 {
			continue
		}
		dp := dsp.ResolveWrap(phases[g+1]-phases[g], degrees)
		d := dsp.PhaseDelay(dp, degrees, freqs[g+1]-freqs[g])
		if math.IsNaN(d) {
			continue
		}
		incs = append(incs, d)
	}
	return dsp.Reduce(wo.Averaging.Statistic, incs)
}
