package vis

import (
	"fmt"
	"math"

	"github.com/chzchzchz/corrvis/dsp"
	"github.com/chzchzchz/corrvis/store"
)

// ChannelAverageAmpPhase returns a copy of ap with every factor adjacent
// channels merged. A trailing partial group is kept. An output channel
// with no unflagged input is NaN and absent from the flagged view.
func ChannelAverageAmpPhase(ap *AmpPhase, factor int, m store.AverageMethod) (*AmpPhase, error) {
	if factor < 1 {
		return nil, fmt.Errorf("%w: %d", ErrBadFactor, factor)
	}
	nin := ap.NChannels()
	nout := (nin + factor - 1) / factor
	out := &AmpPhase{
		Window:      ap.Window,
		WindowIndex: ap.WindowIndex,
		Pol:         ap.Pol,
		ObsDate:     ap.ObsDate,
		UTSeconds:   ap.UTSeconds,
		MJD:         ap.MJD,
		Options:     ap.Options.Clone(),
		Channel:     make([]int, nout),
		Frequency:   make([]float64, nout),

		Baselines:       append([]int(nil), ap.Baselines...),
		Spectra:         make([][]Spectrum, len(ap.Spectra)),
		BaselineExtrema: make([]Extrema, len(ap.Spectra)),
		Extrema:         newExtrema(),
		Syscal:          ap.Syscal,
	}
	group := func(k int) (int, int) {
		lo := k * factor
		return lo, min(lo+factor, nin)
	}
	for k := range out.Channel {
		lo, hi := group(k)
		out.Channel[k] = ap.Channel[lo+(hi-lo-1)/2]
		out.Frequency[k] = dsp.Mean(ap.Frequency[lo:hi])
	}
	degrees := ap.PhaseInDegrees()
	nan := math.NaN()
	for bl := range ap.Spectra {
		out.BaselineExtrema[bl] = newExtrema()
		for b := range ap.Spectra[bl] {
			in := &ap.Spectra[bl][b]
			sp := newSpectrum(in.Bin, nout)
			for k := 0; k < nout; k++ {
				lo, hi := group(k)
				var samps []chanSample
				weight := 0.0
				for ch := lo; ch < hi; ch++ {
					if math.IsNaN(real(in.Raw[ch])) {
						continue
					}
					samps = append(samps, chanSample{ch, ap.Frequency[ch], in.Amplitude[ch], in.Phase[ch], in.Raw[ch]})
					weight += in.Weight[ch]
				}
				sp.Weight[k] = weight
				if len(samps) == 0 {
					sp.Raw[k] = complex(nan, nan)
					sp.Amplitude[k], sp.Phase[k] = nan, nan
					continue
				}
				raws := make([]complex128, len(samps))
				for i, s := range samps {
					raws[i] = s.raw
				}
				raw := dsp.ReduceComplex(m.Statistic, raws)
				amp, phase := averageSamples(samps, m, degrees)
				sp.Raw[k], sp.Amplitude[k], sp.Phase[k] = raw, amp, phase
				sp.Flagged.add(out.Channel[k], out.Frequency[k], amp, phase, raw)
				out.BaselineExtrema[bl].update(amp, phase, raw)
			}
			out.Spectra[bl] = append(out.Spectra[bl], sp)
		}
		out.Extrema.merge(&out.BaselineExtrema[bl])
	}
	return out, nil
}
