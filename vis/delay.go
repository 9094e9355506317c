package vis

import (
	"github.com/chzchzchz/corrvis/dsp"
)

// DelaySet holds the adjacent-channel delays of one bin, in ns.
type DelaySet struct {
	Delays []float64
	Mean   float64
	Median float64
}

// ComputeDelays measures the phase slope between every pair of adjacent
// unflagged channels with channel numbers in [minChan, maxChan). The
// result is indexed [baseline][bin].
func ComputeDelays(ap *AmpPhase, phaseInDegrees bool, minChan, maxChan int) [][]DelaySet {
	ret := make([][]DelaySet, len(ap.Spectra))
	for bl := range ap.Spectra {
		ret[bl] = make([]DelaySet, len(ap.Spectra[bl]))
		for b := range ap.Spectra[bl] {
			v := &ap.Spectra[bl][b].Flagged
			var ds DelaySet
			for i := 0; i+1 < v.Len(); i++ {
				if v.Channel[i] < minChan || v.Channel[i+1] >= maxChan {
					continue
				}
				dp := dsp.ResolveWrap(v.Phase[i+1]-v.Phase[i], phaseInDegrees)
				ds.Delays = append(ds.Delays, dsp.PhaseDelay(dp, phaseInDegrees, v.Frequency[i+1]-v.Frequency[i]))
			}
			ds.Mean, ds.Median = dsp.Mean(ds.Delays), dsp.Median(ds.Delays)
			ret[bl][b] = ds
		}
	}
	return ret
}

const lagPadding = 4

// ComputeLagDelays finds the delay of each bin from the peak of its lag
// spectrum over the tv channels. The result is indexed [baseline][bin].
func ComputeLagDelays(ap *AmpPhase) [][]float64 {
	minTv, maxTv := 0, ap.NChannels()
	if ap.Options != nil {
		if wo := ap.Options.Window(ap.Window); wo != nil {
			minTv, maxTv = wo.MinTvChannel, wo.MaxTvChannel
		}
	}
	width := ap.ChannelWidth()
	ret := make([][]float64, len(ap.Spectra))
	for bl := range ap.Spectra {
		ret[bl] = make([]float64, len(ap.Spectra[bl]))
		for b := range ap.Spectra[bl] {
			raw := ap.Spectra[bl][b].Raw
			if minTv >= maxTv || maxTv > len(raw) {
				continue
			}
			ret[bl][b] = dsp.NewLagSpectrum(raw[minTv:maxTv], width, lagPadding).Delay()
		}
	}
	return ret
}
