package calib

import (
	"fmt"
	"log"
	"math"

	"github.com/chzchzchz/corrvis/dsp"
	"github.com/chzchzchz/corrvis/radio"
	"github.com/chzchzchz/corrvis/scan"
	"github.com/chzchzchz/corrvis/store"
	"github.com/chzchzchz/corrvis/vis"
)

// ExcludedAmplitude marks an antenna that left the source or gave no
// estimate.
const ExcludedAmplitude = -1.0

// NoiseDiode is the fitted noise-diode amplitude of every antenna in one
// window. Amplitude is indexed [antenna index][feed] in Jy. Per-baseline
// amplitudes over the tv channels are reduced with the window's averaging
// statistic rather than summed, so they are per-channel values.
type NoiseDiode struct {
	Window    int
	Model     FluxModel
	FluxJy    float64
	Antennas  []int
	Amplitude [][2]float64
	// Count is the number of triplet contributions behind each amplitude.
	Count [][2]int
}

// AntennaAmplitude returns the fitted amplitude of antenna number ant.
func (nd *NoiseDiode) AntennaAmplitude(ant, feed int) (float64, bool) {
	for i, a := range nd.Antennas {
		if a == ant {
			v := nd.Amplitude[i][feed]
			return v, v != ExcludedAmplitude
		}
	}
	return 0, false
}

type ndCycle struct {
	feed int
	ap   *vis.AmpPhase
}

// ComputeNoiseDiodeAmplitudes fits the noise-diode amplitude of every
// antenna in a window from cycles on a calibrator of known flux density.
// For each antenna a and pair of other antennas b, c the gain
// g_a = sqrt(|V_ab||V_ac|/|V_bc|) comes from the closure amplitude, and
// S*(on-off)/g_a from the antenna's noise-diode bins is one contribution
// to its amplitude. Antennas off source in any cycle are excluded.
func ComputeNoiseDiodeAmplitudes(models []FluxModel, h *scan.Header, cycles []*scan.Cycle, window int, reg *store.Registry) (*NoiseDiode, error) {
	w, ok := h.Window(window)
	if !ok {
		return nil, fmt.Errorf("%w: window %d", vis.ErrNotFound, window)
	}
	model, err := BestModel(models, radio.ChannelRange(w.Frequencies()))
	if err != nil {
		return nil, err
	}
	wo := reg.Snapshot(h).Window(window)
	if wo == nil {
		return nil, fmt.Errorf("%w: window %d in options", vis.ErrNotFound, window)
	}
	if wo.MinTvChannel >= wo.MaxTvChannel {
		return nil, fmt.Errorf("%w: [%d,%d)", ErrBadChannelRange, wo.MinTvChannel, wo.MaxTvChannel)
	}

	nd := &NoiseDiode{Window: window, Model: *model}
	if freqs := w.Frequencies(); len(freqs) > 0 {
		nd.FluxJy = model.FluxDensity(freqs[0])
	}
	antIdx := make(map[int]int, len(h.Antennas))
	for i, a := range h.Antennas {
		nd.Antennas = append(nd.Antennas, a.Number)
		antIdx[a.Number] = i
	}

	// Extract every cycle first so the off-source set is complete before
	// any triplet is formed.
	excluded := make(map[int]bool)
	var spectra []ndCycle
	for _, c := range cycles {
		for feed, pol := range []scan.Pol{scan.PolXX, scan.PolYY} {
			ap, err := vis.ComputeAmpPhase(h, c, window, pol, reg)
			if err != nil {
				log.Printf("noise diode: skipping cycle at %.1fs %v: %v", c.UTSeconds, pol, err)
				continue
			}
			for _, sa := range ap.Syscal.Antennas {
				if sa.Flagging&scan.FlagOffSource != 0 {
					excluded[sa.Antenna] = true
				}
			}
			spectra = append(spectra, ndCycle{feed, ap})
		}
	}

	var onsrc []int
	for _, a := range nd.Antennas {
		if !excluded[a] {
			onsrc = append(onsrc, a)
		}
	}
	sums := make([][2][]float64, len(nd.Antennas))
	for _, sc := range spectra {
		for _, a := range onsrc {
			diff, ok := autoDiff(sc.ap, a, wo)
			if !ok {
				continue
			}
			for i, b := range onsrc {
				for _, c := range onsrc[i+1:] {
					if b == a || c == a {
						continue
					}
					g, ok := closureGain(sc.ap, a, b, c, wo)
					if !ok {
						continue
					}
					ai := antIdx[a]
					sums[ai][sc.feed] = append(sums[ai][sc.feed], nd.FluxJy*diff/g)
				}
			}
		}
	}

	nd.Amplitude = make([][2]float64, len(nd.Antennas))
	nd.Count = make([][2]int, len(nd.Antennas))
	for i := range nd.Antennas {
		for feed := range nd.Amplitude[i] {
			contribs := sums[i][feed]
			nd.Count[i][feed] = len(contribs)
			if len(contribs) == 0 {
				nd.Amplitude[i][feed] = ExcludedAmplitude
				continue
			}
			nd.Amplitude[i][feed] = dsp.Mean(contribs)
		}
	}
	return nd, nil
}

// tvReduce applies the window statistic to f over the unflagged tv
// channels of a spectrum.
func tvReduce(sp *vis.Spectrum, wo *store.WindowOptions, f func(i int) float64) (float64, bool) {
	var xs []float64
	v := &sp.Flagged
	for i, ch := range v.Channel {
		if ch >= wo.MinTvChannel && ch < wo.MaxTvChannel {
			xs = append(xs, f(i))
		}
	}
	if len(xs) == 0 {
		return 0, false
	}
	return dsp.Reduce(wo.Averaging.Statistic, xs), true
}

// autoDiff is the noise-diode step in the antenna's autocorrelation.
func autoDiff(ap *vis.AmpPhase, ant int, wo *store.WindowOptions) (float64, bool) {
	bl, _, ok := ap.BaselineIndex(ant, ant)
	if !ok {
		return 0, false
	}
	on, off := ap.Spectrum(bl, scan.BinNoiseDiodeOn), ap.Spectrum(bl, scan.BinNoiseDiodeOff)
	if on == nil || off == nil {
		return 0, false
	}
	pon, ok1 := tvReduce(on, wo, func(i int) float64 { return real(on.Flagged.Raw[i]) })
	poff, ok2 := tvReduce(off, wo, func(i int) float64 { return real(off.Flagged.Raw[i]) })
	return pon - poff, ok1 && ok2
}

// crossAmp is a baseline's tv amplitude averaged over its bins.
func crossAmp(ap *vis.AmpPhase, a1, a2 int, wo *store.WindowOptions) (float64, bool) {
	bl, _, ok := ap.BaselineIndex(a1, a2)
	if !ok {
		return 0, false
	}
	var amps []float64
	for b := range ap.Spectra[bl] {
		sp := &ap.Spectra[bl][b]
		if amp, ok := tvReduce(sp, wo, func(i int) float64 { return sp.Flagged.Amplitude[i] }); ok {
			amps = append(amps, amp)
		}
	}
	if len(amps) == 0 {
		return 0, false
	}
	return dsp.Mean(amps), true
}

func closureGain(ap *vis.AmpPhase, a, b, c int, wo *store.WindowOptions) (float64, bool) {
	vab, ok1 := crossAmp(ap, a, b, wo)
	vac, ok2 := crossAmp(ap, a, c, wo)
	vbc, ok3 := crossAmp(ap, b, c, wo)
	if !ok1 || !ok2 || !ok3 || vbc <= 0 {
		return 0, false
	}
	g := vab * vac / vbc
	if g <= 0 {
		return 0, false
	}
	return math.Sqrt(g), true
}
