package main

import (
	"fmt"
	"io"
	"math"
	"math/cmplx"

	"github.com/chzchzchz/corrvis/scan"
)

const synthObsDate = "2024-03-01"

var synthPols = []string{"XX", "YY", "XY", "YX"}

func synth() {
	w, closer, err := openOutput(outPath)
	if err != nil {
		panic(err)
	}
	defer closer()
	if err := writeSynth(w, synthHeader(nants, 2100, 5500)); err != nil {
		panic(err)
	}
}

// synthHeader lays nants antennas along an east-west line with one
// 2049-channel window centred on each of centres.
func synthHeader(nants int, centres ...float64) *scan.Header {
	h := &scan.Header{
		ObsDate: synthObsDate,
		Sources: []scan.Source{{Name: "1934-638", RA: 5.1461, Dec: -1.1129}},
	}
	for i := 1; i <= nants; i++ {
		h.Antennas = append(h.Antennas, scan.Antenna{Number: i, Label: fmt.Sprintf("CA%02d", i), X: float64(i) * 30.6})
	}
	for i, c := range centres {
		h.Windows = append(h.Windows, scan.Window{
			Label:         i + 1,
			CentreFreqMHz: c,
			BandwidthMHz:  2048,
			NChannels:     2049,
			Sideband:      1,
			PolProducts:   synthPols,
		})
	}
	return h
}

// synthVis is a point source seen through antenna-dependent delays, with
// a noise diode adding 10% to each autocorrelation.
func synthVis(bl, bin int, pol scan.Pol, freqMHz float64) complex64 {
	a1, a2 := scan.BaselineAntennas(bl)
	if a1 == a2 {
		switch {
		case !pol.Parallel():
			return 0
		case bin == scan.BinNoiseDiodeOn:
			return 1.1
		}
		return 1
	}
	tau := delayNs * float64(a2-a1)
	return complex64(0.05 * cmplx.Exp(complex(0, 2*math.Pi*freqMHz*tau/1e3)))
}

// synthCycle carries every baseline in every window: both noise-diode bins
// on the autocorrelations, one bin on the crosses.
func synthCycle(h *scan.Header, ut float64) (*scan.Cycle, error) {
	c := &scan.Cycle{UTSeconds: ut, BaselineList: scan.EnumerateBaselines(len(h.Antennas))}
	for _, bl := range c.BaselineList {
		nbins := 1
		if scan.IsAutocorrelation(bl) {
			nbins = 2
		}
		for _, w := range h.Windows {
			freqs := w.Frequencies()
			pols := make([]scan.Pol, len(w.PolProducts))
			for i, name := range w.PolProducts {
				p, err := scan.ParsePol(name)
				if err != nil {
					return nil, err
				}
				pols[i] = p
			}
			for bin := 1; bin <= nbins; bin++ {
				vis := make([]complex64, 0, w.NChannels*len(pols))
				for ch := 0; ch < w.NChannels; ch++ {
					for _, p := range pols {
						vis = append(vis, synthVis(bl, bin, p, freqs[ch]))
					}
				}
				c.Baseline = append(c.Baseline, bl)
				c.Window = append(c.Window, w.Label)
				c.Bin = append(c.Bin, bin)
				c.Source = append(c.Source, 0)
				c.Vis = append(c.Vis, vis)
				// Reader fills unit weights.
				c.Weight = append(c.Weight, nil)
			}
		}
	}
	c.Cal.Records = make([][]scan.CalRecord, len(h.Antennas))
	for i, a := range h.Antennas {
		for _, w := range h.Windows {
			c.Cal.Records[i] = append(c.Cal.Records[i], scan.CalRecord{
				Antenna:    a.Number,
				Window:     w.Label,
				OnlineTsys: [2]float64{40 + float64(i), 45 + float64(i)},
				CalJy:      [2]float64{10, 12},
			})
		}
	}
	return c, nil
}

func writeSynth(w io.Writer, h *scan.Header) error {
	sw := scan.NewWriter(w)
	if err := sw.WriteHeader(h); err != nil {
		return err
	}
	for i := 0; i < ncycles; i++ {
		c, err := synthCycle(h, float64(i)*10)
		if err != nil {
			return err
		}
		if err := sw.WriteCycle(c); err != nil {
			return err
		}
	}
	return nil
}
