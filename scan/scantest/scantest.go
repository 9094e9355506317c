// Package scantest builds synthetic scans for tests and demos.
package scantest

import (
	"fmt"

	"github.com/chzchzchz/corrvis/scan"
)

// VisFunc returns the visibility of one channel of one product.
type VisFunc func(bl, window, bin, ch int, pol scan.Pol, freqMHz float64) complex64

// NewHeader returns a header with nants antennas and the given windows.
// Windows without polarisation products get XX, YY, XY, YX.
func NewHeader(nants int, windows ...scan.Window) *scan.Header {
	h := &scan.Header{ObsDate: "2024-03-01"}
	for i := 1; i <= nants; i++ {
		h.Antennas = append(h.Antennas, scan.Antenna{
			Number: i,
			Label:  fmt.Sprintf("CA%02d", i),
			X:      float64(i) * 30.6,
		})
	}
	for _, w := range windows {
		if len(w.PolProducts) == 0 {
			w.PolProducts = []string{"XX", "YY", "XY", "YX"}
		}
		if w.Sideband == 0 {
			w.Sideband = 1
		}
		h.Windows = append(h.Windows, w)
	}
	h.Sources = []scan.Source{{Name: "1934-638", RA: 5.1461, Dec: -1.1129}}
	return h
}

// Window is a shorthand for a continuum window.
func Window(label int, centreMHz, widthMHz float64, nchan int) scan.Window {
	return scan.Window{
		Label:         label,
		CentreFreqMHz: centreMHz,
		BandwidthMHz:  widthMHz,
		NChannels:     nchan,
		Sideband:      1,
	}
}

// NewCycle builds a cycle carrying every baseline of the header in every
// window. Autocorrelations get both noise-diode bins, cross-correlations
// get bins 1..crossBins.
func NewCycle(h *scan.Header, ut float64, crossBins int, f VisFunc) *scan.Cycle {
	c := &scan.Cycle{
		UTSeconds:    ut,
		BaselineList: scan.EnumerateBaselines(len(h.Antennas)),
	}
	for _, bl := range c.BaselineList {
		nbins := crossBins
		if scan.IsAutocorrelation(bl) {
			nbins = 2
		}
		for _, w := range h.Windows {
			freqs := w.Frequencies()
			npol := len(w.PolProducts)
			for bin := 1; bin <= nbins; bin++ {
				vis := make([]complex64, w.NChannels*npol)
				wt := make([]float32, len(vis))
				for ch := 0; ch < w.NChannels; ch++ {
					for p, name := range w.PolProducts {
						pol, err := scan.ParsePol(name)
						if err != nil {
							panic(err)
						}
						vis[ch*npol+p] = f(bl, w.Label, bin, ch, pol, freqs[ch])
						wt[ch*npol+p] = 1
					}
				}
				c.Baseline = append(c.Baseline, bl)
				c.Window = append(c.Window, w.Label)
				c.Bin = append(c.Bin, bin)
				c.Source = append(c.Source, 0)
				c.Vis = append(c.Vis, vis)
				c.Weight = append(c.Weight, wt)
			}
		}
	}
	c.Cal.Records = make([][]scan.CalRecord, len(h.Antennas))
	for i, a := range h.Antennas {
		c.Cal.Records[i] = make([]scan.CalRecord, len(h.Windows))
		for j, w := range h.Windows {
			c.Cal.Records[i][j] = scan.CalRecord{
				Antenna:    a.Number,
				Window:     w.Label,
				OnlineTsys: [2]float64{40 + float64(i), 45 + float64(i)},
				CalJy:      [2]float64{10, 12},
			}
		}
	}
	return c
}

// Constant returns a VisFunc producing the same value everywhere.
func Constant(v complex64) VisFunc {
	return func(int, int, int, int, scan.Pol, float64) complex64 { return v }
}
