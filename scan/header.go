// Package scan holds the decoded form of a correlator observation: one
// Header per scan and a sequence of Cycles, as produced by the record
// decoder.
package scan

import (
	"github.com/chzchzchz/corrvis/radio"
)

// Window is one frequency sub-band (IF) of the receiver chain.
type Window struct {
	// Label is the stable, 1-indexed window number.
	Label         int      `json:"label"`
	CentreFreqMHz float64  `json:"centre_freq_mhz"`
	BandwidthMHz  float64  `json:"bandwidth_mhz"`
	NChannels     int      `json:"nchannels"`
	Sideband      int      `json:"sideband"`
	PolProducts   []string `json:"pol_products"`
}

func (w Window) Band() radio.FreqBand {
	return radio.FreqBand{Center: w.CentreFreqMHz, Width: w.BandwidthMHz}
}

// ChannelWidthMHz is the spacing between adjacent channels.
func (w Window) ChannelWidthMHz() float64 { return radio.ChannelWidth(w.Band(), w.NChannels) }

// Frequencies returns the sky frequency of every channel in MHz.
func (w Window) Frequencies() []float64 {
	return radio.ChannelFrequencies(w.Band(), w.NChannels, w.Sideband)
}

// PolIndex returns the position of pol among the window's products.
func (w Window) PolIndex(pol Pol) (int, bool) {
	for i, p := range w.PolProducts {
		if p == pol.String() {
			return i, true
		}
	}
	return -1, false
}

type Antenna struct {
	Number int     `json:"number"`
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
}

type Source struct {
	Name string  `json:"name"`
	RA   float64 `json:"ra"`
	Dec  float64 `json:"dec"`
}

// Header is the per-scan metadata.
type Header struct {
	// ObsDate is the base calendar date, YYYY-MM-DD.
	ObsDate  string    `json:"obsdate"`
	Windows  []Window  `json:"windows"`
	Antennas []Antenna `json:"antennas"`
	Sources  []Source  `json:"sources"`
}

// WindowIndex returns the array position of the window with the given label.
func (h *Header) WindowIndex(label int) (int, bool) {
	for i, w := range h.Windows {
		if w.Label == label {
			return i, true
		}
	}
	return -1, false
}

// Window returns the window with the given label.
func (h *Header) Window(label int) (*Window, bool) {
	if idx, ok := h.WindowIndex(label); ok {
		return &h.Windows[idx], true
	}
	return nil, false
}

// AntennaIndex returns the array position of the antenna numbered n.
func (h *Header) AntennaIndex(n int) (int, bool) {
	for i, a := range h.Antennas {
		if a.Number == n {
			return i, true
		}
	}
	return -1, false
}

func (h *Header) SourceName(idx int) string {
	if idx < 0 || idx >= len(h.Sources) {
		return ""
	}
	return h.Sources[idx].Name
}
