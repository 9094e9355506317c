package store

import (
	"fmt"

	"github.com/chzchzchz/corrvis/radio"
	"github.com/chzchzchz/corrvis/scan"
)

type Statistic int

const (
	Mean Statistic = iota
	Median
)

func (s Statistic) String() string {
	if s == Median {
		return "median"
	}
	return "mean"
}

type Combination int

const (
	Scalar Combination = iota
	Vector
)

func (c Combination) String() string {
	if c == Vector {
		return "vector"
	}
	return "scalar"
}

// AverageMethod selects how channels are reduced to a single value.
type AverageMethod struct {
	Statistic   Statistic   `yaml:"statistic" json:"statistic"`
	Combination Combination `yaml:"combination" json:"combination"`
}

func (m AverageMethod) String() string { return m.Statistic.String() + "/" + m.Combination.String() }

// ParseAverageMethod accepts "mean", "median", "vector", "scalar" and
// combinations such as "median/vector".
func ParseAverageMethod(s string) (AverageMethod, error) {
	var m AverageMethod
	for _, tok := range splitMethod(s) {
		switch tok {
		case "mean":
			m.Statistic = Mean
		case "median":
			m.Statistic = Median
		case "scalar":
			m.Combination = Scalar
		case "vector":
			m.Combination = Vector
		case "":
		default:
			return m, fmt.Errorf("unknown averaging method %q", tok)
		}
	}
	return m, nil
}

func splitMethod(s string) (ret []string) {
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '/' || s[i] == '|' || s[i] == ',' {
			ret = append(ret, s[start:i])
			start = i + 1
		}
	}
	return ret
}

// WindowOptions is the configuration of one window of a band setup.
type WindowOptions struct {
	Label     int            `yaml:"label"`
	Band      radio.FreqBand `yaml:"band"`
	NChannels int            `yaml:"nchannels"`

	// Tv channels are the half-open range [MinTvChannel, MaxTvChannel).
	MinTvChannel   int           `yaml:"min_tvchannel"`
	MaxTvChannel   int           `yaml:"max_tvchannel"`
	DelayAveraging int           `yaml:"delay_averaging"`
	Averaging      AverageMethod `yaml:"averaging"`
	Modifiers      []Modifier    `yaml:"modifiers"`
}

// Matches reports whether w describes the same band as the header window.
func (wo *WindowOptions) Matches(w *scan.Window) bool {
	return wo.Band.Same(w.Band()) && wo.NChannels == w.NChannels
}

// Options is the processing configuration of one band setup. Windows are
// kept in the order of the header they were created from.
type Options struct {
	PhaseInDegrees    bool `yaml:"phase_in_degrees"`
	IncludeFlagged    bool `yaml:"include_flagged"`
	ReverseOnlineTsys bool `yaml:"reverse_online_tsys"`
	ApplyComputedTsys bool `yaml:"apply_computed_tsys"`
	ReferenceAntenna  int  `yaml:"reference_antenna"`

	Windows []WindowOptions `yaml:"windows"`
}

// NewOptions seeds options for every window of the header.
func NewOptions(h *scan.Header) *Options {
	o := &Options{ReferenceAntenna: 1}
	for _, w := range h.Windows {
		minTv, maxTv := DefaultTvChannels(w.NChannels, w.ChannelWidthMHz(), w.CentreFreqMHz)
		o.Windows = append(o.Windows, WindowOptions{
			Label:          w.Label,
			Band:           w.Band(),
			NChannels:      w.NChannels,
			MinTvChannel:   minTv,
			MaxTvChannel:   maxTv,
			DelayAveraging: 1,
			Averaging:      AverageMethod{Mean, Vector},
		})
	}
	return o
}

// Window returns the options for the window with the given label.
func (o *Options) Window(label int) *WindowOptions {
	for i := range o.Windows {
		if o.Windows[i].Label == label {
			return &o.Windows[i]
		}
	}
	return nil
}

// MatchesHeader compares the window triples in order.
func (o *Options) MatchesHeader(h *scan.Header) bool {
	if len(o.Windows) != len(h.Windows) {
		return false
	}
	for i := range h.Windows {
		if !o.Windows[i].Matches(&h.Windows[i]) {
			return false
		}
	}
	return true
}

// Clone deep-copies the options including all modifiers.
func (o *Options) Clone() *Options {
	if o == nil {
		return nil
	}
	out := *o
	out.Windows = make([]WindowOptions, len(o.Windows))
	for i, w := range o.Windows {
		out.Windows[i] = w
		out.Windows[i].Modifiers = make([]Modifier, len(w.Modifiers))
		for j, m := range w.Modifiers {
			out.Windows[i].Modifiers[j] = m.Clone()
		}
	}
	return &out
}

// Equal deep-compares two options, recursing into the modifiers.
func Equal(a, b *Options) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.PhaseInDegrees != b.PhaseInDegrees ||
		a.IncludeFlagged != b.IncludeFlagged ||
		a.ReverseOnlineTsys != b.ReverseOnlineTsys ||
		a.ApplyComputedTsys != b.ApplyComputedTsys ||
		a.ReferenceAntenna != b.ReferenceAntenna ||
		len(a.Windows) != len(b.Windows) {
		return false
	}
	for i := range a.Windows {
		wa, wb := &a.Windows[i], &b.Windows[i]
		if wa.Label != wb.Label ||
			!wa.Band.Same(wb.Band) ||
			wa.NChannels != wb.NChannels ||
			wa.MinTvChannel != wb.MinTvChannel ||
			wa.MaxTvChannel != wb.MaxTvChannel ||
			wa.DelayAveraging != wb.DelayAveraging ||
			wa.Averaging != wb.Averaging ||
			len(wa.Modifiers) != len(wb.Modifiers) {
			return false
		}
		for j := range wa.Modifiers {
			if !wa.Modifiers[j].Equal(&wb.Modifiers[j]) {
				return false
			}
		}
	}
	return true
}

// DefaultTvChannels picks the useful part of a band, away from the edges
// and known birdies.
func DefaultTvChannels(nchan int, chanWidthMHz, centreMHz float64) (int, int) {
	var minTv, maxTv int
	switch {
	case nchan <= 33:
		minTv, maxTv = 9, 17
	case chanWidthMHz < 1:
		minTv, maxTv = 256, 1792
	case chanWidthMHz == 1 && centreMHz == 2100:
		minTv, maxTv = 200, 900
	default:
		minTv, maxTv = 513, 1537
	}
	if maxTv > nchan {
		if nchan <= 4 {
			return 0, nchan
		}
		return 2, nchan - 2
	}
	return minTv, maxTv
}
