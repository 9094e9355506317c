package radio

import (
	"math"
	"sort"
)

// FreqBand is a contiguous span of sky frequency in MHz.
type FreqBand struct {
	Center float64 `yaml:"center_mhz" json:"center_mhz"`
	Width  float64 `yaml:"width_mhz" json:"width_mhz"`
}

func (f FreqBand) BeginMHz() float64 { return f.Center - f.Width/2.0 }
func (f FreqBand) EndMHz() float64   { return f.Center + f.Width/2.0 }

func NewFreqRange(loMHz, hiMHz float64) FreqBand {
	if hiMHz < loMHz {
		loMHz, hiMHz = hiMHz, loMHz
	}
	return FreqBand{Center: (hiMHz + loMHz) / 2.0, Width: hiMHz - loMHz}
}

func (fb1 *FreqBand) merge(fb2 FreqBand) {
	begin := math.Min(fb1.BeginMHz(), fb2.BeginMHz())
	end := math.Max(fb1.EndMHz(), fb2.EndMHz())
	fb1.Center = (end + begin) / 2.0
	fb1.Width = end - begin
}

func (fb1 FreqBand) Overlaps(fb2 FreqBand) bool {
	return !(fb2.EndMHz() < fb1.BeginMHz() || fb2.BeginMHz() > fb1.EndMHz())
}

// Overlap returns the width in MHz shared by both bands, zero if disjoint.
func (fb1 FreqBand) Overlap(fb2 FreqBand) float64 {
	begin := math.Max(fb1.BeginMHz(), fb2.BeginMHz())
	end := math.Min(fb1.EndMHz(), fb2.EndMHz())
	if end < begin {
		return 0
	}
	return end - begin
}

func (f FreqBand) Contains(mhz float64) bool {
	return mhz >= f.BeginMHz() && mhz <= f.EndMHz()
}

// Same reports whether two bands describe the same span exactly.
func (fb1 FreqBand) Same(fb2 FreqBand) bool {
	return fb1.Center == fb2.Center && fb1.Width == fb2.Width
}

type Bands []FreqBand

func (a Bands) Len() int           { return len(a) }
func (a Bands) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a Bands) Less(i, j int) bool { return a[i].BeginMHz() < a[j].BeginMHz() }

func BandMerge(fbs []FreqBand) (ret []FreqBand) {
	if len(fbs) == 0 {
		return nil
	}
	sort.Sort(Bands(fbs))
	ret = append(ret, fbs[0])
	for _, fb := range fbs[1:] {
		if fb.BeginMHz() > ret[len(ret)-1].EndMHz() {
			ret = append(ret, fb)
		} else {
			ret[len(ret)-1].merge(fb)
		}
	}
	return ret
}

func BandRange(fb []FreqBand) FreqBand {
	br := fb[0]
	for _, v := range fb {
		br.merge(v)
	}
	return br
}

// ChannelWidth is the spacing of an nchan channel grid spanning the band;
// the first and last channels sit on the band edges.
func ChannelWidth(fb FreqBand, nchan int) float64 {
	if nchan <= 1 {
		return fb.Width
	}
	return fb.Width / float64(nchan-1)
}

// ChannelFrequencies returns the sky frequency in MHz of each channel.
// A negative sideband inverts the grid so channel 0 is the highest frequency.
func ChannelFrequencies(fb FreqBand, nchan int, sideband int) []float64 {
	sign := 1.0
	if sideband < 0 {
		sign = -1.0
	}
	width := ChannelWidth(fb, nchan)
	mid := float64(nchan-1) / 2.0
	freqs := make([]float64, nchan)
	for i := range freqs {
		freqs[i] = fb.Center + sign*(float64(i)-mid)*width
	}
	return freqs
}

// ChannelRange is the band spanned by a set of channel frequencies.
func ChannelRange(freqs []float64) FreqBand {
	if len(freqs) == 0 {
		return FreqBand{}
	}
	lo, hi := freqs[0], freqs[0]
	for _, f := range freqs {
		lo, hi = math.Min(lo, f), math.Max(hi, f)
	}
	return NewFreqRange(lo, hi)
}
