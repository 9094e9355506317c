package dsp

import (
	"math"
	"math/cmplx"

	"github.com/runningwild/go-fftw/fftw32"
)

// LagSpectrum is the delay-domain response of a channelised spectrum.
type LagSpectrum struct {
	// Amplitude is ordered so zero lag sits at index len/2.
	Amplitude  []float64
	chanWidth  float64
	peakIdx    int
	peakOffset float64
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// NewLagSpectrum transforms a spectrum with channel spacing chanWidthMHz
// into lag space, zero-padding to pad times the next power of two. NaN
// channels contribute nothing.
func NewLagSpectrum(spec []complex128, chanWidthMHz float64, pad int) *LagSpectrum {
	if pad < 1 {
		pad = 1
	}
	n := nextPow2(len(spec)) * pad
	arr := fftw32.NewArray(n)
	for i, v := range spec {
		if math.IsNaN(real(v)) || math.IsNaN(imag(v)) {
			continue
		}
		arr.Elems[i] = complex64(v)
	}
	out := fftw32.FFT(arr)
	ls := &LagSpectrum{Amplitude: make([]float64, n), chanWidth: chanWidthMHz}
	for i, v := range out.Elems {
		idx := i + n/2
		if i >= n/2 {
			idx = i - n/2
		}
		ls.Amplitude[idx] = cmplx.Abs(complex128(v))
	}
	ls.findPeak()
	return ls
}

func (ls *LagSpectrum) findPeak() {
	best := 0
	for i, v := range ls.Amplitude {
		if v > ls.Amplitude[best] {
			best = i
		}
	}
	ls.peakIdx = best
	if best == 0 || best == len(ls.Amplitude)-1 {
		return
	}
	// Parabolic interpolation around the peak.
	l, m, r := ls.Amplitude[best-1], ls.Amplitude[best], ls.Amplitude[best+1]
	if den := l - 2*m + r; den != 0 {
		ls.peakOffset = 0.5 * (l - r) / den
	}
}

// Delay returns the lag of the peak response in ns.
func (ls *LagSpectrum) Delay() float64 {
	n := len(ls.Amplitude)
	if n == 0 || ls.chanWidth == 0 {
		return 0
	}
	lag := float64(ls.peakIdx-n/2) + ls.peakOffset
	return lag / (float64(n) * ls.chanWidth) * 1e3
}

// Peak returns the amplitude of the strongest lag.
func (ls *LagSpectrum) Peak() float64 {
	if len(ls.Amplitude) == 0 {
		return 0
	}
	return ls.Amplitude[ls.peakIdx]
}
