package vis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/chzchzchz/corrvis/dsp"
	"github.com/chzchzchz/corrvis/scan"
	"github.com/chzchzchz/corrvis/store"
)

// View holds only the channels that survived flagging, that is those whose
// real part is not NaN.
type View struct {
	Channel   []int
	Frequency []float64
	Amplitude []float64
	Phase     []float64
	Raw       []complex128
}

func newView(capacity int) View {
	return View{
		Channel:   make([]int, 0, capacity),
		Frequency: make([]float64, 0, capacity),
		Amplitude: make([]float64, 0, capacity),
		Phase:     make([]float64, 0, capacity),
		Raw:       make([]complex128, 0, capacity),
	}
}

func (v *View) Len() int { return len(v.Channel) }

func (v *View) add(ch int, freq, amp, phase float64, raw complex128) {
	v.Channel = append(v.Channel, ch)
	v.Frequency = append(v.Frequency, freq)
	v.Amplitude = append(v.Amplitude, amp)
	v.Phase = append(v.Phase, phase)
	v.Raw = append(v.Raw, raw)
}

// Spectrum is one bin of one baseline. Every slice has one entry per
// channel; Flagged is never longer.
type Spectrum struct {
	Bin       int
	Weight    []float64
	Amplitude []float64
	Phase     []float64
	Raw       []complex128
	Flagged   View
}

func newSpectrum(bin, nchan int) Spectrum {
	return Spectrum{
		Bin:       bin,
		Weight:    make([]float64, nchan),
		Amplitude: make([]float64, nchan),
		Phase:     make([]float64, nchan),
		Raw:       make([]complex128, nchan),
		Flagged:   newView(nchan),
	}
}

type Extrema struct {
	Amplitude dsp.Range
	Phase     dsp.Range
	Real      dsp.Range
	Imag      dsp.Range
}

func newExtrema() Extrema {
	return Extrema{dsp.NewRange(), dsp.NewRange(), dsp.NewRange(), dsp.NewRange()}
}

func (e *Extrema) update(amp, phase float64, raw complex128) {
	e.Amplitude.Update(amp)
	e.Phase.Update(phase)
	e.Real.Update(real(raw))
	e.Imag.Update(imag(raw))
}

func (e *Extrema) merge(o *Extrema) {
	e.Amplitude.Merge(o.Amplitude)
	e.Phase.Merge(o.Phase)
	e.Real.Merge(o.Real)
	e.Imag.Merge(o.Imag)
}

// AmpPhase is the spectrum of one window and polarisation in one cycle.
// Spectra is indexed [baseline][bin]; Baselines and BaselineExtrema have
// one entry per baseline of the cycle.
type AmpPhase struct {
	Window      int
	WindowIndex int
	Pol         scan.Pol
	ObsDate     string
	UTSeconds   float64
	MJD         float64
	Options     *store.Options

	Channel   []int
	Frequency []float64

	Baselines       []int
	Spectra         [][]Spectrum
	BaselineExtrema []Extrema
	Extrema         Extrema

	Syscal *Syscal
}

func (ap *AmpPhase) NChannels() int  { return len(ap.Channel) }
func (ap *AmpPhase) NBaselines() int { return len(ap.Baselines) }
func (ap *AmpPhase) NBins(bl int) int {
	if bl < 0 || bl >= len(ap.Spectra) {
		return 0
	}
	return len(ap.Spectra[bl])
}

// BaselineIndex finds the baseline joining two antennas. flipped is true
// when the stored baseline lists the antennas in the other order.
func (ap *AmpPhase) BaselineIndex(a1, a2 int) (idx int, flipped bool, ok bool) {
	return baselineIndex(ap.Baselines, a1, a2)
}

func baselineIndex(bls []int, a1, a2 int) (int, bool, bool) {
	fwd, rev := scan.BaselineNumber(a1, a2), scan.BaselineNumber(a2, a1)
	for i, bl := range bls {
		if bl == fwd {
			return i, false, true
		}
	}
	for i, bl := range bls {
		if bl == rev {
			return i, true, true
		}
	}
	return -1, false, false
}

// Spectrum returns the spectrum of a baseline for a bin number.
func (ap *AmpPhase) Spectrum(bl, bin int) *Spectrum {
	if bl < 0 || bl >= len(ap.Spectra) {
		return nil
	}
	for i := range ap.Spectra[bl] {
		if ap.Spectra[bl][i].Bin == bin {
			return &ap.Spectra[bl][i]
		}
	}
	return nil
}

func (ap *AmpPhase) PhaseInDegrees() bool { return ap.Options != nil && ap.Options.PhaseInDegrees }

// ChannelWidth is the signed frequency step between adjacent channels.
func (ap *AmpPhase) ChannelWidth() float64 {
	if len(ap.Frequency) < 2 {
		return 0
	}
	return ap.Frequency[1] - ap.Frequency[0]
}

// ComputeAmpPhase extracts one window and polarisation of a cycle. The
// band's options entry is found or created in reg. Nothing is returned on
// error.
func ComputeAmpPhase(h *scan.Header, c *scan.Cycle, window int, pol scan.Pol, reg *store.Registry) (*AmpPhase, error) {
	widx, ok := h.WindowIndex(window)
	if !ok {
		return nil, fmt.Errorf("%w: window %d", ErrNotFound, window)
	}
	w := &h.Windows[widx]
	pidx, ok := w.PolIndex(pol)
	if !ok {
		return nil, fmt.Errorf("%w: polarisation %s in window %d", ErrNotFound, pol, window)
	}
	mjd, err := scan.MJD(h.ObsDate, c.UTSeconds)
	if err != nil {
		return nil, err
	}
	opts := reg.Snapshot(h)
	wo := opts.Window(window)
	if wo == nil {
		return nil, fmt.Errorf("%w: window %d in options", ErrNotFound, window)
	}

	nchan, npol := w.NChannels, len(w.PolProducts)
	ap := &AmpPhase{
		Window:      window,
		WindowIndex: widx,
		Pol:         pol,
		ObsDate:     h.ObsDate,
		UTSeconds:   c.UTSeconds,
		MJD:         mjd,
		Options:     opts,
		Channel:     make([]int, nchan),
		Frequency:   w.Frequencies(),

		Baselines:       append([]int(nil), c.BaselineList...),
		Spectra:         make([][]Spectrum, len(c.BaselineList)),
		BaselineExtrema: make([]Extrema, len(c.BaselineList)),
		Extrema:         newExtrema(),
	}
	for i := range ap.Channel {
		ap.Channel[i] = i
	}
	for i := range ap.BaselineExtrema {
		ap.BaselineExtrema[i] = newExtrema()
	}
	degrees := opts.PhaseInDegrees

	for s := 0; s < c.NumSamples(); s++ {
		if c.Window[s] != window {
			continue
		}
		bli, err := c.BaselineIndex(c.Baseline[s])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBaseline, err)
		}
		if len(c.Vis[s]) < nchan*npol {
			return nil, fmt.Errorf("%w: sample %d has %d values, want %d",
				ErrInvalidBaseline, s, len(c.Vis[s]), nchan*npol)
		}
		sp := ap.binSpectrum(bli, c.Bin[s], nchan)

		a1, a2 := scan.BaselineAntennas(c.Baseline[s])
		rot := modifierCorrection(wo.Modifiers, mjd, a1, a2, pol)
		for ch := 0; ch < nchan; ch++ {
			idx := ch*npol + pidx
			raw := complex128(c.Vis[s][idx])
			if len(c.Weight[s]) > idx {
				sp.Weight[ch] = float64(c.Weight[s][idx])
			}
			if rot.active && !math.IsNaN(real(raw)) {
				raw *= rot.rotation(ap.Frequency[ch])
			}
			amp := cmplx.Abs(raw)
			phase := dsp.FromRadians(cmplx.Phase(raw), degrees)
			sp.Raw[ch], sp.Amplitude[ch], sp.Phase[ch] = raw, amp, phase
			if math.IsNaN(real(raw)) {
				continue
			}
			sp.Flagged.add(ch, ap.Frequency[ch], amp, phase, raw)
			ap.BaselineExtrema[bli].update(amp, phase, raw)
		}
	}
	for i := range ap.BaselineExtrema {
		ap.Extrema.merge(&ap.BaselineExtrema[i])
	}
	ap.Syscal = newSyscal(c, widx, window, pol)
	return ap, nil
}

// binSpectrum returns the spectrum for a bin, growing the bin list of the
// baseline when the bin is first seen. A repeated bin replaces the earlier
// sample, so its flagged view starts over.
func (ap *AmpPhase) binSpectrum(bli, bin, nchan int) *Spectrum {
	if sp := ap.Spectrum(bli, bin); sp != nil {
		sp.Flagged = newView(nchan)
		return sp
	}
	ap.Spectra[bli] = append(ap.Spectra[bli], newSpectrum(bin, nchan))
	return &ap.Spectra[bli][len(ap.Spectra[bli])-1]
}

type correction struct {
	active bool
	// delay in ns, phase in degrees
	delay float64
	phase float64
}

// rotation is exp(i*(delay_phase - phase_offset)) at freqMHz.
func (c correction) rotation(freqMHz float64) complex128 {
	delayPhase := -2 * math.Pi * c.delay * freqMHz / 1e3
	return cmplx.Exp(complex(0, delayPhase-c.phase*math.Pi/180))
}

// modifierCorrection sums the delay and phase differences of every active
// modifier for a product. Cross-correlations take antenna2 - antenna1 on
// the feeds forming the product; autocorrelations take the XY term, sign
// flipped for YX.
func modifierCorrection(mods []store.Modifier, mjd float64, a1, a2 int, pol scan.Pol) (c correction) {
	diff := func(corr *store.Correction) float64 {
		if a1 == a2 {
			switch pol {
			case scan.PolXY:
				return corr.Value(a1, store.CorrXY)
			case scan.PolYX:
				return -corr.Value(a1, store.CorrXY)
			}
			return 0
		}
		f1, f2 := pol.Feeds()
		return corr.Value(a2, f2) - corr.Value(a1, f1)
	}
	for i := range mods {
		m := &mods[i]
		if m.Delay.Active(mjd) {
			c.delay += diff(m.Delay)
			c.active = true
		}
		if m.Phase.Active(mjd) {
			c.phase += diff(m.Phase)
			c.active = true
		}
	}
	return c
}
