package vis

import (
	"fmt"
	"math"

	"github.com/chzchzchz/corrvis/dsp"
	"github.com/chzchzchz/corrvis/scan"
	"github.com/chzchzchz/corrvis/store"
)

// TsysSentinel replaces a temperature whose noise-diode step was too small
// to measure.
const TsysSentinel = 9999.0

type TsysAction int

const (
	TsysApplyOnline TsysAction = iota
	TsysApplyComputed
	TsysRemove
)

func (a TsysAction) String() string {
	switch a {
	case TsysApplyOnline:
		return "apply-online"
	case TsysApplyComputed:
		return "apply-computed"
	case TsysRemove:
		return "remove"
	}
	return fmt.Sprintf("TsysAction(%d)", int(a))
}

type tsysSource int

const (
	tsysOnline tsysSource = iota
	tsysComputed
)

func (src tsysSource) value(r *scan.CalRecord, feed int) float64 {
	if src == tsysOnline {
		return r.OnlineTsys[feed]
	}
	return r.ComputedTsys[feed]
}

func (src tsysSource) applied(r *scan.CalRecord) *[2]bool {
	if src == tsysOnline {
		return &r.OnlineTsysApplied
	}
	return &r.ComputedTsysApplied
}

func anyApplied(c *scan.Cycle, src tsysSource) bool {
	for i := range c.Cal.Records {
		for j := range c.Cal.Records[i] {
			a := src.applied(&c.Cal.Records[i][j])
			if a[0] || a[1] {
				return true
			}
		}
	}
	return false
}

// ApplySystemTemperature moves the cycle's visibilities between the
// uncalibrated, online-calibrated and computed-calibrated states. Online
// and computed calibration never coexist: applying one first removes the
// other. Requesting the current state does nothing.
func ApplySystemTemperature(action TsysAction, c *scan.Cycle, h *scan.Header) error {
	switch action {
	case TsysApplyOnline, TsysApplyComputed:
		want, other := tsysOnline, tsysComputed
		if action == TsysApplyComputed {
			want, other = tsysComputed, tsysOnline
		}
		if anyApplied(c, want) {
			return nil
		}
		if anyApplied(c, other) {
			scaleTsys(c, h, other, true)
		}
		scaleTsys(c, h, want, false)
	case TsysRemove:
		for _, src := range []tsysSource{tsysOnline, tsysComputed} {
			if anyApplied(c, src) {
				scaleTsys(c, h, src, true)
			}
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnknownAction, action)
	}
	return nil
}

// scaleTsys multiplies (or, with remove, divides) every valid sample by
// sqrt(T1*T2). The applied flags of the source flip for the whole cycle
// only if some sample changed.
func scaleTsys(c *scan.Cycle, h *scan.Header, src tsysSource, remove bool) bool {
	modified := false
	for s := 0; s < c.NumSamples(); s++ {
		widx, ok := h.WindowIndex(c.Window[s])
		if !ok {
			continue
		}
		w := &h.Windows[widx]
		a1, a2 := scan.BaselineAntennas(c.Baseline[s])
		r1, r2 := c.Cal.Record(a1, widx), c.Cal.Record(a2, widx)
		if r1 == nil || r2 == nil {
			continue
		}
		npol := len(w.PolProducts)
		for p, name := range w.PolProducts {
			pol, err := scan.ParsePol(name)
			if err != nil {
				continue
			}
			f1, f2 := pol.Feeds()
			t1, t2 := src.value(r1, f1), src.value(r2, f2)
			if t1 <= 0 || t2 <= 0 {
				continue
			}
			factor := math.Sqrt(t1 * t2)
			if remove {
				factor = 1 / factor
			}
			scale := complex(float32(factor), 0)
			for ch := 0; ch < w.NChannels; ch++ {
				idx := ch*npol + p
				if idx >= len(c.Vis[s]) || math.IsNaN(float64(real(c.Vis[s][idx]))) {
					continue
				}
				c.Vis[s][idx] *= scale
				modified = true
			}
		}
	}
	if !modified {
		return false
	}
	for i := range c.Cal.Records {
		for j := range c.Cal.Records[i] {
			a := src.applied(&c.Cal.Records[i][j])
			a[0], a[1] = !remove, !remove
		}
	}
	return true
}

// ComputeSystemTemperatures derives each antenna's XX and YY system
// temperature from its noise-diode on and off autocorrelation bins. A
// computed calibration already applied is taken off first and put back
// with the new values.
func ComputeSystemTemperatures(c *scan.Cycle, h *scan.Header, reg *store.Registry) error {
	mjd, err := scan.MJD(h.ObsDate, c.UTSeconds)
	if err != nil {
		return err
	}
	opts := reg.Snapshot(h)
	reapply := anyApplied(c, tsysComputed)
	if reapply {
		scaleTsys(c, h, tsysComputed, true)
	}
	for widx := range h.Windows {
		w := &h.Windows[widx]
		wo := opts.Window(w.Label)
		if wo == nil {
			continue
		}
		for _, pol := range []scan.Pol{scan.PolXX, scan.PolYY} {
			pidx, ok := w.PolIndex(pol)
			if !ok {
				continue
			}
			feed, _ := pol.Feeds()
			for _, ant := range h.Antennas {
				r := c.Cal.Record(ant.Number, widx)
				if r == nil {
					continue
				}
				on, off := autoPowers(c, w, pidx, ant.Number, wo)
				if len(on) == 0 || len(off) == 0 {
					continue
				}
				caljy := r.CalJy[feed]
				if v, ok := wo.NoiseDiodeOverride(ant.Number, feed, mjd); ok {
					caljy = v
				}
				r.ComputedTsys[feed] = tsysFromPowers(
					reducePower(wo.Averaging.Statistic, on),
					reducePower(wo.Averaging.Statistic, off),
					caljy)
			}
		}
	}
	if reapply {
		scaleTsys(c, h, tsysComputed, false)
	}
	return nil
}

// autoPowers gathers the real parts of an antenna's autocorrelation in the
// tv range, split by noise-diode bin.
func autoPowers(c *scan.Cycle, w *scan.Window, pidx, ant int, wo *store.WindowOptions) (on, off []float64) {
	bl := scan.BaselineNumber(ant, ant)
	npol := len(w.PolProducts)
	for s := 0; s < c.NumSamples(); s++ {
		if c.Baseline[s] != bl || c.Window[s] != w.Label {
			continue
		}
		var dst *[]float64
		switch c.Bin[s] {
		case scan.BinNoiseDiodeOn:
			dst = &on
		case scan.BinNoiseDiodeOff:
			dst = &off
		default:
			continue
		}
		for ch := wo.MinTvChannel; ch < wo.MaxTvChannel && ch < w.NChannels; ch++ {
			idx := ch*npol + pidx
			if idx >= len(c.Vis[s]) {
				break
			}
			v := float64(real(c.Vis[s][idx]))
			if !math.IsNaN(v) {
				*dst = append(*dst, v)
			}
		}
	}
	return on, off
}

func reducePower(st store.Statistic, xs []float64) float64 {
	if st == store.Median {
		return dsp.Median(xs)
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum
}

func tsysFromPowers(on, off, caljy float64) float64 {
	sum, diff := 0.5*(on+off), on-off
	if diff <= 0.01*sum || caljy < 0 {
		return TsysSentinel
	}
	return math.Sqrt(sum / diff * caljy)
}

// CalibrateCycle brings the cycle into the Tsys state requested by its
// band options: computed temperatures applied, online removed, or online
// applied.
func CalibrateCycle(c *scan.Cycle, h *scan.Header, reg *store.Registry) error {
	opts := reg.Snapshot(h)
	switch {
	case opts.ApplyComputedTsys:
		if err := ComputeSystemTemperatures(c, h, reg); err != nil {
			return err
		}
		return ApplySystemTemperature(TsysApplyComputed, c, h)
	case opts.ReverseOnlineTsys:
		return ApplySystemTemperature(TsysRemove, c, h)
	}
	return ApplySystemTemperature(TsysApplyOnline, c, h)
}
