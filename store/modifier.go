package store

// Correction indexes
const (
	CorrX  = 0
	CorrY  = 1
	CorrXY = 2
)

// Correction is a per-antenna table valid between two MJDs inclusive.
type Correction struct {
	Start float64 `yaml:"start_mjd"`
	End   float64 `yaml:"end_mjd"`
	// Values is indexed [antenna-1][CorrX|CorrY|CorrXY].
	Values [][3]float64 `yaml:"values"`
}

func (c *Correction) Active(mjd float64) bool {
	return c != nil && mjd >= c.Start && mjd <= c.End
}

// Value returns the correction for antenna number ant, zero if absent.
func (c *Correction) Value(ant, idx int) float64 {
	if c == nil || ant < 1 || ant > len(c.Values) {
		return 0
	}
	return c.Values[ant-1][idx]
}

func (c *Correction) clone() *Correction {
	if c == nil {
		return nil
	}
	out := *c
	out.Values = append([][3]float64(nil), c.Values...)
	return &out
}

func (c *Correction) equal(o *Correction) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Start != o.Start || c.End != o.End || len(c.Values) != len(o.Values) {
		return false
	}
	for i := range c.Values {
		if c.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

// Modifier is a user supplied, time-bounded correction applied while
// extracting spectra. Delays are in ns, phases in degrees, and noise-diode
// amplitudes in Jy.
type Modifier struct {
	Delay      *Correction `yaml:"delay,omitempty"`
	Phase      *Correction `yaml:"phase,omitempty"`
	NoiseDiode *Correction `yaml:"noise_diode,omitempty"`
}

func (m *Modifier) Clone() Modifier {
	return Modifier{
		Delay:      m.Delay.clone(),
		Phase:      m.Phase.clone(),
		NoiseDiode: m.NoiseDiode.clone(),
	}
}

func (m *Modifier) Equal(o *Modifier) bool {
	return m.Delay.equal(o.Delay) && m.Phase.equal(o.Phase) && m.NoiseDiode.equal(o.NoiseDiode)
}

// Active reports whether any part of the modifier covers mjd.
func (m *Modifier) Active(mjd float64) bool {
	return m.Delay.Active(mjd) || m.Phase.Active(mjd) || m.NoiseDiode.Active(mjd)
}

// NoiseDiodeOverride returns the overriding noise-diode amplitude for the
// antenna feed at mjd from the last active modifier. Non-positive entries
// leave the recorded amplitude in place.
func (wo *WindowOptions) NoiseDiodeOverride(ant, feed int, mjd float64) (float64, bool) {
	val, ok := 0.0, false
	for i := range wo.Modifiers {
		nd := wo.Modifiers[i].NoiseDiode
		if !nd.Active(mjd) {
			continue
		}
		if v := nd.Value(ant, feed); v > 0 {
			val, ok = v, true
		}
	}
	return val, ok
}
