package scan

import (
	"errors"
	"fmt"
)

var ErrBaselineUnknown = errors.New("baseline not in cycle enumeration")

// Noise-diode bins carried by autocorrelations.
const (
	BinNoiseDiodeOff = 1
	BinNoiseDiodeOn  = 2
)

// FlagOffSource marks an antenna that was not tracking the source.
const FlagOffSource = 1 << 0

// CalRecord is the calibration state of one antenna in one window.
// Two-element arrays are indexed by FeedX and FeedY.
type CalRecord struct {
	Antenna     int     `json:"antenna"`
	Window      int     `json:"window"`
	ParAngle    float64 `json:"parangle"`
	TrackErrMax float64 `json:"tracking_error_max"`
	TrackErrRMS float64 `json:"tracking_error_rms"`
	Flagging    int     `json:"flagging"`
	XYPhase     float64 `json:"xyphase"`
	XYAmp       float64 `json:"xyamp"`

	OnlineTsys          [2]float64 `json:"online_tsys"`
	OnlineTsysApplied   [2]bool    `json:"online_tsys_applied"`
	ComputedTsys        [2]float64 `json:"computed_tsys"`
	ComputedTsysApplied [2]bool    `json:"computed_tsys_applied"`
	CalJy               [2]float64 `json:"caljy"`
}

func (c *CalRecord) OffSource() bool { return c.Flagging&FlagOffSource != 0 }

type Weather struct {
	Temperature float64 `json:"temperature"`
	Pressure    float64 `json:"pressure"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	WindDir     float64 `json:"wind_direction"`
	RainGauge   float64 `json:"rain_gauge"`
	SeemonPhase float64 `json:"seemon_phase"`
	SeemonRMS   float64 `json:"seemon_rms"`
	SeemonFlag  bool    `json:"seemon_flag"`
}

// Calibration holds the per-cycle calibration sub-record.
type Calibration struct {
	// Records is indexed [antenna index][window index].
	Records [][]CalRecord `json:"records"`
	Weather Weather       `json:"weather"`
}

// Record returns the record for the antenna numbered ant in the window at
// array position widx.
func (c *Calibration) Record(ant, widx int) *CalRecord {
	for i := range c.Records {
		if widx < len(c.Records[i]) && c.Records[i][widx].Antenna == ant {
			return &c.Records[i][widx]
		}
	}
	return nil
}

// Cycle is one correlator dump. The per-sample slices are parallel.
type Cycle struct {
	UTSeconds float64 `json:"ut_seconds"`
	// BaselineList enumerates every baseline the cycle may carry.
	BaselineList []int `json:"baseline_list"`

	Baseline []int `json:"baseline"`
	Window   []int `json:"window"`
	Bin      []int `json:"bin"`
	Source   []int `json:"source"`
	// Vis and Weight are channel-major: index chan*npol + pol.
	Vis    [][]complex64 `json:"-"`
	Weight [][]float32   `json:"-"`

	Cal Calibration `json:"cal"`
}

func (c *Cycle) NumSamples() int { return len(c.Baseline) }

// BaselineIndex returns the position of bl in the cycle enumeration.
func (c *Cycle) BaselineIndex(bl int) (int, error) {
	for i, v := range c.BaselineList {
		if v == bl {
			return i, nil
		}
	}
	a1, a2 := BaselineAntennas(bl)
	return -1, fmt.Errorf("%w: %d-%d", ErrBaselineUnknown, a1, a2)
}

// Clone deep-copies the cycle.
func (c *Cycle) Clone() *Cycle {
	out := *c
	out.BaselineList = append([]int(nil), c.BaselineList...)
	out.Baseline = append([]int(nil), c.Baseline...)
	out.Window = append([]int(nil), c.Window...)
	out.Bin = append([]int(nil), c.Bin...)
	out.Source = append([]int(nil), c.Source...)
	out.Vis = make([][]complex64, len(c.Vis))
	for i, v := range c.Vis {
		out.Vis[i] = append([]complex64(nil), v...)
	}
	out.Weight = make([][]float32, len(c.Weight))
	for i, w := range c.Weight {
		out.Weight[i] = append([]float32(nil), w...)
	}
	out.Cal.Records = make([][]CalRecord, len(c.Cal.Records))
	for i, r := range c.Cal.Records {
		out.Cal.Records[i] = append([]CalRecord(nil), r...)
	}
	return &out
}
