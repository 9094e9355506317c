package vis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chzchzchz/corrvis/scan"
	"github.com/chzchzchz/corrvis/scan/scantest"
	"github.com/chzchzchz/corrvis/store"
)

const (
	offPower   = 10.0
	diodePower = 2.0
)

// diodeScan has autocorrelations of offPower with the noise diode adding
// diodePower in the on bin.
func diodeScan(nants int) (*scan.Header, *scan.Cycle, *store.Registry) {
	return newTestScan(nants, func(bl, w, bin, ch int, pol scan.Pol, f float64) complex64 {
		if !scan.IsAutocorrelation(bl) {
			return complex(0.3, -0.4)
		}
		if bin == scan.BinNoiseDiodeOn {
			return offPower + diodePower
		}
		return offPower
	})
}

func requireVisClose(t *testing.T, want, got *scan.Cycle) {
	t.Helper()
	require.Equal(t, len(want.Vis), len(got.Vis))
	for s := range want.Vis {
		for i := range want.Vis[s] {
			w, g := want.Vis[s][i], got.Vis[s][i]
			if math.IsNaN(float64(real(w))) {
				require.True(t, math.IsNaN(float64(real(g))), "sample %d value %d", s, i)
				continue
			}
			require.InDelta(t, real(w), real(g), 1e-4, "sample %d value %d", s, i)
			require.InDelta(t, imag(w), imag(g), 1e-4, "sample %d value %d", s, i)
		}
	}
}

func appliedFlags(c *scan.Cycle) (online, computed bool) {
	for i := range c.Cal.Records {
		for _, r := range c.Cal.Records[i] {
			online = online || r.OnlineTsysApplied[0] || r.OnlineTsysApplied[1]
			computed = computed || r.ComputedTsysApplied[0] || r.ComputedTsysApplied[1]
		}
	}
	return online, computed
}

func TestApplyRemoveOnline(t *testing.T) {
	h, c, _ := diodeScan(3)
	npol := len(h.Windows[0].PolProducts)
	c.Vis[2][3*npol] = complex(nan32, 1)
	orig := c.Clone()

	require.NoError(t, ApplySystemTemperature(TsysApplyOnline, c, h))
	online, computed := appliedFlags(c)
	require.True(t, online)
	require.False(t, computed)

	// Baseline 1-2 XX scales by sqrt(40*41), YX by sqrt(45*41).
	scale := float32(math.Sqrt(40 * 41))
	assert.InDelta(t, 0.3*scale, real(c.Vis[2][0]), 1e-4)
	yx := 3
	assert.InDelta(t, -0.4*float32(math.Sqrt(45*41)), imag(c.Vis[2][yx]), 1e-4)
	assert.True(t, math.IsNaN(float64(real(c.Vis[2][3*npol]))))
	assert.Equal(t, float32(1), imag(c.Vis[2][3*npol]))

	require.NoError(t, ApplySystemTemperature(TsysRemove, c, h))
	online, computed = appliedFlags(c)
	require.False(t, online)
	require.False(t, computed)
	requireVisClose(t, orig, c)
}

func TestApplyIsNoopWhenHeld(t *testing.T) {
	h, c, _ := diodeScan(3)
	require.NoError(t, ApplySystemTemperature(TsysApplyOnline, c, h))
	once := c.Clone()
	require.NoError(t, ApplySystemTemperature(TsysApplyOnline, c, h))
	requireVisClose(t, once, c)

	bare := c.Clone()
	require.NoError(t, ApplySystemTemperature(TsysRemove, bare, h))
	removed := bare.Clone()
	require.NoError(t, ApplySystemTemperature(TsysRemove, bare, h))
	requireVisClose(t, removed, bare)

	require.ErrorIs(t, ApplySystemTemperature(TsysAction(7), c, h), ErrUnknownAction)
}

func TestApplyComputedReplacesOnline(t *testing.T) {
	h, c, _ := diodeScan(3)
	for i := range c.Cal.Records {
		for j := range c.Cal.Records[i] {
			r := &c.Cal.Records[i][j]
			r.ComputedTsys = r.OnlineTsys
		}
	}
	require.NoError(t, ApplySystemTemperature(TsysApplyOnline, c, h))
	onlineApplied := c.Clone()

	require.NoError(t, ApplySystemTemperature(TsysApplyComputed, c, h))
	requireVisClose(t, onlineApplied, c)
	online, computed := appliedFlags(c)
	assert.False(t, online)
	assert.True(t, computed)

	require.NoError(t, ApplySystemTemperature(TsysApplyOnline, c, h))
	online, computed = appliedFlags(c)
	assert.True(t, online)
	assert.False(t, computed)
}

func TestApplyWithoutTemperaturesLeavesFlags(t *testing.T) {
	h, c, _ := diodeScan(2)
	orig := c.Clone()
	// No computed temperatures yet, so nothing can be scaled.
	require.NoError(t, ApplySystemTemperature(TsysApplyComputed, c, h))
	_, computed := appliedFlags(c)
	assert.False(t, computed)
	requireVisClose(t, orig, c)
}

func TestComputeSystemTemperatures(t *testing.T) {
	h, c, reg := diodeScan(3)
	require.NoError(t, ComputeSystemTemperatures(c, h, reg))

	// on = N*(P+D), off = N*P: sum/diff = (P+D/2)/D.
	ratio := (offPower + diodePower/2) / diodePower
	for i := range c.Cal.Records {
		r := c.Cal.Records[i][0]
		assert.InDelta(t, math.Sqrt(ratio*r.CalJy[scan.FeedX]), r.ComputedTsys[scan.FeedX], 1e-4)
		assert.InDelta(t, math.Sqrt(ratio*r.CalJy[scan.FeedY]), r.ComputedTsys[scan.FeedY], 1e-4)
	}

	reg.FindOrCreate(h).Windows[0].Averaging.Statistic = store.Median
	c.Cal.Records[0][0].ComputedTsys = [2]float64{}
	require.NoError(t, ComputeSystemTemperatures(c, h, reg))
	assert.InDelta(t, math.Sqrt(ratio*10), c.Cal.Records[0][0].ComputedTsys[scan.FeedX], 1e-4)
}

func TestComputeSystemTemperaturesSentinel(t *testing.T) {
	h, c, reg := newTestScan(2, scantest.Constant(5))
	require.NoError(t, ComputeSystemTemperatures(c, h, reg))
	assert.Equal(t, TsysSentinel, c.Cal.Records[1][0].ComputedTsys[scan.FeedY])
}

func TestComputeSystemTemperaturesOverride(t *testing.T) {
	h, c, reg := diodeScan(2)
	require.NoError(t, reg.AddModifier(h, 1, store.Modifier{
		NoiseDiode: &store.Correction{Start: 0, End: 1e6, Values: [][3]float64{{0, 0, 0}, {40, 0, 0}}},
	}))
	require.NoError(t, ComputeSystemTemperatures(c, h, reg))
	ratio := (offPower + diodePower/2) / diodePower
	assert.InDelta(t, math.Sqrt(ratio*40), c.Cal.Records[1][0].ComputedTsys[scan.FeedX], 1e-4)
	assert.InDelta(t, math.Sqrt(ratio*10), c.Cal.Records[0][0].ComputedTsys[scan.FeedX], 1e-4)
}

func TestRecomputeKeepsComputedApplied(t *testing.T) {
	h, c, reg := diodeScan(3)
	bare := c.Clone()
	require.NoError(t, ComputeSystemTemperatures(c, h, reg))
	require.NoError(t, ApplySystemTemperature(TsysApplyComputed, c, h))
	applied := c.Clone()

	require.NoError(t, ComputeSystemTemperatures(c, h, reg))
	_, computed := appliedFlags(c)
	require.True(t, computed)
	requireVisClose(t, applied, c)

	require.NoError(t, ApplySystemTemperature(TsysRemove, c, h))
	requireVisClose(t, bare, c)
}

func TestCalibrateCycle(t *testing.T) {
	h, c, reg := diodeScan(2)
	require.NoError(t, CalibrateCycle(c, h, reg))
	online, _ := appliedFlags(c)
	require.True(t, online)

	o := reg.FindOrCreate(h)
	o.ApplyComputedTsys = true
	require.NoError(t, CalibrateCycle(c, h, reg))
	online, computed := appliedFlags(c)
	require.False(t, online)
	require.True(t, computed)

	o.ApplyComputedTsys, o.ReverseOnlineTsys = false, true
	require.NoError(t, CalibrateCycle(c, h, reg))
	online, computed = appliedFlags(c)
	require.False(t, online)
	require.False(t, computed)
}
