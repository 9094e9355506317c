package vis

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chzchzchz/corrvis/scan"
	"github.com/chzchzchz/corrvis/scan/scantest"
	"github.com/chzchzchz/corrvis/store"
)

// delayed is a unit visibility whose phase is 2*pi*f*tau.
func delayed(tauNs float64) scantest.VisFunc {
	return func(bl, w, bin, ch int, pol scan.Pol, f float64) complex64 {
		return complex64(cmplx.Exp(complex(0, 2*math.Pi*f*tauNs/1e3)))
	}
}

func TestAverageRecoversDelay(t *testing.T) {
	const tau = 3.0
	tests := []struct {
		method  store.AverageMethod
		davg    int
		degrees bool
	}{
		{store.AverageMethod{Statistic: store.Mean, Combination: store.Vector}, 1, false},
		{store.AverageMethod{Statistic: store.Median, Combination: store.Scalar}, 1, true},
		{store.AverageMethod{Statistic: store.Mean, Combination: store.Vector}, 4, false},
		{store.AverageMethod{Statistic: store.Median, Combination: store.Vector}, 8, true},
	}
	h := scantest.NewHeader(3, scantest.Window(1, 5500, 2048, 2049))
	c := scantest.NewCycle(h, 0, 1, delayed(tau))
	for _, tt := range tests {
		reg := store.NewRegistry()
		o := reg.FindOrCreate(h)
		o.PhaseInDegrees = tt.degrees
		o.Windows[0].Averaging = tt.method
		o.Windows[0].DelayAveraging = tt.davg

		ap, err := ComputeAmpPhase(h, c, 1, scan.PolXX, reg)
		require.NoError(t, err)
		vq, err := AverageAmpPhase(h, ap, reg)
		require.NoError(t, err)
		bl, _, _ := vq.BaselineIndex(1, 2)
		assert.InDelta(t, tau, vq.Delay[bl][0], 0.01, "method %v davg %d", tt.method, tt.davg)
		if tt.method.Combination == store.Scalar {
			assert.InDelta(t, 1, vq.Amplitude[bl][0], 1e-6)
		}
		assert.Equal(t, 0, vq.FlaggedBad[bl])
	}
}

func TestAverageScalarVector(t *testing.T) {
	// Alternating channels of amplitude 1 and 3 with phases 0 and pi/2.
	h, c, reg := newTestScan(2, func(bl, w, bin, ch int, pol scan.Pol, f float64) complex64 {
		if ch%2 == 0 {
			return 1
		}
		return complex(0, 3)
	})
	ap, err := ComputeAmpPhase(h, c, 1, scan.PolXX, reg)
	require.NoError(t, err)
	bl, _, _ := ap.BaselineIndex(1, 2)

	reg.FindOrCreate(h).Windows[0].Averaging = store.AverageMethod{Statistic: store.Mean, Combination: store.Scalar}
	vq, err := AverageAmpPhase(h, ap, reg)
	require.NoError(t, err)
	// Tv range [9,17) holds four odd and four even channels.
	assert.InDelta(t, 2, vq.Amplitude[bl][0], 1e-6)
	assert.InDelta(t, math.Pi/4, vq.Phase[bl][0], 1e-6)

	reg.FindOrCreate(h).Windows[0].Averaging = store.AverageMethod{Statistic: store.Mean, Combination: store.Vector}
	vq, err = AverageAmpPhase(h, ap, reg)
	require.NoError(t, err)
	assert.InDelta(t, cmplx.Abs(complex(0.5, 1.5)), vq.Amplitude[bl][0], 1e-6)
	assert.InDelta(t, math.Atan2(1.5, 0.5), vq.Phase[bl][0], 1e-6)
}

func TestAverageEmptyTvRange(t *testing.T) {
	h, c, reg := newTestScan(3, scantest.Constant(complex(1, 1)))
	bl := scan.BaselineNumber(2, 3)
	npol := len(h.Windows[0].PolProducts)
	for s := range c.Baseline {
		if c.Baseline[s] != bl {
			continue
		}
		for ch := 9; ch < 17; ch++ {
			c.Vis[s][ch*npol] = complex(nan32, 0)
		}
	}
	ap, err := ComputeAmpPhase(h, c, 1, scan.PolXX, reg)
	require.NoError(t, err)
	vq, err := AverageAmpPhase(h, ap, reg)
	require.NoError(t, err)

	bli, _, _ := vq.BaselineIndex(2, 3)
	assert.Equal(t, 0.0, vq.Amplitude[bli][0])
	assert.Equal(t, 0.0, vq.Phase[bli][0])
	assert.Equal(t, 0.0, vq.Delay[bli][0])
	assert.Equal(t, 1, vq.FlaggedBad[bli])

	other, _, _ := vq.BaselineIndex(1, 2)
	assert.InDelta(t, math.Sqrt2, vq.Amplitude[other][0], 1e-6)
	assert.Equal(t, 0, vq.FlaggedBad[other])

	reg.FindOrCreate(h).IncludeFlagged = true
	vq, err = AverageAmpPhase(h, ap, reg)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(vq.Amplitude[bli][0]))
	assert.Equal(t, 0, vq.FlaggedBad[bli])
}

func TestComputeDelays(t *testing.T) {
	const tau = -7.5
	h := scantest.NewHeader(2, scantest.Window(1, 5500, 64, 33))
	c := scantest.NewCycle(h, 0, 1, delayed(tau))
	npol := len(h.Windows[0].PolProducts)
	c.Vis[2][20*npol] = complex(nan32, 0)
	reg := store.NewRegistry()
	ap, err := ComputeAmpPhase(h, c, 1, scan.PolXX, reg)
	require.NoError(t, err)

	ds := ComputeDelays(ap, false, 10, 30)
	bl, _, _ := ap.BaselineIndex(1, 2)
	set := ds[bl][0]
	// Channels 10..29 with channel 20 flagged leave 18 adjacent pairs.
	require.Len(t, set.Delays, 18)
	for _, d := range set.Delays {
		assert.InDelta(t, tau, d, 1e-3)
	}
	assert.InDelta(t, tau, set.Mean, 1e-3)
	assert.InDelta(t, tau, set.Median, 1e-3)
}

func TestComputeLagDelays(t *testing.T) {
	const tau = 20.0
	h := scantest.NewHeader(2, scantest.Window(1, 5500, 2048, 2049))
	c := scantest.NewCycle(h, 0, 1, delayed(tau))
	reg := store.NewRegistry()
	ap, err := ComputeAmpPhase(h, c, 1, scan.PolXX, reg)
	require.NoError(t, err)
	lags := ComputeLagDelays(ap)
	bl, _, _ := ap.BaselineIndex(1, 2)
	// 1024 tv channels padded to 4096 lags of 1/4096us.
	assert.InDelta(t, tau, lags[bl][0], 0.25)
}

func TestChannelAverage(t *testing.T) {
	h, c, reg := newTestScan(2, func(bl, w, bin, ch int, pol scan.Pol, f float64) complex64 {
		return complex(float32(ch), 0)
	})
	npol := len(h.Windows[0].PolProducts)
	// Flag the whole second group of baseline 1-2.
	for ch := 4; ch < 8; ch++ {
		c.Vis[2][ch*npol] = complex(nan32, 0)
	}
	ap, err := ComputeAmpPhase(h, c, 1, scan.PolXX, reg)
	require.NoError(t, err)

	_, err = ChannelAverageAmpPhase(ap, 0, store.AverageMethod{})
	require.ErrorIs(t, err, ErrBadFactor)

	avg, err := ChannelAverageAmpPhase(ap, 4, store.AverageMethod{Statistic: store.Mean, Combination: store.Scalar})
	require.NoError(t, err)
	require.Equal(t, 9, avg.NChannels())
	assert.InDelta(t, ap.Frequency[1]/2+ap.Frequency[2]/2, avg.Frequency[0], 1e-9)

	bl, _, _ := avg.BaselineIndex(1, 2)
	sp := avg.Spectrum(bl, 1)
	assert.InDelta(t, 1.5, sp.Amplitude[0], 1e-9)
	assert.True(t, math.IsNaN(sp.Amplitude[1]))
	assert.Equal(t, 8, sp.Flagged.Len())
	// Trailing group holds channel 32 alone.
	assert.InDelta(t, 32, sp.Amplitude[8], 1e-9)
	assert.Equal(t, 4.0, sp.Weight[0])
	assert.Equal(t, 0.0, sp.Weight[1])
	assert.InDelta(t, 32, avg.Extrema.Amplitude.Max, 1e-9)
}

func TestAverageChannelAveragedPolicies(t *testing.T) {
	h, c, reg := newTestScan(2, scantest.Constant(complex(1, 1)))
	ap, err := ComputeAmpPhase(h, c, 1, scan.PolXX, reg)
	require.NoError(t, err)
	avg, err := ChannelAverageAmpPhase(ap, 4, store.AverageMethod{Statistic: store.Mean, Combination: store.Scalar})
	require.NoError(t, err)
	require.Equal(t, []int{1, 5, 9, 13, 17, 21, 25, 29, 32}, avg.Channel)

	for _, include := range []bool{false, true} {
		reg.FindOrCreate(h).IncludeFlagged = include
		vq, err := AverageAmpPhase(h, avg, reg)
		require.NoError(t, err)
		bl, _, _ := vq.BaselineIndex(1, 2)
		assert.InDelta(t, math.Sqrt2, vq.Amplitude[bl][0], 1e-6, "include flagged %v", include)
		assert.Equal(t, 0, vq.FlaggedBad[bl])
	}
}
