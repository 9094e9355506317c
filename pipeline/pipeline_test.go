package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chzchzchz/corrvis/scan"
	"github.com/chzchzchz/corrvis/scan/scantest"
	"github.com/chzchzchz/corrvis/store"
)

func feed(cycles []*scan.Cycle) <-chan *scan.Cycle {
	ch := make(chan *scan.Cycle)
	go func() {
		defer close(ch)
		for _, c := range cycles {
			ch <- c
		}
	}()
	return ch
}

func testCycles(h *scan.Header, n int) (ret []*scan.Cycle) {
	for i := 0; i < n; i++ {
		ret = append(ret, scantest.NewCycle(h, float64(i)*10, 1, scantest.Constant(complex(1, 1))))
	}
	return ret
}

func TestRunOrdered(t *testing.T) {
	h := scantest.NewHeader(4, scantest.Window(1, 5500, 64, 33), scantest.Window(2, 9000, 64, 33))
	reg := store.NewRegistry()
	p := NewProcessor(reg, Config{Workers: 4, Calibrate: true, Closure: true})
	cycles := testCycles(h, 20)

	results := Collect(p.Run(context.Background(), h, feed(cycles)))
	require.Len(t, results, len(cycles))
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Seq)
		assert.Same(t, cycles[i], r.Cycle)
		// Two windows by XX and YY.
		require.Len(t, r.Products, 4)
		assert.NotNil(t, r.Products[0].Quantities.Closure)
	}
	assert.Equal(t, 1, reg.Len())
	st := p.Stats()
	assert.Equal(t, len(cycles), st.Cycles)
	assert.Zero(t, st.Failed)

	// Calibration applied the online temperatures exactly once.
	assert.True(t, cycles[0].Cal.Records[0][0].OnlineTsysApplied[scan.FeedX])
}

func TestRunReportsBadCycle(t *testing.T) {
	h := scantest.NewHeader(3, scantest.Window(1, 5500, 64, 33))
	cycles := testCycles(h, 3)
	cycles[1].Baseline[0] = scan.BaselineNumber(9, 9)
	p := NewProcessor(store.NewRegistry(), Config{Workers: 2, Windows: []int{1}, Pols: []scan.Pol{scan.PolXX}})

	results := Collect(p.Run(context.Background(), h, feed(cycles)))
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Empty(t, results[1].Products)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 1, p.Stats().Failed)
}

func TestRunCancel(t *testing.T) {
	h := scantest.NewHeader(2, scantest.Window(1, 5500, 64, 33))
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan *scan.Cycle)
	p := NewProcessor(store.NewRegistry(), Config{Workers: 2})
	out := p.Run(ctx, h, in)
	in <- testCycles(h, 1)[0]
	r := <-out
	require.NoError(t, r.Err)
	cancel()
	for range out {
	}
}
