package dsp

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/chzchzchz/corrvis/store"
)

func TestMedian(t *testing.T) {
	if m := Median([]float64{3, 1, 2}); m != 2 {
		t.Fatalf("expected 2, got %v", m)
	}
	xs := []float64{4, 1, 3, 2}
	if m := Median(xs); m != 2.5 {
		t.Fatalf("expected 2.5, got %v", m)
	}
	if xs[0] != 4 {
		t.Fatal("median reordered its input")
	}
	if m := Median(nil); m != 0 {
		t.Fatalf("expected 0 for empty input, got %v", m)
	}
}

func TestReduce(t *testing.T) {
	xs := []float64{1, 2, 3, 10}
	if v := Reduce(store.Mean, xs); v != 4 {
		t.Fatalf("expected mean 4, got %v", v)
	}
	if v := Reduce(store.Median, xs); v != 2.5 {
		t.Fatalf("expected median 2.5, got %v", v)
	}
	z := ReduceComplex(store.Median, []complex128{complex(1, 5), complex(3, -1), complex(2, 0)})
	if z != complex(2, 0) {
		t.Fatalf("expected 2+0i, got %v", z)
	}
}

func TestResolveWrap(t *testing.T) {
	tests := []struct {
		d, want float64
		deg     bool
	}{
		{350, -10, true},
		{-350, 10, true},
		{90, 90, true},
		{1.5 * math.Pi, -0.5 * math.Pi, false},
	}
	for _, tt := range tests {
		if got := ResolveWrap(tt.d, tt.deg); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ResolveWrap(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
	if w := Wrap(540, true); w != 180 {
		t.Fatalf("expected 180, got %v", w)
	}
	if w := Wrap(-190, true); math.Abs(w-170) > 1e-9 {
		t.Fatalf("expected 170, got %v", w)
	}
}

func TestPhaseDelay(t *testing.T) {
	// 1ns across 1MHz turns 2*pi/1000 radians.
	d := PhaseDelay(2*math.Pi/1000, false, 1)
	if math.Abs(d-1) > 1e-9 {
		t.Fatalf("expected 1ns, got %v", d)
	}
	if d := PhaseDelay(0.36, true, 1); math.Abs(d-1) > 1e-9 {
		t.Fatalf("expected 1ns from degrees, got %v", d)
	}
}

func TestLagSpectrum(t *testing.T) {
	const tau = 25.0 // ns
	const width = 1.0
	spec := make([]complex128, 512)
	for i := range spec {
		f := float64(i) * width
		spec[i] = cmplx.Exp(complex(0, 2*math.Pi*f*tau/1e3))
	}
	spec[10] = complex(math.NaN(), 0)
	ls := NewLagSpectrum(spec, width, 4)
	// One lag bin is 1/(n*width) us.
	bin := 1e3 / (float64(len(ls.Amplitude)) * width)
	if d := ls.Delay(); math.Abs(d-tau) > bin {
		t.Fatalf("expected %vns within %v, got %v", tau, bin, d)
	}
	if ls.Peak() <= 0 {
		t.Fatal("expected non-zero peak")
	}
}

func TestRange(t *testing.T) {
	r := NewRange()
	if r.Valid() {
		t.Fatal("empty range reported valid")
	}
	for _, v := range []float64{3, math.NaN(), -2, 7} {
		r.Update(v)
	}
	if r.Min != -2 || r.Max != 7 {
		t.Fatalf("bad range %+v", r)
	}
}
