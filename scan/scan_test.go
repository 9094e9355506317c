package scan_test

import (
	"bytes"
	"context"
	"io"
	"math"
	"testing"

	"github.com/chzchzchz/corrvis/scan"
	"github.com/chzchzchz/corrvis/scan/scantest"
)

func TestMJD(t *testing.T) {
	mjd, err := scan.MJD("2000-01-01", 43200)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(mjd-51544.5) > 1e-9 {
		t.Fatalf("expected 51544.5, got %v", mjd)
	}
	// Past the range of time.Duration.
	mjd, err = scan.MJD("2200-01-01", 0)
	if err != nil {
		t.Fatal(err)
	}
	if mjd != 124593 {
		t.Fatalf("expected 124593, got %v", mjd)
	}
	if got := scan.MJDTime(mjd).Format("2006-01-02"); got != "2200-01-01" {
		t.Fatalf("expected 2200-01-01, got %s", got)
	}
	if _, err := scan.MJD("01/01/2000", 0); err == nil {
		t.Fatal("expected error on bad date")
	}
}

func TestParsePol(t *testing.T) {
	for _, s := range []string{"XX", "YY", "XY", "YX", "X ", "Y "} {
		p, err := scan.ParsePol(s)
		if err != nil {
			t.Fatal(err)
		}
		if p.String() != s {
			t.Fatalf("expected %q, got %q", s, p.String())
		}
	}
	if p, err := scan.ParsePol("X"); err != nil || p != scan.PolX {
		t.Fatalf("expected padded X, got %v %v", p, err)
	}
	if _, err := scan.ParsePol("RR"); err == nil {
		t.Fatal("expected error on RR")
	}
	if f1, f2 := scan.PolYX.Feeds(); f1 != scan.FeedY || f2 != scan.FeedX {
		t.Fatalf("bad YX feeds %d %d", f1, f2)
	}
}

func TestWindowIndexByLabel(t *testing.T) {
	h := scantest.NewHeader(2, scantest.Window(3, 5500, 2048, 33), scantest.Window(1, 9000, 2048, 33))
	idx, ok := h.WindowIndex(1)
	if !ok || idx != 1 {
		t.Fatalf("expected window 1 at index 1, got %d %v", idx, ok)
	}
	if _, ok := h.WindowIndex(2); ok {
		t.Fatal("window 2 should not exist")
	}
}

func TestStreamCycles(t *testing.T) {
	h := scantest.NewHeader(3, scantest.Window(1, 2100, 2048, 17))
	c := scantest.NewCycle(h, 100, 1, scantest.Constant(complex(1, 2)))
	c.Vis[0][4] = complex(float32(math.NaN()), 0)

	var buf bytes.Buffer
	w := scan.NewWriter(&buf)
	if err := w.WriteHeader(h); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := w.WriteCycle(c); err != nil {
			t.Fatal(err)
		}
	}

	r := scan.NewReader(&buf)
	rh, err := r.Header()
	if err != nil {
		t.Fatal(err)
	}
	if len(rh.Windows) != 1 || rh.Windows[0].NChannels != 17 {
		t.Fatalf("bad header %+v", rh)
	}
	n := 0
	for rc := range r.Cycles(context.TODO()) {
		if rc.NumSamples() != c.NumSamples() {
			t.Fatalf("expected %d samples, got %d", c.NumSamples(), rc.NumSamples())
		}
		if !math.IsNaN(float64(real(rc.Vis[0][4]))) {
			t.Fatal("flagged channel lost")
		}
		if rc.Vis[1][0] != complex(1, 2) {
			t.Fatalf("bad vis %v", rc.Vis[1][0])
		}
		n++
	}
	if r.Err() != nil {
		t.Fatal(r.Err())
	}
	if n != 3 {
		t.Fatalf("expected 3 cycles, got %d", n)
	}
}

func TestStreamNextEOF(t *testing.T) {
	for _, nchan := range []int{3, 17, 33} {
		h := scantest.NewHeader(2, scantest.Window(1, 2100, 128, nchan))
		var buf bytes.Buffer
		w := scan.NewWriter(&buf)
		if err := w.WriteHeader(h); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 2; i++ {
			if err := w.WriteCycle(scantest.NewCycle(h, float64(i), 1, scantest.Constant(1))); err != nil {
				t.Fatal(err)
			}
		}
		r := scan.NewReader(&buf)
		n := 0
		for {
			c, err := r.Next()
			if err == io.EOF {
				break
			} else if err != nil {
				t.Fatalf("nchan %d: %v", nchan, err)
			}
			if len(c.Vis[0]) != nchan*4 {
				t.Fatalf("nchan %d: got %d values", nchan, len(c.Vis[0]))
			}
			n++
		}
		if n != 2 {
			t.Fatalf("nchan %d: expected 2 cycles, got %d", nchan, n)
		}
	}
}

func TestEmptyStream(t *testing.T) {
	r := scan.NewReader(bytes.NewBufferString("\n"))
	if _, err := r.Header(); err != scan.ErrNoHeader {
		t.Fatalf("expected ErrNoHeader, got %v", err)
	}
}

func TestBaselineIndex(t *testing.T) {
	c := &scan.Cycle{BaselineList: scan.EnumerateBaselines(3)}
	if len(c.BaselineList) != 6 {
		t.Fatalf("expected 6 baselines, got %d", len(c.BaselineList))
	}
	if idx, err := c.BaselineIndex(scan.BaselineNumber(2, 3)); err != nil || idx != 4 {
		t.Fatalf("expected index 4, got %d %v", idx, err)
	}
	if _, err := c.BaselineIndex(scan.BaselineNumber(1, 9)); err == nil {
		t.Fatal("expected unknown baseline error")
	}
}
