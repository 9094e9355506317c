package scan

import (
	"context"
	"errors"
	"io"
	"math"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNoHeader = errors.New("scan stream has no header")

// sampleRecord is the stream encoding of one cycle sample. NaN does not
// survive JSON, so channels with a NaN real part are listed in Flagged.
type sampleRecord struct {
	Baseline int          `json:"baseline"`
	Window   int          `json:"window"`
	Bin      int          `json:"bin"`
	Source   int          `json:"source"`
	Vis      [][2]float32 `json:"vis"`
	Weight   []float32    `json:"weight,omitempty"`
	Flagged  []int        `json:"flagged,omitempty"`
}

type cycleRecord struct {
	UTSeconds    float64        `json:"ut_seconds"`
	BaselineList []int          `json:"baseline_list"`
	Samples      []sampleRecord `json:"samples"`
	Cal          Calibration    `json:"cal"`
}

// Reader decodes a scan stream: one JSON header followed by JSON cycles.
type Reader struct {
	dec *jsoniter.Decoder
	hdr *Header
	err error
}

func NewReader(r io.Reader) *Reader {
	if r == nil {
		panic("nil reader")
	}
	return &Reader{dec: json.NewDecoder(r)}
}

// Header decodes the scan header if it has not been read yet.
func (sr *Reader) Header() (*Header, error) {
	if sr.hdr != nil {
		return sr.hdr, nil
	}
	if !sr.dec.More() {
		return nil, ErrNoHeader
	}
	var hdr Header
	if err := sr.dec.Decode(&hdr); err != nil {
		if err == io.EOF {
			return nil, ErrNoHeader
		}
		return nil, err
	}
	sr.hdr = &hdr
	return sr.hdr, nil
}

// Next decodes the next cycle, returning io.EOF at the end of the stream.
func (sr *Reader) Next() (*Cycle, error) {
	if _, err := sr.Header(); err != nil {
		return nil, err
	}
	// Each record ends in a newline the decoder would otherwise try to
	// read as a value.
	if !sr.dec.More() {
		return nil, io.EOF
	}
	var rec cycleRecord
	if err := sr.dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec.cycle(), nil
}

// Err returns the first non-EOF error hit by Cycles.
func (sr *Reader) Err() error { return sr.err }

// Cycles streams decoded cycles until the input is exhausted or ctx ends.
func (sr *Reader) Cycles(ctx context.Context) <-chan *Cycle {
	ch := make(chan *Cycle, 1)
	go func() {
		defer close(ch)
		for {
			c, err := sr.Next()
			if err != nil {
				if err != io.EOF {
					sr.err = err
				}
				return
			}
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (rec *cycleRecord) cycle() *Cycle {
	c := &Cycle{
		UTSeconds:    rec.UTSeconds,
		BaselineList: rec.BaselineList,
		Cal:          rec.Cal,
	}
	nan := float32(math.NaN())
	for _, s := range rec.Samples {
		c.Baseline = append(c.Baseline, s.Baseline)
		c.Window = append(c.Window, s.Window)
		c.Bin = append(c.Bin, s.Bin)
		c.Source = append(c.Source, s.Source)
		vis := make([]complex64, len(s.Vis))
		for i, v := range s.Vis {
			vis[i] = complex(v[0], v[1])
		}
		for _, i := range s.Flagged {
			if i >= 0 && i < len(vis) {
				vis[i] = complex(nan, imag(vis[i]))
			}
		}
		w := s.Weight
		if len(w) == 0 {
			w = make([]float32, len(vis))
			for i := range w {
				w[i] = 1
			}
		}
		c.Vis = append(c.Vis, vis)
		c.Weight = append(c.Weight, w)
	}
	return c
}

// Writer encodes a scan stream readable by Reader.
type Writer struct{ enc *jsoniter.Encoder }

func NewWriter(w io.Writer) *Writer { return &Writer{json.NewEncoder(w)} }

func (sw *Writer) WriteHeader(h *Header) error { return sw.enc.Encode(h) }

func (sw *Writer) WriteCycle(c *Cycle) error {
	rec := cycleRecord{
		UTSeconds:    c.UTSeconds,
		BaselineList: c.BaselineList,
		Cal:          c.Cal,
		Samples:      make([]sampleRecord, c.NumSamples()),
	}
	for i := range rec.Samples {
		s := sampleRecord{
			Baseline: c.Baseline[i],
			Window:   c.Window[i],
			Bin:      c.Bin[i],
			Source:   c.Source[i],
			Vis:      make([][2]float32, len(c.Vis[i])),
			Weight:   c.Weight[i],
		}
		for j, v := range c.Vis[i] {
			re := real(v)
			if math.IsNaN(float64(re)) {
				s.Flagged = append(s.Flagged, j)
				re = 0
			}
			s.Vis[j] = [2]float32{re, imag(v)}
		}
		rec.Samples[i] = s
	}
	return sw.enc.Encode(&rec)
}
