// Package pipeline runs the visibility engine over a stream of cycles with
// a pool of workers.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chzchzchz/corrvis/scan"
	"github.com/chzchzchz/corrvis/store"
	"github.com/chzchzchz/corrvis/vis"
)

type Config struct {
	// Windows to extract by label; empty means every window.
	Windows []int
	// Pols to extract; empty means XX and YY.
	Pols    []scan.Pol
	Workers int
	// Calibrate puts each cycle in the Tsys state its options ask for
	// before extraction.
	Calibrate bool
	// Closure computes closure phases around the options' reference
	// antenna.
	Closure bool
}

// Product is one window and polarisation of a processed cycle.
type Product struct {
	Window     int
	Pol        scan.Pol
	AmpPhase   *vis.AmpPhase
	Quantities *vis.VisQuantities
}

// Result carries a cycle through the pipeline. Err is set when the cycle
// could not be processed; the other cycles are unaffected.
type Result struct {
	Seq      int
	Cycle    *scan.Cycle
	Products []Product
	Err      error
}

type Stats struct {
	Cycles int
	Failed int
	Busy   time.Duration
}

type Processor struct {
	cfg Config
	reg *store.Registry

	mu    sync.Mutex
	stats Stats
}

func NewProcessor(reg *store.Registry, cfg Config) *Processor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if len(cfg.Pols) == 0 {
		cfg.Pols = []scan.Pol{scan.PolXX, scan.PolYY}
	}
	return &Processor{cfg: cfg, reg: reg}
}

func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

type seqCycle struct {
	seq int
	c   *scan.Cycle
}

// Run processes cycles from in until it closes or ctx is cancelled.
// Results arrive in input order. The header's options entry is resolved
// before any worker starts, so workers only ever read the registry.
func (p *Processor) Run(ctx context.Context, h *scan.Header, in <-chan *scan.Cycle) <-chan Result {
	p.reg.FindOrCreate(h)
	windows := p.cfg.Windows
	if len(windows) == 0 {
		for _, w := range h.Windows {
			windows = append(windows, w.Label)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	work := make(chan seqCycle, p.cfg.Workers)
	done := make(chan Result, p.cfg.Workers)
	g.Go(func() error {
		defer close(work)
		seq := 0
		for {
			select {
			case c, ok := <-in:
				if !ok {
					return nil
				}
				select {
				case work <- seqCycle{seq, c}:
					seq++
				case <-gctx.Done():
					return gctx.Err()
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	for i := 0; i < p.cfg.Workers; i++ {
		g.Go(func() error {
			for sc := range work {
				r := p.process(h, sc.c, windows)
				r.Seq = sc.seq
				select {
				case done <- r:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		if err := g.Wait(); err != nil && err != context.Canceled {
			log.Printf("pipeline: %v", err)
		}
		close(done)
	}()

	out := make(chan Result)
	go func() {
		defer close(out)
		pending := make(map[int]Result)
		next := 0
		for r := range done {
			pending[r.Seq] = r
			for {
				r, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				select {
				case out <- r:
				case <-ctx.Done():
					// Drain so the workers can exit.
					for range done {
					}
					return
				}
				next++
			}
		}
	}()
	return out
}

func (p *Processor) process(h *scan.Header, c *scan.Cycle, windows []int) (r Result) {
	start := time.Now()
	defer func() {
		p.mu.Lock()
		p.stats.Cycles++
		if r.Err != nil {
			p.stats.Failed++
		}
		p.stats.Busy += time.Since(start)
		p.mu.Unlock()
	}()

	r.Cycle = c
	if p.cfg.Calibrate {
		if err := vis.CalibrateCycle(c, h, p.reg); err != nil {
			r.Err = fmt.Errorf("calibrate cycle at %.1fs: %w", c.UTSeconds, err)
			return r
		}
	}
	for _, w := range windows {
		for _, pol := range p.cfg.Pols {
			ap, err := vis.ComputeAmpPhase(h, c, w, pol, p.reg)
			if err != nil {
				r.Err = fmt.Errorf("window %d %v at %.1fs: %w", w, pol, c.UTSeconds, err)
				return r
			}
			vq, err := vis.AverageAmpPhase(h, ap, p.reg)
			if err != nil {
				r.Err = fmt.Errorf("average window %d %v: %w", w, pol, err)
				return r
			}
			if p.cfg.Closure {
				if err := vis.ComputeClosurePhase(h, vq, vq.Options.ReferenceAntenna); err != nil {
					r.Err = fmt.Errorf("closure window %d %v: %w", w, pol, err)
					return r
				}
			}
			r.Products = append(r.Products, Product{Window: w, Pol: pol, AmpPhase: ap, Quantities: vq})
		}
	}
	return r
}

// Collect drains a result channel.
func Collect(results <-chan Result) (ret []Result) {
	for r := range results {
		ret = append(ret, r)
	}
	return ret
}
