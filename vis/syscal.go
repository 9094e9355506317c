package vis

import (
	"github.com/chzchzchz/corrvis/scan"
)

// SyscalAntenna is one antenna's calibration in a single window. The
// per-feed slices follow Feeds.
type SyscalAntenna struct {
	Antenna     int
	ParAngle    float64
	TrackErrMax float64
	TrackErrRMS float64
	Flagging    int
	XYPhase     float64
	XYAmp       float64

	Feeds               []int
	OnlineTsys          []float64
	OnlineTsysApplied   []bool
	ComputedTsys        []float64
	ComputedTsysApplied []bool
	CalJy               []float64
}

// Syscal is a snapshot of a cycle's calibration restricted to one window.
type Syscal struct {
	Window    int
	UTSeconds float64
	Weather   scan.Weather
	Antennas  []SyscalAntenna
}

// Antenna returns the entry for antenna number ant.
func (s *Syscal) Antenna(ant int) *SyscalAntenna {
	for i := range s.Antennas {
		if s.Antennas[i].Antenna == ant {
			return &s.Antennas[i]
		}
	}
	return nil
}

// Tsys returns the online and computed temperature of a feed.
func (sa *SyscalAntenna) Tsys(feed int) (online, computed float64, ok bool) {
	for i, f := range sa.Feeds {
		if f == feed {
			return sa.OnlineTsys[i], sa.ComputedTsys[i], true
		}
	}
	return 0, 0, false
}

// newSyscal copies the window's calibration. Parallel products keep only
// their own temperature column.
func newSyscal(c *scan.Cycle, widx, label int, pol scan.Pol) *Syscal {
	feeds := []int{scan.FeedX, scan.FeedY}
	switch pol {
	case scan.PolXX:
		feeds = []int{scan.FeedX}
	case scan.PolYY:
		feeds = []int{scan.FeedY}
	}
	s := &Syscal{Window: label, UTSeconds: c.UTSeconds, Weather: c.Cal.Weather}
	for i := range c.Cal.Records {
		if widx >= len(c.Cal.Records[i]) {
			continue
		}
		r := &c.Cal.Records[i][widx]
		sa := SyscalAntenna{
			Antenna:     r.Antenna,
			ParAngle:    r.ParAngle,
			TrackErrMax: r.TrackErrMax,
			TrackErrRMS: r.TrackErrRMS,
			Flagging:    r.Flagging,
			XYPhase:     r.XYPhase,
			XYAmp:       r.XYAmp,
			Feeds:       feeds,
		}
		for _, f := range feeds {
			sa.OnlineTsys = append(sa.OnlineTsys, r.OnlineTsys[f])
			sa.OnlineTsysApplied = append(sa.OnlineTsysApplied, r.OnlineTsysApplied[f])
			sa.ComputedTsys = append(sa.ComputedTsys, r.ComputedTsys[f])
			sa.ComputedTsysApplied = append(sa.ComputedTsysApplied, r.ComputedTsysApplied[f])
			sa.CalJy = append(sa.CalJy, r.CalJy[f])
		}
		s.Antennas = append(s.Antennas, sa)
	}
	return s
}
