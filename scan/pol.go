package scan

import "fmt"

type Pol int

const (
	PolXX Pol = iota
	PolYY
	PolXY
	PolYX
	PolX
	PolY
)

var polNames = []string{"XX", "YY", "XY", "YX", "X ", "Y "}

func (p Pol) String() string {
	if p < 0 || int(p) >= len(polNames) {
		return fmt.Sprintf("Pol(%d)", int(p))
	}
	return polNames[p]
}

// ParsePol accepts the exact two-character polarisation token. Single
// letters are padded so "X" parses as "X ".
func ParsePol(s string) (Pol, error) {
	if len(s) == 1 {
		s += " "
	}
	for i, n := range polNames {
		if n == s {
			return Pol(i), nil
		}
	}
	return 0, fmt.Errorf("unknown polarisation %q", s)
}

// Feed polarisations index per-antenna calibration arrays.
const (
	FeedX = 0
	FeedY = 1
)

// Feeds returns the feed of antenna 1 and antenna 2 that form the product.
func (p Pol) Feeds() (int, int) {
	switch p {
	case PolYY, PolY:
		return FeedY, FeedY
	case PolXY:
		return FeedX, FeedY
	case PolYX:
		return FeedY, FeedX
	}
	return FeedX, FeedX
}

// Parallel reports whether the product correlates like feeds.
func (p Pol) Parallel() bool {
	f1, f2 := p.Feeds()
	return f1 == f2
}
