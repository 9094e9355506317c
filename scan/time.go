package scan

import (
	"fmt"
	"math"
	"time"
)

const obsDateLayout = "2006-01-02"

var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

// MJD converts a base date and seconds past its midnight to a Modified
// Julian Date.
func MJD(obsDate string, utSeconds float64) (float64, error) {
	d, err := time.Parse(obsDateLayout, obsDate)
	if err != nil {
		return 0, fmt.Errorf("bad observation date %q: %w", obsDate, err)
	}
	days := float64(d.Unix()-mjdEpoch.Unix()) / 86400.0
	return days + utSeconds/86400.0, nil
}

// MJDTime returns the wall-clock time of an MJD.
func MJDTime(mjd float64) time.Time {
	days := math.Floor(mjd)
	frac := time.Duration((mjd - days) * 24 * float64(time.Hour))
	return mjdEpoch.AddDate(0, 0, int(days)).Add(frac)
}
