package scan

// BaselineNumber encodes an antenna pair the way the record format does.
func BaselineNumber(ant1, ant2 int) int { return 256*ant1 + ant2 }

// BaselineAntennas decodes a baseline number into its antenna pair.
func BaselineAntennas(bl int) (int, int) { return bl / 256, bl % 256 }

func IsAutocorrelation(bl int) bool {
	a1, a2 := BaselineAntennas(bl)
	return a1 == a2
}

// EnumerateBaselines lists every baseline of an n antenna array, including
// autocorrelations, in a1 <= a2 order.
func EnumerateBaselines(nants int) []int {
	ret := make([]int, 0, nants*(nants+1)/2)
	for a1 := 1; a1 <= nants; a1++ {
		for a2 := a1; a2 <= nants; a2++ {
			ret = append(ret, BaselineNumber(a1, a2))
		}
	}
	return ret
}
