package quran

import "math/rand/v2"

// RandomIndex draws a global verse number uniformly from [1, TotalVerses].
// A nil rng uses the global source.
func RandomIndex(rng *rand.Rand) int {
	if rng == nil {
		return rand.IntN(TotalVerses) + 1
	}
	return rng.IntN(TotalVerses) + 1
}
