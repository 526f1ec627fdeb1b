package engine

import "math/rand/v2"

// CountLossMarkers counts the zero-valued cells
func CountLossMarkers(cells []Cell) int {
	count := 0
	for _, cell := range cells {
		if cell.IsLossMarker() {
			count++
		}
	}
	return count
}

// sampleDistinct draws k distinct integers uniformly from [lo, hi] using
// Floyd's algorithm, so the cost is O(k) regardless of the range width.
func sampleDistinct(rng *rand.Rand, lo, hi, k int) []int {
	n := hi - lo + 1
	seen := make(map[int]struct{}, k)
	out := make([]int, 0, k)

	for j := n - k; j < n; j++ {
		t := intN(rng, j+1)
		if _, dup := seen[t]; dup {
			t = j
		}
		seen[t] = struct{}{}
		out = append(out, lo+t)
	}
	return out
}

func intN(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}

func shuffle(rng *rand.Rand, n int, swap func(i, j int)) {
	if rng == nil {
		rand.Shuffle(n, swap)
		return
	}
	rng.Shuffle(n, swap)
}
