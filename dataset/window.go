package dataset

import (
	"fmt"
	"math/rand"
)

// WindowStarts returns the start offsets of every length-h window with
// the given stride over a series of length T. The final partial window is
// dropped.
func WindowStarts(T, h, stride int) ([]int, error) {
	if h < 2 {
		return nil, fmt.Errorf("dataset: horizon must be at least 2, got %d", h)
	}
	if stride < 1 {
		return nil, fmt.Errorf("dataset: stride must be positive, got %d", stride)
	}
	if T < h {
		return nil, fmt.Errorf("dataset: series of length %d shorter than horizon %d", T, h)
	}
	var starts []int
	for s := 0; s+h <= T; s += stride {
		starts = append(starts, s)
	}
	return starts, nil
}

// Batches shuffles starts with rng and groups them into batches of at
// most batchSize. The shuffle order depends only on rng, so a seeded
// source reproduces the epoch exactly.
func Batches(starts []int, batchSize int, rng *rand.Rand) [][]int {
	if batchSize < 1 {
		batchSize = len(starts)
	}
	shuffled := make([]int, len(starts))
	copy(shuffled, starts)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	var batches [][]int
	for from := 0; from < len(shuffled); from += batchSize {
		to := from + batchSize
		if to > len(shuffled) {
			to = len(shuffled)
		}
		batches = append(batches, shuffled[from:to])
	}
	return batches
}
