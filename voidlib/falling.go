package voidlib

import "math"

// FallingSpeed returns an expected vertical delta of a falling player at
// a given tick after the chunk around it was loaded.
func FallingSpeed(tick int) float64 {
	if tick < 0 {
		return 0
	}

	return -((math.Pow(0.98, float64(tick)) - 1) * 3.92) //nolint: gomnd
}

// FallingTable precomputes [FallingSpeed] for ticks in [0, ticks).
func FallingTable(ticks int) []float64 {
	table := make([]float64, ticks)

	for i := range table {
		table[i] = FallingSpeed(i)
	}

	return table
}
