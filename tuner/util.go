// tuner/util.go
package tuner

import "golang.org/x/exp/constraints"

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// chunkBounds splits n items into contiguous ranges of ceil(n/parts).
func chunkBounds(n, parts int) [][2]int {
	if n == 0 {
		return nil
	}
	parts = clamp(parts, 1, n)
	size := (n + parts - 1) / parts
	out := make([][2]int, 0, parts)
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}
