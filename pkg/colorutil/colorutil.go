// Package colorutil provides shared color utilities for pixel sampling
// and marker matching.
package colorutil

import "image/color"

// DistanceSq returns the squared Euclidean distance between two colors
// in RGB space. The square root is skipped on purpose: callers compare
// against squared thresholds.
func DistanceSq(a, b color.RGBA) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

// Nearest returns the index of the reference color closest to c and the
// squared distance to it. It returns -1 for an empty reference slice.
func Nearest(refs []color.RGBA, c color.RGBA) (int, int) {
	best := -1
	bestDist := 0
	for i, ref := range refs {
		d := DistanceSq(ref, c)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}
