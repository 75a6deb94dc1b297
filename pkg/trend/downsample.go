package trend

// DownsamplePoints reduces points to at most maxPoints by decimation.
// Destination-based: reuses dst if it has enough capacity, otherwise allocates.
func DownsamplePoints(dst []Point, points []Point, maxPoints int) []Point {
	return downsample(dst, points, maxPoints)
}

// DownsampleRates reduces rates to at most maxPoints by decimation.
func DownsampleRates(dst []float64, rates []float64, maxPoints int) []float64 {
	return downsample(dst, rates, maxPoints)
}

func downsample[T any](dst, src []T, maxPoints int) []T {
	if len(src) <= maxPoints {
		if cap(dst) >= len(src) {
			dst = dst[:len(src)]
			copy(dst, src)
			return dst
		}
		result := make([]T, len(src))
		copy(result, src)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]T, 0, maxPoints)
	}

	step := float64(len(src)) / float64(maxPoints)
	for i := range maxPoints {
		idx := int(float64(i) * step)
		if idx < len(src) {
			dst = append(dst, src[idx])
		}
	}
	return dst
}
