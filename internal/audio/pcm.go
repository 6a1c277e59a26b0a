package audio

import "math"

// Quantize converts float32 samples in [-1, 1] to 16-bit PCM. Out-of-range
// samples are clamped. Positive values scale by 32767 and negative values by
// 32768 so that both full-scale extremes map onto representable integers,
// rounding to the nearest value.
func Quantize(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}

		var v float64
		if s >= 0 {
			v = float64(s) * 32767
		} else {
			v = float64(s) * 32768
		}
		out[i] = int16(math.Round(v))
	}
	return out
}
