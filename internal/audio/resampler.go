package audio

import "math"

// TargetSampleRate is the canonical sample rate for all audio sent to the
// analysis backend. Capture devices may run at any rate; everything is
// converted to this rate before encoding.
const TargetSampleRate = 16000

// Resample converts mono float32 samples from srcRate to dstRate using
// linear interpolation. When srcRate == dstRate the input slice is returned
// unchanged without copying. The output length is round(len * dstRate / srcRate).
//
// For the final output positions whose interpolation partner would fall past
// the end of the input, the nearest source sample is used instead of
// extrapolating. The function is pure: it never modifies the input.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate {
		return samples
	}

	if len(samples) == 0 {
		return nil
	}

	ratio := float64(srcRate) / float64(dstRate)
	outLen := int(math.Round(float64(len(samples)) / ratio))
	if outLen == 0 {
		return nil
	}

	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples) {
			idx = len(samples) - 1
		}

		// Interpolate against the next sample when one exists,
		// otherwise fall back to nearest-neighbor at the tail.
		if idx+1 < len(samples) {
			frac := float32(pos - float64(idx))
			out[i] = samples[idx] + (samples[idx+1]-samples[idx])*frac
		} else {
			out[i] = samples[idx]
		}
	}

	return out
}
