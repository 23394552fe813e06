package analytics

import "math"

// DefaultAnomalyThreshold is the z-score above which a point is flagged.
const DefaultAnomalyThreshold = 3.0

// Detect flags points whose z-score against the whole series exceeds the
// threshold. Short series (under 5 points) and constant series produce no
// flags: there is not enough signal to call anything an outlier.
func Detect(series []float64, threshold float64) []bool {
	flags := make([]bool, len(series))
	if len(series) < 5 {
		return flags
	}
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	variance := 0.0
	for _, v := range series {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(series))
	std := math.Sqrt(variance)
	if std == 0 {
		return flags
	}

	for i, v := range series {
		if math.Abs((v-mean)/std) > threshold {
			flags[i] = true
		}
	}
	return flags
}
