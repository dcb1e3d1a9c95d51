package validation

import (
	"math"
	"sort"
)

// OutlierAnalysis compares a candidate time against the player's own
// history using a median/MAD robust z-score, which a couple of wild
// attempts cannot drag around the way a mean could.
type OutlierAnalysis struct {
	SampleSize int     `json:"sampleSize"`
	MedianMs   float64 `json:"medianMs"`
	MAD        float64 `json:"mad"`
	ZScore     float64 `json:"zScore"`
	IsOutlier  bool    `json:"isOutlier"`
}

// outlierZThreshold is the modified z-score beyond which a time is
// implausibly far below the player's baseline. Only the fast side
// flags: slow outliers are just bad attempts.
const outlierZThreshold = -3.5

// madFallbackMs flags when history has zero spread (MAD of 0) and the
// candidate still lands far from the flat baseline.
const madFallbackMs = 100

// minOutlierSamples is the history size below which no judgment is made.
const minOutlierSamples = 5

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// AnalyzeOutlier scores candidate against history. With fewer than
// minOutlierSamples entries the analysis is returned unjudged.
func AnalyzeOutlier(history []int, candidateMs int) OutlierAnalysis {
	oa := OutlierAnalysis{SampleSize: len(history)}
	if len(history) < minOutlierSamples {
		return oa
	}

	sorted := make([]float64, len(history))
	for i, ms := range history {
		sorted[i] = float64(ms)
	}
	sort.Float64s(sorted)
	oa.MedianMs = median(sorted)

	deviations := make([]float64, len(sorted))
	for i, v := range sorted {
		deviations[i] = math.Abs(v - oa.MedianMs)
	}
	sort.Float64s(deviations)
	oa.MAD = median(deviations)

	delta := float64(candidateMs) - oa.MedianMs
	if oa.MAD == 0 {
		if delta <= -madFallbackMs {
			oa.ZScore = math.Inf(-1)
			oa.IsOutlier = true
		}
		return oa
	}

	// 0.6745 scales MAD to be comparable with a standard deviation.
	oa.ZScore = 0.6745 * delta / oa.MAD
	oa.IsOutlier = oa.ZScore <= outlierZThreshold
	return oa
}
