package validation

import "math"

// BehaviorProfile summarizes a player's submission pattern. Human
// reaction times wobble; a stream of near-identical or impossibly
// steadily improving times points at automation.
type BehaviorProfile struct {
	SampleSize             int      `json:"sampleSize"`
	MeanMs                 float64  `json:"meanMs"`
	StdDevMs               float64  `json:"stdDevMs"`
	CoefficientOfVariation float64  `json:"coefficientOfVariation"`
	ImprovementPerAttempt  float64  `json:"improvementPerAttempt"`
	Suspicious             bool     `json:"suspicious"`
	Reasons                []string `json:"reasons,omitempty"`
}

const (
	// Humans at their most consistent still vary a few percent.
	minHumanCV = 0.02
	// Sustained improvement steeper than this across a window is not
	// practice, it is a script converging.
	maxImprovementMsPerAttempt = 15.0

	minProfileSamples = 5
)

// BuildProfile evaluates a player's recent valid times, newest first.
func BuildProfile(history []int) BehaviorProfile {
	p := BehaviorProfile{SampleSize: len(history)}
	if len(history) < minProfileSamples {
		return p
	}

	n := float64(len(history))
	var sum float64
	for _, ms := range history {
		sum += float64(ms)
	}
	p.MeanMs = sum / n

	var sqSum float64
	for _, ms := range history {
		d := float64(ms) - p.MeanMs
		sqSum += d * d
	}
	p.StdDevMs = math.Sqrt(sqSum / n)
	if p.MeanMs > 0 {
		p.CoefficientOfVariation = p.StdDevMs / p.MeanMs
	}

	// Least-squares slope of time against attempt order, oldest first.
	// A negative slope means times are dropping; flip the sign so
	// "improvement" reads positive.
	var sumX, sumY, sumXY, sumXX float64
	for i := len(history) - 1; i >= 0; i-- {
		x := float64(len(history) - 1 - i)
		y := float64(history[i])
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom != 0 {
		p.ImprovementPerAttempt = -(n*sumXY - sumX*sumY) / denom
	}

	if p.CoefficientOfVariation < minHumanCV {
		p.Suspicious = true
		p.Reasons = append(p.Reasons, "low_variance")
	}
	if p.ImprovementPerAttempt > maxImprovementMsPerAttempt {
		p.Suspicious = true
		p.Reasons = append(p.Reasons, "implausible_improvement")
	}
	return p
}
