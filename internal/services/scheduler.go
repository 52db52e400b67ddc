package services

// Cadence reports every threshold at or below total, in ascending order.
// Each analyzer kind owns one cadence; they are deliberately different.
type Cadence func(total int) []int

// geometricCadence yields start, start*factor, start*factor^2, ...
func geometricCadence(start, factor int) Cadence {
	return func(total int) []int {
		var out []int
		for t := start; t <= total; t *= factor {
			out = append(out, t)
		}
		return out
	}
}

var (
	// IntentCadence fires at 5, 10, 20, 40, ...
	IntentCadence = geometricCadence(5, 2)
	// EmotionCadence fires at 5, 20, 80, 320, ...
	EmotionCadence = geometricCadence(5, 4)
	// RiskCadence fires at 3, 6, 12, 24, ...
	RiskCadence = geometricCadence(3, 2)
)

// MythCadence fires on every even count from 2.
func MythCadence(total int) []int {
	var out []int
	for t := 2; t <= total; t += 2 {
		out = append(out, t)
	}
	return out
}

// ShouldRun is true when more thresholds have been crossed than records
// exist. It depends only on its inputs, so a repeated call after a record
// has been saved for the latest threshold returns false.
func ShouldRun(c Cadence, totalMessages, recordsSaved int) bool {
	return len(c(totalMessages)) > recordsSaved
}

// IsFeedbackMilestone reports whether n is 5·2^k for some k >= 0.
func IsFeedbackMilestone(n int) bool {
	if n < 5 || n%5 != 0 {
		return false
	}
	q := n / 5
	return q&(q-1) == 0
}
