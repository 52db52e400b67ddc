package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCadenceThresholds(t *testing.T) {
	tests := []struct {
		name    string
		cadence Cadence
		total   int
		want    []int
	}{
		{"intent below first", IntentCadence, 4, nil},
		{"intent", IntentCadence, 45, []int{5, 10, 20, 40}},
		{"emotion", EmotionCadence, 100, []int{5, 20, 80}},
		{"risk", RiskCadence, 24, []int{3, 6, 12, 24}},
		{"myth", MythCadence, 9, []int{2, 4, 6, 8}},
		{"myth below first", MythCadence, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cadence(tt.total))
		})
	}
}

func TestShouldRun_OncePerThreshold(t *testing.T) {
	cadences := map[string]Cadence{
		"intent":  IntentCadence,
		"emotion": EmotionCadence,
		"risk":    RiskCadence,
		"myth":    MythCadence,
	}
	for name, c := range cadences {
		t.Run(name, func(t *testing.T) {
			records := 0
			for total := 1; total <= 400; total++ {
				first := ShouldRun(c, total, records)
				assert.Equal(t, first, ShouldRun(c, total, records), "must be deterministic at %d", total)
				if first {
					records++
					assert.False(t, ShouldRun(c, total, records), "second run at %d", total)
				}
			}
			assert.Equal(t, len(c(400)), records)
		})
	}
}

func TestShouldRun_EmotionWindow(t *testing.T) {
	assert.True(t, ShouldRun(EmotionCadence, 20, 1))
	assert.False(t, ShouldRun(EmotionCadence, 19, 1))
	assert.False(t, ShouldRun(EmotionCadence, 21, 2))
}

func TestShouldRun_CatchesUpAfterMissedThreshold(t *testing.T) {
	// a turn that lost its analysis at 3 still triggers one run at 7
	assert.True(t, ShouldRun(RiskCadence, 7, 1))
	assert.False(t, ShouldRun(RiskCadence, 7, 2))
}

func TestIsFeedbackMilestone(t *testing.T) {
	for k := 0; k < 12; k++ {
		n := 5 << k
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			assert.True(t, IsFeedbackMilestone(n))
			assert.False(t, IsFeedbackMilestone(n-1))
			assert.False(t, IsFeedbackMilestone(n+1))
		})
	}
	for _, n := range []int{0, 1, 15, 25, 30, 60} {
		assert.False(t, IsFeedbackMilestone(n), "%d", n)
	}
}
