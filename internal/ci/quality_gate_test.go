package ci

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sivchari/mutir/internal/report"
)

func TestQualityGateEvaluator_Evaluate(t *testing.T) {
	testCases := []struct {
		name           string
		enabled        bool
		minScore       float64
		maxSurvivors   int
		summary        *report.Summary
		expectedPass   bool
		expectedScore  float64
		expectedReason string
	}{
		{
			name:     "disabled quality gate",
			enabled:  false,
			minScore: 80.0,
			summary: &report.Summary{
				TotalMutants: 100,
				Statistics:   report.Statistics{Score: 60.0, Survived: 40},
			},
			expectedPass:   true,
			expectedScore:  60.0,
			expectedReason: "quality gate disabled",
		},
		{
			name:     "pass quality gate",
			enabled:  true,
			minScore: 80.0,
			summary: &report.Summary{
				TotalMutants: 100,
				Statistics:   report.Statistics{Score: 85.0, Survived: 15},
			},
			expectedPass:   true,
			expectedScore:  85.0,
			expectedReason: "mutation score meets minimum threshold",
		},
		{
			name:     "fail on score",
			enabled:  true,
			minScore: 80.0,
			summary: &report.Summary{
				TotalMutants: 100,
				Statistics:   report.Statistics{Score: 70.0, Survived: 30},
			},
			expectedPass:   false,
			expectedScore:  70.0,
			expectedReason: "mutation score 70.0% is below minimum threshold of 80.0%",
		},
		{
			name:         "fail on survivor count even with a passing score",
			enabled:      true,
			minScore:     50.0,
			maxSurvivors: 2,
			summary: &report.Summary{
				TotalMutants: 100,
				Statistics:   report.Statistics{Score: 90.0, Survived: 5},
			},
			expectedPass:   false,
			expectedScore:  90.0,
			expectedReason: "5 surviving mutants exceeds maximum of 2",
		},
		{
			name:     "zero mutants",
			enabled:  true,
			minScore: 80.0,
			summary: &report.Summary{
				TotalMutants: 0,
			},
			expectedPass:   false,
			expectedScore:  0.0,
			expectedReason: "no mutants generated",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			evaluator := NewQualityGateEvaluator(tc.enabled, tc.minScore, tc.maxSurvivors)
			result := evaluator.Evaluate(tc.summary)

			assert.Equal(t, tc.expectedPass, result.Pass)
			assert.InDelta(t, tc.expectedScore, result.MutationScore, 0.01)
			assert.Equal(t, tc.expectedReason, result.Reason)
		})
	}
}

func TestQualityGateEvaluator_Evaluate_NilSummary(t *testing.T) {
	evaluator := NewQualityGateEvaluator(true, 80.0, 0)

	result := evaluator.Evaluate(nil)
	assert.False(t, result.Pass)
	assert.Equal(t, "no mutants generated", result.Reason)
}

func TestQualityGateEvaluator_Evaluate_ExactThreshold(t *testing.T) {
	evaluator := NewQualityGateEvaluator(true, 80.0, 0)

	summary := &report.Summary{
		TotalMutants: 100,
		Statistics:   report.Statistics{Score: 80.0, Survived: 20},
	}

	result := evaluator.Evaluate(summary)
	assert.True(t, result.Pass)
}
