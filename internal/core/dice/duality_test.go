package dice

import "testing"

func intPtr(v int) *int { return &v }

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hope, fear int
		want       ResultType
	}{
		{7, 7, ResultCritical},
		{1, 1, ResultCritical},
		{9, 3, ResultHope},
		{12, 11, ResultHope},
		{3, 9, ResultFear},
		{1, 12, ResultFear},
	}
	for _, tt := range tests {
		if got := Classify(tt.hope, tt.fear); got != tt.want {
			t.Fatalf("Classify(%d, %d) = %v, want %v", tt.hope, tt.fear, got, tt.want)
		}
	}
}

func TestEvaluateOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		request OutcomeRequest
		want    Outcome
		meets   bool
		total   int
	}{
		{"hope without difficulty", OutcomeRequest{Hope: 8, Fear: 3, Modifier: 2}, OutcomeRollWithHope, false, 13},
		{"fear without difficulty", OutcomeRequest{Hope: 2, Fear: 6}, OutcomeRollWithFear, false, 8},
		{"critical", OutcomeRequest{Hope: 5, Fear: 5, Difficulty: intPtr(30)}, OutcomeCriticalSuccess, true, 10},
		{"success with hope", OutcomeRequest{Hope: 9, Fear: 4, Difficulty: intPtr(12)}, OutcomeSuccessWithHope, true, 13},
		{"success with fear", OutcomeRequest{Hope: 4, Fear: 9, Difficulty: intPtr(13)}, OutcomeSuccessWithFear, true, 13},
		{"failure with hope", OutcomeRequest{Hope: 6, Fear: 2, Difficulty: intPtr(15)}, OutcomeFailureWithHope, false, 8},
		{"failure with fear", OutcomeRequest{Hope: 2, Fear: 6, Modifier: -1, Difficulty: intPtr(15)}, OutcomeFailureWithFear, false, 7},
		{"custom sides", OutcomeRequest{Hope: 20, Fear: 3, HopeSides: 20, FearSides: 6}, OutcomeRollWithHope, false, 23},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := EvaluateOutcome(tt.request)
			if err != nil {
				t.Fatalf("EvaluateOutcome() error = %v", err)
			}
			if got.Outcome != tt.want {
				t.Fatalf("Outcome = %v, want %v", got.Outcome, tt.want)
			}
			if got.MeetsDifficulty != tt.meets {
				t.Fatalf("MeetsDifficulty = %v, want %v", got.MeetsDifficulty, tt.meets)
			}
			if got.Total != tt.total {
				t.Fatalf("Total = %d, want %d", got.Total, tt.total)
			}
		})
	}
}

func TestEvaluateOutcomeMargin(t *testing.T) {
	t.Parallel()

	crit, err := EvaluateOutcome(OutcomeRequest{Hope: 5, Fear: 5, Difficulty: intPtr(30)})
	if err != nil {
		t.Fatalf("EvaluateOutcome() error = %v", err)
	}
	if !crit.MeetsDifficulty || crit.Margin != -20 {
		t.Fatalf("critical meets = %v margin = %d, want true -20", crit.MeetsDifficulty, crit.Margin)
	}

	open, err := EvaluateOutcome(OutcomeRequest{Hope: 9, Fear: 2})
	if err != nil {
		t.Fatalf("EvaluateOutcome() error = %v", err)
	}
	if open.Margin != 0 {
		t.Fatalf("margin without difficulty = %d, want 0", open.Margin)
	}
}

func TestEvaluateOutcomeRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := EvaluateOutcome(OutcomeRequest{Hope: 13, Fear: 2}); err != ErrInvalidDualityDie {
		t.Fatalf("error = %v, want %v", err, ErrInvalidDualityDie)
	}
	if _, err := EvaluateOutcome(OutcomeRequest{Hope: 0, Fear: 2}); err != ErrInvalidDualityDie {
		t.Fatalf("error = %v, want %v", err, ErrInvalidDualityDie)
	}
	if _, err := EvaluateOutcome(OutcomeRequest{Hope: 3, Fear: 2, Difficulty: intPtr(-1)}); err != ErrInvalidDifficulty {
		t.Fatalf("error = %v, want %v", err, ErrInvalidDifficulty)
	}
}
