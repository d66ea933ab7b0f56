package dice

import (
	"errors"

	"github.com/louisbranch/dualitydice/internal/core/check"
)

// ErrInvalidDifficulty indicates the difficulty is invalid for a roll.
var ErrInvalidDifficulty = errors.New("difficulty must be non-negative")

// ErrInvalidDualityDie indicates hope or fear dice fall outside their die.
var ErrInvalidDualityDie = errors.New("duality dice must be within their die size")

// ResultType classifies a duality roll purely from the two dice.
type ResultType int

const (
	ResultUnspecified ResultType = iota
	ResultCritical
	ResultHope
	ResultFear
)

func (r ResultType) String() string {
	switch r {
	case ResultCritical:
		return "critical"
	case ResultHope:
		return "hope"
	case ResultFear:
		return "fear"
	default:
		return "unspecified"
	}
}

// Classify returns critical on a tie, hope when hope is higher, fear otherwise.
func Classify(hope, fear int) ResultType {
	switch {
	case hope == fear:
		return ResultCritical
	case hope > fear:
		return ResultHope
	default:
		return ResultFear
	}
}

// Outcome represents the outcome of an action roll.
type Outcome int

const (
	OutcomeUnspecified Outcome = iota
	OutcomeRollWithHope
	OutcomeRollWithFear
	OutcomeSuccessWithHope
	OutcomeSuccessWithFear
	OutcomeFailureWithHope
	OutcomeFailureWithFear
	OutcomeCriticalSuccess
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnspecified:
		return "Unspecified"
	case OutcomeRollWithHope:
		return "Roll with hope"
	case OutcomeRollWithFear:
		return "Roll with fear"
	case OutcomeSuccessWithHope:
		return "Success with hope"
	case OutcomeSuccessWithFear:
		return "Success with fear"
	case OutcomeFailureWithHope:
		return "Failure with hope"
	case OutcomeFailureWithFear:
		return "Failure with fear"
	case OutcomeCriticalSuccess:
		return "Critical success"
	default:
		return "Unknown"
	}
}

// OutcomeRequest describes a deterministic duality outcome evaluation.
// Zero die sizes default to 12.
type OutcomeRequest struct {
	Hope       int
	Fear       int
	HopeSides  int
	FearSides  int
	Modifier   int
	Difficulty *int
}

// OutcomeResult captures the deterministic outcome evaluation.
type OutcomeResult struct {
	Hope            int
	Fear            int
	Modifier        int
	Difficulty      *int
	Total           int
	Type            ResultType
	MeetsDifficulty bool
	// Margin is Total minus Difficulty; zero without a difficulty.
	Margin  int
	Outcome Outcome
}

// EvaluateOutcome deterministically resolves a duality roll outcome.
// A critical always meets the difficulty.
func EvaluateOutcome(request OutcomeRequest) (OutcomeResult, error) {
	hopeSides := request.HopeSides
	if hopeSides <= 0 {
		hopeSides = 12
	}
	fearSides := request.FearSides
	if fearSides <= 0 {
		fearSides = 12
	}
	if request.Hope < 1 || request.Hope > hopeSides || request.Fear < 1 || request.Fear > fearSides {
		return OutcomeResult{}, ErrInvalidDualityDie
	}
	if request.Difficulty != nil && *request.Difficulty < 0 {
		return OutcomeResult{}, ErrInvalidDifficulty
	}

	total := request.Hope + request.Fear + request.Modifier
	kind := Classify(request.Hope, request.Fear)
	var verdict check.Result
	meets := false
	if request.Difficulty != nil {
		verdict = check.Against(total, *request.Difficulty, kind == ResultCritical)
		meets = verdict.Success
	}

	outcome := OutcomeUnspecified
	switch {
	case kind == ResultCritical:
		outcome = OutcomeCriticalSuccess
	case request.Difficulty == nil && kind == ResultHope:
		outcome = OutcomeRollWithHope
	case request.Difficulty == nil:
		outcome = OutcomeRollWithFear
	case meets && kind == ResultHope:
		outcome = OutcomeSuccessWithHope
	case meets:
		outcome = OutcomeSuccessWithFear
	case kind == ResultHope:
		outcome = OutcomeFailureWithHope
	default:
		outcome = OutcomeFailureWithFear
	}

	return OutcomeResult{
		Hope:            request.Hope,
		Fear:            request.Fear,
		Modifier:        request.Modifier,
		Difficulty:      request.Difficulty,
		Total:           total,
		Type:            kind,
		MeetsDifficulty: meets,
		Margin:          verdict.Margin,
		Outcome:         outcome,
	}, nil
}
