// Package check compares a roll total against a difficulty.
package check

// Result is one difficulty check.
type Result struct {
	Total      int
	Difficulty int
	// Margin is Total minus Difficulty, kept as is for forced successes.
	Margin  int
	Success bool
}

// Meets reports whether total reaches difficulty.
func Meets(total, difficulty int) bool {
	return total >= difficulty
}

// Against checks total against difficulty. A forced check succeeds whatever
// its margin; duality criticals are forced.
func Against(total, difficulty int, forced bool) Result {
	return Result{
		Total:      total,
		Difficulty: difficulty,
		Margin:     total - difficulty,
		Success:    forced || Meets(total, difficulty),
	}
}
