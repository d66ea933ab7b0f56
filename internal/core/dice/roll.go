// Package dice rolls polyhedral dice through an injected Roller and
// classifies duality rolls.
package dice

// Spec describes a die to roll and how many times to roll it.
type Spec struct {
	Sides int
	Count int
}

// Roll captures the results of one Spec.
type Roll struct {
	Sides   int
	Results []int
	Total   int
}

// Result holds the rolls of one RollWith call.
type Result struct {
	Rolls []Roll
	Total int
}

// RollWith rolls every spec with roller, in spec order. It returns
// ErrMissingDice for no specs and ErrInvalidDiceSpec for a spec without
// positive sides and count.
func RollWith(roller Roller, specs []Spec) (Result, error) {
	if len(specs) == 0 {
		return Result{}, ErrMissingDice
	}
	if roller == nil {
		return Result{}, ErrMissingRoller
	}

	rolls := make([]Roll, 0, len(specs))
	total := 0

	for _, spec := range specs {
		if spec.Sides <= 0 || spec.Count <= 0 {
			return Result{}, ErrInvalidDiceSpec
		}

		results := make([]int, spec.Count)
		rollTotal := 0
		for i := 0; i < spec.Count; i++ {
			value := roller.Roll(spec.Sides)
			results[i] = value
			rollTotal += value
		}

		rolls = append(rolls, Roll{
			Sides:   spec.Sides,
			Results: results,
			Total:   rollTotal,
		})
		total += rollTotal
	}

	return Result{
		Rolls: rolls,
		Total: total,
	}, nil
}

// Highest returns the largest value in results, or 0 when empty.
func (r Roll) Highest() int {
	best := 0
	for i, v := range r.Results {
		if i == 0 || v > best {
			best = v
		}
	}
	return best
}

// Lowest returns the smallest value in results, or 0 when empty.
func (r Roll) Lowest() int {
	worst := 0
	for i, v := range r.Results {
		if i == 0 || v < worst {
			worst = v
		}
	}
	return worst
}
