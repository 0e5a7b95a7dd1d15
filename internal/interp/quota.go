package interp

import "fmt"

// stepBudget counts block entries for one run and enforces a limit.
//
// Graphs without back-edges always terminate; the budget exists so that
// cyclic graphs cannot run forever.
type stepBudget struct {
	max     int
	current int
}

func newStepBudget(limit int) *stepBudget {
	return &stepBudget{max: limit}
}

// Check increments the step counter and validates against the limit.
func (b *stepBudget) Check(function string) error {
	b.current++
	if b.current > b.max {
		return &StepsExceededError{
			Function: function,
			Steps:    b.current,
			Limit:    b.max,
		}
	}
	return nil
}

// Current returns the number of blocks entered so far.
func (b *stepBudget) Current() int {
	return b.current
}

// StepsExceededError is returned when a run exceeds its step budget.
type StepsExceededError struct {
	Function string
	Steps    int
	Limit    int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("function %s exceeded step budget: %d steps > %d limit",
		e.Function, e.Steps, e.Limit)
}
