package interp

import (
	"errors"
	"fmt"

	"github.com/roach88/cfgir/internal/ir"
)

// FaultCode categorizes interpreter faults.
type FaultCode string

const (
	// FaultUninitializedRead indicates a place was read before any write.
	FaultUninitializedRead FaultCode = "UNINITIALIZED_READ"

	// FaultInvalidTarget indicates control moved to a block id outside the graph.
	FaultInvalidTarget FaultCode = "INVALID_TARGET"

	// FaultMissingTerminator indicates a block ran out of instructions.
	FaultMissingTerminator FaultCode = "MISSING_TERMINATOR"

	// FaultUnknownInstruction indicates an instruction kind the interpreter
	// does not implement.
	FaultUnknownInstruction FaultCode = "UNKNOWN_INSTRUCTION"

	// FaultStepBudgetExceeded indicates the run entered more blocks than allowed.
	FaultStepBudgetExceeded FaultCode = "STEP_BUDGET_EXCEEDED"

	// FaultBadInput indicates the input binding does not match the parameters.
	FaultBadInput FaultCode = "BAD_INPUT"
)

// Fault is a fatal interpreter error. On a validated graph only
// STEP_BUDGET_EXCEEDED and BAD_INPUT are expected; the others mean an
// upstream invariant is broken.
type Fault struct {
	Code     FaultCode
	Function string
	Block    ir.BlockID
	Index    int // -1 when not tied to an instruction
	Label    string
	Target   ir.BlockID
	Message  string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Index >= 0 {
		return fmt.Sprintf("%s: %s (fn=%s, b%d[%d])", f.Code, f.Message, f.Function, f.Block, f.Index)
	}
	return fmt.Sprintf("%s: %s (fn=%s, b%d)", f.Code, f.Message, f.Function, f.Block)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFault returns true if err is or wraps a *Fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

// CodeOf returns the fault code carried by err.
func CodeOf(err error) (FaultCode, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code, true
	}
	return "", false
}

// IsInvalidTarget returns true if err is an INVALID_TARGET fault.
func IsInvalidTarget(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == FaultInvalidTarget
}

// IsUninitializedRead returns true if err is an UNINITIALIZED_READ fault.
func IsUninitializedRead(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == FaultUninitializedRead
}

// IsBudgetExceeded matches both a STEP_BUDGET_EXCEEDED fault and a bare
// *StepsExceededError.
func IsBudgetExceeded(err error) bool {
	if code, ok := CodeOf(err); ok && code == FaultStepBudgetExceeded {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}
