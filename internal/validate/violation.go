package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/cfgir/internal/ir"
)

// Violation codes (E300-E399).
const (
	ErrDanglingTarget      = "E301"
	ErrMissingTerminator   = "E302"
	ErrMisplacedTerminator = "E303"
	ErrPredecessorMismatch = "E304"
	WarnUnreachableBlock   = "E305"
	ErrNonContiguousID     = "E306"
	ErrImmutableReassigned = "E307"
	ErrUninitializedRead   = "E308"
	ErrInconsistentPlace   = "E309"
	ErrTypeMismatch        = "E310"
	ErrEmptyGraph          = "E311"
	ErrUnknownInstruction  = "E312"
)

// Kind names the violation class.
type Kind string

const (
	KindDanglingTarget      Kind = "DanglingTarget"
	KindMissingTerminator   Kind = "MissingTerminator"
	KindMisplacedTerminator Kind = "MisplacedTerminator"
	KindPredecessorMismatch Kind = "PredecessorMismatch"
	KindUnreachableBlock    Kind = "UnreachableBlock"
	KindNonContiguousID     Kind = "NonContiguousID"
	KindImmutableReassigned Kind = "ImmutableReassigned"
	KindUninitializedRead   Kind = "UninitializedRead"
	KindInconsistentPlace   Kind = "InconsistentPlace"
	KindTypeMismatch        Kind = "TypeMismatch"
	KindEmptyGraph          Kind = "EmptyGraph"
	KindUnknownInstruction  Kind = "UnknownInstruction"
)

// Severity says whether a violation blocks execution.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is one finding. Fields that do not apply to a Kind are zero;
// Index is -1 when the finding is not tied to one instruction.
type Violation struct {
	Code     string     `json:"code"`
	Kind     Kind       `json:"kind"`
	Severity Severity   `json:"severity"`
	Block    ir.BlockID `json:"block"`
	Index    int        `json:"index"`
	From     ir.BlockID `json:"from,omitempty"`
	To       ir.BlockID `json:"to,omitempty"`
	Label    string     `json:"label,omitempty"`
	Message  string     `json:"message"`
}

func (v Violation) String() string {
	if v.Index >= 0 {
		return fmt.Sprintf("[%s] %s b%d[%d]: %s", v.Code, v.Kind, v.Block, v.Index, v.Message)
	}
	return fmt.Sprintf("[%s] %s b%d: %s", v.Code, v.Kind, v.Block, v.Message)
}

// Report is the complete result of validating one graph. Violations are in
// a deterministic order: by check, then by block id, then by index.
type Report struct {
	Function   string      `json:"function"`
	Violations []Violation `json:"violations"`
}

// Fatal returns the error-severity violations.
func (r Report) Fatal() []Violation {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity violations.
func (r Report) Warnings() []Violation {
	return r.filter(SeverityWarning)
}

// OK reports whether the graph has no fatal violations.
func (r Report) OK() bool {
	return len(r.Fatal()) == 0
}

// Err returns a *InvalidGraphError when the report has fatal violations.
func (r Report) Err() error {
	fatal := r.Fatal()
	if len(fatal) == 0 {
		return nil
	}
	return &InvalidGraphError{Function: r.Function, Violations: fatal}
}

// Has reports whether any violation carries code.
func (r Report) Has(code string) bool {
	for _, v := range r.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

func (r Report) filter(s Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == s {
			out = append(out, v)
		}
	}
	return out
}

// InvalidGraphError is returned when a graph with fatal violations is about
// to be used.
type InvalidGraphError struct {
	Function   string
	Violations []Violation
}

func (e *InvalidGraphError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("invalid graph %s: %s", e.Function, strings.Join(parts, "; "))
}

// IsInvalidGraph returns true if err is or wraps an *InvalidGraphError.
func IsInvalidGraph(err error) bool {
	var ig *InvalidGraphError
	return errors.As(err, &ig)
}
