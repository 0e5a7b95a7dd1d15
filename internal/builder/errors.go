package builder

import (
	"errors"
	"fmt"
	"strings"
)

// Builder diagnostic codes (E200-E299).
const (
	ErrUninitializedRead   = "E201" // read of a place not definitely assigned
	ErrImmutableReassigned = "E202" // immutable place assigned more than once on a path
	ErrMissingReturn       = "E203" // control reaches end of function
	ErrUndeclaredVar       = "E204" // reference to a variable with no declaration
	ErrTypeMismatch        = "E205" // operand types disagree
	ErrRedeclared          = "E206" // declared twice or used with other qualifiers
	ErrLiteralRange        = "E207" // literal not representable in its type

	WarnUnreachableCode = "W201" // statements after return were dropped
)

// Diagnostic is one finding about the input program.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Var     string `json:"var,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s", d.Code, d.Message)
}

// MalformedProgram reports every semantic defect found while lowering one
// function. Lowering of that function is abandoned; other functions are not
// affected.
type MalformedProgram struct {
	Function    string
	Diagnostics []Diagnostic
}

func (e *MalformedProgram) Error() string {
	parts := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		parts[i] = d.String()
	}
	return fmt.Sprintf("malformed program %s: %s", e.Function, strings.Join(parts, "; "))
}

// HasCode reports whether any diagnostic carries code.
func (e *MalformedProgram) HasCode(code string) bool {
	for _, d := range e.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

// IsMalformedProgram returns true if err is or wraps a *MalformedProgram.
func IsMalformedProgram(err error) bool {
	var mp *MalformedProgram
	return errors.As(err, &mp)
}

// HasDiagnostic returns true if err wraps a *MalformedProgram carrying code.
func HasDiagnostic(err error, code string) bool {
	var mp *MalformedProgram
	if errors.As(err, &mp) {
		return mp.HasCode(code)
	}
	return false
}
