package compiler

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Compile error codes (E100-E199).
const (
	ErrCUE            = "E100" // CUE evaluation error
	ErrMissingField   = "E101" // required field absent
	ErrUnknownType    = "E102" // type name not recognised
	ErrUnknownCompare = "E103" // comparison operator not recognised
	ErrUnknownStmt    = "E104" // statement has no recognised form
	ErrUndefinedName  = "E105" // name not in scope
	ErrBadLiteral     = "E106" // literal is not an integer or bool
	ErrNoFunctions    = "E107" // no function definitions found
)

// CompileError is a front-end error with CUE source position.
type CompileError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

// IsCompileError returns true if err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error, field string) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Code: ErrCUE, Field: field, Message: err.Error()}
	}

	first := errs[0]
	ce := &CompileError{Code: ErrCUE, Field: field, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
