package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/cfgir/internal/ast"
	"github.com/roach88/cfgir/internal/compiler"
)

// Error code constants shared by all commands. Compile errors keep their
// compiler codes (E1xx).
const (
	ErrCodeGeneric          = "E001" // Generic/unknown error
	ErrCodeScanError        = "E002" // Directory scan error
	ErrCodeNoFiles          = "E003" // No CUE files found
	ErrCodeLoadFailed       = "E004" // CUE load or build failed
	ErrCodeNotFound         = "E005" // Path not found
	ErrCodeFunctionNotFound = "E006" // --func names no function
	ErrCodeWriteFailed      = "E007" // File write error
	ErrCodeDatabase         = "E008" // Run store could not be opened or read
	ErrCodeInvalidInput     = "E009" // --input does not bind the parameters
	ErrCodeFailed           = "E010" // Command ran and reported failures
)

// LoadMode controls how errors are handled during program loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the functions compiled from a directory.
type LoadResult struct {
	Functions []*ast.Function
	FileCount int
}

// LoadError is a loader failure with an optional CUE position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadPrograms loads and compiles the CUE programs in dir.
//
// A nil result means nothing could be compiled (missing directory, no files,
// CUE evaluation failure). Otherwise per-function compile errors are
// returned alongside the functions that did compile; in LoadModeFailFast
// only the first is kept.
func LoadPrograms(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("programs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing programs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	value, err := compiler.LoadValue(dir)
	if err != nil {
		loadErr := convertCompileError(err, ErrCodeLoadFailed)
		loadErr.Code = ErrCodeLoadFailed
		return nil, []error{loadErr}
	}

	fns, compileErrs := compiler.CompileProgram(value)
	result := &LoadResult{Functions: fns, FileCount: len(cueFiles)}

	var errs []error
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err, ErrCodeGeneric))
		if mode == LoadModeFailFast {
			break
		}
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// SelectFunctions narrows fns to the one named name; an empty name keeps
// them all.
func SelectFunctions(fns []*ast.Function, name string) ([]*ast.Function, error) {
	if name == "" {
		return fns, nil
	}
	fn := compiler.Find(fns, name)
	if fn == nil {
		return nil, &LoadError{Code: ErrCodeFunctionNotFound, Message: fmt.Sprintf("function %s not found", name)}
	}
	return []*ast.Function{fn}, nil
}

// convertCompileError converts a compiler error to a LoadError with
// position info. Errors without a CompileError get fallback.
func convertCompileError(err error, fallback string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    compileErr.Code,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: fallback, Message: err.Error()}
}

// loadErrorCode returns the code and message of a loader error.
func loadErrorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
