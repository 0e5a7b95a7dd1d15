package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/cfgir/internal/ast"
)

// LoadValue loads all CUE files in dir as a single instance.
func LoadValue(dir string) (cue.Value, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, &CompileError{Code: ErrCUE, Field: dir, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, formatCUEError(inst.Err, dir)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, formatCUEError(err, dir)
	}
	return value, nil
}

// CompileProgram compiles every function under the "function" field of v,
// in declaration order. Functions that fail to compile are skipped and their
// errors collected; the returned functions are the ones that succeeded.
func CompileProgram(v cue.Value) ([]*ast.Function, []error) {
	fnsVal := v.LookupPath(cue.ParsePath("function"))
	if !fnsVal.Exists() {
		return nil, []error{&CompileError{Code: ErrNoFunctions, Field: "function", Message: "no function definitions found"}}
	}
	iter, err := fnsVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err, "function")}
	}

	var (
		fns  []*ast.Function
		errs []error
	)
	for iter.Next() {
		fn, err := CompileFunction(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", iter.Selector(), err))
			continue
		}
		fns = append(fns, fn)
	}
	if len(fns) == 0 && len(errs) == 0 {
		errs = append(errs, &CompileError{Code: ErrNoFunctions, Field: "function", Message: "no function definitions found"})
	}
	return fns, errs
}

// CompileSource compiles CUE source text. filename is used in positions.
func CompileSource(src, filename string) ([]*ast.Function, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, filename)
	}
	fns, errs := CompileProgram(v)
	return fns, errors.Join(errs...)
}

// LoadDir loads and compiles the program in dir. Any compile error fails
// the whole load; use LoadValue and CompileProgram for partial results.
func LoadDir(dir string) ([]*ast.Function, error) {
	v, err := LoadValue(dir)
	if err != nil {
		return nil, err
	}
	fns, errs := CompileProgram(v)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return fns, nil
}

// Find returns the function named name, or nil.
func Find(fns []*ast.Function, name string) *ast.Function {
	for _, fn := range fns {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}
