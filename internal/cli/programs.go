package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/cfgir/internal/builder"
	"github.com/roach88/cfgir/internal/ir"
	"github.com/roach88/cfgir/internal/pipeline"
)

// Finding is one builder diagnostic or validator violation, flattened for
// output.
type Finding struct {
	Function string `json:"function"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
}

func (f Finding) row() []string {
	return []string{f.Function, f.Code, f.Severity, f.Location, f.Message}
}

var findingHeader = []string{"Function", "Code", "Severity", "Location", "Message"}

// compilePrograms loads dir, narrows to funcName when set, and builds and
// validates every function. Load and compile errors are written through f
// and returned as ExitCommandError.
func compilePrograms(ctx context.Context, f *OutputFormatter, opts *RootOptions, dir, funcName string) ([]pipeline.Unit, error) {
	loadResult, loadErrors := LoadPrograms(dir, LoadModeCollectAll)
	if len(loadErrors) > 0 {
		return nil, outputLoadErrors(f, loadErrors)
	}
	f.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	fns, err := SelectFunctions(loadResult.Functions, funcName)
	if err != nil {
		return nil, outputLoadErrors(f, []error{err})
	}
	for _, fn := range fns {
		f.VerboseLog("Compiling function: %s", fn.Name)
	}

	units, err := pipeline.CompileAll(ctx, fns,
		pipeline.WithJobs(opts.Jobs),
		pipeline.WithLogger(f.Logger()))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "compilation interrupted", err)
	}
	return units, nil
}

// outputLoadErrors reports loader errors. They are command-level errors.
func outputLoadErrors(f *OutputFormatter, errs []error) error {
	if f.JSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := loadErrorCode(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := f.encode(CLIResponse{Status: "error", Error: &cliErrors[0], Data: cliErrors}); err != nil {
			return err
		}
	} else {
		if len(errs) > 1 {
			fmt.Fprintf(f.Writer, "✗ Loading failed with %d error(s)\n\n", len(errs))
		}
		for _, err := range errs {
			code, message := loadErrorCode(err)
			var loadErr *LoadError
			if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
				fmt.Fprintf(f.Writer, "%s:%d:%d\n  ", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
			}
			fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
		}
	}

	code, message := loadErrorCode(errs[0])
	if len(errs) > 1 {
		message = fmt.Sprintf("loading failed with %d error(s)", len(errs))
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// findings flattens a unit: its builder errors, or its validator
// violations followed by builder warnings.
func findings(u pipeline.Unit) []Finding {
	var out []Finding
	if u.Err != nil {
		var mp *builder.MalformedProgram
		if !errors.As(u.Err, &mp) {
			return []Finding{{Function: u.Function, Code: ErrCodeGeneric, Severity: "error", Message: u.Err.Error()}}
		}
		for _, d := range mp.Diagnostics {
			out = append(out, Finding{Function: u.Function, Code: d.Code, Severity: "error", Location: d.Var, Message: d.Message})
		}
		return out
	}

	for _, v := range u.Report.Violations {
		loc := fmt.Sprintf("b%d", v.Block)
		if v.Index >= 0 {
			loc = fmt.Sprintf("b%d[%d]", v.Block, v.Index)
		}
		out = append(out, Finding{Function: u.Function, Code: v.Code, Severity: string(v.Severity), Location: loc, Message: v.Message})
	}
	for _, d := range u.Build.Warnings {
		out = append(out, Finding{Function: u.Function, Code: d.Code, Severity: "warning", Location: d.Var, Message: d.Message})
	}
	return out
}

// graphsOf returns the graphs of every unit that built and validated, keyed
// by function name.
func graphsOf(units []pipeline.Unit) map[string]*ir.Graph {
	graphs := make(map[string]*ir.Graph, len(units))
	for _, u := range units {
		if u.OK() {
			graphs[u.Function] = u.Graph()
		}
	}
	return graphs
}

func findingRows(fs []Finding) [][]string {
	rows := make([][]string, len(fs))
	for i, f := range fs {
		rows[i] = f.row()
	}
	return rows
}
