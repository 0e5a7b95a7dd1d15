package harness

import (
	"github.com/roach88/cfgir/internal/ir"
)

// CaseResult is the observed outcome of one case.
type CaseResult struct {
	Inputs map[string]ir.Constant `json:"inputs"`
	RunID  string                 `json:"run_id"`
	Value  *ir.Constant           `json:"value,omitempty"`
	Fault  string                 `json:"fault,omitempty"`
	Steps  int                    `json:"steps"`
	Path   []ir.BlockID           `json:"path,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Graph is the built graph, nil when the build failed.
	Graph *ir.Graph `json:"-"`

	// Diagnostics are the builder and validator codes observed, errors
	// and warnings alike, in report order.
	Diagnostics []string `json:"diagnostics,omitempty"`

	// Cases holds one entry per executed case.
	Cases []CaseResult `json:"cases"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
