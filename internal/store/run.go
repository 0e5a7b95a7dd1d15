package store

import "github.com/roach88/cfgir/internal/ir"

// Run statuses.
const (
	StatusOK    = "ok"
	StatusFault = "fault"
)

// Run is one recorded interpreter execution.
type Run struct {
	ID         string
	Seq        int64 // assigned by WriteRun
	Function   string
	GraphHash  string
	Inputs     map[string]ir.Constant
	InputsHash string
	Status     string
	Value      *ir.Constant // set when Status is StatusOK
	FaultCode  string       // set when Status is StatusFault
	Steps      int
	Path       []ir.BlockID
}

// NewRun fills the identity fields of a run of g. The caller sets the outcome.
func NewRun(gen IDGenerator, g *ir.Graph, inputs map[string]ir.Constant) (Run, error) {
	graphHash, err := ir.GraphHash(g)
	if err != nil {
		return Run{}, err
	}
	inputsHash, err := ir.InputsHash(inputs)
	if err != nil {
		return Run{}, err
	}
	return Run{
		ID:         gen.Generate(),
		Function:   g.Name,
		GraphHash:  graphHash,
		Inputs:     inputs,
		InputsHash: inputsHash,
	}, nil
}

// Succeed records a returned value.
func (r *Run) Succeed(value ir.Constant, steps int, path []ir.BlockID) {
	r.Status = StatusOK
	r.Value = &value
	r.FaultCode = ""
	r.Steps = steps
	r.Path = path
}

// Fail records an interpreter fault.
func (r *Run) Fail(code string) {
	r.Status = StatusFault
	r.Value = nil
	r.FaultCode = code
}
