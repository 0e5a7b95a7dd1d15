package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario for a function.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Programs is the CUE program directory. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Programs string `yaml:"programs"`

	// Function is the function under test.
	Function string `yaml:"function"`

	// MaxSteps overrides the interpreter step budget when positive.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// ExpectBuild lists expected builder outcomes. Nil means the function
	// must build and validate cleanly with any warnings allowed.
	ExpectBuild *BuildExpect `yaml:"expect_build,omitempty"`

	// Assertions check the shape of the built graph.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Cases are executed in order against the built graph.
	Cases []Case `yaml:"cases,omitempty"`
}

// BuildExpect describes the expected diagnostics of the build.
type BuildExpect struct {
	// Fails lists builder error codes; the build must fail with exactly
	// these codes, in any order.
	Fails []string `yaml:"fails,omitempty"`

	// Warnings lists builder or validator warning codes that must appear.
	Warnings []string `yaml:"warnings,omitempty"`
}

// Case is one execution of the function.
type Case struct {
	// Inputs are keyed by parameter name or label.
	Inputs map[string]any `yaml:"inputs"`

	// Expect is the expected outcome.
	Expect CaseExpect `yaml:"expect"`
}

// CaseExpect is the expected outcome of a case. Exactly one of Value and
// Fault is set.
type CaseExpect struct {
	// Value is the expected return value: an integer or a bool.
	Value any `yaml:"value,omitempty"`

	// Fault is the expected interpreter fault code.
	Fault string `yaml:"fault,omitempty"`

	// Path optionally pins the sequence of blocks entered.
	Path []uint32 `yaml:"path,omitempty"`
}

// Assertion checks the shape of the built graph.
type Assertion struct {
	// Type is one of block_count, preds, successors, exits.
	Type string `yaml:"type"`

	// Count is the expected block count (block_count).
	Count int `yaml:"count,omitempty"`

	// Block is the block under test (preds, successors).
	Block uint32 `yaml:"block,omitempty"`

	// Blocks is the expected block set (preds, successors, exits).
	Blocks []uint32 `yaml:"blocks,omitempty"`
}

// Assertion type constants.
const (
	AssertBlockCount = "block_count"
	AssertPreds      = "preds"
	AssertSuccessors = "successors"
	AssertExits      = "exits"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected, and Programs is resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Programs != "" && !filepath.IsAbs(scenario.Programs) {
		scenario.Programs = filepath.Join(filepath.Dir(path), scenario.Programs)
	}
	if _, err := os.Stat(scenario.Programs); err != nil {
		return nil, fmt.Errorf("invalid scenario: programs directory not found: %s", scenario.Programs)
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Programs is left as
// written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file directly in dir, sorted
// by file name. A non-empty filter is a filepath.Match pattern applied to
// scenario names.
func LoadScenarios(dir, filter string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var out []*Scenario
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		if filter != "" {
			ok, err := filepath.Match(filter, s.Name)
			if err != nil {
				return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Programs == "" {
		return fmt.Errorf("programs is required")
	}
	if s.Function == "" {
		return fmt.Errorf("function is required")
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative")
	}

	fails := s.ExpectBuild != nil && len(s.ExpectBuild.Fails) > 0
	if fails && (len(s.Cases) > 0 || len(s.Assertions) > 0) {
		return fmt.Errorf("expect_build.fails excludes cases and assertions")
	}
	if !fails && len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for i, c := range s.Cases {
		if c.Inputs == nil {
			return fmt.Errorf("cases[%d]: inputs is required (use {} if none)", i)
		}
		hasValue := c.Expect.Value != nil
		hasFault := c.Expect.Fault != ""
		if hasValue == hasFault {
			return fmt.Errorf("cases[%d].expect: exactly one of value and fault is required", i)
		}
		if hasFault && len(c.Expect.Path) > 0 {
			return fmt.Errorf("cases[%d].expect: path applies only to value", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertBlockCount:
		if a.Count <= 0 {
			return fmt.Errorf("assertions[%d]: block_count requires a positive count", index)
		}
	case AssertPreds, AssertSuccessors, AssertExits:
		// An empty Blocks list asserts the empty set.
	default:
		valid := []string{AssertBlockCount, AssertPreds, AssertSuccessors, AssertExits}
		return fmt.Errorf("assertions[%d]: unknown type %q (valid: %s)", index, a.Type, strings.Join(valid, ", "))
	}
	return nil
}
