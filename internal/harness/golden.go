package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cfgir/internal/ir"
)

// Snapshot renders a result as stable text: the pretty-printed graph
// followed by one line per case.
func Snapshot(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# scenario: %s\n", name)
	if len(result.Diagnostics) > 0 {
		fmt.Fprintf(&b, "# diagnostics: %s\n", strings.Join(result.Diagnostics, " "))
	}
	if result.Graph != nil {
		b.WriteString(ir.FormatGraph(result.Graph))
	}
	for _, c := range result.Cases {
		fmt.Fprintf(&b, "%s %s -> %s", c.RunID, describe(c.Inputs), outcome(c))
		if c.Fault == "" {
			fmt.Fprintf(&b, " steps=%d path=%v", c.Steps, c.Path)
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
	return nil
}
