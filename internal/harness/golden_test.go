package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"pick_table", "pick_budget", "clamp", "early", "maybe"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestAssertGolden_ReusesResult(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "clamp.yaml"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "%v", result.Errors)
	require.NoError(t, AssertGolden(t, "clamp", result))
}

func TestSnapshot_Deterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "pick_table.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	require.Equal(t, string(Snapshot(s.Name, first)), string(Snapshot(s.Name, second)))
}
