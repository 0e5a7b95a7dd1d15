package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_PrintsModule(t *testing.T) {
	out, err := execute(t, NewBuildCommand(&RootOptions{Format: "text"}), programsDir)
	require.NoError(t, err)

	assert.Contains(t, out, "fn pick(b_1: i32) -> i32 {")
	assert.Contains(t, out, "fn clamp(x_1: u8) -> u8 {")
	assert.Contains(t, out, "jump_if b_1 != 7:i32, b2")
	assert.Contains(t, out, "b3: ; preds b1, b2")
}

func TestBuild_SingleFunctionToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "clamp.ir")

	out, err := execute(t, NewBuildCommand(&RootOptions{Format: "text"}), programsDir, "--func", "clamp", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Built 1 function(s)")
	assert.Contains(t, out, "Wrote IR to "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	golden, err := os.ReadFile(filepath.Join(goldenDir, "clamp.golden"))
	require.NoError(t, err)

	assert.Contains(t, string(golden), string(data), "clamp IR matches the scenario snapshot")
	assert.NotContains(t, string(data), "fn pick")
}

func TestBuild_JSON(t *testing.T) {
	out, err := execute(t, NewBuildCommand(&RootOptions{Format: "json"}), programsDir, "--func", "pick")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   BuildResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Functions, 1)

	fn := resp.Data.Functions[0]
	assert.Equal(t, "pick", fn.Name)
	assert.Equal(t, 17, fn.Blocks)
	assert.Len(t, fn.Hash, 64)
	assert.Empty(t, fn.Warnings)
	assert.Contains(t, fn.IR, "fn pick(")
}

func TestBuild_ReportsWarnings(t *testing.T) {
	cmd := NewBuildCommand(&RootOptions{Format: "json"})
	out, err := execute(t, cmd, harnessProgs, "--func", "early")
	require.NoError(t, err)

	var resp struct {
		Data BuildResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Functions, 1)

	var codes []string
	for _, w := range resp.Data.Functions[0].Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, "W201")
}

func TestBuild_RejectedProgram(t *testing.T) {
	out, err := execute(t, NewBuildCommand(&RootOptions{Format: "text"}), malformedDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ 1 of 1 function(s) rejected")
	assert.Contains(t, out, "E201")
	assert.Contains(t, out, "maybe")
}

func TestBuild_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing_directory", []string{filepath.Join(t.TempDir(), "nope")}, ErrCodeNotFound},
		{"no_cue_files", []string{t.TempDir()}, ErrCodeNoFiles},
		{"unknown_function", []string{programsDir, "--func", "nope"}, ErrCodeFunctionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewBuildCommand(&RootOptions{Format: "json"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestBuild_CompileErrorsShowPosition(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "p.cue", "package p\n\nfunction: f: {\n\tparams: []\n\tresult: \"i32\"\n\tbody: [{ret: \"nope\"}]\n}\n")

	out, err := execute(t, NewBuildCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "p.cue:")
	assert.Contains(t, out, "Error [E105]")
}
