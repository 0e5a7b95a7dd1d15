package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfgir/internal/compiler"
)

func writeCUE(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func TestLoadPrograms(t *testing.T) {
	result, errs := LoadPrograms(programsDir, LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.FileCount)

	var names []string
	for _, fn := range result.Functions {
		names = append(names, fn.Name)
	}
	assert.ElementsMatch(t, []string{"pick", "clamp"}, names)
}

func TestLoadPrograms_DirectoryErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "x.cue")
	require.NoError(t, os.WriteFile(file, []byte("package x\n"), 0o644))

	tests := []struct {
		name string
		dir  string
		code string
	}{
		{"missing", filepath.Join(t.TempDir(), "nope"), ErrCodeNotFound},
		{"not_a_directory", file, ErrCodeNotFound},
		{"no_files", t.TempDir(), ErrCodeNoFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, errs := LoadPrograms(tt.dir, LoadModeCollectAll)
			assert.Nil(t, result)
			require.Len(t, errs, 1)
			code, _ := loadErrorCode(errs[0])
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestLoadPrograms_CUEError(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "bad.cue", "package bad\n\nfunction: f: {\n")

	result, errs := LoadPrograms(dir, LoadModeCollectAll)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	code, _ := loadErrorCode(errs[0])
	assert.Equal(t, ErrCodeLoadFailed, code)
}

func TestLoadPrograms_CompileErrorModes(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "p.cue", `package p

function: good: {
	params: []
	result: "i32"
	body: [{ret: 1}]
}
function: nobody: {
	params: []
	result: "i32"
}
function: badtype: {
	params: [{name: "x", type: "f64"}]
	result: "i32"
	body: [{ret: 1}]
}
`)

	result, errs := LoadPrograms(dir, LoadModeCollectAll)
	require.NotNil(t, result)
	require.Len(t, result.Functions, 1)
	assert.Equal(t, "good", result.Functions[0].Name)
	require.Len(t, errs, 2)

	var codes []string
	for _, err := range errs {
		code, _ := loadErrorCode(err)
		codes = append(codes, code)
	}
	assert.ElementsMatch(t, []string{compiler.ErrMissingField, compiler.ErrUnknownType}, codes)

	_, errs = LoadPrograms(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestSelectFunctions(t *testing.T) {
	result, errs := LoadPrograms(programsDir, LoadModeFailFast)
	require.Empty(t, errs)

	all, err := SelectFunctions(result.Functions, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := SelectFunctions(result.Functions, "clamp")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "clamp", one[0].Name)

	_, err = SelectFunctions(result.Functions, "missing")
	require.Error(t, err)
	code, message := loadErrorCode(err)
	assert.Equal(t, ErrCodeFunctionNotFound, code)
	assert.Equal(t, "function missing not found", message)
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in x"}
	assert.Equal(t, "E003: no CUE files found in x", err.Error())
}
