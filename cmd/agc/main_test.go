package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildWritesOutputForCleanSource(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "main.agc")
	require.NoError(t, os.WriteFile(input, []byte("let x: int = 1;\n"), 0o644))

	cmd := newBuildCmd()
	cmd.SetArgs([]string{input})
	require.NoError(t, cmd.Execute())

	out, err := os.ReadFile(filepath.Join(dir, "main.js"))
	require.NoError(t, err)
	require.Contains(t, string(out), "const x = 1")
}

func TestBuildSuppressesOutputOnTypeError(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.agc")
	require.NoError(t, os.WriteFile(input, []byte("let x: int = \"nope\";\n"), 0o644))

	cmd := newBuildCmd()
	cmd.SetArgs([]string{input})
	err := cmd.Execute()
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "bad.js"))
	require.True(t, os.IsNotExist(statErr))
}

func TestBuildRespectsExplicitOutputFlag(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "main.agc")
	target := filepath.Join(dir, "out.mjs")
	require.NoError(t, os.WriteFile(input, []byte("let x: int = 1;\n"), 0o644))

	cmd := newBuildCmd()
	cmd.SetArgs([]string{input, "-o", target})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(target)
	require.NoError(t, err)
}

func TestCheckCleanSourceSucceedsWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "main.agc")
	require.NoError(t, os.WriteFile(input, []byte("let x: int = 1;\n"), 0o644))

	cmd := newCheckCmd()
	cmd.SetArgs([]string{input})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(filepath.Join(dir, "main.js"))
	require.True(t, os.IsNotExist(err))
}

func TestBuildGlobCompilesEveryMatch(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.agc", "b.agc"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("let x: int = 1;\n"), 0o644))
	}

	cmd := newBuildCmd()
	cmd.SetArgs([]string{"--glob", filepath.Join(dir, "*.agc")})
	require.NoError(t, cmd.Execute())

	for _, name := range []string{"a.js", "b.js"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
	}
}

func TestLineColComputesOneBasedPosition(t *testing.T) {
	src := "abc\ndef\nghi"
	line, col := lineCol(src, 5)
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)
}
