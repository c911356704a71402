package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd(nil)
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func writeTemplates(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `templates:
  - id: classic-couple
    name: Classic Couple
    type: couple
    template: "A {style} portrait. {customPrompt}"
    version: 1
    is_default: true
  - id: broken
    name: Broken
    type: single
    template: "A portrait with { a stray brace"
    version: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersionCommandOutputsBuildInfo(t *testing.T) {
	originalVersion := version
	t.Cleanup(func() { version = originalVersion })
	version = "1.2.3"

	output, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "promptc 1.2.3")
}

func TestCompileCommand(t *testing.T) {
	path := writeTemplates(t)

	output, err := runCommand(t,
		"compile", "-c", path, "--id", "classic-couple",
		"--style", "Moonlit Meadow", "--prompt", "holding hands")
	require.NoError(t, err)
	assert.Contains(t, output, "A Moonlit Meadow portrait. holding hands")
}

func TestCompileCommandUsesDefaultTemplate(t *testing.T) {
	path := writeTemplates(t)

	output, err := runCommand(t,
		"compile", "-c", path, "--type", "couple", "--style", "Moonlit Meadow")
	require.NoError(t, err)
	assert.Contains(t, output, "A Moonlit Meadow portrait.")
}

func TestCompileCommandRequiresSource(t *testing.T) {
	_, err := runCommand(t, "compile", "--id", "classic-couple")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template source")
}

func TestValidateCommandReportsFailures(t *testing.T) {
	path := writeTemplates(t)

	output, err := runCommand(t, "validate", "-c", path)
	require.Error(t, err)
	assert.Contains(t, output, "classic-couple: ok")
	assert.Contains(t, output, "broken: INVALID")
}

func TestValidateSingleTemplate(t *testing.T) {
	path := writeTemplates(t)

	output, err := runCommand(t, "validate", "-c", path, "--id", "classic-couple")
	require.NoError(t, err)
	assert.Contains(t, output, "score 100")
}

func TestCompileCommandSharesCacheAcrossRuns(t *testing.T) {
	path := writeTemplates(t)
	snapshot := filepath.Join(t.TempDir(), "cache.json")

	_, err := runCommand(t,
		"compile", "-c", path, "--id", "classic-couple",
		"--style", "Moonlit Meadow", "--cache-file", snapshot)
	require.NoError(t, err)
	require.FileExists(t, snapshot)

	stats, err := runCommand(t, "cache", "stats", "--snapshot", snapshot)
	require.NoError(t, err)
	assert.Contains(t, stats, "entries: 1")
}

func TestCacheInvalidateCommand(t *testing.T) {
	path := writeTemplates(t)
	snapshot := filepath.Join(t.TempDir(), "cache.json")

	_, err := runCommand(t,
		"compile", "-c", path, "--id", "classic-couple",
		"--style", "Moonlit Meadow", "--cache-file", snapshot)
	require.NoError(t, err)

	output, err := runCommand(t, "cache", "invalidate", "--snapshot", snapshot, "--pattern", "classic-couple")
	require.NoError(t, err)
	assert.Contains(t, output, "removed 1 entries")

	stats, err := runCommand(t, "cache", "stats", "--snapshot", snapshot)
	require.NoError(t, err)
	assert.Contains(t, stats, "entries: 0")
}

func TestStylesListCommand(t *testing.T) {
	output, err := runCommand(t, "styles", "list", "--featured")
	require.NoError(t, err)
	assert.Contains(t, output, "rustic-barn-wedding")
	assert.NotContains(t, output, "bohemian-beach")
}

func TestStylesRecommendCommand(t *testing.T) {
	output, err := runCommand(t, "styles", "recommend", "--mood", "romantic", "-n", "2")
	require.NoError(t, err)
	assert.NotEmpty(t, output)
}
