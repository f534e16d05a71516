package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/layout"
	"github.com/cory-johannsen/roomgraph/internal/dungeon/roomtype"
)

// writeConfig returns a config file that logs to a file inside dir.
func writeConfig(t *testing.T, dir string) (configPath, logPath string) {
	t.Helper()
	logPath = filepath.Join(dir, "logs", "roomgraph.log")
	configPath = filepath.Join(dir, "config.yaml")
	body := "logging:\n  level: info\n  format: console\n  file_path: " + logPath + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0644))
	return configPath, logPath
}

func TestExecute_RejectsConflictingSources(t *testing.T) {
	assert.Equal(t, 2, execute([]string{"-layout", "a.yaml", "-load", "b"}))
}

func TestExecute_RejectsUnknownFlag(t *testing.T) {
	assert.Equal(t, 2, execute([]string{"-bogus"}))
}

func TestExecute_FailureFlushesLog(t *testing.T) {
	dir := t.TempDir()
	configPath, logPath := writeConfig(t, dir)

	code := execute([]string{"-config", configPath, "-layout", filepath.Join(dir, "missing.yaml")})
	assert.Equal(t, 1, code)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "roomgraph failed")
}

func TestExecute_ScriptToLayout(t *testing.T) {
	dir := t.TempDir()
	configPath, logPath := writeConfig(t, dir)
	script := filepath.Join(dir, "build.lua")
	require.NoError(t, os.WriteFile(script, []byte(`
		local e = dungeon.create_node("", 0, 0)
		local c = dungeon.create_node("corridor", 200, 0)
		assert(dungeon.connect(e, c))
	`), 0644))
	out := filepath.Join(dir, "level.yaml")

	code := execute([]string{"-config", configPath, "-script", script, "-out", out, "-graph-id", "lvl", "-name", "Level"})
	require.Equal(t, 0, code)

	g, err := layout.LoadFile(out, roomtype.Default())
	require.NoError(t, err)
	assert.Equal(t, "lvl", g.ID)
	assert.Equal(t, 2, g.Len())
	assert.Len(t, g.Edges(), 1)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "graph summary")
}
