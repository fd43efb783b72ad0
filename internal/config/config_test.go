package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aliasprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	qt, err := cfg.QueryTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, qt)

	tt, err := cfg.ToolTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, tt)
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := writeConfig(t, `
oracle:
  path: /opt/llvm/bin/opt
  args: ["-O2", "{input}", "-S"]
workdir: files_sache
workers: 8
override: 0
query_timeout: 1m30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/llvm/bin/opt", cfg.Oracle.Path)
	assert.Equal(t, []string{"-O2", "{input}", "-S"}, cfg.Oracle.Args)
	assert.Equal(t, "files_sache", cfg.WorkDir)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 0, cfg.Override)
	assert.Equal(t, "1m30s", cfg.QueryTimeout)

	// Untouched sections keep their defaults.
	assert.Equal(t, "llvm-size", cfg.SizeTool.Path)
	assert.Equal(t, "; ModuleID", cfg.ModuleHeader)
}

func TestLoad_SchemaRejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"override out of range", "override: 5\n", "override"},
		{"zero workers", "workers: 0\n", "workers"},
		{"empty oracle path", "oracle:\n  path: \"\"\n  args: []\n", "path"},
		{"bad duration", "query_timeout: soon\n", "query_timeout"},
		{"empty header", "module_header: \"\"\n", "module_header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ZeroDurationRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "tool_timeout: 0s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "workers: [1, 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestTool_Command(t *testing.T) {
	cfg := Default()
	args := cfg.Frontend.Command(map[string]string{
		PlaceholderInput:   "csmith/file2.c",
		PlaceholderOutput:  "csmith/file2.ll",
		PlaceholderInclude: cfg.IncludeDir,
	})

	assert.Equal(t, []string{
		"-S", "-emit-llvm",
		"-I/usr/include/csmith-2.3.0",
		"-Xclang", "-disable-llvm-passes",
		"-o", "csmith/file2.ll",
		"csmith/file2.c",
		"-O1",
	}, args)

	// Command must not alias the configured slice.
	assert.Equal(t, PlaceholderInput, cfg.Frontend.Args[7])
}

func TestTool_CommandDropsEmptyPlaceholder(t *testing.T) {
	cfg := Default()
	cfg.IncludeDir = ""
	require.NoError(t, cfg.Validate())

	args := cfg.Frontend.Command(map[string]string{
		PlaceholderInput:   "test.c",
		PlaceholderOutput:  "test.ll",
		PlaceholderInclude: cfg.IncludeDir,
	})

	assert.Equal(t, []string{
		"-S", "-emit-llvm",
		"-Xclang", "-disable-llvm-passes",
		"-o", "test.ll",
		"test.c",
		"-O1",
	}, args)
}
