// Package config holds the paths, flags, and limits threaded through every
// prober component.
//
// A config starts from Default, which reproduces the historical fixed
// command lines, and is overlaid by an optional YAML file:
//
//	oracle:
//	  path: ../llvm-project/build_interact/bin/opt
//	  args: ["-Os", "{input}", "-S"]
//	backend:
//	  path: ../llvm-project/build_ast/bin/clang
//	workdir: files_sache
//	workers: 8
//	query_timeout: 30s
//
// The merged result is validated against an embedded CUE schema before use.
//
// # Argument templates
//
// Tool arguments may contain placeholders expanded per invocation:
//
//	{input}    module, source, or artifact consumed by the tool
//	{output}   file the tool should write
//	{include}  the configured include_dir
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Placeholders recognized in Tool.Args.
const (
	PlaceholderInput   = "{input}"
	PlaceholderOutput  = "{output}"
	PlaceholderInclude = "{include}"
)

// Tool is an external collaborator invocation.
type Tool struct {
	Path string   `yaml:"path" json:"path"`
	Args []string `yaml:"args" json:"args"`
}

// Command returns the argument vector with placeholders expanded.
// An argument naming a placeholder whose value is empty is dropped, so an
// unset include_dir leaves out "-I{include}" instead of passing a bare -I.
// The returned slice does not include Path.
func (t Tool) Command(vars map[string]string) []string {
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, k, v)
	}
	r := strings.NewReplacer(pairs...)
	args := make([]string, 0, len(t.Args))
	for _, a := range t.Args {
		if namesEmpty(a, vars) {
			continue
		}
		args = append(args, r.Replace(a))
	}
	return args
}

func namesEmpty(arg string, vars map[string]string) bool {
	for k, v := range vars {
		if v == "" && strings.Contains(arg, k) {
			return true
		}
	}
	return false
}

// Config is the prober configuration.
type Config struct {
	Frontend Tool `yaml:"frontend" json:"frontend"`
	Oracle   Tool `yaml:"oracle" json:"oracle"`
	Backend  Tool `yaml:"backend" json:"backend"`
	SizeTool Tool `yaml:"size_tool" json:"size_tool"`

	// IncludeDir is the system include path given to the front-end.
	IncludeDir string `yaml:"include_dir" json:"include_dir"`

	// WorkDir receives every per-index module and artifact.
	WorkDir string `yaml:"workdir" json:"workdir"`

	// ModuleHeader starts module streaming; FailureMarker aborts a run.
	ModuleHeader  string `yaml:"module_header" json:"module_header"`
	FailureMarker string `yaml:"failure_marker" json:"failure_marker"`

	// Override is the code sent to the substituted MayAlias query.
	Override int `yaml:"override" json:"override"`

	// Workers bounds concurrent substitution runs. 1 runs them in order.
	Workers int `yaml:"workers" json:"workers"`

	QueryTimeout string `yaml:"query_timeout" json:"query_timeout"`
	ToolTimeout  string `yaml:"tool_timeout" json:"tool_timeout"`

	// Database is an optional SQLite path for run history.
	Database string `yaml:"database" json:"database"`
}

// Default returns the stock clang, opt and llvm-size command lines.
func Default() *Config {
	return &Config{
		Frontend: Tool{
			Path: "clang",
			Args: []string{
				"-S", "-emit-llvm",
				"-I" + PlaceholderInclude,
				"-Xclang", "-disable-llvm-passes",
				"-o", PlaceholderOutput,
				PlaceholderInput,
				"-O1",
			},
		},
		Oracle: Tool{
			Path: "opt",
			Args: []string{"-Os", PlaceholderInput, "-S"},
		},
		Backend: Tool{
			Path: "clang",
			Args: []string{"-Os", PlaceholderInput, "-o", PlaceholderOutput},
		},
		SizeTool: Tool{
			Path: "llvm-size",
			Args: []string{PlaceholderInput},
		},
		IncludeDir:    "/usr/include/csmith-2.3.0",
		WorkDir:       "aliasprobe-work",
		ModuleHeader:  "; ModuleID",
		FailureMarker: "Failed",
		Override:      1,
		Workers:       1,
		QueryTimeout:  "60s",
		ToolTimeout:   "5m",
	}
}

// Load reads path (if non-empty) over Default and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config against the CUE schema and parses durations.
func (c *Config) Validate() error {
	if err := validateSchema(c); err != nil {
		return err
	}
	if _, err := c.QueryTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.ToolTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// QueryTimeoutDuration is the limit on waiting for a single oracle line.
func (c *Config) QueryTimeoutDuration() (time.Duration, error) {
	return parsePositive("query_timeout", c.QueryTimeout)
}

// ToolTimeoutDuration is the limit on a single compile or size invocation.
func (c *Config) ToolTimeoutDuration() (time.Duration, error) {
	return parsePositive("tool_timeout", c.ToolTimeout)
}

func parsePositive(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, s)
	}
	return d, nil
}
