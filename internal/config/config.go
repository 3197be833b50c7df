// Package config loads the YAML configuration file that drives a mutir
// run, grounded on sivchari/gomu's internal/config/yaml_config.go (a
// single dual yaml+json tagged struct tree, sensible defaults applied
// after unmarshal, a handful of default-location candidates when no
// path is given). Unlike sivchari/gomu, this package keeps only the
// unified tree — sivchari/gomu's separate legacy JSON-only Config has no
// surviving purpose once every caller speaks the YAML shape natively,
// so it was consolidated away rather than kept alongside it (see
// DESIGN.md).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root of a mutir run's configuration.
type Config struct {
	Verbose bool `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	Workers int  `yaml:"workers,omitempty" json:"workers,omitempty"`

	Bitcode     BitcodeConfig     `yaml:"bitcode,omitempty" json:"bitcode,omitempty"`
	CXX         CXXConfig         `yaml:"cxx,omitempty" json:"cxx,omitempty"`
	Mutation    MutationConfig    `yaml:"mutation,omitempty" json:"mutation,omitempty"`
	Test        TestConfig        `yaml:"test,omitempty" json:"test,omitempty"`
	Incremental IncrementalConfig `yaml:"incremental,omitempty" json:"incremental,omitempty"`
	Output      OutputConfig      `yaml:"output,omitempty" json:"output,omitempty"`
	CI          CIConfig          `yaml:"ci,omitempty" json:"ci,omitempty"`
	Ignore      IgnoreConfig      `yaml:"ignore,omitempty" json:"ignore,omitempty"`
}

// BitcodeConfig names the Modules a run loads (spec.md §4.1). Paths is an
// explicit, ordered list: duplicate entries are a ConfigError (spec.md §7),
// caught by Validate.
type BitcodeConfig struct {
	Paths []string `yaml:"paths,omitempty" json:"paths,omitempty"`
}

// CXXConfig locates the compilation database and fallback compiler flags
// the Junk Detector's AST frontend uses to pick a C/C++ dialect and
// per-file arguments (spec.md §6).
type CXXConfig struct {
	CompilationDatabaseDir string `yaml:"compilationDatabaseDir,omitempty" json:"compilationDatabaseDir,omitempty"`
	CompilationFlags       string `yaml:"compilationFlags,omitempty" json:"compilationFlags,omitempty"`
}

// MutationConfig selects which Mutation Operators run (spec.md §4.3).
// Limit is loaded and saved with the rest of the configuration, but no
// part of the run reads it: the number of Mutation Points is not capped.
type MutationConfig struct {
	Operators []string `yaml:"operators,omitempty" json:"operators,omitempty"`
	Limit     int      `yaml:"limit,omitempty" json:"limit,omitempty"`
}

// TestConfig bounds how long the Test Runner waits on a single test.
type TestConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty" json:"timeoutSeconds,omitempty"`
}

// IncrementalConfig controls whether a non-CI run records its per-test
// results in the history store at HistoryFile. Nothing is skipped on a
// re-run: every configured Module and test runs each time.
type IncrementalConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	HistoryFile string `yaml:"historyFile,omitempty" json:"historyFile,omitempty"`
}

// OutputConfig selects the Result report's format and destination.
type OutputConfig struct {
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// CIConfig configures the quality gate evaluator and its report.
type CIConfig struct {
	Enabled     bool              `yaml:"enabled" json:"enabled"`
	QualityGate QualityGateConfig `yaml:"qualityGate,omitempty" json:"qualityGate,omitempty"`
	Reports     CIReportsConfig   `yaml:"reports,omitempty" json:"reports,omitempty"`
}

// QualityGateConfig mirrors sivchari/gomu's threshold shape, scoped to the
// mutation score and survivor count this spec actually computes; the
// teacher's GradualEnforcement/BaselineFile ratchet and GitHub
// PR-comment integration are dropped (see DESIGN.md: no networking
// collaborator exists anywhere in this spec for posting PR comments).
type QualityGateConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	MinMutationScore  float64 `yaml:"minMutationScore,omitempty" json:"minMutationScore,omitempty"`
	MaxSurvivors      int     `yaml:"maxSurvivors,omitempty" json:"maxSurvivors,omitempty"`
	FailOnQualityGate bool    `yaml:"failOnQualityGate" json:"failOnQualityGate"`
}

// CIReportsConfig selects the CI report format and destination. Only the
// first entry of Formats is used.
type CIReportsConfig struct {
	Formats   []string `yaml:"formats,omitempty" json:"formats,omitempty"`
	OutputDir string   `yaml:"outputDir,omitempty" json:"outputDir,omitempty"`
}

// IgnoreConfig names the ignore file filtering Module source paths out
// of consideration (modeled on .gitignore).
type IgnoreConfig struct {
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

// Error is a ConfigError (spec.md §7): malformed configuration, fatal
// before a run starts.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("config error: %s", e.Reason) }

// Default returns a Config with the same sensible-defaults shape the
// teacher's DefaultYAML establishes.
func Default() *Config {
	return &Config{
		Workers: 4,
		CXX: CXXConfig{
			CompilationDatabaseDir: ".",
		},
		Mutation: MutationConfig{
			Operators: []string{"conditionals_boundary", "math_add", "math_sub"},
			Limit:     1000,
		},
		Test: TestConfig{
			TimeoutSeconds: 30,
		},
		Incremental: IncrementalConfig{
			Enabled:     true,
			HistoryFile: ".mutir_history.json",
		},
		Output: OutputConfig{
			Format: "json",
		},
		CI: CIConfig{
			QualityGate: QualityGateConfig{
				MinMutationScore:  80.0,
				FailOnQualityGate: true,
			},
			Reports: CIReportsConfig{
				Formats:   []string{"json"},
				OutputDir: ".",
			},
		},
		Ignore: IgnoreConfig{
			File: ".mutirignore",
		},
	}
}

// Load reads path, or one of the default candidate filenames when path
// is empty, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{".mutir.yaml", ".mutir.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate

				break
			}
		}
	}

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Reason: fmt.Sprintf("read %s: %v", path, err)}
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return &Error{Reason: fmt.Sprintf("parse %s: %v", path, err)}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}

	if c.Test.TimeoutSeconds <= 0 {
		c.Test.TimeoutSeconds = 30
	}

	if len(c.Mutation.Operators) == 0 {
		c.Mutation.Operators = []string{"conditionals_boundary", "math_add", "math_sub"}
	}

	if c.Incremental.HistoryFile == "" {
		c.Incremental.HistoryFile = ".mutir_history.json"
	}

	if c.Output.Format == "" {
		c.Output.Format = "json"
	}

	if c.CI.QualityGate.MinMutationScore == 0 {
		c.CI.QualityGate.MinMutationScore = 80.0
	}

	if len(c.CI.Reports.Formats) == 0 {
		c.CI.Reports.Formats = []string{"json"}
	}

	if c.CI.Reports.OutputDir == "" {
		c.CI.Reports.OutputDir = "."
	}

	if c.Ignore.File == "" {
		c.Ignore.File = ".mutirignore"
	}
}

// Validate catches the ConfigError cases spec.md §7 names explicitly:
// an empty bitcode path list, and duplicate bitcode paths.
func (c *Config) Validate() error {
	if len(c.Bitcode.Paths) == 0 {
		return &Error{Reason: "bitcode.paths must name at least one module"}
	}

	seen := make(map[string]bool, len(c.Bitcode.Paths))
	for _, p := range c.Bitcode.Paths {
		if seen[p] {
			return &Error{Reason: fmt.Sprintf("duplicate bitcode path: %s", p)}
		}

		seen[p] = true
	}

	return nil
}

// Save writes c to filename as YAML, creating its parent directory if
// needed, matching sivchari/gomu's SaveYAML.
func (c *Config) Save(filename string) error {
	dir := filepath.Dir(filename)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}
