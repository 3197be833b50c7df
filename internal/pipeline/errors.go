package pipeline

import "fmt"

// ConfigError denotes malformed input configuration (spec.md §7). Fatal
// before a run starts. Nothing in this module constructs one: the Driver
// never produces it, and configuration loading reports the same condition
// as config.Error. It is kept here since this is where the full §7
// taxonomy is documented end to end:
//
//	config.Error          -> fatal before run starts (internal/config)
//	store.LoadError      -> fatal, whole run aborts (internal/store)
//	compiler.CompileError -> fatal during baseline construction,
//	                         local (Invalid + continue) during mutant
//	                         construction (internal/compiler)
//	runner.Error          -> local: Invalid + continue (internal/runner)
//	junk.Error             -> local: treat as not-junk + proceed (internal/junk)
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config error: %s", e.Reason) }
