package junk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// compDBEntry mirrors one object of the standard JSON compilation database
// format (spec.md §6): either a "command" string or an "arguments" array,
// plus the directory the file was compiled from.
type compDBEntry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
}

func loadCompilationDatabase(path string) (*CompilationDatabase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compilation database %s: %w", path, err)
	}

	var raw []compDBEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse compilation database %s: %w", path, err)
	}

	db := &CompilationDatabase{entries: make(map[string][]string, len(raw))}

	for _, e := range raw {
		abs := e.File
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(e.Directory, e.File)
		}

		args := e.Arguments
		if len(args) == 0 && e.Command != "" {
			args = splitCommand(e.Command)
		}

		db.entries[abs] = args
	}

	return db, nil
}

// FlagsFor returns the recorded arguments for path, if any.
func (db *CompilationDatabase) FlagsFor(path string) ([]string, bool) {
	if db == nil {
		return nil, false
	}

	args, ok := db.entries[path]

	return args, ok
}

func splitCommand(cmd string) []string {
	var args []string

	var cur []rune

	inQuote := rune(0)

	flush := func() {
		if len(cur) > 0 {
			args = append(args, string(cur))
			cur = nil
		}
	}

	for _, r := range cmd {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			} else {
				cur = append(cur, r)
			}
		case r == '"' || r == '\'':
			inQuote = r
		case r == ' ' || r == '\t':
			flush()
		default:
			cur = append(cur, r)
		}
	}

	flush()

	return args
}
