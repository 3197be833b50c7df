// Package history keeps a keyed record of the last mutation run, with a
// content digest per entry that Unchanged compares against, grounded on
// sivchari/gomu's internal/history/store.go (a JSON file of keyed
// entries, loaded on New, written on Save). The key is whatever string
// the caller passes; pkg/mutir and internal/ci key entries by test
// display name, and neither skips work based on Unchanged.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sivchari/mutir/internal/mutate"
	"github.com/sivchari/mutir/internal/pipeline"
	"github.com/sivchari/mutir/internal/result"
)

// MutantRecord is the durable, JSON-safe summary of one MutationResult.
// pipeline.MutationResult itself is not stored directly: its Point
// carries live *ir.Instruction graph references that are neither
// meaningful nor safely acyclic once serialized.
type MutantRecord struct {
	PointID  string        `json:"pointId"`
	Operator mutate.Kind   `json:"operator"`
	Status   result.Status `json:"status"`
}

// TestRecord is the durable summary of one pipeline.TestResult.
type TestRecord struct {
	Test           string         `json:"test"`
	BaselineStatus result.Status  `json:"baselineStatus"`
	Mutants        []MutantRecord `json:"mutants"`
}

// Entry is the recorded outcome for a Module the last time it was run.
type Entry struct {
	ContentDigest string       `json:"contentDigest"`
	Tests         []TestRecord `json:"tests"`
	Timestamp     time.Time    `json:"timestamp"`
	MutationScore float64      `json:"mutationScore"`
}

// Summarize converts live pipeline.TestResults into their durable form.
func Summarize(tests []pipeline.TestResult) []TestRecord {
	records := make([]TestRecord, 0, len(tests))

	for _, tr := range tests {
		rec := TestRecord{Test: tr.Test.DisplayName, BaselineStatus: tr.Baseline.Status}

		for _, m := range tr.Mutants {
			rec.Mutants = append(rec.Mutants, MutantRecord{
				PointID:  m.Point.ID,
				Operator: m.Point.Operator,
				Status:   m.Execution.Status,
			})
		}

		records = append(records, rec)
	}

	return records
}

// Store manages run history keyed by a caller-chosen string (a Module
// source path in this package's tests, a test display name in
// pkg/mutir and internal/ci).
type Store struct {
	path    string
	entries map[string]Entry
}

// New loads path if it exists, or starts empty (a missing history file
// is not an error, matching sivchari/gomu's errors.Is(err, os.ErrNotExist)
// tolerance in New).
func New(path string) (*Store, error) {
	s := &Store{path: path, entries: make(map[string]Entry)}

	if err := s.load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load history: %w", err)
		}
	}

	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var wire struct {
		Entries map[string]Entry `json:"entries"`
	}

	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("unmarshal history: %w", err)
	}

	if wire.Entries != nil {
		s.entries = wire.Entries
	}

	return nil
}

// Save writes the store to disk as indented JSON.
func (s *Store) Save() error {
	wire := struct {
		Entries map[string]Entry `json:"entries"`
		SavedAt time.Time        `json:"savedAt"`
		Version string           `json:"version"`
	}{
		Entries: s.entries,
		SavedAt: time.Now(),
		Version: "v0.0.0",
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}

	return nil
}

// Get returns the recorded Entry for a Module's source path.
func (s *Store) Get(modulePath string) (Entry, bool) {
	e, ok := s.entries[modulePath]

	return e, ok
}

// Update records the test results obtained for a Module at digest.
func (s *Store) Update(modulePath, digest string, tests []pipeline.TestResult) {
	records := Summarize(tests)

	var killed, total int

	for _, tr := range records {
		for _, m := range tr.Mutants {
			total++

			if m.Status == result.StatusFailed {
				killed++
			}
		}
	}

	var score float64
	if total > 0 {
		score = float64(killed) / float64(total) * 100
	}

	s.entries[modulePath] = Entry{
		ContentDigest: digest,
		Tests:         records,
		Timestamp:     time.Now(),
		MutationScore: score,
	}
}

// Unchanged reports whether modulePath's content digest matches the last
// recorded run, meaning it can be skipped this time.
func (s *Store) Unchanged(modulePath, digest string) bool {
	entry, ok := s.entries[modulePath]
	if !ok {
		return false
	}

	return entry.ContentDigest == digest
}

// Stats summarizes the whole history store.
type Stats struct {
	TotalModules int       `json:"totalModules"`
	TotalMutants int       `json:"totalMutants"`
	TotalKilled  int       `json:"totalKilled"`
	AverageScore float64   `json:"averageScore"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// GetStats aggregates statistics across every recorded Module.
func (s *Store) GetStats() Stats {
	var totalModules, totalMutants, totalKilled int

	var totalScore float64

	for _, entry := range s.entries {
		totalModules++
		totalScore += entry.MutationScore

		for _, tr := range entry.Tests {
			for _, m := range tr.Mutants {
				totalMutants++

				if m.Status == result.StatusFailed {
					totalKilled++
				}
			}
		}
	}

	var avgScore float64
	if totalModules > 0 {
		avgScore = totalScore / float64(totalModules)
	}

	return Stats{
		TotalModules: totalModules,
		TotalMutants: totalMutants,
		TotalKilled:  totalKilled,
		AverageScore: avgScore,
		LastUpdated:  time.Now(),
	}
}
