// Package report defines the per-stage run summaries and the JSON store
// that persists them inside the tree each stage writes.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Dir is the directory reports live in, relative to the tree root. The
// editor's tree copy carries it forward, so a fully processed publish tree
// holds all three stage reports.
const Dir = ".archivist"

// Stage report file names.
const (
	FetchFile  = "fetch.json"
	EditFile   = "edit.json"
	InjectFile = "inject.json"
)

// FetchReport summarizes one fetch run.
type FetchReport struct {
	RunID             string            `json:"run_id"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
	Domain            string            `json:"domain"`
	SnapshotTimestamp string            `json:"snapshot_timestamp"`
	PagesFetched      int               `json:"pages_fetched"`
	AssetsFetched     int               `json:"assets_fetched"`
	FetchFailures     int               `json:"fetch_failures"`
	DanglingLinks     []string          `json:"dangling_links,omitempty"`
	Pages             map[string]string `json:"pages"`
}

// EditReport summarizes one edit run.
type EditReport struct {
	RunID           string         `json:"run_id"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	FilesModified   int            `json:"files_modified"`
	EditsApplied    map[string]int `json:"edits_applied"`
	LastShowMoved   bool           `json:"last_show_moved"`
	InjectionPoints []string       `json:"injection_points,omitempty"`
}

// InjectReport summarizes one content-injection run.
type InjectReport struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	FilesProcessed int       `json:"files_processed"`
	FilesSkipped   int       `json:"files_skipped"`
	BlocksInjected int       `json:"blocks_injected"`
	BlocksSkipped  int       `json:"blocks_skipped"`
	ImagesCopied   int       `json:"images_copied"`
	Errors         []string  `json:"errors,omitempty"`
}

// Merged groups whichever stage reports exist under one root.
type Merged struct {
	Fetch  *FetchReport  `json:"fetch,omitempty"`
	Edit   *EditReport   `json:"edit,omitempty"`
	Inject *InjectReport `json:"inject,omitempty"`
}

// Store reads and writes stage reports under a tree root.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore returns a store rooted at the given tree.
func NewStore(root string, logger *zap.Logger) *Store {
	return &Store{root: root, logger: logger}
}

// WriteFetch persists the fetch report.
func (s *Store) WriteFetch(r FetchReport) error { return s.write(FetchFile, r) }

// WriteEdit persists the edit report.
func (s *Store) WriteEdit(r EditReport) error { return s.write(EditFile, r) }

// WriteInject persists the inject report.
func (s *Store) WriteInject(r InjectReport) error { return s.write(InjectFile, r) }

// ReadMerged loads whichever stage reports exist under the root. The bool
// reports whether any were found.
func (s *Store) ReadMerged() (Merged, bool) {
	var merged Merged
	found := false

	var fetch FetchReport
	if s.read(FetchFile, &fetch) {
		merged.Fetch = &fetch
		found = true
	}
	var edit EditReport
	if s.read(EditFile, &edit) {
		merged.Edit = &edit
		found = true
	}
	var inject InjectReport
	if s.read(InjectFile, &inject) {
		merged.Inject = &inject
		found = true
	}
	return merged, found
}

func (s *Store) write(name string, v any) error {
	dir := filepath.Join(s.root, Dir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create report dir %s: %w", dir, err)
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, payload, 0o600); err != nil {
		return fmt.Errorf("write report %s: %w", target, err)
	}
	return nil
}

func (s *Store) read(name string, v any) bool {
	target := filepath.Join(s.root, Dir, name)
	payload, err := os.ReadFile(target) // #nosec G304 -- name is a package constant
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to read report", zap.String("path", target), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(payload, v); err != nil {
		s.logger.Warn("Failed to decode report", zap.String("path", target), zap.Error(err))
		return false
	}
	return true
}
