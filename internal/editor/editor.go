// Package editor drives the edit stage. It rebuilds the publish tree from
// the archive, applies the fixed set of memorial edits to every page, and
// prepares the injection points the content stage fills in.
package editor

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ccspace/archivist/internal/metrics"
	"github.com/ccspace/archivist/internal/report"
)

// Config carries the edit stage directories.
type Config struct {
	ArchiveDir string
	PublishDir string
}

// Editor owns one edit-stage run.
type Editor struct {
	cfg    Config
	store  *report.Store
	logger *zap.Logger
}

// New wires an Editor.
func New(cfg Config, logger *zap.Logger) *Editor {
	return &Editor{
		cfg:    cfg,
		store:  report.NewStore(cfg.PublishDir, logger),
		logger: logger,
	}
}

// Run executes the full edit stage and writes the resulting report under
// the publish tree. The archive tree must exist.
func (e *Editor) Run(runID string) (report.EditReport, error) {
	rep := report.EditReport{
		RunID:        runID,
		StartedAt:    time.Now().UTC(),
		EditsApplied: make(map[string]int),
	}
	for _, name := range editNames {
		rep.EditsApplied[name] = 0
	}

	if err := e.resetPublishTree(); err != nil {
		return rep, err
	}
	if err := e.writeResponsiveCSS(); err != nil {
		return rep, fmt.Errorf("write responsive.css: %w", err)
	}

	pages := e.htmlFiles()
	e.logger.Info("Editing pages", zap.Int("count", len(pages)))
	for _, rel := range pages {
		counts, err := e.processPage(rel)
		if err != nil {
			e.logger.Warn("Page edit failed", zap.String("path", rel), zap.Error(err))
			continue
		}
		total := 0
		for name, n := range counts {
			rep.EditsApplied[name] += n
			metrics.ObserveEdits(name, n)
			total += n
		}
		if total > 0 {
			rep.FilesModified++
			e.logger.Info("Edited page", zap.String("path", rel), zap.Int("changes", total))
		}
	}

	rep.LastShowMoved = e.moveLastShow()
	rep.InjectionPoints = e.addContentDivs()
	rep.FinishedAt = time.Now().UTC()

	if err := e.store.WriteEdit(rep); err != nil {
		e.logger.Warn("Edit report write failed", zap.Error(err))
	}
	return rep, nil
}

// resetPublishTree replaces the publish tree with a fresh copy of the
// archive, reports included.
func (e *Editor) resetPublishTree() error {
	if _, err := os.Stat(e.cfg.ArchiveDir); err != nil {
		return fmt.Errorf("archive dir %s: %w", e.cfg.ArchiveDir, err)
	}
	if err := os.RemoveAll(e.cfg.PublishDir); err != nil {
		return fmt.Errorf("clear publish dir %s: %w", e.cfg.PublishDir, err)
	}
	if err := copyTree(e.cfg.ArchiveDir, e.cfg.PublishDir); err != nil {
		return fmt.Errorf("copy archive to publish dir: %w", err)
	}
	e.logger.Info("Copied archive tree",
		zap.String("from", e.cfg.ArchiveDir), zap.String("to", e.cfg.PublishDir))
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		data, err := os.ReadFile(p) // #nosec G304 -- path comes from walking the archive tree
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o600)
	})
}

// htmlFiles lists every page in the publish tree, slash separated and
// sorted for repeatable runs.
func (e *Editor) htmlFiles() []string {
	var pages []string
	err := filepath.WalkDir(e.cfg.PublishDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".html") {
			return nil
		}
		rel, relErr := filepath.Rel(e.cfg.PublishDir, p)
		if relErr != nil {
			return relErr
		}
		pages = append(pages, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		e.logger.Warn("Publish walk failed", zap.Error(err))
	}
	sort.Strings(pages)
	return pages
}

// processPage applies every per-page edit to one file and writes it back
// only when something changed, keeping untouched pages byte identical.
func (e *Editor) processPage(rel string) (map[string]int, error) {
	full := filepath.Join(e.cfg.PublishDir, filepath.FromSlash(rel))
	data, err := os.ReadFile(full) // #nosec G304 -- path comes from walking the publish tree
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	counts := applyPageEdits(pageContext{doc: doc, cssPath: responsiveCSSPath(rel)})

	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return counts, nil
	}

	out, err := doc.Html()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(full, []byte(out), 0o600); err != nil {
		return nil, err
	}
	return counts, nil
}

// responsiveCSSPath points from a page's directory back up to the
// stylesheet at the publish root.
func responsiveCSSPath(rel string) string {
	return strings.Repeat("../", strings.Count(rel, "/")) + "responsive.css"
}
