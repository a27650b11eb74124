// Package content drives the injection stage. It parses markdown content
// files, converts their blocks to HTML, and splices them into the pages the
// editor prepared, carrying any bundled media into the publish tree.
package content

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

// Config carries the injection stage directories.
type Config struct {
	ContentDir string
	PublishDir string
}

// Injector owns one injection-stage run.
type Injector struct {
	cfg    Config
	store  *report.Store
	logger *zap.Logger
}

// New wires an Injector.
func New(cfg Config, logger *zap.Logger) *Injector {
	return &Injector{
		cfg:    cfg,
		store:  report.NewStore(cfg.PublishDir, logger),
		logger: logger,
	}
}

// Run executes the full injection stage and writes the resulting report
// under the publish tree. Both directories must exist; a broken content
// file skips that file only.
func (j *Injector) Run(runID string) (report.InjectReport, error) {
	rep := report.InjectReport{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
	}

	if _, err := os.Stat(j.cfg.ContentDir); err != nil {
		return rep, fmt.Errorf("content dir %s: %w", j.cfg.ContentDir, err)
	}
	if _, err := os.Stat(j.cfg.PublishDir); err != nil {
		return rep, fmt.Errorf("publish dir %s: %w", j.cfg.PublishDir, err)
	}

	copied, err := j.copyMedia()
	rep.ImagesCopied = copied
	if err != nil {
		return rep, err
	}

	files := j.contentFiles()
	j.logger.Info("Injecting content", zap.Int("files", len(files)))
	for _, rel := range files {
		injected, skipped, err := j.processFile(rel)
		rep.BlocksInjected += injected
		rep.BlocksSkipped += skipped
		if err != nil {
			j.logger.Warn("Content file failed", zap.String("path", rel), zap.Error(err))
			rep.FilesSkipped++
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		rep.FilesProcessed++
	}
	rep.FinishedAt = time.Now().UTC()

	if err := j.store.WriteInject(rep); err != nil {
		j.logger.Warn("Inject report write failed", zap.Error(err))
	}
	return rep, nil
}

// contentFiles lists every markdown file in the content tree, slash
// separated and sorted for repeatable runs.
func (j *Injector) contentFiles() []string {
	var files []string
	err := filepath.WalkDir(j.cfg.ContentDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(j.cfg.ContentDir, p)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		j.logger.Warn("Content walk failed", zap.Error(err))
	}
	sort.Strings(files)
	return files
}

// processFile parses one content file and splices its converted blocks into
// the target page. The page is rewritten only when at least one block lands,
// so pages with nothing but missed selectors stay byte identical.
func (j *Injector) processFile(rel string) (injected, skipped int, err error) {
	data, err := os.ReadFile(filepath.Join(j.cfg.ContentDir, filepath.FromSlash(rel))) // #nosec G304 -- path comes from walking the content tree
	if err != nil {
		return 0, 0, err
	}
	file, err := parseContentFile(rel, data)
	if err != nil {
		return 0, 0, err
	}
	if err := file.convert(); err != nil {
		return 0, 0, err
	}

	targetPath := filepath.Join(j.cfg.PublishDir, filepath.FromSlash(file.TargetHTML))
	pageData, err := os.ReadFile(targetPath) // #nosec G304 -- named by the content file, joined under the publish dir
	if err != nil {
		return 0, 0, fmt.Errorf("target page %s: %w", file.TargetHTML, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageData))
	if err != nil {
		return 0, 0, err
	}

	for _, block := range file.Blocks {
		target := doc.Find(block.Selector).First()
		if target.Length() == 0 {
			j.logger.Warn("Selector not found",
				zap.String("selector", block.Selector), zap.String("page", file.TargetHTML))
			metrics.ObserveBlockInjection(metrics.StatusSkipped)
			skipped++
			continue
		}
		target.SetHtml(block.HTML)
		metrics.ObserveBlockInjection(metrics.StatusOK)
		j.logger.Debug("Injected block",
			zap.String("selector", block.Selector), zap.String("page", file.TargetHTML))
		injected++
	}

	if injected == 0 {
		return injected, skipped, nil
	}
	out, err := doc.Html()
	if err != nil {
		return injected, skipped, err
	}
	if err := os.WriteFile(targetPath, []byte(out), 0o600); err != nil {
		return injected, skipped, err
	}
	j.logger.Info("Updated page",
		zap.String("page", file.TargetHTML), zap.Int("blocks", injected))
	return injected, skipped, nil
}
