package mirror

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ccspace/archivist/internal/rewrite"
)

// writeFile writes one mirrored file under OutputDir, creating parent
// directories as needed. localPath is slash separated.
func (m *Mirror) writeFile(localPath string, data []byte) error {
	full := filepath.Join(m.cfg.OutputDir, filepath.FromSlash(localPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o600)
}

// writePages rewrites every held page against the final URL map and saves
// it. Pages go out in path order so runs are repeatable.
func (m *Mirror) writePages(pages map[string]fetchedPage) {
	paths := make([]string, 0, len(pages))
	for p := range pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, localPath := range paths {
		pg := pages[localPath]
		rewritten, err := m.mapper.RewritePage(pg.html, localPath)
		if err != nil {
			m.logger.Warn("Page rewrite failed", zap.String("path", localPath), zap.Error(err))
			continue
		}
		if err := m.writeFile(localPath, []byte(rewritten)); err != nil {
			m.logger.Warn("Page write failed", zap.String("path", localPath), zap.Error(err))
			continue
		}
		m.logger.Debug("Saved page", zap.String("path", localPath), zap.String("url", pg.originalURL))
	}
}

// rewriteStylesheets runs the CSS URL rewrite over every stylesheet in the
// output tree, now that the URL map is complete.
func (m *Mirror) rewriteStylesheets() {
	m.walkSuffix(".css", func(full, local string) {
		data, err := os.ReadFile(full) // #nosec G304 -- path comes from walking our own output tree
		if err != nil {
			m.logger.Warn("Stylesheet read failed", zap.String("path", local), zap.Error(err))
			return
		}
		rewritten := m.mapper.RewriteCSS(string(data), local)
		if err := os.WriteFile(full, []byte(rewritten), 0o600); err != nil {
			m.logger.Warn("Stylesheet write failed", zap.String("path", local), zap.Error(err))
			return
		}
		m.logger.Debug("Rewrote stylesheet", zap.String("path", local))
	})
}

// cleanScripts strips stray replay URLs out of JavaScript files. Files are
// rewritten only when something changed; unreadable files are skipped.
func (m *Mirror) cleanScripts() {
	m.walkSuffix(".js", func(full, local string) {
		data, err := os.ReadFile(full) // #nosec G304 -- path comes from walking our own output tree
		if err != nil {
			return
		}
		cleaned := rewrite.StripWaybackURLs(string(data))
		if cleaned == string(data) {
			return
		}
		if err := os.WriteFile(full, []byte(cleaned), 0o600); err != nil {
			m.logger.Warn("Script write failed", zap.String("path", local), zap.Error(err))
			return
		}
		m.logger.Debug("Cleaned script", zap.String("path", local))
	})
}

// walkSuffix calls fn for every file under OutputDir whose name ends in
// suffix. fn receives the absolute path and the slash-separated path
// relative to OutputDir.
func (m *Mirror) walkSuffix(suffix string, fn func(full, local string)) {
	err := filepath.WalkDir(m.cfg.OutputDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), suffix) {
			return nil
		}
		rel, relErr := filepath.Rel(m.cfg.OutputDir, p)
		if relErr != nil {
			return relErr
		}
		fn(p, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		m.logger.Warn("Output walk failed", zap.String("suffix", suffix), zap.Error(err))
	}
}

func redirectStub(target string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta http-equiv="refresh" content="0; url=%[1]s">
    <title>Redirecting to CCSpace.org Archive</title>
</head>
<body>
    <p>Redirecting to <a href="%[1]s">%[1]s</a>...</p>
</body>
</html>
`, target)
}

// writeRedirectStub makes sure the tree opens from index.html. When the
// main page landed somewhere else a small refresh shim points at it; when
// no main page was identified and index.html is missing, the usual
// alternative names are tried.
func (m *Mirror) writeRedirectStub(mainLocal string) {
	indexPath := filepath.Join(m.cfg.OutputDir, "index.html")

	if mainLocal != "" && mainLocal != "index.html" {
		if err := os.WriteFile(indexPath, []byte(redirectStub(mainLocal)), 0o600); err != nil {
			m.logger.Warn("Redirect stub write failed", zap.Error(err))
			return
		}
		m.logger.Info("Created redirect stub", zap.String("target", mainLocal))
		return
	}

	if _, err := os.Stat(indexPath); err == nil {
		return
	}
	for _, candidate := range []string{"home.html", "main.html"} {
		if _, err := os.Stat(filepath.Join(m.cfg.OutputDir, candidate)); err != nil {
			continue
		}
		if err := os.WriteFile(indexPath, []byte(redirectStub(candidate)), 0o600); err != nil {
			m.logger.Warn("Redirect stub write failed", zap.Error(err))
			return
		}
		m.logger.Info("Created redirect stub", zap.String("target", candidate))
		return
	}
}
