package content

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ccspace/archivist/internal/report"
)

const publishPage = `<html><head><title>events</title></head><body>
<div id="content">
<div class="blurb">Old blurb.</div>
<div id="newContent"></div>
</div>
</body></html>`

func testInjector(t *testing.T) *Injector {
	t.Helper()
	root := t.TempDir()
	return New(Config{
		ContentDir: filepath.Join(root, "newContent"),
		PublishDir: filepath.Join(root, "docs"),
	}, zap.NewNop())
}

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o600))
	}
}

func readDocs(t *testing.T, j *Injector, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(j.cfg.PublishDir, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func TestRunInjectsBlocks(t *testing.T) {
	j := testInjector(t)
	writeTree(t, j.cfg.PublishDir, map[string]string{"events.html": publishPage})
	writeTree(t, j.cfg.ContentDir, map[string]string{
		"updates.md": `---
target_html: events.html
---

<!-- block: element: #newContent -->
# Upcoming

The space is closed, but the archive lives on.

<!-- block: element: .blurb -->
A fresh blurb.
`,
	})

	rep, err := j.Run("inject-1")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.FilesProcessed)
	assert.Equal(t, 0, rep.FilesSkipped)
	assert.Equal(t, 2, rep.BlocksInjected)
	assert.Equal(t, 0, rep.BlocksSkipped)

	page := readDocs(t, j, "events.html")
	assert.Contains(t, page, `<div id="newContent"><h1>Upcoming</h1>`)
	assert.Contains(t, page, "<p>The space is closed, but the archive lives on.</p>")
	assert.Contains(t, page, `<div class="blurb"><p>A fresh blurb.</p>`)
	assert.NotContains(t, page, "Old blurb.")

	var written report.InjectReport
	require.NoError(t, json.Unmarshal(
		[]byte(readDocs(t, j, report.Dir+"/"+report.InjectFile)), &written))
	assert.Equal(t, "inject-1", written.RunID)
	assert.Equal(t, 2, written.BlocksInjected)
}

func TestRunSkipsMissingSelector(t *testing.T) {
	j := testInjector(t)
	writeTree(t, j.cfg.PublishDir, map[string]string{"index.html": publishPage})
	writeTree(t, j.cfg.ContentDir, map[string]string{
		"gone.md": "---\ntarget_html: index.html\n---\n\n<!-- block: element: #missing -->\nhello\n",
	})

	rep, err := j.Run("inject-1")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.FilesProcessed)
	assert.Equal(t, 0, rep.BlocksInjected)
	assert.Equal(t, 1, rep.BlocksSkipped)
	// Nothing landed, so the page stays byte identical.
	assert.Equal(t, publishPage, readDocs(t, j, "index.html"))
}

func TestRunSkipsBrokenFiles(t *testing.T) {
	j := testInjector(t)
	writeTree(t, j.cfg.PublishDir, map[string]string{"index.html": publishPage})
	writeTree(t, j.cfg.ContentDir, map[string]string{
		"good.md":      "---\ntarget_html: index.html\n---\n\n<!-- block: element: #newContent -->\nStill here.\n",
		"no-front.md":  "# Markdown without frontmatter\n",
		"no-target.md": "---\nauthor: someone\n---\n\n<!-- block: element: #x -->\nhi\n",
		"no-page.md":   "---\ntarget_html: missing.html\n---\n\n<!-- block: element: #x -->\nhi\n",
	})

	rep, err := j.Run("inject-1")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.FilesProcessed)
	assert.Equal(t, 3, rep.FilesSkipped)
	assert.Equal(t, 1, rep.BlocksInjected)
	assert.Len(t, rep.Errors, 3)
	assert.Contains(t, readDocs(t, j, "index.html"), "<p>Still here.</p>")
}

func TestRunCopiesMedia(t *testing.T) {
	j := testInjector(t)
	writeTree(t, j.cfg.PublishDir, map[string]string{
		"index.html":      publishPage,
		"images/logo.png": "old bytes",
	})
	writeTree(t, j.cfg.ContentDir, map[string]string{
		"logo.png":          "new bytes",
		"photos/show42.jpg": "jpeg bytes",
		"notes.txt":         "not media",
	})

	rep, err := j.Run("inject-1")
	require.NoError(t, err)

	assert.Equal(t, 2, rep.ImagesCopied)
	assert.Equal(t, "new bytes", readDocs(t, j, "images/logo.png"))
	assert.Equal(t, "jpeg bytes", readDocs(t, j, "images/photos/show42.jpg"))
	assert.NoFileExists(t, filepath.Join(j.cfg.PublishDir, "images", "notes.txt"))
}

func TestRunHandlesNestedContent(t *testing.T) {
	j := testInjector(t)
	writeTree(t, j.cfg.PublishDir, map[string]string{"pages/about.html": publishPage})
	writeTree(t, j.cfg.ContentDir, map[string]string{
		"drafts/about.md": "---\ntarget_html: pages/about.html\n---\n\n<!-- block: element: #newContent -->\nNested.\n",
	})

	rep, err := j.Run("inject-1")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.FilesProcessed)
	assert.Contains(t, readDocs(t, j, "pages/about.html"), "<p>Nested.</p>")
}

func TestRunRequiresContentDir(t *testing.T) {
	j := testInjector(t)
	writeTree(t, j.cfg.PublishDir, map[string]string{"index.html": publishPage})

	_, err := j.Run("inject-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content dir")
}

func TestRunRequiresPublishDir(t *testing.T) {
	j := testInjector(t)
	writeTree(t, j.cfg.ContentDir, map[string]string{
		"a.md": "---\ntarget_html: index.html\n---\n\n<!-- block: element: #x -->\nhi\n",
	})

	_, err := j.Run("inject-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish dir")
}
