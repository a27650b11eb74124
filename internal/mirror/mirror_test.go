package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ccspace/archivist/internal/report"
	"github.com/ccspace/archivist/internal/wayback"
)

type fakeFetcher struct {
	mu         sync.Mutex
	bodies     map[string]string
	fetched    []string
	timestamps map[string]string
}

func newFakeFetcher(bodies map[string]string) *fakeFetcher {
	return &fakeFetcher{bodies: bodies, timestamps: make(map[string]string)}
}

func (f *fakeFetcher) Fetch(_ context.Context, timestamp, originalURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, originalURL)
	f.timestamps[originalURL] = timestamp
	body, ok := f.bodies[originalURL]
	if !ok {
		return nil, fmt.Errorf("no capture for %s", originalURL)
	}
	return []byte(body), nil
}

type fakeLister struct {
	captures []wayback.Capture
	err      error
	calls    int
}

func (f *fakeLister) ListPages(context.Context, string, string) ([]wayback.Capture, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.captures, nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Domain:            "ccspace.org",
		SnapshotTimestamp: "20170509211847",
		SnapshotURL:       "http://www.ccspace.org/",
		OutputDir:         t.TempDir(),
		MaxPages:          500,
	}
}

func readOutput(t *testing.T, cfg Config, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func TestRunMirrorsSite(t *testing.T) {
	cfg := testConfig(t)
	fetcher := newFakeFetcher(map[string]string{
		"http://www.ccspace.org/": `<html><head>
<script src="https://web.archive.org/static/js/wombat.js"></script>
<link rel="stylesheet" href="https://web.archive.org/web/20170509211847cs_/http://www.ccspace.org/css/main.css"/>
</head><body>
<div id="wm-ipp-base">replay toolbar</div>
<a href="/shows.php">Shows</a>
<a href="index.php?action=contact">Contact</a>
<img src="/images/logo.jpg"/>
<script src="/js/site.js"></script>
<script>__wm.init("https://web.archive.org/web");</script>
</body></html>`,
		"http://www.ccspace.org/shows.php": `<html><body>
<a href="/index.php?action=contact">Contact</a>
<a href="http://www.ccspace.org/">Home</a>
<p style="background: url(https://web.archive.org/web/20170509211847im_/http://www.ccspace.org/images/logo.jpg)">Live</p>
</body></html>`,
		"http://www.ccspace.org/index.php?action=contact": `<html><body>
<h1>Contact</h1>
<a href="shows.php">Back</a>
</body></html>`,
		"http://www.ccspace.org/css/main.css": `body { background: url(https://web.archive.org/web/20170509211847im_/http://www.ccspace.org/images/logo.jpg); }`,
		"http://www.ccspace.org/images/logo.jpg": "\xff\xd8\xff\xe0jpeg",
		"http://www.ccspace.org/js/site.js":      `var feed = "https://web.archive.org/web/20170509211847js_/http://www.ccspace.org/feed.xml";`,
	})

	m := New(cfg, fetcher, &fakeLister{}, zap.NewNop())
	rep, err := m.Run(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, 3, rep.PagesFetched)
	assert.Equal(t, 3, rep.AssetsFetched)
	assert.Equal(t, 0, rep.FetchFailures)
	assert.Empty(t, rep.DanglingLinks)
	assert.Equal(t, "index.html", rep.Pages["http://www.ccspace.org/"])
	assert.Equal(t, "shows.html", rep.Pages["http://www.ccspace.org/shows.php"])
	assert.Equal(t, "contact.html", rep.Pages["http://www.ccspace.org/index.php?action=contact"])
	require.NotEmpty(t, fetcher.fetched)
	assert.Equal(t, "http://www.ccspace.org/", fetcher.fetched[0])

	index := readOutput(t, cfg, "index.html")
	assert.NotContains(t, index, "web.archive.org")
	assert.NotContains(t, index, "wm-ipp")
	assert.NotContains(t, index, "__wm")
	assert.NotContains(t, index, "replay toolbar")
	assert.Contains(t, index, `href="css/main.css"`)
	assert.Contains(t, index, `href="shows.html"`)
	assert.Contains(t, index, `href="contact.html"`)
	assert.Contains(t, index, `src="images/logo.jpg"`)
	assert.Contains(t, index, `src="js/site.js"`)

	shows := readOutput(t, cfg, "shows.html")
	assert.Contains(t, shows, `href="contact.html"`)
	assert.Contains(t, shows, `href="index.html"`)
	assert.Contains(t, shows, `url(&#34;images/logo.jpg&#34;)`)
	assert.NotContains(t, shows, "web.archive.org")

	contact := readOutput(t, cfg, "contact.html")
	assert.Contains(t, contact, `href="shows.html"`)

	css := readOutput(t, cfg, "css/main.css")
	assert.Contains(t, css, `url("../images/logo.jpg")`)
	assert.NotContains(t, css, "web.archive.org")

	js := readOutput(t, cfg, "js/site.js")
	assert.Contains(t, js, `"http://www.ccspace.org/feed.xml"`)
	assert.NotContains(t, js, "web.archive.org")

	var written report.FetchReport
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, report.Dir, report.FetchFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, "run-1", written.RunID)
	assert.Equal(t, 3, written.PagesFetched)
}

func TestRunWritesRedirectStub(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnapshotURL = "http://www.ccspace.org/home.php"
	fetcher := newFakeFetcher(map[string]string{
		"http://www.ccspace.org/home.php": `<html><body><h1>CCSpace</h1></body></html>`,
	})

	m := New(cfg, fetcher, nil, zap.NewNop())
	rep, err := m.Run(context.Background(), "run-2")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.PagesFetched)
	assert.Equal(t, "home.html", rep.Pages["http://www.ccspace.org/home.php"])

	index := readOutput(t, cfg, "index.html")
	assert.Contains(t, index, `content="0; url=home.html"`)
	assert.Contains(t, index, `<a href="home.html">home.html</a>`)
	assert.Contains(t, index, "Redirecting to CCSpace.org Archive")
	assert.Contains(t, readOutput(t, cfg, "home.html"), "CCSpace")
	assert.Empty(t, rep.DanglingLinks)
}

func TestRunSurvivesListerFailure(t *testing.T) {
	cfg := testConfig(t)
	fetcher := newFakeFetcher(map[string]string{
		"http://www.ccspace.org/": `<html><body><p>hi</p></body></html>`,
	})
	lister := &fakeLister{err: errors.New("cdx down")}

	m := New(cfg, fetcher, lister, zap.NewNop())
	rep, err := m.Run(context.Background(), "run-3")
	require.NoError(t, err)

	assert.Equal(t, 1, lister.calls)
	assert.Equal(t, 1, rep.PagesFetched)
	assert.Contains(t, readOutput(t, cfg, "index.html"), "hi")
}

func TestRunCrawlsListedCaptures(t *testing.T) {
	cfg := testConfig(t)
	fetcher := newFakeFetcher(map[string]string{
		"http://www.ccspace.org/":          `<html><body><p>home</p></body></html>`,
		"http://www.ccspace.org/shows.php": `<html><body><p>shows</p></body></html>`,
	})
	lister := &fakeLister{captures: []wayback.Capture{
		{Original: "http://www.ccspace.org/", Timestamp: "20170509211847"},
		{Original: "http://www.ccspace.org/shows.php", Timestamp: "20170509120000"},
	}}

	m := New(cfg, fetcher, lister, zap.NewNop())
	rep, err := m.Run(context.Background(), "run-4")
	require.NoError(t, err)

	assert.Equal(t, 2, rep.PagesFetched)
	assert.Contains(t, readOutput(t, cfg, "shows.html"), "shows")

	// Listed captures keep their own timestamps, the seed uses the
	// configured one.
	assert.Equal(t, "20170509211847", fetcher.timestamps["http://www.ccspace.org/"])
	assert.Equal(t, "20170509120000", fetcher.timestamps["http://www.ccspace.org/shows.php"])
}

func TestRunReportsFailedPages(t *testing.T) {
	cfg := testConfig(t)
	fetcher := newFakeFetcher(map[string]string{
		"http://www.ccspace.org/": `<html><body><a href="/missing.php">Gone</a></body></html>`,
	})

	m := New(cfg, fetcher, nil, zap.NewNop())
	rep, err := m.Run(context.Background(), "run-5")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.PagesFetched)
	assert.Equal(t, 1, rep.FetchFailures)
	assert.Contains(t, rep.DanglingLinks, "index.html -> missing.html")
	assert.Contains(t, readOutput(t, cfg, "index.html"), `href="missing.html"`)
}

func TestRunReportsFailedAssets(t *testing.T) {
	cfg := testConfig(t)
	fetcher := newFakeFetcher(map[string]string{
		"http://www.ccspace.org/": `<html><body><img src="/images/gone.jpg"/></body></html>`,
	})

	m := New(cfg, fetcher, nil, zap.NewNop())
	rep, err := m.Run(context.Background(), "run-6")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.PagesFetched)
	assert.Equal(t, 0, rep.AssetsFetched)
	assert.Equal(t, 1, rep.FetchFailures)
	assert.Contains(t, rep.DanglingLinks, "index.html -> images/gone.jpg")
}

func TestRunHonorsMaxPages(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPages = 1
	fetcher := newFakeFetcher(map[string]string{
		"http://www.ccspace.org/":          `<html><body><a href="/shows.php">Shows</a></body></html>`,
		"http://www.ccspace.org/shows.php": `<html><body><p>shows</p></body></html>`,
	})

	m := New(cfg, fetcher, nil, zap.NewNop())
	rep, err := m.Run(context.Background(), "run-7")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.PagesFetched)
	assert.Len(t, fetcher.fetched, 1)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "shows.html"))
}

func TestRunFailsWithoutPages(t *testing.T) {
	cfg := testConfig(t)
	fetcher := newFakeFetcher(map[string]string{})

	m := New(cfg, fetcher, nil, zap.NewNop())
	_, err := m.Run(context.Background(), "run-8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pages fetched")
}
