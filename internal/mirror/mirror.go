// Package mirror drives the fetch stage. It crawls the archived snapshot of
// the site, strips replay artifacts from every page, downloads the assets
// the pages reference, and rewrites all links so the saved tree works as a
// self-contained static mirror.
package mirror

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ccspace/archivist/internal/metrics"
	"github.com/ccspace/archivist/internal/report"
	"github.com/ccspace/archivist/internal/rewrite"
	"github.com/ccspace/archivist/internal/wayback"
)

// Fetcher downloads one archived resource identified by its snapshot
// timestamp and original URL.
type Fetcher interface {
	Fetch(ctx context.Context, timestamp, originalURL string) ([]byte, error)
}

// PageLister enumerates the HTML captures recorded for a domain around a
// snapshot timestamp.
type PageLister interface {
	ListPages(ctx context.Context, domain, snapshotTS string) ([]wayback.Capture, error)
}

// Config carries the crawl parameters for one mirror run.
type Config struct {
	Domain            string
	SnapshotTimestamp string
	SnapshotURL       string
	OutputDir         string
	MaxPages          int
}

// Mirror owns one fetch-stage run.
type Mirror struct {
	cfg     Config
	fetcher Fetcher
	lister  PageLister
	mapper  *rewrite.Mapper
	store   *report.Store
	logger  *zap.Logger
}

// New wires a Mirror. The lister may be nil, in which case the crawl starts
// from the seed page alone.
func New(cfg Config, fetcher Fetcher, lister PageLister, logger *zap.Logger) *Mirror {
	return &Mirror{
		cfg:     cfg,
		fetcher: fetcher,
		lister:  lister,
		mapper:  rewrite.NewMapper(cfg.Domain),
		store:   report.NewStore(cfg.OutputDir, logger),
		logger:  logger,
	}
}

// workItem is one pending page download.
type workItem struct {
	url       string
	timestamp string
}

// fetchedPage holds a stripped page body until the rewrite pass runs, once
// every URL-to-file mapping is known.
type fetchedPage struct {
	html        string
	originalURL string
}

// Run executes the full fetch stage and writes the resulting report under
// OutputDir. The returned report is the same one written to disk.
func (m *Mirror) Run(ctx context.Context, runID string) (report.FetchReport, error) {
	rep := report.FetchReport{
		RunID:             runID,
		StartedAt:         time.Now().UTC(),
		Domain:            m.cfg.Domain,
		SnapshotTimestamp: m.cfg.SnapshotTimestamp,
		Pages:             make(map[string]string),
	}

	if err := os.MkdirAll(m.cfg.OutputDir, 0o750); err != nil {
		return rep, fmt.Errorf("create output dir %s: %w", m.cfg.OutputDir, err)
	}

	queue := m.seedQueue(ctx)
	pages, assetURLs, mainLocal := m.crawlPages(ctx, queue, &rep)
	if len(pages) == 0 {
		return rep, fmt.Errorf("no pages fetched starting from %s", m.cfg.SnapshotURL)
	}

	m.downloadAssets(ctx, m.filterAssets(assetURLs), &rep)
	m.writePages(pages)
	m.rewriteStylesheets()
	m.cleanScripts()
	m.writeRedirectStub(mainLocal)

	rep.DanglingLinks = m.verifyLinks()
	rep.FinishedAt = time.Now().UTC()

	if err := m.store.WriteFetch(rep); err != nil {
		m.logger.Warn("Fetch report write failed", zap.Error(err))
	}
	return rep, nil
}

// seedQueue builds the initial page worklist: the configured seed page
// first, then every capture the index service knows about.
func (m *Mirror) seedQueue(ctx context.Context) []workItem {
	queue := []workItem{{url: m.cfg.SnapshotURL, timestamp: m.cfg.SnapshotTimestamp}}
	if m.lister == nil {
		return queue
	}

	captures, err := m.lister.ListPages(ctx, m.cfg.Domain, m.cfg.SnapshotTimestamp)
	if err != nil {
		m.logger.Warn("Capture listing failed, starting from the seed page only", zap.Error(err))
		return queue
	}
	for _, c := range captures {
		if c.Original == m.cfg.SnapshotURL {
			continue
		}
		queue = append(queue, workItem{url: c.Original, timestamp: c.Timestamp})
	}

	m.logger.Info("Seeded crawl queue", zap.Int("pages", len(queue)))
	return queue
}

// crawlPages works through the page queue breadth-first until it drains or
// MaxPages downloads succeed. Each fetched page is stripped and held in
// memory; links found on it extend the queue, asset references accumulate
// for the download pass. Returns the held pages keyed by local path, the
// discovered asset URLs in discovery order, and the local path the seed
// page landed on.
func (m *Mirror) crawlPages(ctx context.Context, queue []workItem, rep *report.FetchReport) (map[string]fetchedPage, []string, string) {
	pages := make(map[string]fetchedPage)
	downloaded := make(map[string]struct{})
	enqueued := make(map[string]struct{}, len(queue))
	for _, it := range queue {
		enqueued[it.url] = struct{}{}
	}

	assetSet := make(map[string]struct{})
	var assetURLs []string
	mainLocal := ""
	pageCount := 0

	for len(queue) > 0 && pageCount < m.cfg.MaxPages {
		if ctx.Err() != nil {
			m.logger.Warn("Crawl interrupted", zap.Error(ctx.Err()))
			break
		}
		item := queue[0]
		queue = queue[1:]

		if _, done := downloaded[item.url]; done {
			continue
		}
		if !m.mapper.IsOurDomain(item.url) {
			continue
		}

		start := time.Now()
		body, err := m.fetcher.Fetch(ctx, item.timestamp, item.url)
		if err != nil {
			metrics.ObservePageFetch(metrics.StatusError, 0, time.Since(start))
			m.logger.Warn("Page fetch failed", zap.String("url", item.url), zap.Error(err))
			rep.FetchFailures++
			continue
		}
		metrics.ObservePageFetch(metrics.StatusOK, len(body), time.Since(start))
		downloaded[item.url] = struct{}{}
		pageCount++

		page := rewrite.StripArtifacts(string(body))
		localPath := m.mapper.LocalPath(item.url)
		if localPath == "" {
			m.logger.Warn("Unmappable page URL", zap.String("url", item.url))
			continue
		}
		pages[localPath] = fetchedPage{html: page, originalURL: item.url}
		m.mapper.Record(item.url, localPath)
		rep.Pages[item.url] = localPath

		if normalizeSiteURL(item.url) == normalizeSiteURL(m.cfg.SnapshotURL) {
			mainLocal = localPath
		}

		urls, err := rewrite.ExtractURLs(page, item.url)
		if err != nil {
			m.logger.Warn("Asset extraction failed", zap.String("url", item.url), zap.Error(err))
		}
		for _, u := range urls {
			if _, seen := assetSet[u]; seen {
				continue
			}
			assetSet[u] = struct{}{}
			assetURLs = append(assetURLs, u)
		}

		links, err := m.mapper.PageLinks(page, item.url)
		if err != nil {
			m.logger.Warn("Link extraction failed", zap.String("url", item.url), zap.Error(err))
			continue
		}
		for _, link := range links {
			if _, seen := enqueued[link]; seen {
				continue
			}
			enqueued[link] = struct{}{}
			queue = append(queue, workItem{url: link, timestamp: m.cfg.SnapshotTimestamp})
		}

		m.logger.Info("Fetched page", zap.String("url", item.url), zap.String("path", localPath))
	}

	rep.PagesFetched = pageCount
	return pages, assetURLs, mainLocal
}

// filterAssets keeps the discovered URLs worth downloading: not already
// saved, not hosted on the archive service, and either carrying a known
// asset extension or living on the mirrored domain.
func (m *Mirror) filterAssets(urls []string) []string {
	var keep []string
	for _, u := range urls {
		if _, ok := m.mapper.Lookup(u); ok {
			continue
		}
		if strings.Contains(u, "archive.org") {
			continue
		}
		if rewrite.HasAssetExtension(u) || m.mapper.IsOurDomain(u) {
			keep = append(keep, u)
		}
	}
	return keep
}

// normalizeSiteURL reduces a URL to a scheme-free, www-free form so the
// seed page is recognized under any of its spellings.
func normalizeSiteURL(raw string) string {
	s := strings.TrimRight(raw, "/")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	return strings.TrimPrefix(s, "www.")
}
