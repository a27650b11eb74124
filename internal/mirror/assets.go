package mirror

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ccspace/archivist/internal/metrics"
	"github.com/ccspace/archivist/internal/report"
)

// assetWorkers bounds concurrent asset downloads.
const assetWorkers = 5

type assetResult struct {
	url  string
	body []byte
}

// downloadAssets fetches every URL through a small worker pool. The workers
// only download; mapping and filesystem writes stay on this goroutine so
// the mapper never sees concurrent access.
func (m *Mirror) downloadAssets(ctx context.Context, urls []string, rep *report.FetchReport) {
	if len(urls) == 0 {
		return
	}
	m.logger.Info("Downloading assets", zap.Int("count", len(urls)))

	jobs := make(chan string)
	results := make(chan assetResult)

	var wg sync.WaitGroup
	for i := 0; i < assetWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				results <- assetResult{url: u, body: m.fetchAsset(ctx, u)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, u := range urls {
			select {
			case jobs <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if len(res.body) == 0 {
			rep.FetchFailures++
			continue
		}
		localPath := m.mapper.LocalPath(res.url)
		if localPath == "" {
			continue
		}
		m.mapper.Record(res.url, localPath)
		if err := m.writeFile(localPath, res.body); err != nil {
			m.logger.Warn("Asset write failed", zap.String("path", localPath), zap.Error(err))
			continue
		}
		rep.AssetsFetched++
		m.logger.Debug("Saved asset", zap.String("url", res.url), zap.String("path", localPath))
	}
}

func (m *Mirror) fetchAsset(ctx context.Context, url string) []byte {
	start := time.Now()
	body, err := m.fetcher.Fetch(ctx, m.cfg.SnapshotTimestamp, url)
	if err != nil {
		metrics.ObserveAssetFetch(metrics.StatusError, 0, time.Since(start))
		m.logger.Warn("Asset fetch failed", zap.String("url", url), zap.Error(err))
		return nil
	}
	metrics.ObserveAssetFetch(metrics.StatusOK, len(body), time.Since(start))
	return body
}
