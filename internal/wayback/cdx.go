package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const defaultCDXEndpoint = "https://web.archive.org/cdx/search/cdx"

// Capture is one archived page: the original URL and the capture timestamp
// chosen for it.
type Capture struct {
	Original  string `json:"original"`
	Timestamp string `json:"timestamp"`
}

// CDXClient lists a site's captures through the archive's CDX query API.
type CDXClient struct {
	client    *http.Client
	endpoint  string
	userAgent string
	logger    *zap.Logger
}

// NewCDXClient constructs a CDX client with the shared HTTP settings.
func NewCDXClient(cfg ClientConfig, logger *zap.Logger) *CDXClient {
	return &CDXClient{
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		endpoint:  defaultCDXEndpoint,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// ListPages returns the site's HTML captures nearest to snapshotTS, one per
// original URL. Both the www and bare hostnames are queried for the exact
// snapshot day first, then for the whole year when the day has nothing.
func (c *CDXClient) ListPages(ctx context.Context, domain, snapshotTS string) ([]Capture, error) {
	if len(snapshotTS) < 8 {
		return nil, fmt.Errorf("snapshot timestamp %q is shorter than a date", snapshotTS)
	}

	day := snapshotTS[:8]
	captures, err := c.query(ctx, domain, snapshotTS, day, day)
	if err != nil {
		return nil, err
	}
	if len(captures) == 0 {
		year := snapshotTS[:4]
		c.logger.Info("No captures on the snapshot day, widening to the year",
			zap.String("domain", domain),
			zap.String("year", year))
		captures, err = c.query(ctx, domain, snapshotTS, year, year)
		if err != nil {
			return nil, err
		}
	}
	return captures, nil
}

func (c *CDXClient) query(ctx context.Context, domain, snapshotTS, from, to string) ([]Capture, error) {
	// Closest capture timestamp seen so far, keyed by original URL.
	best := make(map[string]string)

	for _, host := range []string{"www." + domain, domain} {
		rows, err := c.fetchRows(ctx, host+"/*", from, to)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if len(row) < 2 {
				continue
			}
			original, ts := row[0], row[1]
			mimetype := ""
			if len(row) > 2 {
				mimetype = row[2]
			}
			if mimetype != "" && !strings.Contains(mimetype, "text/html") {
				continue
			}
			if current, ok := best[original]; !ok || closer(ts, current, snapshotTS) {
				best[original] = ts
			}
		}
	}

	captures := make([]Capture, 0, len(best))
	for original, ts := range best {
		captures = append(captures, Capture{Original: original, Timestamp: ts})
	}
	sort.Slice(captures, func(i, j int) bool { return captures[i].Original < captures[j].Original })
	return captures, nil
}

func (c *CDXClient) fetchRows(ctx context.Context, match, from, to string) ([][]string, error) {
	params := url.Values{}
	params.Set("url", match)
	params.Set("output", "json")
	params.Set("filter", "statuscode:200")
	params.Set("fl", "original,timestamp,mimetype")
	params.Set("from", from)
	params.Set("to", to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new cdx request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query cdx: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("Failed to close cdx response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cdx status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read cdx body: %w", err)
	}

	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode cdx body: %w", err)
	}
	if len(rows) > 0 {
		// First row is the field header.
		rows = rows[1:]
	}
	return rows, nil
}

func closer(candidate, current, target string) bool {
	cand, err1 := strconv.ParseInt(candidate, 10, 64)
	curr, err2 := strconv.ParseInt(current, 10, 64)
	tgt, err3 := strconv.ParseInt(target, 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	return abs64(cand-tgt) < abs64(curr-tgt)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
