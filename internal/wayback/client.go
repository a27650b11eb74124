// Package wayback talks to the Internet Archive: raw capture content via
// the id_ URL modifier and capture listings via the CDX query API.
package wayback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://web.archive.org"

// ClientConfig carries the HTTP settings shared by the capture and CDX
// clients.
type ClientConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
}

// Client downloads raw captures through the Colly collector. The id_
// modifier asks the replay service for the archived bytes without any of
// its own rewriting.
type Client struct {
	baseCollector *colly.Collector
	baseURL       string
	logger        *zap.Logger
}

// NewClient constructs a configured capture client.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	// Deduplication happens in the crawl loop, not here.
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	if err := base.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 4,
	}); err != nil {
		return nil, err
	}

	return &Client{
		baseCollector: base,
		baseURL:       defaultBaseURL,
		logger:        logger,
	}, nil
}

// RawURL returns the address that serves the capture of originalURL at
// timestamp verbatim.
func (c *Client) RawURL(timestamp, originalURL string) string {
	return c.baseURL + "/web/" + timestamp + "id_/" + originalURL
}

// Fetch downloads the raw capture of originalURL at timestamp. Non-200
// responses come back as errors.
func (c *Client) Fetch(ctx context.Context, timestamp, originalURL string) ([]byte, error) {
	rawURL := c.RawURL(timestamp, originalURL)

	collector := c.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{
			body:   append([]byte{}, r.Body...),
			status: r.StatusCode,
		})
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		if err == nil {
			err = errors.New("unknown collector error")
		}
		send(fetchResult{status: status, err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if res.err != nil {
			return nil, fmt.Errorf("fetch %s: %w", originalURL, res.err)
		}
		if res.status != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", originalURL, res.status)
		}
		return res.body, nil
	default:
		return nil, errors.New("fetch produced no result")
	}
}

type fetchResult struct {
	body   []byte
	status int
	err    error
}
