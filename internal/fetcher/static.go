package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/lexcloud/lexcloud/internal/logger"
)

// Static fetches pages over plain HTTP using Colly.
//
// One Static instance is shared by every partition worker; the embedded
// rate limiter caps total request throughput against the origin server.
type Static struct {
	config  Config
	limiter *rate.Limiter
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg Config) *Static {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retries < 1 {
		cfg.Retries = def.Retries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = def.RetryDelay
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	return &Static{
		config:  cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Fetch retrieves the body of a URL, retrying up to the configured budget
// with a fixed delay between attempts. Every attempt waits on the shared
// rate limiter first. The delay between attempts suspends only this fetch;
// concurrent fetches proceed independently.
func (f *Static) Fetch(ctx context.Context, targetURL string) Result {
	for attempt := 1; attempt <= f.config.Retries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			// Cancelled while waiting for a request slot.
			return Result{URL: targetURL}
		}

		body, err := f.get(targetURL)
		if err == nil {
			return Result{URL: targetURL, Body: body, OK: true}
		}

		logger.Warn("fetch attempt failed",
			"url", targetURL,
			"attempt", attempt,
			"retries", f.config.Retries,
			"error", err)

		if attempt < f.config.Retries {
			select {
			case <-ctx.Done():
				return Result{URL: targetURL}
			case <-time.After(f.config.RetryDelay):
			}
		}
	}

	logger.Error("fetch failed, giving up",
		"url", targetURL,
		"retries", f.config.Retries)
	return Result{URL: targetURL}
}

// get performs a single GET attempt. A fresh collector per request keeps
// attempts independent and sidesteps Colly's revisit tracking.
func (f *Static) get(targetURL string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
	)
	c.SetRequestTimeout(f.config.Timeout)

	var body string
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})

	// Colly routes transport errors and non-2xx statuses here.
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := c.Visit(targetURL); err != nil {
		return "", fmt.Errorf("failed to visit URL: %w", err)
	}
	if fetchErr != nil {
		return "", fetchErr
	}

	return body, nil
}
