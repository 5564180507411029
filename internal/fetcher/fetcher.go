// Package fetcher handles HTTP page retrieval with bounded retries and
// shared rate limiting.
package fetcher

import (
	"context"
	"time"
)

// Result represents the outcome of fetching one page.
//
// A failed fetch is data, not an error: OK is false and Body is empty once
// the retry budget is exhausted. Callers treat that as an ordinary
// end-of-data signal rather than a fault to propagate.
type Result struct {
	URL  string
	Body string
	OK   bool
}

// Fetcher abstracts page fetching.
type Fetcher interface {
	// Fetch retrieves the body of a URL, retrying on failure.
	Fetch(ctx context.Context, url string) Result
}

// Config holds fetcher configuration.
type Config struct {
	UserAgent  string
	Timeout    time.Duration // per-request timeout
	Retries    int           // attempts per URL
	RetryDelay time.Duration // fixed delay between attempts
	RatePerSec float64       // max requests per second across all partitions (0 = unlimited)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:  "lexcloud/1.0 (+https://github.com/lexcloud/lexcloud)",
		Timeout:    30 * time.Second,
		Retries:    3,
		RetryDelay: 1 * time.Second,
		RatePerSec: 4,
	}
}
