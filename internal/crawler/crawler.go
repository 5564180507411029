// Package crawler drives paginated crawling across the alphabetical
// partitions of the directory and assembles the harvested corpus.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lexcloud/lexcloud/internal/directory"
	"github.com/lexcloud/lexcloud/internal/fetcher"
	"github.com/lexcloud/lexcloud/internal/logger"
)

// letters are the partition keys: the directory is filtered by surname
// initial, one partition per letter.
const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Mode selects which corpus a crawl harvests.
type Mode string

const (
	// ModeKeywords harvests the short blurb under each listing entry.
	ModeKeywords Mode = "keywords"

	// ModeDescriptions follows each listing entry to its detail page and
	// harvests the long-form content block.
	ModeDescriptions Mode = "descriptions"
)

// Config holds crawler configuration.
type Config struct {
	BaseURL        string // directory index URL
	PartitionParam string // query parameter filtering by surname initial
	PageParam      string // query parameter selecting the page number
	Concurrency    int    // partition workers
}

// DefaultConfig returns sensible crawler defaults.
func DefaultConfig() Config {
	return Config{
		PartitionParam: "_last_name_a_z",
		PageParam:      "_paged",
		Concurrency:    4,
	}
}

// Partition summarizes one partition's crawl.
type Partition struct {
	Letter    string `json:"letter" yaml:"letter"`
	Pages     int    `json:"pages" yaml:"pages"`
	Fragments int    `json:"fragments" yaml:"fragments"`
}

// Corpus is the outcome of one crawl mode across all partitions.
type Corpus struct {
	// Text is every harvested fragment joined by a single space, in
	// partition order (A before B), then page and item order within the
	// partition.
	Text string

	// Fragments is the total fragment count across partitions.
	Fragments int

	// Partitions holds per-partition metrics in partition order.
	Partitions []Partition
}

// Crawler orchestrates partition crawls for one directory.
type Crawler struct {
	fetcher fetcher.Fetcher
	parser  *directory.Parser
	config  Config
}

// New creates a new Crawler.
func New(f fetcher.Fetcher, p *directory.Parser, cfg Config) *Crawler {
	def := DefaultConfig()
	if cfg.PartitionParam == "" {
		cfg.PartitionParam = def.PartitionParam
	}
	if cfg.PageParam == "" {
		cfg.PageParam = def.PageParam
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Crawler{
		fetcher: f,
		parser:  p,
		config:  cfg,
	}
}

// Run crawls all partitions for the given mode and returns the assembled
// corpus. Partitions run concurrently up to the configured worker limit;
// results are merged in partition order so output is deterministic.
//
// Cancellation returns the fragments accumulated so far along with the
// context error: a partial corpus is valid data, not a failure.
func (c *Crawler) Run(ctx context.Context, mode Mode) (Corpus, error) {
	if mode != ModeKeywords && mode != ModeDescriptions {
		return Corpus{}, fmt.Errorf("unknown crawl mode: %s", mode)
	}

	logger.Info("starting crawl",
		"mode", mode,
		"base_url", c.config.BaseURL,
		"partitions", len(letters),
		"concurrency", c.config.Concurrency)

	fragments := make([][]string, len(letters))
	partitions := make([]Partition, len(letters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Concurrency)

	for i, letter := range letters {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			key := string(letter)
			frags, pages := c.crawlPartition(gctx, mode, key)

			// Each worker writes only its own slot.
			fragments[i] = frags
			partitions[i] = Partition{Letter: key, Pages: pages, Fragments: len(frags)}

			logger.Debug("partition done",
				"mode", mode,
				"letter", key,
				"pages", pages,
				"fragments", len(frags))
			return nil
		})
	}

	err := g.Wait()

	// Merge whatever was gathered, in partition order.
	var all []string
	for _, frags := range fragments {
		all = append(all, frags...)
	}

	corpus := Corpus{
		Text:       strings.Join(all, " "),
		Fragments:  len(all),
		Partitions: partitions,
	}

	logger.Info("crawl complete",
		"mode", mode,
		"fragments", corpus.Fragments)

	return corpus, err
}

// crawlPartition pages through one partition until it runs out of content.
//
// Pagination stops on the no-results marker, an empty page, or a failed
// fetch. A failed index fetch and a genuinely exhausted partition are
// indistinguishable here; both end pagination quietly with whatever has
// accumulated.
func (c *Crawler) crawlPartition(ctx context.Context, mode Mode, letter string) ([]string, int) {
	var fragments []string
	pages := 0

	for page := 1; ; page++ {
		select {
		case <-ctx.Done():
			return fragments, pages
		default:
		}

		res := c.fetcher.Fetch(ctx, c.pageURL(letter, page))
		if !res.OK {
			return fragments, pages
		}
		pages++

		items, more := c.handlePage(ctx, mode, res)
		fragments = append(fragments, items...)
		if !more {
			return fragments, pages
		}
	}
}

// handlePage extracts fragments from one fetched index page and reports
// whether pagination should continue.
func (c *Crawler) handlePage(ctx context.Context, mode Mode, res fetcher.Result) ([]string, bool) {
	switch mode {
	case ModeKeywords:
		listing, err := c.parser.ParseListing(res.Body)
		if err != nil {
			logger.Warn("failed to parse listing page", "url", res.URL, "error", err)
			return nil, false
		}
		if listing.NoResults || len(listing.Items) == 0 {
			return nil, false
		}
		return listing.Items, true

	case ModeDescriptions:
		links, err := c.parser.ParseLinks(res.Body, res.URL)
		if err != nil {
			logger.Warn("failed to parse index page links", "url", res.URL, "error", err)
			return nil, false
		}
		if len(links) == 0 {
			return nil, false
		}
		return c.fetchDetails(ctx, links), true
	}

	return nil, false
}

// fetchDetails resolves each detail link in order and extracts its content
// block. Failed fetches and missing content blocks are skipped, never fatal.
func (c *Crawler) fetchDetails(ctx context.Context, links []string) []string {
	var out []string
	for _, link := range links {
		select {
		case <-ctx.Done():
			return out
		default:
		}

		detail := c.fetcher.Fetch(ctx, link)
		if !detail.OK {
			continue
		}

		text, ok := c.parser.ExtractContent(detail.Body)
		if !ok {
			logger.Warn("content block not found on detail page", "url", link)
			continue
		}
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

// pageURL builds the paginated index URL for one partition.
func (c *Crawler) pageURL(letter string, page int) string {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return c.config.BaseURL
	}

	q := u.Query()
	q.Set(c.config.PartitionParam, letter)
	q.Set(c.config.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()

	return u.String()
}
