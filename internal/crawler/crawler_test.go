package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/lexcloud/lexcloud/internal/directory"
	"github.com/lexcloud/lexcloud/internal/fetcher"
)

const testBase = "https://example.edu/people/"

// fakeFetcher serves canned bodies by URL. URLs without an entry behave
// like a fetch that exhausted its retries.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) fetcher.Result {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	f.mu.Unlock()

	if !ok {
		return fetcher.Result{URL: url}
	}
	return fetcher.Result{URL: url, Body: body, OK: true}
}

func indexURL(letter string, page int) string {
	return fmt.Sprintf("%s?_last_name_a_z=%s&_paged=%d", testBase, letter, page)
}

func listingPage(items ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, item := range items {
		b.WriteString(`<p class="type-directory-subtitle">` + item + `</p>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

const noResultsPage = `<html><body><p class="facetwp-no-results">Nothing found</p></body></html>`

func newTestCrawler(f fetcher.Fetcher, concurrency int) *Crawler {
	return New(f, directory.NewParser(directory.Selectors{}), Config{
		BaseURL:     testBase,
		Concurrency: concurrency,
	})
}

// pagesForLetter maps consecutive page bodies to one partition's URLs.
// Every other partition stays unreachable, so tests can focus on one letter.
func pagesForLetter(letter string, pages ...string) map[string]string {
	m := make(map[string]string)
	for i, body := range pages {
		m[indexURL(letter, i+1)] = body
	}
	return m
}

func TestCrawler_Run_StopsOnNoResultsMarker(t *testing.T) {
	f := &fakeFetcher{pages: pagesForLetter("A",
		listingPage("alpha one", "alpha two"),
		listingPage("alpha three"),
		noResultsPage,
	)}

	corpus, err := newTestCrawler(f, 1).Run(context.Background(), ModeKeywords)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := "alpha one alpha two alpha three"
	if corpus.Text != want {
		t.Errorf("expected corpus %q, got %q", want, corpus.Text)
	}
	if corpus.Fragments != 3 {
		t.Errorf("expected 3 fragments, got %d", corpus.Fragments)
	}
	if corpus.Partitions[0].Pages != 3 {
		t.Errorf("partition A should have processed 3 pages, got %d", corpus.Partitions[0].Pages)
	}
}

func TestCrawler_Run_StopsOnFetchFailure(t *testing.T) {
	// Page 2 is absent from the fake, simulating exhausted retries.
	f := &fakeFetcher{pages: pagesForLetter("A",
		listingPage("alpha one", "alpha two"),
	)}

	corpus, err := newTestCrawler(f, 1).Run(context.Background(), ModeKeywords)
	if err != nil {
		t.Fatalf("a failed fetch must not surface as an error, got: %v", err)
	}

	if corpus.Text != "alpha one alpha two" {
		t.Errorf("expected page 1 items to survive, got %q", corpus.Text)
	}
	if corpus.Partitions[0].Pages != 1 {
		t.Errorf("expected 1 processed page, got %d", corpus.Partitions[0].Pages)
	}
}

func TestCrawler_Run_StopsOnEmptyPage(t *testing.T) {
	f := &fakeFetcher{pages: pagesForLetter("A",
		listingPage(), // no items, no marker
	)}

	corpus, err := newTestCrawler(f, 1).Run(context.Background(), ModeKeywords)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if corpus.Fragments != 0 {
		t.Errorf("expected empty corpus, got %d fragments", corpus.Fragments)
	}

	// Page 2 must never have been requested.
	for _, call := range f.calls {
		if call == indexURL("A", 2) {
			t.Error("pagination should stop after an empty page")
		}
	}
}

func TestCrawler_Run_AllPartitionsInOrder(t *testing.T) {
	pages := make(map[string]string)
	var want []string
	for _, letter := range letters {
		l := string(letter)
		pages[indexURL(l, 1)] = listingPage(l+" one", l+" two")
		pages[indexURL(l, 2)] = noResultsPage
		want = append(want, l+" one", l+" two")
	}
	f := &fakeFetcher{pages: pages}

	corpus, err := newTestCrawler(f, 1).Run(context.Background(), ModeKeywords)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if corpus.Fragments != 52 {
		t.Errorf("expected 52 fragments, got %d", corpus.Fragments)
	}
	if corpus.Text != strings.Join(want, " ") {
		t.Errorf("corpus not in partition order:\n got %q\nwant %q", corpus.Text, strings.Join(want, " "))
	}

	sum := 0
	for _, p := range corpus.Partitions {
		sum += p.Fragments
	}
	if sum != corpus.Fragments {
		t.Errorf("partition fragment counts sum to %d, corpus has %d", sum, corpus.Fragments)
	}
}

func TestCrawler_Run_ConcurrentMatchesSequential(t *testing.T) {
	pages := make(map[string]string)
	for _, letter := range letters {
		l := string(letter)
		pages[indexURL(l, 1)] = listingPage(l+" only")
		pages[indexURL(l, 2)] = noResultsPage
	}

	sequential, err := newTestCrawler(&fakeFetcher{pages: pages}, 1).Run(context.Background(), ModeKeywords)
	if err != nil {
		t.Fatalf("sequential Run() error: %v", err)
	}
	concurrent, err := newTestCrawler(&fakeFetcher{pages: pages}, 8).Run(context.Background(), ModeKeywords)
	if err != nil {
		t.Fatalf("concurrent Run() error: %v", err)
	}

	// Merging by partition index keeps concurrent output deterministic.
	if sequential.Text != concurrent.Text {
		t.Errorf("concurrent corpus differs from sequential:\n got %q\nwant %q", concurrent.Text, sequential.Text)
	}
}

func TestCrawler_Run_Descriptions(t *testing.T) {
	index := `<html><body>
		<h3 class="type-directory-title"><a href="https://example.edu/people/ada/">Ada</a></h3>
		<h3 class="type-directory-title"><a href="https://example.edu/people/grace/">Grace</a></h3>
		<h3 class="type-directory-title"><a href="https://example.edu/people/edsger/">Edsger</a></h3>
	</body></html>`

	pages := pagesForLetter("A", index)
	pages[indexURL("A", 2)] = "<html><body></body></html>" // no links: end of partition
	pages["https://example.edu/people/ada/"] = `<div class="dynamic-entry-content">lambda calculus</div>`
	pages["https://example.edu/people/grace/"] = `<div class="dynamic-entry-content">compilers</div>`
	pages["https://example.edu/people/edsger/"] = `<div class="bio">no content block here</div>`
	f := &fakeFetcher{pages: pages}

	corpus, err := newTestCrawler(f, 1).Run(context.Background(), ModeDescriptions)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if corpus.Text != "lambda calculus compilers" {
		t.Errorf("expected two detail fragments, got %q", corpus.Text)
	}
	if corpus.Fragments != 2 {
		t.Errorf("expected 2 fragments, got %d", corpus.Fragments)
	}
}

func TestCrawler_Run_Descriptions_DetailFetchFailureSkipped(t *testing.T) {
	index := `<h3 class="type-directory-title"><a href="https://example.edu/people/ada/">Ada</a></h3>
		<h3 class="type-directory-title"><a href="https://example.edu/people/ghost/">Ghost</a></h3>`

	pages := pagesForLetter("A", index)
	pages["https://example.edu/people/ada/"] = `<div class="dynamic-entry-content">lambda calculus</div>`
	// ghost detail page is unreachable; index page 2 is unreachable too.
	f := &fakeFetcher{pages: pages}

	corpus, err := newTestCrawler(f, 1).Run(context.Background(), ModeDescriptions)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if corpus.Text != "lambda calculus" {
		t.Errorf("expected the reachable fragment only, got %q", corpus.Text)
	}
}

func TestCrawler_Run_UnknownMode(t *testing.T) {
	_, err := newTestCrawler(&fakeFetcher{}, 1).Run(context.Background(), Mode("sonnets"))
	if err == nil {
		t.Error("Run() should reject an unknown mode")
	}
}

func TestCrawler_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	corpus, err := newTestCrawler(&fakeFetcher{}, 2).Run(ctx, ModeKeywords)
	if err == nil {
		t.Error("Run() should report cancellation")
	}
	if corpus.Fragments != 0 {
		t.Errorf("expected empty partial corpus, got %d fragments", corpus.Fragments)
	}
}

func TestCrawler_PageURL(t *testing.T) {
	c := newTestCrawler(&fakeFetcher{}, 1)

	got := c.pageURL("Q", 7)
	want := testBase + "?_last_name_a_z=Q&_paged=7"
	if got != want {
		t.Errorf("pageURL() = %q, want %q", got, want)
	}
}
