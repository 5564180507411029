// Package cleaner normalizes harvested text into a cleaned word stream:
// lowercasing, whole-word removal of domain terms, tokenization, and
// short-word and stopword filtering.
package cleaner

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

// stopwordData is the bundled English stopword list, one word per line.
//
//go:embed stopwords.txt
var stopwordData string

// wordPattern tokenizes text into alphanumeric runs.
var wordPattern = regexp.MustCompile(`\w+`)

// Config holds cleaner configuration.
type Config struct {
	// Terms are domain-specific words and phrases stripped from the text
	// before tokenization. Each is removed only where it appears as a
	// whole word.
	Terms []string

	// RemoveTerms enables stripping of Terms.
	RemoveTerms bool

	// RemoveStopwords enables filtering against the bundled stopword list.
	RemoveStopwords bool

	// MinWordLen is the shortest word kept, in runes.
	MinWordLen int
}

// DefaultConfig returns sensible cleaner defaults.
func DefaultConfig() Config {
	return Config{
		RemoveTerms:     true,
		RemoveStopwords: true,
		MinWordLen:      3,
	}
}

// Cleaner normalizes raw corpus text. It is a pure transformation: the same
// input and configuration always yield the same output.
type Cleaner struct {
	config       Config
	termPatterns []*regexp.Regexp
	stopwords    map[string]struct{}
}

// New creates a Cleaner. Term patterns are compiled once up front.
func New(cfg Config) *Cleaner {
	if cfg.MinWordLen < 1 {
		cfg.MinWordLen = DefaultConfig().MinWordLen
	}

	c := &Cleaner{
		config:    cfg,
		stopwords: make(map[string]struct{}),
	}

	for _, term := range cfg.Terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		c.termPatterns = append(c.termPatterns,
			regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`))
	}

	for _, w := range strings.Fields(stopwordData) {
		c.stopwords[w] = struct{}{}
	}

	return c
}

// Clean lowercases the text, strips removal terms as whole words, tokenizes
// on alphanumeric runs, and drops words that are too short or stopwords.
// The result is the kept words joined by single spaces; empty input yields
// an empty string.
func (c *Cleaner) Clean(text string) string {
	text = strings.ToLower(text)

	if c.config.RemoveTerms {
		for _, p := range c.termPatterns {
			text = p.ReplaceAllString(text, "")
		}
	}

	words := wordPattern.FindAllString(text, -1)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < c.config.MinWordLen {
			continue
		}
		if c.config.RemoveStopwords {
			if _, stop := c.stopwords[w]; stop {
				continue
			}
		}
		kept = append(kept, w)
	}

	return strings.Join(kept, " ")
}

// LoadTerms reads a newline-delimited removal-term file. Blank lines are
// skipped. A missing file is not an error; it means no terms.
func LoadTerms(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var terms []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			terms = append(terms, line)
		}
	}
	return terms, nil
}
