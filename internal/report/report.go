// Package report summarizes a harvest run, as terminal tables for humans
// and as a structured document for the JSON/YAML report writers.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Source summarizes one harvested corpus.
type Source struct {
	Name         string `json:"name" yaml:"name"`
	Cached       bool   `json:"cached" yaml:"cached"`
	PagesCrawled int    `json:"pages_crawled" yaml:"pages_crawled"`
	Fragments    int    `json:"fragments" yaml:"fragments"`
	RawWords     int    `json:"raw_words" yaml:"raw_words"`
	CleanWords   int    `json:"clean_words" yaml:"clean_words"`
}

// Image describes one generated word-cloud file.
type Image struct {
	Source      string `json:"source" yaml:"source"`
	Orientation string `json:"orientation" yaml:"orientation"`
	Background  string `json:"background" yaml:"background"`
	Filename    string `json:"filename" yaml:"filename"`
}

// Report is the full summary of one harvest run.
type Report struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Elapsed     string    `json:"elapsed" yaml:"elapsed"`
	OutputDir   string    `json:"output_dir" yaml:"output_dir"`
	Sources     []Source  `json:"sources" yaml:"sources"`
	Images      []Image   `json:"images,omitempty" yaml:"images,omitempty"`
}

// RenderMetrics writes the harvest metrics table to w.
func (r Report) RenderMetrics(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Source", "Cached", "Pages", "Fragments", "Raw Words", "Clean Words"})
	for _, s := range r.Sources {
		t.AppendRow(table.Row{
			s.Name,
			s.Cached,
			humanize.Comma(int64(s.PagesCrawled)),
			humanize.Comma(int64(s.Fragments)),
			humanize.Comma(int64(s.RawWords)),
			humanize.Comma(int64(s.CleanWords)),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", fmt.Sprintf("elapsed %s", r.Elapsed)})
	t.Render()
}

// RenderImages writes the generated-image table to w. Nothing is written
// when no images were rendered.
func (r Report) RenderImages(w io.Writer) {
	if len(r.Images) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Source", "Orientation", "Background", "Filename"})
	for _, img := range r.Images {
		t.AppendRow(table.Row{img.Source, img.Orientation, img.Background, img.Filename})
	}
	t.Render()
}
