// Package render draws word-cloud images from cleaned corpus text.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"sort"
	"strings"

	"github.com/psykhi/wordclouds"

	"github.com/lexcloud/lexcloud/internal/logger"
)

// Background selects the image color scheme.
type Background string

const (
	BackgroundDark  Background = "dark"
	BackgroundLight Background = "light"
)

// Orientation selects word placement. The underlying library lays words out
// horizontally; "mixed" switches from spiral to random placement for a
// looser, scattered composition.
type Orientation string

const (
	OrientationHorizontal Orientation = "horizontal"
	OrientationMixed      Orientation = "mixed"
)

// Options configures a Renderer.
type Options struct {
	Width       int
	Height      int
	Background  Background
	Orientation Orientation
	FontFile    string // path to a TTF font
	MaxWords    int    // highest-frequency words kept in the image
}

// DefaultOptions returns sensible rendering defaults.
func DefaultOptions() Options {
	return Options{
		Width:       800,
		Height:      400,
		Background:  BackgroundDark,
		Orientation: OrientationHorizontal,
		MaxWords:    200,
	}
}

// Palettes for the two background modes.
var (
	darkColors = []color.Color{
		color.RGBA{R: 0xf2, G: 0xf2, B: 0xf2, A: 0xff},
		color.RGBA{R: 0x8a, G: 0xc6, B: 0xd1, A: 0xff},
		color.RGBA{R: 0xff, G: 0xb0, B: 0x85, A: 0xff},
		color.RGBA{R: 0xa8, G: 0xe6, B: 0xcf, A: 0xff},
	}
	lightColors = []color.Color{
		color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff},
		color.RGBA{R: 0x16, G: 0x21, B: 0x3e, A: 0xff},
		color.RGBA{R: 0x0f, G: 0x34, B: 0x60, A: 0xff},
		color.RGBA{R: 0x53, G: 0x35, B: 0x4a, A: 0xff},
	}
)

// Renderer writes word-cloud PNG files.
type Renderer struct {
	opts Options
}

// New creates a Renderer. A font file is required because the underlying
// library rasterizes text itself.
func New(opts Options) (*Renderer, error) {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Background == "" {
		opts.Background = def.Background
	}
	if opts.Orientation == "" {
		opts.Orientation = def.Orientation
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = def.MaxWords
	}
	if opts.FontFile == "" {
		return nil, fmt.Errorf("a font file is required for rendering")
	}
	return &Renderer{opts: opts}, nil
}

// Render draws the word cloud for the given cleaned text and writes it as a
// PNG to path. Empty text produces a plain background image.
func (r *Renderer) Render(text string, path string) error {
	freqs := Frequencies(text, r.opts.MaxWords)

	img := r.backgroundImage()
	if len(freqs) > 0 {
		bg, colors := r.scheme()
		w := wordclouds.NewWordcloud(freqs,
			wordclouds.FontFile(r.opts.FontFile),
			wordclouds.Width(r.opts.Width),
			wordclouds.Height(r.opts.Height),
			wordclouds.BackgroundColor(bg),
			wordclouds.Colors(colors),
			wordclouds.RandomPlacement(r.opts.Orientation == OrientationMixed),
		)
		img = w.Draw()
	} else {
		logger.Warn("rendering empty corpus as blank image", "path", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// scheme returns the background color and word palette for the configured
// background mode.
func (r *Renderer) scheme() (color.Color, []color.Color) {
	if r.opts.Background == BackgroundLight {
		return color.White, lightColors
	}
	return color.Black, darkColors
}

// backgroundImage returns a solid background-only image, used when there is
// nothing to draw.
func (r *Renderer) backgroundImage() image.Image {
	bg, _ := r.scheme()
	img := image.NewRGBA(image.Rect(0, 0, r.opts.Width, r.opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return img
}

// Frequencies counts word occurrences in cleaned text and keeps the max
// highest-count words. Ties break alphabetically so output is deterministic.
// max <= 0 keeps everything.
func Frequencies(text string, max int) map[string]int {
	counts := make(map[string]int)
	for _, w := range strings.Fields(text) {
		counts[w]++
	}

	if max <= 0 || len(counts) <= max {
		return counts
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	top := make(map[string]int, max)
	for _, w := range words[:max] {
		top[w] = counts[w]
	}
	return top
}
