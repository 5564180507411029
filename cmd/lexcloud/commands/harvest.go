package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lexcloud/lexcloud/internal/cache"
	"github.com/lexcloud/lexcloud/internal/cleaner"
	"github.com/lexcloud/lexcloud/internal/crawler"
	"github.com/lexcloud/lexcloud/internal/directory"
	"github.com/lexcloud/lexcloud/internal/fetcher"
	"github.com/lexcloud/lexcloud/internal/logger"
	"github.com/lexcloud/lexcloud/internal/output"
	"github.com/lexcloud/lexcloud/internal/render"
	"github.com/lexcloud/lexcloud/internal/report"
)

const defaultBaseURL = "https://midas.umich.edu/people/affiliated-faculty/"

// harvestOptions collects every harvest flag, validated before the run.
type harvestOptions struct {
	BaseURL       string `validate:"required,url"`
	Source        string `validate:"oneof=keywords descriptions both"`
	Concurrency   int    `validate:"min=1,max=26"`
	Rate          float64
	Retries       int `validate:"min=1"`
	RetryDelay    time.Duration
	Timeout       time.Duration
	CacheDir      string
	OutputDir     string `validate:"required"`
	Refresh       bool
	SkipRender    bool
	FontFile      string
	Width         int `validate:"min=16"`
	Height        int `validate:"min=16"`
	MaxWords      int `validate:"min=1"`
	RemovedWords  string
	KeepStopwords bool
	KeepTerms     bool
	Report        string
	ReportFormat  string `validate:"oneof=json yaml"`
}

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Crawl the directory, clean the corpora, and render word clouds",
	Long: `Harvest runs the full pipeline: crawl the keyword and description
corpora across all 26 alphabetical partitions (or load them from cache),
normalize the text, render word-cloud images for every background and
orientation combination, and print a summary.

Examples:
  # Default run against the configured directory
  lexcloud harvest --font-file /usr/share/fonts/TTF/DejaVuSans.ttf

  # Crawl only, no images
  lexcloud harvest --source descriptions --skip-render

  # Write a machine-readable run report
  lexcloud harvest --skip-render --report run.yaml --report-format yaml`,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)

	flags := harvestCmd.Flags()

	// Crawl settings
	flags.String("base-url", defaultBaseURL, "directory index URL")
	flags.String("source", "both", "corpus to harvest: keywords, descriptions, both")
	flags.IntP("concurrency", "c", 4, "concurrent partition workers")
	flags.Float64("rate", 4, "max requests per second against the origin (0 = unlimited)")
	flags.Int("retries", 3, "fetch attempts per URL")
	flags.Duration("retry-delay", time.Second, "delay between fetch attempts")
	flags.Duration("timeout", 30*time.Second, "request timeout")

	// Cache settings
	flags.String("cache-dir", "", "corpus cache directory (default: user cache dir)")
	flags.Bool("refresh", false, "ignore cached corpora and re-crawl")

	// Cleaning settings
	flags.String("removed-words", "removed_words.txt", "newline-delimited domain terms to strip")
	flags.Bool("keep-stopwords", false, "keep English stopwords in the cleaned text")
	flags.Bool("keep-terms", false, "keep domain terms in the cleaned text")

	// Render settings
	flags.Bool("skip-render", false, "skip word-cloud rendering")
	flags.StringP("output-dir", "o", "output", "directory for rendered images")
	flags.String("font-file", "", "TTF font used for rendering (required unless --skip-render)")
	flags.Int("width", 800, "image width in pixels")
	flags.Int("height", 400, "image height in pixels")
	flags.Int("max-words", 200, "most frequent words kept per image")

	// Report settings
	flags.String("report", "", "write a machine-readable run report to this file")
	flags.String("report-format", "json", "report format: json, yaml")

	// Bind to viper so the config file and environment can set them
	_ = viper.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("cache_dir", flags.Lookup("cache-dir"))
	_ = viper.BindPFlag("output_dir", flags.Lookup("output-dir"))
	_ = viper.BindPFlag("font_file", flags.Lookup("font-file"))
}

func runHarvest(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := collectHarvestOptions(cmd)
	if err := validator.New().Struct(opts); err != nil {
		logger.Error("invalid harvest options", "error", err)
		return fmt.Errorf("invalid harvest options: %w", err)
	}
	if !opts.SkipRender && opts.FontFile == "" {
		return fmt.Errorf("--font-file is required unless --skip-render is set")
	}

	// Assemble the pipeline.
	f := fetcher.NewStatic(fetcher.Config{
		Timeout:    opts.Timeout,
		Retries:    opts.Retries,
		RetryDelay: opts.RetryDelay,
		RatePerSec: opts.Rate,
	})
	c := crawler.New(f, directory.NewParser(directory.Selectors{}), crawler.Config{
		BaseURL:     opts.BaseURL,
		Concurrency: opts.Concurrency,
	})
	store := cache.New(opts.CacheDir)

	terms, err := cleaner.LoadTerms(opts.RemovedWords)
	if err != nil {
		logger.Error("failed to load removal terms", "path", opts.RemovedWords, "error", err)
		return err
	}
	cl := cleaner.New(cleaner.Config{
		Terms:           terms,
		RemoveTerms:     !opts.KeepTerms,
		RemoveStopwords: !opts.KeepStopwords,
	})

	start := time.Now()

	// Harvest and clean each requested corpus.
	var sources []report.Source
	cleaned := make(map[string]string)
	for _, mode := range selectedModes(opts.Source) {
		raw, src, err := harvestCorpus(ctx, c, store, mode, opts.Refresh)
		if err != nil {
			return err
		}

		text := cl.Clean(raw)
		src.RawWords = len(strings.Fields(raw))
		src.CleanWords = len(strings.Fields(text))

		cleaned[src.Name] = text
		sources = append(sources, src)

		logger.Info("corpus cleaned",
			"source", src.Name,
			"raw_words", src.RawWords,
			"clean_words", src.CleanWords)
	}

	// Render the image grid.
	var images []report.Image
	if !opts.SkipRender {
		images, err = renderAll(sources, cleaned, opts)
		if err != nil {
			return err
		}
	}

	rep := report.Report{
		GeneratedAt: time.Now(),
		Elapsed:     time.Since(start).Round(time.Second).String(),
		OutputDir:   opts.OutputDir,
		Sources:     sources,
		Images:      images,
	}
	rep.RenderMetrics(os.Stdout)
	rep.RenderImages(os.Stdout)

	if opts.Report != "" {
		if err := writeReport(rep, opts.Report, output.Format(opts.ReportFormat)); err != nil {
			logger.Error("failed to write report", "path", opts.Report, "error", err)
			return err
		}
		logger.Info("report written", "path", opts.Report)
	}

	return nil
}

// collectHarvestOptions gathers flag and config values. Viper-bound options
// honor the config file and LEXCLOUD_* environment overrides.
func collectHarvestOptions(cmd *cobra.Command) harvestOptions {
	flags := cmd.Flags()

	var opts harvestOptions
	opts.BaseURL = viper.GetString("base_url")
	opts.CacheDir = viper.GetString("cache_dir")
	opts.OutputDir = viper.GetString("output_dir")
	opts.FontFile = viper.GetString("font_file")

	opts.Source, _ = flags.GetString("source")
	opts.Concurrency, _ = flags.GetInt("concurrency")
	opts.Rate, _ = flags.GetFloat64("rate")
	opts.Retries, _ = flags.GetInt("retries")
	opts.RetryDelay, _ = flags.GetDuration("retry-delay")
	opts.Timeout, _ = flags.GetDuration("timeout")
	opts.Refresh, _ = flags.GetBool("refresh")
	opts.RemovedWords, _ = flags.GetString("removed-words")
	opts.KeepStopwords, _ = flags.GetBool("keep-stopwords")
	opts.KeepTerms, _ = flags.GetBool("keep-terms")
	opts.SkipRender, _ = flags.GetBool("skip-render")
	opts.Width, _ = flags.GetInt("width")
	opts.Height, _ = flags.GetInt("height")
	opts.MaxWords, _ = flags.GetInt("max-words")
	opts.Report, _ = flags.GetString("report")
	opts.ReportFormat, _ = flags.GetString("report-format")

	return opts
}

// selectedModes expands the --source flag into crawl modes, keywords first.
func selectedModes(source string) []crawler.Mode {
	switch source {
	case "keywords":
		return []crawler.Mode{crawler.ModeKeywords}
	case "descriptions":
		return []crawler.Mode{crawler.ModeDescriptions}
	default:
		return []crawler.Mode{crawler.ModeKeywords, crawler.ModeDescriptions}
	}
}

// harvestCorpus returns the raw corpus for one mode, from cache when
// available. A crawl interrupted by cancellation still returns its partial
// corpus; the partial result is not cached so the next run re-crawls.
func harvestCorpus(ctx context.Context, c *crawler.Crawler, store *cache.Cache, mode crawler.Mode, refresh bool) (string, report.Source, error) {
	name := string(mode)

	if !refresh {
		text, ok, err := store.Load(name)
		if err != nil {
			return "", report.Source{}, err
		}
		if ok {
			logger.Info("loaded corpus from cache", "source", name, "dir", store.Dir())
			return text, report.Source{Name: name, Cached: true}, nil
		}
	}

	corpus, err := c.Run(ctx, mode)
	src := report.Source{
		Name:      name,
		Fragments: corpus.Fragments,
	}
	for _, p := range corpus.Partitions {
		src.PagesCrawled += p.Pages
	}

	if err != nil {
		logger.Warn("crawl interrupted, continuing with partial corpus",
			"source", name,
			"fragments", corpus.Fragments,
			"error", err)
		return corpus.Text, src, nil
	}

	if err := store.Store(name, corpus.Text); err != nil {
		// Caching is best effort; the corpus is already in hand.
		logger.Warn("failed to cache corpus", "source", name, "error", err)
	}

	return corpus.Text, src, nil
}

// renderAll draws the full image grid: every background and orientation
// combination for every harvested source.
func renderAll(sources []report.Source, cleaned map[string]string, opts harvestOptions) ([]report.Image, error) {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	backgrounds := []render.Background{render.BackgroundDark, render.BackgroundLight}
	orientations := []render.Orientation{render.OrientationHorizontal, render.OrientationMixed}

	var images []report.Image
	for _, bg := range backgrounds {
		for _, orient := range orientations {
			r, err := render.New(render.Options{
				Width:       opts.Width,
				Height:      opts.Height,
				Background:  bg,
				Orientation: orient,
				FontFile:    opts.FontFile,
				MaxWords:    opts.MaxWords,
			})
			if err != nil {
				return nil, err
			}

			for _, src := range sources {
				filename := fmt.Sprintf("%s_%s_%s.png", src.Name, orient, bg)
				path := filepath.Join(opts.OutputDir, filename)
				if err := r.Render(cleaned[src.Name], path); err != nil {
					return nil, fmt.Errorf("failed to render %s: %w", filename, err)
				}

				logger.Debug("image rendered", "path", path)
				images = append(images, report.Image{
					Source:      src.Name,
					Orientation: string(orient),
					Background:  string(bg),
					Filename:    filename,
				})
			}
		}
	}

	return images, nil
}

// writeReport serializes the run report to a file.
func writeReport(rep report.Report, path string, format output.Format) error {
	f, err := os.Create(path) //#nosec G304 -- CLI tool writes to a user-specified file
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w, err := output.NewWriter(f, format)
	if err != nil {
		return err
	}
	if err := w.Write(rep); err != nil {
		return err
	}
	return w.Close()
}
