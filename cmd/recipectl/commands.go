package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/adapter/chromedp_renderer"
	"github.com/user/recipe-service/internal/adapter/httpfetch"
	"github.com/user/recipe-service/internal/adapter/tesseract"
	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/extraction"
	"github.com/user/recipe-service/internal/repository"
	"github.com/user/recipe-service/internal/scoring"
	"github.com/user/recipe-service/internal/validation"
	"github.com/user/recipe-service/pkg/logger"
)

type options struct {
	timeout  time.Duration
	browser  bool
	layouts  string
	logLevel string
	tessBin  string
	tessLang string
}

// result is the JSON printed for every command.
type result struct {
	Strategy   string                   `json:"strategy"`
	Tried      []string                 `json:"strategies_tried"`
	Confidence float64                  `json:"confidence_score"`
	Blocked    string                   `json:"blocked,omitempty"`
	Issues     []entity.ValidationIssue `json:"issues"`
	Recipe     *entity.ParsedRecipe     `json:"recipe"`
}

func rootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "recipectl",
		Short: "Extract recipes from web pages, social posts and images",
		Long: `Extract a recipe and print the scored candidate as JSON.

Examples:
  recipectl parse https://example.com/chili
  recipectl parse-file saved.html --url https://example.com/chili
  recipectl parse-image card.jpg
`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", httpfetch.DefaultTimeout, "Fetch timeout")
	cmd.PersistentFlags().BoolVar(&opts.browser, "browser", false, "Retry blocked fetches with a headless browser")
	cmd.PersistentFlags().StringVar(&opts.layouts, "layouts", "", "YAML file with additional site layouts")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	cmd.PersistentFlags().StringVar(&opts.tessBin, "tesseract", "tesseract", "Tesseract binary")
	cmd.PersistentFlags().StringVar(&opts.tessLang, "lang", "eng", "Tesseract language")

	cmd.AddCommand(parseCmd(opts), parseFileCmd(opts), parseImageCmd(opts))
	return cmd
}

func parseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <url>",
		Short: "Fetch a URL and extract its recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExtractor(cmd, opts, func(ctx context.Context, ex *extraction.Extractor) (*extraction.Document, *extraction.Outcome, error) {
				doc, _, err := ex.Load(ctx, entity.NewURLSource(args[0]))
				if err != nil {
					return nil, nil, err
				}
				out, err := ex.Run(ctx, doc)
				return doc, out, err
			})
		},
	}
}

func parseFileCmd(opts *options) *cobra.Command {
	var pageURL string
	cmd := &cobra.Command{
		Use:   "parse-file <path>",
		Short: "Extract a recipe from a saved HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read page: %w", err)
			}
			return withExtractor(cmd, opts, func(ctx context.Context, ex *extraction.Extractor) (*extraction.Document, *extraction.Outcome, error) {
				u := pageURL
				if u == "" {
					abs, _ := filepath.Abs(args[0])
					u = "file://" + filepath.ToSlash(abs)
				}
				doc, err := extraction.NewHTMLDocument(u, string(data), entity.DetectSourceType(u))
				if err != nil {
					return nil, nil, err
				}
				out, err := ex.Run(ctx, doc)
				return doc, out, err
			})
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "Original URL of the page, used for site layouts and relative links")
	return cmd
}

func parseImageCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse-image <path>",
		Short: "Extract a recipe from a photo or screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			return withExtractor(cmd, opts, func(ctx context.Context, ex *extraction.Extractor) (*extraction.Document, *extraction.Outcome, error) {
				doc, _, err := ex.Load(ctx, entity.NewImageSource(data, "", filepath.Base(args[0])))
				if err != nil {
					return nil, nil, err
				}
				out, err := ex.Run(ctx, doc)
				return doc, out, err
			})
		},
	}
}

type extractFunc func(ctx context.Context, ex *extraction.Extractor) (*extraction.Document, *extraction.Outcome, error)

// withExtractor builds the extractor from flags, runs fn and prints the
// scored result.
func withExtractor(cmd *cobra.Command, opts *options, fn extractFunc) error {
	log, err := logger.New(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var fetcher repository.PageFetcher = httpfetch.NewFetcher(nil, opts.timeout, log)
	if opts.browser {
		renderer := chromedp_renderer.NewChromedpRenderer(1, opts.timeout, log)
		defer renderer.Close()
		fetcher = httpfetch.NewFallbackFetcher(fetcher, renderer, log)
	}
	var exOpts extraction.Options
	if opts.layouts != "" {
		if exOpts.Layouts, err = extraction.LoadLayouts(opts.layouts); err != nil {
			return err
		}
	}
	ex := extraction.NewExtractor(fetcher, tesseract.NewRecognizer(opts.tessBin, opts.tessLang, nil, log), log, exOpts)

	doc, out, err := fn(ctx, ex)
	if err != nil {
		return err
	}
	res := score(out, doc.Text)
	log.Debug("Extraction finished", zap.String("strategy", res.Strategy), zap.Float64("confidence", res.Confidence))
	return printJSON(cmd.OutOrStdout(), res)
}

func score(out *extraction.Outcome, pageText string) result {
	conf := scoring.NewScorer().Apply(out.Recipe)
	res := result{
		Strategy:   out.Strategy,
		Tried:      out.Tried,
		Confidence: conf,
		Issues:     validation.DetectIssues(out.Recipe, validation.DefaultReviewThreshold),
		Recipe:     out.Recipe,
	}
	if err := scoring.NewDetector(0).Check(out.Recipe, conf, pageText); err != nil {
		if appErr, ok := entity.AsAppError(err); ok {
			res.Blocked = appErr.Message
		}
	}
	return res
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
