package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-annotator/pkg/client"
	"github.com/menta2k/image-annotator/pkg/detection"
	"github.com/menta2k/image-annotator/pkg/ollama"
	"github.com/menta2k/image-annotator/pkg/processing"
	"github.com/menta2k/image-annotator/pkg/types"
	"github.com/menta2k/image-annotator/pkg/vision"
)

// SuggestOptions holds flags for the suggest command.
type SuggestOptions struct {
	Category      string
	Backend       string
	Color         string
	Model         string
	URL           string
	MinConfidence float64
	All           bool
}

// NewSuggestCommand creates the suggest command.
func NewSuggestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SuggestOptions{}

	cmd := &cobra.Command{
		Use:   "suggest <dir>",
		Short: "Let a vision model propose a box for unannotated images",
		Long: `Ask a vision model for the primary subject of each image that has no
annotations yet, and record boxes the model is confident about in the given
category. The category is created if it does not exist.

The ollama backend queries an Ollama server; the local backend boxes the
most salient region of the image and needs no server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "category to record suggestions in")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "ollama or local (default vision.backend from config)")
	cmd.Flags().StringVar(&opts.Color, "color", "#00ff00", "color used when the category is created")
	cmd.Flags().StringVar(&opts.Model, "model", "", "model name (default vision.model from config)")
	cmd.Flags().StringVar(&opts.URL, "url", "", "Ollama server URL (default vision.url from config)")
	cmd.Flags().Float64Var(&opts.MinConfidence, "min-confidence", -1, "minimum confidence to accept (default vision.min_confidence from config)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "also suggest for images that already have annotations")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func runSuggest(rootOpts *RootOptions, opts *SuggestOptions, dir string, cmd *cobra.Command) error {
	cfg := rootOpts.Config.Vision
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.Model != "" {
		cfg.Model = opts.Model
	}
	if opts.URL != "" {
		cfg.URL = opts.URL
	}
	if opts.MinConfidence >= 0 {
		cfg.MinConfidence = opts.MinConfidence
	}

	color, err := types.ColorFromHex(opts.Color)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --color", err)
	}

	var vc client.VisionClient
	switch cfg.Backend {
	case "local":
		vc = vision.New()
	case "ollama":
		oc, err := ollama.NewClient(cfg.URL)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --url", err)
		}
		vc = oc
	default:
		return NewExitError(ExitCommandError, "unknown --backend: "+cfg.Backend)
	}
	detector := detection.NewDetector(vc, detection.SendOptions{
		Format:  cfg.SendFormat,
		MaxDim:  cfg.SendSize,
		Quality: cfg.SendQuality,
	})

	c, err := openSession(dir)
	if err != nil {
		return err
	}
	if !c.SelectCategoryByName(opts.Category) {
		if _, err := c.CreateCategory(opts.Category, color); err != nil {
			return WrapExitError(ExitCommandError, "invalid category", err)
		}
	}

	processor := processing.NewProcessor()
	accepted := 0
	for _, name := range c.ImageFiles() {
		if !opts.All && len(c.AnnotationsFor(name)) > 0 {
			continue
		}
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		c.Show(name)
		path, _ := c.CurrentPath()
		img, err := processor.LoadImage(path)
		if err != nil {
			slog.Warn("skipping unreadable image", "path", path, "error", err)
			continue
		}

		s, err := detector.Suggest(cmd.Context(), cfg.Model, img)
		if errors.Is(err, detection.ErrNoSubject) {
			slog.Info("no subject found", "file", name)
			continue
		}
		if err != nil {
			return WrapExitError(ExitFailure, "model request failed for "+name, err)
		}
		if s.Confidence < cfg.MinConfidence {
			slog.Info("suggestion below threshold", "file", name, "label", s.Label, "confidence", s.Confidence)
			continue
		}

		if _, ok := c.OnDragCommitted(s.Rect); ok {
			accepted++
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.2f\t%s\n", name, s.Label, s.Confidence, s.Rect)
		}
	}

	slog.Debug("suggestions recorded", "count", accepted)
	return nil
}
