package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/processing"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	OutDir string
	Format string
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render <dir>",
		Short: "Write preview images with annotations drawn in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "output", "o", "out", "output directory")
	cmd.Flags().StringVar(&opts.Format, "format", "", "png|jpg|webp (default render.format from config)")

	return cmd
}

func runRender(rootOpts *RootOptions, opts *RenderOptions, dir string, cmd *cobra.Command) error {
	cfg := rootOpts.Config.Render
	format := opts.Format
	if format == "" {
		format = cfg.Format
	}
	switch format {
	case "png", "jpg", "webp":
	default:
		return NewExitError(ExitCommandError, "invalid --format: "+format)
	}

	c, err := openSession(dir)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(opts.OutDir); err != nil {
		return WrapExitError(ExitCommandError, "failed to create output directory", err)
	}

	processor := processing.NewProcessor()
	renderOpts := processing.RenderOptions{StrokeWidth: cfg.StrokeWidth, Label: cfg.Label}

	outNames := outputNames(c.ImageFiles())
	failed := 0
	for _, name := range c.ImageFiles() {
		annotations := c.AnnotationsFor(name)
		if len(annotations) == 0 {
			continue
		}

		path := filepath.Join(c.Directory(), name)
		img, err := processor.LoadImage(path)
		if err != nil {
			slog.Warn("skipping unreadable image", "path", path, "error", err)
			failed++
			continue
		}

		out := processor.RenderAnnotations(img, annotations, renderOpts)
		outPath := utils.GenerateOutputFilename(outNames[name], opts.OutDir, "", cfg.Suffix, format)
		if err := processor.SaveImage(out, outPath, format, cfg.Quality, cfg.Lossless); err != nil {
			slog.Warn("save failed", "path", outPath, "error", err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d image(s) could not be rendered", failed))
	}
	return nil
}

// outputNames maps each image to the name its preview is derived from.
// Images sharing a stem, like a.png and a.jpg, keep their extension in it.
func outputNames(images []string) map[string]string {
	stems := map[string]int{}
	for _, name := range images {
		stems[strings.TrimSuffix(name, filepath.Ext(name))]++
	}

	out := make(map[string]string, len(images))
	for _, name := range images {
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		if stems[stem] > 1 {
			stem += "_" + utils.GetFileExtension(name)
		}
		out[name] = stem + ext
	}
	return out
}
