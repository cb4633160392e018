package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/menta2k/image-annotator/pkg/export"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <dir>",
		Short: "List annotatable images and their annotation counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openSession(args[0])
			if err != nil {
				return err
			}
			current, _ := c.CurrentFile()
			for _, name := range c.ImageFiles() {
				marker := " "
				if name == current {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%d\n", marker, name, len(c.AnnotationsFor(name)))
			}
			return nil
		},
	}
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Output     string
	PathPrefix string
	Clipboard  bool
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Export annotations as SFrame CSV",
		Long: `Export every stored annotation as SFrame CSV, one row per image.

Rows are sorted by file name. Without -o the CSV is written to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout, or export.output from config)")
	cmd.Flags().StringVar(&opts.PathPrefix, "path-prefix", "", "directory prepended to each image_path (default export.path_prefix from config)")
	cmd.Flags().BoolVar(&opts.Clipboard, "clipboard", false, "also copy the CSV to the clipboard")

	return cmd
}

func runExport(rootOpts *RootOptions, opts *ExportOptions, dir string, cmd *cobra.Command) error {
	c, err := openSession(dir)
	if err != nil {
		return err
	}

	prefix := opts.PathPrefix
	if prefix == "" {
		prefix = rootOpts.Config.Export.PathPrefix
	}
	output := opts.Output
	if output == "" {
		output = rootOpts.Config.Export.Output
	}

	var buf bytes.Buffer
	if err := c.Export(&buf, export.WithPathPrefix(prefix)); err != nil {
		return WrapExitError(ExitFailure, "export failed", err)
	}

	csv := buf.String()
	if output == "" {
		fmt.Fprintln(cmd.OutOrStdout(), csv)
	} else {
		if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
			return WrapExitError(ExitFailure, "failed to write export", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
	}

	if opts.Clipboard {
		if err := clipboard.WriteAll(csv); err != nil {
			return WrapExitError(ExitFailure, "failed to copy to clipboard", err)
		}
	}
	return nil
}
