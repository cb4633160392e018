package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-annotator/pkg/workspace"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Keep the scratch file's image list in sync while files change",
		Long: `Watch a directory and refresh the recorded image list whenever jpg/png
files are added, removed or renamed. Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openSession(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w, err := workspace.NewWatcher(args[0], func(names []string) {
				c.ApplyListing(names)
				current, _ := c.CurrentFile()
				fmt.Fprintf(out, "%d image(s), current %q: %s\n", len(names), current, strings.Join(names, " "))
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to watch directory", err)
			}
			defer w.Close()
			w.SetDebounce(debounce)

			fmt.Fprintf(out, "watching %s (%d image(s))\n", args[0], len(c.ImageFiles()))
			err = w.Run(cmd.Context())
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", workspace.DefaultDebounce, "wait this long for changes to settle")

	return cmd
}
