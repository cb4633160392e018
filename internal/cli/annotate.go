package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-annotator/pkg/types"
)

// NewAnnotateCommand creates the annotate command.
func NewAnnotateCommand(rootOpts *RootOptions) *cobra.Command {
	var categoryName, rect string

	cmd := &cobra.Command{
		Use:   "annotate <dir> <file>",
		Short: "Record an image-space box on an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := types.ParseRect(rect)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --rect", err)
			}
			c, err := openSession(args[0])
			if err != nil {
				return err
			}
			if err := showImage(c, args[1]); err != nil {
				return err
			}
			if err := selectCategory(c, categoryName); err != nil {
				return err
			}
			style, ok := c.OnDragCommitted(r)
			if !ok {
				return NewExitError(ExitFailure, "annotation refused")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", args[1], style.Text, r)
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryName, "category", "", "category to record the box in")
	cmd.Flags().StringVar(&rect, "rect", "", "box in image pixels as x,y,w,h")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("rect")

	return cmd
}

// SelectOptions holds flags for the select command.
type SelectOptions struct {
	Category string
	View     string
	Down     string
	Up       string
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{}

	cmd := &cobra.Command{
		Use:   "select <dir> <file>",
		Short: "Replay a pointer drag in view coordinates",
		Long: `Replay a pointer drag over an image shown aspect-fit in a view of the
given size. The box is mapped into image pixels, clipped to the image and
recorded in the category. Releasing outside the shown image records nothing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(rootOpts, opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "category to record the box in")
	cmd.Flags().StringVar(&opts.View, "view", "", "view size as WxH (default view.width x view.height from config)")
	cmd.Flags().StringVar(&opts.Down, "down", "", "pointer-down position as x,y")
	cmd.Flags().StringVar(&opts.Up, "up", "", "pointer-up position as x,y")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("down")
	_ = cmd.MarkFlagRequired("up")

	return cmd
}

func runSelect(rootOpts *RootOptions, opts *SelectOptions, dir, file string, cmd *cobra.Command) error {
	view := types.Size{Width: rootOpts.Config.View.Width, Height: rootOpts.Config.View.Height}
	if opts.View != "" {
		v, err := types.ParseSize(opts.View)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --view", err)
		}
		view = v
	}
	down, err := types.ParsePoint(opts.Down)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --down", err)
	}
	up, err := types.ParsePoint(opts.Up)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --up", err)
	}

	c, err := openSession(dir)
	if err != nil {
		return err
	}
	if err := showImage(c, file); err != nil {
		return err
	}
	if err := selectCategory(c, opts.Category); err != nil {
		return err
	}

	c.SetViewSize(view)
	if !c.Mapper().HasImage() {
		return NewExitError(ExitFailure, "image could not be read: "+file)
	}

	c.PointerDown(down)
	c.PointerDragged(up)
	res := c.PointerUp(up)
	switch {
	case !res.Emitted:
		return NewExitError(ExitFailure, "pointer released outside the image, nothing selected")
	case !res.Accepted:
		return NewExitError(ExitFailure, "selection refused")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "display %s\nimage %s\n", res.Selection.Display, res.Selection.Image)
	return nil
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var rect string

	cmd := &cobra.Command{
		Use:   "remove <dir> <file>",
		Short: "Remove the first annotation with the given image-space box",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := types.ParseRect(rect)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --rect", err)
			}
			c, err := openSession(args[0])
			if err != nil {
				return err
			}
			if err := showImage(c, args[1]); err != nil {
				return err
			}
			if !c.OnAnnotationRemoved(r) {
				return NewExitError(ExitFailure, fmt.Sprintf("no annotation at %s on %s", r, args[1]))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", r)
			return nil
		},
	}

	cmd.Flags().StringVar(&rect, "rect", "", "box in image pixels as x,y,w,h")
	_ = cmd.MarkFlagRequired("rect")

	return cmd
}
