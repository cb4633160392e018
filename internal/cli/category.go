package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-annotator/pkg/types"
)

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories <dir>",
		Short: "List annotation categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openSession(args[0])
			if err != nil {
				return err
			}
			for i, style := range c.CurrentStyles() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", i, style.Text, style.Color.Hex())
			}
			return nil
		},
	}
}

// NewCategoryCommand creates the category command group.
func NewCategoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage annotation categories",
	}
	cmd.AddCommand(newCategoryAddCommand(rootOpts))
	return cmd
}

func newCategoryAddCommand(rootOpts *RootOptions) *cobra.Command {
	var hex string

	cmd := &cobra.Command{
		Use:   "add <dir> <name>",
		Short: "Add a category, or recolor an existing one",
		Long: `Add a category. Names are trimmed and lowercased; adding a name that
already exists replaces its color and keeps its position.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			color, err := types.ColorFromHex(hex)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --color", err)
			}
			c, err := openSession(args[0])
			if err != nil {
				return err
			}
			i, err := c.CreateCategory(args[1], color)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid category", err)
			}
			style := c.CurrentStyles()[i]
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", i, style.Text, style.Color.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&hex, "color", "#ff0000", "category color as #rrggbb or #rrggbbaa")

	return cmd
}
