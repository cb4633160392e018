package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-annotator/internal/config"
	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/controller"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	ConfigPath string
	Config     *config.Config
}

// NewRootCommand creates the root command for the image-annotator CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "image-annotator",
		Short: "Draw, label and export bounding-box annotations",
		Long: `Manage bounding-box annotations for a directory of jpg/png images.

State is kept in a hidden .annotation_scratch file inside the directory and
can be exported as SFrame CSV for training pipelines.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			cfg, err := loadConfig(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (json or yaml, default "+config.GetConfigPath()+")")

	// Add subcommands
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewCategoriesCommand(opts))
	cmd.AddCommand(NewCategoryCommand(opts))
	cmd.AddCommand(NewAnnotateCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewSuggestCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// loadConfig reads path, or the default config file when path is empty.
// A missing default file means built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = config.GetConfigPath()
	}

	if !explicit && !utils.FileExists(path) {
		return config.Default(), nil
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession opens dir as the working directory of a fresh controller
func openSession(dir string) (*controller.Controller, error) {
	if !utils.DirExists(dir) {
		return nil, NewExitError(ExitCommandError, "not a directory: "+dir)
	}
	c := controller.New()
	if err := c.OpenDirectory(dir); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open directory", err)
	}
	return c, nil
}

// showImage makes name the current image of c
func showImage(c *controller.Controller, name string) error {
	if !c.Show(name) {
		return NewExitError(ExitCommandError, "no such image in directory: "+name)
	}
	return nil
}

// selectCategory makes name the active category of c
func selectCategory(c *controller.Controller, name string) error {
	if !c.SelectCategoryByName(name) {
		return NewExitError(ExitCommandError, "unknown category: "+name)
	}
	return nil
}
