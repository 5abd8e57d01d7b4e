// Package commands implements the CLI commands for bom.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/bom/internal/app"
	"go.trai.ch/bom/internal/build"
)

// CLI represents the command line interface for bom.
type CLI struct {
	app       *app.App
	verbosity app.Verbosity
	progress  app.Progress
	rootCmd   *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App, verbosity app.Verbosity, progress app.Progress) *CLI {
	rootCmd := &cobra.Command{
		Use:           "bom",
		Short:         "Build a software graph from binaries, archives and installers",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	// Registered first so the version flag does not claim -v.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print debug output")

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:       a,
		verbosity: verbosity,
		progress:  progress,
		rootCmd:   rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if c.verbosity != nil {
			c.verbosity.SetVerbose(verbose)
		}
	}

	rootCmd.AddCommand(c.newGenerateCmd())
	rootCmd.AddCommand(c.newFindCmd())
	rootCmd.AddCommand(c.newMergeCmd())
	rootCmd.AddCommand(c.newAddCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects command output. Used for testing.
func (c *CLI) SetOutput(w io.Writer) {
	c.rootCmd.SetOut(w)
	c.rootCmd.SetErr(w)
}
