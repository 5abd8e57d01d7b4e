package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/bom/internal/app"
)

func (c *CLI) newGenerateCmd() *cobra.Command {
	var opts app.GenerateOptions
	var progress bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Scan the configured specimens and write the software graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if progress && c.progress != nil {
				c.progress.SetOutput(cmd.ErrOrStderr())
			}
			res, err := c.app.Generate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d entries, %d relationships, %d diagnostics\n",
				res.Stats.Files, res.Stats.Entries, res.Stats.Relationships, len(res.Diagnostics))
			return err
		},
	}
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "bom.yaml", "Specimen configuration file")
	cmd.Flags().StringVarP(&opts.InputGraph, "input-graph", "i", "", "Existing graph to merge the scan into")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "bom.json", "Output graph (.json, or .db for SQLite)")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Number of files processed in parallel")
	cmd.Flags().BoolVar(&opts.Deterministic, "deterministic", false, "Use sequential identifiers and a fixed capture time")
	cmd.Flags().BoolVar(&opts.OmitUnrecognized, "omit-unrecognized", false, "Leave files of unknown type out of the graph")
	cmd.Flags().BoolVar(&progress, "progress", false, "Report finished scan stages on stderr")
	return cmd
}
