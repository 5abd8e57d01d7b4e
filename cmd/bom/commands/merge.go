package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newMergeCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "merge <graph>...",
		Short: "Combine several graphs into one",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			merged, err := c.app.Merge(cmd.Context(), args, output)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d entries, %d relationships written to %s\n",
				len(merged.Entries), len(merged.Relationships), output)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "bom.json", "Output graph (.json, or .db for SQLite)")
	return cmd
}
