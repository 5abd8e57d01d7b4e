package commands

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
	"go.trai.ch/bom/internal/core/domain"
)

func (c *CLI) newFindCmd() *cobra.Command {
	var q domain.Query
	cmd := &cobra.Command{
		Use:   "find <graph>",
		Short: "Print the entries of a graph matching the given criteria",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.Empty() {
				return errors.New("at least one search criterion is required")
			}
			entries, err := c.app.Find(cmd.Context(), args[0], q)
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []*domain.SoftwareEntry{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		},
	}
	cmd.Flags().StringVar(&q.SHA256, "sha256", "", "Match the SHA-256 content hash")
	cmd.Flags().StringVar(&q.SHA1, "sha1", "", "Match the SHA-1 content hash")
	cmd.Flags().StringVar(&q.MD5, "md5", "", "Match the MD5 content hash")
	cmd.Flags().StringVar(&q.Name, "name", "", "Match a file name (glob)")
	cmd.Flags().StringVar(&q.InstallPath, "installpath", "", "Match an install path (glob)")
	cmd.Flags().StringVar(&q.Container, "container", "", "Match a containing archive path (glob)")
	return cmd
}
