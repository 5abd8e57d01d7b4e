package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/bom/internal/app"
	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/zerr"
)

func (c *CLI) newAddCmd() *cobra.Command {
	var (
		opts          app.AddOptions
		entryFiles    []string
		relationships []string
		installPaths  []string
	)
	cmd := &cobra.Command{
		Use:   "add <graph>",
		Short: "Add files, entries, relationships or install paths to a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Input = args[0]
			for _, f := range entryFiles {
				entry, err := readEntry(f)
				if err != nil {
					return err
				}
				opts.Entries = append(opts.Entries, entry)
			}
			for _, r := range relationships {
				rel, err := parseRelationship(r)
				if err != nil {
					return err
				}
				opts.Relationships = append(opts.Relationships, rel)
			}
			for _, p := range installPaths {
				prefix, err := parseInstallPrefix(p)
				if err != nil {
					return err
				}
				opts.InstallPrefixes = append(opts.InstallPrefixes, prefix)
			}
			if len(opts.Files)+len(opts.Entries)+len(opts.Relationships)+len(opts.InstallPrefixes) == 0 {
				return zerr.New("nothing to add")
			}

			out, err := c.app.Add(cmd.Context(), opts)
			if err != nil {
				return err
			}
			target := opts.Output
			if target == "" {
				target = opts.Input
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d entries, %d relationships written to %s\n",
				len(out.Entries), len(out.Relationships), target)
			return err
		},
	}
	cmd.Flags().StringArrayVar(&opts.Files, "file", nil, "File to scan into the graph (repeatable)")
	cmd.Flags().StringArrayVar(&entryFiles, "entry", nil, "JSON file holding one entry to add (repeatable)")
	cmd.Flags().StringArrayVar(&relationships, "relationship", nil, "Edge between entry ids as FROM:KIND:TO (repeatable)")
	cmd.Flags().StringArrayVar(&installPaths, "installpath", nil, "Install members of a container as CONTAINER=PREFIX (repeatable)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output graph, defaults to the input graph")
	return cmd
}

func readEntry(file string) (*domain.SoftwareEntry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read entry"), "path", file)
	}
	var entry domain.SoftwareEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to decode entry"), "path", file)
	}
	return &entry, nil
}

func parseRelationship(s string) (domain.Relationship, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return domain.Relationship{}, zerr.With(
			zerr.Wrap(domain.ErrInvalidRelationship, "expected FROM:KIND:TO"), "relationship", s)
	}
	return domain.Relationship{
		From: domain.EntryID(parts[0]),
		Kind: domain.RelationshipKind(strings.ToUpper(parts[1])),
		To:   domain.EntryID(parts[2]),
	}, nil
}

func parseInstallPrefix(s string) (app.InstallPrefix, error) {
	container, prefix, ok := strings.Cut(s, "=")
	if !ok || container == "" || prefix == "" {
		return app.InstallPrefix{}, zerr.With(zerr.New("expected CONTAINER=PREFIX"), "installpath", s)
	}
	return app.InstallPrefix{Container: container, Prefix: prefix}, nil
}
