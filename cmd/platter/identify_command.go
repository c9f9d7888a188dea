package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	var (
		tocFlag     string
		tocFileFlag string
	)

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Aggregate and display metadata candidates for a disc",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			toc, err := resolveTOC(tocFlag, tocFileFlag)
			if err != nil {
				return err
			}

			aggregator, persistence, err := ctx.newAggregator(cfg)
			if err != nil {
				return err
			}
			collectCtx, cancel := context.WithTimeout(cmd.Context(),
				time.Duration(cfg.Pipeline.CollectTimeoutSeconds)*time.Second)
			defer cancel()

			out := cmd.OutOrStdout()

			result, err := aggregator.Aggregate(collectCtx, toc)
			if err != nil {
				return fmt.Errorf("aggregate metadata: %w", err)
			}
			record := result.Record

			fmt.Fprintf(out, "Disc %s (%d tracks)\n", persistence.DiscID(), toc.TrackCount())
			if result.Restored {
				note := "restored from a prior rip"
				if result.Converted {
					note += ", converted from an older snapshot format"
				}
				fmt.Fprintln(out, "Metadata "+note+".")
			}
			for _, collectErr := range result.Errors {
				fmt.Fprintf(out, "warning: %v\n", collectErr)
			}

			fmt.Fprintln(out, albumCandidatesTable(record.Album))
			fmt.Fprintln(out, trackCandidatesTable(record))
			return nil
		},
	}

	cmd.Flags().StringVar(&tocFlag, "toc", "", "Table of contents (\"first last offsets... leadout\")")
	cmd.Flags().StringVar(&tocFileFlag, "toc-file", "", "File containing the table of contents")

	return cmd
}
