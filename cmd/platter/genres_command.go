package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGenresCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "genres",
		Short: "List the lossy encoder's genre vocabulary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.newLameClient(cfg)
			if err != nil {
				return err
			}
			genres, err := client.Genres(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, genre := range genres {
				fmt.Fprintln(out, genre)
			}
			return nil
		},
	}
}
