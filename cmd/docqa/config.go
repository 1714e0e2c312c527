package main

import (
	"fmt"
	"os"

	"github.com/sandevgo/docqa/internal/config"
	"github.com/sandevgo/docqa/pkg/env"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as environment variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, done := commandContext(cmd, os.Stderr)
		defer done()

		out, err := env.MarshalEnv(
			config.NewAppConfig(ctx),
			config.NewRAGConfig(ctx, configPath),
			config.NewHarvestConfig(ctx),
		)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
