package main

import (
	"github.com/sandevgo/docqa/internal/config"
	"github.com/sandevgo/docqa/internal/service/installer"
	"github.com/sandevgo/docqa/pkg/log"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Write the runtime .env through an interactive wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()
		logger := log.FromCtx(ctx)

		runtimePath := config.GetRuntimePath()
		state, err := installer.RunWizard(runtimePath)
		if err != nil {
			return err
		}

		logger.Info().Str("path", state.EnvPath()).Msg("configuration saved")
		logger.Info().Msg("next: docqa harvest, docqa convert, docqa index, then docqa chat")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
