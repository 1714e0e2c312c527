package main

import (
	"os"

	"github.com/sandevgo/docqa/internal/service/command"
	"github.com/sandevgo/docqa/internal/transport/cli"
	"github.com/sandevgo/docqa/pkg/log"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the documents in an interactive session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, done := commandContext(cmd, os.Stdout)
		defer done()

		rt, err := newRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		router := command.NewRouter(rt.session, rt.appCfg, rt.provider)
		rl, err := cli.NewReadLine(rt.session, router, rt.appCfg.GetRuntimePath())
		if err != nil {
			return err
		}
		defer rl.Shutdown(ctx)

		if err := rl.Start(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		log.FromCtx(ctx).Info().Msg("chat closed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
