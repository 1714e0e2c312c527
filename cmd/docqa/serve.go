package main

import (
	"errors"
	"io"
	"os"

	"github.com/sandevgo/docqa/internal/config"
	"github.com/sandevgo/docqa/internal/service/command"
	"github.com/sandevgo/docqa/internal/transport/mcp"
	"github.com/sandevgo/docqa/internal/transport/telegram"
	"github.com/sandevgo/docqa/pkg/log"
	"github.com/sandevgo/docqa/pkg/srv"
	"github.com/spf13/cobra"
)

var serveMCP bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document session over Telegram and/or MCP stdio",
	Long: `Starts the configured transports around one shared session: the Telegram
bot when ENABLE_TELEGRAM is set, an MCP stdio server with --mcp, and the
Prometheus endpoint when METRICS_ADDR is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the MCP protocol, so logs move to stderr.
		var logOut io.Writer = os.Stdout
		if serveMCP {
			logOut = os.Stderr
		}
		ctx, done := commandContext(cmd, logOut)
		defer done()
		logger := log.FromCtx(ctx)

		rt, err := newRuntime(ctx, true)
		if err != nil {
			return err
		}

		services := []srv.Service{srv.NewCleanup(rt.Close)}

		if addr := rt.appCfg.GetMetricsAddr(); addr != "" {
			services = append(services, srv.NewHTTP(addr, rt.metrics.Handler()))
		}

		transports := 0
		if rt.appCfg.IsTelegramSelected() {
			router := command.NewRouter(rt.session, rt.appCfg, rt.provider)
			bot, err := telegram.NewBot(ctx, config.NewTelegramConfig(ctx), rt.session, router)
			if err != nil {
				rt.Close()
				return err
			}
			services = append(services, bot)
			transports++
		}
		if serveMCP {
			services = append(services, mcp.NewServer(rt.session, rt.probe, os.Stdin, os.Stdout, os.Stderr))
			transports++
		}

		if transports == 0 {
			rt.Close()
			return errors.New("nothing to serve: set ENABLE_TELEGRAM=true or pass --mcp")
		}

		logger.Info().Str("session", rt.session.ID()).Int("transports", transports).Msg("starting docqa")
		err = srv.Run(ctx, services)
		logger.Info().Msg("docqa has been shut down gracefully")
		return err
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "serve MCP tools on stdin/stdout")
	rootCmd.AddCommand(serveCmd)
}
