package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sandevgo/docqa/internal/config"
	"github.com/sandevgo/docqa/internal/service/ui"
	"github.com/sandevgo/docqa/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var (
	transcriptSession string
	transcriptLimit   int
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Print recorded exchanges",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, done := commandContext(cmd, os.Stderr)
		defer done()

		db, err := initStorage(ctx, config.NewAppConfig(ctx))
		if err != nil {
			return err
		}
		defer db.Close()

		exchanges, err := sqlite.NewTranscriptRepo(db).Recent(ctx, transcriptSession, transcriptLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, e := range exchanges {
			fmt.Fprintln(out, ui.TitleStyle.Render(fmt.Sprintf("%s  %s", e.CreatedAt.Local().Format(time.DateTime), e.SessionID)))
			fmt.Fprintln(out, ui.DescStyle.Render(e.User))
			fmt.Fprintf(out, "%s\n\n", e.Assistant)
		}
		return nil
	},
}

func init() {
	transcriptCmd.Flags().StringVar(&transcriptSession, "session", "", "only this session id")
	transcriptCmd.Flags().IntVarP(&transcriptLimit, "limit", "n", 10, "number of exchanges")
	rootCmd.AddCommand(transcriptCmd)
}
