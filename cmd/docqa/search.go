package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sandevgo/docqa/internal/service/ui"
	"github.com/spf13/cobra"
)

var searchK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the passages retrieved for a query and whether each passes the threshold",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, done := commandContext(cmd, os.Stdout)
		defer done()

		rt, err := newRuntime(ctx, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		decisions, err := rt.probe.Search(ctx, strings.Join(args, " "), searchK)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(decisions) == 0 {
			fmt.Fprintln(out, ui.DescStyle.Render("no passages found"))
			return nil
		}

		fmt.Fprintln(out, ui.TitleStyle.Render(fmt.Sprintf("threshold %.4f (%s)", rt.ragCfg.ScoreThreshold, rt.ragCfg.ComparisonDirection)))
		for i, d := range decisions {
			verdict := ui.KeptStyle.Render("kept")
			if !d.Kept {
				verdict = ui.DiscardedStyle.Render("discarded")
			}
			fmt.Fprintf(out, "%d. %s %s %s\n", i+1, verdict, d.Candidate.Source(),
				ui.DescStyle.Render(fmt.Sprintf("score=%.4f", d.Candidate.Score)))
			fmt.Fprintf(out, "   %s\n\n", preview(d.Candidate.Text, 240))
		}
		return nil
	},
}

// preview flattens text to one line of at most n runes.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "…"
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 0, "number of candidates (default: configured top k)")
	rootCmd.AddCommand(searchCmd)
}
