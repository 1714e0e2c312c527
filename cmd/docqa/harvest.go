package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sandevgo/docqa/internal/config"
	"github.com/sandevgo/docqa/internal/service/harvest"
	"github.com/sandevgo/docqa/pkg/log"
	"github.com/spf13/cobra"
)

var harvestListOnly bool

var harvestCmd = &cobra.Command{
	Use:   "harvest [url]",
	Short: "Collect and download the PDFs linked from a listing page",
	Long: `Walks a paginated listing page, collects every link to a PDF and downloads
them into the runtime pdfs directory. The URL defaults to HARVEST_URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, done := commandContext(cmd, os.Stdout)
		defer done()
		logger := log.FromCtx(ctx)

		appCfg := config.NewAppConfig(ctx)
		harvestCfg := config.NewHarvestConfig(ctx)

		pageURL := harvestCfg.StartURL
		if len(args) > 0 {
			pageURL = args[0]
		}
		if pageURL == "" {
			return errors.New("no listing url: pass one or set HARVEST_URL")
		}

		links, err := harvest.NewHarvester(harvestCfg).Harvest(ctx, pageURL)
		if err != nil {
			return err
		}

		if harvestListOnly {
			for _, l := range links {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", l.Title, l.URL)
			}
			return nil
		}

		dir := appCfg.GetDownloadPath()
		report := harvest.NewDownloader(harvestCfg, dir, nil).DownloadAll(ctx, links)
		if err := harvest.WriteManifest(dir, report.Downloaded); err != nil {
			logger.Warn().Err(err).Msg("failed to write manifest")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d of %d PDFs into %s\n", len(report.Downloaded), report.Total, dir)
		return nil
	},
}

func init() {
	harvestCmd.Flags().BoolVar(&harvestListOnly, "list", false, "only print the links found")
	rootCmd.AddCommand(harvestCmd)
}
