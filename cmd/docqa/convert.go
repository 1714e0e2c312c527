package main

import (
	"fmt"
	"os"

	"github.com/sandevgo/docqa/internal/config"
	"github.com/sandevgo/docqa/internal/service/convert"
	"github.com/spf13/cobra"
)

var convertSrc, convertDst string

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Extract the text of downloaded PDFs into markdown files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, done := commandContext(cmd, os.Stdout)
		defer done()

		appCfg := config.NewAppConfig(ctx)
		src, dst := convertSrc, convertDst
		if src == "" {
			src = appCfg.GetDownloadPath()
		}
		if dst == "" {
			dst = appCfg.GetDocumentsPath()
		}

		res, err := convert.NewConverter(nil).ConvertDir(ctx, src, dst)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Converted %d PDFs into %s (%d failed)\n", len(res.Converted), dst, len(res.Failed))
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertSrc, "src", "", "directory with PDFs (default: runtime pdfs dir)")
	convertCmd.Flags().StringVar(&convertDst, "dst", "", "output directory (default: runtime documents dir)")
	rootCmd.AddCommand(convertCmd)
}
