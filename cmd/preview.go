package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pricescrape/internal/upload"
)

var (
	previewFile  string
	previewSheet string
	previewLimit int
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "List the OEM codes the scraper would read from a spreadsheet",
	Long: "Reads the first column of an .xlsx sheet locally. Useful to check a " +
		"file before submitting it; submit does not require it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		codes, err := upload.ReadCodes(previewFile, upload.CodeOptions{
			SheetName: previewSheet,
			Limit:     previewLimit,
		})
		if err != nil {
			return eris.Wrap(err, "preview")
		}

		formatCodes(cmd.OutOrStdout(), codes)
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewFile, "file", "", "path to the .xlsx spreadsheet (required)")
	previewCmd.Flags().StringVar(&previewSheet, "sheet", "", "sheet name (default first sheet)")
	previewCmd.Flags().IntVar(&previewLimit, "limit", 0, "max codes to list (0 = all)")
	_ = previewCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(previewCmd)
}

// formatCodes writes a numbered list of codes to out.
func formatCodes(out io.Writer, codes []string) {
	if len(codes) == 0 {
		_, _ = fmt.Fprintln(out, "No OEM codes found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tOEM CODE")
	for i, c := range codes {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", i+1, c)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "%d codes\n", len(codes))
}
