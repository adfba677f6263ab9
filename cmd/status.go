package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/pricescrape/internal/model"
	"github.com/sells-group/pricescrape/pkg/scrapeapi"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Fetch the current status of a scrape job once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newAPIClient(cfg).GetStatus(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "status")
		}
		return writeStatus(cmd.OutOrStdout(), newStatusView(args[0], resp), statusOutput)
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "output format (text, json, yaml)")
	rootCmd.AddCommand(statusCmd)
}

// statusView is the printable form of one status response.
type statusView struct {
	JobID    string         `json:"job_id" yaml:"job_id"`
	Status   string         `json:"status" yaml:"status"`
	Progress model.Progress `json:"progress" yaml:"progress"`
	Percent  *float64       `json:"percent,omitempty" yaml:"percent,omitempty"`
	Message  string         `json:"message" yaml:"message"`
}

func newStatusView(jobID string, resp *scrapeapi.StatusResponse) statusView {
	v := statusView{
		JobID:    jobID,
		Status:   resp.Status,
		Progress: model.Progress{Current: resp.Progress.Current, Total: resp.Progress.Total},
		Message:  resp.Message,
	}
	if pct, ok := v.Progress.Percent(); ok {
		v.Percent = &pct
	}
	return v
}

func writeStatus(out io.Writer, v statusView, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return eris.Wrap(err, "marshal yaml")
		}
		_, err = out.Write(data)
		return err
	case "text", "":
		formatStatus(out, v)
		return nil
	default:
		return eris.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// formatStatus writes v as aligned key/value lines.
func formatStatus(out io.Writer, v statusView) {
	progress := "-"
	if v.Percent != nil {
		progress = fmt.Sprintf("%d/%d (%.0f%%)", v.Progress.Current, v.Progress.Total, *v.Percent)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Job ID:\t%s\n", v.JobID)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", v.Status)
	_, _ = fmt.Fprintf(w, "Progress:\t%s\n", progress)
	_, _ = fmt.Fprintf(w, "Message:\t%s\n", v.Message)
	_ = w.Flush()
}
