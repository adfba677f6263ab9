package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pricescrape/internal/jobclient"
	"github.com/sells-group/pricescrape/internal/upload"
	"github.com/sells-group/pricescrape/pkg/scrapeapi"
)

var (
	submitFile   string
	submitEmail  string
	submitNoWait bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Upload an OEM code spreadsheet and follow the scrape job",
	Long: "Uploads the spreadsheet and email address, then polls the job every " +
		"poll.interval_secs until the backend reports completion or failure.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runSubmit(ctx, cmd.OutOrStdout(), newAPIClient(cfg), submitParams{
			Path:     submitFile,
			Email:    submitEmail,
			NoWait:   submitNoWait,
			Interval: pollInterval(cfg),
		})
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitFile, "file", "", "path to the .xlsx/.xls spreadsheet of OEM codes")
	submitCmd.Flags().StringVar(&submitEmail, "email", "", "address the results are sent to")
	submitCmd.Flags().BoolVar(&submitNoWait, "no-wait", false, "print the job id and exit without polling")
	rootCmd.AddCommand(submitCmd)
}

type submitParams struct {
	Path     string
	Email    string
	NoWait   bool
	Interval time.Duration
}

// runSubmit drives one job through the job client, printing every state
// change to out. A missing file or email is reported by the job client
// itself, the same way the upload form does.
func runSubmit(ctx context.Context, out io.Writer, api scrapeapi.Client, p submitParams) error {
	payload := upload.Payload{Email: strings.TrimSpace(p.Email)}
	if p.Path != "" {
		opened, closer, err := upload.Open(p.Path, p.Email)
		if err != nil {
			return eris.Wrap(err, "submit")
		}
		defer closer.Close() //nolint:errcheck
		payload = opened
	}

	r := newRenderer(out, "")
	jc := jobclient.New(api,
		jobclient.WithInterval(p.Interval),
		jobclient.WithObserver(r.render),
	)
	defer jc.Close()

	if err := jc.Submit(ctx, payload); err != nil {
		return err
	}

	snap := jc.Snapshot()
	_, _ = fmt.Fprintf(out, "Job ID: %s\n", snap.JobID)
	if p.NoWait {
		return nil
	}

	snap, err := jc.Wait(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zap.L().Info("stopped following job", zap.String("job_id", snap.JobID))
		_, _ = fmt.Fprintf(out, "Stopped polling. The job keeps running; resume with: pricescrape watch %s\n", snap.JobID)
	}
	return err
}
