package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sync/atomic"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pricescrape/internal/jobclient"
	"github.com/sells-group/pricescrape/internal/model"
	"github.com/sells-group/pricescrape/pkg/scrapeapi"
)

var watchConcurrency int

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>...",
	Short: "Poll already-submitted scrape jobs until they finish",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		concurrency := watchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Watch.MaxConcurrent
		}

		return watchJobs(ctx, cmd.OutOrStdout(), newAPIClient(cfg), args, concurrency, pollInterval(cfg))
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchConcurrency, "concurrency", 0, "max jobs polled at once (default watch.max_concurrent)")
	rootCmd.AddCommand(watchCmd)
}

// watchJobs tracks every job id with its own job client, at most
// concurrency at a time, then prints a summary. Jobs that end in error do
// not stop the others; they are counted in the returned error.
func watchJobs(ctx context.Context, out io.Writer, api scrapeapi.Client, ids []string, concurrency int, interval time.Duration) error {
	lw := &lockedWriter{w: out}

	zap.L().Info("watching jobs",
		zap.Int("jobs", len(ids)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var failed atomic.Int64
	results := make([]model.Snapshot, len(ids))

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			r := newRenderer(lw, id+": ")
			jc := jobclient.New(api,
				jobclient.WithInterval(interval),
				jobclient.WithObserver(r.render),
				jobclient.WithLogger(zap.L().With(zap.String("job_id", id))),
			)
			defer jc.Close()

			if err := jc.Track(id); err != nil {
				return eris.Wrapf(err, "watch %s", id)
			}

			snap, err := jc.Wait(gctx)
			results[i] = snap
			if errors.Is(err, jobclient.ErrJobFailed) {
				failed.Add(1)
				return nil // keep watching the rest
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	formatWatchSummary(out, results)

	if n := failed.Load(); n > 0 {
		return eris.Wrapf(jobclient.ErrJobFailed, "%d of %d jobs failed", n, len(ids))
	}
	return nil
}

// formatWatchSummary writes one row per watched job.
func formatWatchSummary(out io.Writer, results []model.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "JOB ID\tSTATE\tMESSAGE")
	_, _ = fmt.Fprintln(w, "------\t-----\t-------")
	for _, s := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.JobID, s.State, s.Message)
	}
	_ = w.Flush()
}
