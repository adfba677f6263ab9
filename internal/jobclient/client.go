// Package jobclient drives one scrape job through its client-side
// lifecycle: idle → uploading → scraping → success | error.
//
// A Client submits the spreadsheet and email, then polls the status
// endpoint on a fixed interval until the backend reports completion or
// failure. Poll transport failures are best-effort: they are logged and the
// next tick simply tries again, with no backoff, no retry cap and no ceiling
// on total polling time.
package jobclient

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pricescrape/internal/model"
	"github.com/sells-group/pricescrape/internal/upload"
	"github.com/sells-group/pricescrape/pkg/scrapeapi"
)

// DefaultInterval is the status poll period.
const DefaultInterval = 5 * time.Second

// User-facing messages.
const (
	MsgValidation   = "Please select a file and enter your email"
	MsgUploading    = "Uploading file and starting scraper..."
	MsgScraping     = "Scraping in progress... This may take 1-2 hours."
	MsgCompleted    = "Scraping completed! Results sent to your email."
	MsgSubmitFailed = "Failed to start scraping"
	MsgJobFailed    = "Scraping failed"
)

var (
	// ErrValidation is returned when the file or email is missing. No
	// request is made.
	ErrValidation = eris.New("file and email are required")

	// ErrJobInFlight is returned when a job is already uploading or scraping.
	ErrJobInFlight = eris.New("a job is already in progress")

	// ErrJobFailed is returned by Wait when the job ended in the error state.
	ErrJobFailed = eris.New("scrape job failed")

	// ErrClosed is returned once the client has been closed.
	ErrClosed = eris.New("job client closed")
)

// Observer receives a snapshot after every state or message change.
// Calls are serialized and arrive in transition order. An observer must not
// call back into the Client.
type Observer func(model.Snapshot)

// Option configures a Client.
type Option func(*Client)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the logger. Defaults to the global zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithObserver registers fn to be told about every change.
func WithObserver(fn Observer) Option {
	return func(c *Client) {
		if fn != nil {
			c.observers = append(c.observers, fn)
		}
	}
}

// Client owns the state of at most one scrape job at a time.
type Client struct {
	api       scrapeapi.Client
	interval  time.Duration
	log       *zap.Logger
	observers []Observer
	obsMu     sync.Mutex

	// base bounds every poller; Close cancels it.
	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	snap     model.Snapshot
	gen      uint64 // bumped for every new job
	seq      uint64 // last issued poll sequence number
	applied  uint64 // sequence number of the last applied status
	poller   *Poller
	terminal chan struct{}
	closed   bool
	closedCh chan struct{}
}

// New creates an idle Client backed by api.
func New(api scrapeapi.Client, opts ...Option) *Client {
	base, cancel := context.WithCancel(context.Background())
	c := &Client{
		api:      api,
		interval: DefaultInterval,
		base:     base,
		cancel:   cancel,
		snap:     model.Snapshot{State: model.JobStateIdle, UpdatedAt: time.Now().UTC()},
		closedCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) logger() *zap.Logger {
	if c.log != nil {
		return c.log
	}
	return zap.L()
}

// Snapshot returns the current state.
func (c *Client) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// SelectFile returns the client to idle and clears any previous message,
// as happens when a new file is picked.
func (c *Client) SelectFile() error {
	c.mu.Lock()
	if c.snap.State.Busy() {
		c.mu.Unlock()
		return ErrJobInFlight
	}
	c.snap = model.Snapshot{State: model.JobStateIdle, UpdatedAt: time.Now().UTC()}
	c.unlockAndNotify()
	return nil
}

// Submit uploads the payload and, once the backend hands out a job id,
// starts polling. It returns after the upload request; use Wait to block
// until the job finishes. Polling is bound to the client, not to ctx.
func (c *Client) Submit(ctx context.Context, p upload.Payload) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.snap.State.Busy() {
		c.mu.Unlock()
		return ErrJobInFlight
	}
	if err := p.Validate(); err != nil {
		c.snap.Message = MsgValidation
		c.snap.UpdatedAt = time.Now().UTC()
		c.unlockAndNotify()
		return eris.Wrap(ErrValidation, "jobclient: submit")
	}

	c.gen++
	gen := c.gen
	c.terminal = make(chan struct{})
	c.snap = model.Snapshot{
		State:     model.JobStateUploading,
		Message:   MsgUploading,
		UpdatedAt: time.Now().UTC(),
	}
	c.unlockAndNotify()

	log := c.logger().With(zap.String("file", p.Filename))
	log.Info("submitting scrape job")

	resp, err := c.api.Submit(ctx, scrapeapi.SubmitRequest{
		Filename: p.Filename,
		File:     p.File,
		Email:    p.Email,
	})
	if err != nil {
		msg := scrapeapi.ErrorMessage(err)
		if msg == "" {
			msg = MsgSubmitFailed
		}
		log.Error("submit failed", zap.Error(err))
		c.finish(gen, model.JobStateError, msg)
		return eris.Wrap(err, "jobclient: submit")
	}

	log.Info("scrape job accepted", zap.String("job_id", resp.JobID))
	return c.beginScraping(gen, resp.JobID)
}

// Track adopts a job submitted elsewhere and polls it until it finishes.
func (c *Client) Track(jobID string) error {
	if jobID == "" {
		return eris.New("jobclient: job id is required")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.snap.State.Busy() {
		c.mu.Unlock()
		return ErrJobInFlight
	}
	c.gen++
	gen := c.gen
	c.terminal = make(chan struct{})
	c.enterScrapingLocked(jobID)
	c.unlockAndNotify()

	c.startPolling(gen)
	return nil
}

// beginScraping enters the scraping state for job gen and starts the poller
// after observers have seen the transition.
func (c *Client) beginScraping(gen uint64, jobID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if gen != c.gen {
		c.mu.Unlock()
		return eris.New("jobclient: job superseded")
	}
	c.enterScrapingLocked(jobID)
	c.unlockAndNotify()

	c.startPolling(gen)
	return nil
}

// enterScrapingLocked moves to scraping for jobID. c.mu must be held.
func (c *Client) enterScrapingLocked(jobID string) {
	c.applied = c.seq
	c.snap = model.Snapshot{
		State:     model.JobStateScraping,
		JobID:     jobID,
		Message:   MsgScraping,
		UpdatedAt: time.Now().UTC(),
	}
}

// startPolling starts the poller for job gen unless the job already moved on.
func (c *Client) startPolling(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen || c.snap.State != model.JobStateScraping {
		return
	}
	c.poller = startPoller(c.base, c.interval, func(ctx context.Context) bool {
		return c.pollJob(ctx, gen)
	})
}

// Poll performs one status request for the current job. It reports whether
// the job is in a terminal state afterwards. Transport failures leave the
// state untouched.
func (c *Client) Poll(ctx context.Context) bool {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	return c.pollJob(ctx, gen)
}

func (c *Client) pollJob(ctx context.Context, gen uint64) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return true
	}
	if c.snap.State != model.JobStateScraping {
		terminal := c.snap.State.Terminal()
		c.mu.Unlock()
		return terminal
	}
	jobID := c.snap.JobID
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	log := c.logger().With(zap.String("job_id", jobID))

	resp, err := c.api.GetStatus(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Warn("status poll failed, retrying on next tick", zap.Error(err))
		return false
	}

	c.mu.Lock()
	if gen != c.gen || c.snap.State != model.JobStateScraping {
		c.mu.Unlock()
		return true
	}
	if seq < c.applied {
		c.mu.Unlock()
		log.Debug("discarding stale status", zap.Uint64("seq", seq))
		return false
	}
	c.applied = seq

	c.snap.Progress = model.Progress{Current: resp.Progress.Current, Total: resp.Progress.Total}
	c.snap.Message = resp.Message
	c.snap.UpdatedAt = time.Now().UTC()

	var done chan struct{}
	terminal := false
	switch {
	case resp.Completed():
		c.snap.State = model.JobStateSuccess
		c.snap.Message = MsgCompleted
		terminal = true
	case resp.Failed():
		c.snap.State = model.JobStateError
		if c.snap.Message == "" {
			c.snap.Message = MsgJobFailed
		}
		terminal = true
	}
	if terminal {
		done = c.endLocked()
	}
	snap := c.unlockAndNotify()
	if done != nil {
		close(done)
	}

	if terminal {
		log.Info("scrape job finished",
			zap.String("state", string(snap.State)),
			zap.String("message", snap.Message),
		)
	} else {
		log.Debug("scrape job progress",
			zap.String("status", resp.Status),
			zap.Int("current", snap.Progress.Current),
			zap.Int("total", snap.Progress.Total),
		)
	}
	return terminal
}

// finish moves job gen to a terminal state with msg.
func (c *Client) finish(gen uint64, state model.JobState, msg string) {
	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}
	c.snap.State = state
	c.snap.Message = msg
	c.snap.UpdatedAt = time.Now().UTC()
	done := c.endLocked()
	c.unlockAndNotify()
	if done != nil {
		close(done)
	}
}

// endLocked releases the poller and detaches the waiter channel, which the
// caller closes once observers have seen the terminal state. c.mu must be
// held.
func (c *Client) endLocked() chan struct{} {
	if c.poller != nil {
		c.poller.Stop()
		c.poller = nil
	}
	done := c.terminal
	c.terminal = nil
	return done
}

// Wait blocks until the current job reaches a terminal state, ctx is done,
// or the client is closed. A job that ended in error yields ErrJobFailed.
func (c *Client) Wait(ctx context.Context) (model.Snapshot, error) {
	c.mu.Lock()
	ch := c.terminal
	snap := c.snap
	c.mu.Unlock()

	if ch == nil {
		return snap, resultErr(snap)
	}

	select {
	case <-ch:
	case <-ctx.Done():
		return c.Snapshot(), eris.Wrap(ctx.Err(), "jobclient: wait")
	case <-c.closedCh:
		return c.Snapshot(), ErrClosed
	}

	snap = c.Snapshot()
	return snap, resultErr(snap)
}

func resultErr(snap model.Snapshot) error {
	switch snap.State {
	case model.JobStateError:
		return eris.Wrap(ErrJobFailed, snap.Message)
	case model.JobStateSuccess:
		return nil
	default:
		return eris.Errorf("jobclient: no job running (state %s)", snap.State)
	}
}

// Close tears the client down: the poller is cancelled and Close waits for
// the loop to exit. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.closedCh)
	p := c.poller
	c.poller = nil
	c.mu.Unlock()

	c.cancel()
	if p != nil {
		p.Stop()
		<-p.Done()
	}
}

// unlockAndNotify releases c.mu and hands the current snapshot to the
// observers. obsMu is taken before c.mu is released so notifications keep
// the order of the transitions that produced them.
func (c *Client) unlockAndNotify() model.Snapshot {
	snap := c.snap
	c.obsMu.Lock()
	c.mu.Unlock()
	defer c.obsMu.Unlock()

	for _, fn := range c.observers {
		fn(snap)
	}
	return snap
}
