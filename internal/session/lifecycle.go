package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/convx/internal/services"
	"github.com/desertthunder/convx/internal/shared"
	"golang.org/x/time/rate"
)

// ControllerOpts tunes the transport lifecycle.
type ControllerOpts struct {
	SubmitTimeout  time.Duration // Max wait for POST /convert before surfacing ErrTimeout
	StallTimeout   time.Duration // No stream events for this long triggers the polling fallback
	PollRate       float64       // Status polls per second once the fallback is active
	MaxReconnects  int           // Stream reopen attempts before falling back to polling
	Backoff        time.Duration // Reconnect delay per attempt, multiplied by the attempt number
	GracePeriod    time.Duration // How long to drain the stream after a terminal event
	MaxUploadBytes int64         // Upload ceiling for input validation
	ForcePoll      bool          // Skip the event stream entirely and reconcile by polling
}

func (o *ControllerOpts) defaults() {
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = 10 * time.Minute
	}
	if o.StallTimeout <= 0 {
		o.StallTimeout = 45 * time.Second
	}
	if o.PollRate <= 0 {
		o.PollRate = 0.5
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = 2 * time.Second
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = DefaultMaxUploadBytes
	}
}

// Controller drives one conversion session: it validates input, issues the
// submission, owns the event stream handle, and merges everything into the
// session through the [Reconciler].
//
// All session mutation happens under the controller's lock in reaction to
// discrete inputs; subscribers observe immutable snapshots on Updates.
// Reset is the single authoritative cancellation point and is safe to call
// in any phase.
type Controller struct {
	converter services.Converter
	logger    *log.Logger
	opts      ControllerOpts

	mu      sync.Mutex
	rec     *Reconciler
	updates chan Session
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
}

// NewController creates a Controller around a fresh idle session.
func NewController(converter services.Converter, logger *log.Logger, opts ControllerOpts) *Controller {
	opts.defaults()
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := New(Input{})
	s.ID = shared.GenerateID()

	return &Controller{
		converter: converter,
		logger:    logger,
		opts:      opts,
		rec:       NewReconciler(s),
	}
}

// Session returns a snapshot of the current session state.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Session().Snapshot()
}

// Updates returns the channel carrying session snapshots for the active run.
// The channel closes when the run reaches a terminal phase or is reset. Only
// valid after Start.
func (c *Controller) Updates() <-chan Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

// Err returns the transport-level error that ended the last run, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runErr
}

// Start validates the input and begins a conversion run.
//
// Validation failures surface immediately as [shared.ErrValidation] with no
// transport call made. A second Start while a run is active returns an error;
// Reset first.
func (c *Controller) Start(ctx context.Context, input Input) error {
	if err := input.Validate(c.opts.MaxUploadBytes); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		select {
		case <-c.done:
		default:
			return fmt.Errorf("%w: a conversion is already in flight", shared.ErrInvalidArgument)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.updates = make(chan Session, 64)
	c.runErr = nil

	c.rec.Submit(input)
	c.publishLocked()

	go c.run(runCtx)
	return nil
}

// Reset cancels any active run, tears down the transport, discards buffered
// events, and returns the model to idle. Safe to call in any phase.
func (c *Controller) Reset() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec.Reset()
}

// Close tears down the controller. Equivalent to Reset without clearing the
// session, so terminal state stays readable.
func (c *Controller) Close() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Wait blocks until the active run finishes. Returns immediately when no run
// was started.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// run is the event loop owning the session for one conversion attempt.
func (c *Controller) run(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		if c.cancel != nil {
			c.cancel()
		}
		close(c.updates)
		close(c.done)
		c.mu.Unlock()
	}()

	submitCh := c.submit(ctx)

	var graceCh <-chan time.Time
	snapCh := make(chan services.StatusSnapshot, 4)
	polling := false

	var stream services.Stream
	reconnects := 0
	if c.opts.ForcePoll {
		polling = true
		go c.poll(ctx, snapCh)
	} else if s, err := c.converter.OpenEventStream(ctx); err != nil {
		c.logger.Warn("event stream unavailable, falling back to polling", "error", err)
		polling = true
		go c.poll(ctx, snapCh)
	} else {
		stream = s
	}
	defer func() {
		if stream != nil {
			stream.Close()
		}
	}()

	if stream != nil {
		c.apply(func(r *Reconciler) { r.StreamOpened() })
	}

	stall := time.NewTimer(c.opts.StallTimeout)
	defer stall.Stop()

	events, errs := streamChannels(stream)

	for {
		select {
		case <-ctx.Done():
			return

		case sub := <-submitCh:
			submitCh = nil
			if sub.err != nil {
				if c.Session().Phase.Terminal() {
					// the stream already settled the session; the late
					// submission error is noise
					return
				}
				c.apply(func(r *Reconciler) { r.SubmissionFailed(sub.err) })
				c.setRunErr(sub.err)
				return
			}
			c.apply(func(r *Reconciler) { r.SubmissionAccepted(sub.submission) })
			if graceCh == nil {
				graceCh = time.After(c.opts.GracePeriod)
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				if c.Session().Phase.Terminal() {
					return
				}
				// server closed the stream on a non-terminal session
				if reconnects < c.opts.MaxReconnects {
					reconnects++
					if stream != nil {
						stream.Close()
					}
					stream = c.reopen(ctx, reconnects)
					events, errs = streamChannels(stream)
					if stream == nil && !polling {
						polling = true
						go c.poll(ctx, snapCh)
					}
					continue
				}
				if !polling {
					polling = true
					go c.poll(ctx, snapCh)
				}
				continue
			}

			resetTimer(stall, c.opts.StallTimeout)
			c.apply(func(r *Reconciler) { r.ApplyEvent(ev) })

			if c.Session().Phase.Terminal() && graceCh == nil {
				if submitCh == nil {
					graceCh = time.After(c.opts.GracePeriod)
				}
				// otherwise keep running until the submission response lands
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if c.Session().Phase.Terminal() {
				// terminal sessions treat channel errors as the closing signal
				return
			}
			c.logger.Warn("event stream error", "error", err)
			c.apply(func(r *Reconciler) {
				r.Session().AppendLog(LogEntry{Level: "WARN", Message: err.Error()})
			})

		case <-stall.C:
			if c.Session().Phase.Terminal() {
				return
			}
			c.logger.Warn("no stream events within stall timeout, falling back to polling",
				"timeout", c.opts.StallTimeout)
			if !polling {
				polling = true
				go c.poll(ctx, snapCh)
			}
			resetTimer(stall, c.opts.StallTimeout)

		case snap := <-snapCh:
			c.apply(func(r *Reconciler) { r.ApplySnapshot(snap) })
			if c.Session().Phase.Terminal() && submitCh == nil && graceCh == nil {
				graceCh = time.After(c.opts.GracePeriod)
			}

		case <-graceCh:
			return
		}
	}
}

// submitResult pairs the POST /convert response with its error.
type submitResult struct {
	submission *services.Submission
	err        error
}

// submit issues POST /convert in the background under the submit timeout.
func (c *Controller) submit(ctx context.Context) <-chan submitResult {
	ch := make(chan submitResult, 1)
	input := c.Session().Input

	go func() {
		submitCtx, cancel := context.WithTimeout(ctx, c.opts.SubmitTimeout)
		defer cancel()

		sub, err := c.converter.SubmitConversion(submitCtx, input.conversionInput())
		if err != nil && errors.Is(submitCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: no submission response within %s", shared.ErrTimeout, c.opts.SubmitTimeout)
		}
		ch <- submitResult{submission: sub, err: err}
	}()

	return ch
}

// reopen attempts one stream reconnect with linear backoff.
func (c *Controller) reopen(ctx context.Context, attempt int) services.Stream {
	backoff := time.Duration(attempt) * c.opts.Backoff
	c.logger.Info("reopening event stream", "attempt", attempt, "backoff", backoff)

	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return nil
	}

	stream, err := c.converter.OpenEventStream(ctx)
	if err != nil {
		c.logger.Warn("stream reconnect failed", "attempt", attempt, "error", err)
		return nil
	}
	return stream
}

// poll fetches status snapshots, rate limited, until the run ends.
//
// The conversion id may still be empty while the submission is in flight;
// the status endpoint resolves to the backend's single in-flight conversion
// in that case.
func (c *Controller) poll(ctx context.Context, out chan<- services.StatusSnapshot) {
	limiter := rate.NewLimiter(rate.Limit(c.opts.PollRate), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		snapshot := c.Session()
		if snapshot.Phase.Terminal() {
			return
		}

		snap, err := c.converter.PollStatus(ctx, snapshot.ConversionID)
		if err != nil {
			c.logger.Warn("status poll failed", "error", err)
			continue
		}

		select {
		case out <- *snap:
		case <-ctx.Done():
			return
		}
	}
}

// apply runs a reconciler mutation under the lock and publishes a snapshot.
func (c *Controller) apply(fn func(*Reconciler)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.rec)
	c.publishLocked()
}

// publishLocked sends a snapshot without blocking; slow consumers miss
// intermediate states but always observe the terminal one via Session().
func (c *Controller) publishLocked() {
	if c.updates == nil {
		return
	}
	select {
	case c.updates <- c.rec.Session().Snapshot():
	default:
	}
}

func (c *Controller) setRunErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runErr = err
}

// streamChannels unwraps a possibly nil stream into selectable channels.
func streamChannels(stream services.Stream) (<-chan services.Event, <-chan error) {
	if stream == nil {
		return nil, nil
	}
	return stream.Events(), stream.Errs()
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
