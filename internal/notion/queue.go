package notion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"watchlog/internal/logging"
)

const (
	defaultMinInterval       = 350 * time.Millisecond
	defaultMaxRetries        = 5
	defaultRetryBuffer       = 250 * time.Millisecond
	defaultRetryAfterSeconds = 2
)

// ErrQueueClosed is returned by Do after Close.
var ErrQueueClosed = errors.New("notion: request queue closed")

// RequestFunc performs one HTTP attempt. It is called again for every retry,
// so it must build a fresh request each time.
type RequestFunc func(ctx context.Context) (*http.Response, error)

// Clock abstracts time for the queue.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// QueueConfig controls request pacing and 429 handling. Zero fields take the
// defaults: 350ms spacing, 5 retries, 250ms buffer, 2s fallback Retry-After.
type QueueConfig struct {
	MinInterval       time.Duration
	MaxRetries        int
	RetryBuffer       time.Duration
	DefaultRetryAfter time.Duration
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.MinInterval <= 0 {
		c.MinInterval = defaultMinInterval
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryBuffer < 0 {
		c.RetryBuffer = 0
	} else if c.RetryBuffer == 0 {
		c.RetryBuffer = defaultRetryBuffer
	}
	if c.DefaultRetryAfter <= 0 {
		c.DefaultRetryAfter = defaultRetryAfterSeconds * time.Second
	}
	return c
}

// QueueOption customizes a Queue.
type QueueOption func(*Queue)

// WithClock replaces the wall clock, letting tests observe waits without
// sleeping.
func WithClock(clock Clock) QueueOption {
	return func(q *Queue) {
		if clock != nil {
			q.clock = clock
		}
	}
}

// WithQueueLogger sets the logger used for retry warnings.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) {
		q.logger = logging.NewComponentLogger(logger, "notion-queue")
	}
}

type queuedRequest struct {
	ctx    context.Context
	fn     RequestFunc
	result chan queuedResult
}

type queuedResult struct {
	resp *http.Response
	err  error
}

// Queue runs requests one at a time in submission order. A single worker
// goroutine owns lastStart, so no lock guards it.
type Queue struct {
	cfg    QueueConfig
	clock  Clock
	logger *slog.Logger

	requests  chan *queuedRequest
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	lastStart time.Time
}

// NewQueue constructs a queue. The worker starts on first use.
func NewQueue(cfg QueueConfig, opts ...QueueOption) *Queue {
	q := &Queue{
		cfg:      cfg.withDefaults(),
		clock:    systemClock{},
		logger:   logging.NewNop(),
		requests: make(chan *queuedRequest),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Do submits fn and waits for its final response. A 429 is retried in place
// up to MaxRetries times; when retries run out the last 429 response is
// returned unread with a nil error, so callers must check the status.
// Transport errors are returned to the caller and do not stop the queue.
func (q *Queue) Do(ctx context.Context, fn RequestFunc) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	q.startOnce.Do(func() { go q.run() })

	req := &queuedRequest{ctx: ctx, fn: fn, result: make(chan queuedResult, 1)}
	select {
	case q.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, ErrQueueClosed
	}
	res := <-req.result
	return res.resp, res.err
}

// Close stops the worker. A request already running finishes; later ones
// fail with ErrQueueClosed.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

func (q *Queue) closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

func (q *Queue) run() {
	for {
		select {
		case <-q.done:
			return
		case req := <-q.requests:
			if q.closed() {
				req.result <- queuedResult{err: ErrQueueClosed}
				continue
			}
			resp, err := q.execute(req.ctx, req.fn)
			req.result <- queuedResult{resp: resp, err: err}
		}
	}
}

func (q *Queue) execute(ctx context.Context, fn RequestFunc) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := q.waitTurn(ctx); err != nil {
			return nil, err
		}
		q.lastStart = q.clock.Now()
		resp, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= q.cfg.MaxRetries {
			return resp, nil
		}

		delay := q.retryAfter(resp.Header.Get("Retry-After")) + q.cfg.RetryBuffer
		drainAndClose(resp.Body)
		logging.WarnWithContext(logging.WithContext(ctx, q.logger), "notion rate limited; retrying",
			"notion_rate_limited",
			logging.Int("attempt", attempt+1),
			logging.Int("max_retries", q.cfg.MaxRetries),
			logging.Duration("delay", delay),
			logging.String(logging.FieldErrorHint, "reduce request volume or raise queue.min_interval_ms"),
			logging.String(logging.FieldImpact, "request delayed"),
		)
		if err := q.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// waitTurn blocks until MinInterval has passed since the previous start.
func (q *Queue) waitTurn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.lastStart.IsZero() {
		return nil
	}
	wait := q.cfg.MinInterval - q.clock.Now().Sub(q.lastStart)
	if wait <= 0 {
		return nil
	}
	return q.sleep(ctx, wait)
}

func (q *Queue) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.clock.After(d):
		return nil
	}
}

func (q *Queue) retryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return q.cfg.DefaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
