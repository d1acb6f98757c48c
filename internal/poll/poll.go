// Package poll fetches batches of blasts around the loaded window and merges
// them into it.
//
// Fetching is safe to run off the UI goroutine: it only sees the boundary
// ids captured in a Request. Apply mutates the window and the view and must
// run on the goroutine that renders them.
package poll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/glabrego/conch/internal/blast"
	"github.com/glabrego/conch/internal/feed"
)

const (
	DefaultPageSize     = 42
	DefaultFetchTimeout = 10 * time.Second
	DefaultOlderEvery   = 500 * time.Millisecond
)

// Viewer is the part of the view state the merge policy drives.
type Viewer interface {
	Update(w *feed.Window)
	AtTop() bool
	StickToTop() bool
	JumpToTop()
}

// Request captures the window boundaries for one fetch.
type Request struct {
	HeadID    int64
	HasHead   bool
	TailID    int64
	WantOlder bool
}

// RequestFor builds the request for w. Older blasts are only requested when
// wantOlder is set and something is loaded.
func RequestFor(w *feed.Window, wantOlder bool) Request {
	headID, hasHead := w.HeadID()
	tailID, _ := w.TailID()
	return Request{
		HeadID:    headID,
		HasHead:   hasHead,
		TailID:    tailID,
		WantOlder: wantOlder && hasHead,
	}
}

// Result holds what one fetch produced. A nil batch with a nil error means
// there was nothing new; a non-nil error means the batch is unavailable this
// tick.
type Result struct {
	Request  Request
	Newer    []blast.Blast
	Older    []blast.Blast
	NewerErr error
	OlderErr error
	// OlderAsked is set when a before query actually ran.
	OlderAsked bool
	Duration   time.Duration
}

// Err joins the errors of both queries.
func (r Result) Err() error {
	return errors.Join(r.NewerErr, r.OlderErr)
}

// OlderExhausted reports whether the before query ran cleanly and found
// nothing, meaning the oldest blast is loaded.
func (r Result) OlderExhausted() bool {
	return r.OlderAsked && r.OlderErr == nil && len(r.Older) == 0
}

type Options struct {
	PageSize     int
	FetchTimeout time.Duration
	// OlderEvery is the minimum spacing between before queries.
	OlderEvery time.Duration
	Logger     *log.Logger
}

// Coordinator runs fetches against a source and applies their results.
type Coordinator struct {
	source   blast.Source
	pageSize int
	timeout  time.Duration
	older    *rate.Limiter
	logger   *log.Logger
}

func NewCoordinator(source blast.Source, opts Options) *Coordinator {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	limit := rate.Every(DefaultOlderEvery)
	if opts.OlderEvery > 0 {
		limit = rate.Every(opts.OlderEvery)
	} else if opts.OlderEvery < 0 {
		limit = rate.Inf
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Coordinator{
		source:   source,
		pageSize: opts.PageSize,
		timeout:  opts.FetchTimeout,
		older:    rate.NewLimiter(limit, 1),
		logger:   opts.Logger.WithPrefix("poll"),
	}
}

func (c *Coordinator) PageSize() int {
	return c.pageSize
}

// Fetch runs the newer query and, when asked for and allowed by the
// throttle, the older query concurrently. Errors are logged and returned on
// the result; nothing is retried.
func (c *Coordinator) Fetch(ctx context.Context, req Request) Result {
	start := time.Now()
	res := Result{Request: req}

	var g errgroup.Group
	g.Go(func() error {
		res.Newer, res.NewerErr = c.fetchNewer(ctx, req)
		return nil
	})
	if req.WantOlder && c.older.Allow() {
		res.OlderAsked = true
		g.Go(func() error {
			res.Older, res.OlderErr = c.fetchOlder(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	res.Duration = time.Since(start)
	if res.NewerErr != nil {
		c.logger.Warn("newer fetch failed", "head", req.HeadID, "err", res.NewerErr)
	}
	if res.OlderErr != nil {
		c.logger.Warn("older fetch failed", "tail", req.TailID, "err", res.OlderErr)
	}
	c.logger.Debug("fetched",
		"newer", len(res.Newer),
		"older", len(res.Older),
		"older_asked", res.OlderAsked,
		"took", res.Duration,
	)
	return res
}

func (c *Coordinator) fetchNewer(ctx context.Context, req Request) ([]blast.Blast, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if !req.HasHead {
		out, err := c.source.Recent(ctx, c.pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch recent blasts: %w", err)
		}
		return out, nil
	}
	out, err := c.source.After(ctx, req.HeadID, c.pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch blasts after %d: %w", req.HeadID, err)
	}
	return out, nil
}

func (c *Coordinator) fetchOlder(ctx context.Context, req Request) ([]blast.Blast, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.source.Before(ctx, req.TailID, c.pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch blasts before %d: %w", req.TailID, err)
	}
	return out, nil
}

// Apply merges res into w and refreshes v. If the selection was on the
// newest blast before the merge and v sticks to the top, the selection
// follows the new head; otherwise it stays on the same blast. It returns
// the merged window.
func (c *Coordinator) Apply(v Viewer, w *feed.Window, res Result) *feed.Window {
	atTop := v.AtTop()

	if headID, ok := w.HeadID(); ok {
		w = feed.PrependNewer(w, c.bound(res.Newer, headID, math.MaxInt64, "newer"))
	} else {
		w = feed.PrependNewer(w, c.bound(res.Newer, math.MinInt64, math.MaxInt64, "newer"))
	}
	if tailID, ok := w.TailID(); ok {
		w = feed.AppendOlder(w, c.bound(res.Older, math.MinInt64, tailID, "older"))
	}

	v.Update(w)
	if atTop && v.StickToTop() {
		v.JumpToTop()
	}
	return w
}

// bound keeps the strictly decreasing run of batch ids inside (lo, hi). A
// well-behaved source never trips it; a misbehaving one cannot duplicate or
// misorder loaded blasts.
func (c *Coordinator) bound(batch []blast.Blast, lo, hi int64, which string) []blast.Blast {
	if len(batch) == 0 {
		return nil
	}
	out := make([]blast.Blast, 0, len(batch))
	last := hi
	for _, b := range batch {
		if b.ID <= lo || b.ID >= last {
			continue
		}
		out = append(out, b)
		last = b.ID
	}
	if dropped := len(batch) - len(out); dropped > 0 {
		c.logger.Warn("dropped out-of-order blasts", "batch", which, "dropped", dropped)
	}
	return out
}
