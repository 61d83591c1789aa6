// Package feed drives the vertically paged verse feed: it decides when to
// fetch the next batch, appends what arrives, and reports which verse
// became visible.
//
// The controller is not safe for concurrent use. It is owned by the UI
// event loop; only Request.Run may be called from another goroutine.
package feed

import (
	"context"

	"quran-go/internal/quran"
)

// State is the controller's fetch state.
type State int

const (
	// Idle is the state before anything has been loaded.
	Idle State = iota
	// FetchingBatch means a batch is in flight.
	FetchingBatch
	// IdleWithItems means the last batch has completed.
	IdleWithItems
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingBatch:
		return "fetchingBatch"
	case IdleWithItems:
		return "idleWithItems"
	default:
		return "unknown"
	}
}

// Options sizes the batches. Zero values take the defaults.
type Options struct {
	// InitialBatch is fetched on Mount (default 10).
	InitialBatch int
	// BatchSize is fetched when the reader nears the end (default 5).
	BatchSize int
	// Threshold is how close to the end, in items, triggers a fetch
	// (default 2).
	Threshold int
}

func (o Options) withDefaults() Options {
	if o.InitialBatch <= 0 {
		o.InitialBatch = 10
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 5
	}
	if o.Threshold <= 0 {
		o.Threshold = 2
	}
	return o
}

// Request is a batch the controller wants fetched.
type Request struct {
	source Source
	size   int
}

// Size is the number of verses asked for.
func (r Request) Size() int {
	return r.size
}

// Run fetches the batch. It may run on any goroutine.
func (r Request) Run(ctx context.Context) Result {
	verses, done := r.source.Fetch(ctx, r.size)
	return Result{Verses: verses, Done: done, Requested: r.size}
}

// Result is a completed batch, handed back through Complete.
type Result struct {
	Verses    []quran.Verse
	Done      bool
	Requested int
}

// Visit describes the effect of moving to an index.
type Visit struct {
	// Changed is false when the index did not move.
	Changed bool
	// Index is the clamped index now visible.
	Index int
	// Verse is the verse that became visible, if any.
	Verse *quran.Verse
	// Fetch is set when a new batch should start.
	Fetch *Request
}

// Controller is the feed state machine.
type Controller struct {
	source    Source
	opts      Options
	verses    []quran.Verse
	index     int
	state     State
	exhausted bool
	batches   int
	// shown is the last index reported as visible, -1 before any.
	shown int
}

// NewController creates a controller over source.
func NewController(source Source, opts Options) *Controller {
	return &Controller{source: source, opts: opts.withDefaults(), shown: -1}
}

// State returns the fetch state.
func (c *Controller) State() State {
	return c.state
}

// Loading reports whether a batch is in flight.
func (c *Controller) Loading() bool {
	return c.state == FetchingBatch
}

// Exhausted reports whether the source has nothing more.
func (c *Controller) Exhausted() bool {
	return c.exhausted
}

// Verses returns the loaded verses in order.
func (c *Controller) Verses() []quran.Verse {
	return c.verses
}

// Len returns the number of loaded verses.
func (c *Controller) Len() int {
	return len(c.verses)
}

// Index returns the visible index.
func (c *Controller) Index() int {
	return c.index
}

// Current returns the visible verse, if any.
func (c *Controller) Current() (quran.Verse, bool) {
	if c.index < 0 || c.index >= len(c.verses) {
		return quran.Verse{}, false
	}
	return c.verses[c.index], true
}

// Batches returns how many batches have been started.
func (c *Controller) Batches() int {
	return c.batches
}

// StartAt sets the index to show once verses arrive. It has no effect
// after the first verse has been shown.
func (c *Controller) StartAt(i int) {
	if c.shown < 0 && i >= 0 {
		c.index = i
	}
}

// Mount starts the initial batch. It returns nil if a batch is already in
// flight or the source is exhausted.
func (c *Controller) Mount() *Request {
	return c.begin(c.opts.InitialBatch)
}

// Retry starts a regular-sized batch on demand, e.g. after the initial
// batch came back empty.
func (c *Controller) Retry() *Request {
	return c.begin(c.opts.BatchSize)
}

func (c *Controller) begin(n int) *Request {
	if c.state == FetchingBatch || c.exhausted {
		return nil
	}
	c.state = FetchingBatch
	c.batches++
	return &Request{source: c.source, size: n}
}

// Complete appends a finished batch, whatever its size, and leaves the
// fetching state. If this batch made the first verse visible, that verse
// is returned so its view can be recorded.
func (c *Controller) Complete(r Result) *quran.Verse {
	c.verses = append(c.verses, r.Verses...)
	if r.Done {
		c.exhausted = true
	}
	c.state = IdleWithItems

	if len(c.verses) == 0 {
		return nil
	}
	c.index = min(c.index, len(c.verses)-1)
	if c.shown != c.index {
		c.shown = c.index
		verse := c.verses[c.index]
		return &verse
	}
	return nil
}

// Visit moves to index i. The index is clamped to the loaded range. When
// the index changes, the newly visible verse is reported, and a batch is
// requested if i is within Threshold items of the end, no batch is in
// flight and the source is not exhausted.
func (c *Controller) Visit(i int) Visit {
	if len(c.verses) == 0 {
		return Visit{Index: c.index}
	}
	i = max(0, min(i, len(c.verses)-1))
	if i == c.index && i == c.shown {
		return Visit{Index: i}
	}

	c.index = i
	c.shown = i
	verse := c.verses[i]
	v := Visit{Changed: true, Index: i, Verse: &verse}
	if i >= len(c.verses)-c.opts.Threshold {
		v.Fetch = c.begin(c.opts.BatchSize)
	}
	return v
}

// Refill starts a regular batch when the visible index is already within
// Threshold items of the end, as happens after a short batch. It does
// nothing when the list is empty, so a source that keeps failing is only
// retried on demand.
func (c *Controller) Refill() *Request {
	if len(c.verses) == 0 || c.index < len(c.verses)-c.opts.Threshold {
		return nil
	}
	return c.begin(c.opts.BatchSize)
}

// Next moves one item forward.
func (c *Controller) Next() Visit {
	return c.Visit(c.index + 1)
}

// Prev moves one item back.
func (c *Controller) Prev() Visit {
	return c.Visit(c.index - 1)
}
