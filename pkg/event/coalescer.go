package event

import (
	"time"

	"github.com/hillu/laurel/pkg/record"
)

// Config bounds the Coalescer's buffering, per §4.3.
type Config struct {
	MaxRecords  int           // default 1024
	MaxBytes    int           // default 1 MiB
	MaxAge      time.Duration // default 5s
	MaxLookback time.Duration // implementation-defined, order-of-seconds
}

// DefaultConfig matches the defaults named in §4.3.
func DefaultConfig() Config {
	return Config{
		MaxRecords:  1024,
		MaxBytes:    1 << 20,
		MaxAge:      5 * time.Second,
		MaxLookback: 10 * time.Second,
	}
}

type pending struct {
	event    *Event
	arrived  time.Time
	seq      uint64 // arrival order, for the FIFO
}

// Coalescer buffers records by EventId and flushes completed events to
// onFlush, in the order feed/tick/flush decide (§4.3). It is not safe for
// concurrent use from more than one goroutine — the processing loop is the
// only caller, per the single-threaded core (§5).
type Coalescer struct {
	cfg     Config
	onFlush func(*Event)

	partial map[ID]*pending
	nextSeq uint64

	frontier   ID // newest id ever fed
	haveFrontier bool
	maxEmitted   ID // newest id ever flushed
	haveEmitted  bool

	// Counters of the coalescer's own activity, exported as plain fields.
	Flushed     uint64
	Truncated   uint64
	Late        uint64
	DuplicatesSuppressed uint64
}

// New creates a Coalescer. onFlush is called synchronously from Feed/Tick/
// Close whenever an event completes; it must not retain the *Event's
// Records slices past enrichment without copying, since the arena-style
// per-event lifetime assumption (§9) means the next event may reuse
// underlying buffers in a future implementation.
func New(cfg Config, onFlush func(*Event)) *Coalescer {
	return &Coalescer{
		cfg:     cfg,
		onFlush: onFlush,
		partial: make(map[ID]*pending),
	}
}

// Feed appends rec to the partial event for id, creating it if necessary,
// then applies the flush triggers in §4.3's order: cap overflow (immediate,
// truncated), EOE (immediate), and lookback-based reaping of older buffered
// events once a sufficiently newer id has been observed.
func (c *Coalescer) Feed(id ID, rec *record.Record, now time.Time) {
	p, ok := c.partial[id]
	if !ok {
		p = &pending{event: &Event{ID: id}, arrived: now, seq: c.nextSeq}
		c.nextSeq++
		c.partial[id] = p
	}

	if !p.event.Append(rec) {
		c.DuplicatesSuppressed++
	}

	if !c.haveFrontier || c.frontier.Less(id) {
		c.frontier = id
		c.haveFrontier = true
	}

	if p.event.Size() > c.cfg.MaxBytes || len(p.event.Records) > c.cfg.MaxRecords {
		p.event.Truncated = true
		c.flush(id)
		return
	}

	if rec.Type == "EOE" {
		c.flush(id)
		return
	}

	c.reapStale(now)
}

// reapStale flushes any buffered event whose id trails the current frontier
// by more than MaxLookback — the "record with a different id arrives from a
// source that emits monotonically" trigger from §2/§4.3.
func (c *Coalescer) reapStale(now time.Time) {
	if !c.haveFrontier || c.cfg.MaxLookback <= 0 {
		return
	}
	for id, p := range c.partial {
		if id == c.frontier {
			continue
		}
		if secondsBehind(id, c.frontier) > c.cfg.MaxLookback.Seconds() {
			_ = p
			c.flush(id)
		}
	}
}

// secondsBehind approximates how far behind id is relative to newer, in
// seconds, using the EventId's own second-granularity clock.
func secondsBehind(id, newer ID) float64 {
	if !id.Less(newer) {
		return 0
	}
	return float64(newer.Seconds) - float64(id.Seconds)
}

// Tick flushes every partial event older than MaxAge relative to now (§4.3).
func (c *Coalescer) Tick(now time.Time) {
	for id, p := range c.partial {
		if now.Sub(p.arrived) >= c.cfg.MaxAge {
			c.flush(id)
		}
	}
}

// Close flushes every remaining partial event, in arrival order, for a
// clean shutdown drain (§5).
func (c *Coalescer) Close() {
	ids := make([]ID, 0, len(c.partial))
	for id := range c.partial {
		ids = append(ids, id)
	}
	// Stable arrival order: sort by the recorded seq.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && c.partial[ids[j-1]].seq > c.partial[ids[j]].seq; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	for _, id := range ids {
		c.flush(id)
	}
}

func (c *Coalescer) flush(id ID) {
	p, ok := c.partial[id]
	if !ok {
		return
	}
	delete(c.partial, id)

	ev := p.event
	if c.haveEmitted && ev.ID.Less(c.maxEmitted) {
		ev.Late = true
		c.Late++
	} else {
		c.maxEmitted = ev.ID
		c.haveEmitted = true
	}
	if ev.Truncated {
		c.Truncated++
	}
	c.Flushed++

	if c.onFlush != nil {
		c.onFlush(ev)
	}
}

// Pending returns the number of events currently buffered, for the status
// report and for tests.
func (c *Coalescer) Pending() int { return len(c.partial) }
