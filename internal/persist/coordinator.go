package persist

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"cardboard/internal/model"
)

const DefaultDebounce = 500 * time.Millisecond

// SnapshotFunc returns a consistent copy of the current cards.
type SnapshotFunc func() []model.Card

// Coordinator turns bursts of local changes into debounced writes. At most one
// write runs at a time; changes that arrive during a write schedule a
// follow-up once it resolves.
type Coordinator struct {
	pageID   string
	backend  Backend
	beacon   Beacon
	snapshot SnapshotFunc
	debounce time.Duration
	logger   *slog.Logger
	now      func() time.Time

	// writeMu serializes backend writes between the timer path and Flush.
	writeMu sync.Mutex

	mu        sync.Mutex
	timer     *time.Timer
	pending   bool
	running   bool
	inflight  int // writes started and not yet finished, timer and Flush alike
	closed    bool
	baseline  map[string]model.Card
	lastStamp time.Time
	status    Status
	lastErr   error
	onStatus  func(Status, error)
}

type Options struct {
	PageID   string
	Backend  Backend
	Beacon   Beacon
	Snapshot SnapshotFunc
	Debounce time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

func New(opts Options) *Coordinator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Coordinator{
		pageID:   strings.TrimSpace(opts.PageID),
		backend:  opts.Backend,
		beacon:   opts.Beacon,
		snapshot: opts.Snapshot,
		debounce: debounce,
		logger:   logger.With("component", "persist", "page", strings.TrimSpace(opts.PageID)),
		now:      now,
		baseline: map[string]model.Card{},
		status:   StatusSaved,
	}
}

// SetBaseline records cards as already persisted, e.g. right after a load.
func (c *Coordinator) SetBaseline(cards []model.Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseline = make(map[string]model.Card, len(cards))
	for _, card := range cards {
		c.baseline[card.ID] = card.Clone()
		if card.UpdatedAt.After(c.lastStamp) {
			c.lastStamp = card.UpdatedAt
		}
	}
}

// OnStatus registers a callback for status changes. It runs outside the
// coordinator's lock, possibly on a background goroutine.
func (c *Coordinator) OnStatus(fn func(Status, error)) {
	c.mu.Lock()
	c.onStatus = fn
	c.mu.Unlock()
}

func (c *Coordinator) Status() (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.lastErr
}

// setStatusLocked updates the status and returns a callback to run after
// unlocking, or nil when nothing changed.
func (c *Coordinator) setStatusLocked(st Status, err error) func() {
	if c.status == st && err == nil && c.lastErr == nil {
		return nil
	}
	c.status = st
	c.lastErr = err
	fn := c.onStatus
	if fn == nil {
		return nil
	}
	return func() { fn(st, err) }
}

func run(fn func()) {
	if fn != nil {
		fn()
	}
}

// Notify (re)starts the debounce timer. Timers are reset, never layered.
func (c *Coordinator) Notify() {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending = true
	var cb func()
	if c.inflight == 0 {
		cb = c.setStatusLocked(StatusPending, nil)
	}
	if c.timer == nil {
		c.timer = time.AfterFunc(c.debounce, c.onTimer)
	} else {
		c.timer.Reset(c.debounce)
	}
	c.mu.Unlock()
	run(cb)
}

func (c *Coordinator) onTimer() {
	c.mu.Lock()
	if c.closed || !c.pending {
		c.mu.Unlock()
		return
	}
	if c.running {
		// The in-flight write reschedules on completion.
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.running = true
	c.inflight++
	cb := c.setStatusLocked(StatusSaving, nil)
	c.mu.Unlock()
	run(cb)

	err := c.write(context.Background())

	c.mu.Lock()
	c.running = false
	cb = c.finishLocked(err)
	if c.pending && c.timer != nil && !c.closed {
		c.timer.Reset(c.debounce)
	}
	c.mu.Unlock()
	run(cb)
}

// finishLocked settles the status after one write. While another write is
// still queued on writeMu the status stays saving.
func (c *Coordinator) finishLocked(err error) func() {
	c.inflight--
	switch {
	case err != nil:
		return c.setStatusLocked(StatusUnsaved, err)
	case c.inflight > 0:
		return c.setStatusLocked(StatusSaving, nil)
	case c.pending:
		return c.setStatusLocked(StatusPending, nil)
	default:
		return c.setStatusLocked(StatusSaved, nil)
	}
}

// Flush writes the current state synchronously, waiting for any in-flight
// write first.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.pending = false
	c.inflight++
	cb := c.setStatusLocked(StatusSaving, nil)
	c.mu.Unlock()
	run(cb)

	err := c.write(ctx)

	c.mu.Lock()
	cb = c.finishLocked(err)
	c.mu.Unlock()
	run(cb)
	return err
}

// FlushOnUnload hands the full current state to the beacon without waiting
// on the backend or on an in-flight write.
func (c *Coordinator) FlushOnUnload() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()

	p := c.payload(true)
	if p.Empty() {
		return
	}
	if c.beacon == nil {
		c.logger.Warn("unload flush dropped", "action", "beacon_missing", "cards", len(p.Cards))
		return
	}
	c.beacon.Send(p)
	c.logger.Debug("unload flush sent", "action", "beacon", "cards", len(p.Cards), "deleted", len(p.Deleted))
}

// Close stops the timer. Pending changes are not written; call Flush first.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Payload builds what a flush would send right now.
func (c *Coordinator) Payload() Payload { return c.payload(false) }

// payload diffs the snapshot against the baseline. full sends every card, not
// just the changed ones. Every card sent carries one stamp that is strictly
// later than any stamp sent before.
func (c *Coordinator) payload(full bool) Payload {
	var cur []model.Card
	if c.snapshot != nil {
		cur = c.snapshot()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := Payload{PageID: c.pageID}
	live := make(map[string]bool, len(cur))
	for _, card := range cur {
		live[card.ID] = true
		if !full {
			if prev, ok := c.baseline[card.ID]; ok && sameCard(prev, card) {
				continue
			}
		}
		p.Cards = append(p.Cards, card.Clone())
	}
	for id := range c.baseline {
		if !live[id] {
			p.Deleted = append(p.Deleted, id)
		}
	}
	sort.Strings(p.Deleted)
	if p.Empty() {
		return p
	}

	stamp := c.now()
	if !stamp.After(c.lastStamp) {
		stamp = c.lastStamp.Add(time.Millisecond)
	}
	c.lastStamp = stamp
	p.Stamp = stamp
	for i := range p.Cards {
		p.Cards[i].UpdatedAt = stamp
	}
	return p
}

// sameCard compares everything but the write stamp.
func sameCard(a, b model.Card) bool {
	a.UpdatedAt = b.UpdatedAt
	return reflect.DeepEqual(a, b)
}

func (c *Coordinator) write(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.backend == nil {
		return nil
	}
	p := c.payload(false)
	if p.Empty() {
		return nil
	}
	start := time.Now()

	if len(p.Cards) > 0 {
		if err := c.backend.UpsertCards(ctx, c.pageID, p.Cards); err != nil {
			c.logger.Warn("write failed", "action", "upsert", "cards", len(p.Cards), "err", err)
			return WriteError{PageID: c.pageID, Op: "upsert", Err: err}
		}
		c.mu.Lock()
		for _, card := range p.Cards {
			c.baseline[card.ID] = card
		}
		c.mu.Unlock()
	}
	for _, id := range p.Deleted {
		if err := c.backend.DeleteCard(ctx, c.pageID, id); err != nil {
			c.logger.Warn("write failed", "action", "delete", "card", id, "err", err)
			return WriteError{PageID: c.pageID, Op: "delete", Err: err}
		}
		c.mu.Lock()
		delete(c.baseline, id)
		c.mu.Unlock()
	}
	c.logger.Debug("write ok", "action", "write", "cards", len(p.Cards), "deleted", len(p.Deleted), "elapsed", time.Since(start))
	return nil
}
