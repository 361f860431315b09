package draft

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"wishlist-go/internal/wishlist"
)

const (
	DefaultNamespace = "wishlist"
	DefaultFormName  = "add-item"
	DefaultDebounce  = 500 * time.Millisecond
)

// Options controls where and how often drafts are written.
type Options struct {
	Namespace string
	FormName  string
	Debounce  time.Duration
	MaxAge    time.Duration
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Namespace: DefaultNamespace,
		FormName:  DefaultFormName,
		Debounce:  DefaultDebounce,
		MaxAge:    DefaultMaxAge,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Namespace == "" {
		o.Namespace = d.Namespace
	}
	if o.FormName == "" {
		o.FormName = d.FormName
	}
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.MaxAge <= 0 {
		o.MaxAge = d.MaxAge
	}
	return o
}

// Persistence mirrors a Store into durable storage for the signed-in user.
// Field edits are coalesced into one write per debounce window; clears are
// applied immediately and cancel any pending write. Storage failures are
// logged and never surface to the caller.
type Persistence struct {
	store     *Store
	storage   wishlist.Storage
	auth      wishlist.AuthContext
	clock     wishlist.Clock
	scheduler wishlist.Scheduler
	codec     *Codec
	logger    wishlist.Logger
	observer  wishlist.Observer
	opts      Options

	unsubscribe func()

	// mu serialises the pending-write state with the storage calls made on
	// its behalf, so a clear can never be followed by a stale write.
	mu          sync.Mutex
	timer       wishlist.Timer
	generation  uint64
	pendingUser string
	closed      bool
}

// NewPersistence attaches a persistence layer to store. Call Close to detach.
func NewPersistence(store *Store, storage wishlist.Storage, auth wishlist.AuthContext, clock wishlist.Clock, scheduler wishlist.Scheduler, logger wishlist.Logger, observer wishlist.Observer, opts Options) *Persistence {
	if logger == nil {
		logger = wishlist.NewNopLogger()
	}
	if observer == nil {
		observer = wishlist.NopObserver{}
	}
	opts = opts.withDefaults()

	p := &Persistence{
		store:     store,
		storage:   storage,
		auth:      auth,
		clock:     clock,
		scheduler: scheduler,
		codec:     NewCodec(opts.MaxAge),
		logger:    logger,
		observer:  observer,
		opts:      opts,
	}
	p.unsubscribe = store.Subscribe(p.handle)
	return p
}

// Key returns the storage key holding userID's draft.
func (p *Persistence) Key(userID string) string {
	return fmt.Sprintf("%s:draft:%s:%s", p.opts.Namespace, userID, p.opts.FormName)
}

// Codec returns the codec used for stored records.
func (p *Persistence) Codec() *Codec {
	return p.codec
}

func (p *Persistence) handle(ev Event) {
	switch ev.Kind {
	case EventMutated:
		p.scheduleWrite()
	case EventCleared:
		p.clear()
	}
}

func (p *Persistence) scheduleWrite() {
	userID, ok := p.auth.UserID()
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	p.stopTimerLocked()
	gen := p.generation
	p.pendingUser = userID
	p.timer = p.scheduler.AfterFunc(p.opts.Debounce, func() { p.fire(gen) })
}

func (p *Persistence) fire(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || gen != p.generation {
		return
	}
	p.timer = nil
	p.generation++
	p.writeLocked(p.pendingUser)
}

func (p *Persistence) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimerLocked()

	userID, ok := p.auth.UserID()
	if !ok {
		return
	}
	if err := p.storage.Delete(p.Key(userID)); err != nil {
		p.logger.Error("failed to clear draft", "error", err)
		return
	}
	p.observer.DraftCleared()
}

// stopTimerLocked cancels the pending write. The generation bump covers a
// timer that has already fired and is waiting on mu.
func (p *Persistence) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.generation++
}

// writeLocked stores the current draft. A store without a timestamp has been
// cleared since the write was scheduled, so nothing is written.
func (p *Persistence) writeLocked(userID string) {
	st := p.store.State()
	if st.Timestamp == nil {
		p.logger.Debug("draft cleared before save, skipping write", "user", userID)
		return
	}

	data, err := p.codec.Encode(st.FormData, *st.Timestamp)
	if err != nil {
		p.logger.Error("failed to save draft", "error", err)
		p.observer.DraftWriteDropped("encode")
		return
	}

	if err := p.storage.Set(p.Key(userID), data); err != nil {
		if errors.Is(err, wishlist.ErrQuotaExceeded) {
			p.logger.Warn("storage quota exceeded, draft not saved")
			p.observer.DraftWriteDropped("quota")
			return
		}
		p.logger.Error("failed to save draft", "error", err)
		p.observer.DraftWriteDropped("error")
		return
	}
	p.logger.Debug("draft saved", "user", userID)
	p.observer.DraftWritten()
}

// Flush performs a pending write immediately. It is a no-op when nothing is
// pending.
func (p *Persistence) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.timer == nil {
		return
	}
	userID := p.pendingUser
	p.stopTimerLocked()
	p.writeLocked(userID)
}

// Pending reports whether a debounced write is scheduled.
func (p *Persistence) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

// Close detaches from the store and drops any pending write. Call Flush first
// to keep it.
func (p *Persistence) Close() {
	p.unsubscribe()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimerLocked()
	p.closed = true
}

// LoadDraft reads userID's stored draft. Corrupted, undecryptable and expired
// records are deleted and reported as absent. Other read errors, including
// locked storage, leave the record in place. An empty userID never touches storage.
func (p *Persistence) LoadDraft(userID string) (*Record, bool) {
	if userID == "" {
		return nil, false
	}
	key := p.Key(userID)

	data, found, err := p.storage.Get(key)
	if errors.Is(err, wishlist.ErrCorrupted) {
		p.logger.Warn("failed to load draft, clearing corrupted data", "error", err)
		p.observer.DraftLoaded(wishlist.LoadOutcomeCorrupted)
		p.purge(key)
		return nil, false
	}
	if err != nil {
		p.logger.Error("failed to load draft", "error", err)
		p.observer.DraftLoaded(wishlist.LoadOutcomeAbsent)
		return nil, false
	}
	if !found {
		p.observer.DraftLoaded(wishlist.LoadOutcomeAbsent)
		return nil, false
	}

	rec, res := p.codec.Decode(data, p.clock.Now())
	switch res.Status {
	case StatusLoaded:
		p.observer.DraftLoaded(wishlist.LoadOutcomeLoaded)
		return rec, true
	case StatusCorrupted:
		p.logger.Warn("failed to load draft, clearing corrupted data", "error", res.Err)
		p.observer.DraftLoaded(wishlist.LoadOutcomeCorrupted)
		p.purge(key)
	case StatusExpired:
		p.logger.Info("draft expired, clearing from storage", "ageInDays", res.AgeDays)
		p.observer.DraftLoaded(wishlist.LoadOutcomeExpired)
		p.purge(key)
	default:
		p.observer.DraftLoaded(wishlist.LoadOutcomeAbsent)
	}
	return nil, false
}

func (p *Persistence) purge(key string) {
	if err := p.storage.Delete(key); err != nil {
		p.logger.Error("failed to remove stale draft", "error", err)
	}
}

// Rehydrate restores the signed-in user's stored draft into an empty store
// and marks it restored. It reports whether a draft was restored.
func (p *Persistence) Rehydrate() bool {
	if p.store.HasDraft() {
		return false
	}
	userID, ok := p.auth.UserID()
	if !ok {
		return false
	}
	rec, ok := p.LoadDraft(userID)
	if !ok {
		return false
	}
	p.store.SetDraft(rec.FormData)
	p.store.SetDraftRestored(true)
	return true
}
