package draft

import (
	"sync"
	"time"

	"wishlist-go/internal/wishlist"
)

// EventKind distinguishes the mutations a Listener is told about.
type EventKind int

const (
	// EventMutated follows UpdateField and SetDraft.
	EventMutated EventKind = iota + 1
	// EventCleared follows ClearDraft.
	EventCleared
)

func (k EventKind) String() string {
	switch k {
	case EventMutated:
		return "mutated"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners after a store mutation. State is the
// snapshot taken immediately after the mutation.
type Event struct {
	Kind  EventKind
	State State
}

// Listener receives store events. It runs on the mutating goroutine after the
// store lock is released, so it may call back into the store.
type Listener func(Event)

// State is a snapshot of the in-memory draft. Timestamp is nil when there is
// no draft.
type State struct {
	FormData   FormData
	Timestamp  *time.Time
	IsRestored bool
}

// Store holds the current draft form. Safe for concurrent use.
type Store struct {
	clock wishlist.Clock

	mu        sync.Mutex
	formData  FormData
	timestamp *time.Time
	restored  bool

	nextID    int
	listeners []listenerEntry
}

type listenerEntry struct {
	id int
	fn Listener
}

// NewStore creates an empty store.
func NewStore(clock wishlist.Clock) *Store {
	return &Store{
		clock:    clock,
		formData: NewFormData(),
	}
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UpdateField applies one field assignment and stamps the draft with the
// current time. No validation is performed.
func (s *Store) UpdateField(u FieldUpdate) {
	if u.apply == nil {
		return
	}
	s.mu.Lock()
	u.apply(&s.formData)
	s.touchLocked()
	ev := Event{Kind: EventMutated, State: s.snapshotLocked()}
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, ev)
}

// SetDraft replaces the whole form and stamps the draft with the current time.
func (s *Store) SetDraft(data FormData) {
	s.mu.Lock()
	s.formData = data.Clone()
	s.touchLocked()
	ev := Event{Kind: EventMutated, State: s.snapshotLocked()}
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, ev)
}

// ClearDraft resets the form to its defaults and drops the timestamp and the
// restored flag.
func (s *Store) ClearDraft() {
	s.mu.Lock()
	s.formData = NewFormData()
	s.timestamp = nil
	s.restored = false
	ev := Event{Kind: EventCleared, State: s.snapshotLocked()}
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, ev)
}

// SetDraftRestored sets the restored flag. It neither touches the timestamp
// nor notifies listeners.
func (s *Store) SetDraftRestored(restored bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restored = restored
}

// HasDraft reports whether the form holds anything worth resuming.
func (s *Store) HasDraft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formData.HasContent()
}

// Subscribe registers fn for every subsequent event. Listeners are called in
// subscription order. The returned func removes the listener.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) touchLocked() {
	now := s.clock.Now()
	s.timestamp = &now
}

func (s *Store) snapshotLocked() State {
	st := State{
		FormData:   s.formData.Clone(),
		IsRestored: s.restored,
	}
	if s.timestamp != nil {
		ts := *s.timestamp
		st.Timestamp = &ts
	}
	return st
}

func (s *Store) listenersLocked() []Listener {
	out := make([]Listener, len(s.listeners))
	for i, l := range s.listeners {
		out[i] = l.fn
	}
	return out
}

func notify(listeners []Listener, ev Event) {
	for _, fn := range listeners {
		fn(ev)
	}
}
