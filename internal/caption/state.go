package caption

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum wait before a failed fragment becomes
// eligible for re-request.
const DefaultCooldown = 30 * time.Second

// Status is a fragment's position in the translation lifecycle.
type Status int

const (
	StatusPending Status = iota + 1
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the lifecycle record for one fragment key.
type State struct {
	Status      Status    `json:"status"`
	Text        string    `json:"text,omitempty"`          // translated text (Success)
	Err         string    `json:"error,omitempty"`         // failure reason (Failed)
	NextRetryAt time.Time `json:"next_retry_at,omitzero"`  // earliest re-request time (Failed)
	UpdatedAt   time.Time `json:"updated_at"`
}

// Notifier receives the key of every accepted success or failure transition
// so a rendering collaborator can re-query state and update its display.
type Notifier func(key Key)

// Store maps fragment keys to lifecycle states and owns the FIFO queue of
// raw texts awaiting just-in-time dispatch. It is the single source of truth
// for whether a fragment has been requested, succeeded, or recently failed.
//
// Resolutions are accepted only against a Pending state: a result racing a
// Reset or a newer request for the same key is dropped rather than
// overwriting newer information. That pending-only rule is the sole
// synchronization between the JIT and bulk translation paths.
type Store struct {
	mu     sync.Mutex
	states map[Key]State
	queue  []string

	notify Notifier
	now    func() time.Time
}

// NewStore creates an empty store. notify may be nil.
func NewStore(notify Notifier) *Store {
	return &Store{
		states: make(map[Key]State),
		notify: notify,
		now:    time.Now,
	}
}

// Enqueue registers rawText as Pending without queueing it for the JIT path.
// Returns false without mutation when the text is empty, already pending or
// translated, or failed with its cooldown still in effect.
func (s *Store) Enqueue(rawText string) bool {
	key := Normalize(rawText)
	if key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markPendingLocked(key)
}

// EnqueueJIT registers rawText as Pending and appends it to the JIT queue.
// Same dedup rules as Enqueue.
func (s *Store) EnqueueJIT(rawText string) bool {
	key := Normalize(rawText)
	if key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.markPendingLocked(key) {
		return false
	}
	s.queue = append(s.queue, rawText)
	return true
}

func (s *Store) markPendingLocked(key Key) bool {
	if st, ok := s.states[key]; ok {
		switch st.Status {
		case StatusPending, StatusSuccess:
			return false
		case StatusFailed:
			if s.now().Before(st.NextRetryAt) {
				return false
			}
		}
	}
	s.states[key] = State{Status: StatusPending, UpdatedAt: s.now()}
	return true
}

// ResolveSuccess records a translation for rawText. The translated text is
// normalized first; if nothing remains it is treated as a failure with reason
// "empty translation response". Returns false when the key is not Pending
// (stale result after a reset or language switch) and leaves the store
// unchanged.
func (s *Store) ResolveSuccess(rawText, translated string) bool {
	translated = normalizeTranslation(translated)
	if translated == "" {
		return s.ResolveFailure(rawText, "empty translation response", DefaultCooldown)
	}

	key := Normalize(rawText)
	s.mu.Lock()
	if st, ok := s.states[key]; !ok || st.Status != StatusPending {
		s.mu.Unlock()
		return false
	}
	s.states[key] = State{Status: StatusSuccess, Text: translated, UpdatedAt: s.now()}
	s.mu.Unlock()

	s.emit(key)
	return true
}

// ResolveFailure records a failed attempt for rawText with the given cooldown
// (clamped at zero). Same staleness rule as ResolveSuccess.
func (s *Store) ResolveFailure(rawText, reason string, cooldown time.Duration) bool {
	if cooldown < 0 {
		cooldown = 0
	}

	key := Normalize(rawText)
	s.mu.Lock()
	if st, ok := s.states[key]; !ok || st.Status != StatusPending {
		s.mu.Unlock()
		return false
	}
	now := s.now()
	s.states[key] = State{
		Status:      StatusFailed,
		Err:         reason,
		NextRetryAt: now.Add(cooldown),
		UpdatedAt:   now,
	}
	s.mu.Unlock()

	s.emit(key)
	return true
}

// Get returns the current state for rawText.
func (s *Store) Get(rawText string) (State, bool) {
	key := Normalize(rawText)
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[key]
	return st, ok
}

// Count returns the number of tracked fragment keys.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// QueueLen returns the number of raw texts awaiting JIT dispatch.
func (s *Store) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// DequeueBatch pops up to max raw texts from the head of the JIT queue.
func (s *Store) DequeueBatch(max int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	n := min(max, len(s.queue))
	batch := make([]string, n)
	copy(batch, s.queue[:n])
	s.queue = s.queue[n:]
	return batch
}

// Reset clears all states and the JIT queue atomically. Used on target
// language change, explicit cache clear, or navigation to new content. No
// notification is emitted; callers re-render directly. Resolutions already in
// flight will find their keys no longer Pending and be discarded.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[Key]State)
	s.queue = nil
}

// emit runs outside the store lock so a notifier may re-query state.
func (s *Store) emit(key Key) {
	if s.notify != nil {
		s.notify(key)
	}
}
