// README: In-memory conversation store with per-user locking and explicit expiry sweep.
package conversation

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

type entry struct {
	mu      sync.Mutex
	ctx     *UserContext
	evicted bool
}

// Store holds one UserContext per user identifier. The map lock only guards the
// id -> entry map; each entry has its own lock so turns for different users never
// contend, and Sweep never evicts a context while a turn holds it.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	now          func() time.Time
	expiry       time.Duration
	historyLimit int
	log          zerolog.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithExpiry(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.expiry = d
		}
	}
}

func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:      make(map[string]*entry),
		now:          time.Now,
		expiry:       DefaultExpiry,
		historyLimit: DefaultHistoryLimit,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close drops every context. The store must not be used afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		e.mu.Lock()
		e.evicted = true
		e.mu.Unlock()
		delete(s.entries, id)
	}
	s.log.Info().Msg("conversation store closed")
}

// Update runs fn with exclusive access to the user's context, creating it on first use.
func (s *Store) Update(userID string, fn func(tx *Tx)) {
	e := s.acquire(userID)
	defer e.mu.Unlock()
	fn(&Tx{store: s, ctx: e.ctx})
}

// acquire returns the locked entry for userID. An entry evicted between lookup and
// lock is skipped and a fresh context is created instead.
func (s *Store) acquire(userID string) *entry {
	for {
		s.mu.Lock()
		e, ok := s.entries[userID]
		if !ok {
			e = &entry{ctx: newUserContext(userID, s.now())}
			s.entries[userID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if !e.evicted {
			return e
		}
		e.mu.Unlock()
	}
}

// Get returns a snapshot of the user's context.
func (s *Store) Get(userID string) UserContext {
	var out UserContext
	s.Update(userID, func(tx *Tx) { out = tx.ctx.clone() })
	return out
}

func (s *Store) AddMessage(userID string, role Role, content string) Message {
	var msg Message
	s.Update(userID, func(tx *Tx) { msg = tx.AddMessage(role, content) })
	return msg
}

// ConversationHistory returns up to limit of the most recent messages, oldest first.
func (s *Store) ConversationHistory(userID string, limit int) []Message {
	var out []Message
	s.Update(userID, func(tx *Tx) { out = tx.History(limit) })
	return out
}

// StoreSearchResult appends result to one of the four history buckets. Unknown
// buckets are ignored.
func (s *Store) StoreSearchResult(userID, bucket string, result any) {
	s.Update(userID, func(tx *Tx) { tx.StoreSearchResult(bucket, result) })
}

func (s *Store) UpdatePreferences(userID string, prefs map[string]any) {
	s.Update(userID, func(tx *Tx) { tx.UpdatePreferences(prefs) })
}

func (s *Store) UpdateCurrentPlan(userID string, plan map[string]any) {
	s.Update(userID, func(tx *Tx) { tx.UpdateCurrentPlan(plan) })
}

func (s *Store) CurrentPlan(userID string) map[string]any {
	var out map[string]any
	s.Update(userID, func(tx *Tx) { out = tx.CurrentPlan() })
	return out
}

// Sweep removes contexts idle for longer than the expiry window and returns their ids.
func (s *Store) Sweep() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed []string
	for id, e := range s.entries {
		e.mu.Lock()
		if now.Sub(e.ctx.LastInteraction) > s.expiry {
			e.evicted = true
			delete(s.entries, id)
			removed = append(removed, id)
		}
		e.mu.Unlock()
	}
	if len(removed) > 0 {
		s.log.Info().Int("removed", len(removed)).Int("remaining", len(s.entries)).Msg("swept expired contexts")
	}
	return removed
}

// Len reports the number of live contexts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Tx is a view on one user's context, valid only inside Update.
type Tx struct {
	store *Store
	ctx   *UserContext
}

func (tx *Tx) UserID() string { return tx.ctx.UserID }

func (tx *Tx) MessageCount() int { return len(tx.ctx.Messages) }

func (tx *Tx) AddMessage(role Role, content string) Message {
	now := tx.store.now()
	msg := Message{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Role:      role,
		Content:   content,
		Timestamp: now,
	}
	tx.ctx.Messages = append(tx.ctx.Messages, msg)
	tx.touch()
	return msg
}

func (tx *Tx) History(limit int) []Message {
	if limit <= 0 {
		limit = tx.store.historyLimit
	}
	msgs := tx.ctx.Messages
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]Message(nil), msgs...)
}

func (tx *Tx) StoreSearchResult(bucket string, result any) {
	if _, ok := tx.ctx.SearchHistory[bucket]; !ok {
		return
	}
	tx.ctx.SearchHistory[bucket] = append(tx.ctx.SearchHistory[bucket], result)
	tx.touch()
}

func (tx *Tx) UpdatePreferences(prefs map[string]any) {
	for k, v := range prefs {
		tx.ctx.Preferences[k] = v
	}
	tx.touch()
}

// UpdateCurrentPlan merges plan into the draft, overwriting only the keys it carries.
func (tx *Tx) UpdateCurrentPlan(plan map[string]any) {
	for k, v := range plan {
		tx.ctx.CurrentPlan[k] = v
	}
	tx.touch()
}

func (tx *Tx) CurrentPlan() map[string]any { return copyMap(tx.ctx.CurrentPlan) }

func (tx *Tx) Preferences() map[string]any { return copyMap(tx.ctx.Preferences) }

func (tx *Tx) touch() { tx.ctx.LastInteraction = tx.store.now() }
