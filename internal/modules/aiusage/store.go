package aiusage

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger persists per-user token balances.
type Ledger interface {
	// UseToken deducts one token, resetting the balance first when the month rolled over.
	// Returns ErrInsufficientTokens when nothing was deducted (quota exhausted or user absent).
	UseToken(ctx context.Context, uid string) error
	// EnsureUser creates the balance row for uid if it does not exist yet.
	EnsureUser(ctx context.Context, uid string) error
}

// PGStore handles ai_usage persistence in Postgres.
type PGStore struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPGStore returns a PGStore backed by the given connection pool.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db, now: time.Now}
}

// UseToken atomically checks the monthly quota and deducts one token.
// It resets the counter to DefaultTokens when last_reset_month is behind the current month.
func (s *PGStore) UseToken(ctx context.Context, uid string) error {
	month := s.now().Format(monthLayout)

	tag, err := s.db.Exec(ctx, `
		UPDATE ai_usage SET
			tokens_remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE tokens_remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR tokens_remaining > 0)
	`, month, DefaultTokens, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientTokens
	}
	return nil
}

// EnsureUser inserts a new ai_usage row for uid with the default token allowance.
// If the row already exists the insert is silently skipped (ON CONFLICT DO NOTHING).
func (s *PGStore) EnsureUser(ctx context.Context, uid string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_usage (uid, tokens_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, DefaultTokens, s.now().Format(monthLayout))
	return err
}

// Remaining reports the stored balance for uid.
func (s *PGStore) Remaining(ctx context.Context, uid string) (int, error) {
	var remaining int
	err := s.db.QueryRow(ctx, `SELECT tokens_remaining FROM ai_usage WHERE uid = $1`, uid).Scan(&remaining)
	return remaining, err
}

type balance struct {
	remaining int
	month     string
}

// MemoryStore keeps balances in process memory. Used when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]*balance
	now      func() time.Time
}

// NewMemoryStore returns an empty in-memory ledger. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{balances: make(map[string]*balance), now: now}
}

func (s *MemoryStore) UseToken(_ context.Context, uid string) error {
	month := s.now().Format(monthLayout)

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[uid]
	if !ok {
		return ErrInsufficientTokens
	}
	if b.month < month {
		b.remaining = DefaultTokens
		b.month = month
	}
	if b.remaining <= 0 {
		return ErrInsufficientTokens
	}
	b.remaining--
	return nil
}

func (s *MemoryStore) EnsureUser(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[uid]; !ok {
		s.balances[uid] = &balance{remaining: DefaultTokens, month: s.now().Format(monthLayout)}
	}
	return nil
}

// Remaining reports the balance for uid; unknown users have the full allowance.
func (s *MemoryStore) Remaining(_ context.Context, uid string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[uid]
	if !ok || b.month < s.now().Format(monthLayout) {
		return DefaultTokens, nil
	}
	return b.remaining, nil
}

// set seeds a balance directly; tests only.
func (s *MemoryStore) set(uid string, remaining int, month string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[uid] = &balance{remaining: remaining, month: month}
}
