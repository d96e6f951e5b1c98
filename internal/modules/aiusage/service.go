package aiusage

import (
	"context"
	"errors"
)

// Service orchestrates AI token-usage logic.
type Service struct {
	ledger Ledger
}

// NewService creates a Service backed by the given Ledger.
func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger}
}

// UseToken deducts one token from the user's monthly allowance.
// If the user row does not exist yet it is initialised and the token is immediately consumed.
// Returns ErrInsufficientTokens when the quota for the current month is exhausted.
func (s *Service) UseToken(ctx context.Context, uid string) error {
	err := s.ledger.UseToken(ctx, uid)
	if !errors.Is(err, ErrInsufficientTokens) {
		return err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.ledger.EnsureUser(ctx, uid); initErr != nil {
		return initErr
	}
	return s.ledger.UseToken(ctx, uid)
}

// Charge consumes a token for the uid carried by ctx. Anonymous calls are free.
func (s *Service) Charge(ctx context.Context) error {
	if s == nil {
		return nil
	}
	uid, ok := UIDFrom(ctx)
	if !ok {
		return nil
	}
	return s.UseToken(ctx, uid)
}
