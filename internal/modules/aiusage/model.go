package aiusage

import (
	"context"
	"errors"
)

// ErrInsufficientTokens is returned when a user has no tokens remaining for the current month.
var ErrInsufficientTokens = errors.New("insufficient tokens")

// DefaultTokens is the number of tokens granted per month.
const DefaultTokens = 100

const monthLayout = "2006-01"

type uidKey struct{}

// WithUID tags ctx with the user whose quota pays for LLM calls made under it.
func WithUID(ctx context.Context, uid string) context.Context {
	if uid == "" {
		return ctx
	}
	return context.WithValue(ctx, uidKey{}, uid)
}

// UIDFrom returns the uid set by WithUID.
func UIDFrom(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(uidKey{}).(string)
	return uid, ok && uid != ""
}
