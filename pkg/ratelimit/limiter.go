package ratelimit

import (
	"context"
	"time"

	"github.com/relaykit/go-submitq/pkg/submission"
)

// At most maxPerWindow delivered submissions per (identity, form type) within
// the trailing window. This is a client-side curb against accidental
// duplicates, not a security boundary; the endpoint keeps its own limiter.
const (
	maxPerWindow = 3
	window       = time.Hour
)

// Ledger is the slice of the repository the limiter reads. It never writes.
type Ledger interface {
	CountRecent(ctx context.Context, identityKey string, formType submission.FormType, since time.Time) (int, error)
}

type Limiter struct {
	ledger Ledger
}

func New(ledger Ledger) *Limiter {
	return &Limiter{ledger: ledger}
}

// CanSubmit reports whether the identity is still under the window cap for
// the given form type.
func (l *Limiter) CanSubmit(ctx context.Context, identityKey string, formType submission.FormType) (bool, error) {
	count, err := l.ledger.CountRecent(ctx, identityKey, formType, time.Now().Add(-window))
	if err != nil {
		return false, err
	}
	return count < maxPerWindow, nil
}
