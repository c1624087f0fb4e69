package reminder

import (
	"context"
	"fmt"
)

var ErrEntityNotFound = fmt.Errorf("reminder entity not found")

// Session is a store handle scoped to a single scan of one domain. The ledger
// it exposes is the domain's configured strategy, bound to the same handle.
type Session interface {
	ListReminderCandidates(ctx context.Context) ([]*Entity, error)
	Ledger() Ledger
	Close() error
}

// Store opens scan sessions and applies the one entity mutation the engine
// cares about: toggling reminders, which clears embedded markers on re-enable.
type Store interface {
	OpenSession(ctx context.Context, domain Domain) (Session, error)
	SetReminderEnabled(ctx context.Context, domain Domain, entityID string, enabled bool) error
}
