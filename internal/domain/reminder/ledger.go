package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DeliveryKey identifies one reminder: an entity, the occurrence it is about,
// and the lead-time threshold that triggered it.
type DeliveryKey struct {
	Domain     Domain
	EntityID   string
	Occurrence time.Time
	Threshold  int
}

func (k DeliveryKey) String() string {
	return fmt.Sprintf("%s/%s@%s-%dd", k.Domain, k.EntityID, k.Occurrence.Format("2006-01-02"), k.Threshold)
}

// DeliveryRecord is an append-only ledger entry for one attempt.
// A superseded record closes a threshold that was skipped in favour of a
// nearer one: it counts as sent for dedup, but nothing was delivered for it.
type DeliveryRecord struct {
	ID          string
	Key         DeliveryKey
	SentAt      time.Time
	Success     bool
	Superseded  bool
	ErrorDetail string
}

// Ledger answers whether a reminder was already delivered and records attempts.
// Only successful attempts count as sent; a failed attempt leaves AlreadySent
// false so the next scan retries.
type Ledger interface {
	AlreadySent(ctx context.Context, key DeliveryKey) (bool, error)
	RecordAttempt(ctx context.Context, rec DeliveryRecord) error
}

// LedgerStrategy selects where dedup state lives.
type LedgerStrategy string

const (
	// LedgerTable keeps an append-only deliveries table.
	LedgerTable LedgerStrategy = "table"
	// LedgerMarker keeps the fired thresholds on the entity row, cleared on re-enable.
	LedgerMarker LedgerStrategy = "marker"
)

func ParseLedgerStrategy(s string) (LedgerStrategy, error) {
	switch l := LedgerStrategy(strings.ToLower(strings.TrimSpace(s))); l {
	case LedgerTable, LedgerMarker:
		return l, nil
	default:
		return "", fmt.Errorf("unknown ledger strategy %q", s)
	}
}

// Markers is the compact dedup state embedded on an entity: the thresholds
// already fired for one occurrence.
type Markers struct {
	Occurrence time.Time
	Thresholds []int
}

// Has reports whether threshold was fired for occurrence. Markers written for
// another occurrence do not count.
func (m Markers) Has(occurrence time.Time, threshold int) bool {
	if m.Occurrence.IsZero() || !sameDate(m.Occurrence, occurrence) {
		return false
	}
	for _, t := range m.Thresholds {
		if t == threshold {
			return true
		}
	}
	return false
}

// With returns markers including threshold for occurrence, dropping markers
// that belonged to an earlier occurrence.
func (m Markers) With(occurrence time.Time, threshold int) Markers {
	if m.Has(occurrence, threshold) {
		return m
	}
	out := Markers{Occurrence: Date(occurrence.Year(), occurrence.Month(), occurrence.Day())}
	if !m.Occurrence.IsZero() && sameDate(m.Occurrence, occurrence) {
		out.Thresholds = append(out.Thresholds, m.Thresholds...)
	}
	out.Thresholds = append(out.Thresholds, threshold)
	out.Thresholds = ParseThresholds(FormatThresholds(out.Thresholds))
	return out
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
