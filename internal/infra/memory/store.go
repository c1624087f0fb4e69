// Package memory is an in-process reminder store. It backs dry runs
// (STORE_DRIVER=memory) and exercises both ledger strategies in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"reminder_service/internal/domain/reminder"
)

// Store keeps entities, delivery records and embedded markers in maps.
type Store struct {
	mu         sync.Mutex
	entities   map[reminder.Domain]map[string]*reminder.Entity
	markers    map[reminder.Domain]map[string]reminder.Markers
	records    []reminder.DeliveryRecord
	strategies map[reminder.Domain]reminder.LedgerStrategy

	// ListErr, when set, is returned by ListReminderCandidates.
	ListErr error
}

func NewStore(strategies map[reminder.Domain]reminder.LedgerStrategy) *Store {
	if strategies == nil {
		strategies = map[reminder.Domain]reminder.LedgerStrategy{}
	}
	return &Store{
		entities:   make(map[reminder.Domain]map[string]*reminder.Entity),
		markers:    make(map[reminder.Domain]map[string]reminder.Markers),
		strategies: strategies,
	}
}

// Put inserts or replaces an entity. Enabling a previously disabled entity
// clears its markers, same as SetReminderEnabled.
func (s *Store) Put(e reminder.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.entities[e.Domain]
	if byID == nil {
		byID = make(map[string]*reminder.Entity)
		s.entities[e.Domain] = byID
	}
	if prev, ok := byID[e.ID]; ok && !prev.ReminderEnabled && e.ReminderEnabled {
		delete(s.markers[e.Domain], e.ID)
	}
	cp := e
	cp.Thresholds = append([]int(nil), e.Thresholds...)
	byID[e.ID] = &cp
}

// Records returns a copy of every delivery record written through the table strategy.
func (s *Store) Records() []reminder.DeliveryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reminder.DeliveryRecord(nil), s.records...)
}

// MarkersFor returns the embedded markers of an entity.
func (s *Store) MarkersFor(domain reminder.Domain, id string) reminder.Markers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[domain][id]
}

func (s *Store) SetReminderEnabled(_ context.Context, domain reminder.Domain, entityID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[domain][entityID]
	if !ok {
		return fmt.Errorf("%s %s: %w", domain, entityID, reminder.ErrEntityNotFound)
	}
	if !e.ReminderEnabled && enabled {
		delete(s.markers[domain], entityID)
	}
	e.ReminderEnabled = enabled
	return nil
}

func (s *Store) OpenSession(_ context.Context, domain reminder.Domain) (reminder.Session, error) {
	strategy := s.strategies[domain]
	if strategy == "" {
		strategy = reminder.LedgerTable
	}
	return &session{store: s, domain: domain, strategy: strategy}, nil
}

type session struct {
	store    *Store
	domain   reminder.Domain
	strategy reminder.LedgerStrategy
	closed   bool
}

func (ss *session) ListReminderCandidates(_ context.Context) ([]*reminder.Entity, error) {
	s := ss.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if ss.closed {
		return nil, fmt.Errorf("memory session closed")
	}
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]*reminder.Entity, 0, len(s.entities[ss.domain]))
	for _, e := range s.entities[ss.domain] {
		if !e.Eligible() {
			continue
		}
		cp := *e
		cp.Thresholds = append([]int(nil), e.Thresholds...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (ss *session) Ledger() reminder.Ledger {
	if ss.strategy == reminder.LedgerMarker {
		return markerLedger{ss.store}
	}
	return tableLedger{ss.store}
}

func (ss *session) Close() error {
	ss.store.mu.Lock()
	defer ss.store.mu.Unlock()
	ss.closed = true
	return nil
}

type tableLedger struct{ s *Store }

func (l tableLedger) AlreadySent(_ context.Context, key reminder.DeliveryKey) (bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, r := range l.s.records {
		if r.Success && sameKey(r.Key, key) {
			return true, nil
		}
	}
	return false, nil
}

func (l tableLedger) RecordAttempt(_ context.Context, rec reminder.DeliveryRecord) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if rec.Success {
		for _, r := range l.s.records {
			if r.Success && sameKey(r.Key, rec.Key) {
				return nil
			}
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	l.s.records = append(l.s.records, rec)
	return nil
}

type markerLedger struct{ s *Store }

func (l markerLedger) AlreadySent(_ context.Context, key reminder.DeliveryKey) (bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.s.markers[key.Domain][key.EntityID].Has(key.Occurrence, key.Threshold), nil
}

func (l markerLedger) RecordAttempt(_ context.Context, rec reminder.DeliveryRecord) error {
	if !rec.Success {
		return nil
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	byID := l.s.markers[rec.Key.Domain]
	if byID == nil {
		byID = make(map[string]reminder.Markers)
		l.s.markers[rec.Key.Domain] = byID
	}
	byID[rec.Key.EntityID] = byID[rec.Key.EntityID].With(rec.Key.Occurrence, rec.Key.Threshold)
	return nil
}

func sameKey(a, b reminder.DeliveryKey) bool {
	return a.Domain == b.Domain && a.EntityID == b.EntityID && a.Threshold == b.Threshold &&
		a.Occurrence.Format("2006-01-02") == b.Occurrence.Format("2006-01-02")
}
