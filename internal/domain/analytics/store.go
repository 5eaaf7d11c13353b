// internal/domain/analytics/store.go
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateEvent is returned when an event with the same id is already stored
var ErrDuplicateEvent = errors.New("analytics event already recorded")

// Store is the append-only event log
type Store interface {
	Append(ctx context.Context, e *Event) error
	// Query returns matching events ordered by timestamp
	Query(ctx context.Context, f Filter) ([]Event, error)
}

// GormStore keeps events in postgres
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new postgres event store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Append(ctx context.Context, e *Event) error {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(e)
	if result.Error != nil {
		return fmt.Errorf("failed to append analytics event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, e.ID)
	}
	return nil
}

func (s *GormStore) Query(ctx context.Context, f Filter) ([]Event, error) {
	query := s.db.WithContext(ctx).Model(&Event{})

	if f.CustomerID != "" {
		query = query.Where("customer_id = ?", f.CustomerID)
	}
	if len(f.Types) > 0 {
		query = query.Where("type IN ?", f.Types)
	}
	if !f.Since.IsZero() {
		query = query.Where("timestamp >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		query = query.Where("timestamp < ?", f.Until)
	}

	var events []Event
	if err := query.Order("timestamp ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to query analytics events: %w", err)
	}
	return events, nil
}

// MemoryStore keeps events in process. It is not shared between instances.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
	ids    map[string]bool
}

// NewMemoryStore creates an empty in-memory event store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]bool)}
}

func (s *MemoryStore) Append(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ids[e.ID] {
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, e.ID)
	}
	s.ids[e.ID] = true

	// keep timestamp order even when a caller supplies an older timestamp
	i := len(s.events)
	for i > 0 && s.events[i-1].Timestamp.After(e.Timestamp) {
		i--
	}
	s.events = append(s.events, Event{})
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = copyEvent(*e)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, f Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, 0)
	for i := range s.events {
		if f.Matches(&s.events[i]) {
			out = append(out, copyEvent(s.events[i]))
		}
	}
	return out, nil
}

// Len returns the number of stored events
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func copyEvent(e Event) Event {
	if e.Data != nil {
		data := make(Data, len(e.Data))
		for k, v := range e.Data {
			data[k] = v
		}
		e.Data = data
	}
	return e
}
