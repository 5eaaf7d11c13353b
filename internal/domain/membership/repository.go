// internal/domain/membership/repository.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

// ErrMembershipNotFound is returned when a customer has no membership record
var ErrMembershipNotFound = errors.New("membership not found")

// Repository is the membership data source
type Repository interface {
	FindByCustomerID(ctx context.Context, customerID string) (*Membership, error)
	FindByID(ctx context.Context, id string) (*Membership, error)
	Save(ctx context.Context, m *Membership) error
	ListExpiring(ctx context.Context, before time.Time) ([]Membership, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// GormRepository stores memberships in postgres
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new gorm backed repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// FindByCustomerID returns the customer's most recent membership
func (r *GormRepository) FindByCustomerID(ctx context.Context, customerID string) (*Membership, error) {
	var m Membership
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("expiration_date DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load membership for customer %s: %w", customerID, err)
	}
	return &m, nil
}

// FindByID returns a membership by id
func (r *GormRepository) FindByID(ctx context.Context, id string) (*Membership, error) {
	var m Membership
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load membership %s: %w", id, err)
	}
	return &m, nil
}

// Save inserts or updates a membership
func (r *GormRepository) Save(ctx context.Context, m *Membership) error {
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("failed to save membership %s: %w", m.ID, err)
	}
	return nil
}

// ListExpiring returns active memberships whose expiration date is before the cutoff
func (r *GormRepository) ListExpiring(ctx context.Context, before time.Time) ([]Membership, error) {
	var out []Membership
	err := r.db.WithContext(ctx).
		Where("status = ? AND expiration_date < ?", StatusActive, before).
		Order("expiration_date ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring memberships: %w", err)
	}
	return out, nil
}

// CountByStatus returns the number of customers per status of their most
// recent membership. Superseded rows of returning customers are not counted.
func (r *GormRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	var rows []struct {
		Status Status
		Count  int64
	}
	latest := r.db.Model(&Membership{}).
		Select("DISTINCT ON (customer_id) customer_id, status").
		Order("customer_id, expiration_date DESC")
	err := r.db.WithContext(ctx).
		Table("(?) AS latest", latest).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count memberships: %w", err)
	}

	counts := make(map[Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// MemoryRepository keeps memberships in process memory. It backs tests and
// local tooling; it is not shared across server instances.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Membership
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository(seed ...Membership) *MemoryRepository {
	r := &MemoryRepository{items: make(map[string]Membership)}
	for _, m := range seed {
		r.items[m.ID] = m
	}
	return r
}

func (r *MemoryRepository) FindByCustomerID(_ context.Context, customerID string) (*Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *Membership
	for _, m := range r.items {
		if m.CustomerID != customerID {
			continue
		}
		if latest == nil || m.ExpirationDate.After(latest.ExpirationDate) {
			found := m
			latest = &found
		}
	}
	if latest == nil {
		return nil, ErrMembershipNotFound
	}
	return latest, nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.items[id]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	return &m, nil
}

func (r *MemoryRepository) Save(_ context.Context, m *Membership) error {
	if m.ID == "" {
		return fmt.Errorf("membership id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	r.items[m.ID] = *m
	return nil
}

func (r *MemoryRepository) ListExpiring(_ context.Context, before time.Time) ([]Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Membership
	for _, m := range r.items {
		if m.Status == StatusActive && m.ExpirationDate.Before(before) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpirationDate.Before(out[j].ExpirationDate)
	})
	return out, nil
}

func (r *MemoryRepository) CountByStatus(_ context.Context) (map[Status]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := make(map[string]Membership)
	for _, m := range r.items {
		if cur, ok := latest[m.CustomerID]; !ok || m.ExpirationDate.After(cur.ExpirationDate) {
			latest[m.CustomerID] = m
		}
	}

	counts := make(map[Status]int64)
	for _, m := range latest {
		counts[m.Status]++
	}
	return counts, nil
}
