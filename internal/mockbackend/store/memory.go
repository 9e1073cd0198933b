// Package store keeps the mock backend's tenants, users, usage counters and
// invoices in memory.
package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"billdash/internal/models"
	"billdash/internal/sentinel"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = sentinel.ErrNotFound

// UserRecord is a user with its credential material.
type UserRecord struct {
	models.User
	PasswordHash []byte
	CreatedAt    time.Time
}

// InMemory is safe for concurrent use. Usage counters are checked and
// incremented under one lock so concurrent calls never overshoot a quota.
type InMemory struct {
	mu       sync.RWMutex
	tenants  map[string]models.Tenant
	users    map[string]UserRecord // keyed by normalized email
	usage    map[string]map[string]models.UsageRecord
	invoices map[string][]models.Invoice
}

func NewInMemory() *InMemory {
	return &InMemory{
		tenants:  make(map[string]models.Tenant),
		users:    make(map[string]UserRecord),
		usage:    make(map[string]map[string]models.UsageRecord),
		invoices: make(map[string][]models.Invoice),
	}
}

// CreateTenantWithUser stores a tenant together with its first user. The
// email must be unused; nothing is written otherwise.
func (s *InMemory) CreateTenantWithUser(_ context.Context, tenant models.Tenant, user UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Email]; exists {
		return fmt.Errorf("email %s: %w", user.Email, sentinel.ErrAlreadyUsed)
	}
	s.tenants[tenant.ID] = tenant
	s.users[user.Email] = user
	return nil
}

// CreateUser adds a user to an existing tenant.
func (s *InMemory) CreateUser(_ context.Context, user UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[user.TenantID]; !ok {
		return fmt.Errorf("tenant %s: %w", user.TenantID, ErrNotFound)
	}
	if _, exists := s.users[user.Email]; exists {
		return fmt.Errorf("email %s: %w", user.Email, sentinel.ErrAlreadyUsed)
	}
	s.users[user.Email] = user
	return nil
}

func (s *InMemory) FindUserByEmail(_ context.Context, email string) (*UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[email]; ok {
		return &u, nil
	}
	return nil, ErrNotFound
}

func (s *InMemory) FindTenant(_ context.Context, tenantID string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[tenantID]; ok {
		return &t, nil
	}
	return nil, ErrNotFound
}

// Usage returns the call count for a tenant's month, zero when none recorded.
func (s *InMemory) Usage(_ context.Context, tenantID, month string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[tenantID][month].APICallCount, nil
}

// IncrementUsageWithin records one call unless the month already reached
// limit. It returns the count after the attempt and whether it was recorded.
func (s *InMemory) IncrementUsageWithin(_ context.Context, tenantID, month string, limit int64, at time.Time) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	months, ok := s.usage[tenantID]
	if !ok {
		months = make(map[string]models.UsageRecord)
		s.usage[tenantID] = months
	}
	rec := months[month]
	if rec.APICallCount >= limit {
		return rec.APICallCount, false, nil
	}
	rec.Month = month
	rec.APICallCount++
	rec.LastUpdated = &at
	months[month] = rec
	return rec.APICallCount, true, nil
}

// SetUsage overwrites a month's counter. Used for seeding.
func (s *InMemory) SetUsage(_ context.Context, tenantID, month string, calls int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	months, ok := s.usage[tenantID]
	if !ok {
		months = make(map[string]models.UsageRecord)
		s.usage[tenantID] = months
	}
	months[month] = models.UsageRecord{Month: month, APICallCount: calls, LastUpdated: &at}
	return nil
}

// UsageHistory lists a tenant's months, newest first.
func (s *InMemory) UsageHistory(_ context.Context, tenantID string) ([]models.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.UsageRecord, 0, len(s.usage[tenantID]))
	for _, rec := range s.usage[tenantID] {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b models.UsageRecord) int { return cmp.Compare(b.Month, a.Month) })
	return out, nil
}

// CreateInvoiceIfAbsent stores the invoice unless the tenant already has one
// for the same month.
func (s *InMemory) CreateInvoiceIfAbsent(_ context.Context, tenantID string, inv models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invoices[tenantID] {
		if existing.Month == inv.Month {
			return fmt.Errorf("invoice for %s: %w", inv.Month, sentinel.ErrAlreadyUsed)
		}
	}
	s.invoices[tenantID] = append(s.invoices[tenantID], inv)
	return nil
}

// ListInvoices returns a tenant's invoices, newest month first.
func (s *InMemory) ListInvoices(_ context.Context, tenantID string) ([]models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.invoices[tenantID])
	slices.SortFunc(out, func(a, b models.Invoice) int { return cmp.Compare(b.Month, a.Month) })
	if out == nil {
		out = []models.Invoice{}
	}
	return out, nil
}

// Ping satisfies the readiness check; memory is always available.
func (s *InMemory) Ping(context.Context) error {
	return nil
}
