package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"billdash/internal/models"
	"billdash/internal/sentinel"
	"billdash/internal/session/store"
)

// Manager reads and writes the session triple through a Store. A nil store
// models an environment without persistent storage: writes are dropped and
// reads come back empty. Safe for concurrent use if the store is.
type Manager struct {
	store  store.Store
	logger *slog.Logger
}

// NewManager creates a session manager over st.
func NewManager(st store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{store: st, logger: logger}
}

// Save persists token, user and tenant as three independent writes, in that
// order. The first failing write is returned; earlier writes are kept.
func (m *Manager) Save(ctx context.Context, token string, user *models.User, tenant *models.Tenant) error {
	if m.store == nil {
		return nil
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	tenantJSON, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("encode tenant: %w", err)
	}

	if err := m.store.Set(ctx, store.KeyToken, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := m.store.Set(ctx, store.KeyUser, string(userJSON)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if err := m.store.Set(ctx, store.KeyTenant, string(tenantJSON)); err != nil {
		return fmt.Errorf("save tenant: %w", err)
	}
	return nil
}

// Read returns whatever is stored. Each field is independently absent or
// present. An entry that does not decode is reported as absent and logged.
func (m *Manager) Read(ctx context.Context) (Session, error) {
	var sess Session
	if m.store == nil {
		return sess, nil
	}

	token, err := m.get(ctx, store.KeyToken)
	if err != nil {
		return Session{}, err
	}
	sess.Token = token

	var user models.User
	ok, err := m.getJSON(ctx, store.KeyUser, &user)
	if err != nil {
		return Session{}, err
	}
	if ok {
		sess.User = &user
	}

	var tenant models.Tenant
	ok, err = m.getJSON(ctx, store.KeyTenant, &tenant)
	if err != nil {
		return Session{}, err
	}
	if ok {
		sess.Tenant = &tenant
	}

	return sess, nil
}

// Clear removes all three entries. Clearing an empty session is not an error.
func (m *Manager) Clear(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	var errs []error
	for _, key := range []string{store.KeyToken, store.KeyUser, store.KeyTenant} {
		if err := m.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// IsAuthenticated reports whether a non-empty token is stored. The token is
// not decoded, so an expired or forged token still counts.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	return m.Token(ctx) != ""
}

// Token returns the stored token or "". Backend failures are logged and read
// as no token so callers proceed unauthenticated.
func (m *Manager) Token(ctx context.Context) string {
	if m.store == nil {
		return ""
	}
	token, err := m.get(ctx, store.KeyToken)
	if err != nil {
		m.logger.WarnContext(ctx, "session token unavailable", "error", err)
		return ""
	}
	return token
}

// get returns "" for an absent key.
func (m *Manager) get(ctx context.Context, key string) (string, error) {
	v, err := m.store.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

// getJSON decodes the entry at key into dst. It reports false when the entry
// is absent, JSON null or undecodable.
func (m *Manager) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := m.get(ctx, key)
	if err != nil || raw == "" || raw == "null" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		m.logger.WarnContext(ctx, "ignoring corrupt session entry", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}
