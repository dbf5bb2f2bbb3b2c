package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/repository"
	"github.com/iliyamo/venuex-ticketing/internal/utils"
)

type refreshRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

// AuthStore keeps users and refresh tokens in memory.  It satisfies the
// user and token stores of the auth handler.
type AuthStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User
	tokens map[string]refreshRow
}

func NewAuthStore() *AuthStore {
	return &AuthStore{users: map[uint64]model.User{}, tokens: map[string]refreshRow{}}
}

// WithTx runs fn directly; every method already holds the store lock.
func (a *AuthStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func cloneUser(u model.User) model.User {
	u.Roles = append([]model.Role(nil), u.Roles...)
	return u
}

func (a *AuthStore) Create(_ context.Context, name, email, password string, cost int, roles ...model.Role) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range a.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	a.nextID++
	now := time.Now().UTC()
	a.users[a.nextID] = model.User{
		ID: a.nextID, Name: name, Email: email, PasswordHash: hash,
		Roles: append([]model.Role(nil), roles...), IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}
	return a.nextID, nil
}

func (a *AuthStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range a.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return model.User{}, domain.ErrUserNotFound
}

func (a *AuthStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[id]
	if !ok {
		return model.User{}, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (a *AuthStore) AddRole(_ context.Context, userID uint64, role model.Role) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
	}
	a.users[userID] = u
	return nil
}

func (a *AuthStore) SetOrganizerRequested(_ context.Context, userID uint64, requested bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.OrganizerRequested = requested
	a.users[userID] = u
	return nil
}

func (a *AuthStore) ListOrganizerRequests(_ context.Context) ([]model.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []model.User
	for id := uint64(1); id <= a.nextID; id++ {
		if u, ok := a.users[id]; ok && u.OrganizerRequested {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (a *AuthStore) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[tokenHash] = refreshRow{userID: userID, exp: exp}
	return nil
}

func (a *AuthStore) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	row, ok := a.tokens[tokenHash]
	if !ok || row.revoked || time.Now().After(row.exp) {
		return 0, repository.ErrTokenInvalid
	}
	return row.userID, nil
}

func (a *AuthStore) RevokeByHash(_ context.Context, tokenHash string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if row, ok := a.tokens[tokenHash]; ok {
		row.revoked = true
		a.tokens[tokenHash] = row
	}
	return nil
}

func (a *AuthStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for h, row := range a.tokens {
		if row.userID == userID {
			row.revoked = true
			a.tokens[h] = row
		}
	}
	return nil
}
