package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/utils"
)

// UserRepo provides access to users and their role rows.
type UserRepo struct {
	*Store
}

// NewUserRepo returns a UserRepo sharing s's pool and transactions.
func NewUserRepo(s *Store) *UserRepo { return &UserRepo{Store: s} }

// Create hashes password, inserts the user with the given roles and
// returns its ID.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, cost int, roles ...model.Role) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var id uint64
	err = r.WithTx(ctx, func(ctx context.Context) error {
		res, err := r.conn(ctx).ExecContext(ctx,
			"INSERT INTO users (name, email, password_hash) VALUES (?,?,?)",
			strings.TrimSpace(name), email, hash)
		if err != nil {
			if isDuplicate(err) {
				return ErrEmailExists
			}
			return fmt.Errorf("insert user: %w", err)
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id = uint64(lastID)
		for _, role := range roles {
			if err := r.AddRole(ctx, id, role); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

const userColumns = "id, name, email, password_hash, organizer_requested, is_active, created_at, updated_at"

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (model.User, error) {
	var u model.User
	err := r.conn(ctx).QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.OrganizerRequested, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, notFound(err, domain.ErrUserNotFound, "get user")
	}
	u.Roles, err = r.Roles(ctx, u.ID)
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "email=?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "id=?", id)
}

// Roles lists the roles held by a user in a stable order.
func (r *UserRepo) Roles(ctx context.Context, userID uint64) ([]model.Role, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		"SELECT role FROM user_roles WHERE user_id=? ORDER BY role", userID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()
	roles := []model.Role{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if role, err := model.ParseRole(s); err == nil {
			roles = append(roles, role)
		}
	}
	return roles, rows.Err()
}

// AddRole grants role to a user.  Granting a held role is a no-op.
func (r *UserRepo) AddRole(ctx context.Context, userID uint64, role model.Role) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		"INSERT IGNORE INTO user_roles (user_id, role) VALUES (?,?)", userID, role)
	if err != nil {
		return fmt.Errorf("add role: %w", err)
	}
	return nil
}

// SetOrganizerRequested records or clears a pending organizer request.
func (r *UserRepo) SetOrganizerRequested(ctx context.Context, userID uint64, requested bool) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		"UPDATE users SET organizer_requested=? WHERE id=?", requested, userID)
	if err != nil {
		return fmt.Errorf("set organizer request: %w", err)
	}
	return expectRow(res, domain.ErrUserNotFound)
}

// ListOrganizerRequests returns users waiting for organizer approval.
func (r *UserRepo) ListOrganizerRequests(ctx context.Context) ([]model.User, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE organizer_requested = TRUE ORDER BY updated_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list organizer requests: %w", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Roles, err = r.Roles(ctx, users[i].ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func collectUsers(rows *sql.Rows) ([]model.User, error) {
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.OrganizerRequested, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
