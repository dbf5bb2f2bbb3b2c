package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// TokenPair is the result of a login, registration or rotation.
type TokenPair struct {
	User   model.User `json:"user"`
	Access struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	} `json:"access"`
	Refresh struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	} `json:"refresh"`
}

func (c *Client) signIn(ctx context.Context, path string, in any) (TokenPair, error) {
	var out TokenPair
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return TokenPair{}, err
	}
	c.SetToken(out.Access.Token)
	return out, nil
}

// Register creates an attendee account and adopts its access token.
func (c *Client) Register(ctx context.Context, name, email, password string) (TokenPair, error) {
	return c.signIn(ctx, "/auth/register", map[string]string{"name": name, "email": email, "password": password})
}

// Login signs in and adopts the new access token.
func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, error) {
	return c.signIn(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

// Refresh rotates refreshToken and adopts the new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	return c.signIn(ctx, "/auth/refresh", map[string]string{"refreshToken": refreshToken})
}

// Logout revokes refreshToken and forgets the access token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", map[string]string{"refreshToken": refreshToken}, nil)
	c.SetToken("")
	return err
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodGet, "/me", nil, &u)
	return u, err
}

// CurrentUser implements UserProvider.  A missing or rejected token
// yields a nil user rather than an error.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	if c.Token() == "" {
		return nil, nil
	}
	u, err := c.Me(ctx)
	if errors.Is(err, domain.ErrUnauthenticated) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// RequestOrganizer asks an admin for the organizer role.
func (c *Client) RequestOrganizer(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/request-organizer", nil, nil)
}

// ApproveOrganizer grants the organizer role to userID.  Admin only.
func (c *Client) ApproveOrganizer(ctx context.Context, userID uint64) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodPost, "/auth/approve-organizer", map[string]uint64{"userId": userID}, &u)
	return u, err
}
