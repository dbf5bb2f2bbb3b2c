package client

import (
	"context"
	"sync"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// UserProvider loads the signed-in user, or nil when nobody is signed in.
// *Client implements it.
type UserProvider interface {
	CurrentUser(ctx context.Context) (*model.User, error)
}

// Session caches the signed-in user's profile.  Refresh reloads it from
// the provider and tells every subscriber; there is no other way the
// cached user changes.
type Session struct {
	provider UserProvider

	mu     sync.RWMutex
	user   *model.User
	nextID int
	subs   map[int]func(*model.User)
}

func NewSession(p UserProvider) *Session {
	return &Session{provider: p, subs: map[int]func(*model.User){}}
}

// User returns the cached profile, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Refresh reloads the profile.  On error the cached user is kept.
func (s *Session) Refresh(ctx context.Context) error {
	u, err := s.provider.CurrentUser(ctx)
	if err != nil {
		return err
	}
	s.set(u)
	return nil
}

// Clear forgets the cached user, as after logout.
func (s *Session) Clear() { s.set(nil) }

func (s *Session) set(u *model.User) {
	s.mu.Lock()
	s.user = u
	subs := make([]func(*model.User), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(u)
	}
}

// Subscribe registers fn for every auth change and returns a function
// that removes it.
func (s *Session) Subscribe(fn func(*model.User)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Decision is the role gate's answer for one protected flow.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	}
	return "unknown"
}

// Decide answers for user: allow when the role sets intersect, send
// anonymous callers to login and everyone else home.
func Decide(user *model.User, required ...model.Role) Decision {
	switch {
	case domain.CanAccess(user, required...):
		return Allow
	case user == nil:
		return RedirectLogin
	default:
		return RedirectHome
	}
}

// Gate guards flow entry points with the session's cached user.
type Gate struct {
	Session *Session
}

// Decide applies Decide to the session's current user.
func (g Gate) Decide(required ...model.Role) Decision {
	return Decide(g.Session.User(), required...)
}

// Can reports whether the session's user may perform action, for showing
// or hiding entry points before any request is made.
func (g Gate) Can(action domain.Action) bool {
	u := g.Session.User()
	return u != nil && domain.Allows(u.Roles, action)
}
