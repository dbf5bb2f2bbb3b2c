package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venuex-ticketing/internal/config"
	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/repository"
	"github.com/iliyamo/venuex-ticketing/internal/utils"
)

// UserStore is the user persistence the auth endpoints need.
type UserStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, name, email, password string, cost int, roles ...model.Role) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	AddRole(ctx context.Context, userID uint64, role model.Role) error
	SetOrganizerRequested(ctx context.Context, userID uint64, requested bool) error
	ListOrganizerRequests(ctx context.Context) ([]model.User, error)
}

// TokenStore keeps refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler serves registration, login, token refresh and the
// organizer approval flow.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "code": "unauthenticated"})
}

// issue mints an access and refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Roles, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

// Register creates an attendee account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || !strings.Contains(req.Email, "@") {
		return badRequest(c, "name and a valid email are required")
	}
	if err := utils.CheckPasswordPolicy(req.Password); err != nil {
		return badRequest(c, "password must be 8 to 72 characters")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, h.Cfg.BcryptCost, model.RoleAttendee)
	if errors.Is(err, repository.ErrEmailExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists", "code": "email_exists"})
	}
	if err != nil {
		return writeError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return unauthorized(c, "invalid credentials")
	}
	if err != nil {
		return writeError(c, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return unauthorized(c, "invalid credentials")
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) refreshUser(c echo.Context, ctx context.Context) (model.User, string, error) {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return model.User{}, "", badRequest(c, "refreshToken required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	uid, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return model.User{}, "", unauthorized(c, "invalid refresh token")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil || !u.IsActive {
		return model.User{}, "", unauthorized(c, "invalid refresh token")
	}
	return u, hash, nil
}

// Refresh rotates the refresh token and returns a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, hash, err := h.refreshUser(c, ctx)
	if u.ID == 0 {
		return err
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return writeError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a fresh access token and keeps the refresh token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, _, err := h.refreshUser(c, ctx)
	if u.ID == 0 {
		return err
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Roles, h.Cfg.AccessTTLMin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer's user when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return unauthorized(c, "invalid refresh token")
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	bearer, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok {
		return badRequest(c, "provide a bearer token or refreshToken")
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, bearer)
	if err != nil {
		return unauthorized(c, "invalid token")
	}
	uid, _ := claims.UserID()
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile with current roles.
func (h *AuthHandler) Me(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, a.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// RequestOrganizer flags the caller as wanting the organizer role.
func (h *AuthHandler) RequestOrganizer(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, a.ID)
	if err != nil {
		return writeError(c, err)
	}
	if u.HasRole(model.RoleOrganizer) {
		return writeError(c, domain.ErrInvalidTransition)
	}
	if err := h.Users.SetOrganizerRequested(ctx, a.ID, true); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"organizerRequested": true})
}

// OrganizerRequests lists users waiting for approval.
func (h *AuthHandler) OrganizerRequests(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.ListOrganizerRequests(ctx)
	if err != nil {
		return writeError(c, err)
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, users)
}

type approveReq struct {
	UserID uint64 `json:"userId"`
}

// ApproveOrganizer grants the organizer role and clears the request.
func (h *AuthHandler) ApproveOrganizer(c echo.Context) error {
	var req approveReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return badRequest(c, "userId required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	var u model.User
	err := h.Users.WithTx(ctx, func(ctx context.Context) error {
		if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
			return err
		}
		if err := h.Users.AddRole(ctx, req.UserID, model.RoleOrganizer); err != nil {
			return err
		}
		if err := h.Users.SetOrganizerRequested(ctx, req.UserID, false); err != nil {
			return err
		}
		var err error
		u, err = h.Users.GetByID(ctx, req.UserID)
		return err
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
