package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/config"
	"github.com/iliyamo/script-review-portal/internal/middleware"
	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/utils"
)

// AdminSubject is the token subject of the single administrator.
const AdminSubject = "admin"

// JudgeFinder resolves reviewer credentials.
type JudgeFinder interface {
	GetByEmail(ctx context.Context, email string) (*model.Judge, error)
	GetByID(ctx context.Context, id string) (*model.Judge, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, subject, role, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (subject, role string, err error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForSubject(ctx context.Context, subject string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Judges JudgeFinder
	Tokens TokenStore
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, j JudgeFinder, t TokenStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Judges: j, Tokens: t, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Login checks the administrator credential first, then approved reviewers.
// Every failure is the same 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var user userPart
	switch {
	case req.Email == h.Cfg.AdminEmail:
		if !utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password) {
			return unauthorized(c)
		}
		user = userPart{ID: AdminSubject, Email: h.Cfg.AdminEmail, Role: model.RoleAdmin}
	default:
		j, err := h.Judges.GetByEmail(ctx, req.Email)
		if err != nil || j.Status != model.JudgeApproved || !utils.VerifyPassword(j.PasswordHash, req.Password) {
			return unauthorized(c)
		}
		user = userPart{ID: j.ID, Email: j.Email, Name: j.Name, Role: model.RoleContractor}
	}
	return h.issue(ctx, c, user)
}

// Refresh validates by hash, revokes the old token and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	subject, role, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return fail(c, h.Log, "refresh", err)
	}

	user := userPart{ID: subject, Role: role}
	switch role {
	case model.RoleAdmin:
		user.Email = h.Cfg.AdminEmail
	case model.RoleContractor:
		j, err := h.Judges.GetByID(ctx, subject)
		if err != nil || j.Status != model.JudgeApproved {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		user.Email, user.Name = j.Email, j.Name
	default:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	return h.issue(ctx, c, user)
}

// Logout revokes the refresh token in the body, or every token of the
// caller when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw != "" {
		if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return fail(c, h.Log, "logout", err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	sess := middleware.SessionFrom(c)
	if sess.Anonymous() {
		return badRequest(c, "refresh_token required")
	}
	if err := h.Tokens.RevokeAllForSubject(ctx, sess.Subject); err != nil {
		return fail(c, h.Log, "logout", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's identity as carried by the access token.
func (h *AuthHandler) Me(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	return c.JSON(http.StatusOK, userPart{ID: sess.Subject, Role: sess.Role})
}

func (h *AuthHandler) issue(ctx context.Context, c echo.Context, user userPart) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, user.ID, user.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, h.Log, "issue access token", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, h.Log, "issue refresh token", err)
	}
	if err := h.Tokens.StoreRefresh(ctx, user.ID, user.Role, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return fail(c, h.Log, "save refresh token", err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:    user,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
}
