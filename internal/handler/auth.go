package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siddharthav19/ToursProj/internal/apperr"
	"github.com/siddharthav19/ToursProj/internal/auth"
	"github.com/siddharthav19/ToursProj/internal/config"
	"github.com/siddharthav19/ToursProj/internal/mailer"
	"github.com/siddharthav19/ToursProj/internal/middleware"
	"github.com/siddharthav19/ToursProj/internal/model"
	"github.com/siddharthav19/ToursProj/internal/repository"
)

// AuthHandler bundles dependencies for the credential lifecycle endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
	Mail  mailer.Mailer
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, m mailer.Mailer) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Mail: m}
}

// ----- DTOs -----

type signupReq struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}
type updatePasswordReq struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// userPart is the outward representation of a user. The password hash has
// no field here, so it cannot leak into any auth response.
type userPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// sendToken issues a token for the user, sets it as an httpOnly cookie and
// writes the success envelope. The cookie is marked Secure outside dev.
func (h *AuthHandler) sendToken(c echo.Context, u model.User, status int) error {
	token, err := auth.IssueToken(h.Cfg.JWTSecret, u.ID, h.Cfg.JWTTTL)
	if err != nil {
		return internalErr(c, "issue token failed")
	}
	c.SetCookie(&http.Cookie{
		Name:     "jwt",
		Value:    token,
		Expires:  time.Now().UTC().Add(h.Cfg.JWTTTL),
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		Path:     "/",
	})
	return c.JSON(status, echo.Map{
		"status": "success",
		"token":  token,
		"data":   echo.Map{"user": toUserPart(u)},
	})
}

// Signup creates a user and logs them in immediately. The role is always
// "user" regardless of input; elevated accounts come from the admin route.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" || req.PasswordConfirm == "" {
		return failMsg(c, apperr.ErrBadInput, "name, email, password and passwordConfirm are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, req.PasswordConfirm, model.RoleUser, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPasswordMismatch):
			return failMsg(c, apperr.ErrBadInput, err.Error())
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"status": "fail", "message": err.Error()})
		}
		return internalErr(c, "create user failed")
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return internalErr(c, "load user failed")
	}
	return h.sendToken(c, u, http.StatusCreated)
}

// Login verifies credentials and issues a token. An unknown email and a
// wrong password produce the identical error so responses cannot be used
// to enumerate accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, apperr.ErrMissingCredentials)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, apperr.ErrInvalidCredentials)
		}
		return internalErr(c, "query failed")
	}
	if !u.Active || !auth.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, apperr.ErrInvalidCredentials)
	}
	return h.sendToken(c, u, http.StatusOK)
}

// ForgotPassword generates a reset token, stores its digest and emails the
// plaintext. When the email cannot be handed off, the stored reset fields
// are rolled back so no orphaned token stays usable.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return failMsg(c, apperr.ErrBadInput, "email is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failMsg(c, apperr.ErrNotFound, "no user with that email")
		}
		return internalErr(c, "query failed")
	}

	rt, err := auth.NewResetToken()
	if err != nil {
		return internalErr(c, "generate reset token failed")
	}
	if err := h.Users.SetResetToken(ctx, u.ID, rt.Digest, rt.Expires); err != nil {
		return internalErr(c, "save reset token failed")
	}

	resetURL := c.Scheme() + "://" + c.Request().Host + "/v1/users/reset-password/" + rt.Plain
	msg := mailer.Message{
		To:      u.Email,
		Subject: "Your password reset token (valid for 10 min)",
		Body: "Forgot your password? Submit a PATCH request with your new password and passwordConfirm to:\n" +
			resetURL + "\nIf you didn't forget your password, please ignore this email.",
	}
	if err := h.Mail.Send(ctx, msg); err != nil {
		// Best-effort rollback so the half-issued token cannot linger.
		_ = h.Users.ClearResetToken(ctx, u.ID)
		return fail(c, apperr.ErrDeliveryFailed)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "token sent to email"})
}

// ResetPassword consumes a reset token from the URL. The token only
// matches through its digest and only while unexpired; on success the
// password rotates and a fresh login token is issued.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	plain := c.Param("token")
	var req resetReq
	if err := c.Bind(&req); err != nil || req.Password == "" || req.PasswordConfirm == "" {
		return failMsg(c, apperr.ErrBadInput, "password and passwordConfirm are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	u, err := h.Users.GetByResetDigest(ctx, auth.DigestResetToken(plain), time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, apperr.ErrInvalidOrExpiredToken)
		}
		return internalErr(c, "query failed")
	}
	// Recheck in constant time: MySQL's default collation compares the hex
	// digest case-insensitively, which the lookup alone would let through.
	if !auth.ConsumeResetToken(plain, u.ResetDigest.String, u.ResetExpires.Time) {
		return fail(c, apperr.ErrInvalidOrExpiredToken)
	}

	if err := h.Users.RotatePassword(ctx, u.ID, req.Password, req.PasswordConfirm, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrPasswordMismatch) {
			return failMsg(c, apperr.ErrBadInput, err.Error())
		}
		return internalErr(c, "update password failed")
	}
	return h.sendToken(c, u, http.StatusOK)
}

// UpdatePassword lets an authenticated user rotate their password after
// proving they know the current one.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	u, ok := c.Get(middleware.ContextUserKey).(*model.User)
	if !ok || u == nil {
		return fail(c, apperr.ErrUnauthenticated)
	}

	var req updatePasswordReq
	if err := c.Bind(&req); err != nil || req.PasswordCurrent == "" || req.Password == "" || req.PasswordConfirm == "" {
		return failMsg(c, apperr.ErrBadInput, "passwordCurrent, password and passwordConfirm are required")
	}
	if !auth.VerifyPassword(u.PasswordHash, req.PasswordCurrent) {
		return fail(c, apperr.ErrInvalidCredentials)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	if err := h.Users.RotatePassword(ctx, u.ID, req.Password, req.PasswordConfirm, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrPasswordMismatch) {
			return failMsg(c, apperr.ErrBadInput, err.Error())
		}
		return internalErr(c, "update password failed")
	}
	return h.sendToken(c, *u, http.StatusOK)
}
