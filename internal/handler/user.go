package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siddharthav19/ToursProj/internal/apperr"
	"github.com/siddharthav19/ToursProj/internal/config"
	"github.com/siddharthav19/ToursProj/internal/middleware"
	"github.com/siddharthav19/ToursProj/internal/model"
	"github.com/siddharthav19/ToursProj/internal/query"
	"github.com/siddharthav19/ToursProj/internal/repository"
)

// UserHandler bundles dependencies for account endpoints.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u}
}

type updateMeReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	// Present only to detect misuse: posting password material here is a
	// client error, password changes have their own route.
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type adminCreateUserReq struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Role            string `json:"role"`
}

func currentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(middleware.ContextUserKey).(*model.User)
	return u, ok && u != nil
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return fail(c, apperr.ErrUnauthenticated)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "data": echo.Map{"user": toUserPart(*u)}})
}

// UpdateMe changes name and/or email. Password fields are rejected so the
// update-password flow (with its re-hash and change timestamp) cannot be
// bypassed.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return fail(c, apperr.ErrUnauthenticated)
	}
	var req updateMeReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid body")
	}
	if req.Password != "" || req.PasswordConfirm != "" {
		return failMsg(c, apperr.ErrBadInput, "this route is not for password updates, please use /v1/users/update-password")
	}
	if strings.TrimSpace(req.Name) == "" && strings.TrimSpace(req.Email) == "" {
		return failMsg(c, apperr.ErrBadInput, "nothing to update")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	updated, err := h.Users.UpdateProfile(ctx, u.ID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"status": "fail", "message": err.Error()})
		}
		return internalErr(c, "update user failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "data": echo.Map{"user": toUserPart(updated)}})
}

// DeleteMe soft-deletes the account: the row stays but active flips to
// false, which also invalidates every outstanding token via the route
// guard's active check.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return fail(c, apperr.ErrUnauthenticated)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	if err := h.Users.Deactivate(ctx, u.ID); err != nil {
		return internalErr(c, "deactivate user failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// List serves the admin user listing through the feature builder. Only
// active accounts show; the decorator is applied here, in the open.
func (h *UserHandler) List(c echo.Context) error {
	f := query.New(c.QueryParams(), repository.UserSchema).
		Where("active = 1").
		Filter().Sort().Select().Paginate()

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx, f)
	if err != nil {
		if errors.Is(err, apperr.ErrBadInput) {
			return failMsg(c, apperr.ErrBadInput, err.Error())
		}
		return internalErr(c, "query failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": len(users),
		"data":    echo.Map{"users": users},
	})
}

// Create is the admin-only pathway for making accounts, and the only place
// an elevated role can be assigned.
func (h *UserHandler) Create(c echo.Context) error {
	var req adminCreateUserReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" || req.PasswordConfirm == "" {
		return failMsg(c, apperr.ErrBadInput, "name, email, password and passwordConfirm are required")
	}
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return failMsg(c, apperr.ErrBadInput, "role must be one of: user, guide, lead-guide, admin")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, req.PasswordConfirm, role, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPasswordMismatch):
			return failMsg(c, apperr.ErrBadInput, err.Error())
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"status": "fail", "message": err.Error()})
		}
		return internalErr(c, "create user failed")
	}
	created, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return internalErr(c, "load user failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "success", "data": echo.Map{"user": toUserPart(created)}})
}
