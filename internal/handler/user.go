package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/manufacturer-api/internal/logger"
	"github.com/iliyamo/manufacturer-api/internal/middleware"
	"github.com/iliyamo/manufacturer-api/internal/model"
	"github.com/iliyamo/manufacturer-api/internal/repository"
	"github.com/iliyamo/manufacturer-api/internal/utils"
)

// UserHandler serves login, profile and user administration.
type UserHandler struct {
	Users    *repository.UserRepo
	Roles    *repository.RoleResolver
	Secret   string
	TokenTTL time.Duration
	v        *Validator
}

func NewUserHandler(users *repository.UserRepo, roles *repository.RoleResolver, secret string, ttl time.Duration, v *Validator) *UserHandler {
	return &UserHandler{Users: users, Roles: roles, Secret: secret, TokenTTL: ttl, v: v}
}

// emailParam validates and normalizes the :email path parameter.
func (h *UserHandler) emailParam(c echo.Context) (string, bool) {
	email := repository.NormalizeEmail(c.Param("email"))
	if err := h.v.Var(email, "required,email"); err != nil {
		return "", false
	}
	return email, true
}

// Login upserts the user for :email with the supplied profile fields and
// issues an access token. There is no password: the storefront's identity
// provider has already authenticated the caller.
func (h *UserHandler) Login(c echo.Context) error {
	email, ok := h.emailParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	var req profileReq
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Users.Upsert(ctx, email, req.fields())
	if err != nil {
		return storeError(c, err)
	}
	tok, err := utils.NewAccessToken(h.Secret, email, h.TokenTTL)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"result": res, "token": tok.Token})
}

// UpdateProfile lets the caller change their own profile fields.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	email, ok := h.emailParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	if email != repository.NormalizeEmail(middleware.Email(c)) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden access"})
	}
	var req profileReq
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Users.Update(ctx, email, req.fields())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SetRole is the admin endpoint for granting or revoking the admin role.
// An empty body promotes; {"role": ""} demotes.
func (h *UserHandler) SetRole(c echo.Context) error {
	email, ok := h.emailParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	var req roleReq
	if c.Request().ContentLength != 0 {
		if ok, err := bind(c, &req); !ok {
			return err
		}
	}
	role := model.RoleAdmin
	if req.Role != nil {
		role = *req.Role
	}
	if role != model.RoleAdmin && role != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be \"admin\" or empty"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Users.SetRole(ctx, email, role)
	if err != nil {
		return storeError(c, err)
	}
	h.invalidate(c, email)
	logger.FromCtx(ctx).Info("user role changed",
		zap.String("email", email), zap.String("role", role), zap.String("by", middleware.Email(c)))
	return c.JSON(http.StatusOK, echo.Map{"result": res})
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c echo.Context) error {
	email, ok := h.emailParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c echo.Context) error {
	email, ok := h.emailParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Users.Delete(ctx, email)
	if err != nil {
		return storeError(c, err)
	}
	h.invalidate(c, email)
	return c.JSON(http.StatusOK, res)
}

// invalidate drops the cached role; a failure only widens the staleness
// window to the cache TTL.
func (h *UserHandler) invalidate(c echo.Context, email string) {
	if h.Roles == nil {
		return
	}
	if err := h.Roles.Invalidate(c.Request().Context(), email); err != nil {
		logger.FromCtx(c.Request().Context()).Warn("role cache invalidation failed", zap.String("email", email), zap.Error(err))
	}
}
