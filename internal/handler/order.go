package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/manufacturer-api/internal/middleware"
	"github.com/iliyamo/manufacturer-api/internal/model"
	"github.com/iliyamo/manufacturer-api/internal/repository"
	"github.com/iliyamo/manufacturer-api/internal/service"
)

// OrderHandler serves order CRUD and the lifecycle transitions.
type OrderHandler struct {
	Orders    *repository.OrderRepo
	Lifecycle *service.OrderLifecycle
	// OwnerOnlyDelete restricts DELETE /order/:id to the order's owner.
	OwnerOnlyDelete bool
}

func NewOrderHandler(orders *repository.OrderRepo, lc *service.OrderLifecycle, ownerOnlyDelete bool) *OrderHandler {
	return &OrderHandler{Orders: orders, Lifecycle: lc, OwnerOnlyDelete: ownerOnlyDelete}
}

// List returns orders newest first, optionally only those of ?email.
func (h *OrderHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	orders, err := h.Orders.List(ctx, c.QueryParam("email"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Create places an order. The owner defaults to the caller.
func (h *OrderHandler) Create(c echo.Context) error {
	var req orderReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	o := req.model()
	if o.Email == "" {
		o.Email = middleware.Email(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Lifecycle.Create(ctx, o)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SubmitPayment records the payment and moves the order to pending. The
// response is the applied update document.
func (h *OrderHandler) SubmitPayment(c echo.Context) error {
	var req paymentReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	p := model.Payment{TransactionID: req.TransactionID, Email: req.Email, Price: req.Price}
	if p.Email == "" {
		p.Email = middleware.Email(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	set, err := h.Lifecycle.SubmitPayment(ctx, c.Param("id"), p)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"$set": set})
}

// Finalize applies an admin's decision, any non-empty status string.
func (h *OrderHandler) Finalize(c echo.Context) error {
	var req statusReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Lifecycle.Finalize(ctx, c.Param("id"), req.Status)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *OrderHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	id := c.Param("id")
	if h.OwnerOnlyDelete {
		o, err := h.Orders.Get(ctx, id)
		if err != nil {
			return storeError(c, err)
		}
		if repository.NormalizeEmail(o.Email) != repository.NormalizeEmail(middleware.Email(c)) {
			return storeError(c, repository.ErrForbidden)
		}
	}
	res, err := h.Orders.Delete(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
