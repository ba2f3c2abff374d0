package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/manufacturer-api/internal/repository"
)

type ProductHandler struct {
	Products *repository.ProductRepo
}

func NewProductHandler(p *repository.ProductRepo) *ProductHandler {
	return &ProductHandler{Products: p}
}

// List returns products newest first, truncated by an optional ?limit.
func (h *ProductHandler) List(c echo.Context) error {
	var limit int64
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a non-negative integer"})
		}
		limit = n
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	products, err := h.Products.List(ctx, limit)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Products.Get(ctx, c.Param("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req productReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Products.Create(ctx, req.model())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// UpdateQuantity sets the stock level. It upserts, so an unknown id creates a
// quantity-only product document.
func (h *ProductHandler) UpdateQuantity(c echo.Context) error {
	var req quantityReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Products.SetQuantity(ctx, c.Param("id"), *req.Quantity)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Products.Delete(ctx, c.Param("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
