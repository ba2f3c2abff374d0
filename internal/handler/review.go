package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/manufacturer-api/internal/middleware"
	"github.com/iliyamo/manufacturer-api/internal/model"
	"github.com/iliyamo/manufacturer-api/internal/repository"
)

type ReviewHandler struct {
	Reviews *repository.ReviewRepo
}

func NewReviewHandler(r *repository.ReviewRepo) *ReviewHandler { return &ReviewHandler{Reviews: r} }

func (h *ReviewHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	reviews, err := h.Reviews.List(ctx)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, reviews)
}

// Create stores a review; the author email defaults to the caller.
func (h *ReviewHandler) Create(c echo.Context) error {
	var req reviewReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	rv := model.Review{
		Name:   req.Name,
		Email:  req.Email,
		Image:  req.Image,
		Review: req.Review,
		Rating: req.Rating,
	}
	if rv.Email == "" {
		rv.Email = middleware.Email(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Reviews.Create(ctx, rv)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
