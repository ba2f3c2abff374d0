package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/manufacturer-api/internal/service"
)

type PaymentHandler struct {
	Intents *service.PaymentIntents
}

func NewPaymentHandler(intents *service.PaymentIntents) *PaymentHandler {
	return &PaymentHandler{Intents: intents}
}

// CreateIntent relays the processor's client secret for the order price.
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	var req intentReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	secret, err := h.Intents.Create(ctx, req.Price)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"clientSecret": secret})
}
