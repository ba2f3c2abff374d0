package router

import "github.com/iliyamo/manufacturer-api/internal/handler"

func (r *routes) orders(h *handler.OrderHandler) {
	e := r.e
	e.GET("/order", h.List, r.auth)
	e.GET("/order/:id", h.Get, r.auth)
	e.POST("/order", h.Create, r.auth)
	e.PUT("/order/:id", h.SubmitPayment, r.auth)
	e.PUT("/order/accept/:id", h.Finalize, r.auth, r.admin)
	e.DELETE("/order/:id", h.Delete, r.access(r.deps.Cfg.Policy.OrderDelete)...)
}

func (r *routes) payments(h *handler.PaymentHandler) {
	r.e.POST("/create-payment-intent", h.CreateIntent, r.auth)
}
