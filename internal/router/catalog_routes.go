package router

import "github.com/iliyamo/manufacturer-api/internal/handler"

// Listing routes are served from the response cache; every successful write
// to the same group purges it.
func (r *routes) products(h *handler.ProductHandler) {
	e := r.e
	e.GET("/product", h.List, r.cache)
	e.GET("/product/:id", h.Get, r.auth)
	e.POST("/product", h.Create, r.auth, r.admin, r.purge)

	quantity := append(r.access(r.deps.Cfg.Policy.ProductQuantity), r.purge)
	e.PUT("/product/:id", h.UpdateQuantity, quantity...)
	e.DELETE("/product/:id", h.Delete, r.auth, r.admin, r.purge)
}

func (r *routes) reviews(h *handler.ReviewHandler) {
	r.e.GET("/review", h.List, r.cache)
	r.e.POST("/review", h.Create, r.auth, r.purge)
}
