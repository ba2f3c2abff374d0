package router

import "github.com/iliyamo/manufacturer-api/internal/handler"

func (r *routes) users(h *handler.UserHandler) {
	e := r.e
	e.PUT("/user/:email", h.Login)
	e.PUT("/user/update/:email", h.UpdateProfile, r.auth)
	e.PUT("/user/admin/:email", h.SetRole, r.auth, r.admin)
	e.GET("/user", h.List, r.auth, r.admin)
	e.GET("/user/:email", h.Get, r.auth)
	e.DELETE("/user/:email", h.Delete, r.auth, r.admin)
}
