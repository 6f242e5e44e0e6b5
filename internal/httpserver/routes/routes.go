// Package routes collects route registrars. Each file registers its routes from
// init, and the server mounts them all with RegisterAll.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/outpost/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type registration struct {
	reg Registrar
	mws []Middleware
}

var registrations []registration

// Register a registrar with optional middlewares applied to all its routes.
func Register(reg Registrar, mws ...Middleware) {
	registrations = append(registrations, registration{reg: reg, mws: mws})
}

// RegisterAll mounts every registrar on r. Called once from server.New().
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registrations {
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		e.reg(r.With(e.mws...), d)
	}
}
