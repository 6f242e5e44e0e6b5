package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/outpost/internal/httpserver/deps"
	"github.com/MrSnakeDoc/outpost/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/outpost/internal/httpserver/mw"
)

func init() { Register(registerStatus) }

// registerStatus mounts the operator endpoints. Both sit behind the CIDR allow-list.
func registerStatus(r chi.Router, d deps.Deps) {
	allow := mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
	r.With(allow).Get("/status", handlers.Status(d))
	r.With(allow).Post("/sync", handlers.TriggerSync(d))
}
