package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/outpost/internal/httpserver/deps"
	"github.com/MrSnakeDoc/outpost/internal/httpserver/handlers"
)

func init() { Register(registerSync) }

// registerSync mounts the sync API. It is open to any caller; CORS is applied globally.
func registerSync(r chi.Router, d deps.Deps) {
	r.Get("/registry", handlers.GetRegistry(d))
	r.Post("/registry", handlers.PostRegistry(d))
	r.Get("/discover", handlers.Discover(d))
}
