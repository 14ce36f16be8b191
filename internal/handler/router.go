package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	sessionHandler "github.com/redmoonthebest/morozhenka/backend/internal/handler/session"
	"github.com/redmoonthebest/morozhenka/backend/internal/handler/ws"
	middlewarePkg "github.com/redmoonthebest/morozhenka/backend/internal/middleware"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/collect"
	"github.com/redmoonthebest/morozhenka/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the collection engine.
func NewRouter(engine *collect.Engine) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		sessionHandler.NewHandler(engine).RegisterRoutes(api)

		api.Get("/ws", ws.New(engine).HandleConnection)
	})

	return r
}
