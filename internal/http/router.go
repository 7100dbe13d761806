package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/davidmreis/bizbook/internal/auth"
	ledgerHandler "github.com/davidmreis/bizbook/internal/http/ledger"
	salesHandler "github.com/davidmreis/bizbook/internal/http/sales"
	"github.com/davidmreis/bizbook/internal/http/syncapi"
	vaultHandler "github.com/davidmreis/bizbook/internal/http/vault"
)

func New(
	sessions *auth.Sessions,
	vaultV1 *vaultHandler.Handler,
	ledgerV1 *ledgerHandler.Handler,
	salesV1 *salesHandler.Handler,
	syncV1 *syncapi.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(metricsMiddleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", metricsHandler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/vault", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			vaultV1.Routes(r)
		})

		// Everything below needs a session issued by vault login.
		r.Group(func(r chi.Router) {
			r.Use(sessions.Middleware)

			r.Route("/accounts", func(r chi.Router) {
				ledgerV1.AccountRoutes(r)
			})

			r.Route("/entries", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				ledgerV1.EntryRoutes(r)
			})

			r.Route("/sales", func(r chi.Router) {
				salesV1.Routes(r)
			})

			r.Route("/sync", func(r chi.Router) {
				syncV1.Routes(r)
			})
		})
	})

	return router
}
