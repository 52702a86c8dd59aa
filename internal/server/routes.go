package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/duckhunthq/duckhunt/internal/hunt"
)

func addRoutes(r chi.Router, d Deps) {
	broker := NewBroker()
	teamLocks := hunt.NewKeyedMutex()

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Duck Hunt API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(d.Logger, d.DB))

	// Team routes, player identified by UUID headers.
	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware)
		r.Post("/api/at-level/{levelID}", handleAtLevel(d.Store, broker, teamLocks))
		r.Post("/api/finish-game/{endSequence}", handleFinishGame(d.Store, d.Docs, broker, teamLocks))
		r.Post("/api/message", handleMessage(d.Store, d.Chat, broker))
		r.Post("/api/clear-chat", handleClearChat(d.Store))
		r.Post("/api/ping-coordinates", handlePingCoordinates(d.Store))
	})

	// Dashboard projections, read only.
	r.Get("/api/dashboard/progress", handleDashboardProgress(d.Store))
	r.Get("/api/dashboard/coordinates", handleDashboardCoordinates(d.Store))
	r.Get("/api/dashboard/events", handleDashboardEvents(d.Store, broker))

	// Admin routes, API key checked against the configured bcrypt hash.
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminAuthMiddleware(d.AdminKeyHash))
		r.Post("/games", handleAdminCreateGame(d.Store, d.Docs, d.FrontendURL, d.Rand))
		r.Get("/games/{gameID}", handleAdminGetGame(d.Store, d.Docs, d.FrontendURL))
		r.Delete("/games/{gameID}", handleAdminDeleteGame(d.Store))
		r.Put("/levels/{levelID}", handleAdminPutLevel(d.Store, d.Docs))
	})
}
