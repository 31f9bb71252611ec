package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	apppublic "duel-session/internal/app/public"
	appsession "duel-session/internal/app/session"
	"duel-session/internal/config"
	"duel-session/internal/match"
	"duel-session/internal/store"
	"duel-session/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// NewRouter wires the HTTP surface. st may be nil, in which case the
// profile routes are not mounted.
func NewRouter(cfg config.ServerConfig, reg *match.Registry, st *store.Store) *chi.Mux {
	sessionSvc := appsession.NewService(reg)
	wsSrv := ws.NewServer(reg)

	sessionHandlers := NewSessionHandlers(sessionSvc)
	adminHandlers := NewAdminHandlers(st, sessionSvc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	r.With(APILogMiddleware()).Get("/ws", wsSrv.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/sessions/{code}/state", sessionHandlers.State())

		if st != nil {
			profileHandlers := NewProfileHandlers(apppublic.NewService(st))
			r.Get("/public/profiles/{wallet_id}", profileHandlers.Profile())
			r.Get("/public/leaderboard", profileHandlers.Leaderboard())
		} else {
			log.Warn().Msg("profile store not configured; skipping profile routes")
		}

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Get("/sessions", adminHandlers.Sessions())
			r.With(BodyCaptureMiddleware(4096)).Post("/sessions/{code}/close", adminHandlers.CloseSession())
		r.With(BodyCaptureMiddleware(4096)).Post("/sessions/{code}/winner", adminHandlers.DeclareWinner())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
