package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ghostnote/ghost-note/backend/internal/handler/account"
	"github.com/ghostnote/ghost-note/backend/internal/handler/analytics"
	"github.com/ghostnote/ghost-note/backend/internal/handler/live"
	"github.com/ghostnote/ghost-note/backend/internal/handler/message"
	"github.com/ghostnote/ghost-note/backend/internal/handler/suggest"
	middlewarePkg "github.com/ghostnote/ghost-note/backend/internal/middleware"
	accountService "github.com/ghostnote/ghost-note/backend/internal/service/account"
	aiService "github.com/ghostnote/ghost-note/backend/internal/service/ai"
	analyticsService "github.com/ghostnote/ghost-note/backend/internal/service/analytics"
	liveService "github.com/ghostnote/ghost-note/backend/internal/service/live"
	messageService "github.com/ghostnote/ghost-note/backend/internal/service/message"
	"github.com/ghostnote/ghost-note/backend/pkg/utils"
)

// Dependencies groups the services exposed over HTTP.
type Dependencies struct {
	Accounts       *accountService.Service
	Messages       *messageService.Service
	Analytics      *analyticsService.Service
	Suggestions    *aiService.Service
	Hub            *liveService.Hub
	Tokens         *middlewarePkg.TokenManager
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger())
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondMessage(w, http.StatusOK, true, "ok")
	})

	auth := deps.Tokens.Authenticate

	r.Route("/api", func(api chi.Router) {
		account.New(deps.Accounts).RegisterRoutes(api, auth)
		message.New(deps.Messages).RegisterRoutes(api, auth)
		analytics.New(deps.Analytics).RegisterRoutes(api, auth)

		if deps.Suggestions != nil {
			suggest.New(deps.Suggestions).RegisterRoutes(api)
		}
		if deps.Hub != nil {
			live.New(deps.Hub, originChecker(deps.AllowedOrigins)).RegisterRoutes(api, deps.Tokens.AuthenticateWebSocket)
		}
	})

	return r
}

// originChecker mirrors the CORS allow list for WebSocket upgrades.
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
