package analytics

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ghostnote/ghost-note/backend/internal/middleware"
	analyticsService "github.com/ghostnote/ghost-note/backend/internal/service/analytics"
	"github.com/ghostnote/ghost-note/backend/pkg/utils"
)

type Handler struct {
	svc *analyticsService.Service
}

func New(svc *analyticsService.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.With(auth).Get("/message-analytics", h.handleAnalytics)
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Not authenticated!")
		return
	}

	report, err := h.svc.Generate(r.Context(), claims.UserID)
	switch {
	case err == nil:
		message := "Analytics generated successfully."
		if report.Summary.TotalMessages == 0 {
			message = "No messages to analyze."
		}
		utils.RespondJSON(w, http.StatusOK, utils.Envelope{
			Success:   true,
			Message:   message,
			Analytics: report,
		})
	case errors.Is(err, analyticsService.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found.")
	default:
		logrus.Errorf("[analytics] generate failed for user=%s: %v", claims.UserID, err)
		utils.RespondError(w, http.StatusInternalServerError, "Error generating analytics.")
	}
}
