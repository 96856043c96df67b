package message

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ghostnote/ghost-note/backend/internal/middleware"
	messageService "github.com/ghostnote/ghost-note/backend/internal/service/message"
	"github.com/ghostnote/ghost-note/backend/pkg/utils"
)

// Handler exposes sending, listing and deleting anonymous messages.
type Handler struct {
	svc *messageService.Service
}

func New(svc *messageService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public send routes and the owner routes behind auth.
func (h *Handler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/send-message", h.handleStatus)
	r.Post("/send-message", h.handleSend)

	r.Group(func(owner chi.Router) {
		owner.Use(auth)
		owner.Get("/get-messages", h.handleList)
		owner.Delete("/delete-message/{messageID}", h.handleDelete)
	})
}

type sendRequest struct {
	Username string `json:"username" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err := h.svc.Send(r.Context(), req.Username, req.Content)
	switch {
	case err == nil:
		utils.RespondMessage(w, http.StatusOK, true, "Message sent successfully.")
	case errors.Is(err, messageService.ErrInvalidContent):
		utils.RespondError(w, http.StatusBadRequest, "Message must be between 5 and 300 characters.")
	case errors.Is(err, messageService.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found.")
	case errors.Is(err, messageService.ErrNotAccepting):
		utils.RespondError(w, http.StatusForbidden, "User is not accepting messages.")
	default:
		logrus.Errorf("[message] send failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Error sending message.")
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		utils.RespondError(w, http.StatusBadRequest, "Invalid username")
		return
	}

	accepting, err := h.svc.Status(r.Context(), username)
	switch {
	case errors.Is(err, messageService.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found")
	case err != nil:
		logrus.Errorf("[message] status failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Error fetching status")
	case accepting:
		utils.RespondJSON(w, http.StatusOK, utils.Envelope{Success: true, Message: "User is accepting messages", IsAcceptingMessages: utils.Bool(true)})
	default:
		utils.RespondJSON(w, http.StatusOK, utils.Envelope{Success: true, Message: "User is not accepting messages", IsAcceptingMessages: utils.Bool(false)})
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Not authenticated!")
		return
	}

	msgs, err := h.svc.List(r.Context(), claims.UserID)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, utils.Envelope{
			Success:  true,
			Message:  "Messages fetched successfully.",
			Messages: msgs,
		})
	case errors.Is(err, messageService.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found.")
	default:
		logrus.Errorf("[message] list failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Error fetching messages.")
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Not authenticated!")
		return
	}

	err := h.svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "messageID"))
	switch {
	case err == nil:
		utils.RespondMessage(w, http.StatusOK, true, "Message deleted.")
	case errors.Is(err, messageService.ErrMessageNotFound):
		utils.RespondError(w, http.StatusNotFound, "Message not found or already deleted.")
	default:
		logrus.Errorf("[message] delete failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Message deletion failed.")
	}
}
