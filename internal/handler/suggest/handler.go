package suggest

import (
	"errors"
	"io"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	aiService "github.com/ghostnote/ghost-note/backend/internal/service/ai"
	"github.com/ghostnote/ghost-note/backend/pkg/utils"
)

// SSE event names sent by the stream endpoint.
const (
	EventDelta   = "delta"
	EventMessage = "message"
	EventError   = "error"
)

// StreamResponse is the data of a single suggestion SSE frame.
type StreamResponse struct {
	Content   string   `json:"content,omitempty"`
	Questions []string `json:"questions,omitempty"`
	Fallback  bool     `json:"fallback,omitempty"`
	Finished  bool     `json:"finished,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Handler serves AI generated conversation starters.
type Handler struct {
	svc *aiService.Service
}

func New(svc *aiService.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/suggest-messages", h.handleSuggest)
	r.Get("/suggest-messages/stream", h.handleStream)
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	suggestion := h.svc.Suggest(r.Context())
	utils.RespondJSON(w, http.StatusOK, utils.Envelope{
		Success:     true,
		Message:     "Suggestions generated.",
		Suggestions: suggestion.Text,
		Fallback:    suggestion.Fallback,
	})
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	if !h.svc.StreamingEnabled() {
		h.sendFallback(w, flusher)
		return
	}

	stream, err := h.svc.StreamSuggestions(r.Context())
	if err != nil {
		logrus.Errorf("[suggest] stream failed to start: %v", err)
		h.sendFallback(w, flusher)
		return
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			logrus.Errorf("[suggest] stream interrupted: %v", recvErr)
			utils.SendSSEEvent(w, flusher, EventError, StreamResponse{Error: "suggestion stream interrupted"})
			return
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			utils.SendSSEEvent(w, flusher, EventDelta, StreamResponse{Content: chunk.Content})
		}
	}

	if len(chunks) == 0 {
		h.sendFallback(w, flusher)
		return
	}

	full, err := schema.ConcatMessages(chunks)
	if err != nil {
		logrus.Errorf("[suggest] concat chunks: %v", err)
		h.sendFallback(w, flusher)
		return
	}

	text := aiService.Clean(full.Content)
	if text == "" {
		h.sendFallback(w, flusher)
		return
	}
	sendFinal(w, flusher, aiService.Suggestion{Text: text})
}

func (h *Handler) sendFallback(w http.ResponseWriter, flusher http.Flusher) {
	sendFinal(w, flusher, aiService.Suggestion{Text: aiService.DefaultSuggestions, Fallback: true})
}

func sendFinal(w http.ResponseWriter, flusher http.Flusher, s aiService.Suggestion) {
	utils.SendSSEEvent(w, flusher, EventMessage, StreamResponse{
		Content:   s.Text,
		Questions: s.Questions(),
		Fallback:  s.Fallback,
		Finished:  true,
	})
}
