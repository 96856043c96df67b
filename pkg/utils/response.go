package utils

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Envelope is the JSON body shared by every API response.
type Envelope struct {
	Success             bool   `json:"success"`
	Message             string `json:"message"`
	IsAcceptingMessages *bool  `json:"isAcceptingMessages,omitempty"`
	IsVerified          *bool  `json:"isVerified,omitempty"`
	Messages            any    `json:"messages,omitempty"`
	Analytics           any    `json:"analytics,omitempty"`
	Suggestions         string `json:"suggestions,omitempty"`
	Fallback            bool   `json:"fallback,omitempty"`
	Token               string `json:"token,omitempty"`
	User                any    `json:"user,omitempty"`
}

// RespondJSON writes payload as JSON with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("failed to encode response: %v", err)
	}
}

// RespondMessage sends an envelope carrying only success and message.
func RespondMessage(w http.ResponseWriter, status int, success bool, message string) {
	RespondJSON(w, status, Envelope{Success: success, Message: message})
}

// RespondError sends an unsuccessful envelope with message.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondMessage(w, status, false, message)
}

// Bool returns a pointer to b for optional envelope fields.
func Bool(b bool) *bool {
	return &b
}
