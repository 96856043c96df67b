package account

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ghostnote/ghost-note/backend/internal/middleware"
	accountService "github.com/ghostnote/ghost-note/backend/internal/service/account"
	"github.com/ghostnote/ghost-note/backend/internal/service/mail"
	"github.com/ghostnote/ghost-note/backend/pkg/utils"
)

// Handler serves registration, verification, reset and sign-in endpoints.
type Handler struct {
	svc *accountService.Service
}

func New(svc *accountService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public account routes and the acceptance toggle
// behind auth.
func (h *Handler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Post("/sign-up", h.handleSignUp)
	r.Get("/check-username-unique", h.handleCheckUsername)
	r.Post("/verify-code", h.handleVerifyCode)
	r.Get("/verify", h.handleVerificationStatus)
	r.Post("/resend-code", h.handleResendCode)
	r.Post("/forgot-password", h.handleForgotPassword)
	r.Post("/verify-otp", h.handleVerifyOTP)
	r.Post("/reset-password", h.handleResetPassword)
	r.Post("/sign-in", h.handleSignIn)

	r.With(auth).Get("/accept-messages", h.handleGetAcceptance)
	r.With(auth).Post("/accept-messages", h.handleSetAcceptance)
}

type signUpRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err := h.svc.SignUp(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		utils.RespondMessage(w, http.StatusCreated, true, "User registered successfully. Please verify your email.")
	case errors.Is(err, accountService.ErrUsernameTaken):
		utils.RespondError(w, http.StatusBadRequest, "Username already taken!")
	case errors.Is(err, accountService.ErrEmailTaken):
		utils.RespondError(w, http.StatusBadRequest, "A user with this email already exists.")
	default:
		respondMailOr(w, err, "Error registering user")
	}
}

func (h *Handler) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if !utils.ValidUsername(username) {
		utils.RespondError(w, http.StatusBadRequest, "Username must be 3-20 characters and contain only letters, numbers or underscores")
		return
	}

	available, err := h.svc.CheckUsername(r.Context(), username)
	if err != nil {
		logrus.Errorf("[account] check username failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Error checking username")
		return
	}
	if !available {
		utils.RespondError(w, http.StatusBadRequest, "Username is already taken")
		return
	}
	utils.RespondMessage(w, http.StatusOK, true, "Username is unique")
}

type verifyCodeRequest struct {
	Username string `json:"username" validate:"required"`
	Code     string `json:"code" validate:"required,len=6"`
}

func (h *Handler) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.svc.VerifyCode(r.Context(), req.Username, req.Code)
	switch {
	case err == nil:
		utils.RespondMessage(w, http.StatusOK, true, "Account verified successfully")
	case errors.Is(err, accountService.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, accountService.ErrCodeExpired):
		utils.RespondError(w, http.StatusBadRequest, "Verification code has expired. Please request a new one.")
	case errors.Is(err, accountService.ErrCodeInvalid):
		utils.RespondError(w, http.StatusBadRequest, "Incorrect verification code")
	default:
		logrus.Errorf("[account] verify code failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Error verifying user")
	}
}

func (h *Handler) handleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		utils.RespondError(w, http.StatusBadRequest, "Invalid username")
		return
	}

	verified, err := h.svc.VerificationStatus(r.Context(), username)
	switch {
	case errors.Is(err, accountService.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found")
	case err != nil:
		logrus.Errorf("[account] verification status failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Unable to fetch user")
	case verified:
		utils.RespondJSON(w, http.StatusOK, utils.Envelope{Success: true, Message: "User already verified", IsVerified: utils.Bool(true)})
	default:
		utils.RespondJSON(w, http.StatusOK, utils.Envelope{Success: true, Message: "User not verified", IsVerified: utils.Bool(false)})
	}
}

type resendRequest struct {
	Username string `json:"username" validate:"required"`
}

func (h *Handler) handleResendCode(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.svc.ResendCode(r.Context(), req.Username)
	switch {
	case err == nil:
		utils.RespondMessage(w, http.StatusOK, true, "Verification code resent successfully")
	case errors.Is(err, accountService.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found")
	default:
		respondMailOr(w, err, "Failed to resend verification code")
	}
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.svc.ForgotPassword(r.Context(), req.Email)
	switch {
	case err == nil:
		utils.RespondMessage(w, http.StatusOK, true, "Reset Password OTP sent successfully.")
	case errors.Is(err, accountService.ErrMailUnavailable):
		utils.RespondError(w, http.StatusInternalServerError, mail.ErrNotConfigured.Message)
	case errors.Is(err, accountService.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found")
	default:
		respondMailOr(w, err, "Failed to send reset password email.")
	}
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6"`
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.svc.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err == nil {
		utils.RespondMessage(w, http.StatusOK, true, "OTP verified successfully.")
		return
	}
	respondCodeError(w, err, "Failed to verify OTP.")
}

type resetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	OTP             string `json:"otp" validate:"required,len=6"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=NewPassword"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.svc.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword)
	if err == nil {
		utils.RespondMessage(w, http.StatusOK, true, "Password reset successfully")
		return
	}
	respondCodeError(w, err, "Failed to reset password.")
}

type signInRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, u, err := h.svc.SignIn(r.Context(), req.Identifier, req.Password)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, utils.Envelope{
			Success: true,
			Message: "Signed in successfully",
			Token:   token,
			User:    u,
		})
	case errors.Is(err, accountService.ErrUserNotFound):
		utils.RespondError(w, http.StatusUnauthorized, "No user found with this email or username")
	case errors.Is(err, accountService.ErrNotVerified):
		utils.RespondError(w, http.StatusForbidden, "Please verify your account before signing in")
	case errors.Is(err, accountService.ErrInvalidCredentials):
		utils.RespondError(w, http.StatusUnauthorized, "Incorrect password")
	default:
		logrus.Errorf("[account] sign in failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Error signing in")
	}
}

func (h *Handler) handleGetAcceptance(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Not authenticated!")
		return
	}

	accepting, err := h.svc.AcceptingMessages(r.Context(), claims.UserID)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, utils.Envelope{
			Success:             true,
			Message:             "Message acceptance status fetched.",
			IsAcceptingMessages: utils.Bool(accepting),
		})
	case errors.Is(err, accountService.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found.")
	default:
		logrus.Errorf("[account] fetch acceptance failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Error in fetching message acceptance status.")
	}
}

func (h *Handler) handleSetAcceptance(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Not authenticated!")
		return
	}

	accepting, err := decodeAcceptance(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	u, err := h.svc.SetAcceptingMessages(r.Context(), claims.UserID, accepting)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, utils.Envelope{
			Success:             true,
			Message:             "Message acceptance status updated successfully.",
			IsAcceptingMessages: utils.Bool(u.IsAcceptingMessages),
			User:                u,
		})
	case errors.Is(err, accountService.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "Failed to update user status to accept messages.")
	default:
		logrus.Errorf("[account] update acceptance failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to update user status to accept messages.")
	}
}

// decodeAcceptance accepts either a bare JSON boolean or {"acceptMessages": bool}.
func decodeAcceptance(r *http.Request) (bool, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return false, err
	}

	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag, nil
	}

	var payload struct {
		AcceptMessages *bool `json:"acceptMessages"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false, err
	}
	if payload.AcceptMessages == nil {
		return false, errors.New("acceptMessages is required")
	}
	return *payload.AcceptMessages, nil
}

func respondCodeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, accountService.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, accountService.ErrCodeExpired):
		utils.RespondError(w, http.StatusBadRequest, "OTP has expired. Please request a new one.")
	case errors.Is(err, accountService.ErrCodeInvalid):
		utils.RespondError(w, http.StatusBadRequest, "Invalid OTP.")
	default:
		logrus.Errorf("[account] %s: %v", fallback, err)
		utils.RespondError(w, http.StatusInternalServerError, fallback)
	}
}

// respondMailOr surfaces mail delivery problems verbatim and hides anything else.
func respondMailOr(w http.ResponseWriter, err error, fallback string) {
	var delivery *mail.DeliveryError
	if errors.As(err, &delivery) {
		logrus.Errorf("[account] mail delivery failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, delivery.Message)
		return
	}
	logrus.Errorf("[account] %s: %v", fallback, err)
	utils.RespondError(w, http.StatusInternalServerError, fallback)
}
