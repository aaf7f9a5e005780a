package api

import (
	"net/http"

	"github.com/dukerupert/haat/internal/auth"
	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/handler"
	"github.com/dukerupert/haat/internal/middleware"
	"github.com/dukerupert/haat/internal/service"
)

// AuthHandler serves phone OTP login and token checks.
type AuthHandler struct {
	auth service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

type sendOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*service.OTPChallenge
}

// SendOTP handles POST /api/auth/send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	challenge, err := h.auth.SendOTP(r.Context(), req.Phone)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("otp sent", "phone", challenge.Phone)
	handler.JSON(w, http.StatusOK, sendOTPResponse{
		Success:      true,
		Message:      "OTP sent successfully",
		OTPChallenge: challenge,
	})
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type verifyOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*service.LoginResult
}

// VerifyOTP handles POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.auth.VerifyOTP(r.Context(), req.Phone, req.OTP)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, verifyOTPResponse{
		Success:     true,
		Message:     "OTP verified successfully",
		LoginResult: result,
	})
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

type verifyTokenResponse struct {
	Valid bool         `json:"valid"`
	User  *domain.User `json:"user"`
}

// VerifyToken handles POST /api/auth/verify-token. The token comes from
// the body or, failing that, the Authorization header.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if r.ContentLength != 0 {
		if err := handler.DecodeJSON(r, &req); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
	}
	if req.Token == "" {
		req.Token = auth.BearerToken(r.Header.Get("Authorization"))
	}

	user, err := h.auth.VerifyToken(r.Context(), req.Token)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, verifyTokenResponse{Valid: true, User: user})
}
