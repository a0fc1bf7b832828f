package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/foodkeeper/foodkeeper/internal/auth"
	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/foodkeeper/foodkeeper/internal/request"
	"github.com/foodkeeper/foodkeeper/internal/validation"
)

// AuthHandler handles registration, login and OTP flows
type AuthHandler struct {
	svc *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// RegisterRoutes registers auth routes on the given router
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/signup", h.Signup).Methods("POST")
	r.HandleFunc("/signin", h.Signin).Methods("POST")
	r.HandleFunc("/verify-otp", h.VerifyOTP).Methods("POST")
	r.HandleFunc("/validate-otp", h.ValidateOTP).Methods("POST")
	r.HandleFunc("/resend-otp", h.ResendOTP).Methods("POST")
	r.HandleFunc("/forgot-password", h.ForgotPassword).Methods("POST")
	r.HandleFunc("/reset-password", h.ResetPassword).Methods("POST")
}

// SignupRequest represents a registration request
type SignupRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72,password_strength"`
}

// SigninRequest represents a login request
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyOTPRequest represents an email verification request
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"otp" validate:"required,otp_code"`
}

// ValidateOTPRequest represents a non-consuming code validity probe
type ValidateOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"otp" validate:"required,otp_code"`
	Type  string `json:"type" validate:"required,otp_type"`
}

// EmailRequest carries a bare email, used by resend and forgot-password
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents a password reset request
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"otp" validate:"required,otp_code"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72,password_strength"`
}

// TokenResponse carries an issued session token
type TokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// decodeAndValidate decodes a JSON body into dst and runs validation
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return false
	}

	if err := validation.Validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Invalid field: %s", verrs[0].Field()))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}

// Signup registers a new local account and sends a verification code
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.svc.Register(r.Context(), auth.RegisterInput{
		FirstName: validation.SanitizeText(req.FirstName),
		LastName:  validation.SanitizeText(req.LastName),
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			respondJSONError(w, http.StatusConflict, "Conflict", "An account with this email already exists")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to register")
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// Signin authenticates a local account and issues a session token
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailNotVerified):
			respondJSONError(w, http.StatusForbidden, "Forbidden", "Email address is not verified")
		case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrBadCredentials):
			// Same answer for unknown account and wrong password
			respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid email or password")
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to sign in")
		}
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{Token: token, User: user})
}

// VerifyOTP consumes an email-verification code
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidOTP):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid or expired code")
		case errors.Is(err, auth.ErrUserNotFound):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid or expired code")
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to verify email")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Email verified"})
}

// ValidateOTP reports whether a code is currently valid without consuming
// it. Used by the frontend to check a reset code before showing the
// new-password form; the actual reset still verifies for real.
func (h *AuthHandler) ValidateOTP(w http.ResponseWriter, r *http.Request) {
	var req ValidateOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	valid, err := h.svc.CheckOTP(r.Context(), req.Email, req.Code, models.OTPType(req.Type))
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to validate code")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// ResendOTP issues a fresh email-verification code
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			respondJSONError(w, http.StatusNotFound, "Not Found", "No account with this email")
		case errors.Is(err, auth.ErrAlreadyVerified):
			respondJSONError(w, http.StatusConflict, "Conflict", "Email is already verified")
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to resend code")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Verification code sent"})
}

// ForgotPassword issues a password-reset code. Responds the same whether
// or not the account exists, so the endpoint cannot be used to probe for
// registered emails.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil && !errors.Is(err, auth.ErrUserNotFound) {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to send reset code")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "If the account exists, a reset code was sent"})
}

// ResetPassword consumes a reset code and installs a new password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidOTP), errors.Is(err, auth.ErrUserNotFound):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid or expired code")
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to reset password")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
