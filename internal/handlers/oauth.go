package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/foodkeeper/foodkeeper/internal/auth"
	"github.com/foodkeeper/foodkeeper/internal/logger"
	"github.com/foodkeeper/foodkeeper/internal/services/google"
)

const oauthStateCookie = "oauthstate"

// OAuthHandler handles the Google federated login flow
type OAuthHandler struct {
	svc         *auth.Service
	google      *google.Client
	frontendURL string
	log         *zap.Logger
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(svc *auth.Service, googleClient *google.Client, frontendURL string, log *zap.Logger) *OAuthHandler {
	return &OAuthHandler{svc: svc, google: googleClient, frontendURL: frontendURL, log: log}
}

// RegisterRoutes registers OAuth routes on the given router
func (h *OAuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/google", h.GoogleLogin).Methods("GET")
	r.HandleFunc("/callback/google", h.GoogleCallback).Methods("GET")
}

// GoogleLogin redirects the browser to the Google consent screen
func (h *OAuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := google.NewState()
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to start login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback completes the code exchange, reconciles the identity and
// hands the session token to the frontend via a redirect query parameter.
func (h *OAuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.redirectError(w, r, "invalid_state")
		return
	}

	// Clear the state cookie, it is single-use
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectError(w, r, "missing_code")
		return
	}

	ctx := r.Context()
	assertion, err := h.google.Exchange(ctx, code)
	if err != nil {
		h.log.Warn("google_exchange_failed", zap.String("error", logger.SanitizeError(err)))
		h.redirectError(w, r, "exchange_failed")
		return
	}

	token, _, err := h.svc.FederatedLogin(ctx, assertion)
	if err != nil {
		h.log.Error("federated_login_failed", zap.String("error", logger.SanitizeError(err)))
		h.redirectError(w, r, "login_failed")
		return
	}

	http.Redirect(w, r, fmt.Sprintf("%s/oauth/success?token=%s", h.frontendURL, url.QueryEscape(token)), http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) redirectError(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, fmt.Sprintf("%s/oauth/error?reason=%s", h.frontendURL, url.QueryEscape(reason)), http.StatusTemporaryRedirect)
}
