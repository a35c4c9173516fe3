package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wadjakorntonsri/linkora/pkg/config"
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/core/forms"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookie    = "oauthstate"
	googleUserInfo = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateTTL  = 20 * time.Minute
)

type AuthHandler struct {
	auth         ports.AuthService
	logger       *observability.Logger
	oauthConfig  *oauth2.Config
	userInfoURL  string
	frontendURL  string
	isProduction bool
}

type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func NewAuthHandler(cfg *config.Config, auth ports.AuthService, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL:  googleUserInfo,
		frontendURL:  cfg.FrontendURL,
		isProduction: cfg.IsProduction(),
	}
}

type sessionResponse struct {
	User      *domain.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, s *ports.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.Token,
		Expires:  s.ExpiresAt,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req forms.Credentials
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	creds, err := req.Validate()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	session, err := h.auth.SignUp(r.Context(), creds.Email, creds.Password, creds.Username)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.setSessionCookie(w, session)
	writeJSON(w, http.StatusCreated, sessionResponse{User: session.User, ExpiresAt: session.ExpiresAt})
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req forms.Credentials
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, r, h.logger, errBadRequest("Email and password are required"))
		return
	}

	session, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, sessionResponse{User: session.User, ExpiresAt: session.ExpiresAt})
}

// SignOut revokes the presented token. A missing or already invalid token
// still clears the cookie.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if token := tokenFrom(r); token != "" {
		if err := h.auth.SignOut(r.Context(), token); err != nil {
			h.logger.WarnWithError(r.Context(), "Sign out failed", err)
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	s := SessionFrom(r.Context())
	if s == nil {
		writeError(w, r, h.logger, errUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: s.User, ExpiresAt: s.ExpiresAt})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.generateStateOauthCookie(w)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	url := h.oauthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	oauthState, err := r.Cookie(stateCookie)
	if err != nil {
		h.logger.WarnWithError(ctx, "Callback error: missing oauthstate cookie", err)
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	if r.FormValue("state") != oauthState.Value {
		h.logger.Warn(ctx, "Callback error: invalid oauth state")
		writeError(w, r, h.logger, errBadRequest("invalid oauth google state"))
		return
	}

	token, err := h.oauthConfig.Exchange(ctx, r.FormValue("code"))
	if err != nil {
		h.logger.Error(ctx, "Callback error: code exchange failed", err)
		writeError(w, r, h.logger, errBadRequest("code exchange failed"))
		return
	}

	googleUser, err := h.fetchGoogleUser(r, token)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	session, err := h.auth.SignInWithProvider(ctx, googleUser.Email, googleUser.Name, googleUser.Picture)
	if err != nil {
		h.logger.WarnWithError(observability.WithFields(ctx,
			observability.Field{Key: "email", Value: observability.RedactEmail(googleUser.Email)},
		), "Callback error: provider sign-in rejected", err)
		writeError(w, r, h.logger, err)
		return
	}

	h.setSessionCookie(w, session)
	h.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "user_id", Value: session.User.ID},
	), "Login successful")
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) fetchGoogleUser(r *http.Request, token *oauth2.Token) (*GoogleUser, error) {
	client := h.oauthConfig.Client(r.Context(), token)
	response, err := client.Get(h.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get user info: status %d", response.StatusCode)
	}

	var googleUser GoogleUser
	if err := json.NewDecoder(response.Body).Decode(&googleUser); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	if googleUser.Email == "" || !googleUser.VerifiedEmail {
		return nil, errBadRequest("Google account has no verified email")
	}
	return &googleUser, nil
}

// Logout signs out and returns the browser to the frontend
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := tokenFrom(r); token != "" {
		_ = h.auth.SignOut(r.Context(), token)
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) generateStateOauthCookie(w http.ResponseWriter) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("oauth state: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Expires:  time.Now().Add(oauthStateTTL),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}
