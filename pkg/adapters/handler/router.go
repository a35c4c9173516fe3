package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/wadjakorntonsri/linkora/pkg/config"
	"github.com/wadjakorntonsri/linkora/pkg/core/services"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, workspaces *services.Workspaces, auth ports.AuthService, qrRenderer ports.QRRenderer, logger *observability.Logger) http.Handler {
	h := NewHTTPHandler(workspaces, auth, qrRenderer, logger)
	vh := NewViewerHandler(workspaces, cfg.BaseURL, logger)
	authHandler := NewAuthHandler(cfg, auth, logger)
	mw := NewMiddleware(auth, logger)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	mux.HandleFunc("GET /u/{username}", vh.ByUsername)
	mux.HandleFunc("GET /u/{username}/links/{linkID}", vh.ClickByUsername)
	mux.HandleFunc("GET /profile/{id}", vh.ByID)
	mux.HandleFunc("GET /profile/{id}/links/{linkID}", vh.ClickByID)
	mux.HandleFunc("GET /api/v1/themes", h.Themes)
	mux.HandleFunc("GET /api/v1/plans", h.Plans)

	// Auth Routes
	mux.HandleFunc("POST /auth/signup", authHandler.SignUp)
	mux.HandleFunc("POST /auth/signin", authHandler.SignIn)
	mux.HandleFunc("POST /auth/signout", authHandler.SignOut)
	mux.Handle("GET /auth/session", mw.OptionalSession(http.HandlerFunc(authHandler.Session)))
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// Editor Routes
	editor := http.NewServeMux()
	editor.HandleFunc("GET /api/v1/state", h.withStore(h.State))
	editor.HandleFunc("POST /api/v1/reset", h.withStore(h.ResetStore))

	editor.HandleFunc("GET /api/v1/profiles", h.withStore(h.ListProfiles))
	editor.HandleFunc("POST /api/v1/profiles", h.withStore(h.CreateProfile))
	editor.HandleFunc("GET /api/v1/profiles/{id}", h.withStore(h.GetProfile))
	editor.HandleFunc("DELETE /api/v1/profiles/{id}", h.withStore(h.DeleteProfile))
	editor.HandleFunc("POST /api/v1/profiles/{id}/switch", h.withStore(h.SwitchProfile))

	editor.HandleFunc("GET /api/v1/profile", h.withStore(h.CurrentProfile))
	editor.HandleFunc("PUT /api/v1/profile", h.withStore(h.ReplaceProfile))
	editor.HandleFunc("PATCH /api/v1/profile", h.withStore(h.UpdateProfile))
	editor.HandleFunc("PATCH /api/v1/profile/theme", h.withStore(h.UpdateTheme))
	editor.HandleFunc("PUT /api/v1/profile/theme/preset", h.withStore(h.SetThemePreset))

	editor.HandleFunc("POST /api/v1/links", h.withStore(h.AddLink))
	editor.HandleFunc("PATCH /api/v1/links/{id}", h.withStore(h.UpdateLink))
	editor.HandleFunc("DELETE /api/v1/links/{id}", h.withStore(h.DeleteLink))
	editor.HandleFunc("POST /api/v1/links/{id}/toggle", h.withStore(h.ToggleLink))
	editor.HandleFunc("POST /api/v1/links/reorder", h.withStore(h.ReorderLinks))

	editor.HandleFunc("GET /api/v1/share", h.withStore(h.Share))
	editor.HandleFunc("GET /api/v1/features", h.withStore(h.Features))
	editor.HandleFunc("GET /api/v1/features/{feature}", h.withStore(h.Feature))
	editor.HandleFunc("GET /api/v1/qrcode", h.withStore(h.QRCode))
	editor.HandleFunc("GET /api/v1/analytics", h.withStore(h.AnalyticsReport))
	editor.HandleFunc("PUT /api/v1/analytics", h.withStore(h.SetAnalytics))

	editor.HandleFunc("GET /api/v1/me", h.withStore(h.Me))
	editor.HandleFunc("PATCH /api/v1/me", h.withStore(h.UpdateMe))

	// More specific public patterns above take precedence over this prefix
	mux.Handle("/api/v1/", mw.OptionalSession(editor))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", observability.RequestIDHeader},
		ExposedHeaders:   []string{observability.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return observability.Middleware(logger)(c.Handler(mux))
}
