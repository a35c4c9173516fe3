package handler

import (
	"context"
	"image/color"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/wadjakorntonsri/linkora/pkg/adapters/qr"
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/core/forms"
	"github.com/wadjakorntonsri/linkora/pkg/core/services"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

// HTTPHandler serves the editor API. Anonymous requests edit the default
// workspace; signed-in requests edit the user's own workspace.
type HTTPHandler struct {
	workspaces *services.Workspaces
	auth       ports.AuthService
	qr         ports.QRRenderer
	plans      domain.PlanCatalog
	logger     *observability.Logger
	now        func() time.Time
}

func NewHTTPHandler(workspaces *services.Workspaces, auth ports.AuthService, qrRenderer ports.QRRenderer, logger *observability.Logger) *HTTPHandler {
	return &HTTPHandler{
		workspaces: workspaces,
		auth:       auth,
		qr:         qrRenderer,
		plans:      domain.DefaultPlans(),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type storeHandler func(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error

// withStore resolves the request's workspace and maps returned errors
func (h *HTTPHandler) withStore(fn storeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := h.store(r)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		if err := fn(w, r, store); err != nil {
			writeError(w, r, h.logger, err)
		}
	}
}

func (h *HTTPHandler) store(r *http.Request) (*services.ProfileStore, error) {
	ctx := r.Context()
	session := SessionFrom(ctx)
	if session == nil {
		return h.workspaces.Get(ctx, "")
	}
	store, err := h.workspaces.ForUser(ctx, session.User.ID)
	if err != nil {
		return nil, err
	}
	// the account row may have changed outside this process, e.g. a plan change
	if u := store.User(); u == nil || u.ID != session.User.ID || u.UpdatedAt.Before(session.User.UpdatedAt) {
		store.SetUser(ctx, session.User)
	}
	return store, nil
}

func (h *HTTPHandler) checkUsername(ctx context.Context, username, profileID string) error {
	if username == "" {
		return nil
	}
	taken, err := h.workspaces.UsernameTaken(ctx, username, profileID)
	if err != nil {
		return err
	}
	if taken {
		return errUsernameTaken
	}
	return nil
}

func writeCurrent(w http.ResponseWriter, store *services.ProfileStore) error {
	p := store.CurrentProfile()
	if p == nil {
		return domain.ErrNoCurrentProfile
	}
	writeJSON(w, http.StatusOK, p)
	return nil
}

type stateResponse struct {
	*domain.Snapshot
	ShareableURL string                  `json:"shareableUrl"`
	UsernameURL  string                  `json:"usernameUrl"`
	Features     map[domain.Feature]bool `json:"features"`
}

func featureMap(store *services.ProfileStore) map[domain.Feature]bool {
	out := map[domain.Feature]bool{}
	for _, f := range domain.Features() {
		out[f] = store.CanUseFeature(f)
	}
	return out
}

func (h *HTTPHandler) State(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	writeJSON(w, http.StatusOK, stateResponse{
		Snapshot:     store.Snapshot(),
		ShareableURL: store.GenerateShareableURL(),
		UsernameURL:  store.GenerateUsernameURL(),
		Features:     featureMap(store),
	})
	return nil
}

func (h *HTTPHandler) ResetStore(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	store.ResetStore(r.Context())
	if s := SessionFrom(r.Context()); s != nil {
		store.SetUser(r.Context(), s.User)
	}
	writeJSON(w, http.StatusOK, store.Snapshot())
	return nil
}

// Profiles

func (h *HTTPHandler) ListProfiles(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	writeJSON(w, http.StatusOK, store.Profiles())
	return nil
}

type createProfileRequest struct {
	forms.ProfileForm
	Theme    *domain.Theme `json:"theme,omitempty"`
	Preset   string        `json:"preset,omitempty"`
	IsPublic *bool         `json:"isPublic,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *HTTPHandler) CreateProfile(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	var req createProfileRequest
	if err := decodeJSON(r, &req, true); err != nil {
		return err
	}
	u, err := req.ProfileForm.Validate()
	if err != nil {
		return err
	}
	draft := domain.ProfileDraft{
		Title:        u.Title,
		Bio:          u.Bio,
		Username:     deref(u.Username),
		AvatarURL:    deref(u.AvatarURL),
		CustomDomain: deref(u.CustomDomain),
		Theme:        req.Theme,
		IsPublic:     req.IsPublic,
	}
	if req.Preset != "" {
		preset, ok := domain.FindPreset(req.Preset)
		if !ok {
			return domain.ErrPresetNotFound
		}
		draft.Theme = &preset.Theme
	}
	if err := h.checkUsername(r.Context(), draft.Username, ""); err != nil {
		return err
	}
	e := h.entitlements(store)
	if err := e.checkProfiles(len(store.Profiles()) + 1); err != nil {
		return err
	}
	if err := e.checkCustomDomain(draft.CustomDomain); err != nil {
		return err
	}
	if draft.Theme != nil {
		if err := e.checkTheme(domain.Theme{}, *draft.Theme); err != nil {
			return err
		}
	}

	p, err := store.CreateProfile(r.Context(), draft)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, p)
	return nil
}

func (h *HTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	p, err := store.Profile(r.PathValue("id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, p)
	return nil
}

func (h *HTTPHandler) DeleteProfile(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	if err := store.DeleteProfile(r.Context(), r.PathValue("id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *HTTPHandler) SwitchProfile(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	if err := store.SwitchProfile(r.Context(), r.PathValue("id")); err != nil {
		return err
	}
	return writeCurrent(w, store)
}

func (h *HTTPHandler) CurrentProfile(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	return writeCurrent(w, store)
}

// ReplaceProfile upserts a whole profile and makes it current
func (h *HTTPHandler) ReplaceProfile(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	var p domain.Profile
	if err := decodeJSON(r, &p, false); err != nil {
		return err
	}
	if p.ID == "" {
		return errBadRequest("Profile id is required")
	}
	if p.Username != "" {
		u, err := forms.ProfileForm{Username: &p.Username}.Validate()
		if err != nil {
			return err
		}
		p.Username = *u.Username
	}
	if err := h.checkUsername(r.Context(), p.Username, p.ID); err != nil {
		return err
	}
	if err := h.checkReplace(store, &p); err != nil {
		return err
	}
	store.SetCurrentProfile(r.Context(), &p)
	return writeCurrent(w, store)
}

// checkReplace applies the plan to what a replacement adds: a new profile,
// extra links, a different custom domain or a different theme.
func (h *HTTPHandler) checkReplace(store *services.ProfileStore, p *domain.Profile) error {
	e := h.entitlements(store)
	var existing domain.Profile
	if prev, err := store.Profile(p.ID); err == nil {
		existing = *prev
	} else if err := e.checkProfiles(len(store.Profiles()) + 1); err != nil {
		return err
	}
	if len(p.Links) > len(existing.Links) {
		if err := e.checkLinks(len(p.Links)); err != nil {
			return err
		}
	}
	if p.CustomDomain != existing.CustomDomain {
		if err := e.checkCustomDomain(p.CustomDomain); err != nil {
			return err
		}
	}
	return e.checkTheme(existing.Theme, p.Theme)
}

func (h *HTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	var req forms.ProfileForm
	if err := decodeJSON(r, &req, false); err != nil {
		return err
	}
	u, err := req.Validate()
	if err != nil {
		return err
	}
	current := store.CurrentProfile()
	if current == nil {
		return domain.ErrNoCurrentProfile
	}
	if err := h.checkUsername(r.Context(), deref(u.Username), current.ID); err != nil {
		return err
	}
	if u.CustomDomain != nil && *u.CustomDomain != current.CustomDomain {
		if err := h.entitlements(store).checkCustomDomain(*u.CustomDomain); err != nil {
			return err
		}
	}
	if err := store.UpdateProfile(r.Context(), u); err != nil {
		return err
	}
	return writeCurrent(w, store)
}

func (h *HTTPHandler) UpdateTheme(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	var u domain.ThemeUpdate
	if err := decodeJSON(r, &u, false); err != nil {
		return err
	}
	if g := u.BackgroundGradient; g != nil && !g.Direction.Valid() {
		return errBadRequest("Invalid gradient direction")
	}
	current := store.CurrentProfile()
	if current == nil {
		return domain.ErrNoCurrentProfile
	}
	if err := h.entitlements(store).checkTheme(current.Theme, current.Theme.Merge(u)); err != nil {
		return err
	}
	if err := store.UpdateTheme(r.Context(), u); err != nil {
		return err
	}
	return writeCurrent(w, store)
}

type presetRequest struct {
	Name string `json:"name"`
}

func (h *HTTPHandler) SetThemePreset(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	var req presetRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return err
	}
	if preset, ok := domain.FindPreset(req.Name); ok {
		if current := store.CurrentProfile(); current != nil {
			if err := h.entitlements(store).checkTheme(current.Theme, preset.Theme); err != nil {
				return err
			}
		}
	}
	if err := store.SetThemePreset(r.Context(), req.Name); err != nil {
		return err
	}
	return writeCurrent(w, store)
}

// Links

func (h *HTTPHandler) AddLink(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	var form forms.LinkForm
	if err := decodeJSON(r, &form, false); err != nil {
		return err
	}
	in, err := form.Validate()
	if err != nil {
		return err
	}
	current := store.CurrentProfile()
	if current == nil {
		return domain.ErrNoCurrentProfile
	}
	if err := h.entitlements(store).checkLinks(len(current.Links) + 1); err != nil {
		return err
	}
	link, err := store.AddLink(r.Context(), in)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, link)
	return nil
}

func (h *HTTPHandler) UpdateLink(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	var req domain.LinkUpdate
	if err := decodeJSON(r, &req, false); err != nil {
		return err
	}
	u, err := forms.LinkPatch(req)
	if err != nil {
		return err
	}
	if err := store.UpdateLink(r.Context(), r.PathValue("id"), u); err != nil {
		return err
	}
	return writeCurrent(w, store)
}

func (h *HTTPHandler) DeleteLink(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	if err := store.DeleteLink(r.Context(), r.PathValue("id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *HTTPHandler) ToggleLink(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	if err := store.ToggleLinkActive(r.Context(), r.PathValue("id")); err != nil {
		return err
	}
	return writeCurrent(w, store)
}

type reorderRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

func (h *HTTPHandler) ReorderLinks(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	var req reorderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return err
	}
	if req.From == nil || req.To == nil {
		return errBadRequest("from and to are required")
	}
	if err := store.ReorderLinks(r.Context(), *req.From, *req.To); err != nil {
		return err
	}
	return writeCurrent(w, store)
}

// Sharing and plan features

type shareResponse struct {
	ShareableURL string `json:"shareableUrl"`
	UsernameURL  string `json:"usernameUrl"`
}

func (h *HTTPHandler) Share(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	writeJSON(w, http.StatusOK, shareResponse{
		ShareableURL: store.GenerateShareableURL(),
		UsernameURL:  store.GenerateUsernameURL(),
	})
	return nil
}

type featuresResponse struct {
	Plan     domain.SubscriptionPlan `json:"plan"`
	Features map[domain.Feature]bool `json:"features"`
}

func (h *HTTPHandler) Features(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	writeJSON(w, http.StatusOK, featuresResponse{
		Plan:     domain.PlanFor(store.User(), h.plans),
		Features: featureMap(store),
	})
	return nil
}

type featureResponse struct {
	Feature domain.Feature `json:"feature"`
	Allowed bool           `json:"allowed"`
}

func (h *HTTPHandler) Feature(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	f := domain.Feature(r.PathValue("feature"))
	if !slices.Contains(domain.Features(), f) {
		return errBadRequest("Unknown feature")
	}
	writeJSON(w, http.StatusOK, featureResponse{Feature: f, Allowed: store.CanUseFeature(f)})
	return nil
}

// QRCode renders the current profile's share URL as a PNG
func (h *HTTPHandler) QRCode(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	if !h.entitlements(store).allows(domain.FeatureQRCodes) {
		return domain.ErrFeatureNotAvailable
	}
	url := store.GenerateShareableURL()
	if url == "" {
		return domain.ErrNoCurrentProfile
	}

	q := r.URL.Query()
	size, _ := strconv.Atoi(q.Get("size"))
	fg, err := optionalColor(q.Get("fg"))
	if err != nil {
		return err
	}
	bg, err := optionalColor(q.Get("bg"))
	if err != nil {
		return err
	}

	png, err := h.qr.Render(url, qr.NormalizeSize(size), fg, bg)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, err = w.Write(png)
	return err
}

func optionalColor(s string) (color.Color, error) {
	if s == "" {
		return nil, nil
	}
	c, err := qr.ParseHexColor(s)
	if err != nil {
		return nil, errBadRequest("Invalid color")
	}
	return c, nil
}

// Analytics

func (h *HTTPHandler) AnalyticsReport(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	if !h.entitlements(store).allows(domain.FeatureAnalytics) {
		return domain.ErrFeatureNotAvailable
	}
	rangeKey := r.URL.Query().Get("range")
	if rangeKey == "" {
		rangeKey = "7d"
	}
	days, ok := services.ReportRanges[rangeKey]
	if !ok {
		return errBadRequest("range must be one of 7d, 30d, 90d")
	}

	var p *domain.Profile
	if id := r.URL.Query().Get("profileId"); id != "" {
		var err error
		if p, err = store.Profile(id); err != nil {
			return err
		}
	} else if p = store.CurrentProfile(); p == nil {
		return domain.ErrNoCurrentProfile
	}

	writeJSON(w, http.StatusOK, services.BuildReport(*p, store.Analytics(p.ID), h.now(), days))
	return nil
}

// SetAnalytics replaces one profile's counters; a null body clears them all
func (h *HTTPHandler) SetAnalytics(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	var a *domain.Analytics
	if err := decodeJSON(r, &a, false); err != nil {
		return err
	}
	if a != nil && a.ProfileID != "" {
		if _, err := store.Profile(a.ProfileID); err != nil {
			return err
		}
	}
	store.SetAnalytics(r.Context(), a)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Account

func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	u := store.User()
	if u == nil {
		return errUnauthorized
	}
	writeJSON(w, http.StatusOK, u)
	return nil
}

// UpdateMe edits the account. Signed-in edits go through the auth service,
// which feeds the change back into the workspace; anonymous workspaces only
// update their cached user.
func (h *HTTPHandler) UpdateMe(w http.ResponseWriter, r *http.Request, store *services.ProfileStore) error {
	var u domain.UserUpdate
	if err := decodeJSON(r, &u, false); err != nil {
		return err
	}
	if u.Username != nil && *u.Username != "" {
		checked, err := forms.ProfileForm{Username: u.Username}.Validate()
		if err != nil {
			return err
		}
		u.Username = checked.Username
	}

	if s := SessionFrom(r.Context()); s != nil {
		user, err := h.auth.UpdateUser(r.Context(), s.User.ID, u)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, user)
		return nil
	}
	if err := store.UpdateUser(r.Context(), u); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, store.User())
	return nil
}

// Catalogs

func (h *HTTPHandler) Themes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.ThemePresets())
}

func (h *HTTPHandler) Plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.plans)
}
