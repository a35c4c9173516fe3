package handler

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/core/services"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)

var gradientCSS = map[domain.GradientDirection]string{
	domain.GradientToRight:       "to right",
	domain.GradientToBottomRight: "to bottom right",
	domain.GradientToBottom:      "to bottom",
	domain.GradientToBottomLeft:  "to bottom left",
	domain.GradientToLeft:        "to left",
	domain.GradientToTopLeft:     "to top left",
	domain.GradientToTop:         "to top",
	domain.GradientToTopRight:    "to top right",
}

var profileTemplate = template.Must(template.New("profile").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Bio}}">
{{if .ShareURL}}<link rel="canonical" href="{{.ShareURL}}">{{end}}
</head>
<body style="margin:0;min-height:100vh;background:{{.Style.Background}};color:{{.Style.Text}};font-family:system-ui,sans-serif">
<main style="max-width:32rem;margin:0 auto;padding:3rem 1rem;text-align:center">
{{if .AvatarURL}}<img src="{{.AvatarURL}}" alt="{{.Title}}" width="96" height="96" style="border-radius:50%">{{end}}
<h1>{{.Title}}</h1>
<p>{{.Bio}}</p>
{{range .Links}}<a href="{{.Href}}" rel="noopener" data-icon="{{.Icon}}" style="display:block;margin:.75rem 0;padding:1rem;border-radius:.75rem;text-decoration:none;background:{{$.Style.Card}};color:{{$.Style.Primary}}">{{.Title}}</a>
{{end}}
</main>
</body>
</html>
`))

var notFoundTemplate = template.Must(template.New("notfound").Parse(`<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>Profile not found</title></head>
<body style="font-family:system-ui,sans-serif;text-align:center;padding:3rem 1rem">
<h1>Profile not found</h1>
<p>This page doesn't exist or isn't public.</p>
</body></html>
`))

type publicLink struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Icon   string `json:"icon"`
	Domain string `json:"domain"`
	Href   string `json:"href"`
	IsPaid bool   `json:"isPaid,omitempty"`
}

type pageStyle struct {
	Background template.CSS `json:"-"`
	Text       template.CSS `json:"-"`
	Card       template.CSS `json:"-"`
	Primary    template.CSS `json:"-"`
}

type publicProfile struct {
	ID        string       `json:"id"`
	Username  string       `json:"username,omitempty"`
	Title     string       `json:"title"`
	Bio       string       `json:"bio"`
	AvatarURL string       `json:"avatarUrl,omitempty"`
	Theme     domain.Theme `json:"theme"`
	Links     []publicLink `json:"links"`
	ShareURL  string       `json:"shareUrl,omitempty"`
	Style     pageStyle    `json:"-"`
}

// ViewerHandler serves public profile pages and counts views and clicks
type ViewerHandler struct {
	workspaces *services.Workspaces
	origin     string
	logger     *observability.Logger
}

func NewViewerHandler(workspaces *services.Workspaces, origin string, logger *observability.Logger) *ViewerHandler {
	return &ViewerHandler{workspaces: workspaces, origin: origin, logger: logger}
}

func safeColor(c, fallback string) template.CSS {
	if hexColor.MatchString(c) {
		return template.CSS(c)
	}
	return template.CSS(fallback)
}

func styleFor(t domain.Theme) pageStyle {
	def := domain.DefaultTheme()
	s := pageStyle{
		Background: safeColor(t.BackgroundColor, def.BackgroundColor),
		Text:       safeColor(t.TextColor, def.TextColor),
		Card:       safeColor(t.CardColor, def.CardColor),
		Primary:    safeColor(t.PrimaryColor, def.PrimaryColor),
	}
	if g := t.BackgroundGradient; g != nil && hexColor.MatchString(g.From) && hexColor.MatchString(g.To) {
		if dir, ok := gradientCSS[g.Direction]; ok {
			s.Background = template.CSS("linear-gradient(" + dir + ", " + g.From + ", " + g.To + ")")
		}
	}
	return s
}

// present builds the public view: active links in display order, each
// pointing at the click-tracking redirect under base.
func (h *ViewerHandler) present(p *domain.Profile, base string) publicProfile {
	out := publicProfile{
		ID:        p.ID,
		Username:  p.Username,
		Title:     p.Title,
		Bio:       p.Bio,
		AvatarURL: p.AvatarURL,
		Theme:     p.Theme,
		Links:     []publicLink{},
		ShareURL:  domain.ShareableURL(h.origin, p),
		Style:     styleFor(p.Theme),
	}
	for _, l := range p.ActiveLinks() {
		out.Links = append(out.Links, publicLink{
			ID:     l.ID,
			Title:  l.Title,
			URL:    l.URL,
			Icon:   l.Icon,
			Domain: domain.DomainFromURL(l.URL),
			Href:   base + "/links/" + url.PathEscape(l.ID),
			IsPaid: l.IsPaid,
		})
	}
	return out
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (h *ViewerHandler) notFound(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "profile not found"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_ = notFoundTemplate.Execute(w, nil)
}

type resolver func(ctx context.Context, key string) (*services.ProfileStore, *domain.Profile, error)

func (h *ViewerHandler) resolve(w http.ResponseWriter, r *http.Request, find resolver, key string) (*services.ProfileStore, *domain.Profile, bool) {
	store, p, err := find(r.Context(), key)
	if err != nil {
		if !domain.IsNotFound(err) {
			h.logger.Error(r.Context(), "Failed to resolve public profile", err)
		}
		h.notFound(w, r)
		return nil, nil, false
	}
	return store, p, true
}

func (h *ViewerHandler) render(w http.ResponseWriter, r *http.Request, store *services.ProfileStore, p *domain.Profile, base string) {
	if err := store.TrackView(r.Context(), p.ID); err != nil {
		h.logger.WarnWithError(r.Context(), "Failed to track view", err)
	}

	view := h.present(p, base)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := profileTemplate.Execute(w, view); err != nil {
		h.logger.Error(r.Context(), "Failed to render profile page", err)
	}
}

func (h *ViewerHandler) click(w http.ResponseWriter, r *http.Request, store *services.ProfileStore, p *domain.Profile) {
	link := p.FindLink(r.PathValue("linkID"))
	if link == nil || !link.IsActive {
		h.notFound(w, r)
		return
	}
	if err := store.TrackClick(r.Context(), p.ID, link.ID); err != nil {
		h.logger.WarnWithError(r.Context(), "Failed to track click", err)
	}
	http.Redirect(w, r, link.URL, http.StatusFound)
}

func (h *ViewerHandler) ByUsername(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	store, p, ok := h.resolve(w, r, h.workspaces.ResolveUsername, username)
	if !ok {
		return
	}
	h.render(w, r, store, p, "/u/"+url.PathEscape(username))
}

func (h *ViewerHandler) ByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	store, p, ok := h.resolve(w, r, h.workspaces.ResolveProfileID, id)
	if !ok {
		return
	}
	h.render(w, r, store, p, "/profile/"+url.PathEscape(id))
}

func (h *ViewerHandler) ClickByUsername(w http.ResponseWriter, r *http.Request) {
	store, p, ok := h.resolve(w, r, h.workspaces.ResolveUsername, r.PathValue("username"))
	if !ok {
		return
	}
	h.click(w, r, store, p)
}

func (h *ViewerHandler) ClickByID(w http.ResponseWriter, r *http.Request) {
	store, p, ok := h.resolve(w, r, h.workspaces.ResolveProfileID, r.PathValue("id"))
	if !ok {
		return
	}
	h.click(w, r, store, p)
}
