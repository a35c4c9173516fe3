package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// iconRules is checked in order; the first domain fragment contained in the
// hostname wins.
var iconRules = []struct {
	fragment string
	icon     string
}{
	{"github.com", "github"},
	{"twitter.com", "twitter"},
	{"x.com", "twitter"},
	{"instagram.com", "instagram"},
	{"linkedin.com", "linkedin"},
	{"youtube.com", "youtube"},
	{"tiktok.com", "music"},
	{"facebook.com", "facebook"},
	{"discord.com", "message-circle"},
	{"twitch.tv", "twitch"},
	{"spotify.com", "music"},
	{"apple.com", "music"},
	{"soundcloud.com", "music"},
	{"pinterest.com", "image"},
	{"behance.net", "palette"},
	{"dribbble.com", "palette"},
	{"medium.com", "book-open"},
	{"dev.to", "code"},
	{"stackoverflow.com", "help-circle"},
	{"reddit.com", "message-square"},
	{"telegram.org", "send"},
	{"whatsapp.com", "message-circle"},
	{"snapchat.com", "camera"},
	{"vimeo.com", "play"},
	{"etsy.com", "shopping-bag"},
	{"amazon.com", "shopping-cart"},
	{"paypal.com", "credit-card"},
	{"ko-fi.com", "coffee"},
	{"patreon.com", "heart"},
	{"onlyfans.com", "user"},
	{"substack.com", "mail"},
	{"newsletter", "mail"},
	{"email", "mail"},
}

const (
	IconMail    = "mail"
	IconDefault = "link"
)

// FormatURL prefixes a protocol: mailto: for addresses, https:// otherwise
func FormatURL(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "@") && !strings.HasPrefix(raw, "mailto:") {
		return "mailto:" + raw
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") && !strings.HasPrefix(raw, "mailto:") {
		return "https://" + raw
	}
	return raw
}

// IsValidURL reports whether raw is an absolute URL. mailto: URLs need an
// address; every other scheme needs a host.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return false
	}
	if u.Scheme == "mailto" {
		return u.Opaque != ""
	}
	return u.Host != ""
}

// IconForURL derives an icon tag from the URL's hostname
func IconForURL(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		host := strings.ToLower(u.Hostname())
		if host != "" {
			for _, rule := range iconRules {
				if strings.Contains(host, rule.fragment) {
					return rule.icon
				}
			}
		}
	}
	if strings.HasPrefix(raw, "mailto:") || strings.Contains(raw, "@") {
		return IconMail
	}
	return IconDefault
}

// DomainFromURL returns the display domain of a link
func DomainFromURL(raw string) string {
	if strings.HasPrefix(raw, "mailto:") {
		return strings.TrimPrefix(raw, "mailto:")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[\s_-]+`)
)

// Slug turns free text into a url-safe username suggestion
func Slug(text string) string {
	s := strings.ToLower(text)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

const usernamePlaceholder = "username"

// ShareableURL is {origin}/u/{username}, or {origin}/profile/{id} when the
// profile has no username. It is empty when origin is unknown.
func ShareableURL(origin string, p *Profile) string {
	origin = strings.TrimRight(origin, "/")
	if origin == "" || p == nil {
		return ""
	}
	if p.Username != "" {
		return origin + "/u/" + url.PathEscape(p.Username)
	}
	return origin + "/profile/" + url.PathEscape(p.ID)
}

// UsernameURL is {origin}/u/{username}, with a placeholder when unset
func UsernameURL(origin string, p *Profile) string {
	origin = strings.TrimRight(origin, "/")
	if origin == "" {
		return ""
	}
	name := usernamePlaceholder
	if p != nil && p.Username != "" {
		name = p.Username
	}
	return origin + "/u/" + url.PathEscape(name)
}
