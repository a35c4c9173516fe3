package domain

import (
	"slices"
	"time"
)

const (
	DefaultProfileTitle = "Your Name"
	DefaultProfileBio   = "Welcome to my link in bio page!"
)

// Profile is a link-in-bio page: display fields, theme and ordered links
type Profile struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId,omitempty"`
	Username  string     `json:"username,omitempty"`
	Title     string     `json:"title"`
	Bio       string     `json:"bio"`
	AvatarURL string     `json:"avatarUrl"`
	Theme     Theme      `json:"theme"`
	Links     []LinkItem `json:"links"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`

	CustomDomain     string `json:"customDomain,omitempty"`
	IsPublic         bool   `json:"isPublic"`
	IsPremium        bool   `json:"isPremium,omitempty"`
	SubscriptionTier Tier   `json:"subscriptionTier,omitempty"`
}

// ProfileDraft holds the optional overrides used when creating a profile
type ProfileDraft struct {
	UserID           string     `json:"userId,omitempty"`
	Username         string     `json:"username,omitempty"`
	Title            *string    `json:"title,omitempty"`
	Bio              *string    `json:"bio,omitempty"`
	AvatarURL        string     `json:"avatarUrl,omitempty"`
	Theme            *Theme     `json:"theme,omitempty"`
	Links            []LinkItem `json:"links,omitempty"`
	CustomDomain     string     `json:"customDomain,omitempty"`
	IsPublic         *bool      `json:"isPublic,omitempty"`
	IsPremium        bool       `json:"isPremium,omitempty"`
	SubscriptionTier Tier       `json:"subscriptionTier,omitempty"`
}

// ProfileUpdate is restricted to the editable display fields
type ProfileUpdate struct {
	Title        *string `json:"title,omitempty"`
	Bio          *string `json:"bio,omitempty"`
	AvatarURL    *string `json:"avatarUrl,omitempty"`
	Username     *string `json:"username,omitempty"`
	CustomDomain *string `json:"customDomain,omitempty"`
}

// NewProfile builds a profile from defaults overlaid with the draft.
// The result always has a complete theme and a non-nil, densely ordered link list.
func NewProfile(id string, draft ProfileDraft, now time.Time) Profile {
	p := Profile{
		ID:               id,
		UserID:           draft.UserID,
		Username:         draft.Username,
		Title:            DefaultProfileTitle,
		Bio:              DefaultProfileBio,
		AvatarURL:        draft.AvatarURL,
		Theme:            DefaultTheme(),
		Links:            []LinkItem{},
		CreatedAt:        now,
		UpdatedAt:        now,
		CustomDomain:     draft.CustomDomain,
		IsPublic:         true,
		IsPremium:        draft.IsPremium,
		SubscriptionTier: TierFree,
	}
	if draft.Title != nil {
		p.Title = *draft.Title
	}
	if draft.Bio != nil {
		p.Bio = *draft.Bio
	}
	if draft.Theme != nil && !draft.Theme.IsZero() {
		p.Theme = draft.Theme.Clone()
	}
	if draft.IsPublic != nil {
		p.IsPublic = *draft.IsPublic
	}
	if draft.SubscriptionTier.Valid() {
		p.SubscriptionTier = draft.SubscriptionTier
	}
	for _, l := range draft.Links {
		p.Links = append(p.Links, l.clone())
	}
	p.NormalizeLinks()
	return p
}

// Apply merges the display fields of u into the profile
func (p *Profile) Apply(u ProfileUpdate) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.AvatarURL != nil {
		p.AvatarURL = *u.AvatarURL
	}
	if u.Username != nil {
		p.Username = *u.Username
	}
	if u.CustomDomain != nil {
		p.CustomDomain = *u.CustomDomain
	}
}

// Clone returns a deep copy
func (p Profile) Clone() Profile {
	p.Theme = p.Theme.Clone()
	links := make([]LinkItem, len(p.Links))
	for i, l := range p.Links {
		links[i] = l.clone()
	}
	p.Links = links
	return p
}

// Touch refreshes UpdatedAt without ever moving it backwards
func (p *Profile) Touch(now time.Time) {
	if now.After(p.UpdatedAt) {
		p.UpdatedAt = now
	}
}

// NormalizeLinks sorts links by order (stable) and renumbers them 0..n-1
func (p *Profile) NormalizeLinks() {
	if p.Links == nil {
		p.Links = []LinkItem{}
		return
	}
	slices.SortStableFunc(p.Links, func(a, b LinkItem) int {
		return a.Order - b.Order
	})
	p.renumber()
}

func (p *Profile) renumber() {
	for i := range p.Links {
		p.Links[i].Order = i
	}
}

// SortedLinks returns a copy of the links in display order
func (p Profile) SortedLinks() []LinkItem {
	out := make([]LinkItem, len(p.Links))
	for i, l := range p.Links {
		out[i] = l.clone()
	}
	slices.SortStableFunc(out, func(a, b LinkItem) int {
		return a.Order - b.Order
	})
	return out
}

// ActiveLinks returns the links visible on the public page, in display order
func (p Profile) ActiveLinks() []LinkItem {
	out := []LinkItem{}
	for _, l := range p.SortedLinks() {
		if l.IsActive {
			out = append(out, l)
		}
	}
	return out
}

// FindLink returns a pointer into the link slice, or nil
func (p *Profile) FindLink(id string) *LinkItem {
	for i := range p.Links {
		if p.Links[i].ID == id {
			return &p.Links[i]
		}
	}
	return nil
}

// AppendLink appends l at the end of the display order
func (p *Profile) AppendLink(l LinkItem) {
	p.NormalizeLinks()
	l.Order = len(p.Links)
	p.Links = append(p.Links, l)
}

func (p *Profile) RemoveLink(id string) error {
	p.NormalizeLinks()
	idx := slices.IndexFunc(p.Links, func(l LinkItem) bool { return l.ID == id })
	if idx < 0 {
		return ErrLinkNotFound
	}
	p.Links = slices.Delete(p.Links, idx, idx+1)
	p.renumber()
	return nil
}

// MoveLink moves the link at position from to position to and renumbers.
// Both indices must address an existing position.
func (p *Profile) MoveLink(from, to int) error {
	n := len(p.Links)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrIndexOutOfRange
	}
	p.NormalizeLinks()
	moved := p.Links[from]
	p.Links = slices.Delete(p.Links, from, from+1)
	p.Links = slices.Insert(p.Links, to, moved)
	p.renumber()
	return nil
}

func (p *Profile) ToggleLink(id string) error {
	l := p.FindLink(id)
	if l == nil {
		return ErrLinkNotFound
	}
	l.IsActive = !l.IsActive
	return nil
}

func (p *Profile) UpdateLink(id string, u LinkUpdate) error {
	l := p.FindLink(id)
	if l == nil {
		return ErrLinkNotFound
	}
	l.Apply(u)
	return nil
}
