package domain

import "time"

// LinkItem is one clickable entry on a profile
type LinkItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Icon     string `json:"icon,omitempty"`
	IsActive bool   `json:"isActive"`
	Order    int    `json:"order"` // dense, zero-based

	// Analytics
	ClickCount  int        `json:"clickCount,omitempty"`
	LastClicked *time.Time `json:"lastClicked,omitempty"`

	// Monetization
	IsPaid        bool    `json:"isPaid,omitempty"`
	Price         float64 `json:"price,omitempty"`
	IsAffiliate   bool    `json:"isAffiliate,omitempty"`
	AffiliateCode string  `json:"affiliateCode,omitempty"`
}

// LinkInput carries the caller-supplied fields of a new link.
// ID, Order and IsActive are always assigned by the store.
type LinkInput struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Icon          string  `json:"icon,omitempty"`
	IsPaid        bool    `json:"isPaid,omitempty"`
	Price         float64 `json:"price,omitempty"`
	IsAffiliate   bool    `json:"isAffiliate,omitempty"`
	AffiliateCode string  `json:"affiliateCode,omitempty"`
}

// LinkUpdate is a partial link; nil fields are left untouched
type LinkUpdate struct {
	Title         *string  `json:"title,omitempty"`
	URL           *string  `json:"url,omitempty"`
	Icon          *string  `json:"icon,omitempty"`
	IsActive      *bool    `json:"isActive,omitempty"`
	IsPaid        *bool    `json:"isPaid,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	IsAffiliate   *bool    `json:"isAffiliate,omitempty"`
	AffiliateCode *string  `json:"affiliateCode,omitempty"`
}

// NewLinkItem builds a link from input, normalizing the URL and deriving
// the icon when none is given.
func NewLinkItem(id string, in LinkInput) LinkItem {
	url := FormatURL(in.URL)
	icon := in.Icon
	if icon == "" {
		icon = IconForURL(url)
	}
	return LinkItem{
		ID:            id,
		Title:         in.Title,
		URL:           url,
		Icon:          icon,
		IsActive:      true,
		IsPaid:        in.IsPaid,
		Price:         in.Price,
		IsAffiliate:   in.IsAffiliate,
		AffiliateCode: in.AffiliateCode,
	}
}

// Apply merges u into the link. Order is never touched here.
func (l *LinkItem) Apply(u LinkUpdate) {
	if u.Title != nil {
		l.Title = *u.Title
	}
	if u.URL != nil {
		l.URL = FormatURL(*u.URL)
	}
	if u.Icon != nil {
		l.Icon = *u.Icon
	}
	if u.IsActive != nil {
		l.IsActive = *u.IsActive
	}
	if u.IsPaid != nil {
		l.IsPaid = *u.IsPaid
	}
	if u.Price != nil {
		l.Price = *u.Price
	}
	if u.IsAffiliate != nil {
		l.IsAffiliate = *u.IsAffiliate
	}
	if u.AffiliateCode != nil {
		l.AffiliateCode = *u.AffiliateCode
	}
}

func (l LinkItem) clone() LinkItem {
	if l.LastClicked != nil {
		t := *l.LastClicked
		l.LastClicked = &t
	}
	return l
}
