package domain

import "time"

// Tier is a subscription tier key
type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierBusiness Tier = "business"
)

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierBusiness:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusCancelled:
		return true
	}
	return false
}

// User is the account identity cached by the store
type User struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	Username           string             `json:"username,omitempty"`
	FullName           string             `json:"fullName,omitempty"`
	AvatarURL          string             `json:"avatarUrl,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	SubscriptionTier   Tier               `json:"subscriptionTier"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	Profiles           []Profile          `json:"profiles"`
}

type UserUpdate struct {
	Username  *string `json:"username,omitempty"`
	FullName  *string `json:"fullName,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

func (u *User) Apply(up UserUpdate) {
	if up.Username != nil {
		u.Username = *up.Username
	}
	if up.FullName != nil {
		u.FullName = *up.FullName
	}
	if up.AvatarURL != nil {
		u.AvatarURL = *up.AvatarURL
	}
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Profiles != nil {
		c.Profiles = make([]Profile, len(u.Profiles))
		for i, p := range u.Profiles {
			c.Profiles[i] = p.Clone()
		}
	}
	return &c
}
