package ports

import (
	"context"
	"errors"
	"image/color"
	"time"

	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ProfileRef locates a public profile inside a persisted snapshot
type ProfileRef struct {
	Key       string `json:"key"`
	ProfileID string `json:"profileId"`
	Username  string `json:"username,omitempty"`
	IsPublic  bool   `json:"isPublic"`
}

// SnapshotRepository persists store snapshots under a named key and keeps
// the username index in step with every save.
type SnapshotRepository interface {
	LoadSnapshot(ctx context.Context, key string) (*domain.Snapshot, error) // ErrNotFound when absent
	SaveSnapshot(ctx context.Context, key string, snap *domain.Snapshot) error
	FindProfileRef(ctx context.Context, username string) (*ProfileRef, error)
	FindProfileRefByID(ctx context.Context, profileID string) (*ProfileRef, error)
	Close() error
}

// UserRecord is a users row: the account plus its credential hash
type UserRecord struct {
	domain.User
	PasswordHash string `json:"-"`
}

// UserRepository defines storage operations for accounts and sessions
type UserRepository interface {
	CreateUser(ctx context.Context, rec *UserRecord) error // ErrConflict on duplicate email
	GetUserByID(ctx context.Context, id string) (*UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	UpdateUser(ctx context.Context, rec *UserRecord) error

	RevokeSession(ctx context.Context, jti string, expiresAt time.Time) error
	IsSessionRevoked(ctx context.Context, jti string) (bool, error)
}

// QRRenderer renders a URL as a PNG QR code
type QRRenderer interface {
	Render(url string, size int, fg, bg color.Color) ([]byte, error)
}

// ProfileStore is the mutation/query surface used by the editor
type ProfileStore interface {
	Snapshot() *domain.Snapshot
	User() *domain.User
	CurrentProfile() *domain.Profile
	Profiles() []domain.Profile
	Profile(id string) (*domain.Profile, error)
	Analytics(profileID string) *domain.Analytics

	SetUser(ctx context.Context, user *domain.User)
	UpdateUser(ctx context.Context, u domain.UserUpdate) error
	SetCurrentProfile(ctx context.Context, p *domain.Profile)
	CreateProfile(ctx context.Context, draft domain.ProfileDraft) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, u domain.ProfileUpdate) error
	UpdateTheme(ctx context.Context, u domain.ThemeUpdate) error
	SetThemePreset(ctx context.Context, name string) error
	DeleteProfile(ctx context.Context, id string) error
	SwitchProfile(ctx context.Context, id string) error

	AddLink(ctx context.Context, in domain.LinkInput) (*domain.LinkItem, error)
	UpdateLink(ctx context.Context, id string, u domain.LinkUpdate) error
	DeleteLink(ctx context.Context, id string) error
	ReorderLinks(ctx context.Context, from, to int) error
	ToggleLinkActive(ctx context.Context, id string) error

	SetAnalytics(ctx context.Context, a *domain.Analytics)
	TrackView(ctx context.Context, profileID string) error
	TrackClick(ctx context.Context, profileID, linkID string) error
	ResetStore(ctx context.Context)

	GenerateShareableURL() string
	GenerateUsernameURL() string
	CanUseFeature(f domain.Feature) bool
}

// Session is an authenticated identity backed by a signed token
type Session struct {
	Token     string       `json:"-"`
	ID        string       `json:"id"`
	User      *domain.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// SessionEvent is delivered to session listeners on sign-in and sign-out.
// User is nil on sign-out.
type SessionEvent struct {
	UserID string
	User   *domain.User
}

// AuthService is the authentication collaborator
type AuthService interface {
	SignUp(ctx context.Context, email, password, username string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignInWithProvider(ctx context.Context, email, fullName, avatarURL string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentSession(ctx context.Context, token string) (*Session, error)
	OnSessionChange(fn func(context.Context, SessionEvent)) (unsubscribe func())

	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, u domain.UserUpdate) (*domain.User, error)
	SetSubscription(ctx context.Context, email string, tier domain.Tier, status domain.SubscriptionStatus) (*domain.User, error)
}

// IndexEntries lists the index rows a snapshot saved under key should own
func IndexEntries(key string, snap *domain.Snapshot) []ProfileRef {
	refs := make([]ProfileRef, 0, len(snap.Profiles))
	for _, p := range snap.Profiles {
		refs = append(refs, ProfileRef{
			Key:       key,
			ProfileID: p.ID,
			Username:  p.Username,
			IsPublic:  p.IsPublic,
		})
	}
	return refs
}
