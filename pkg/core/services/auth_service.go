package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrEmailNotAllowed    = errors.New("email is not in the allowlist")
	ErrSessionInvalid     = errors.New("session is invalid or expired")
	ErrInvalidPlan        = errors.New("invalid subscription tier or status")
)

const defaultSessionTTL = 24 * time.Hour

type AuthConfig struct {
	JWTSecret     string
	SessionTTL    time.Duration
	AllowedEmails []string // empty allows everyone
	BcryptCost    int
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService issues HS256 session tokens for password and provider sign-in
type AuthService struct {
	users   ports.UserRepository
	secret  []byte
	ttl     time.Duration
	allowed []string
	cost    int
	now     func() time.Time
	logger  *observability.Logger

	mu        sync.Mutex
	listeners map[int]func(context.Context, ports.SessionEvent)
	nextID    int
}

type AuthOption func(*AuthService)

func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(users ports.UserRepository, cfg AuthConfig, logger *observability.Logger, opts ...AuthOption) *AuthService {
	if logger == nil {
		logger = observability.NewNop()
	}
	s := &AuthService{
		users:     users,
		secret:    []byte(cfg.JWTSecret),
		ttl:       cfg.SessionTTL,
		cost:      cfg.BcryptCost,
		now:       utcNow,
		logger:    logger,
		listeners: map[int]func(context.Context, ports.SessionEvent){},
	}
	for _, e := range cfg.AllowedEmails {
		if e = normalizeEmail(e); e != "" {
			s.allowed = append(s.allowed, e)
		}
	}
	if s.ttl <= 0 {
		s.ttl = defaultSessionTTL
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) checkAllowed(email string) error {
	if len(s.allowed) > 0 && !slices.Contains(s.allowed, email) {
		return ErrEmailNotAllowed
	}
	return nil
}

// OnSessionChange registers fn for sign-in and sign-out events
func (s *AuthService) OnSessionChange(fn func(context.Context, ports.SessionEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *AuthService) emit(ctx context.Context, ev ports.SessionEvent) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(context.Context, ports.SessionEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, ev)
	}
}

func newUserRecord(email string, now time.Time) *ports.UserRecord {
	return &ports.UserRecord{
		User: domain.User{
			ID:                 uuid.NewString(),
			Email:              email,
			CreatedAt:          now,
			UpdatedAt:          now,
			SubscriptionTier:   domain.TierFree,
			SubscriptionStatus: domain.StatusActive,
			Profiles:           []domain.Profile{},
		},
	}
}

// SignUp creates a password account on the free tier and signs it in
func (s *AuthService) SignUp(ctx context.Context, email, password, username string) (*ports.Session, error) {
	email = normalizeEmail(email)
	if err := s.checkAllowed(email); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rec := newUserRecord(email, s.now())
	rec.Username = username
	rec.PasswordHash = string(hash)
	if err := s.users.CreateUser(ctx, rec); err != nil {
		if errors.Is(err, ports.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "user_id", Value: rec.ID},
		observability.Field{Key: "email", Value: observability.RedactEmail(email)},
	), "User signed up")
	return s.startSession(ctx, &rec.User)
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*ports.Session, error) {
	rec, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ports.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if rec.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, &rec.User)
}

// SignInWithProvider signs in an identity verified by an external provider,
// creating the users row on first login.
func (s *AuthService) SignInWithProvider(ctx context.Context, email, fullName, avatarURL string) (*ports.Session, error) {
	email = normalizeEmail(email)
	if err := s.checkAllowed(email); err != nil {
		return nil, err
	}
	rec, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		rec = newUserRecord(email, s.now())
		rec.FullName = fullName
		rec.AvatarURL = avatarURL
		if err := s.users.CreateUser(ctx, rec); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		s.logger.Info(observability.WithFields(ctx,
			observability.Field{Key: "user_id", Value: rec.ID},
			observability.Field{Key: "email", Value: observability.RedactEmail(email)},
		), "User created from provider login")
	case err != nil:
		return nil, fmt.Errorf("get user: %w", err)
	}
	return s.startSession(ctx, &rec.User)
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*ports.Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	s.emit(ctx, ports.SessionEvent{UserID: user.ID, User: user.Clone()})
	return &ports.Session{Token: token, ID: claims.ID, User: user.Clone(), ExpiresAt: exp}, nil
}

func (s *AuthService) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}

// CurrentSession validates token and loads the signed-in user
func (s *AuthService) CurrentSession(ctx context.Context, token string) (*ports.Session, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.users.IsSessionRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if revoked {
		return nil, ErrSessionInvalid
	}
	rec, err := s.users.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &ports.Session{Token: token, ID: claims.ID, User: rec.User.Clone(), ExpiresAt: claims.ExpiresAt.Time}, nil
}

// SignOut revokes the token's session id until it would have expired anyway
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if err := s.users.RevokeSession(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.emit(ctx, ports.SessionEvent{UserID: claims.Subject})
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	rec, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.User.Clone(), nil
}

func (s *AuthService) UpdateUser(ctx context.Context, id string, u domain.UserUpdate) (*domain.User, error) {
	rec, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Apply(u)
	return s.save(ctx, rec)
}

// SetSubscription changes the tier and status of the account with email
func (s *AuthService) SetSubscription(ctx context.Context, email string, tier domain.Tier, status domain.SubscriptionStatus) (*domain.User, error) {
	if !tier.Valid() || !status.Valid() {
		return nil, ErrInvalidPlan
	}
	rec, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	rec.SubscriptionTier = tier
	rec.SubscriptionStatus = status
	return s.save(ctx, rec)
}

func (s *AuthService) save(ctx context.Context, rec *ports.UserRecord) (*domain.User, error) {
	if now := s.now(); now.After(rec.UpdatedAt) {
		rec.UpdatedAt = now
	}
	if err := s.users.UpdateUser(ctx, rec); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.emit(ctx, ports.SessionEvent{UserID: rec.ID, User: rec.User.Clone()})
	return rec.User.Clone(), nil
}
