package services

import (
	"context"
	"errors"
	"sync"

	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

// DefaultWorkspaceKey is the snapshot key used for anonymous editing
const DefaultWorkspaceKey = "linkora-profile"

// UserKey is the snapshot key of a signed-in user's workspace
func UserKey(userID string) string {
	return "user:" + userID
}

// Workspaces keeps one ProfileStore per snapshot key, loading lazily
type Workspaces struct {
	mu         sync.Mutex
	repo       ports.SnapshotRepository
	defaultKey string
	logger     *observability.Logger
	opts       []StoreOption
	stores     map[string]*ProfileStore
}

func NewWorkspaces(repo ports.SnapshotRepository, defaultKey string, logger *observability.Logger, opts ...StoreOption) *Workspaces {
	if defaultKey == "" {
		defaultKey = DefaultWorkspaceKey
	}
	if logger == nil {
		logger = observability.NewNop()
	}
	return &Workspaces{
		repo:       repo,
		defaultKey: defaultKey,
		logger:     logger,
		opts:       append([]StoreOption{WithLogger(logger)}, opts...),
		stores:     map[string]*ProfileStore{},
	}
}

func (w *Workspaces) DefaultKey() string {
	return w.defaultKey
}

// Get returns the store for key, the default key when empty
func (w *Workspaces) Get(ctx context.Context, key string) (*ProfileStore, error) {
	if key == "" {
		key = w.defaultKey
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.stores[key]; ok {
		return s, nil
	}
	s, err := LoadProfileStore(ctx, w.repo, key, w.opts...)
	if err != nil {
		return nil, err
	}
	w.stores[key] = s
	return s, nil
}

// ForUser returns the workspace of a signed-in user
func (w *Workspaces) ForUser(ctx context.Context, userID string) (*ProfileStore, error) {
	return w.Get(ctx, UserKey(userID))
}

// HandleSessionChange feeds auth session changes into the user's workspace
func (w *Workspaces) HandleSessionChange(ctx context.Context, ev ports.SessionEvent) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "user_id", Value: ev.UserID})
	if ev.User == nil {
		w.mu.Lock()
		s, ok := w.stores[UserKey(ev.UserID)]
		w.mu.Unlock()
		if ok {
			s.SetUser(ctx, nil)
		}
		return
	}
	s, err := w.ForUser(ctx, ev.UserID)
	if err != nil {
		w.logger.Error(ctx, "Failed to load workspace for session", err)
		return
	}
	s.SetUser(ctx, ev.User)
}

// ResolveUsername finds the public profile published under username
func (w *Workspaces) ResolveUsername(ctx context.Context, username string) (*ProfileStore, *domain.Profile, error) {
	ref, err := w.repo.FindProfileRef(ctx, username)
	return w.resolve(ctx, ref, err)
}

// ResolveProfileID finds a public profile by identifier
func (w *Workspaces) ResolveProfileID(ctx context.Context, profileID string) (*ProfileStore, *domain.Profile, error) {
	ref, err := w.repo.FindProfileRefByID(ctx, profileID)
	return w.resolve(ctx, ref, err)
}

func (w *Workspaces) resolve(ctx context.Context, ref *ports.ProfileRef, err error) (*ProfileStore, *domain.Profile, error) {
	if errors.Is(err, ports.ErrNotFound) {
		return nil, nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if !ref.IsPublic {
		return nil, nil, domain.ErrProfileNotFound
	}
	s, err := w.Get(ctx, ref.Key)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.Profile(ref.ProfileID)
	if err != nil {
		return nil, nil, err
	}
	if !p.IsPublic {
		return nil, nil, domain.ErrProfileNotFound
	}
	return s, p, nil
}

// UsernameTaken reports whether username is published by a profile other
// than profileID
func (w *Workspaces) UsernameTaken(ctx context.Context, username, profileID string) (bool, error) {
	ref, err := w.repo.FindProfileRef(ctx, username)
	if errors.Is(err, ports.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ref.ProfileID != profileID, nil
}
