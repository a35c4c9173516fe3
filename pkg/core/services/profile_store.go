package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

const defaultPersistTimeout = 5 * time.Second

// utcNow is time.Now without the monotonic reading
func utcNow() time.Time {
	return time.Now().UTC()
}

// ChangeEvent is delivered to subscribers after every accepted mutation.
// PersistErr is set when the write-through save failed; memory is kept.
type ChangeEvent struct {
	Operation  string
	Snapshot   *domain.Snapshot
	PersistErr error
}

type StoreOption func(*ProfileStore)

func WithClock(now func() time.Time) StoreOption {
	return func(s *ProfileStore) { s.now = now }
}

func WithIDGenerator(gen func() string) StoreOption {
	return func(s *ProfileStore) { s.newID = gen }
}

func WithPlans(plans domain.PlanCatalog) StoreOption {
	return func(s *ProfileStore) { s.plans = plans }
}

func WithLogger(l *observability.Logger) StoreOption {
	return func(s *ProfileStore) { s.logger = l }
}

// WithOrigin sets the runtime origin used for share URLs
func WithOrigin(origin string) StoreOption {
	return func(s *ProfileStore) { s.origin = origin }
}

func WithPersistTimeout(d time.Duration) StoreOption {
	return func(s *ProfileStore) { s.persistTimeout = d }
}

// WithPersistence makes every accepted mutation write the snapshot to repo
func WithPersistence(repo ports.SnapshotRepository, key string) StoreOption {
	return func(s *ProfileStore) {
		s.repo = repo
		s.key = key
	}
}

// ProfileStore owns the user, the profiles and their analytics. The profiles
// slice is the only copy of each profile; the current profile is an id.
// Mutations, persistence and subscriber callbacks run under one lock, so
// subscribers must not call back into the store. Plan limits are not applied
// here; callers check them before mutating.
type ProfileStore struct {
	mu sync.Mutex

	repo           ports.SnapshotRepository
	key            string
	logger         *observability.Logger
	plans          domain.PlanCatalog
	origin         string
	now            func() time.Time
	newID          func() string
	persistTimeout time.Duration

	user      *domain.User
	profiles  []domain.Profile
	currentID string
	analytics map[string]*domain.Analytics

	subscribers map[int]func(ChangeEvent)
	nextSub     int
}

// NewProfileStore returns a store holding a single default profile
func NewProfileStore(opts ...StoreOption) *ProfileStore {
	s := &ProfileStore{
		logger:         observability.NewNop(),
		plans:          domain.DefaultPlans(),
		now:            utcNow,
		newID:          uuid.NewString,
		persistTimeout: defaultPersistTimeout,
		subscribers:    map[int]func(ChangeEvent){},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetLocked()
	return s
}

// LoadProfileStore restores the snapshot saved under key, or starts from the
// defaults when nothing has been saved yet.
func LoadProfileStore(ctx context.Context, repo ports.SnapshotRepository, key string, opts ...StoreOption) (*ProfileStore, error) {
	s := NewProfileStore(append(opts, WithPersistence(repo, key))...)

	snap, err := repo.LoadSnapshot(ctx, key)
	if errors.Is(err, ports.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", key, err)
	}
	s.restoreLocked(snap)
	return s, nil
}

func (s *ProfileStore) Key() string {
	return s.key
}

func (s *ProfileStore) resetLocked() {
	p := domain.NewProfile(s.newID(), domain.ProfileDraft{}, s.now())
	s.user = nil
	s.profiles = []domain.Profile{p}
	s.currentID = p.ID
	s.analytics = map[string]*domain.Analytics{}
}

func (s *ProfileStore) restoreLocked(snap *domain.Snapshot) {
	snap.Normalize()
	s.user = snap.User.Clone()
	s.profiles = make([]domain.Profile, len(snap.Profiles))
	for i, p := range snap.Profiles {
		s.profiles[i] = p.Clone()
	}
	s.currentID = snap.CurrentProfileID
	s.analytics = make(map[string]*domain.Analytics, len(snap.Analytics))
	for id, a := range snap.Analytics {
		s.analytics[id] = a.Clone()
	}
}

// Subscribe registers fn for change events and returns its unsubscribe func
func (s *ProfileStore) Subscribe(fn func(ChangeEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// commit persists and notifies after an accepted mutation. Caller holds mu.
func (s *ProfileStore) commit(ctx context.Context, op string) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "operation", Value: op},
		observability.Field{Key: "snapshot_key", Value: s.key},
	)
	snap := s.snapshotLocked()

	var persistErr error
	if s.repo != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
		persistErr = s.repo.SaveSnapshot(saveCtx, s.key, snap)
		cancel()
		if persistErr != nil {
			s.logger.Error(ctx, "Failed to persist profile store", persistErr)
		}
	}
	s.logger.Debug(ctx, "Profile store mutation applied")

	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s.subscribers[id](ChangeEvent{Operation: op, Snapshot: snap, PersistErr: persistErr})
	}
}

func (s *ProfileStore) snapshotLocked() *domain.Snapshot {
	snap := &domain.Snapshot{
		Version:          domain.SnapshotVersion,
		User:             s.user.Clone(),
		CurrentProfileID: s.currentID,
		Profiles:         make([]domain.Profile, len(s.profiles)),
		Analytics:        make(map[string]*domain.Analytics, len(s.analytics)),
	}
	for i, p := range s.profiles {
		snap.Profiles[i] = p.Clone()
	}
	for id, a := range s.analytics {
		snap.Analytics[id] = a.Clone()
	}
	return snap
}

func (s *ProfileStore) indexOf(id string) int {
	return slices.IndexFunc(s.profiles, func(p domain.Profile) bool { return p.ID == id })
}

func (s *ProfileStore) currentLocked() (*domain.Profile, error) {
	if s.currentID == "" {
		return nil, domain.ErrNoCurrentProfile
	}
	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return nil, domain.ErrNoCurrentProfile
	}
	return &s.profiles[idx], nil
}

func (s *ProfileStore) canUseLocked(f domain.Feature) bool {
	return domain.CanUseFeature(s.user, s.plans, f)
}

// Queries

func (s *ProfileStore) Snapshot() *domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *ProfileStore) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

// CurrentProfile returns a copy of the current profile, or nil
func (s *ProfileStore) CurrentProfile() *domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.currentLocked()
	if err != nil {
		return nil
	}
	c := p.Clone()
	return &c
}

func (s *ProfileStore) Profiles() []domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Profile, len(s.profiles))
	for i, p := range s.profiles {
		out[i] = p.Clone()
	}
	return out
}

func (s *ProfileStore) Profile(id string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, domain.ErrProfileNotFound
	}
	c := s.profiles[idx].Clone()
	return &c, nil
}

// Analytics returns a copy of the profile's counters, or nil
func (s *ProfileStore) Analytics(profileID string) *domain.Analytics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analytics[profileID].Clone()
}

func (s *ProfileStore) GenerateShareableURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.currentLocked()
	if err != nil {
		return ""
	}
	return domain.ShareableURL(s.origin, p)
}

func (s *ProfileStore) GenerateUsernameURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, _ := s.currentLocked()
	return domain.UsernameURL(s.origin, p)
}

func (s *ProfileStore) CanUseFeature(f domain.Feature) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canUseLocked(f)
}

// User

// SetUser replaces the cached user; nil signs the store out
func (s *ProfileStore) SetUser(ctx context.Context, user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user.Clone()
	s.commit(ctx, "setUser")
}

func (s *ProfileStore) UpdateUser(ctx context.Context, u domain.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.ErrNoUser
	}
	s.user.Apply(u)
	if now := s.now(); now.After(s.user.UpdatedAt) {
		s.user.UpdatedAt = now
	}
	s.commit(ctx, "updateUser")
	return nil
}

// Profiles

// SetCurrentProfile upserts p into the collection and points current at it.
// A nil profile clears the pointer.
func (s *ProfileStore) SetCurrentProfile(ctx context.Context, p *domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.currentID = ""
		s.commit(ctx, "setCurrentProfile")
		return
	}
	c := p.Clone()
	c.NormalizeLinks()
	if c.Theme.IsZero() {
		c.Theme = domain.DefaultTheme()
	}
	if idx := s.indexOf(c.ID); idx >= 0 {
		s.profiles[idx] = c
	} else {
		s.profiles = append(s.profiles, c)
	}
	s.currentID = c.ID
	s.commit(ctx, "setCurrentProfile")
}

func (s *ProfileStore) CreateProfile(ctx context.Context, draft domain.ProfileDraft) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if draft.UserID == "" && s.user != nil {
		draft.UserID = s.user.ID
	}

	p := domain.NewProfile(s.newID(), draft, s.now())
	s.profiles = append(s.profiles, p)
	s.currentID = p.ID
	s.commit(ctx, "createProfile")

	c := p.Clone()
	return &c, nil
}

// UpdateProfile merges display fields into the current profile
func (s *ProfileStore) UpdateProfile(ctx context.Context, u domain.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.currentLocked()
	if err != nil {
		return err
	}
	p.Apply(u)
	p.Touch(s.now())
	s.commit(ctx, "updateProfile")
	return nil
}

func (s *ProfileStore) UpdateTheme(ctx context.Context, u domain.ThemeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.currentLocked()
	if err != nil {
		return err
	}
	p.Theme = p.Theme.Merge(u)
	p.Touch(s.now())
	s.commit(ctx, "updateTheme")
	return nil
}

// SetThemePreset replaces the current theme with the named preset. An unknown
// name returns ErrPresetNotFound and leaves the theme untouched.
func (s *ProfileStore) SetThemePreset(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	preset, ok := domain.FindPreset(name)
	if !ok {
		return domain.ErrPresetNotFound
	}
	p, err := s.currentLocked()
	if err != nil {
		return err
	}
	p.Theme = preset.Theme
	p.Touch(s.now())
	s.commit(ctx, "setThemePreset")
	return nil
}

// DeleteProfile removes a profile and its analytics. When it was current,
// the first remaining profile becomes current.
func (s *ProfileStore) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return domain.ErrProfileNotFound
	}
	s.profiles = slices.Delete(s.profiles, idx, idx+1)
	delete(s.analytics, id)
	if s.currentID == id {
		s.currentID = ""
		if len(s.profiles) > 0 {
			s.currentID = s.profiles[0].ID
		}
	}
	s.commit(ctx, "deleteProfile")
	return nil
}

// SwitchProfile makes id current. An unknown id clears the current profile
// and returns ErrProfileNotFound.
func (s *ProfileStore) SwitchProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		s.currentID = ""
		s.commit(ctx, "switchProfile")
		return domain.ErrProfileNotFound
	}
	s.currentID = id
	s.commit(ctx, "switchProfile")
	return nil
}

// Links

// AddLink appends a new active link to the current profile
func (s *ProfileStore) AddLink(ctx context.Context, in domain.LinkInput) (*domain.LinkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.currentLocked()
	if err != nil {
		return nil, err
	}
	item := domain.NewLinkItem(s.newID(), in)
	p.AppendLink(item)
	p.Touch(s.now())
	s.commit(ctx, "addLink")

	added := *p.FindLink(item.ID)
	return &added, nil
}

func (s *ProfileStore) UpdateLink(ctx context.Context, id string, u domain.LinkUpdate) error {
	return s.mutateCurrent(ctx, "updateLink", func(p *domain.Profile) error {
		return p.UpdateLink(id, u)
	})
}

// DeleteLink removes a link and renumbers the rest
func (s *ProfileStore) DeleteLink(ctx context.Context, id string) error {
	return s.mutateCurrent(ctx, "deleteLink", func(p *domain.Profile) error {
		return p.RemoveLink(id)
	})
}

// ReorderLinks moves the link at position from to position to.
// Out-of-range positions return ErrIndexOutOfRange.
func (s *ProfileStore) ReorderLinks(ctx context.Context, from, to int) error {
	return s.mutateCurrent(ctx, "reorderLinks", func(p *domain.Profile) error {
		return p.MoveLink(from, to)
	})
}

func (s *ProfileStore) ToggleLinkActive(ctx context.Context, id string) error {
	return s.mutateCurrent(ctx, "toggleLinkActive", func(p *domain.Profile) error {
		return p.ToggleLink(id)
	})
}

// mutateCurrent applies fn to a scratch copy of the current profile and
// swaps it in only when fn succeeds.
func (s *ProfileStore) mutateCurrent(ctx context.Context, op string, fn func(*domain.Profile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.currentLocked()
	if err != nil {
		return err
	}
	next := p.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.Touch(s.now())
	*p = next
	s.commit(ctx, op)
	return nil
}

// Analytics

// SetAnalytics replaces the counters of a.ProfileID (the current profile when
// empty). A nil value drops all analytics.
func (s *ProfileStore) SetAnalytics(ctx context.Context, a *domain.Analytics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a == nil {
		s.analytics = map[string]*domain.Analytics{}
		s.commit(ctx, "setAnalytics")
		return
	}
	c := a.Clone()
	if c.ProfileID == "" {
		c.ProfileID = s.currentID
	}
	s.analytics[c.ProfileID] = c
	s.commit(ctx, "setAnalytics")
}

func (s *ProfileStore) analyticsLocked(profileID string) *domain.Analytics {
	a, ok := s.analytics[profileID]
	if !ok {
		a = domain.NewAnalytics(profileID)
		s.analytics[profileID] = a
	}
	return a
}

// TrackView counts a page view, creating the analytics on first use
func (s *ProfileStore) TrackView(ctx context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(profileID) < 0 {
		return domain.ErrProfileNotFound
	}
	s.analyticsLocked(profileID).RecordView(s.now())
	s.commit(ctx, "trackView")
	return nil
}

// TrackClick counts a click on one of the profile's links
func (s *ProfileStore) TrackClick(ctx context.Context, profileID, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(profileID)
	if idx < 0 {
		return domain.ErrProfileNotFound
	}
	link := s.profiles[idx].FindLink(linkID)
	if link == nil {
		return domain.ErrLinkNotFound
	}
	now := s.now()
	s.analyticsLocked(profileID).RecordClick(linkID, now)
	link.ClickCount++
	clicked := now
	link.LastClicked = &clicked
	s.profiles[idx].Touch(now)
	s.commit(ctx, "trackClick")
	return nil
}

// ResetStore drops the user and analytics and starts over with one default profile
func (s *ProfileStore) ResetStore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.commit(ctx, "resetStore")
}
