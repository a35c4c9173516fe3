package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
)

func newTestStore(t *testing.T, opts ...StoreOption) (*ProfileStore, *tickingClock) {
	t.Helper()
	clock := newTickingClock()
	base := []StoreOption{
		WithClock(clock.Now),
		WithIDGenerator(sequentialIDs()),
		WithOrigin("https://linkora.app"),
	}
	return NewProfileStore(append(base, opts...)...), clock
}

func proUser() *domain.User {
	return &domain.User{ID: "u1", Email: "pro@example.com", SubscriptionTier: domain.TierPro, SubscriptionStatus: domain.StatusActive}
}

func addLinks(t *testing.T, s *ProfileStore, titles ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		l, err := s.AddLink(context.Background(), domain.LinkInput{Title: title, URL: title + ".example.com"})
		require.NoError(t, err)
		ids = append(ids, l.ID)
	}
	return ids
}

func titlesInOrder(p *domain.Profile) []string {
	out := []string{}
	for _, l := range p.SortedLinks() {
		out = append(out, l.Title)
	}
	return out
}

func assertDenseOrder(t *testing.T, p *domain.Profile) {
	t.Helper()
	seen := map[int]bool{}
	for _, l := range p.Links {
		assert.False(t, seen[l.Order], "duplicate order %d", l.Order)
		seen[l.Order] = true
		assert.GreaterOrEqual(t, l.Order, 0)
		assert.Less(t, l.Order, len(p.Links))
	}
}

func assertInSync(t *testing.T, s *ProfileStore) {
	t.Helper()
	current := s.CurrentProfile()
	require.NotNil(t, current)
	stored, err := s.Profile(current.ID)
	require.NoError(t, err)
	assert.Equal(t, *stored, *current)
}

func TestProfileStore_DefaultState(t *testing.T) {
	s, _ := newTestStore(t)

	profiles := s.Profiles()
	require.Len(t, profiles, 1)
	current := s.CurrentProfile()
	require.NotNil(t, current)
	assert.Equal(t, profiles[0].ID, current.ID)
	assert.Empty(t, current.Links)
	assert.Equal(t, domain.ThemePresets()[0].Theme, current.Theme)
	assert.True(t, current.IsPublic)
	assert.Equal(t, domain.TierFree, current.SubscriptionTier)
	assert.Nil(t, s.User())
	assert.Nil(t, s.Analytics(current.ID))
}

func TestProfileStore_AddLink(t *testing.T) {
	s, _ := newTestStore(t)

	l, err := s.AddLink(context.Background(), domain.LinkInput{Title: "Site", URL: "example.com"})
	require.NoError(t, err)

	current := s.CurrentProfile()
	require.Len(t, current.Links, 1)
	stored := current.Links[0]
	assert.Equal(t, l.ID, stored.ID)
	assert.Equal(t, "https://example.com", stored.URL)
	assert.Equal(t, "link", stored.Icon)
	assert.Equal(t, 0, stored.Order)
	assert.True(t, stored.IsActive)
}

func TestProfileStore_DeleteMiddleLink(t *testing.T) {
	s, _ := newTestStore(t)
	ids := addLinks(t, s, "A", "B", "C")

	require.NoError(t, s.DeleteLink(context.Background(), ids[1]))

	current := s.CurrentProfile()
	assert.Equal(t, []string{"A", "C"}, titlesInOrder(current))
	assertDenseOrder(t, current)
}

func TestProfileStore_ReorderLinks(t *testing.T) {
	s, _ := newTestStore(t)
	addLinks(t, s, "A", "B", "C")

	require.NoError(t, s.ReorderLinks(context.Background(), 0, 2))

	current := s.CurrentProfile()
	sorted := current.SortedLinks()
	assert.Equal(t, []string{"B", "C", "A"}, titlesInOrder(current))
	for i, l := range sorted {
		assert.Equal(t, i, l.Order)
	}
}

func TestProfileStore_ReorderOutOfRangeIsRejected(t *testing.T) {
	s, _ := newTestStore(t)
	addLinks(t, s, "A", "B")
	before := s.CurrentProfile()

	err := s.ReorderLinks(context.Background(), 0, 5)

	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	assert.Equal(t, before, s.CurrentProfile())
}

func TestProfileStore_OrderStaysDense(t *testing.T) {
	s, _ := newTestStore(t, WithPlans(domain.DefaultPlans()))
	s.SetUser(context.Background(), proUser())
	ctx := context.Background()

	ids := addLinks(t, s, "A", "B", "C", "D", "E")
	steps := []func() error{
		func() error { return s.ReorderLinks(ctx, 4, 0) },
		func() error { return s.DeleteLink(ctx, ids[2]) },
		func() error { return s.ReorderLinks(ctx, 1, 3) },
		func() error { _, err := s.AddLink(ctx, domain.LinkInput{Title: "F", URL: "f.io"}); return err },
		func() error { return s.DeleteLink(ctx, ids[0]) },
		func() error { return s.ReorderLinks(ctx, 3, 1) },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assertDenseOrder(t, s.CurrentProfile())
	}
	assert.Len(t, s.CurrentProfile().Links, 4)
}

func TestProfileStore_MutationsKeepCurrentInSync(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	title := "Jane"
	primary := "#123456"
	newTitle := "Docs"

	ids := addLinks(t, s, "A", "B")
	assertInSync(t, s)
	require.NoError(t, s.UpdateProfile(ctx, domain.ProfileUpdate{Title: &title}))
	assertInSync(t, s)
	require.NoError(t, s.UpdateTheme(ctx, domain.ThemeUpdate{PrimaryColor: &primary}))
	assertInSync(t, s)
	require.NoError(t, s.SetThemePreset(ctx, "Forest"))
	assertInSync(t, s)
	require.NoError(t, s.UpdateLink(ctx, ids[0], domain.LinkUpdate{Title: &newTitle}))
	assertInSync(t, s)
	require.NoError(t, s.ToggleLinkActive(ctx, ids[1]))
	assertInSync(t, s)
	require.NoError(t, s.DeleteLink(ctx, ids[0]))
	assertInSync(t, s)

	current := s.CurrentProfile()
	assert.Equal(t, "Jane", current.Title)
	forest, _ := domain.FindPreset("Forest")
	assert.Equal(t, forest.Theme, current.Theme)
}

func TestProfileStore_UpdatedAtMonotonic(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	bio := "hello"
	color := "#000000"

	ops := map[string]func() error{
		"updateProfile": func() error { return s.UpdateProfile(ctx, domain.ProfileUpdate{Bio: &bio}) },
		"updateTheme":   func() error { return s.UpdateTheme(ctx, domain.ThemeUpdate{CardColor: &color}) },
		"setPreset":     func() error { return s.SetThemePreset(ctx, "Sunset") },
		"addLink":       func() error { _, err := s.AddLink(ctx, domain.LinkInput{Title: "x", URL: "x.io"}); return err },
	}
	for name, op := range ops {
		before := s.CurrentProfile().UpdatedAt
		require.NoError(t, op(), name)
		assert.True(t, s.CurrentProfile().UpdatedAt.After(before), name)
	}

	// a clock that goes backwards never moves updatedAt back
	before := s.CurrentProfile().UpdatedAt
	clock.Set(before.Add(-48 * time.Hour))
	require.NoError(t, s.UpdateProfile(ctx, domain.ProfileUpdate{Bio: &bio}))
	assert.False(t, s.CurrentProfile().UpdatedAt.Before(before))
}

func TestProfileStore_ToggleTwiceRestores(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	ids := addLinks(t, s, "A")

	require.NoError(t, s.ToggleLinkActive(ctx, ids[0]))
	assert.False(t, s.CurrentProfile().Links[0].IsActive)
	require.NoError(t, s.ToggleLinkActive(ctx, ids[0]))
	assert.True(t, s.CurrentProfile().Links[0].IsActive)
}

func TestProfileStore_LookupMissesLeaveStateUntouched(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	addLinks(t, s, "A")
	before := s.Snapshot()

	var events int
	s.Subscribe(func(ChangeEvent) { events++ })
	title := "nope"

	assert.ErrorIs(t, s.SetThemePreset(ctx, "Nonexistent"), domain.ErrPresetNotFound)
	assert.ErrorIs(t, s.UpdateLink(ctx, "missing", domain.LinkUpdate{Title: &title}), domain.ErrLinkNotFound)
	assert.ErrorIs(t, s.DeleteLink(ctx, "missing"), domain.ErrLinkNotFound)
	assert.ErrorIs(t, s.ToggleLinkActive(ctx, "missing"), domain.ErrLinkNotFound)
	assert.ErrorIs(t, s.DeleteProfile(ctx, "missing"), domain.ErrProfileNotFound)

	assert.Equal(t, before, s.Snapshot())
	assert.Zero(t, events)
}

func TestProfileStore_AppliesMutationsWithoutUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.Nil(t, s.User())

	title := "Second"
	p, err := s.CreateProfile(ctx, domain.ProfileDraft{Title: &title})
	require.NoError(t, err)
	assert.Len(t, s.Profiles(), 2)
	assert.Equal(t, p.ID, s.CurrentProfile().ID)

	require.NoError(t, s.SetThemePreset(ctx, "Neon"))
	neon, _ := domain.FindPreset("Neon")
	assert.Equal(t, neon.Theme, s.CurrentProfile().Theme)

	domainName := "links.example.com"
	require.NoError(t, s.UpdateProfile(ctx, domain.ProfileUpdate{CustomDomain: &domainName}))
	assert.Equal(t, domainName, s.CurrentProfile().CustomDomain)

	for i := 0; i < 11; i++ {
		_, err := s.AddLink(ctx, domain.LinkInput{Title: fmt.Sprint(i), URL: "example.com"})
		require.NoError(t, err)
	}
	assert.Len(t, s.CurrentProfile().Links, 11)
	assertDenseOrder(t, s.CurrentProfile())
}

func TestProfileStore_CreateProfile(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.SetUser(ctx, proUser())
	title := "Shop"
	p, err := s.CreateProfile(ctx, domain.ProfileDraft{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "Shop", p.Title)
	assert.Equal(t, "u1", p.UserID)
	assert.NotNil(t, p.Links)
	assert.False(t, p.Theme.IsZero())
	assert.Equal(t, p.ID, s.CurrentProfile().ID)
	assert.Len(t, s.Profiles(), 2)
}

func TestProfileStore_DeleteProfile(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.SetUser(ctx, proUser())
	first := s.CurrentProfile().ID
	second, err := s.CreateProfile(ctx, domain.ProfileDraft{})
	require.NoError(t, err)
	require.NoError(t, s.TrackView(ctx, second.ID))

	require.NoError(t, s.DeleteProfile(ctx, second.ID))
	assert.Equal(t, first, s.CurrentProfile().ID)
	assert.Nil(t, s.Analytics(second.ID))

	require.NoError(t, s.DeleteProfile(ctx, first))
	assert.Nil(t, s.CurrentProfile())
	assert.Empty(t, s.Profiles())
	assert.Equal(t, "", s.GenerateShareableURL())
	assert.ErrorIs(t, s.UpdateTheme(ctx, domain.ThemeUpdate{}), domain.ErrNoCurrentProfile)
	_, err = s.AddLink(ctx, domain.LinkInput{Title: "x", URL: "x.io"})
	assert.ErrorIs(t, err, domain.ErrNoCurrentProfile)
}

func TestProfileStore_SwitchProfile(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.SetUser(ctx, proUser())
	first := s.CurrentProfile().ID
	_, err := s.CreateProfile(ctx, domain.ProfileDraft{})
	require.NoError(t, err)

	require.NoError(t, s.SwitchProfile(ctx, first))
	assert.Equal(t, first, s.CurrentProfile().ID)

	assert.ErrorIs(t, s.SwitchProfile(ctx, "missing"), domain.ErrProfileNotFound)
	assert.Nil(t, s.CurrentProfile())
	assert.Len(t, s.Profiles(), 2)
}

func TestProfileStore_SetCurrentProfile(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	external := domain.NewProfile("remote-1", domain.ProfileDraft{Username: "remote"}, newTickingClock().Now())
	s.SetCurrentProfile(ctx, &external)
	assert.Equal(t, "remote-1", s.CurrentProfile().ID)
	assert.Len(t, s.Profiles(), 2)

	external.Title = "Updated remotely"
	s.SetCurrentProfile(ctx, &external)
	assert.Equal(t, "Updated remotely", s.CurrentProfile().Title)
	assert.Len(t, s.Profiles(), 2)
	assertInSync(t, s)

	s.SetCurrentProfile(ctx, nil)
	assert.Nil(t, s.CurrentProfile())
}

func TestProfileStore_UserOperations(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	name := "Jane Doe"

	assert.ErrorIs(t, s.UpdateUser(ctx, domain.UserUpdate{FullName: &name}), domain.ErrNoUser)

	s.SetUser(ctx, proUser())
	require.NoError(t, s.UpdateUser(ctx, domain.UserUpdate{FullName: &name}))
	assert.Equal(t, "Jane Doe", s.User().FullName)
	assert.Equal(t, "pro@example.com", s.User().Email)

	s.SetUser(ctx, nil)
	assert.Nil(t, s.User())
}

func TestProfileStore_CanUseFeature(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, f := range domain.Features() {
		assert.False(t, s.CanUseFeature(f), f)
	}

	s.SetUser(ctx, &domain.User{ID: "u2", SubscriptionTier: domain.TierFree})
	assert.False(t, s.CanUseFeature(domain.FeatureUnlimitedLinks))

	s.SetUser(ctx, proUser())
	assert.True(t, s.CanUseFeature(domain.FeatureUnlimitedLinks))
}

func TestProfileStore_ShareURLs(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	id := s.CurrentProfile().ID

	assert.Equal(t, "https://linkora.app/profile/"+id, s.GenerateShareableURL())
	assert.Equal(t, "https://linkora.app/u/username", s.GenerateUsernameURL())

	name := "jane"
	require.NoError(t, s.UpdateProfile(ctx, domain.ProfileUpdate{Username: &name}))
	assert.Equal(t, "https://linkora.app/u/jane", s.GenerateShareableURL())
	assert.Equal(t, "https://linkora.app/u/jane", s.GenerateUsernameURL())

	noOrigin := NewProfileStore()
	assert.Equal(t, "", noOrigin.GenerateShareableURL())
	assert.Equal(t, "", noOrigin.GenerateUsernameURL())
}

func TestProfileStore_Tracking(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	ids := addLinks(t, s, "A", "B")
	pid := s.CurrentProfile().ID

	require.NoError(t, s.TrackView(ctx, pid))
	require.NoError(t, s.TrackView(ctx, pid))
	require.NoError(t, s.TrackClick(ctx, pid, ids[0]))
	require.NoError(t, s.TrackClick(ctx, pid, ids[0]))
	require.NoError(t, s.TrackClick(ctx, pid, ids[1]))

	a := s.Analytics(pid)
	require.NotNil(t, a)
	assert.Equal(t, 2, a.TotalViews)
	assert.Equal(t, 3, a.TotalClicks)
	assert.Equal(t, 2, a.LinkStats[ids[0]].Clicks)

	var daily domain.DailyStat
	for _, d := range a.DailyStats {
		daily.Views += d.Views
		daily.Clicks += d.Clicks
	}
	assert.Equal(t, domain.DailyStat{Views: 2, Clicks: 3}, daily)

	current := s.CurrentProfile()
	link := current.FindLink(ids[0])
	assert.Equal(t, 2, link.ClickCount)
	require.NotNil(t, link.LastClicked)
	assert.Equal(t, *current.FindLink(ids[1]).LastClicked, current.UpdatedAt)

	before := current.UpdatedAt
	require.NoError(t, s.TrackClick(ctx, pid, ids[1]))
	assert.True(t, s.CurrentProfile().UpdatedAt.After(before))

	assert.ErrorIs(t, s.TrackView(ctx, "missing"), domain.ErrProfileNotFound)
	assert.ErrorIs(t, s.TrackClick(ctx, pid, "missing"), domain.ErrLinkNotFound)
	assert.Equal(t, 4, s.Analytics(pid).TotalClicks)
}

func TestProfileStore_SetAnalytics(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	pid := s.CurrentProfile().ID

	s.SetAnalytics(ctx, &domain.Analytics{TotalViews: 7})
	a := s.Analytics(pid)
	require.NotNil(t, a)
	assert.Equal(t, 7, a.TotalViews)
	assert.Equal(t, pid, a.ProfileID)

	s.SetAnalytics(ctx, nil)
	assert.Nil(t, s.Analytics(pid))
}

func TestProfileStore_ResetStore(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.SetUser(ctx, proUser())
	addLinks(t, s, "A")
	require.NoError(t, s.TrackView(ctx, s.CurrentProfile().ID))

	s.ResetStore(ctx)

	assert.Nil(t, s.User())
	require.Len(t, s.Profiles(), 1)
	assert.Equal(t, s.Profiles()[0].ID, s.CurrentProfile().ID)
	assert.Empty(t, s.CurrentProfile().Links)
	assert.Empty(t, s.Snapshot().Analytics)
}

func TestProfileStore_PersistenceRoundTrip(t *testing.T) {
	repo := newMemorySnapshots()
	ctx := context.Background()
	clock := newTickingClock()
	s, err := LoadProfileStore(ctx, repo, "linkora-profile", WithClock(clock.Now), WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)

	s.SetUser(ctx, proUser())
	ids := addLinks(t, s, "A", "B", "C")
	require.NoError(t, s.ReorderLinks(ctx, 2, 0))
	require.NoError(t, s.ToggleLinkActive(ctx, ids[1]))
	require.NoError(t, s.SetThemePreset(ctx, "Aurora"))
	require.NoError(t, s.TrackClick(ctx, s.CurrentProfile().ID, ids[0]))
	_, err = s.CreateProfile(ctx, domain.ProfileDraft{Username: "second"})
	require.NoError(t, err)

	reloaded, err := LoadProfileStore(ctx, repo, "linkora-profile")
	require.NoError(t, err)

	assert.Equal(t, s.Snapshot(), reloaded.Snapshot())
}

func TestProfileStore_PersistFailureKeepsMemory(t *testing.T) {
	repo := newMemorySnapshots()
	repo.saveErr = errors.New("disk full")
	s, err := LoadProfileStore(context.Background(), repo, "k")
	require.NoError(t, err)

	var got []ChangeEvent
	s.Subscribe(func(ev ChangeEvent) { got = append(got, ev) })

	_, err = s.AddLink(context.Background(), domain.LinkInput{Title: "A", URL: "a.io"})
	require.NoError(t, err)

	assert.Len(t, s.CurrentProfile().Links, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "addLink", got[0].Operation)
	assert.EqualError(t, got[0].PersistErr, "disk full")
	assert.Len(t, got[0].Snapshot.Profiles[0].Links, 1)
}

func TestProfileStore_SubscribeAndUnsubscribe(t *testing.T) {
	s, _ := newTestStore(t)
	var first, second []string
	unsubscribe := s.Subscribe(func(ev ChangeEvent) { first = append(first, ev.Operation) })
	s.Subscribe(func(ev ChangeEvent) { second = append(second, ev.Operation) })

	addLinks(t, s, "A")
	unsubscribe()
	s.ResetStore(context.Background())

	assert.Equal(t, []string{"addLink"}, first)
	assert.Equal(t, []string{"addLink", "resetStore"}, second)
}

func TestProfileStore_ConcurrentAddLink(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetUser(context.Background(), proUser())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddLink(context.Background(), domain.LinkInput{Title: fmt.Sprint(i), URL: "example.com"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	current := s.CurrentProfile()
	assert.Len(t, current.Links, 50)
	assertDenseOrder(t, current)
}
