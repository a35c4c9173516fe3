package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// SnapshotVersion is the current persisted envelope version
const SnapshotVersion = 1

// Snapshot is the persisted subset of store state
type Snapshot struct {
	Version          int                   `json:"version"`
	User             *User                 `json:"user"`
	CurrentProfileID string                `json:"currentProfileId"`
	Profiles         []Profile             `json:"profiles"`
	Analytics        map[string]*Analytics `json:"analytics"`
}

// legacyState is the browser-storage payload written before versioning
type legacyState struct {
	Profile        *Profile   `json:"profile"`
	User           *User      `json:"user"`
	CurrentProfile *Profile   `json:"currentProfile"`
	Profiles       []Profile  `json:"profiles"`
	Analytics      *Analytics `json:"analytics"`
}

type snapshotHeader struct {
	Version int          `json:"version"`
	State   *legacyState `json:"state"`
	Profile *Profile     `json:"profile"`
}

// DecodeSnapshot parses a versioned envelope, a legacy {"state":{...}}
// payload or a bare {"profile":{...}} object, and normalizes the result.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var head snapshotHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if head.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSnapshotVersion, head.Version)
	}

	var snap *Snapshot
	switch {
	case head.State != nil:
		snap = fromLegacy(head.State)
	case head.Version == 0 && head.Profile != nil:
		snap = fromLegacy(&legacyState{Profile: head.Profile})
	default:
		snap = &Snapshot{}
		if err := json.Unmarshal(data, snap); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	}
	snap.Normalize()
	return snap, nil
}

func fromLegacy(st *legacyState) *Snapshot {
	snap := &Snapshot{User: st.User, Profiles: st.Profiles}
	if st.Profile != nil && len(snap.Profiles) == 0 {
		snap.Profiles = []Profile{*st.Profile}
		snap.CurrentProfileID = st.Profile.ID
	}
	if st.CurrentProfile != nil {
		snap.CurrentProfileID = st.CurrentProfile.ID
		if !slices.ContainsFunc(snap.Profiles, func(p Profile) bool { return p.ID == st.CurrentProfile.ID }) {
			snap.Profiles = append(snap.Profiles, *st.CurrentProfile)
		}
	}
	if st.Analytics != nil {
		snap.Analytics = map[string]*Analytics{st.Analytics.ProfileID: st.Analytics}
	}
	return snap
}

// Encode writes the snapshot as a versioned envelope
func (s *Snapshot) Encode() ([]byte, error) {
	s.Version = SnapshotVersion
	return json.Marshal(s)
}

// Normalize repairs a decoded snapshot: dense link orders, complete themes,
// known tiers, non-nil collections and a current id that is either empty
// or exists.
func (s *Snapshot) Normalize() {
	s.Version = SnapshotVersion
	if s.Profiles == nil {
		s.Profiles = []Profile{}
	}
	for i := range s.Profiles {
		p := &s.Profiles[i]
		p.NormalizeLinks()
		if p.Theme.IsZero() {
			p.Theme = DefaultTheme()
		}
		if !p.SubscriptionTier.Valid() {
			p.SubscriptionTier = TierFree
		}
	}
	if s.Analytics == nil {
		s.Analytics = map[string]*Analytics{}
	}
	for id, a := range s.Analytics {
		if a == nil || id == "" {
			delete(s.Analytics, id)
			continue
		}
		a.ProfileID = id
		a.ensureMaps()
	}
	if s.CurrentProfileID != "" && !slices.ContainsFunc(s.Profiles, func(p Profile) bool { return p.ID == s.CurrentProfileID }) {
		s.CurrentProfileID = ""
		if len(s.Profiles) > 0 {
			s.CurrentProfileID = s.Profiles[0].ID
		}
	}
}

// Profile returns the profile with the given id
func (s *Snapshot) Profile(id string) (*Profile, bool) {
	for i := range s.Profiles {
		if s.Profiles[i].ID == id {
			return &s.Profiles[i], true
		}
	}
	return nil, false
}
