package handler

import (
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/core/services"
)

// entitlements checks editor requests against the caller's plan before they
// reach the profile store. Without a signed-in user the free plan applies and
// every gated feature is denied.
type entitlements struct {
	user  *domain.User
	plans domain.PlanCatalog
}

func (h *HTTPHandler) entitlements(store *services.ProfileStore) entitlements {
	return entitlements{user: store.User(), plans: h.plans}
}

func (e entitlements) allows(f domain.Feature) bool {
	return domain.CanUseFeature(e.user, e.plans, f)
}

func (e entitlements) checkProfiles(n int) error {
	if !domain.PlanFor(e.user, e.plans).AllowsProfiles(n) {
		return domain.ErrProfileLimitReached
	}
	return nil
}

func (e entitlements) checkLinks(n int) error {
	if !domain.PlanFor(e.user, e.plans).AllowsLinks(n) {
		return domain.ErrLinkLimitReached
	}
	return nil
}

func (e entitlements) checkCustomDomain(name string) error {
	if name != "" && !e.allows(domain.FeatureCustomDomains) {
		return domain.ErrFeatureNotAvailable
	}
	return nil
}

// checkTheme rejects moving a profile onto a premium preset's look, whether
// by preset name or by merging the same colors field by field. Keeping a
// premium theme that is already in place is allowed.
func (e entitlements) checkTheme(current, next domain.Theme) error {
	if domain.IsPremiumTheme(next) && !current.Equal(next) && !e.allows(domain.FeaturePremiumThemes) {
		return domain.ErrFeatureNotAvailable
	}
	return nil
}
