package domain

// SubscriptionPlan is a static catalog entry. A nil limit means unlimited.
type SubscriptionPlan struct {
	ID            Tier     `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	Interval      string   `json:"interval"`
	Features      []string `json:"features"`
	MaxProfiles   *int     `json:"maxProfiles"`
	MaxLinks      *int     `json:"maxLinks"`
	CustomDomains bool     `json:"customDomains"`
	Analytics     bool     `json:"analytics"`
	PremiumThemes bool     `json:"premiumThemes"`
}

// Limit returns a pointer for use as a plan limit
func Limit(n int) *int {
	return &n
}

// AllowsProfiles reports whether an account may own n profiles
func (p SubscriptionPlan) AllowsProfiles(n int) bool {
	return p.MaxProfiles == nil || n <= *p.MaxProfiles
}

// AllowsLinks reports whether a profile may hold n links
func (p SubscriptionPlan) AllowsLinks(n int) bool {
	return p.MaxLinks == nil || n <= *p.MaxLinks
}

// PlanCatalog is looked up by tier
type PlanCatalog []SubscriptionPlan

func (c PlanCatalog) Find(tier Tier) (SubscriptionPlan, bool) {
	for _, p := range c {
		if p.ID == tier {
			return p, true
		}
	}
	return SubscriptionPlan{}, false
}

// DefaultPlans returns the built-in free/pro/business catalog
func DefaultPlans() PlanCatalog {
	return PlanCatalog{
		{
			ID:            TierFree,
			Name:          "Free",
			Price:         0,
			Interval:      "month",
			Features:      []string{"1 profile", "10 links", "Basic themes", "Basic analytics"},
			MaxProfiles:   Limit(1),
			MaxLinks:      Limit(10),
			CustomDomains: false,
			Analytics:     false,
			PremiumThemes: false,
		},
		{
			ID:            TierPro,
			Name:          "Pro",
			Price:         9.99,
			Interval:      "month",
			Features:      []string{"5 profiles", "Unlimited links", "Premium themes", "Advanced analytics", "QR codes", "Custom domains"},
			MaxProfiles:   Limit(5),
			MaxLinks:      nil,
			CustomDomains: true,
			Analytics:     true,
			PremiumThemes: true,
		},
		{
			ID:       TierBusiness,
			Name:     "Business",
			Price:    29.99,
			Interval: "month",
			Features: []string{"Unlimited profiles", "Unlimited links", "All themes", "Advanced analytics",
				"QR codes", "Custom domains", "Team collaboration", "Priority support"},
			MaxProfiles:   nil,
			MaxLinks:      nil,
			CustomDomains: true,
			Analytics:     true,
			PremiumThemes: true,
		},
	}
}

// Feature is a gated capability key
type Feature string

const (
	FeaturePremiumThemes    Feature = "premiumThemes"
	FeatureAnalytics        Feature = "analytics"
	FeatureQRCodes          Feature = "qrCodes"
	FeatureCustomDomains    Feature = "customDomains"
	FeatureUnlimitedLinks   Feature = "unlimitedLinks"
	FeatureMultipleProfiles Feature = "multipleProfiles"
)

// Features lists every known feature key
func Features() []Feature {
	return []Feature{
		FeaturePremiumThemes,
		FeatureAnalytics,
		FeatureQRCodes,
		FeatureCustomDomains,
		FeatureUnlimitedLinks,
		FeatureMultipleProfiles,
	}
}

// CanUseFeature evaluates the feature gate for the user's subscription tier.
// It denies everything when there is no user or the tier has no plan.
func CanUseFeature(user *User, plans PlanCatalog, f Feature) bool {
	if user == nil {
		return false
	}
	plan, ok := plans.Find(user.SubscriptionTier)
	if !ok {
		return false
	}
	switch f {
	case FeaturePremiumThemes:
		return plan.PremiumThemes
	case FeatureAnalytics:
		return plan.Analytics
	case FeatureQRCodes:
		return user.SubscriptionTier != TierFree
	case FeatureCustomDomains:
		return plan.CustomDomains
	case FeatureUnlimitedLinks:
		return plan.MaxLinks == nil
	case FeatureMultipleProfiles:
		return plan.MaxProfiles == nil || *plan.MaxProfiles > 1
	}
	return false
}

// PlanFor returns the plan governing limits for user, falling back to the
// free plan when there is no user or the tier is unknown.
func PlanFor(user *User, plans PlanCatalog) SubscriptionPlan {
	if user != nil {
		if p, ok := plans.Find(user.SubscriptionTier); ok {
			return p
		}
	}
	if p, ok := plans.Find(TierFree); ok {
		return p
	}
	return SubscriptionPlan{ID: TierFree}
}
