package domain

// GradientDirection mirrors the css gradient shorthand used by the editor
type GradientDirection string

const (
	GradientToRight       GradientDirection = "to-r"
	GradientToBottomRight GradientDirection = "to-br"
	GradientToBottom      GradientDirection = "to-b"
	GradientToBottomLeft  GradientDirection = "to-bl"
	GradientToLeft        GradientDirection = "to-l"
	GradientToTopLeft     GradientDirection = "to-tl"
	GradientToTop         GradientDirection = "to-t"
	GradientToTopRight    GradientDirection = "to-tr"
)

func (d GradientDirection) Valid() bool {
	switch d {
	case GradientToRight, GradientToBottomRight, GradientToBottom, GradientToBottomLeft,
		GradientToLeft, GradientToTopLeft, GradientToTop, GradientToTopRight:
		return true
	}
	return false
}

// Gradient is a two-stop background gradient
type Gradient struct {
	From      string            `json:"from"`
	To        string            `json:"to"`
	Direction GradientDirection `json:"direction"`
}

// Theme is the visual styling of a profile. Colors are not validated here.
type Theme struct {
	PrimaryColor       string    `json:"primaryColor"`
	BackgroundColor    string    `json:"backgroundColor"`
	TextColor          string    `json:"textColor"`
	CardColor          string    `json:"cardColor"`
	IsDarkMode         bool      `json:"isDarkMode"`
	BackgroundGradient *Gradient `json:"backgroundGradient,omitempty"`
}

// ThemeUpdate is a partial theme. ClearGradient removes the gradient.
type ThemeUpdate struct {
	PrimaryColor       *string   `json:"primaryColor,omitempty"`
	BackgroundColor    *string   `json:"backgroundColor,omitempty"`
	TextColor          *string   `json:"textColor,omitempty"`
	CardColor          *string   `json:"cardColor,omitempty"`
	IsDarkMode         *bool     `json:"isDarkMode,omitempty"`
	BackgroundGradient *Gradient `json:"backgroundGradient,omitempty"`
	ClearGradient      bool      `json:"clearGradient,omitempty"`
}

// IsZero reports whether no color has been set at all
func (t Theme) IsZero() bool {
	return t.PrimaryColor == "" && t.BackgroundColor == "" && t.TextColor == "" &&
		t.CardColor == "" && t.BackgroundGradient == nil
}

func (t Theme) Clone() Theme {
	if t.BackgroundGradient != nil {
		g := *t.BackgroundGradient
		t.BackgroundGradient = &g
	}
	return t
}

// Merge returns a copy of t with the fields of u applied
func (t Theme) Merge(u ThemeUpdate) Theme {
	out := t.Clone()
	if u.PrimaryColor != nil {
		out.PrimaryColor = *u.PrimaryColor
	}
	if u.BackgroundColor != nil {
		out.BackgroundColor = *u.BackgroundColor
	}
	if u.TextColor != nil {
		out.TextColor = *u.TextColor
	}
	if u.CardColor != nil {
		out.CardColor = *u.CardColor
	}
	if u.IsDarkMode != nil {
		out.IsDarkMode = *u.IsDarkMode
	}
	switch {
	case u.ClearGradient:
		out.BackgroundGradient = nil
	case u.BackgroundGradient != nil:
		g := *u.BackgroundGradient
		out.BackgroundGradient = &g
	}
	return out
}

// PresetCategory partitions the catalog into free and premium presets
type PresetCategory string

const (
	PresetFree    PresetCategory = "free"
	PresetPremium PresetCategory = "premium"
)

type ThemePreset struct {
	Name     string         `json:"name"`
	Category PresetCategory `json:"category"`
	Theme    Theme          `json:"theme"`
}

func (p ThemePreset) IsPremium() bool {
	return p.Category == PresetPremium
}

var themePresets = []ThemePreset{
	{
		Name:     "Ocean",
		Category: PresetFree,
		Theme: Theme{
			PrimaryColor:       "#0ea5e9",
			BackgroundColor:    "#f0f9ff",
			TextColor:          "#0f172a",
			CardColor:          "#ffffff",
			BackgroundGradient: &Gradient{From: "#f0f9ff", To: "#e0f2fe", Direction: GradientToBottomRight},
		},
	},
	{
		Name:     "Sunset",
		Category: PresetFree,
		Theme: Theme{
			PrimaryColor:       "#f59e0b",
			BackgroundColor:    "#fef3c7",
			TextColor:          "#0f172a",
			CardColor:          "#ffffff",
			BackgroundGradient: &Gradient{From: "#fef3c7", To: "#fed7aa", Direction: GradientToBottomRight},
		},
	},
	{
		Name:     "Forest",
		Category: PresetFree,
		Theme: Theme{
			PrimaryColor:       "#10b981",
			BackgroundColor:    "#ecfdf5",
			TextColor:          "#0f172a",
			CardColor:          "#ffffff",
			BackgroundGradient: &Gradient{From: "#ecfdf5", To: "#d1fae5", Direction: GradientToBottomRight},
		},
	},
	{
		Name:     "Dark Mode",
		Category: PresetFree,
		Theme: Theme{
			PrimaryColor:       "#8b5cf6",
			BackgroundColor:    "#0f0f23",
			TextColor:          "#f8fafc",
			CardColor:          "#1e1e2e",
			IsDarkMode:         true,
			BackgroundGradient: &Gradient{From: "#0f0f23", To: "#1a1a2e", Direction: GradientToBottomRight},
		},
	},
	{
		Name:     "Minimal",
		Category: PresetFree,
		Theme: Theme{
			PrimaryColor:    "#6b7280",
			BackgroundColor: "#ffffff",
			TextColor:       "#111827",
			CardColor:       "#f9fafb",
		},
	},
	{
		Name:     "Neon",
		Category: PresetPremium,
		Theme: Theme{
			PrimaryColor:       "#00ff88",
			BackgroundColor:    "#0a0a0a",
			TextColor:          "#ffffff",
			CardColor:          "#1a1a1a",
			IsDarkMode:         true,
			BackgroundGradient: &Gradient{From: "#0a0a0a", To: "#1a1a1a", Direction: GradientToBottomRight},
		},
	},
	{
		Name:     "Aurora",
		Category: PresetPremium,
		Theme: Theme{
			PrimaryColor:       "#ff6b9d",
			BackgroundColor:    "#667eea",
			TextColor:          "#ffffff",
			CardColor:          "#ffffff",
			BackgroundGradient: &Gradient{From: "#667eea", To: "#764ba2", Direction: GradientToBottomRight},
		},
	},
	{
		Name:     "Midnight",
		Category: PresetPremium,
		Theme: Theme{
			PrimaryColor:       "#6366f1",
			BackgroundColor:    "#0f172a",
			TextColor:          "#f8fafc",
			CardColor:          "#1e293b",
			IsDarkMode:         true,
			BackgroundGradient: &Gradient{From: "#0f172a", To: "#1e293b", Direction: GradientToBottomRight},
		},
	},
}

// ThemePresets returns a copy of the preset catalog in display order
func ThemePresets() []ThemePreset {
	out := make([]ThemePreset, len(themePresets))
	for i, p := range themePresets {
		p.Theme = p.Theme.Clone()
		out[i] = p
	}
	return out
}

// FindPreset looks a preset up by exact name
func FindPreset(name string) (ThemePreset, bool) {
	for _, p := range themePresets {
		if p.Name == name {
			p.Theme = p.Theme.Clone()
			return p, true
		}
	}
	return ThemePreset{}, false
}

// DefaultTheme is the first preset of the catalog
func DefaultTheme() Theme {
	return themePresets[0].Theme.Clone()
}

// IsPremiumTheme reports whether t equals one of the premium presets
func IsPremiumTheme(t Theme) bool {
	for _, p := range themePresets {
		if p.IsPremium() && themesEqual(p.Theme, t) {
			return true
		}
	}
	return false
}

// Equal compares every field, including the gradient stops
func (t Theme) Equal(o Theme) bool {
	return themesEqual(t, o)
}

func themesEqual(a, b Theme) bool {
	if a.PrimaryColor != b.PrimaryColor || a.BackgroundColor != b.BackgroundColor ||
		a.TextColor != b.TextColor || a.CardColor != b.CardColor || a.IsDarkMode != b.IsDarkMode {
		return false
	}
	if a.BackgroundGradient == nil || b.BackgroundGradient == nil {
		return a.BackgroundGradient == b.BackgroundGradient
	}
	return *a.BackgroundGradient == *b.BackgroundGradient
}
