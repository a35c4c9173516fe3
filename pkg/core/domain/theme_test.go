package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemePresets(t *testing.T) {
	presets := ThemePresets()
	require.Len(t, presets, 8)
	assert.Equal(t, "Ocean", presets[0].Name)

	var free, premium int
	for _, p := range presets {
		if p.IsPremium() {
			premium++
		} else {
			free++
		}
	}
	assert.Equal(t, 5, free)
	assert.Equal(t, 3, premium)
}

func TestFindPreset(t *testing.T) {
	p, ok := FindPreset("Midnight")
	require.True(t, ok)
	assert.Equal(t, "#6366f1", p.Theme.PrimaryColor)
	assert.True(t, p.Theme.IsDarkMode)

	_, ok = FindPreset("midnight")
	assert.False(t, ok)

	_, ok = FindPreset("Nonexistent")
	assert.False(t, ok)
}

func TestFindPreset_ReturnsCopy(t *testing.T) {
	p, _ := FindPreset("Ocean")
	p.Theme.BackgroundGradient.To = "#000000"

	again, _ := FindPreset("Ocean")
	assert.Equal(t, "#e0f2fe", again.Theme.BackgroundGradient.To)
}

func TestTheme_Merge(t *testing.T) {
	base := DefaultTheme()
	primary := "#ff0000"
	dark := true

	merged := base.Merge(ThemeUpdate{PrimaryColor: &primary, IsDarkMode: &dark})

	assert.Equal(t, "#ff0000", merged.PrimaryColor)
	assert.True(t, merged.IsDarkMode)
	assert.Equal(t, base.BackgroundColor, merged.BackgroundColor)
	assert.Equal(t, base.BackgroundGradient, merged.BackgroundGradient)
	assert.Equal(t, "#0ea5e9", base.PrimaryColor)

	cleared := merged.Merge(ThemeUpdate{ClearGradient: true})
	assert.Nil(t, cleared.BackgroundGradient)
	assert.NotNil(t, merged.BackgroundGradient)

	g := Gradient{From: "#111111", To: "#222222", Direction: GradientToTop}
	withGradient := cleared.Merge(ThemeUpdate{BackgroundGradient: &g})
	assert.Equal(t, &g, withGradient.BackgroundGradient)
}

func TestIsPremiumTheme(t *testing.T) {
	neon, _ := FindPreset("Neon")
	assert.True(t, IsPremiumTheme(neon.Theme))
	assert.False(t, IsPremiumTheme(DefaultTheme()))

	primary := "#123456"
	assert.False(t, IsPremiumTheme(neon.Theme.Merge(ThemeUpdate{PrimaryColor: &primary})))
}

func TestTheme_Equal(t *testing.T) {
	neon, _ := FindPreset("Neon")
	assert.True(t, neon.Theme.Equal(neon.Theme.Clone()))
	assert.False(t, neon.Theme.Equal(DefaultTheme()))

	flat := neon.Theme.Merge(ThemeUpdate{ClearGradient: true})
	assert.False(t, neon.Theme.Equal(flat))
}
