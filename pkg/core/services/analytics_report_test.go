package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
)

func reportProfile() domain.Profile {
	p := domain.NewProfile("p1", domain.ProfileDraft{}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		p.AppendLink(domain.NewLinkItem(id, domain.LinkInput{Title: id, URL: id + ".io"}))
	}
	return p
}

func TestTopLinks(t *testing.T) {
	p := reportProfile()
	require.NoError(t, p.ToggleLink("g"))
	a := domain.NewAnalytics("p1")
	a.LinkStats["c"] = domain.LinkStat{Clicks: 9}
	a.LinkStats["e"] = domain.LinkStat{Clicks: 4}
	a.LinkStats["g"] = domain.LinkStat{Clicks: 100}

	top := TopLinks(p, a, TopLinksLimit)

	require.Len(t, top, 5)
	ids := []string{}
	for _, lc := range top {
		ids = append(ids, lc.Link.ID)
	}
	assert.Equal(t, []string{"c", "e", "a", "b", "d"}, ids)
	assert.Equal(t, 9, top[0].Clicks)

	noStats := TopLinks(p, nil, 2)
	assert.Len(t, noStats, 2)
	assert.Zero(t, noStats[0].Clicks)
}

func seriesOf(views ...int) []DailyPoint {
	out := []DailyPoint{}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range views {
		out = append(out, DailyPoint{Date: domain.DayKey(start.AddDate(0, 0, i)), Views: v, Clicks: v / 2})
	}
	return out
}

func TestGrowthOf(t *testing.T) {
	assert.Equal(t, Growth{}, GrowthOf(seriesOf(10)))
	assert.Equal(t, Growth{}, GrowthOf(seriesOf(0, 0, 0, 5, 5, 5)))

	g := GrowthOf(seriesOf(2, 2, 2, 4, 4, 4))
	assert.InDelta(t, 100.0, g.Views, 0.001)
	assert.InDelta(t, 100.0, g.Clicks, 0.001)

	g = GrowthOf(seriesOf(10, 1, 1, 1))
	assert.InDelta(t, -70.0, g.Views, 0.001)
}

func TestDailySeriesAndRange(t *testing.T) {
	a := domain.NewAnalytics("p1")
	a.DailyStats["2024-01-03"] = domain.DailyStat{Views: 3}
	a.DailyStats["2024-01-01"] = domain.DailyStat{Views: 1}
	a.DailyStats["2024-01-10"] = domain.DailyStat{Views: 10}

	series := DailySeries(a)
	require.Len(t, series, 3)
	assert.Equal(t, "2024-01-01", series[0].Date)
	assert.Equal(t, "2024-01-10", series[2].Date)

	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	recent := SeriesSince(series, now, 7)
	require.Len(t, recent, 1)
	assert.Equal(t, "2024-01-10", recent[0].Date)
	assert.Len(t, SeriesSince(series, now, 0), 3)

	assert.Empty(t, DailySeries(nil))
}

func TestBuildReport(t *testing.T) {
	p := reportProfile()
	a := domain.NewAnalytics("p1")
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		a.RecordView(now)
	}
	a.RecordClick("b", now)

	r := BuildReport(p, a, now, ReportRanges["7d"])

	assert.Equal(t, "p1", r.ProfileID)
	assert.Equal(t, 4, r.TotalViews)
	assert.Equal(t, 1, r.TotalClicks)
	assert.InDelta(t, 25.0, r.ClickRate, 0.001)
	assert.Equal(t, "b", r.TopLinks[0].Link.ID)
	assert.Len(t, r.Daily, 1)

	empty := BuildReport(p, nil, now, 0)
	assert.Zero(t, empty.ClickRate)
	assert.Empty(t, empty.Daily)
}
