package domain

import (
	"maps"
	"time"
)

// DateLayout is the key format of the daily buckets (UTC calendar date)
const DateLayout = "2006-01-02"

type LinkStat struct {
	Clicks      int        `json:"clicks"`
	LastClicked *time.Time `json:"lastClicked,omitempty"`
}

type DailyStat struct {
	Views  int `json:"views"`
	Clicks int `json:"clicks"`
}

// Analytics holds the counters of one profile. TotalClicks equals the sum
// of LinkStats clicks, and daily buckets roll up to the totals.
type Analytics struct {
	ProfileID   string               `json:"profileId"`
	TotalViews  int                  `json:"totalViews"`
	TotalClicks int                  `json:"totalClicks"`
	LinkStats   map[string]LinkStat  `json:"linkStats"`
	DailyStats  map[string]DailyStat `json:"dailyStats"`
}

func NewAnalytics(profileID string) *Analytics {
	return &Analytics{
		ProfileID:  profileID,
		LinkStats:  map[string]LinkStat{},
		DailyStats: map[string]DailyStat{},
	}
}

// DayKey formats t as a daily bucket key
func DayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func (a *Analytics) ensureMaps() {
	if a.LinkStats == nil {
		a.LinkStats = map[string]LinkStat{}
	}
	if a.DailyStats == nil {
		a.DailyStats = map[string]DailyStat{}
	}
}

func (a *Analytics) RecordView(at time.Time) {
	a.ensureMaps()
	a.TotalViews++
	day := a.DailyStats[DayKey(at)]
	day.Views++
	a.DailyStats[DayKey(at)] = day
}

func (a *Analytics) RecordClick(linkID string, at time.Time) {
	a.ensureMaps()
	a.TotalClicks++
	stat := a.LinkStats[linkID]
	stat.Clicks++
	t := at
	stat.LastClicked = &t
	a.LinkStats[linkID] = stat

	day := a.DailyStats[DayKey(at)]
	day.Clicks++
	a.DailyStats[DayKey(at)] = day
}

func (a *Analytics) Clone() *Analytics {
	if a == nil {
		return nil
	}
	c := *a
	c.LinkStats = make(map[string]LinkStat, len(a.LinkStats))
	for k, v := range a.LinkStats {
		if v.LastClicked != nil {
			t := *v.LastClicked
			v.LastClicked = &t
		}
		c.LinkStats[k] = v
	}
	c.DailyStats = maps.Clone(a.DailyStats)
	if c.DailyStats == nil {
		c.DailyStats = map[string]DailyStat{}
	}
	return &c
}
