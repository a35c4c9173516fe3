package services

import (
	"slices"
	"sort"
	"time"

	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
)

const (
	TopLinksLimit = 5
	growthWindow  = 3
)

// ReportRanges maps the accepted range keys to a number of days
var ReportRanges = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
}

type LinkClicks struct {
	Link   domain.LinkItem `json:"link"`
	Clicks int             `json:"clicks"`
}

type DailyPoint struct {
	Date   string `json:"date"`
	Views  int    `json:"views"`
	Clicks int    `json:"clicks"`
}

type Growth struct {
	Views  float64 `json:"views"`  // percent
	Clicks float64 `json:"clicks"` // percent
}

type AnalyticsReport struct {
	ProfileID   string       `json:"profileId"`
	TotalViews  int          `json:"totalViews"`
	TotalClicks int          `json:"totalClicks"`
	ClickRate   float64      `json:"clickRate"` // percent
	TopLinks    []LinkClicks `json:"topLinks"`
	Daily       []DailyPoint `json:"daily"`
	Growth      Growth       `json:"growth"`
}

// TopLinks ranks the active links by clicks, highest first, at most n
func TopLinks(p domain.Profile, a *domain.Analytics, n int) []LinkClicks {
	out := []LinkClicks{}
	for _, l := range p.ActiveLinks() {
		clicks := 0
		if a != nil {
			clicks = a.LinkStats[l.ID].Clicks
		}
		out = append(out, LinkClicks{Link: l, Clicks: clicks})
	}
	slices.SortStableFunc(out, func(x, y LinkClicks) int {
		return y.Clicks - x.Clicks
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DailySeries returns the daily buckets sorted by date
func DailySeries(a *domain.Analytics) []DailyPoint {
	out := []DailyPoint{}
	if a == nil {
		return out
	}
	dates := make([]string, 0, len(a.DailyStats))
	for d := range a.DailyStats {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		s := a.DailyStats[d]
		out = append(out, DailyPoint{Date: d, Views: s.Views, Clicks: s.Clicks})
	}
	return out
}

// SeriesSince keeps the points dated within the last days days up to now
func SeriesSince(series []DailyPoint, now time.Time, days int) []DailyPoint {
	if days <= 0 {
		return series
	}
	cutoff := domain.DayKey(now.AddDate(0, 0, -(days - 1)))
	out := []DailyPoint{}
	for _, pt := range series {
		if pt.Date >= cutoff {
			out = append(out, pt)
		}
	}
	return out
}

// GrowthOf compares the last three recorded days with the three before them.
// A zero earlier window, or fewer than two days, yields zero growth.
func GrowthOf(series []DailyPoint) Growth {
	if len(series) < 2 {
		return Growth{}
	}
	recent := series[max(0, len(series)-growthWindow):]
	previous := series[max(0, len(series)-2*growthWindow):max(0, len(series)-growthWindow)]

	var rv, rc, pv, pc int
	for _, d := range recent {
		rv += d.Views
		rc += d.Clicks
	}
	for _, d := range previous {
		pv += d.Views
		pc += d.Clicks
	}
	return Growth{Views: percentChange(rv, pv), Clicks: percentChange(rc, pc)}
}

func percentChange(recent, previous int) float64 {
	if previous <= 0 {
		return 0
	}
	return float64(recent-previous) / float64(previous) * 100
}

// BuildReport derives the analytics view of a profile. days limits the
// daily series; zero keeps all of it.
func BuildReport(p domain.Profile, a *domain.Analytics, now time.Time, days int) AnalyticsReport {
	series := DailySeries(a)
	r := AnalyticsReport{
		ProfileID: p.ID,
		TopLinks:  TopLinks(p, a, TopLinksLimit),
		Daily:     SeriesSince(series, now, days),
		Growth:    GrowthOf(series),
	}
	if a != nil {
		r.TotalViews = a.TotalViews
		r.TotalClicks = a.TotalClicks
		if a.TotalViews > 0 {
			r.ClickRate = float64(a.TotalClicks) / float64(a.TotalViews) * 100
		}
	}
	return r
}
