package analyzer

import (
	"math"
	"sort"
	"time"

	"leadscout/pkg/model"
	"leadscout/pkg/utils"
)

const (
	DefaultRecentWindow        = 10
	DefaultShortFormMaxSeconds = 60

	topVideoCount       = 3
	contactScanCount    = 3
	daysPerCadenceMonth = 30.0
)

// Config controls how a video list is reduced
type Config struct {
	// RecentWindow is how many of the newest videos feed the averages and engagement
	RecentWindow int `mapstructure:"recent_window"`
	// ShortFormMaxSeconds is the inclusive upper bound of a short
	ShortFormMaxSeconds int `mapstructure:"short_form_max_seconds"`
}

// Analyzer turns a channel's videos into a ChannelAnalysis. It is stateless
// and safe for concurrent use.
type Analyzer struct {
	cfg Config
}

func New(cfg Config) *Analyzer {
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = DefaultRecentWindow
	}
	if cfg.ShortFormMaxSeconds <= 0 {
		cfg.ShortFormMaxSeconds = DefaultShortFormMaxSeconds
	}
	return &Analyzer{cfg: cfg}
}

// Analyze computes content mix, cadence, recent-window engagement, top videos
// and contact addresses. The input slice is left untouched.
func (a *Analyzer) Analyze(videos []model.VideoRecord) model.ChannelAnalysis {
	if len(videos) == 0 {
		return model.EmptyAnalysis()
	}

	sorted := make([]model.VideoRecord, len(videos))
	copy(sorted, videos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt > sorted[j].PublishedAt
	})

	out := model.EmptyAnalysis()
	out.LastUploadDate = sorted[0].PublishedAt

	var longformSeconds int64
	for _, v := range sorted {
		if v.DurationSeconds <= a.cfg.ShortFormMaxSeconds {
			out.ShortsCount++
		} else {
			out.LongformCount++
			longformSeconds += int64(v.DurationSeconds)
		}
	}
	if out.LongformCount > 0 {
		out.AvgDurationSeconds = roundHalfEven(float64(longformSeconds) / float64(out.LongformCount))
	}

	out.UploadFrequency = uploadFrequency(sorted)

	recent := sorted[:min(a.cfg.RecentWindow, len(sorted))]
	var views, likes, comments int64
	for _, v := range recent {
		views += v.ViewCount
		likes += v.LikeCount
		comments += v.CommentCount
	}
	n := float64(len(recent))
	out.AvgViews = roundHalfEven(float64(views) / n)
	out.AvgLikes = roundHalfEven(float64(likes) / n)
	out.AvgComments = roundHalfEven(float64(comments) / n)
	out.EngagementRate = engagementRate(likes+comments, views)

	out.TopVideos = topByViews(sorted, topVideoCount)

	descriptions := make([]string, 0, contactScanCount)
	for _, v := range sorted[:min(contactScanCount, len(sorted))] {
		descriptions = append(descriptions, v.Description)
	}
	out.DescriptionEmails = utils.ExtractEmails(descriptions...)

	return out
}

// uploadFrequency estimates videos per 30 days from the span of parseable
// publish times. Fewer than two dated videos, or a span under a day, gives 0.
func uploadFrequency(videos []model.VideoRecord) float64 {
	if len(videos) < 2 {
		return 0
	}

	var earliest, latest time.Time
	dated := 0
	for _, v := range videos {
		t, err := time.Parse(time.RFC3339, v.PublishedAt)
		if err != nil {
			continue
		}
		if dated == 0 || t.Before(earliest) {
			earliest = t
		}
		if dated == 0 || t.After(latest) {
			latest = t
		}
		dated++
	}
	if dated < 2 {
		return 0
	}

	spanDays := int(latest.Sub(earliest).Hours() / 24)
	if spanDays <= 0 {
		return 0
	}
	return roundTo(float64(dated)/(float64(spanDays)/daysPerCadenceMonth), 1)
}

func engagementRate(interactions, views int64) float64 {
	if views <= 0 {
		return 0
	}
	rate := roundTo(float64(interactions)/float64(views)*100, 4)
	return math.Max(0, math.Min(100, rate))
}

func topByViews(videos []model.VideoRecord, n int) []model.TopVideo {
	byViews := make([]model.VideoRecord, len(videos))
	copy(byViews, videos)
	sort.SliceStable(byViews, func(i, j int) bool {
		return byViews[i].ViewCount > byViews[j].ViewCount
	})

	top := make([]model.TopVideo, 0, n)
	for _, v := range byViews[:min(n, len(byViews))] {
		top = append(top, model.TopVideo{Title: v.Title, URL: v.URL, Views: v.ViewCount})
	}
	return top
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func roundHalfEven(v float64) int64 {
	return int64(math.RoundToEven(v))
}
