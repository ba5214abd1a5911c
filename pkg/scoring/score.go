package scoring

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"

	"leadscout/pkg/model"
)

// Weights of the five sub-scores; they must sum to 1
type Weights struct {
	Subscribers float64 `mapstructure:"subscribers"`
	Engagement  float64 `mapstructure:"engagement"`
	Consistency float64 `mapstructure:"consistency"`
	ViewsRatio  float64 `mapstructure:"views_ratio"`
	NicheFit    float64 `mapstructure:"niche_fit"`
}

func DefaultWeights() Weights {
	return Weights{
		Subscribers: 0.30,
		Engagement:  0.25,
		Consistency: 0.20,
		ViewsRatio:  0.15,
		NicheFit:    0.10,
	}
}

// Validate rejects negative weights and sums away from 1
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"subscribers": w.Subscribers,
		"engagement":  w.Engagement,
		"consistency": w.Consistency,
		"views_ratio": w.ViewsRatio,
		"niche_fit":   w.NicheFit,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative: %v", name, v)
		}
	}
	sum := w.Subscribers + w.Engagement + w.Consistency + w.ViewsRatio + w.NicheFit
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}

// Thresholds shape the sub-score curves
type Thresholds struct {
	AudienceLow         int64   `mapstructure:"audience_low"`
	AudienceHigh        int64   `mapstructure:"audience_high"`
	AudienceTaperSpan   int64   `mapstructure:"audience_taper_span"`
	ExcellentEngagement float64 `mapstructure:"excellent_engagement"`
	GreatCadence        float64 `mapstructure:"great_cadence"`
	TargetReachRatio    float64 `mapstructure:"target_reach_ratio"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		AudienceLow:         50_000,
		AudienceHigh:        200_000,
		AudienceTaperSpan:   300_000,
		ExcellentEngagement: 5,
		GreatCadence:        4,
		TargetReachRatio:    0.10,
	}
}

// Breakdown holds the clamped sub-scores behind a priority score
type Breakdown struct {
	Audience    float64
	Engagement  float64
	Consistency float64
	Reach       float64
	NicheFit    float64
}

// Scorer computes the 1-10 priority score
type Scorer struct {
	Weights    Weights
	Thresholds Thresholds
}

func NewScorer(w Weights, t Thresholds) *Scorer {
	return &Scorer{Weights: w, Thresholds: t}
}

// Score is the weighted sum of the sub-scores, clamped to [1,10] and rounded
// to one decimal
func (s *Scorer) Score(ch *model.ChannelSnapshot, an model.ChannelAnalysis, niche string) float64 {
	b := s.Breakdown(ch, an, niche)
	w := s.Weights
	total := b.Audience*w.Subscribers +
		b.Engagement*w.Engagement +
		b.Consistency*w.Consistency +
		b.Reach*w.ViewsRatio +
		b.NicheFit*w.NicheFit
	return math.Round(clamp(total, 1, 10)*10) / 10
}

func (s *Scorer) Breakdown(ch *model.ChannelSnapshot, an model.ChannelAnalysis, niche string) Breakdown {
	return Breakdown{
		Audience:    s.audience(ch.SubscriberCount),
		Engagement:  linear(an.EngagementRate, s.Thresholds.ExcellentEngagement),
		Consistency: linear(an.UploadFrequency, s.Thresholds.GreatCadence),
		Reach:       s.reach(an.AvgViews, ch.SubscriberCount),
		NicheFit:    nicheFit(ch.Description, niche),
	}
}

// audience ramps 0->7 below low, 7->10 up to high, then tapers off. Oversized
// channels score lower than the mid band.
func (s *Scorer) audience(subs int64) float64 {
	t := s.Thresholds
	var v float64
	switch {
	case subs <= 0:
		return 0
	case subs < t.AudienceLow:
		v = float64(subs) / float64(t.AudienceLow) * 7
	case subs <= t.AudienceHigh:
		v = 7 + float64(subs-t.AudienceLow)/float64(max(1, t.AudienceHigh-t.AudienceLow))*3
	default:
		v = 10 - float64(subs-t.AudienceHigh)/float64(max(1, t.AudienceTaperSpan))*3
	}
	return clamp(v, 0, 10)
}

func (s *Scorer) reach(avgViews, subs int64) float64 {
	if subs <= 0 {
		return 0
	}
	return linear(float64(avgViews)/float64(subs), s.Thresholds.TargetReachRatio)
}

// linear maps target to 10, proportionally below, capped at 10
func linear(v, target float64) float64 {
	if v <= 0 || target <= 0 {
		return 0
	}
	return clamp(v/target*10, 0, 10)
}

// nicheFit is the share of niche keywords present in the description, out of 10
func nicheFit(description, niche string) float64 {
	fold := cases.Fold()
	desc := fold.String(description)
	keywords := strings.Fields(fold.String(niche))

	matches := 0
	for _, kw := range keywords {
		if strings.Contains(desc, kw) {
			matches++
		}
	}
	return clamp(float64(matches)/float64(max(1, len(keywords)))*10, 0, 10)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
