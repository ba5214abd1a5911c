package scoring

import (
	"fmt"
	"strings"
	"time"

	"leadscout/pkg/model"
)

// Criteria is the admission policy for a lead
type Criteria struct {
	MinSubscribers     int64    `mapstructure:"min_subscribers"`
	MaxSubscribers     int64    `mapstructure:"max_subscribers"`
	MaxShorts          int      `mapstructure:"max_shorts"`
	MinLongform        int      `mapstructure:"min_longform"`
	MaxDaysSinceUpload int      `mapstructure:"max_days_since_upload"`
	AllowedCountries   []string `mapstructure:"allowed_countries"`
	AllowedLanguages   []string `mapstructure:"allowed_languages"`
}

// DefaultCriteria targets mid-sized English-language channels that upload
// long-form content regularly
func DefaultCriteria() Criteria {
	return Criteria{
		MinSubscribers:     10_000,
		MaxSubscribers:     500_000,
		MaxShorts:          5,
		MinLongform:        20,
		MaxDaysSinceUpload: 30,
		AllowedCountries:   []string{"US", "GB", "CA", "AU", "NZ", "IE"},
		AllowedLanguages:   []string{"en"},
	}
}

// RejectReason names the first admission check a channel failed
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectCountry     RejectReason = "country"
	RejectLanguage    RejectReason = "language"
	RejectAudience    RejectReason = "audience"
	RejectTooShorts   RejectReason = "too_many_shorts"
	RejectFewLongform RejectReason = "few_longform"
	RejectNoUpload    RejectReason = "no_upload_date"
	RejectStale       RejectReason = "stale"
)

// Decision is the outcome of an admission check
type Decision struct {
	Admitted bool
	Reason   RejectReason
	Detail   string
}

func admit() Decision { return Decision{Admitted: true} }

func reject(reason RejectReason, format string, args ...interface{}) Decision {
	return Decision{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Filter applies Criteria. Checks short-circuit, cheapest first.
type Filter struct {
	Criteria Criteria
}

func NewFilter(c Criteria) *Filter {
	return &Filter{Criteria: c}
}

// PreCheck runs only the checks that need no video data, so callers can skip
// the uploads fetch for channels that cannot qualify
func (f *Filter) PreCheck(ch *model.ChannelSnapshot) Decision {
	if d := f.checkLocale(ch); !d.Admitted {
		return d
	}
	return f.checkAudience(ch)
}

// Admit runs every check in order: country, language, audience, shorts,
// long-form, recency
func (f *Filter) Admit(ch *model.ChannelSnapshot, an model.ChannelAnalysis, now time.Time) Decision {
	if d := f.PreCheck(ch); !d.Admitted {
		return d
	}

	c := f.Criteria
	if an.ShortsCount > c.MaxShorts {
		return reject(RejectTooShorts, "too many shorts (%d)", an.ShortsCount)
	}
	if an.LongformCount < c.MinLongform {
		return reject(RejectFewLongform, "not enough long-form (%d)", an.LongformCount)
	}

	if an.LastUploadDate == "" {
		return reject(RejectNoUpload, "no upload date found")
	}
	last, err := time.Parse(time.RFC3339, an.LastUploadDate)
	if err != nil {
		return reject(RejectNoUpload, "unparseable upload date %q", an.LastUploadDate)
	}
	if days := DaysSince(last, now); days > c.MaxDaysSinceUpload {
		return reject(RejectStale, "last upload %d days ago", days)
	}
	return admit()
}

func (f *Filter) checkLocale(ch *model.ChannelSnapshot) Decision {
	c := f.Criteria
	if len(c.AllowedCountries) > 0 && ch.Country != "" && !contains(c.AllowedCountries, ch.Country) {
		return reject(RejectCountry, "country '%s' not in allowed list", ch.Country)
	}
	if len(c.AllowedLanguages) > 0 && ch.DefaultLanguage != "" && !hasAnyPrefix(ch.DefaultLanguage, c.AllowedLanguages) {
		return reject(RejectLanguage, "language '%s' not in allowed list", ch.DefaultLanguage)
	}
	return admit()
}

func (f *Filter) checkAudience(ch *model.ChannelSnapshot) Decision {
	c := f.Criteria
	if ch.SubscriberCount < c.MinSubscribers || ch.SubscriberCount > c.MaxSubscribers {
		return reject(RejectAudience, "subs %d outside range", ch.SubscriberCount)
	}
	return admit()
}

// DaysSince counts whole days elapsed from t to now
func DaysSince(t, now time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
