package export

import (
	"strconv"
	"time"

	"github.com/jszwec/csvutil"

	"leadscout/pkg/model"
)

// TimestampLayout is the local-time format of the timestamp column
const TimestampLayout = "2006-01-02 15:04:05"

// ExportRow is one qualified channel flattened for a spreadsheet. Field order
// is the column order and must not change.
type ExportRow struct {
	Timestamp          string  `csv:"timestamp" json:"timestamp"`
	ChannelID          string  `csv:"channel_id" json:"channel_id"`
	ChannelName        string  `csv:"channel_name" json:"channel_name"`
	ChannelURL         string  `csv:"channel_url" json:"channel_url"`
	SubscriberCount    int64   `csv:"subscriber_count" json:"subscriber_count"`
	TotalViewCount     int64   `csv:"total_view_count" json:"total_view_count"`
	TotalVideoCount    int64   `csv:"total_video_count" json:"total_video_count"`
	ShortsCount        int     `csv:"shorts_count" json:"shorts_count"`
	LongformCount      int     `csv:"longform_count" json:"longform_count"`
	LastUploadDate     string  `csv:"last_upload_date" json:"last_upload_date"`
	UploadFrequency    float64 `csv:"upload_frequency" json:"upload_frequency"`
	AvgViews           int64   `csv:"avg_views" json:"avg_views"`
	AvgDurationSeconds int64   `csv:"avg_duration_seconds" json:"avg_duration_seconds"`
	EngagementRate     float64 `csv:"engagement_rate" json:"engagement_rate"`
	PriorityScore      float64 `csv:"priority_score" json:"priority_score"`
	PrimaryNiche       string  `csv:"primary_niche" json:"primary_niche"`
	Country            string  `csv:"country" json:"country"`
	Language           string  `csv:"language" json:"language"`
	ContactEmail       string  `csv:"contact_email" json:"contact_email"`
	ContactAvailable   string  `csv:"contact_available" json:"contact_available"`
	TopVideo1Title     string  `csv:"top_video_1_title" json:"top_video_1_title"`
	TopVideo1URL       string  `csv:"top_video_1_url" json:"top_video_1_url"`
	TopVideo2Title     string  `csv:"top_video_2_title" json:"top_video_2_title"`
	TopVideo2URL       string  `csv:"top_video_2_url" json:"top_video_2_url"`
	TopVideo3Title     string  `csv:"top_video_3_title" json:"top_video_3_title"`
	TopVideo3URL       string  `csv:"top_video_3_url" json:"top_video_3_url"`
	Status             string  `csv:"status" json:"status"`
}

// Columns returns the header row
func Columns() []string {
	cols, err := csvutil.Header(ExportRow{}, "csv")
	if err != nil {
		// ExportRow is a plain struct; Header only fails on non-struct input
		panic(err)
	}
	return cols
}

// BuildRow joins a channel, its analysis and score into an export row
func BuildRow(ch *model.ChannelSnapshot, an model.ChannelAnalysis, score float64, niche string, now time.Time) ExportRow {
	email := ch.ContactEmail
	if email == "" && len(an.DescriptionEmails) > 0 {
		email = an.DescriptionEmails[0]
	}
	available := "no"
	if email != "" {
		available = "yes"
	}

	row := ExportRow{
		Timestamp:          now.Format(TimestampLayout),
		ChannelID:          ch.ID,
		ChannelName:        ch.Name,
		ChannelURL:         ch.URL,
		SubscriberCount:    ch.SubscriberCount,
		TotalViewCount:     ch.TotalViewCount,
		TotalVideoCount:    ch.TotalVideoCount,
		ShortsCount:        an.ShortsCount,
		LongformCount:      an.LongformCount,
		LastUploadDate:     an.LastUploadDate,
		UploadFrequency:    an.UploadFrequency,
		AvgViews:           an.AvgViews,
		AvgDurationSeconds: an.AvgDurationSeconds,
		EngagementRate:     an.EngagementRate,
		PriorityScore:      score,
		PrimaryNiche:       niche,
		Country:            ch.Country,
		Language:           ch.DefaultLanguage,
		ContactEmail:       email,
		ContactAvailable:   available,
		Status:             model.StatusNew,
	}

	top := an.TopVideos
	if len(top) > 0 {
		row.TopVideo1Title, row.TopVideo1URL = top[0].Title, top[0].URL
	}
	if len(top) > 1 {
		row.TopVideo2Title, row.TopVideo2URL = top[1].Title, top[1].URL
	}
	if len(top) > 2 {
		row.TopVideo3Title, row.TopVideo3URL = top[2].Title, top[2].URL
	}
	return row
}

// Values renders the row as strings in column order
func (r ExportRow) Values() []string {
	i := strconv.FormatInt
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		r.Timestamp, r.ChannelID, r.ChannelName, r.ChannelURL,
		i(r.SubscriberCount, 10), i(r.TotalViewCount, 10), i(r.TotalVideoCount, 10),
		strconv.Itoa(r.ShortsCount), strconv.Itoa(r.LongformCount),
		r.LastUploadDate, f(r.UploadFrequency), i(r.AvgViews, 10), i(r.AvgDurationSeconds, 10),
		f(r.EngagementRate), f(r.PriorityScore), r.PrimaryNiche,
		r.Country, r.Language, r.ContactEmail, r.ContactAvailable,
		r.TopVideo1Title, r.TopVideo1URL, r.TopVideo2Title, r.TopVideo2URL,
		r.TopVideo3Title, r.TopVideo3URL, r.Status,
	}
}
