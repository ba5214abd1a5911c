package model

import "time"

// ChannelSnapshot is a channel as returned by one channel-detail call.
// It is fetched fresh every run and never updated in place.
type ChannelSnapshot struct {
	ID                string `json:"channel_id"`
	Name              string `json:"channel_name"`
	URL               string `json:"channel_url"`
	Description       string `json:"description"`
	SubscriberCount   int64  `json:"subscriber_count"`
	TotalViewCount    int64  `json:"total_view_count"`
	TotalVideoCount   int64  `json:"total_video_count"`
	UploadsPlaylistID string `json:"uploads_playlist_id"`
	ContactEmail      string `json:"contact_email"`
	Country           string `json:"country"`
	DefaultLanguage   string `json:"default_language"`
	PublishedAt       string `json:"published_at"`
}

// VideoRecord holds per-video statistics. Records are not persisted.
type VideoRecord struct {
	ID              string `json:"video_id"`
	Title           string `json:"title"`
	PublishedAt     string `json:"published_at"`
	DurationSeconds int    `json:"duration_seconds"`
	ViewCount       int64  `json:"view_count"`
	LikeCount       int64  `json:"like_count"`
	CommentCount    int64  `json:"comment_count"`
	URL             string `json:"url"`
	Description     string `json:"description"`
}

// TopVideo is a VideoRecord reduced to what the export needs
type TopVideo struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Views int64  `json:"views"`
}

// ChannelAnalysis is derived from a channel's video list on every run
type ChannelAnalysis struct {
	ShortsCount        int        `json:"shorts_count"`
	LongformCount      int        `json:"longform_count"`
	LastUploadDate     string     `json:"last_upload_date"`
	UploadFrequency    float64    `json:"upload_frequency"`
	AvgDurationSeconds int64      `json:"avg_duration_seconds"`
	AvgViews           int64      `json:"avg_views"`
	AvgLikes           int64      `json:"avg_likes"`
	AvgComments        int64      `json:"avg_comments"`
	EngagementRate     float64    `json:"engagement_rate"`
	TopVideos          []TopVideo `json:"top_3_videos"`
	DescriptionEmails  []string   `json:"emails_from_descriptions"`
}

// EmptyAnalysis is the result for a channel without videos
func EmptyAnalysis() ChannelAnalysis {
	return ChannelAnalysis{
		TopVideos:         []TopVideo{},
		DescriptionEmails: []string{},
	}
}

// Lead statuses. Only StatusNew is assigned by the pipeline; the others are
// set by operators through the status endpoint.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusReplied   = "replied"
	StatusRejected  = "rejected"
)

// ValidStatus reports whether s is a known lead status
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusContacted, StatusReplied, StatusRejected:
		return true
	}
	return false
}

// DedupRecord is one persisted row of the dedup store
type DedupRecord struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	FirstSeen   time.Time `json:"first_seen"`
	LastScraped time.Time `json:"last_scraped"`
	Status      string    `json:"status"`
	Snapshot    []byte    `json:"data_json"`
}
