package youtube

import "leadscout/pkg/model"

// StopReason says why a paginated operation stopped collecting
type StopReason string

const (
	StopComplete  StopReason = "complete"    // requested maximum reached, or every batch fetched
	StopEndOfData StopReason = "end_of_data" // platform had no further pages
	StopQuota     StopReason = "quota"       // ledger or platform refused the next call
	StopError     StopReason = "error"       // a call failed after retries
)

// Degraded reports whether the result is partial for a reason other than
// the data itself running out
func (r StopReason) Degraded() bool {
	return r == StopQuota || r == StopError
}

// IDPage is the outcome of a paginated id listing
type IDPage struct {
	IDs  []string
	Stop StopReason
	Err  error
}

// VideoPage is the outcome of a batched video-detail fetch
type VideoPage struct {
	Videos []model.VideoRecord
	Stop   StopReason
	Err    error
}

// --- Data API v3 wire types ---

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
			Domain string `json:"domain"`
		} `json:"errors"`
	} `json:"error"`
}

type searchResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID struct {
			Kind      string `json:"kind"`
			ChannelID string `json:"channelId"`
		} `json:"id"`
		Snippet struct {
			ChannelID string `json:"channelId"`
			Title     string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

type channelsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title           string `json:"title"`
			Description     string `json:"description"`
			Country         string `json:"country"`
			DefaultLanguage string `json:"defaultLanguage"`
			PublishedAt     string `json:"publishedAt"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount int64 `json:"subscriberCount,string"`
			ViewCount       int64 `json:"viewCount,string"`
			VideoCount      int64 `json:"videoCount,string"`
		} `json:"statistics"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount    int64 `json:"viewCount,string"`
			LikeCount    int64 `json:"likeCount,string"`
			CommentCount int64 `json:"commentCount,string"`
		} `json:"statistics"`
	} `json:"items"`
}
