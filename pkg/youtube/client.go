package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"leadscout/pkg/logger"
	"leadscout/pkg/model"
	"leadscout/pkg/quota"
	"leadscout/pkg/utils"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"
	// MaxPageSize is the platform's per-call ceiling for maxResults and id batches
	MaxPageSize = 50

	channelURLPrefix = "https://www.youtube.com/channel/"
	videoURLPrefix   = "https://www.youtube.com/watch?v="
)

// Config holds connection settings for the Data API
type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Doer executes one HTTP exchange; *fasthttp.Client satisfies it
type Doer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

// Option customizes a Client
type Option func(*Client)

// WithDoer replaces the HTTP transport
func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithRetryPolicy replaces the default retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithPacer replaces the pacer built from Config.RequestsPerSecond
func WithPacer(p *Pacer) Option {
	return func(c *Client) { c.pacer = p }
}

// WithLogger sets the component logger
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client wraps the three read operations used by the pipeline plus the
// uploads-feed listing. Every successful call is charged to the ledger once.
type Client struct {
	cfg    Config
	ledger *quota.Ledger
	doer   Doer
	retry  RetryPolicy
	pacer  *Pacer
	log    *logger.Logger
}

// NewClient requires an API key; a missing key is a startup precondition failure
func NewClient(cfg Config, ledger *quota.Ledger, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("youtube: API key is required - set YOUTUBE_API_KEY")
	}
	if ledger == nil {
		return nil, errors.New("youtube: quota ledger is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{
		cfg:    cfg,
		ledger: ledger,
		doer: &fasthttp.Client{
			Name:                "leadscout/1.0",
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxConnsPerHost:     4,
			MaxIdleConnDuration: 90 * time.Second,
		},
		retry: DefaultRetryPolicy(),
		pacer: NewPacer(cfg.RequestsPerSecond),
		log:   logger.GetLogger().WithField("component", "youtube_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = func(attempt int, delay time.Duration, err error) {
			c.log.WithError(err).WithFields(map[string]interface{}{
				"attempt":      attempt,
				"max_attempts": c.retry.MaxAttempts,
				"delay":        delay.String(),
			}).Warn("Retryable YouTube API error")
		}
	}
	if d := c.pacer.Interval(); d > 0 {
		c.log.WithField("min_interval", d.String()).Debug("Request pacing enabled")
	}
	return c, nil
}

// Search returns channel ids for query in relevance order. Duplicates across
// pages are kept. Quota exhaustion mid-way returns what was collected.
func (c *Client) Search(ctx context.Context, query string, maxResults int) IDPage {
	page := IDPage{IDs: make([]string, 0, maxResults)}
	token := ""

	for len(page.IDs) < maxResults {
		if !c.ledger.CanAfford(quota.OpSearch, 1) {
			page.Stop = StopQuota
			break
		}

		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("type", "channel")
		params.Set("q", query)
		params.Set("maxResults", strconv.Itoa(min(MaxPageSize, maxResults-len(page.IDs))))
		if token != "" {
			params.Set("pageToken", token)
		}

		var resp searchResponse
		if err := c.call(ctx, quota.OpSearch, "search", params, &resp); err != nil {
			page.Stop, page.Err = stopReasonFor(err), err
			break
		}

		for _, item := range resp.Items {
			id := item.Snippet.ChannelID
			if id == "" {
				id = item.ID.ChannelID
			}
			if id != "" {
				page.IDs = append(page.IDs, id)
			}
		}

		token = resp.NextPageToken
		if token == "" {
			page.Stop = StopEndOfData
			break
		}
	}
	if page.Stop == "" {
		page.Stop = StopComplete
	}

	c.log.WithFields(map[string]interface{}{
		"query": query,
		"ids":   len(page.IDs),
		"stop":  string(page.Stop),
	}).Info(fmt.Sprintf("Search '%s' -> %d channel IDs", query, len(page.IDs)))
	return page
}

// ChannelDetail fetches one channel. A nil snapshot with a nil error means the
// channel does not exist or is not visible.
func (c *Client) ChannelDetail(ctx context.Context, channelID string) (*model.ChannelSnapshot, error) {
	params := url.Values{}
	params.Set("id", channelID)
	params.Set("part", "snippet,statistics,contentDetails,brandingSettings")

	var resp channelsResponse
	if err := c.call(ctx, quota.OpChannels, "channels", params, &resp); err != nil {
		return nil, fmt.Errorf("channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}

	item := resp.Items[0]
	id := item.ID
	if id == "" {
		id = channelID
	}
	return &model.ChannelSnapshot{
		ID:                id,
		Name:              item.Snippet.Title,
		URL:               channelURLPrefix + id,
		Description:       item.Snippet.Description,
		SubscriberCount:   item.Statistics.SubscriberCount,
		TotalViewCount:    item.Statistics.ViewCount,
		TotalVideoCount:   item.Statistics.VideoCount,
		UploadsPlaylistID: item.ContentDetails.RelatedPlaylists.Uploads,
		ContactEmail:      utils.ExtractEmail(item.Snippet.Description),
		Country:           item.Snippet.Country,
		DefaultLanguage:   item.Snippet.DefaultLanguage,
		PublishedAt:       item.Snippet.PublishedAt,
	}, nil
}

// UploadVideoIDs lists up to maxItems video ids from an uploads playlist,
// newest first as the platform orders them
func (c *Client) UploadVideoIDs(ctx context.Context, playlistID string, maxItems int) IDPage {
	page := IDPage{IDs: make([]string, 0, min(maxItems, 4*MaxPageSize))}
	if playlistID == "" {
		page.Stop = StopEndOfData
		return page
	}
	token := ""

	for len(page.IDs) < maxItems {
		if !c.ledger.CanAfford(quota.OpPlaylistItems, 1) {
			page.Stop = StopQuota
			break
		}

		params := url.Values{}
		params.Set("playlistId", playlistID)
		params.Set("part", "contentDetails")
		params.Set("maxResults", strconv.Itoa(min(MaxPageSize, maxItems-len(page.IDs))))
		if token != "" {
			params.Set("pageToken", token)
		}

		var resp playlistItemsResponse
		if err := c.call(ctx, quota.OpPlaylistItems, "playlistItems", params, &resp); err != nil {
			page.Stop, page.Err = stopReasonFor(err), err
			break
		}
		for _, item := range resp.Items {
			if id := item.ContentDetails.VideoID; id != "" {
				page.IDs = append(page.IDs, id)
			}
		}

		token = resp.NextPageToken
		if token == "" {
			page.Stop = StopEndOfData
			break
		}
	}
	if page.Stop == "" {
		page.Stop = StopComplete
	}
	return page
}

// VideoDetails fetches videos in batches of MaxPageSize ids. A failed or
// unaffordable batch ends the call; earlier batches are kept.
func (c *Client) VideoDetails(ctx context.Context, videoIDs []string) VideoPage {
	page := VideoPage{Videos: make([]model.VideoRecord, 0, len(videoIDs))}

	for start := 0; start < len(videoIDs); start += MaxPageSize {
		end := min(start+MaxPageSize, len(videoIDs))
		if !c.ledger.CanAfford(quota.OpVideos, 1) {
			page.Stop = StopQuota
			break
		}

		params := url.Values{}
		params.Set("id", strings.Join(videoIDs[start:end], ","))
		params.Set("part", "snippet,contentDetails,statistics")

		var resp videosResponse
		if err := c.call(ctx, quota.OpVideos, "videos", params, &resp); err != nil {
			page.Stop, page.Err = stopReasonFor(err), err
			break
		}

		for _, item := range resp.Items {
			duration, err := utils.ParseISODuration(item.ContentDetails.Duration)
			if err != nil {
				c.log.WithError(err).WithField("video_id", item.ID).Debug("Unparseable video duration, using 0")
			}
			page.Videos = append(page.Videos, model.VideoRecord{
				ID:              item.ID,
				Title:           item.Snippet.Title,
				PublishedAt:     item.Snippet.PublishedAt,
				DurationSeconds: duration,
				ViewCount:       item.Statistics.ViewCount,
				LikeCount:       item.Statistics.LikeCount,
				CommentCount:    item.Statistics.CommentCount,
				URL:             videoURLPrefix + item.ID,
				Description:     item.Snippet.Description,
			})
		}
	}
	if page.Stop == "" {
		page.Stop = StopComplete
	}
	return page
}

// call checks the budget, runs the request under the retry policy and charges
// the ledger once on success. Failed and retried attempts are never charged.
func (c *Client) call(ctx context.Context, op quota.Operation, endpoint string, params url.Values, out interface{}) error {
	if !c.ledger.CanAfford(op, 1) {
		c.log.WithField("operation", string(op)).Warn("Quota exhausted - cannot call " + string(op))
		return ErrBudgetExhausted
	}

	attempts, err := c.retry.Execute(ctx, func() error {
		if err := c.pacer.Wait(ctx); err != nil {
			return err
		}
		return c.do(endpoint, params, out)
	})
	if err != nil {
		log := c.log.WithError(err).WithFields(map[string]interface{}{
			"operation": string(op),
			"attempts":  attempts,
		})
		if errors.Is(err, ErrQuotaExceeded) {
			log.Error("YouTube API quota exceeded")
		} else {
			log.Error("YouTube API error on " + string(op))
		}
		return err
	}

	c.ledger.Consume(op, 1)
	return nil
}

func (c *Client) do(endpoint string, params url.Values, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("key", c.cfg.APIKey)

	req.SetRequestURI(c.cfg.BaseURL + "/" + endpoint + "?" + q.Encode())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.doer.DoTimeout(req, resp, c.cfg.Timeout); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return parseAPIError(resp.StatusCode(), resp.Body())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var env apiErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		if len(env.Error.Errors) > 0 {
			apiErr.Reason = env.Error.Errors[0].Reason
		}
		return apiErr
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	apiErr.Message = msg
	return apiErr
}

func stopReasonFor(err error) StopReason {
	if ClassifyError(err) == ErrorClassQuota {
		return StopQuota
	}
	return StopError
}
