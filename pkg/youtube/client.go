// Package youtube provides a thin client for the YouTube Data API v3 search,
// videos and channels endpoints. It executes one upstream request per call and
// classifies every failure (quota, bad request, auth, transient) so callers
// can decide whether to rotate keys, retry or give up. The client itself keeps
// no shared mutable state; key rotation lives with the caller.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the production YouTube Data API v3 endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Prometheus metrics for upstream API calls.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virascope_api_requests_total",
		Help: "Total upstream API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "virascope_api_request_duration_seconds",
		Help:    "Upstream API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virascope_api_errors_total",
		Help: "Total upstream API errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API. Defaults to DefaultBaseURL; overridden in tests.
	BaseURL string

	// HTTPClient to use. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// Retry controls transient-error retries. Defaults to DefaultRetryConfig.
	Retry RetryConfig
}

// Client executes upstream API calls with one key per call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retry      RetryConfig
	logger     zerolog.Logger
}

// New creates a YouTube API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		retry:      cfg.Retry,
		logger:     log.With().Str("component", "youtube-client").Logger(),
	}
}

// SearchQuery describes one page of a video search.
type SearchQuery struct {
	// Query is the free-text search query.
	Query string

	// PageToken continues a previous page's pagination. Empty for page one.
	PageToken string

	// PublishedAfter restricts results to videos published at or after this
	// time. Zero means no restriction.
	PublishedAfter time.Time

	// ShortDuration restricts the search to short videos (under 4 minutes).
	ShortDuration bool

	// MaxResults is the page size to request (1..50, default 50).
	MaxResults int
}

// Search fetches one page of search results for the query using the given key.
func (c *Client) Search(ctx context.Context, key string, q SearchQuery) (*SearchPage, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", q.Query)
	if q.PageToken != "" {
		params.Set("pageToken", q.PageToken)
	}
	if !q.PublishedAfter.IsZero() {
		params.Set("publishedAfter", q.PublishedAfter.UTC().Format(time.RFC3339))
	}
	if q.ShortDuration {
		params.Set("videoDuration", "short")
	}
	maxResults := q.MaxResults
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 50
	}
	params.Set("maxResults", strconv.Itoa(maxResults))

	var payload searchListResponse
	if err := c.call(ctx, key, "search", params, &payload); err != nil {
		return nil, err
	}

	page := &SearchPage{
		NextPageToken: payload.NextPageToken,
		TotalResults:  payload.PageInfo.TotalResults,
	}
	for _, item := range payload.Items {
		if item.ID.VideoID == "" {
			continue
		}
		page.Items = append(page.Items, SearchItem{
			VideoID:     item.ID.VideoID,
			ChannelID:   item.Snippet.ChannelID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: parseWireTime(item.Snippet.PublishedAt),
		})
	}

	return page, nil
}

// VideosByID fetches details for up to 50 video IDs in one call.
func (c *Client) VideosByID(ctx context.Context, key string, ids []string) ([]Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", strings.Join(ids, ","))

	var payload videoListResponse
	if err := c.call(ctx, key, "videos", params, &payload); err != nil {
		return nil, err
	}

	videos := make([]Video, 0, len(payload.Items))
	for _, item := range payload.Items {
		v := Video{
			ID:             item.ID,
			ChannelID:      item.Snippet.ChannelID,
			Title:          item.Snippet.Title,
			Description:    item.Snippet.Description,
			Thumbnail:      item.Snippet.Thumbnails.High.URL,
			PublishedAt:    parseWireTime(item.Snippet.PublishedAt),
			Duration:       ParseDuration(item.ContentDetails.Duration),
			Views:          parseWireInt(item.Statistics.ViewCount),
			LikesHidden:    item.Statistics.LikeCount == nil,
			CommentsHidden: item.Statistics.CommentCount == nil,
		}
		if item.Statistics.LikeCount != nil {
			v.Likes = parseWireInt(*item.Statistics.LikeCount)
		}
		if item.Statistics.CommentCount != nil {
			v.Comments = parseWireInt(*item.Statistics.CommentCount)
		}
		videos = append(videos, v)
	}

	return videos, nil
}

// ChannelByID fetches one channel's metadata. Returns nil when the channel
// does not exist.
func (c *Client) ChannelByID(ctx context.Context, key, channelID string) (*Channel, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("id", channelID)

	var payload channelListResponse
	if err := c.call(ctx, key, "channels", params, &payload); err != nil {
		return nil, err
	}

	if len(payload.Items) == 0 {
		return nil, nil
	}

	item := payload.Items[0]
	return &Channel{
		ID:          item.ID,
		Title:       item.Snippet.Title,
		Thumbnail:   item.Snippet.Thumbnails.High.URL,
		Subscribers: parseWireInt(item.Statistics.SubscriberCount),
		Views:       parseWireInt(item.Statistics.ViewCount),
		VideoCount:  parseWireInt(item.Statistics.VideoCount),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// call executes one GET against an API endpoint, retrying transient failures,
// and decodes the JSON response into dest.
func (c *Client) call(ctx context.Context, key, endpoint string, params url.Values, dest interface{}) error {
	params.Set("key", key)
	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte

	err := retryTransient(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			apiErr := classifyNetworkError(err)
			apiErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("upstream request failed")
			return apiErr
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			apiErr := classifyNetworkError(err)
			apiErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
			return apiErr
		}

		apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			apiErr := classifyResponse(resp.StatusCode, body)
			apiErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(apiErr.Class)).
				Str("reason", apiErr.Reason).
				Msg("upstream API error")

			return apiErr
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	return nil
}
