package search

import (
	"strings"
	"time"

	"github.com/cvclon3/virascope/pkg/youtube"
)

// Kind selects which content class a search targets.
type Kind string

// Supported search kinds.
const (
	KindVideos Kind = "videos"
	KindShorts Kind = "shorts"
)

// Item is one fully enriched search result: video details joined with the
// owning channel's metadata.
type Item struct {
	VideoID            string   `json:"video_id"`
	Title              string   `json:"title"`
	Thumbnail          string   `json:"thumbnail"`
	PublishedAt        string   `json:"published_at"`
	Views              int64    `json:"views"`
	ChannelTitle       string   `json:"channel_title"`
	ChannelURL         string   `json:"channel_url"`
	ChannelSubscribers int64    `json:"channel_subscribers"`
	VideoCount         int64    `json:"video_count"`
	Likes              int64    `json:"likes"`
	LikesHidden        bool     `json:"likes_hidden"`
	Comments           int64    `json:"comments"`
	CommentsHidden     bool     `json:"comments_hidden"`
	CombinedMetric     *float64 `json:"combined_metric"`
	Duration           int      `json:"duration"`
	VideoURL           string   `json:"video_url"`
	ChannelThumbnail   string   `json:"channel_thumbnail"`
}

// Result is the outcome of one logical search: filtered items truncated to
// the requested count plus the upstream's advisory total for the query.
type Result struct {
	ItemCount     int    `json:"item_count"`
	Kind          Kind   `json:"type"`
	Items         []Item `json:"items"`
	TotalEstimate int    `json:"total_estimate,omitempty"`
}

const shortsTag = "#shorts"

// isShorts is the loose short-form predicate used when searching for shorts:
// anything up to three minutes or carrying the shorts tag qualifies.
func isShorts(v youtube.Video) bool {
	return v.Duration <= 3*60 || hasShortsTag(v)
}

// isShortForm is the strict predicate used to exclude short-form content from
// a long-form search: only sub-minute or explicitly tagged videos are dropped.
func isShortForm(v youtube.Video) bool {
	return v.Duration <= 60 || hasShortsTag(v)
}

func hasShortsTag(v youtube.Video) bool {
	return strings.Contains(strings.ToLower(v.Title), shortsTag) ||
		strings.Contains(strings.ToLower(v.Description), shortsTag)
}

// matchesKind reports whether a video belongs in results of the given kind.
func matchesKind(v youtube.Video, kind Kind) bool {
	if kind == KindShorts {
		return isShorts(v)
	}
	return !isShortForm(v)
}

// videoURL builds the public watch URL. Shorts get the shorts path.
func videoURL(id string, shorts bool) string {
	if shorts {
		return "https://www.youtube.com/shorts/" + id
	}
	return "https://www.youtube.com/watch?v=" + id
}

// buildItem joins video details with channel metadata into one result item.
//
// The combined metric relates the video's views to the channel's average views
// per video. A channel without a usable average falls back to the video's own
// view count; when even that is zero the metric is unknown and stays nil.
func buildItem(v youtube.Video, ch *youtube.Channel, shorts bool) Item {
	item := Item{
		VideoID:            v.ID,
		Title:              v.Title,
		Thumbnail:          v.Thumbnail,
		PublishedAt:        v.PublishedAt.UTC().Format(time.RFC3339),
		Views:              v.Views,
		ChannelTitle:       ch.Title,
		ChannelURL:         ch.URL(),
		ChannelSubscribers: ch.Subscribers,
		VideoCount:         ch.VideoCount,
		Likes:              v.Likes,
		LikesHidden:        v.LikesHidden,
		Comments:           v.Comments,
		CommentsHidden:     v.CommentsHidden,
		CombinedMetric:     combinedMetric(v, ch),
		Duration:           v.Duration,
		VideoURL:           videoURL(v.ID, shorts),
		ChannelThumbnail:   ch.Thumbnail,
	}
	return item
}

func combinedMetric(v youtube.Video, ch *youtube.Channel) *float64 {
	avg := 0.0
	if ch.VideoCount > 0 {
		avg = float64(ch.Views) / float64(ch.VideoCount)
	}
	if avg <= 0 && v.Views > 0 {
		avg = float64(v.Views)
	}
	if avg <= 0 {
		return nil
	}
	metric := float64(v.Views) / avg
	return &metric
}
