package youtube

import (
	"strconv"
	"time"
)

// SearchItem is one entry of a search results page. It carries only the IDs
// needed for follow-up detail calls plus the snippet fields used for filtering.
type SearchItem struct {
	VideoID     string
	ChannelID   string
	Title       string
	Description string
	PublishedAt time.Time
}

// SearchPage is the result of a single search call: one page of items, the
// continuation token for the next page (empty on the last page) and the
// upstream's estimate of the total result count (advisory, not exact).
type SearchPage struct {
	Items         []SearchItem
	NextPageToken string
	TotalResults  int
}

// Video holds the details of one video as returned by the videos endpoint.
// Like and comment counts can be hidden by the uploader; the Hidden flags
// distinguish "zero" from "withheld".
type Video struct {
	ID             string
	ChannelID      string
	Title          string
	Description    string
	Thumbnail      string
	PublishedAt    time.Time
	Duration       int // seconds
	Views          int64
	Likes          int64
	LikesHidden    bool
	Comments       int64
	CommentsHidden bool
}

// Channel holds the subset of channel metadata needed to enrich search items.
type Channel struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Thumbnail   string    `json:"thumbnail"`
	Subscribers int64     `json:"subscribers"`
	Views       int64     `json:"views"`
	VideoCount  int64     `json:"video_count"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// URL returns the channel's public page URL.
func (c *Channel) URL() string {
	return "https://www.youtube.com/channel/" + c.ID
}

// Wire types below mirror the YouTube Data API v3 JSON shapes. Numeric
// statistics arrive as strings on the wire.

type searchListResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet wireSnippet `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
	PageInfo      struct {
		TotalResults int `json:"totalResults"`
	} `json:"pageInfo"`
}

type videoListResponse struct {
	Items []struct {
		ID             string      `json:"id"`
		Snippet        wireSnippet `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount    string  `json:"viewCount"`
			LikeCount    *string `json:"likeCount"`
			CommentCount *string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type channelListResponse struct {
	Items []struct {
		ID         string      `json:"id"`
		Snippet    wireSnippet `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			ViewCount       string `json:"viewCount"`
			VideoCount      string `json:"videoCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type wireSnippet struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ChannelID   string `json:"channelId"`
	PublishedAt string `json:"publishedAt"`
	Thumbnails  struct {
		High struct {
			URL string `json:"url"`
		} `json:"high"`
	} `json:"thumbnails"`
}

func parseWireInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseWireTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
