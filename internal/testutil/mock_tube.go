// Package testutil provides testing utilities for the virascope backend.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// MockVideo seeds one video into the mock catalog.
type MockVideo struct {
	ID          string
	ChannelID   string
	Title       string
	Description string
	Duration    int // seconds
	Views       int64
	Likes       int64
	LikesHidden bool
	Comments    int64
	PublishedAt string
}

// MockChannel seeds one channel into the mock catalog.
type MockChannel struct {
	ID          string
	Title       string
	Subscribers int64
	Views       int64
	VideoCount  int64
}

// MockTube is a configurable fake of the YouTube Data API v3 covering the
// search, videos and channels endpoints. Search results come from the seeded
// catalog in seed order, sliced into pages of PageSize with continuation
// tokens. Keys can be marked quota-exhausted and transient failures injected.
type MockTube struct {
	server *httptest.Server
	mu     sync.Mutex

	videos   []MockVideo
	channels map[string]MockChannel

	// PageSize is how many search hits one page carries. Defaults to 50.
	PageSize int

	exhaustedKeys map[string]bool
	keyBudgets    map[string]int // remaining calls before a key goes over quota
	failSearches  int            // inject this many 500s on /search before recovering

	// Tracking
	SearchCalls  int
	VideoCalls   int
	ChannelCalls int
	KeyCalls     map[string]int
}

// NewMockTube creates a mock upstream API server.
func NewMockTube() *MockTube {
	mock := &MockTube{
		channels:      make(map[string]MockChannel),
		PageSize:      50,
		exhaustedKeys: make(map[string]bool),
		keyBudgets:    make(map[string]int),
		KeyCalls:      make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", mock.handleSearch)
	mux.HandleFunc("/videos", mock.handleVideos)
	mux.HandleFunc("/channels", mock.handleChannels)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the mock server URL.
func (m *MockTube) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockTube) Close() {
	m.server.Close()
}

// AddVideo seeds a video. Its channel must be seeded separately.
func (m *MockTube) AddVideo(v MockVideo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.PublishedAt == "" {
		v.PublishedAt = "2024-05-01T10:00:00Z"
	}
	m.videos = append(m.videos, v)
}

// AddChannel seeds a channel.
func (m *MockTube) AddChannel(c MockChannel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[c.ID] = c
}

// ExhaustKey makes every endpoint answer 403 quotaExceeded for the given key.
func (m *MockTube) ExhaustKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exhaustedKeys[key] = true
}

// SetKeyQuota lets the key serve n calls and then exhausts it, so quota can
// strike in the middle of a pagination run.
func (m *MockTube) SetKeyQuota(key string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyBudgets[key] = n
}

// countKey records a call for the key and reports whether it is over quota.
// Caller must hold m.mu.
func (m *MockTube) countKey(key string) bool {
	m.KeyCalls[key]++
	if m.exhaustedKeys[key] {
		return true
	}
	if budget, ok := m.keyBudgets[key]; ok {
		if budget <= 0 {
			m.exhaustedKeys[key] = true
			return true
		}
		m.keyBudgets[key] = budget - 1
	}
	return false
}

// FailSearches injects n 500 responses on the search endpoint before it
// recovers.
func (m *MockTube) FailSearches(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSearches = n
}

// Calls returns the per-endpoint call counts so far.
func (m *MockTube) Calls() (search, videos, channels int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SearchCalls, m.VideoCalls, m.ChannelCalls
}

func (m *MockTube) handleSearch(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.SearchCalls++
	key := r.URL.Query().Get("key")

	if m.failSearches > 0 {
		m.failSearches--
		m.KeyCalls[key]++
		m.mu.Unlock()
		writeAPIError(w, http.StatusInternalServerError, "backendError", "Backend Error")
		return
	}
	if m.countKey(key) {
		m.mu.Unlock()
		writeAPIError(w, http.StatusForbidden, "quotaExceeded", "The request cannot be completed because you have exceeded your quota.")
		return
	}

	pageSize := m.PageSize
	catalog := make([]MockVideo, len(m.videos))
	copy(catalog, m.videos)
	m.mu.Unlock()

	page := 0
	if token := r.URL.Query().Get("pageToken"); token != "" {
		page, _ = strconv.Atoi(strings.TrimPrefix(token, "p"))
	}

	start := page * pageSize
	if start > len(catalog) {
		start = len(catalog)
	}
	end := start + pageSize
	if end > len(catalog) {
		end = len(catalog)
	}

	items := make([]map[string]interface{}, 0, end-start)
	for _, v := range catalog[start:end] {
		items = append(items, map[string]interface{}{
			"id": map[string]string{"videoId": v.ID},
			"snippet": map[string]interface{}{
				"channelId":   v.ChannelID,
				"title":       v.Title,
				"description": v.Description,
				"publishedAt": v.PublishedAt,
			},
		})
	}

	resp := map[string]interface{}{
		"items":    items,
		"pageInfo": map[string]int{"totalResults": len(catalog)},
	}
	if end < len(catalog) {
		resp["nextPageToken"] = fmt.Sprintf("p%d", page+1)
	}

	writeJSON(w, resp)
}

func (m *MockTube) handleVideos(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.VideoCalls++
	exhausted := m.countKey(r.URL.Query().Get("key"))
	catalog := make([]MockVideo, len(m.videos))
	copy(catalog, m.videos)
	m.mu.Unlock()

	if exhausted {
		writeAPIError(w, http.StatusForbidden, "quotaExceeded", "The request cannot be completed because you have exceeded your quota.")
		return
	}

	wanted := make(map[string]bool)
	for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
		wanted[id] = true
	}

	items := make([]map[string]interface{}, 0, len(wanted))
	for _, v := range catalog {
		if !wanted[v.ID] {
			continue
		}
		stats := map[string]string{
			"viewCount":    strconv.FormatInt(v.Views, 10),
			"commentCount": strconv.FormatInt(v.Comments, 10),
		}
		if !v.LikesHidden {
			stats["likeCount"] = strconv.FormatInt(v.Likes, 10)
		}
		items = append(items, map[string]interface{}{
			"id": v.ID,
			"snippet": map[string]interface{}{
				"channelId":   v.ChannelID,
				"title":       v.Title,
				"description": v.Description,
				"publishedAt": v.PublishedAt,
				"thumbnails": map[string]interface{}{
					"high": map[string]string{"url": "https://img.test/" + v.ID + ".jpg"},
				},
			},
			"contentDetails": map[string]string{"duration": isoDuration(v.Duration)},
			"statistics":     stats,
		})
	}

	writeJSON(w, map[string]interface{}{"items": items})
}

func (m *MockTube) handleChannels(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.ChannelCalls++
	exhausted := m.countKey(r.URL.Query().Get("key"))
	ch, found := m.channels[r.URL.Query().Get("id")]
	m.mu.Unlock()

	if exhausted {
		writeAPIError(w, http.StatusForbidden, "quotaExceeded", "The request cannot be completed because you have exceeded your quota.")
		return
	}

	items := []map[string]interface{}{}
	if found {
		items = append(items, map[string]interface{}{
			"id": ch.ID,
			"snippet": map[string]interface{}{
				"title": ch.Title,
				"thumbnails": map[string]interface{}{
					"high": map[string]string{"url": "https://img.test/" + ch.ID + ".jpg"},
				},
			},
			"statistics": map[string]string{
				"subscriberCount": strconv.FormatInt(ch.Subscribers, 10),
				"viewCount":       strconv.FormatInt(ch.Views, 10),
				"videoCount":      strconv.FormatInt(ch.VideoCount, 10),
			},
		})
	}

	writeJSON(w, map[string]interface{}{"items": items})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, status int, reason, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": message,
			"errors":  []map[string]string{{"reason": reason}},
		},
	})
}

func isoDuration(seconds int) string {
	h := seconds / 3600
	mi := (seconds % 3600) / 60
	s := seconds % 60

	out := "PT"
	if h > 0 {
		out += fmt.Sprintf("%dH", h)
	}
	if mi > 0 {
		out += fmt.Sprintf("%dM", mi)
	}
	if s > 0 || out == "PT" {
		out += fmt.Sprintf("%dS", s)
	}
	return out
}
