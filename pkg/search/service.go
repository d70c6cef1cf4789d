// Package search drives multi-page video searches against the upstream API,
// rotating API keys on quota exhaustion. One logical search runs as a series
// of attempts; each attempt is bound to a single key and paginates from the
// start, because continuation tokens are not transferable across keys. A
// quota failure discards the attempt's partial results, marks the key
// exhausted and starts a fresh attempt with the next key.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cvclon3/virascope/pkg/cache"
	"github.com/cvclon3/virascope/pkg/keypool"
	"github.com/cvclon3/virascope/pkg/youtube"
)

// Prometheus metrics for search aggregation.
var (
	searchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virascope_search_requests_total",
		Help: "Total logical search requests by kind and outcome",
	}, []string{"kind", "outcome"})

	searchQuotaRotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virascope_search_quota_rotations_total",
		Help: "Total attempts discarded due to quota exhaustion of the borrowed key",
	})

	searchPagesFetched = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "virascope_search_pages_per_request",
		Help:    "Pages fetched by the winning attempt of a search request",
		Buckets: []float64{1, 2, 3, 4, 5},
	})
)

// Common errors returned by the service.
var (
	// ErrCapacityExhausted means every configured API key is over quota.
	// A pool-wide condition, distinct from per-user rate limiting.
	ErrCapacityExhausted = errors.New("all API keys over quota")

	// ErrEmptyQuery is returned when the search query is missing.
	ErrEmptyQuery = errors.New("search query must not be empty")

	// ErrNoVideoIDs is returned by Lookup for an empty ID list.
	ErrNoVideoIDs = errors.New("video ID list must not be empty")

	// ErrTooManyVideoIDs is returned by Lookup when more IDs are requested
	// than one upstream detail call can carry.
	ErrTooManyVideoIDs = errors.New("at most 50 video IDs per request")
)

// MaxLookupIDs is the upstream's per-call limit on the videos endpoint.
const MaxLookupIDs = 50

// Config holds the aggregation budgets.
type Config struct {
	// MaxPages bounds how many search pages one attempt may fetch.
	// Defaults to 5.
	MaxPages int

	// PageSize is the page size requested upstream (1..50). Pages are
	// requested at full size regardless of the caller's target count to
	// leave headroom for filtering. Defaults to 50.
	PageSize int

	// ChannelTTL is how long resolved channel metadata stays cached when a
	// cache is attached. Defaults to 1h.
	ChannelTTL time.Duration
}

// DefaultConfig returns the default aggregation budgets.
func DefaultConfig() Config {
	return Config{
		MaxPages:   5,
		PageSize:   50,
		ChannelTTL: time.Hour,
	}
}

// Service aggregates paginated searches over a pool of API keys.
type Service struct {
	pool     *keypool.Pool
	yt       *youtube.Client
	channels *cache.Manager
	cfg      Config
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithChannelCache attaches a cross-request cache for channel metadata.
// Without it channels are still memoized within each logical request.
func WithChannelCache(m *cache.Manager) Option {
	return func(s *Service) {
		s.channels = m
	}
}

// WithClock injects the time source used to anchor publication periods.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the service's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a search service over the given key pool and API client.
func NewService(pool *keypool.Pool, yt *youtube.Client, cfg Config, opts ...Option) (*Service, error) {
	if pool == nil {
		return nil, errors.New("key pool is required")
	}
	if yt == nil {
		return nil, errors.New("youtube client is required")
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 50 {
		cfg.PageSize = 50
	}
	if cfg.ChannelTTL <= 0 {
		cfg.ChannelTTL = time.Hour
	}

	s := &Service{
		pool:   pool,
		yt:     yt,
		cfg:    cfg,
		now:    time.Now,
		logger: log.With().Str("component", "search").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Params describes one logical search request.
type Params struct {
	// Query is the free-text search query. Required.
	Query string

	// MaxResults is the target result count (1..50). Out-of-range values
	// are clamped to 50.
	MaxResults int

	// Period restricts results by publication time. Zero means all time.
	Period Period

	// Kind selects videos or shorts. Defaults to videos.
	Kind Kind
}

// Run executes one logical search. It borrows a key from the pool, paginates
// until the target count, the page budget or the upstream's last page is
// reached, and rotates to a fresh key whenever the borrowed one reports quota
// exhaustion. Attempts are bounded by the pool size plus one; past that, or
// with no usable key left, it returns ErrCapacityExhausted.
func (s *Service) Run(ctx context.Context, params Params) (*Result, error) {
	if params.Query == "" {
		return nil, ErrEmptyQuery
	}
	if params.Kind == "" {
		params.Kind = KindVideos
	}
	if params.MaxResults <= 0 || params.MaxResults > 50 {
		params.MaxResults = 50
	}

	// Channel metadata is memoized for the whole logical request. Unlike
	// result items it survives quota rotation: it describes real upstream
	// state no matter which key fetched it.
	memo := map[string]*youtube.Channel{}

	result, err := s.withRotation(ctx, func(key keypool.Key) (*Result, error) {
		return s.runAttempt(ctx, key, params, memo)
	})
	s.observe(params.Kind, err)
	return result, err
}

// Lookup fetches enriched details for an explicit list of video IDs using the
// same key rotation machinery as Run, without any content filtering.
func (s *Service) Lookup(ctx context.Context, ids []string) (*Result, error) {
	if len(ids) == 0 {
		return nil, ErrNoVideoIDs
	}
	if len(ids) > MaxLookupIDs {
		return nil, ErrTooManyVideoIDs
	}

	ids = dedupe(ids)
	memo := map[string]*youtube.Channel{}

	result, err := s.withRotation(ctx, func(key keypool.Key) (*Result, error) {
		return s.lookupAttempt(ctx, key, ids, memo)
	})
	s.observe(KindVideos, err)
	return result, err
}

// withRotation runs attempt with freshly borrowed keys until it succeeds,
// fails with a non-quota error, or the attempt budget is spent.
func (s *Service) withRotation(ctx context.Context, attempt func(keypool.Key) (*Result, error)) (*Result, error) {
	maxAttempts := s.pool.Size() + 1

	for n := 1; n <= maxAttempts; n++ {
		key, err := s.pool.Select()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCapacityExhausted, err)
		}

		result, err := attempt(key)
		if err == nil {
			return result, nil
		}

		if youtube.IsQuotaExceeded(err) {
			s.pool.MarkExhausted(key.Index)
			searchQuotaRotationsTotal.Inc()
			s.logger.Warn().
				Int("key_index", key.Index).
				Int("attempt", n).
				Msg("key over quota, discarding attempt and rotating")
			continue
		}

		return nil, err
	}

	return nil, fmt.Errorf("%w: attempt budget spent", ErrCapacityExhausted)
}

// runAttempt paginates one search with a single key. All accumulated state is
// local; a quota failure anywhere in the attempt discards it wholesale.
func (s *Service) runAttempt(ctx context.Context, key keypool.Key, params Params, memo map[string]*youtube.Channel) (*Result, error) {
	var (
		items     []Item
		pageToken string
		total     int
		pages     int
	)

	for page := 0; page < s.cfg.MaxPages; page++ {
		sp, err := s.yt.Search(ctx, key.Secret, youtube.SearchQuery{
			Query:          params.Query,
			PageToken:      pageToken,
			PublishedAfter: params.Period.Start(s.now()),
			ShortDuration:  params.Kind == KindShorts,
			MaxResults:     s.cfg.PageSize,
		})
		if err != nil {
			return nil, err
		}

		pages++
		total = sp.TotalResults
		pageToken = sp.NextPageToken

		items, err = s.collectPage(ctx, key, sp.Items, params, items, memo)
		if err != nil {
			return nil, err
		}

		s.logger.Debug().
			Int("page", page+1).
			Int("collected", len(items)).
			Str("kind", string(params.Kind)).
			Msg("search page processed")

		if len(items) >= params.MaxResults || pageToken == "" {
			break
		}
	}

	searchPagesFetched.Observe(float64(pages))

	if len(items) > params.MaxResults {
		items = items[:params.MaxResults]
	}

	return &Result{
		ItemCount:     len(items),
		Kind:          params.Kind,
		Items:         items,
		TotalEstimate: total,
	}, nil
}

// collectPage resolves details for one page of search hits, filters them by
// kind and appends enriched items to acc until the target count is reached.
func (s *Service) collectPage(ctx context.Context, key keypool.Key, hits []youtube.SearchItem, params Params, acc []Item, memo map[string]*youtube.Channel) ([]Item, error) {
	if len(hits) == 0 {
		return acc, nil
	}

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.VideoID)
	}

	videos, err := s.yt.VideosByID(ctx, key.Secret, ids)
	if err != nil {
		return nil, err
	}

	details := make(map[string]youtube.Video, len(videos))
	for _, v := range videos {
		details[v.ID] = v
	}

	for _, hit := range hits {
		v, ok := details[hit.VideoID]
		if !ok || v.ChannelID == "" {
			continue
		}
		if !matchesKind(v, params.Kind) {
			continue
		}

		ch, err := s.channelInfo(ctx, key, v.ChannelID, memo)
		if err != nil {
			return nil, err
		}
		if ch == nil {
			s.logger.Debug().Str("video_id", v.ID).Str("channel_id", v.ChannelID).
				Msg("skipping video, channel not resolvable")
			continue
		}

		acc = append(acc, buildItem(v, ch, params.Kind == KindShorts))
		if len(acc) >= params.MaxResults {
			break
		}
	}

	return acc, nil
}

// lookupAttempt fetches details for explicit IDs with a single key. The URL
// form for each item follows its measured duration rather than a search kind.
func (s *Service) lookupAttempt(ctx context.Context, key keypool.Key, ids []string, memo map[string]*youtube.Channel) (*Result, error) {
	videos, err := s.yt.VideosByID(ctx, key.Secret, ids)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(videos))
	for _, v := range videos {
		if v.ChannelID == "" {
			continue
		}

		ch, err := s.channelInfo(ctx, key, v.ChannelID, memo)
		if err != nil {
			return nil, err
		}
		if ch == nil {
			continue
		}

		items = append(items, buildItem(v, ch, v.Duration <= 60))
	}

	return &Result{
		ItemCount: len(items),
		Kind:      KindVideos,
		Items:     items,
	}, nil
}

// channelInfo resolves channel metadata through three layers: the per-request
// memo, the shared cache when attached, and finally the upstream. Missing
// channels are memoized as nil so each is asked about at most once per
// request. Cache failures fall through to the upstream; upstream errors
// propagate so quota exhaustion can trigger rotation.
func (s *Service) channelInfo(ctx context.Context, key keypool.Key, channelID string, memo map[string]*youtube.Channel) (*youtube.Channel, error) {
	if ch, ok := memo[channelID]; ok {
		return ch, nil
	}

	if s.channels != nil {
		var ch youtube.Channel
		err := s.channels.Get(ctx, channelID, &ch)
		if err == nil {
			memo[channelID] = &ch
			return &ch, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("channel_id", channelID).Msg("channel cache read failed")
		}
	}

	ch, err := s.yt.ChannelByID(ctx, key.Secret, channelID)
	if err != nil {
		return nil, err
	}
	memo[channelID] = ch

	if ch != nil && s.channels != nil {
		if err := s.channels.Set(ctx, channelID, ch, s.cfg.ChannelTTL); err != nil {
			s.logger.Warn().Err(err).Str("channel_id", channelID).Msg("channel cache write failed")
		}
	}

	return ch, nil
}

func (s *Service) observe(kind Kind, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrCapacityExhausted):
		outcome = "capacity_exhausted"
	default:
		outcome = "error"
	}
	searchRequestsTotal.WithLabelValues(string(kind), outcome).Inc()
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
