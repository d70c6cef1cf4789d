// Package keypool manages a pool of YouTube Data API keys. Each key maps to its
// own upstream quota bucket; the pool rotates between keys and temporarily
// retires keys that reported quota exhaustion until the next UTC day.
package keypool

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for key pool operations.
var (
	keypoolUsableKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "virascope_keypool_usable_keys",
		Help: "Number of API keys currently usable (not exhausted for today)",
	})

	keypoolExhaustedMarksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virascope_keypool_exhausted_marks_total",
		Help: "Total number of times a key was marked quota-exhausted",
	})

	keypoolAllExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virascope_keypool_all_exhausted_total",
		Help: "Total number of key selections that found every key exhausted",
	})
)

// Common errors returned by the pool.
var (
	// ErrNoKeys is returned by New when the configured key list is empty.
	ErrNoKeys = errors.New("no API keys configured")

	// ErrAllExhausted is returned by Select when every key has reported quota
	// exhaustion for the current UTC day.
	ErrAllExhausted = errors.New("all API keys exhausted")
)

// Key is one API key handed out by the pool. Index is the key's stable
// position in the configured list and identifies the key when reporting
// quota exhaustion back via MarkExhausted.
type Key struct {
	Index  int
	Secret string
}

// Pool rotates between configured API keys. Safe for concurrent use.
//
// Exhaustion is tracked per key as the UTC date it was observed; a key becomes
// usable again once the current UTC date advances past the recorded one. The
// check happens lazily inside Select, so no reset sweep is needed.
type Pool struct {
	mu        sync.Mutex
	keys      []string
	cursor    int // index of the last-issued key
	exhausted map[int]time.Time

	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithClock injects the time source used for UTC-day exhaustion checks.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		p.now = now
	}
}

// WithLogger sets the pool's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// New creates a pool from a comma-separated list of API key secrets.
// Whitespace around entries is trimmed and empty entries are dropped.
// Returns ErrNoKeys when no usable entry remains, so callers can fail
// fast at startup instead of discovering an empty pool per request.
func New(secrets string, opts ...Option) (*Pool, error) {
	var keys []string
	for _, s := range strings.Split(secrets, ",") {
		if s = strings.TrimSpace(s); s != "" {
			keys = append(keys, s)
		}
	}
	return NewFromList(keys, opts...)
}

// NewFromList creates a pool from an already-split key list.
func NewFromList(keys []string, opts ...Option) (*Pool, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	p := &Pool{
		keys:      keys,
		cursor:    len(keys) - 1, // first Select starts the scan at index 0
		exhausted: make(map[int]time.Time),
		now:       time.Now,
		logger:    log.With().Str("component", "keypool").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	keypoolUsableKeys.Set(float64(len(keys)))
	p.logger.Info().Int("keys", len(keys)).Msg("API key pool initialized")

	return p, nil
}

// Select returns the next usable key, scanning round-robin from the position
// after the last-issued key and wrapping around the full set once. Returns
// ErrAllExhausted when every key is exhausted for the current UTC day.
func (p *Pool) Select() (Key, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 1; i <= len(p.keys); i++ {
		idx := (p.cursor + i) % len(p.keys)
		if p.usableLocked(idx) {
			p.cursor = idx
			p.logger.Debug().Int("key_index", idx).Msg("key selected")
			return Key{Index: idx, Secret: p.keys[idx]}, nil
		}
	}

	keypoolAllExhaustedTotal.Inc()
	p.logger.Error().Int("keys", len(p.keys)).Msg("all API keys are exhausted")
	return Key{}, ErrAllExhausted
}

// MarkExhausted records today's UTC date against the key at idx and moves the
// cursor onto it, so the next Select starts scanning at the following key.
// Marks reflect real upstream quota state and are never rolled back.
func (p *Pool) MarkExhausted(idx int) {
	if idx < 0 || idx >= len(p.keys) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now().UTC()
	p.exhausted[idx] = now
	p.cursor = idx
	keypoolExhaustedMarksTotal.Inc()
	keypoolUsableKeys.Set(float64(p.usableCountLocked()))

	p.logger.Warn().
		Int("key_index", idx).
		Str("date", now.Format("2006-01-02")).
		Msg("API key marked exhausted for today")
}

// Size returns the number of configured keys.
func (p *Pool) Size() int {
	return len(p.keys)
}

// UsableCount returns the number of keys not exhausted for the current UTC day.
func (p *Pool) UsableCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usableCountLocked()
}

// usableLocked reports whether the key at idx is usable, lazily clearing
// exhaustion marks from previous UTC days. Caller must hold p.mu.
func (p *Pool) usableLocked(idx int) bool {
	markedAt, ok := p.exhausted[idx]
	if !ok {
		return true
	}

	now := p.now().UTC()
	if utcDate(now).After(utcDate(markedAt)) {
		delete(p.exhausted, idx)
		keypoolUsableKeys.Set(float64(p.usableCountLocked()))
		p.logger.Info().Int("key_index", idx).Msg("key usable again after UTC day rollover")
		return true
	}

	return false
}

func (p *Pool) usableCountLocked() int {
	count := 0
	now := utcDate(p.now().UTC())
	for i := range p.keys {
		if markedAt, ok := p.exhausted[i]; !ok || now.After(utcDate(markedAt)) {
			count++
		}
	}
	return count
}

// utcDate truncates t to midnight UTC.
func utcDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
