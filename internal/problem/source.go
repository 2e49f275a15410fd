// internal/problem/source.go
package problem

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// Source returns the raw XML stored for a content location.
type Source interface {
	LoadXML(ctx context.Context, location string) (string, error)
}

// Versioned is implemented by sources that can report a revision token for
// a location without reading its XML. The token changes on every edit.
type Versioned interface {
	Version(ctx context.Context, location string) (string, error)
}

// Provider parses the current XML of a location into a Tree.
type Provider struct {
	source Source
}

func NewProvider(source Source) *Provider {
	return &Provider{source: source}
}

// Load fetches and parses the problem stored at location.
func (p *Provider) Load(ctx context.Context, location string) (*Tree, error) {
	data, err := p.source.LoadXML(ctx, location)
	if err != nil {
		return nil, err
	}
	return Parse(location, data)
}

// StaticSource keeps problem XML in memory.
type StaticSource struct {
	mu        sync.RWMutex
	problems  map[string]string
	revisions map[string]int
}

func NewStaticSource(problems map[string]string) *StaticSource {
	s := &StaticSource{
		problems:  make(map[string]string, len(problems)),
		revisions: make(map[string]int, len(problems)),
	}
	for k, v := range problems {
		s.problems[k] = v
	}
	return s
}

// Version counts the Put calls made for location.
func (s *StaticSource) Version(_ context.Context, location string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.problems[location]; !ok {
		return "", fmt.Errorf("%w: %s", ErrProblemNotFound, location)
	}
	return strconv.Itoa(s.revisions[location]), nil
}

func (s *StaticSource) LoadXML(_ context.Context, location string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.problems[location]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrProblemNotFound, location)
	}
	return data, nil
}

// Put replaces the XML stored for location.
func (s *StaticSource) Put(location, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems[location] = data
	s.revisions[location]++
}

// PostgresSource reads problem XML from the problems table.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) LoadXML(ctx context.Context, location string) (string, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM problems WHERE location = $1`, location).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrProblemNotFound, location)
	}
	if err != nil {
		return "", fmt.Errorf("load problem %s: %w", location, err)
	}
	return data, nil
}

// Version returns updated_at of the stored row.
func (s *PostgresSource) Version(ctx context.Context, location string) (string, error) {
	var updated time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM problems WHERE location = $1`, location).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrProblemNotFound, location)
	}
	if err != nil {
		return "", fmt.Errorf("problem version %s: %w", location, err)
	}
	return strconv.FormatInt(updated.UnixNano(), 10), nil
}

// Save upserts the XML for a location.
func (s *PostgresSource) Save(ctx context.Context, location, data string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO problems (location, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (location) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		location, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save problem %s: %w", location, err)
	}
	return nil
}

// CachedSource is a read-through Redis cache in front of another Source.
// When the wrapped source is Versioned, entries are keyed by location and
// revision, so an edit is visible on the next load; the TTL only bounds how
// long superseded revisions linger. Redis failures are logged and fall
// through to the wrapped source.
type CachedSource struct {
	next   Source
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSource(next Source, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedSource {
	return &CachedSource{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "problem-cache"}),
	}
}

func cacheKey(location, version string) string {
	if version == "" {
		return "problem:xml:" + location
	}
	return "problem:xml:" + location + "@" + version
}

// Version passes through to the wrapped source.
func (c *CachedSource) Version(ctx context.Context, location string) (string, error) {
	v, ok := c.next.(Versioned)
	if !ok {
		return "", nil
	}
	return v.Version(ctx, location)
}

func (c *CachedSource) LoadXML(ctx context.Context, location string) (string, error) {
	version, err := c.Version(ctx, location)
	if err != nil {
		return "", err
	}
	key := cacheKey(location, version)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		metrics.ProblemCacheLookups.WithLabelValues("hit").Inc()
		return val, nil
	case errors.Is(err, redis.Nil):
		metrics.ProblemCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.ProblemCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("problem cache read failed", map[string]interface{}{
			"location": location,
			"error":    err.Error(),
		})
	}

	data, err := c.next.LoadXML(ctx, location)
	if err != nil {
		return "", err
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("problem cache write failed", map[string]interface{}{
			"location": location,
			"error":    err.Error(),
		})
	}
	return data, nil
}
