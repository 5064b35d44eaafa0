// Package quote keeps issued estimates so they can be fetched again by id.
//
// Reads hit an in-process LRU first and fall back to Redis when one is
// configured. Writes go to both tiers.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/digipin-courier/internal/cache/keys"
	"github.com/mohammed-shakir/digipin-courier/internal/cache/redisstore"
	"github.com/mohammed-shakir/digipin-courier/internal/core/observability"
	"github.com/mohammed-shakir/digipin-courier/internal/estimate"
)

var ErrNotFound = errors.New("quote not found")

// Backend is the shared tier. *redisstore.Client satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	LRUSize   int
	TTL       time.Duration
	OpTimeout time.Duration
}

type Store struct {
	local   *lru.Cache[string, estimate.Quote]
	backend Backend
	opts    Options
	logger  *slog.Logger
}

// New builds a store. backend may be nil, in which case quotes live only in
// the LRU.
func New(backend Backend, opts Options, logger *slog.Logger) (*Store, error) {
	if opts.LRUSize <= 0 {
		opts.LRUSize = 1024
	}
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	local, err := lru.New[string, estimate.Quote](opts.LRUSize)
	if err != nil {
		return nil, fmt.Errorf("quote lru: %w", err)
	}
	return &Store{local: local, backend: backend, opts: opts, logger: logger}, nil
}

// Put records q under its id. A Redis failure is logged and the quote stays
// available from the LRU.
func (s *Store) Put(ctx context.Context, q estimate.Quote) error {
	if q.QuoteID == "" {
		return errors.New("quote without id")
	}
	s.local.Add(q.QuoteID, q)
	if s.backend == nil {
		return nil
	}

	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quote %s: %w", q.QuoteID, err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()
	if err := s.backend.Set(cctx, keys.QuoteKey(q.QuoteID), payload, s.opts.TTL); err != nil {
		s.logger.Warn("quote write-through failed", "quote_id", q.QuoteID, "err", err)
	}
	return nil
}

// Get returns the quote stored under id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (estimate.Quote, error) {
	if q, ok := s.local.Get(id); ok {
		if time.Since(q.IssuedAt) <= s.opts.TTL {
			observability.IncQuoteLookup("lru")
			return q, nil
		}
		s.local.Remove(id)
	}
	if s.backend == nil {
		observability.IncQuoteLookup("miss")
		return estimate.Quote{}, ErrNotFound
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()
	raw, err := s.backend.Get(cctx, keys.QuoteKey(id))
	if errors.Is(err, redisstore.ErrNotFound) {
		observability.IncQuoteLookup("miss")
		return estimate.Quote{}, ErrNotFound
	}
	if err != nil {
		observability.IncQuoteLookup("error")
		return estimate.Quote{}, fmt.Errorf("load quote %s: %w", id, err)
	}

	var q estimate.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		observability.IncQuoteLookup("error")
		return estimate.Quote{}, fmt.Errorf("decode quote %s: %w", id, err)
	}
	s.local.Add(id, q)
	observability.IncQuoteLookup("redis")
	return q, nil
}

// Ping reports whether the shared tier is reachable. LRU-only stores are
// always ready.
func (s *Store) Ping(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Ping(ctx)
}

func (s *Store) Len() int { return s.local.Len() }

func (s *Store) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}
