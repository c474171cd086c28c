package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/domain"
	"github.com/kailas-cloud/geogrub/internal/metrics"
)

// Request is one user search. RadiusMeters <= 0 and MaxPages == 0 take the
// session defaults; a negative MaxPages fetches every page.
type Request struct {
	Query        string `json:"query"`
	RadiusMeters int    `json:"radius"`
	MaxPages     int    `json:"max_pages"`
}

// Result is a completed search.
type Result struct {
	Seq    uint64                `json:"seq"`
	Query  string                `json:"query"`
	Center domain.Coordinate     `json:"center"`
	Places []domain.PlaceSummary `json:"places"`
}

// Service runs resolve-then-search. Start keeps at most one search in flight:
// a newer Start cancels the older worker and the older result is never
// delivered.
type Service struct {
	resolver Resolver
	searcher Searcher
	defaults domain.SearchOptions
	logger   *zap.Logger

	mu     sync.Mutex
	seq    uint64
	latest uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a search session.
func New(resolver Resolver, searcher Searcher, defaults domain.SearchOptions, logger *zap.Logger) *Service {
	return &Service{resolver: resolver, searcher: searcher, defaults: defaults, logger: logger}
}

// Search runs one search synchronously. It takes a sequence number but does
// not supersede or get superseded by Start.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	return s.run(ctx, seq, req)
}

// Start runs a search on a background worker and calls deliver with its
// outcome unless a newer Start has happened by then. deliver runs on the
// worker goroutine while the session is locked; it must not call back into
// the session.
func (s *Service) Start(ctx context.Context, req Request, deliver func(Result, error)) uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
	}
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.latest = seq
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		res, err := s.run(wctx, seq, req)

		s.mu.Lock()
		defer s.mu.Unlock()
		if seq != s.latest {
			metrics.SessionsDroppedTotal.Inc()
			s.logger.Debug("Dropped superseded search",
				zap.Uint64("seq", seq),
				zap.Uint64("latest", s.latest),
				zap.String("query", req.Query),
			)
			return
		}
		s.cancel = nil
		deliver(res, err)
	}()

	return seq
}

// Latest returns the sequence number of the newest Start.
func (s *Service) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Close cancels the in-flight worker and waits for it to finish.
func (s *Service) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	// Nothing may be delivered after Close.
	s.latest = 0
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context, seq uint64, req Request) (Result, error) {
	res := Result{Seq: seq, Query: req.Query}

	center, err := s.resolver.Resolve(ctx, req.Query)
	if err != nil {
		return res, err
	}
	res.Center = center

	places, err := s.searcher.Search(ctx, req.Query, center, s.options(req))
	if err != nil {
		return res, err
	}
	res.Places = places
	return res, nil
}

func (s *Service) options(req Request) domain.SearchOptions {
	opts := s.defaults
	if req.RadiusMeters > 0 {
		opts.RadiusMeters = req.RadiusMeters
	}
	if req.MaxPages != 0 {
		opts.MaxPages = req.MaxPages
	}
	return opts
}
