package details

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"moviebuzz/models"
	"moviebuzz/services/catalog"
)

// Store is the persistent cache for resolved detail records. A nil Store
// disables caching entirely.
type Store interface {
	Get(id string) (models.MovieDetail, bool, error)
	Put(detail models.MovieDetail) error
}

// Service resolves full detail records for catalog ids. Details are
// immutable per session, so resolved records are cached; failures are never
// cached, and concurrent fetches for the same id collapse into one upstream
// request.
type Service struct {
	catalog *catalog.Client
	store   Store
	logger  *slog.Logger

	mu       sync.Mutex
	inflight map[string]*inflightFetch
}

type inflightFetch struct {
	done   chan struct{}
	detail models.MovieDetail
	err    error
}

// NewService creates a detail enrichment service.
func NewService(client *catalog.Client, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:  client,
		store:    store,
		logger:   logger,
		inflight: make(map[string]*inflightFetch),
	}
}

// GetDetail returns the detail record for a catalog id, from cache when
// available. Cache read errors degrade to a fresh fetch so a broken cache
// never masks live data.
func (s *Service) GetDetail(ctx context.Context, id string) (models.MovieDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.MovieDetail{}, fmt.Errorf("movie id is required: %w", catalog.ErrValidation)
	}

	if s.store != nil {
		detail, ok, err := s.store.Get(id)
		if err != nil {
			s.logger.Warn("detail cache read failed", "id", id, "error", err)
		} else if ok {
			return detail, nil
		}
	}

	s.mu.Lock()
	if f, ok := s.inflight[id]; ok {
		s.mu.Unlock()
		select {
		case <-f.done:
			return f.detail, f.err
		case <-ctx.Done():
			return models.MovieDetail{}, ctx.Err()
		}
	}
	f := &inflightFetch{done: make(chan struct{})}
	s.inflight[id] = f
	s.mu.Unlock()

	f.detail, f.err = s.catalog.MovieDetails(ctx, id)
	if f.err == nil && s.store != nil {
		if err := s.store.Put(f.detail); err != nil {
			s.logger.Warn("detail cache write failed", "id", id, "error", err)
		}
	}

	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
	close(f.done)

	return f.detail, f.err
}
