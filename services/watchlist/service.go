package watchlist

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"moviebuzz/models"
	"moviebuzz/services/catalog"
	"moviebuzz/services/details"
)

// Service reconciles the remote watchlist with locally cached detail
// records. All state is scoped to the current session's identity; an
// identity change invalidates everything that belonged to the previous one.
type Service struct {
	catalog *catalog.Client
	details *details.Service
	logger  *slog.Logger

	fanoutWidth int

	mu         sync.Mutex
	generation uint64
	session    *models.Session
	loading    bool
	entries    []models.WatchlistEntry
}

// NewService creates a watchlist synchronizer.
func NewService(client *catalog.Client, enricher *details.Service, fanoutWidth int, logger *slog.Logger) *Service {
	if fanoutWidth <= 0 {
		fanoutWidth = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:     client,
		details:     enricher,
		logger:      logger,
		fanoutWidth: fanoutWidth,
	}
}

// SetSession switches the synchronizer to a new identity. Entries belonging
// to the previous identity are dropped immediately; a non-nil session
// triggers an implicit load. Results from a load that was in flight for the
// old identity are discarded by the generation bump.
func (s *Service) SetSession(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	s.generation++
	s.session = sess
	s.entries = nil
	s.loading = false
	s.mu.Unlock()

	if sess == nil {
		return nil
	}
	return s.Load(ctx)
}

// Entries returns a snapshot of the current watchlist.
func (s *Service) Entries() []models.WatchlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.WatchlistEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Loading reports whether a full load is in progress.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Load fetches the remote id list for the current identity, publishes
// pending placeholders immediately, then resolves every id concurrently. A
// per-id failure yields a permanent failed placeholder for that entry; the
// rest resolve independently. The final state replaces the placeholders
// atomically once every resolution has settled.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	if sess == nil || s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	gen := s.generation
	s.mu.Unlock()

	ids, err := s.catalog.Watchlist(ctx, sess.Token)
	if err != nil {
		s.mu.Lock()
		if gen == s.generation {
			s.loading = false
		}
		s.mu.Unlock()
		return err
	}

	placeholders := make([]models.WatchlistEntry, len(ids))
	for i, id := range ids {
		placeholders[i] = models.WatchlistEntry{
			OwnerID: sess.User.ID,
			MovieID: id,
			State:   models.DetailPending,
		}
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	s.entries = placeholders
	s.mu.Unlock()

	resolved := s.resolveAll(ctx, sess.User.ID, ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}
	s.entries = resolved
	s.loading = false
	return nil
}

// Refresh is the user-initiated alias for Load.
func (s *Service) Refresh(ctx context.Context) error {
	return s.Load(ctx)
}

// Add saves a movie on the remote watchlist. Local state is not touched; the
// caller refreshes to pick up the new entry.
func (s *Service) Add(ctx context.Context, movieID string) (bool, error) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return false, nil
	}

	if err := s.catalog.AddToWatchlist(ctx, sess.Token, movieID); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes a movie from the remote watchlist and, on success, prunes
// the matching local entry without a full reload. On failure local state is
// unchanged.
func (s *Service) Remove(ctx context.Context, movieID string) (bool, error) {
	s.mu.Lock()
	sess := s.session
	gen := s.generation
	s.mu.Unlock()
	if sess == nil {
		return false, nil
	}

	if err := s.catalog.RemoveFromWatchlist(ctx, sess.Token, movieID); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return true, nil
	}
	kept := s.entries[:0]
	for _, entry := range s.entries {
		if !strings.EqualFold(entry.MovieID, movieID) {
			kept = append(kept, entry)
		}
	}
	s.entries = kept
	return true, nil
}

// EntriesFor fetches and enriches another user's watchlist. The endpoint is
// privileged; nothing is stored locally.
func (s *Service) EntriesFor(ctx context.Context, userID string) ([]models.WatchlistEntry, error) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return nil, catalog.ErrUnauthorized
	}

	ids, err := s.catalog.WatchlistFor(ctx, sess.Token, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveAll(ctx, userID, ids), nil
}

// resolveAll fans out detail fetches for every id and waits for all of them
// to settle. One id's failure never cancels its siblings.
func (s *Service) resolveAll(ctx context.Context, ownerID string, ids []string) []models.WatchlistEntry {
	entries := make([]models.WatchlistEntry, len(ids))
	p := pool.New().WithMaxGoroutines(s.fanoutWidth)
	for i, id := range ids {
		i, id := i, id
		p.Go(func() {
			entry := models.WatchlistEntry{OwnerID: ownerID, MovieID: id}
			detail, err := s.details.GetDetail(ctx, id)
			if err != nil {
				entry.State = models.DetailFailed
				if !catalog.IsCancelled(err) {
					s.logger.Warn("watchlist entry failed to load", "id", id, "error", err)
				}
			} else {
				entry.State = models.DetailResolved
				entry.Detail = &detail
			}
			entries[i] = entry
		})
	}
	p.Wait()
	return entries
}
