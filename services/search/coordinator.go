package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"moviebuzz/models"
	"moviebuzz/services/catalog"
	"moviebuzz/services/details"
)

// LanguageAny is the sentinel meaning no language filter is active.
const LanguageAny = ""

// languageOptions is the fixed set offered by the language filter.
var languageOptions = []string{
	"English",
	"Spanish",
	"French",
	"German",
	"Italian",
	"Hindi",
	"Japanese",
	"Korean",
	"Mandarin",
}

// LanguageOptions returns the languages selectable as a secondary filter.
func LanguageOptions() []string {
	out := make([]string, len(languageOptions))
	copy(out, languageOptions)
	return out
}

// State is the coordinator's position in the search session state machine.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateResults
	StateLoadingMore
	StateEmpty
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateResults:
		return "results"
	case StateLoadingMore:
		return "loading-more"
	case StateEmpty:
		return "empty"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// EmptyReason explains why a completed search published no items.
type EmptyReason int

const (
	EmptyReasonNone EmptyReason = iota
	// EmptyNoResults: the catalog returned no raw results at all.
	EmptyNoResults
	// EmptyNoPosters: raw results existed but none carried usable posters.
	EmptyNoPosters
	// EmptyLanguageFiltered: items survived the poster filter but the active
	// language filter excluded them all.
	EmptyLanguageFiltered
)

// Query identifies one search session. Starting a new query invalidates any
// in-flight request for the previous one.
type Query struct {
	Term     string
	Year     string // optional, 4 digits
	Language string // LanguageAny for no filter
}

// Snapshot is a read-only view of the session published to the presentation
// layer.
type Snapshot struct {
	State          State
	Query          Query
	Items          []models.MovieSummary
	Loaded         int // raw results fetched so far
	TotalAvailable int
	HasMore        bool
	EmptyReason    EmptyReason
	Err            error
}

var (
	ErrEmptyTerm   = fmt.Errorf("search term is required: %w", catalog.ErrValidation)
	ErrInvalidYear = fmt.Errorf("year must be a 4-digit number: %w", catalog.ErrValidation)

	yearPattern = regexp.MustCompile(`^\d{4}$`)
)

// Coordinator owns one incremental, cancellable search session: query, page
// cursor, accumulated results, active language filter and the in-flight
// request lifecycle. Stale responses are detected with a generation counter
// and never mutate state once a newer Search or Clear has started.
type Coordinator struct {
	catalog *catalog.Client
	details *details.Service
	logger  *slog.Logger

	pageSize    int
	fanoutWidth int

	mu          sync.Mutex
	generation  uint64
	sessionCtx  context.Context
	cancel      context.CancelFunc
	state       State
	query       Query
	raw         []models.MovieSummary // accumulated, poster-filtered
	visible     []models.MovieSummary // raw after the active language filter
	rawCount    int                   // raw results fetched, pre poster filter
	total       int                   // first page's totalResults, authoritative
	pagesLoaded int
	hasMore     bool
	emptyReason EmptyReason
	err         error
}

// NewCoordinator creates an idle search coordinator.
func NewCoordinator(client *catalog.Client, enricher *details.Service, pageSize, fanoutWidth int, logger *slog.Logger) *Coordinator {
	if pageSize <= 0 {
		pageSize = 20
	}
	if fanoutWidth <= 0 {
		fanoutWidth = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		catalog:     client,
		details:     enricher,
		logger:      logger,
		pageSize:    pageSize,
		fanoutWidth: fanoutWidth,
		state:       StateIdle,
	}
}

// Snapshot returns a copy of the published session state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]models.MovieSummary, len(c.visible))
	copy(items, c.visible)
	return Snapshot{
		State:          c.state,
		Query:          c.query,
		Items:          items,
		Loaded:         c.rawCount,
		TotalAvailable: c.total,
		HasMore:        c.hasMore,
		EmptyReason:    c.emptyReason,
		Err:            c.err,
	}
}

// Search starts a new session for the query, superseding any outstanding
// request. Validation failures are reported before any request is issued and
// leave the current session untouched.
func (c *Coordinator) Search(query Query) error {
	query.Term = strings.TrimSpace(query.Term)
	query.Year = strings.TrimSpace(query.Year)
	if query.Term == "" {
		return ErrEmptyTerm
	}
	if query.Year != "" && !yearPattern.MatchString(query.Year) {
		return ErrInvalidYear
	}

	c.mu.Lock()
	c.cancelLocked()
	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.sessionCtx = ctx
	c.cancel = cancel
	c.state = StateSearching
	c.query = query
	c.raw = nil
	c.visible = nil
	c.rawCount = 0
	c.total = 0
	c.pagesLoaded = 0
	c.hasMore = false
	c.emptyReason = EmptyReasonNone
	c.err = nil
	c.mu.Unlock()

	page, err := c.catalog.SearchMovies(ctx, query.Term, query.Year, 1)
	if err != nil {
		return c.fail(gen, err)
	}

	kept := c.filterPage(page.Items)
	visible := c.applyLanguageFilter(ctx, kept, query.Language)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil
	}
	c.raw = kept
	c.visible = visible
	c.rawCount = len(page.Items)
	c.total = page.TotalAvailable
	c.pagesLoaded = 1
	c.hasMore = len(page.Items) > 0 && c.rawCount < c.total
	c.publishLocked()
	return nil
}

// LoadMore fetches the next page and appends it to the session. It is a
// no-op while another page is loading, before any search completed, or once
// every available result has been fetched.
func (c *Coordinator) LoadMore() error {
	c.mu.Lock()
	if c.state != StateResults && c.state != StateEmpty {
		c.mu.Unlock()
		return nil
	}
	if c.pagesLoaded == 0 || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	gen := c.generation
	ctx := c.sessionCtx
	query := c.query
	nextPage := c.pagesLoaded + 1
	c.state = StateLoadingMore
	c.mu.Unlock()

	page, err := c.catalog.SearchMovies(ctx, query.Term, query.Year, nextPage)
	if err != nil {
		return c.fail(gen, err)
	}

	kept := c.filterPage(page.Items)
	visible := c.applyLanguageFilter(ctx, kept, query.Language)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil
	}
	c.raw = append(c.raw, kept...)
	c.visible = append(c.visible, visible...)
	c.rawCount += len(page.Items)
	c.pagesLoaded = nextPage
	// The first page's total stays authoritative for the whole session; an
	// empty page always ends pagination.
	c.hasMore = len(page.Items) > 0 && c.rawCount < c.total
	c.publishLocked()
	return nil
}

// ChangeLanguageFilter re-filters the accumulated raw results in place. No
// page is fetched and pagination progress is kept. The published query only
// changes together with the matching visible set: an in-flight search or
// page load keeps the language it captured, so a snapshot never shows items
// filtered by a different language than its query claims.
func (c *Coordinator) ChangeLanguageFilter(language string) error {
	c.mu.Lock()
	switch c.state {
	case StateIdle, StateErrored:
		// Nothing visible to refilter; the language takes effect on the
		// next search.
		c.query.Language = language
		c.mu.Unlock()
		return nil
	case StateSearching, StateLoadingMore:
		c.mu.Unlock()
		return nil
	}
	gen := c.generation
	ctx := c.sessionCtx
	raw := make([]models.MovieSummary, len(c.raw))
	copy(raw, c.raw)
	c.mu.Unlock()

	visible := c.applyLanguageFilter(ctx, raw, language)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil
	}
	c.query.Language = language
	c.visible = visible
	c.publishLocked()
	return nil
}

// Clear cancels any outstanding request and resets the session to idle.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.generation++
	c.sessionCtx = nil
	c.state = StateIdle
	c.query = Query{}
	c.raw = nil
	c.visible = nil
	c.rawCount = 0
	c.total = 0
	c.pagesLoaded = 0
	c.hasMore = false
	c.emptyReason = EmptyReasonNone
	c.err = nil
}

func (c *Coordinator) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// fail records a terminal error for the session unless the response
// belongs to a superseded generation or a cancelled request.
func (c *Coordinator) fail(gen uint64, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || catalog.IsCancelled(err) {
		return nil
	}
	c.state = StateErrored
	c.err = err
	return err
}

// publishLocked derives the terminal state for a completed page or filter
// pass from the visible set.
func (c *Coordinator) publishLocked() {
	c.err = nil
	if len(c.visible) > 0 {
		c.state = StateResults
		c.emptyReason = EmptyReasonNone
		return
	}
	c.state = StateEmpty
	switch {
	case c.rawCount == 0:
		c.emptyReason = EmptyNoResults
	case len(c.raw) == 0:
		c.emptyReason = EmptyNoPosters
	default:
		c.emptyReason = EmptyLanguageFiltered
	}
}

// filterPage drops summaries without usable posters and caps the page at the
// configured size. Dropped items leave the session entirely.
func (c *Coordinator) filterPage(items []models.MovieSummary) []models.MovieSummary {
	kept := make([]models.MovieSummary, 0, len(items))
	for _, item := range items {
		if item.HasUsablePoster() {
			kept = append(kept, item)
		}
	}
	if len(kept) > c.pageSize {
		kept = kept[:c.pageSize]
	}
	return kept
}

// applyLanguageFilter enriches each item concurrently and keeps those whose
// detail language matches. A failed enrichment excludes that item without
// aborting the others.
func (c *Coordinator) applyLanguageFilter(ctx context.Context, items []models.MovieSummary, language string) []models.MovieSummary {
	if language == LanguageAny || len(items) == 0 {
		out := make([]models.MovieSummary, len(items))
		copy(out, items)
		return out
	}

	keep := make([]bool, len(items))
	p := pool.New().WithMaxGoroutines(c.fanoutWidth)
	for i := range items {
		i := i
		p.Go(func() {
			detail, err := c.details.GetDetail(ctx, items[i].ID)
			if err != nil {
				if !catalog.IsCancelled(err) {
					c.logger.Debug("language filter excluded item after fetch failure",
						"id", items[i].ID, "error", err)
				}
				return
			}
			keep[i] = detail.MatchesLanguage(language)
		})
	}
	p.Wait()

	filtered := make([]models.MovieSummary, 0, len(items))
	for i, item := range items {
		if keep[i] {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
