// Package catalogtest provides an in-process MovieBuzz API double for
// service tests.
package catalogtest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"moviebuzz/models"
)

type searchFixture struct {
	total int
	pages map[int][]models.MovieSummary
}

// Server holds canned fixtures and mimics the catalog/account contract.
type Server struct {
	mu           sync.Mutex
	details      map[string]models.MovieDetail
	detailStatus map[string]int
	searches     map[string]*searchFixture
	tokens       map[string]string
	watchlists   map[string][]string
	loginBody    []byte
	registerBody []byte
	searchCalls  int
	detailCalls  map[string]int

	// OnSearch and OnDetail, when set, run before the matching response is
	// written. Tests use them to stall or observe requests.
	OnSearch func(term string, page int)
	OnDetail func(id string)
}

// New creates an empty fixture server.
func New() *Server {
	return &Server{
		details:      make(map[string]models.MovieDetail),
		detailStatus: make(map[string]int),
		searches:     make(map[string]*searchFixture),
		tokens:       make(map[string]string),
		watchlists:   make(map[string][]string),
		registerBody: []byte("true"),
		detailCalls:  make(map[string]int),
	}
}

// SetSearch registers result pages for a term. Page numbers start at 1.
func (s *Server) SetSearch(term string, total int, pages ...[]models.MovieSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fixture := &searchFixture{total: total, pages: make(map[int][]models.MovieSummary)}
	for i, page := range pages {
		fixture.pages[i+1] = page
	}
	s.searches[strings.ToLower(term)] = fixture
}

// SetDetail registers a detail record.
func (s *Server) SetDetail(detail models.MovieDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details[detail.ID] = detail
}

// SetDetailStatus forces a status code for one id's detail endpoint.
func (s *Server) SetDetailStatus(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailStatus[id] = status
}

// Authorize maps a bearer token onto a user id.
func (s *Server) Authorize(token, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
}

// Revoke invalidates a previously authorized token.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// SetWatchlist replaces a user's saved ids.
func (s *Server) SetWatchlist(userID string, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchlists[userID] = append([]string(nil), ids...)
}

// WatchlistOf returns a user's saved ids.
func (s *Server) WatchlistOf(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.watchlists[userID]...)
}

// SetLoginBody sets the raw body returned by POST /Account/login.
func (s *Server) SetLoginBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginBody = []byte(body)
}

// SetRegisterBody sets the raw body returned by POST /Account/register.
func (s *Server) SetRegisterBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerBody = []byte(body)
}

// SearchCalls returns how many search requests were served.
func (s *Server) SearchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchCalls
}

// DetailCalls returns how many detail requests were served for an id.
func (s *Server) DetailCalls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detailCalls[id]
}

// Router builds the API routes under the /api prefix.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/Movies/search/{term}", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/Movies/add-to-watchlist", s.handleAdd).Methods(http.MethodPost)
	api.HandleFunc("/Movies/remove-from-watchlist", s.handleRemove).Methods(http.MethodDelete)
	api.HandleFunc("/Movies/display-watchlist", s.handleWatchlist).Methods(http.MethodGet)
	api.HandleFunc("/Movies/display-watchlist/{userId}", s.handleWatchlistFor).Methods(http.MethodGet)
	api.HandleFunc("/Movies/{id}", s.handleDetail).Methods(http.MethodGet)
	api.HandleFunc("/Account/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/Account/register", s.handleRegister).Methods(http.MethodPost)
	return r
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(mux.Vars(r)["term"])
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	s.mu.Lock()
	s.searchCalls++
	hook := s.OnSearch
	fixture := s.searches[term]
	s.mu.Unlock()

	if hook != nil {
		hook(term, page)
	}

	var payload struct {
		Search       []models.MovieSummary `json:"search,omitempty"`
		TotalResults string                `json:"totalResults"`
	}
	if fixture != nil {
		payload.Search = fixture.pages[page]
		payload.TotalResults = strconv.Itoa(fixture.total)
	} else {
		payload.TotalResults = "0"
	}
	writeJSON(w, payload)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	s.detailCalls[id]++
	hook := s.OnDetail
	status, forced := s.detailStatus[id]
	detail, ok := s.details[id]
	s.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	if forced {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, detail)
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, s.WatchlistOf(userID))
}

func (s *Server) handleWatchlistFor(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(r); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, s.WatchlistOf(mux.Vars(r)["userId"]))
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	imdbID := r.URL.Query().Get("imdbId")
	if imdbID == "" {
		http.Error(w, "imdbId required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.watchlists[userID] = append(s.watchlists[userID], imdbID)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	imdbID := r.URL.Query().Get("imdbId")

	s.mu.Lock()
	kept := s.watchlists[userID][:0]
	for _, id := range s.watchlists[userID] {
		if id != imdbID {
			kept = append(kept, id)
		}
	}
	s.watchlists[userID] = kept
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := s.loginBody
	s.mu.Unlock()
	if body == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := s.registerBody
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) authenticate(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" || token == auth {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	return userID, ok
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
