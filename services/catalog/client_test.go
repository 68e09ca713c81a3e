package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func TestSearchMoviesParsesPage(t *testing.T) {
	var gotURL string
	httpc := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			gotURL = req.URL.String()
			return jsonResponse(http.StatusOK,
				`{"search":[{"title":"Dune","year":"2021","imdbID":"tt1160419","type":"movie","poster":"http://img/dune.jpg"}],"totalResults":"25"}`), nil
		}),
	}

	client := NewClient("http://catalog/api", httpc, testLogger())
	page, err := client.SearchMovies(context.Background(), "Dune", "2021", 2)
	if err != nil {
		t.Fatalf("SearchMovies failed: %v", err)
	}

	if gotURL != "http://catalog/api/Movies/search/Dune?page=2&year=2021" {
		t.Errorf("unexpected request URL: %s", gotURL)
	}
	if page.TotalAvailable != 25 {
		t.Errorf("expected totalResults 25, got %d", page.TotalAvailable)
	}
	if page.PageIndex != 2 {
		t.Errorf("expected page index 2, got %d", page.PageIndex)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "tt1160419" {
		t.Fatalf("unexpected items: %+v", page.Items)
	}
}

func TestSearchMoviesMissingSearchFieldMeansZeroResults(t *testing.T) {
	httpc := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"totalResults":"0"}`), nil
		}),
	}

	client := NewClient("http://catalog/api", httpc, testLogger())
	page, err := client.SearchMovies(context.Background(), "nothing", "", 1)
	if err != nil {
		t.Fatalf("expected zero results, got error: %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("expected no items, got %d", len(page.Items))
	}
}

func TestSearchMoviesEmptyTermRejectedBeforeRequest(t *testing.T) {
	httpc := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			t.Fatal("no request should be issued for an empty term")
			return nil, nil
		}),
	}

	client := NewClient("http://catalog/api", httpc, testLogger())
	if _, err := client.SearchMovies(context.Background(), "  ", "", 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMovieDetailsNotFound(t *testing.T) {
	httpc := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusNotFound, `{}`), nil
		}),
	}

	client := NewClient("http://catalog/api", httpc, testLogger())
	if _, err := client.MovieDetails(context.Background(), "tt0000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServerErrorsAreRetried(t *testing.T) {
	var attempts atomic.Int32
	httpc := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if attempts.Add(1) < 3 {
				return jsonResponse(http.StatusInternalServerError, `{}`), nil
			}
			return jsonResponse(http.StatusOK, `{"imdbID":"tt1160419","title":"Dune","language":"English"}`), nil
		}),
	}

	client := NewClient("http://catalog/api", httpc, testLogger())
	detail, err := client.MovieDetails(context.Background(), "tt1160419")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if detail.Title != "Dune" {
		t.Errorf("unexpected detail: %+v", detail)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestPersistentServerErrorSurfaced(t *testing.T) {
	httpc := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadGateway, `{}`), nil
		}),
	}

	client := NewClient("http://catalog/api", httpc, testLogger())
	_, err := client.MovieDetails(context.Background(), "tt1160419")

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if serverErr.Status != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", serverErr.Status)
	}
}

func TestBadRequestIsClientErrorAndNotRetried(t *testing.T) {
	var attempts atomic.Int32
	httpc := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			attempts.Add(1)
			return jsonResponse(http.StatusBadRequest, `{}`), nil
		}),
	}

	client := NewClient("http://catalog/api", httpc, testLogger())
	_, err := client.MovieDetails(context.Background(), "tt1160419")

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if clientErr.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", clientErr.Status)
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		t.Errorf("a rejected request must not look transient: %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("rejected requests must not be retried, got %d attempts", got)
	}
}

func TestWatchlistSendsBearerCredential(t *testing.T) {
	var gotAuth string
	httpc := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			return jsonResponse(http.StatusOK, `["tt1","tt2"]`), nil
		}),
	}

	client := NewClient("http://catalog/api", httpc, testLogger())
	ids, err := client.Watchlist(context.Background(), "secret-token")
	if err != nil {
		t.Fatalf("Watchlist failed: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
	if len(ids) != 2 || ids[0] != "tt1" {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestWatchlistWithoutCredential(t *testing.T) {
	client := NewClient("http://catalog/api", &http.Client{}, testLogger())
	if _, err := client.Watchlist(context.Background(), ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRegisterTruthyBodies(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{`true`, true},
		{`{"id":"u1"}`, true},
		{`"ok"`, true},
		{`false`, false},
		{`null`, false},
		{``, false},
	}

	for _, tc := range cases {
		body := tc.body
		httpc := &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, body), nil
			}),
		}
		client := NewClient("http://catalog/api", httpc, testLogger())
		ok, err := client.Register(context.Background(), RegisterData{
			PersonName: "Neo", Email: "neo@matrix.io", Password: "follow-the-white-rabbit", ConfirmPassword: "follow-the-white-rabbit",
		})
		if err != nil {
			t.Fatalf("Register(%q) failed: %v", tc.body, err)
		}
		if ok != tc.want {
			t.Errorf("Register body %q: expected %v, got %v", tc.body, tc.want, ok)
		}
	}
}

func TestCancelledRequestReportsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	httpc := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return nil, req.Context().Err()
		}),
	}

	client := NewClient("http://catalog/api", httpc, testLogger())
	_, err := client.MovieDetails(ctx, "tt1160419")
	if !IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
