package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"moviebuzz/models"
)

const (
	defaultTimeout = 15 * time.Second
	retryAttempts  = 3
	retryBaseDelay = 300 * time.Millisecond
)

// Client talks to the MovieBuzz catalog and account API.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a catalog client for the given API base URL.
func NewClient(baseURL string, httpc *http.Client, logger *slog.Logger) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
		logger:  logger,
	}
}

type searchResponse struct {
	Search       []models.MovieSummary `json:"search"`
	TotalResults string                `json:"totalResults"`
}

// SearchMovies fetches one page of search results for a term. An absent
// "search" field in the response means zero results, not an error.
func (c *Client) SearchMovies(ctx context.Context, term, year string, page int) (models.SearchPage, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return models.SearchPage{}, fmt.Errorf("search term is required: %w", ErrValidation)
	}
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if strings.TrimSpace(year) != "" {
		q.Set("year", strings.TrimSpace(year))
	}
	endpoint := fmt.Sprintf("%s/Movies/search/%s?%s", c.baseURL, url.PathEscape(term), q.Encode())

	var payload searchResponse
	if err := c.getJSON(ctx, endpoint, "", &payload); err != nil {
		return models.SearchPage{}, err
	}

	total, _ := strconv.Atoi(strings.TrimSpace(payload.TotalResults))
	return models.SearchPage{
		Items:          payload.Search,
		TotalAvailable: total,
		PageIndex:      page,
	}, nil
}

// MovieDetails fetches the full detail record for a catalog id.
func (c *Client) MovieDetails(ctx context.Context, id string) (models.MovieDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.MovieDetail{}, fmt.Errorf("movie id is required: %w", ErrValidation)
	}

	var detail models.MovieDetail
	endpoint := fmt.Sprintf("%s/Movies/%s", c.baseURL, url.PathEscape(id))
	if err := c.getJSON(ctx, endpoint, "", &detail); err != nil {
		return models.MovieDetail{}, err
	}
	if detail.ID == "" {
		detail.ID = id
	}
	return detail, nil
}

// Watchlist returns the ordered movie ids saved by the credential's owner.
func (c *Client) Watchlist(ctx context.Context, token string) ([]string, error) {
	return c.watchlist(ctx, token, c.baseURL+"/Movies/display-watchlist")
}

// WatchlistFor returns another user's saved movie ids. The endpoint is
// privileged; the server rejects non-admin credentials.
func (c *Client) WatchlistFor(ctx context.Context, token, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", ErrValidation)
	}
	endpoint := fmt.Sprintf("%s/Movies/display-watchlist/%s", c.baseURL, url.PathEscape(userID))
	return c.watchlist(ctx, token, endpoint)
}

func (c *Client) watchlist(ctx context.Context, token, endpoint string) ([]string, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}
	var ids []string
	if err := c.getJSON(ctx, endpoint, token, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// AddToWatchlist saves a movie id on the credential owner's watchlist.
func (c *Client) AddToWatchlist(ctx context.Context, token, imdbID string) error {
	return c.mutateWatchlist(ctx, http.MethodPost, "add-to-watchlist", token, imdbID)
}

// RemoveFromWatchlist deletes a movie id from the credential owner's
// watchlist.
func (c *Client) RemoveFromWatchlist(ctx context.Context, token, imdbID string) error {
	return c.mutateWatchlist(ctx, http.MethodDelete, "remove-from-watchlist", token, imdbID)
}

func (c *Client) mutateWatchlist(ctx context.Context, method, action, token, imdbID string) error {
	if strings.TrimSpace(token) == "" {
		return ErrUnauthorized
	}
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return fmt.Errorf("movie id is required: %w", ErrValidation)
	}

	q := url.Values{}
	q.Set("imdbId", imdbID)
	endpoint := fmt.Sprintf("%s/Movies/%s?%s", c.baseURL, action, q.Encode())
	_, err := c.do(ctx, method, endpoint, token, nil)
	return err
}

// Login exchanges credentials for an identity and token. The response shape
// varies between server versions, so the raw body is returned for the
// session layer to normalize.
func (c *Client) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", ErrValidation)
	}

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodPost, c.baseURL+"/Account/login", "", body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// RegisterData carries the fields for a new account request.
type RegisterData struct {
	PersonName      string `json:"personName"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phoneNumber"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register creates a new account. Any truthy response body means success.
func (c *Client) Register(ctx context.Context, data RegisterData) (bool, error) {
	if strings.TrimSpace(data.Email) == "" || data.Password == "" {
		return false, fmt.Errorf("email and password are required: %w", ErrValidation)
	}

	body, err := json.Marshal(data)
	if err != nil {
		return false, err
	}
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/Account/register", "", body)
	if err != nil {
		return false, err
	}
	return truthyBody(resp), nil
}

func truthyBody(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	switch trimmed {
	case "", "false", "null", "0", `""`:
		return false
	}
	return true
}

func (c *Client) getJSON(ctx context.Context, endpoint, token string, out any) error {
	data, err := c.do(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

// do performs one request with bearer auth, a correlation id and backoff on
// throttling and 5xx responses. Non-retryable statuses map onto the error
// taxonomy immediately.
func (c *Client) do(ctx context.Context, method, endpoint, token string, body []byte) ([]byte, error) {
	requestID := uuid.NewString()

	var payload []byte
	err := retry.Do(
		func() error {
			var reader io.Reader
			if body != nil {
				reader = bytes.NewReader(body)
			}
			req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("X-Request-ID", requestID)
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return retry.Unrecoverable(err)
				}
				return &NetworkError{Err: err}
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return &NetworkError{Err: err}
			}

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				c.logger.Warn("catalog request will be retried",
					"method", method, "status", resp.StatusCode, "requestId", requestID)
				return &ServerError{Status: resp.StatusCode, RequestID: requestID}
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(c.statusError(resp.StatusCode, requestID))
			}

			payload = data
			return nil
		},
		retry.Attempts(retryAttempts),
		retry.Delay(retryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) statusError(status int, requestID string) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return &ClientError{Status: status, RequestID: requestID}
	}
}
