package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/flicklist/backend/internal/logging"
	"github.com/flicklist/backend/internal/models"
)

const (
	// DefaultTMDBBaseURL is the public TMDB v3 API root.
	DefaultTMDBBaseURL = "https://api.themoviedb.org/3"
	posterBaseURL      = "https://image.tmdb.org/t/p/w500"
)

// TMDBOptions configures a TMDBClient.
type TMDBOptions struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Attempts          uint
	RetryDelay        time.Duration
	HTTPClient        *http.Client
}

// TMDBClient looks up movie and TV details from The Movie Database.
type TMDBClient struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	attempts uint
	delay    time.Duration
}

type tmdbDetails struct {
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	VoteAverage  float64 `json:"vote_average"`
}

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("tmdb returned status %d", e.code)
}

// NewTMDBClient constructs a client. An empty API key is rejected.
func NewTMDBClient(opts TMDBOptions) (*TMDBClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("tmdb: api key is required")
	}

	baseURL := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultTMDBBaseURL
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	attempts := opts.Attempts
	if attempts == 0 {
		attempts = 3
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}

	return &TMDBClient{
		apiKey:   opts.APIKey,
		baseURL:  baseURL,
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		attempts: attempts,
		delay:    delay,
	}, nil
}

// Lookup fetches details for a movie or TV show.
func (c *TMDBClient) Lookup(ctx context.Context, mediaType models.MediaType, mediaID int64) (Metadata, error) {
	var segment string
	switch mediaType {
	case models.MediaTypeMovie:
		segment = "movie"
	case models.MediaTypeTV:
		segment = "tv"
	default:
		return Metadata{}, fmt.Errorf("tmdb: unsupported media type %q", mediaType)
	}

	u, err := url.Parse(fmt.Sprintf("%s/%s/%s", c.baseURL, segment, strconv.FormatInt(mediaID, 10)))
	if err != nil {
		return Metadata{}, fmt.Errorf("tmdb: build url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	details, err := retry.DoWithData(
		func() (tmdbDetails, error) { return c.fetch(ctx, u.String()) },
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			logging.FromContext(ctx).Warn("retrying tmdb lookup", "attempt", n+1, "mediaType", mediaType, "mediaId", mediaID, "error", err)
		}),
	)
	if err != nil {
		var status statusError
		if errors.As(err, &status) && status.code == http.StatusNotFound {
			return Metadata{}, fmt.Errorf("%w: %s %d", ErrNotFound, mediaType, mediaID)
		}
		return Metadata{}, fmt.Errorf("tmdb lookup %s %d: %w", mediaType, mediaID, err)
	}

	meta := Metadata{
		Title:       details.Title,
		Overview:    details.Overview,
		ReleaseDate: details.ReleaseDate,
		PosterPath:  details.PosterPath,
		VoteAverage: details.VoteAverage,
	}
	if meta.Title == "" {
		meta.Title = details.Name
	}
	if meta.ReleaseDate == "" {
		meta.ReleaseDate = details.FirstAirDate
	}
	if meta.PosterPath != "" {
		meta.PosterURL = posterBaseURL + meta.PosterPath
	}
	return meta, nil
}

func (c *TMDBClient) fetch(ctx context.Context, target string) (tmdbDetails, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return tmdbDetails{}, retry.Unrecoverable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return tmdbDetails{}, retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return tmdbDetails{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tmdbDetails{}, statusError{code: resp.StatusCode}
	}

	var details tmdbDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return tmdbDetails{}, fmt.Errorf("decode tmdb response: %w", err)
	}
	return details, nil
}

// isTransient reports whether a failed request is worth repeating.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status statusError
	if errors.As(err, &status) {
		return status.code == http.StatusTooManyRequests || status.code >= http.StatusInternalServerError
	}
	var syntax *json.SyntaxError
	return !errors.As(err, &syntax)
}
