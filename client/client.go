// Package client talks to the day-pass availability API. One call, one
// signed outbound request; retry policy is left to the caller.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"daypass-monitor/models"
	"daypass-monitor/signature"
)

// DefaultEndpoint is the production availability endpoint
const DefaultEndpoint = "https://www.cartejournaliere-commune.ch/api/v1/availabilities"

const userAgent = "Mozilla/5.0"

var (
	// ErrFetchFailed covers every way a fetch can go wrong: network
	// failure, non-2xx status, malformed body. Callers only need to know
	// the fetch did not produce a report.
	ErrFetchFailed = errors.New("availability request failed")

	// ErrInvalidDays is returned before any network call when the day
	// count is out of range
	ErrInvalidDays = errors.New("day count out of range")
)

// Client fetches availability reports from the remote API
type Client struct {
	endpoint string
	signer   *signature.Signer
	http     *http.Client
	limiter  *rate.Limiter
	maxDays  int
	logger   zerolog.Logger
}

// Options configures a Client. Zero values fall back to the production
// endpoint, signer default secret and conservative limits.
type Options struct {
	Endpoint string
	Secret   string
	Timeout  time.Duration
	RateRPS  float64
	MaxDays  int
}

// New creates a Client
func New(opts Options, logger zerolog.Logger) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateRPS <= 0 {
		opts.RateRPS = 1
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Client{
		endpoint: opts.Endpoint,
		signer:   signature.NewSigner(opts.Secret),
		http:     &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(opts.RateRPS), 1),
		maxDays:  opts.MaxDays,
		logger:   logger,
	}
}

// FetchAvailability requests daysToCheck days of availability starting at
// startDate. It validates the day count before any I/O, then issues one
// signed GET; any transport error, non-2xx status or undecodable body is
// reported as ErrFetchFailed.
func (c *Client) FetchAvailability(ctx context.Context, startDate time.Time, daysToCheck int) (*models.AvailabilityReport, error) {
	if daysToCheck < 1 || daysToCheck > c.maxDays {
		return nil, fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidDays, daysToCheck, c.maxDays)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	start := startDate.Format("2006-01-02")
	days := strconv.Itoa(daysToCheck)
	nonce := uuid.NewString()
	correlationID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	query := req.URL.Query()
	query.Set("startDate", start)
	query.Set("daysToCheck", days)
	req.URL.RawQuery = query.Encode()

	req.Header.Set("Authorization", "HMAC "+c.signer.Sign(nonce, start, days))
	req.Header.Set("X-Correlation-Id", correlationID)
	req.Header.Set("X-Nonce", nonce)
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug().
		Str("start_date", start).
		Int("days", daysToCheck).
		Str("correlation_id", correlationID).
		Msg("Fetching availability")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}

	var entries []models.DayAvailability
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrFetchFailed, err)
	}

	return &models.AvailabilityReport{
		StartDate: startDate,
		Days:      daysToCheck,
		Entries:   entries,
	}, nil
}
