// Package kokkai queries the National Diet Library speech search API.
package kokkai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/speech"
	"github.com/kailas-cloud/dietwatch/internal/metrics"
)

// DefaultBaseURL is the public speech search endpoint.
const DefaultBaseURL = "https://kokkai.ndl.go.jp/api/speech"

// MaxPageSize is the largest maximumRecords value the API accepts.
const MaxPageSize = 100

const maxBodyBytes = 16 << 20

// Config holds the speech API client settings.
type Config struct {
	BaseURL    string
	PageSize   int
	Timeout    time.Duration
	RatePerSec float64
	UserAgent  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client issues one GET per query. It never paginates and never retries.
type Client struct {
	baseURL   string
	pageSize  int
	timeout   time.Duration
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// New creates a speech API client.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:   cfg.BaseURL,
		pageSize:  cfg.PageSize,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		http:      cfg.HTTPClient,
		logger:    cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.pageSize <= 0 {
		c.pageSize = 10
	}
	if c.pageSize > MaxPageSize {
		c.pageSize = MaxPageSize
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if cfg.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	return c
}

// searchResponse is the JSON envelope of /api/speech. Message is set on error responses.
type searchResponse struct {
	NumberOfRecords int             `json:"numberOfRecords"`
	SpeechRecord    []speech.Record `json:"speechRecord"`
	Message         string          `json:"message"`
	Details         []string        `json:"details"`
}

// Search runs q and returns the first page of records.
// Every failure is a *domain.UpstreamRequestError for the (subject, keyword) pair.
func (c *Client) Search(ctx context.Context, q speech.Query) ([]speech.Record, error) {
	fail := func(status int, err error) error {
		return &domain.UpstreamRequestError{Speaker: q.Subject(), Keyword: q.Keyword, StatusCode: status, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fail(0, fmt.Errorf("rate limiter: %w", err))
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reqURL := c.URL(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fail(0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.SpeechRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SpeechRequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, fail(0, fmt.Errorf("do request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.SpeechRequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		metrics.SpeechRequestsTotal.WithLabelValues("http_error").Inc()
		return nil, fail(resp.StatusCode, errors.New(errorMessage(body, resp.Status)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.SpeechRequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, fail(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if parsed.Message != "" && len(parsed.SpeechRecord) == 0 {
		metrics.SpeechRequestsTotal.WithLabelValues("http_error").Inc()
		return nil, fail(resp.StatusCode, errors.New(errorMessage(body, parsed.Message)))
	}

	metrics.SpeechRequestsTotal.WithLabelValues("ok").Inc()
	metrics.SpeechRecordsTotal.Add(float64(len(parsed.SpeechRecord)))

	c.logger.Debug("speech search",
		zap.String("subject", q.Subject()),
		zap.String("keyword", q.Keyword),
		zap.Int("number_of_records", parsed.NumberOfRecords),
		zap.Int("returned", len(parsed.SpeechRecord)),
	)
	return parsed.SpeechRecord, nil
}

// URL renders the request URL for q. Empty filter fields are omitted.
func (c *Client) URL(q speech.Query) string {
	v := url.Values{}
	switch {
	case q.Speaker != "":
		v.Set("speaker", q.Speaker)
	case q.Party != "":
		v.Set("party", q.Party)
	}
	if q.Keyword != "" {
		v.Set("any", q.Keyword)
	}
	if s := speech.FormatDate(q.From); s != "" {
		v.Set("from", s)
	}
	if s := speech.FormatDate(q.Until); s != "" {
		v.Set("until", s)
	}
	v.Set("recordPacking", "json")
	v.Set("maximumRecords", strconv.Itoa(c.pageSize))
	v.Set("startRecord", "1")
	return c.baseURL + "?" + v.Encode()
}

// errorMessage extracts "message" and "details" from an API error body.
func errorMessage(body []byte, fallback string) string {
	var parsed searchResponse
	if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
		if len(parsed.Details) > 0 {
			return parsed.Message + ": " + strings.Join(parsed.Details, "; ")
		}
		return parsed.Message
	}
	return fallback
}
