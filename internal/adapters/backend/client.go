// Package backend talks to the collaborators the engine depends on: the
// candidate source, the vote sink and the recommendation list.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/pkg/logger"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
	maxErrorBody           = 4 << 10

	// Limits the backend accepts.
	MaxEvaluationLimit     = 10
	MaxRecommendationLimit = 30

	pathEvaluation      = "/cities/evaluation"
	pathVote            = "/cities/vote"
	pathRecommendations = "/recommendations"
)

// voteRequest is the vote wire body: value 1 likes, 0 dislikes.
type voteRequest struct {
	City  string `json:"city"`
	Value int    `json:"value"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// Client is the HTTP collaborator client.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	name    string
	logger  logger.Logger

	breakerFailures uint32
	breakerCooldown time.Duration
	cb              *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: unsupported scheme", baseURL)
	}

	c := &Client{
		baseURL:         u,
		http:            &http.Client{},
		timeout:         defaultTimeout,
		limiter:         rate.NewLimiter(rate.Inf, 0),
		name:            "backend",
		breakerFailures: defaultBreakerFailures,
		breakerCooldown: defaultBreakerCooldown,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named(c.name)
	}
	c.cb = newBreaker(c.name, c.breakerFailures, c.breakerCooldown, c.logger)
	return c, nil
}

// FetchCandidates returns up to limit candidates not yet voted on. An empty
// slice means the stream is exhausted.
func (c *Client) FetchCandidates(ctx context.Context, limit int) ([]model.Candidate, error) {
	q := url.Values{"limit": {strconv.Itoa(clamp(limit, 1, MaxEvaluationLimit))}}
	body, err := c.do(ctx, http.MethodGet, pathEvaluation, q, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	return decodeCandidates(body)
}

// SubmitVote records one decision. The decision id is sent as the
// idempotency key so a retried vote is not counted twice.
func (c *Client) SubmitVote(ctx context.Context, d model.Decision) error {
	if !d.Outcome.IsCommit() {
		return fmt.Errorf("submit vote: %w: outcome %s", ErrValidation, d.Outcome)
	}
	payload, err := json.Marshal(voteRequest{City: d.CandidateID, Value: d.Outcome.VoteValue()})
	if err != nil {
		return fmt.Errorf("submit vote: %w", err)
	}
	header := http.Header{}
	if d.ID != "" {
		header.Set("Idempotency-Key", d.ID)
	}
	if _, err := c.do(ctx, http.MethodPost, pathVote, nil, payload, header); err != nil {
		return fmt.Errorf("submit vote for %s: %w", d.CandidateID, err)
	}
	return nil
}

// FetchRecommendations returns up to limit recommended candidates.
func (c *Client) FetchRecommendations(ctx context.Context, limit int) ([]model.Candidate, error) {
	q := url.Values{"limit": {strconv.Itoa(clamp(limit, 1, MaxRecommendationLimit))}}
	body, err := c.do(ctx, http.MethodGet, pathRecommendations, q, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch recommendations: %w", err)
	}
	return decodeCandidates(body)
}

// do sends one request through the limiter and the breaker and returns the
// response body of a 2xx reply.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %w", ErrNetwork, err)
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, query, payload, header)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte, header http.Header) ([]byte, error) {
	u := *c.baseURL
	u.Path += path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrValidation, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	c.logger.Debug(ctx, "backend call",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, statusError(resp.StatusCode, body)
}

// statusError maps a non-2xx reply onto the error taxonomy.
func statusError(code int, body []byte) error {
	detail := http.StatusText(code)
	var eb errorBody
	if len(body) > 0 && len(body) <= maxErrorBody && json.Unmarshal(body, &eb) == nil && eb.Detail != "" {
		detail = eb.Detail
	}
	kind := ErrValidation
	if code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout {
		kind = ErrNetwork
	}
	return fmt.Errorf("%w: status %d: %s", kind, code, detail)
}

func decodeCandidates(body []byte) ([]model.Candidate, error) {
	var out []model.Candidate
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode candidates: %w", ErrValidation, err)
	}
	kept := out[:0]
	for _, c := range out {
		if c.Name != "" {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
