package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// User-safe strings returned in place of an answer when the backend fails.
const (
	FallbackTimeout     = "Sorry, the request timed out. Please try again."
	FallbackBusy        = "Sorry, the service is busy. Please try again in a moment."
	FallbackServerError = "Sorry, there was a server error. Please try again later."
	FallbackClientError = "Sorry, there was an error processing your request."
	FallbackBadFormat   = "Sorry, I received an unexpected response format."
	FallbackUnexpected  = "Sorry, I encountered an unexpected error. Please try again."
	FallbackExhausted   = "Sorry, I couldn't process your request after multiple attempts."
)

type CompletionOptions struct {
	MaxConcurrency    int64
	Timeout           time.Duration
	MaxRetries        int
	MaxOutputTokens   int32
	RequestsPerSecond float64 // 0 disables the token bucket
}

func DefaultCompletionOptions() CompletionOptions {
	return CompletionOptions{
		MaxConcurrency:  8,
		Timeout:         30 * time.Second,
		MaxRetries:      2,
		MaxOutputTokens: 1024,
	}
}

// generator is one round trip to the model backend.
type generator interface {
	Generate(ctx context.Context, prompt string, temperature float32, maxOutputTokens int32) (*genai.GenerateContentResponse, error)
	Close() error
}

type generatorFactory func(ctx context.Context) (generator, error)

// CompletionClient is the process-wide gateway to the generative backend.
// All callers share one admission gate, so live answers and background
// analyzers compete for the same slots. The backend connection is opened
// on first use and released by Close.
type CompletionClient struct {
	opts       CompletionOptions
	newBackend generatorFactory
	sem        *semaphore.Weighted
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
	log        zerolog.Logger
	metrics    *Metrics

	mu      sync.Mutex
	backend generator
}

func newCompletionClient(factory generatorFactory, opts CompletionOptions, log zerolog.Logger) *CompletionClient {
	def := DefaultCompletionOptions()
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = def.MaxConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = def.MaxOutputTokens
	}
	c := &CompletionClient{
		opts:       opts,
		newBackend: factory,
		sem:        semaphore.NewWeighted(opts.MaxConcurrency),
		sleep:      sleepContext,
		log:        log.With().Str("component", "completion_client").Logger(),
		metrics:    NewMetrics(),
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// Complete never returns an error. Any failure that survives the retry
// policy is reported as one of the Fallback strings.
func (c *CompletionClient) Complete(ctx context.Context, prompt string, temperature float32) string {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.log.Warn().Err(err).Msg("Gave up waiting for a completion slot")
		return FallbackTimeout
	}
	defer c.sem.Release(1)

	c.metrics.CompletionInFlight.Inc()
	defer c.metrics.CompletionInFlight.Dec()
	start := time.Now()
	defer func() { c.metrics.CompletionDuration.Observe(time.Since(start).Seconds()) }()

	attempts := c.opts.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		text, err := c.attempt(ctx, prompt, temperature)
		if err == nil {
			c.metrics.CompletionRequests.WithLabelValues("ok").Inc()
			return text
		}

		f := classifyCompletionError(err)
		c.metrics.CompletionRequests.WithLabelValues(f.outcome()).Inc()
		c.log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("attempts", attempts).
			Int("status", f.status).
			Msg("Completion attempt failed")

		if !f.retryable() {
			return f.fallback()
		}
		if attempt == attempts-1 {
			return f.fallback()
		}
		if err := c.sleep(ctx, f.backoff(attempt)); err != nil {
			return f.fallback()
		}
	}
	return FallbackExhausted
}

func (c *CompletionClient) attempt(ctx context.Context, prompt string, temperature float32) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	backend, err := c.acquireBackend(ctx)
	if err != nil {
		return "", err
	}

	actx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	resp, err := backend.Generate(actx, prompt, temperature, c.opts.MaxOutputTokens)
	if err != nil {
		return "", err
	}
	text, ok := responseText(resp)
	if !ok {
		return "", errBadEnvelope
	}
	return text, nil
}

func (c *CompletionClient) acquireBackend(ctx context.Context) (generator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		return c.backend, nil
	}
	b, err := c.newBackend(ctx)
	if err != nil {
		return nil, err
	}
	c.backend = b
	return b, nil
}

// Close releases the backend connection. A later Complete reopens it.
func (c *CompletionClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend == nil {
		return nil
	}
	err := c.backend.Close()
	c.backend = nil
	return err
}

var errBadEnvelope = errors.New("response carried no candidate text")

// responseText unwraps candidates[0].content.parts[0] as text.
func responseText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", false
	}
	text, ok := cand.Content.Parts[0].(genai.Text)
	if !ok {
		return "", false
	}
	return string(text), true
}

type failureKind int

const (
	failOther failureKind = iota
	failTimeout
	failRateLimited
	failServer
	failClient
	failBadEnvelope
)

type completionFailure struct {
	kind   failureKind
	status int
}

func classifyCompletionError(err error) completionFailure {
	if errors.Is(err, errBadEnvelope) {
		return completionFailure{kind: failBadEnvelope}
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return completionFailure{kind: failBadEnvelope}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return completionFailure{kind: failTimeout}
	}

	code := 0
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		code = gerr.Code
	} else if s, ok := status.FromError(err); ok {
		if s.Code() == codes.DeadlineExceeded {
			return completionFailure{kind: failTimeout}
		}
		code = httpStatusFromGRPC(s.Code())
	}

	switch {
	case code == http.StatusTooManyRequests:
		return completionFailure{kind: failRateLimited, status: code}
	case code >= http.StatusInternalServerError:
		return completionFailure{kind: failServer, status: code}
	case code >= http.StatusBadRequest:
		return completionFailure{kind: failClient, status: code}
	}
	return completionFailure{kind: failOther, status: code}
}

func httpStatusFromGRPC(c codes.Code) int {
	switch c {
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return http.StatusInternalServerError
	}
	return 0
}

func (f completionFailure) retryable() bool {
	return f.kind != failClient && f.kind != failBadEnvelope
}

// backoff is 5·(attempt+1)s for rate limiting and 2^attempt s otherwise.
func (f completionFailure) backoff(attempt int) time.Duration {
	if f.kind == failRateLimited {
		return time.Duration(5*(attempt+1)) * time.Second
	}
	return time.Duration(1<<attempt) * time.Second
}

func (f completionFailure) fallback() string {
	switch f.kind {
	case failTimeout:
		return FallbackTimeout
	case failRateLimited:
		return FallbackBusy
	case failServer:
		return FallbackServerError
	case failClient:
		return FallbackClientError
	case failBadEnvelope:
		return FallbackBadFormat
	}
	return FallbackUnexpected
}

func (f completionFailure) outcome() string {
	switch f.kind {
	case failTimeout:
		return "timeout"
	case failRateLimited:
		return "rate_limited"
	case failServer:
		return "server_error"
	case failClient:
		return "client_error"
	case failBadEnvelope:
		return "bad_envelope"
	}
	return "error"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
