package resilience

import (
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without calling the provider while its breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// ClientConfig holds configuration for a resilient HTTP client.
type ClientConfig struct {
	// Name identifies the provider in logs and in the Registry.
	Name string
	// Timeout bounds each HTTP attempt.
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Breaker         BreakerConfig
	// Registry, when set, receives the client and its call outcomes.
	Registry *Registry
	Logger   zerolog.Logger
}

// DefaultClientConfig returns the settings used for production providers.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Breaker:         DefaultBreakerConfig(),
		Logger:          zerolog.Nop(),
	}
}

// Client is an HTTP client guarded by a circuit breaker with retries.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	cfg      ClientConfig
	registry *Registry
}

// NewClient creates a client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.Breaker.OpenTimeout == 0 {
		cfg.Breaker = DefaultBreakerConfig()
	}

	logger := cfg.Logger
	c := &Client{
		name:     cfg.Name,
		http:     &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		registry: cfg.Registry,
	}
	//nolint:bodyclose // type parameter, not a response
	c.breaker = newBreaker[*http.Response](cfg.Name, cfg.Breaker, func(name string, from, to gobreaker.State) {
		logger.Warn().
			Str("provider", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	})

	if c.registry != nil {
		c.registry.Register(c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// Do executes req, retrying network errors and 5xx responses with exponential
// backoff. A 5xx that exhausts the retries is returned as a response, not an error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var last *http.Response
	operation := func() error {
		//nolint:bodyclose // returned to the caller
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		if last != nil && last != resp {
			last.Body.Close()
		}
		last = resp
		return err
	}

	err := backoff.Retry(operation, policy)
	c.record(err)
	if err != nil {
		var serverErr *ServerError
		if last != nil && errors.As(err, &serverErr) {
			return last, nil
		}
		if last != nil {
			last.Body.Close()
		}
		return nil, err
	}
	return last, nil
}

func (c *Client) record(err error) {
	if c.registry == nil {
		return
	}
	if err != nil {
		c.registry.RecordFailure(c.name, err)
		return
	}
	c.registry.RecordSuccess(c.name)
}

// State returns the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker's request counts.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// ServerError is an HTTP 5xx response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}
