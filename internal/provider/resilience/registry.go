package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Provider states reported by Status.
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

// ProviderStatus is a snapshot of one provider's breaker and last outcomes.
type ProviderStatus struct {
	Name          string     `json:"name"`
	State         string     `json:"state"`
	Requests      uint32     `json:"requests"`
	Failures      uint32     `json:"failures"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

// Healthy reports whether the provider's breaker is closed.
func (s ProviderStatus) Healthy() bool {
	return s.State == StateHealthy
}

// Registry tracks the clients of external providers for status reporting.
type Registry struct {
	now func() time.Time

	mu        sync.RWMutex
	providers map[string]*tracked
}

type tracked struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		now:       time.Now,
		providers: make(map[string]*tracked),
	}
}

// Register adds c, replacing any client with the same name.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[c.Name()] = &tracked{client: c}
}

// RecordSuccess stamps the last successful call of name.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := r.now()
		p.lastSuccessAt = &now
	}
}

// RecordFailure stamps the last failed call of name.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := r.now()
		p.lastFailureAt = &now
		if err != nil {
			p.lastError = err.Error()
		}
	}
}

// Status returns every provider ordered by name.
func (r *Registry) Status() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderStatus, 0, len(r.providers))
	for name, p := range r.providers {
		counts := p.client.Counts()
		out = append(out, ProviderStatus{
			Name:          name,
			State:         stateName(p.client.State()),
			Requests:      counts.Requests,
			Failures:      counts.TotalFailures,
			LastSuccessAt: p.lastSuccessAt,
			LastFailureAt: p.lastFailureAt,
			LastError:     p.lastError,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

func stateName(s gobreaker.State) string {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateDegraded
	case gobreaker.StateOpen:
		return StateUnhealthy
	default:
		return StateHealthy
	}
}
