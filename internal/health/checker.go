// Package health runs the environment checks behind "ghbridge doctor".
//
// Each Checker verifies one thing ghbridge depends on (the state directory,
// workspace trust, the GitHub session, the API) and reports a Result:
//
//	manager := health.NewManager()
//	manager.AddChecker(health.NewStateDirChecker(stateDir))
//	manager.AddChecker(health.NewGitHubChecker(clientFn))
//
//	reports := manager.Check(ctx)
//	status := health.OverallStatus(reports)
package health

import (
	"context"
	"time"
)

// Checker verifies a single dependency.
type Checker interface {
	// Name returns the unique name of this check, lowercase with hyphens
	// (e.g. "state-dir", "github-api").
	Name() string

	// Check performs the check. It must respect the context deadline.
	Check(ctx context.Context) *Result
}

// Status is the outcome of a check.
type Status string

const (
	// StatusHealthy means the dependency is fully usable.
	StatusHealthy Status = "healthy"

	// StatusDegraded means ghbridge works, with reduced functionality or
	// after a user action.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy means commands depending on this will fail.
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) String() string {
	return string(s)
}

// Result is what a check found.
type Result struct {
	Status  Status         `json:"status" yaml:"status"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration  `json:"latency" yaml:"latency"`
}

// NewResult creates a result with the given status and message.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithDetail adds a detail and returns the result for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

// WithLatency sets the latency and returns the result for chaining.
func (r *Result) WithLatency(latency time.Duration) *Result {
	r.Latency = latency
	return r
}

// WithSuggestion records what the user can do about a failed check.
func (r *Result) WithSuggestion(suggestion string) *Result {
	return r.WithDetail("suggestion", suggestion)
}

// Suggestion returns the recorded suggestion, if any.
func (r *Result) Suggestion() string {
	s, _ := r.Details["suggestion"].(string)
	return s
}

// Healthy creates a healthy result.
func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

// Degraded creates a degraded result.
func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}

type funcChecker struct {
	name string
	fn   func(ctx context.Context) *Result
}

// CheckFunc adapts a function to a Checker.
func CheckFunc(name string, fn func(ctx context.Context) *Result) Checker {
	return &funcChecker{name: name, fn: fn}
}

func (c *funcChecker) Name() string { return c.name }

func (c *funcChecker) Check(ctx context.Context) *Result { return c.fn(ctx) }
