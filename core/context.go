package core

import (
	"errors"
	"time"
)

// ErrNoAutomationAccount is returned when an execution context cannot be
// constructed because no automation identity is configured. This is fatal at
// startup: every pipeline write needs attribution.
var ErrNoAutomationAccount = errors.New("no automation account configured")

// ExecutionContext bundles the identity and claims an operation runs under.
// It is constructed once per process (or per CLI invocation) and threaded
// explicitly through every call; nothing in the pipeline reads ambient
// global state.
type ExecutionContext struct {
	AccountID   string
	AccountName string
	Claims      []string
	StartedAt   time.Time
}

// NewExecutionContext builds an execution context for the given automation
// account.
func NewExecutionContext(accountID, accountName string, claims []string) (*ExecutionContext, error) {
	if accountID == "" {
		return nil, ErrNoAutomationAccount
	}
	return &ExecutionContext{
		AccountID:   accountID,
		AccountName: accountName,
		Claims:      claims,
		StartedAt:   time.Now().UTC(),
	}, nil
}

// HasClaim reports whether the context carries the named claim
func (e *ExecutionContext) HasClaim(claim string) bool {
	for _, c := range e.Claims {
		if c == claim {
			return true
		}
	}
	return false
}
