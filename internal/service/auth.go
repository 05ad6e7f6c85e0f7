package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"github.com/webitel/hose-relay/config"
	"github.com/webitel/hose-relay/internal/domain/model"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAuthNotConfigured  = errors.New("auth endpoint not configured")
	ErrAuthServiceFailure = errors.New("auth service unavailable")
)

// Auther verifies a subscriber bearer token.
type Auther interface {
	Inspect(ctx context.Context, token string) (*model.Account, error)
}

// AccountAuther checks tokens against an Appwrite-style account endpoint.
// The token is sent as the session and must come back as the account $id.
type AccountAuther struct {
	endpoint  string
	projectID string
	apiKey    string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
}

func NewAccountAuther(cfg config.AuthConfig, logger *slog.Logger) *AccountAuther {
	return &AccountAuther{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		projectID: cfg.ProjectID,
		apiKey:    cfg.APIKey,
		client:    &http.Client{Timeout: cfg.Timeout},
		breaker:   newBreaker("auth", logger),
	}
}

func (a *AccountAuther) Inspect(ctx context.Context, token string) (*model.Account, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	if a.endpoint == "" {
		return nil, ErrAuthNotConfigured
	}

	res, err := a.breaker.Execute(func() (interface{}, error) {
		return a.fetchAccount(ctx, token)
	})
	if err != nil {
		return nil, err
	}

	account := res.(*model.Account)
	if account.ID != token {
		return nil, ErrUnauthorized
	}
	return account, nil
}

func (a *AccountAuther) fetchAccount(ctx context.Context, token string) (*model.Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"/account", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Appwrite-Project", a.projectID)
	req.Header.Set("X-Appwrite-Key", a.apiKey)
	req.Header.Set("X-Appwrite-Session", token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthServiceFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		// A rejected token is an answer, not an outage.
		return nil, neutralError{ErrUnauthorized}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d", ErrAuthServiceFailure, resp.StatusCode)
	}

	var account model.Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("%w: decode account: %v", ErrAuthServiceFailure, err)
	}
	return &account, nil
}

// NoopAuther accepts every subscriber. It backs debug mode.
type NoopAuther struct{}

func (NoopAuther) Inspect(_ context.Context, token string) (*model.Account, error) {
	return &model.Account{ID: token, Name: "debug"}, nil
}

// NewAuther picks the account checker, or NoopAuther in debug mode.
func NewAuther(cfg *config.Config, logger *slog.Logger) Auther {
	if cfg.Debug {
		logger.Warn("AUTH_DISABLED", "reason", "debug mode")
		return NoopAuther{}
	}
	return NewAccountAuther(cfg.Auth, logger)
}

// neutralError is a failure the breaker counts as a success.
type neutralError struct{ err error }

func (e neutralError) Error() string { return e.err.Error() }
func (e neutralError) Unwrap() error { return e.err }

// newBreaker trips after five consecutive failures and probes again after 30s.
func newBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var excluded neutralError
			return err == nil || errors.As(err, &excluded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("CIRCUIT_BREAKER_STATE_CHANGED", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}
