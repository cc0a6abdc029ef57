// Package oauth logs users in through external identity providers. Each
// supported provider has a fixed profile shape validated at the boundary;
// nothing provider-shaped leaks past this package.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"aurum/internal/repositories/cache"
	"aurum/internal/services/auth"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Supported providers.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// StateTTL bounds how long an authorization redirect may take before the
// callback is rejected.
const StateTTL = 10 * time.Minute

// Config carries per-provider client credentials. RedirectBase is the
// public base of the callback routes, e.g. https://host/api/auth/oauth.
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	RedirectBase       string
}

type Service struct {
	configs map[string]*oauth2.Config
	states  *cache.CacheService
}

// NewService wires the configured providers. Providers without
// credentials are left out and their routes fail with ErrUnknownProvider.
func NewService(cfg Config, states *cache.CacheService) *Service {
	configs := make(map[string]*oauth2.Config)
	if cfg.GoogleClientID != "" {
		configs[ProviderGoogle] = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.RedirectBase + "/" + ProviderGoogle + "/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		}
	}
	if cfg.GitHubClientID != "" {
		configs[ProviderGitHub] = &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.RedirectBase + "/" + ProviderGitHub + "/callback",
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}
	}
	return &Service{configs: configs, states: states}
}

// AuthURL issues a single-use state and returns the provider URL to
// redirect the user to.
func (s *Service) AuthURL(ctx context.Context, provider string) (string, error) {
	cfg, ok := s.configs[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	state, err := s.issueState(ctx)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state), nil
}

// HandleCallback consumes the state, exchanges the code, fetches the
// provider profile and returns it in the neutral shape the auth service
// accepts.
func (s *Service) HandleCallback(ctx context.Context, provider, code, state string) (auth.ExternalProfile, error) {
	var profile auth.ExternalProfile

	cfg, ok := s.configs[provider]
	if !ok {
		return profile, ErrUnknownProvider
	}
	if ok, err := s.consumeState(ctx, state); err != nil {
		return profile, err
	} else if !ok {
		return profile, ErrStateMismatch
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return profile, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	client := cfg.Client(ctx, token)

	switch provider {
	case ProviderGoogle:
		return fetchGoogleProfile(ctx, client)
	case ProviderGitHub:
		return fetchGitHubProfile(ctx, client)
	}
	return profile, ErrUnknownProvider
}

const statePrefix = "oauth:state:"

func (s *Service) issueState(ctx context.Context) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)
	if err := s.states.SetWithTTL(ctx, statePrefix+state, true, StateTTL); err != nil {
		return "", fmt.Errorf("storing state: %w", err)
	}
	return state, nil
}

func (s *Service) consumeState(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	var marker bool
	found, err := s.states.Get(ctx, statePrefix+state, &marker)
	if err != nil {
		return false, fmt.Errorf("loading state: %w", err)
	}
	if !found {
		return false, nil
	}
	if err := s.states.Delete(ctx, statePrefix+state); err != nil {
		return false, fmt.Errorf("consuming state: %w", err)
	}
	return true, nil
}
