package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"aurum/internal/services/auth"
)

// GoogleProfile is the subset of the userinfo response this service
// relies on. Email must be present and verified.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// GitHubProfile is the subset of the user response this service relies
// on. Email may be empty here and resolved from the emails endpoint.
type GitHubProfile struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type gitHubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	gitHubUserURL     = "https://api.github.com/user"
	gitHubEmailsURL   = "https://api.github.com/user/emails"
)

func fetchGoogleProfile(ctx context.Context, client *http.Client) (auth.ExternalProfile, error) {
	var out auth.ExternalProfile
	var profile GoogleProfile
	if err := getJSON(ctx, client, googleUserInfoURL, &profile); err != nil {
		return out, err
	}

	if profile.ID == "" || profile.Email == "" || !profile.VerifiedEmail {
		return out, ErrProfileIncomplete
	}
	return auth.ExternalProfile{
		Provider: ProviderGoogle,
		Subject:  profile.ID,
		Email:    profile.Email,
		Name:     profile.Name,
	}, nil
}

func fetchGitHubProfile(ctx context.Context, client *http.Client) (auth.ExternalProfile, error) {
	var out auth.ExternalProfile
	var profile GitHubProfile
	if err := getJSON(ctx, client, gitHubUserURL, &profile); err != nil {
		return out, err
	}
	if profile.ID == 0 {
		return out, ErrProfileIncomplete
	}

	email := profile.Email
	if email == "" {
		var emails []gitHubEmail
		if err := getJSON(ctx, client, gitHubEmailsURL, &emails); err != nil {
			return out, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}
	if email == "" {
		return out, ErrProfileIncomplete
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}
	return auth.ExternalProfile{
		Provider: ProviderGitHub,
		Subject:  fmt.Sprintf("%d", profile.ID),
		Email:    email,
		Name:     name,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
