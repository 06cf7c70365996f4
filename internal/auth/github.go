package auth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/campfire-chat/campfire-backend/internal/models"
)

const (
	// DefaultName is stored when the GitHub profile has no display name.
	DefaultName = "John Doe"
	// DefaultEmail is stored when the profile exposes no email.
	DefaultEmail = "No public email"
)

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	AuthBaseURL  string // defaults to https://github.com
	APIBaseURL   string // defaults to https://api.github.com
}

// GitHub exchanges an OAuth authorization code for a profile and upserts the
// account keyed by the GitHub user id.
type GitHub struct {
	cfg    GitHubConfig
	client *resty.Client
	users  ExternalUpserter
}

func NewGitHub(cfg GitHubConfig, users ExternalUpserter) *GitHub {
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = "https://github.com"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.github.com"
	}
	cfg.AuthBaseURL = strings.TrimRight(cfg.AuthBaseURL, "/")
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	client := resty.New().SetTimeout(15 * time.Second)

	return &GitHub{cfg: cfg, client: client, users: users}
}

// AuthCodeURL is where the browser is sent to begin the handshake.
func (s *GitHub) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", s.cfg.ClientID)
	q.Set("redirect_uri", s.cfg.CallbackURL)
	q.Set("state", state)
	return s.cfg.AuthBaseURL + "/login/oauth/authorize?" + q.Encode()
}

type githubToken struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

type githubProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email string `json:"email"`
}

func (s *GitHub) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	if creds.Code == "" {
		return nil, ErrRejected
	}

	var token githubToken
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(map[string]string{
			"client_id":     s.cfg.ClientID,
			"client_secret": s.cfg.ClientSecret,
			"code":          creds.Code,
			"redirect_uri":  s.cfg.CallbackURL,
		}).
		SetResult(&token).
		Post(s.cfg.AuthBaseURL + "/login/oauth/access_token")
	if err != nil {
		return nil, fmt.Errorf("github token exchange: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("github token exchange: status %d", resp.StatusCode())
	}
	if token.AccessToken == "" {
		// GitHub answers 200 with an error body for a bad or expired code.
		return nil, ErrRejected
	}

	var profile githubProfile
	resp, err = s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github+json").
		SetAuthToken(token.AccessToken).
		SetResult(&profile).
		Get(s.cfg.APIBaseURL + "/user")
	if err != nil {
		return nil, fmt.Errorf("github profile fetch: %w", err)
	}
	if resp.IsError() || profile.ID == 0 {
		return nil, fmt.Errorf("github profile fetch: status %d", resp.StatusCode())
	}

	identity := ExternalIdentity{
		ID:       strconv.FormatInt(profile.ID, 10),
		Name:     profile.Name,
		Photo:    profile.AvatarURL,
		Email:    s.firstEmail(ctx, token.AccessToken),
		Provider: "github",
	}
	if identity.Name == "" {
		identity.Name = DefaultName
	}

	user, err := s.users.UpsertExternal(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("github identity upsert: %w", err)
	}
	return user, nil
}

// firstEmail returns the first address the profile exposes, best effort.
func (s *GitHub) firstEmail(ctx context.Context, accessToken string) string {
	var emails []githubEmail
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github+json").
		SetAuthToken(accessToken).
		SetResult(&emails).
		Get(s.cfg.APIBaseURL + "/user/emails")
	if err != nil || resp.IsError() || len(emails) == 0 || emails[0].Email == "" {
		return DefaultEmail
	}
	return emails[0].Email
}
