package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Monir-Ruet/authentication/internal/config"
)

// TokenResponse models the provider token endpoint reply.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	IDToken      string `json:"id_token"`
}

// Exchange talks to the external providers: code-for-token exchange and
// profile retrieval. It never retries; a failed call is the caller's problem.
type Exchange struct {
	cfg       config.Config
	client    *http.Client
	endpoints map[Provider]Endpoints
	logger    *zap.Logger
}

// Option adjusts an Exchange, mainly for tests.
type Option func(*Exchange)

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Exchange) { e.client = client }
}

// WithEndpoints substitutes the provider endpoint registry.
func WithEndpoints(endpoints map[Provider]Endpoints) Option {
	return func(e *Exchange) { e.endpoints = endpoints }
}

// NewExchange builds the provider client.
func NewExchange(cfg config.Config, logger *zap.Logger, opts ...Option) *Exchange {
	e := &Exchange{
		cfg:       cfg,
		client:    &http.Client{Timeout: 10 * time.Second},
		endpoints: defaultEndpoints(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExchangeCode swaps an authorization code for an access token. An empty code
// short-circuits to nil without a network call; a non-success response or a
// reply without an access token also yields nil.
func (e *Exchange) ExchangeCode(ctx context.Context, provider Provider, code string) (*TokenResponse, error) {
	if code == "" {
		return nil, nil
	}

	endpoints, creds, err := e.lookup(provider)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
		"code":          code,
		"grant_type":    "authorization_code",
		"redirect_uri":  creds.RedirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoints.TokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Warn("token exchange rejected",
			zap.String("provider", string(provider)),
			zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrExchangeFailed, err)
	}
	if token.AccessToken == "" {
		return nil, nil
	}
	return &token, nil
}

// FetchProfile retrieves and normalizes the provider profile. For github the
// primary profile has no email, so the emails endpoint is consulted and the
// entry flagged primary wins; no primary email leaves the field empty.
func (e *Exchange) FetchProfile(ctx context.Context, provider Provider, accessToken string) (*Claims, error) {
	endpoints, _, err := e.lookup(provider)
	if err != nil {
		return nil, err
	}

	profileURL := endpoints.ProfileURL
	if endpoints.ProfileFields != "" {
		u, err := url.Parse(profileURL)
		if err != nil {
			return nil, fmt.Errorf("parse profile url: %w", err)
		}
		q := u.Query()
		q.Set("fields", endpoints.ProfileFields)
		u.RawQuery = q.Encode()
		profileURL = u.String()
	}

	profile, err := e.getJSON(ctx, endpoints.ProfileMethod, profileURL, accessToken)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := decodeUseNumber(profile, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", ErrProfileFailed, err)
	}
	claims := endpoints.mapClaims(raw)

	if provider == Github {
		email, err := e.fetchPrimaryEmail(ctx, endpoints.EmailsURL, accessToken)
		if err != nil {
			return nil, err
		}
		claims.Email = email
	}

	return &claims, nil
}

func (e *Exchange) fetchPrimaryEmail(ctx context.Context, emailsURL, accessToken string) (string, error) {
	body, err := e.getJSON(ctx, http.MethodGet, emailsURL, accessToken)
	if err != nil {
		return "", err
	}

	var entries []struct {
		Email   string `json:"email"`
		Primary bool   `json:"primary"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", fmt.Errorf("%w: decode emails: %v", ErrProfileFailed, err)
	}
	for _, entry := range entries {
		if entry.Primary {
			return entry.Email, nil
		}
	}
	return "", nil
}

func (e *Exchange) getJSON(ctx context.Context, method, endpoint, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", e.cfg.ServiceName)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d from %s", ErrProfileFailed, resp.StatusCode, endpoint)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProfileFailed, err)
	}
	return buf.Bytes(), nil
}

func (e *Exchange) lookup(provider Provider) (Endpoints, config.OAuthProvider, error) {
	endpoints, ok := e.endpoints[provider]
	if !ok {
		return Endpoints{}, config.OAuthProvider{}, &FlowError{
			Status: http.StatusBadRequest, Code: "invalid_provider",
			Message: fmt.Sprintf("Provider %q is not supported.", provider),
		}
	}

	var creds config.OAuthProvider
	switch provider {
	case Google:
		creds = e.cfg.Google
	case Github:
		creds = e.cfg.Github
	case Facebook:
		creds = e.cfg.Facebook
	}
	return endpoints, creds, nil
}

func decodeUseNumber(data []byte, dst *map[string]any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(dst)
}
