package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Monir-Ruet/authentication/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		ServiceName: "authentication-test",
		Google:      config.OAuthProvider{ClientID: "gid", ClientSecret: "gsecret", RedirectURI: "https://app/cb"},
		Github:      config.OAuthProvider{ClientID: "hid", ClientSecret: "hsecret"},
		Facebook:    config.OAuthProvider{ClientID: "fid", ClientSecret: "fsecret"},
	}
}

func endpointsFor(provider Provider, override func(*Endpoints)) map[Provider]Endpoints {
	endpoints := defaultEndpoints()
	entry := endpoints[provider]
	override(&entry)
	endpoints[provider] = entry
	return endpoints
}

func TestExchangeCodeEmptyCodeSkipsNetwork(t *testing.T) {
	exchange := NewExchange(testConfig(), zap.NewNop())
	token, err := exchange.ExchangeCode(context.Background(), Google, "")
	require.NoError(t, err)
	require.Nil(t, token)
}

func TestExchangeCodeSendsCredentialsAndParsesToken(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "bearer"})
	}))
	defer srv.Close()

	exchange := NewExchange(testConfig(), zap.NewNop(),
		WithEndpoints(endpointsFor(Google, func(e *Endpoints) { e.TokenURL = srv.URL })))

	token, err := exchange.ExchangeCode(context.Background(), Google, "code123")
	require.NoError(t, err)
	require.NotNil(t, token)
	require.Equal(t, "at", token.AccessToken)

	require.Equal(t, "gid", got["client_id"])
	require.Equal(t, "gsecret", got["client_secret"])
	require.Equal(t, "code123", got["code"])
	require.Equal(t, "authorization_code", got["grant_type"])
	require.Equal(t, "https://app/cb", got["redirect_uri"])
}

func TestExchangeCodeRejectedStatusYieldsNoToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad_verification_code"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	exchange := NewExchange(testConfig(), zap.NewNop(),
		WithEndpoints(endpointsFor(Google, func(e *Endpoints) { e.TokenURL = srv.URL })))

	token, err := exchange.ExchangeCode(context.Background(), Google, "stale")
	require.NoError(t, err)
	require.Nil(t, token)
}

func TestFetchProfileGoogle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":        "10769150350006150715113082367",
			"name":       "Jane Doe",
			"given_name": "Jane",
			"picture":    "https://img/jane",
			"email":      "jane@example.com",
		})
	}))
	defer srv.Close()

	exchange := NewExchange(testConfig(), zap.NewNop(),
		WithEndpoints(endpointsFor(Google, func(e *Endpoints) { e.ProfileURL = srv.URL })))

	claims, err := exchange.FetchProfile(context.Background(), Google, "at")
	require.NoError(t, err)
	require.Equal(t, "10769150350006150715113082367", claims.ID)
	require.Equal(t, "Jane Doe", claims.Name)
	require.Equal(t, "Jane", claims.GivenName)
	require.Equal(t, "https://img/jane", claims.PictureURL)
	require.Equal(t, "jane@example.com", claims.Email)
}

func TestFetchProfileGithubNumericIDAndPrimaryEmail(t *testing.T) {
	profileSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Raw JSON keeps the large id out of float64 territory.
		_, _ = w.Write([]byte(`{"id": 9007199254740999, "name": "Octo Cat", "avatar_url": "https://img/octo"}`))
	}))
	defer profileSrv.Close()

	emailsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"email":"old@example.com","primary":false},{"email":"octo@example.com","primary":true}]`))
	}))
	defer emailsSrv.Close()

	exchange := NewExchange(testConfig(), zap.NewNop(),
		WithEndpoints(endpointsFor(Github, func(e *Endpoints) {
			e.ProfileURL = profileSrv.URL
			e.EmailsURL = emailsSrv.URL
		})))

	claims, err := exchange.FetchProfile(context.Background(), Github, "at")
	require.NoError(t, err)
	require.Equal(t, "9007199254740999", claims.ID)
	require.Equal(t, "octo@example.com", claims.Email)
	require.Equal(t, "https://img/octo", claims.PictureURL)
}

func TestFetchProfileGithubNoPrimaryEmailLeavesEmpty(t *testing.T) {
	profileSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 7, "name": "No Mail"}`))
	}))
	defer profileSrv.Close()

	emailsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"email":"hidden@example.com","primary":false}]`))
	}))
	defer emailsSrv.Close()

	exchange := NewExchange(testConfig(), zap.NewNop(),
		WithEndpoints(endpointsFor(Github, func(e *Endpoints) {
			e.ProfileURL = profileSrv.URL
			e.EmailsURL = emailsSrv.URL
		})))

	claims, err := exchange.FetchProfile(context.Background(), Github, "at")
	require.NoError(t, err)
	require.Empty(t, claims.Email)
}

func TestFetchProfileFacebookNestedPictureAndFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "id,name,email,picture", r.URL.Query().Get("fields"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "fb-1",
			"name": "Face Book",
			"email": "face@example.com",
			"picture": {"data": {"url": "https://img/face"}}
		}`))
	}))
	defer srv.Close()

	exchange := NewExchange(testConfig(), zap.NewNop(),
		WithEndpoints(endpointsFor(Facebook, func(e *Endpoints) { e.ProfileURL = srv.URL })))

	claims, err := exchange.FetchProfile(context.Background(), Facebook, "at")
	require.NoError(t, err)
	require.Equal(t, "fb-1", claims.ID)
	require.Equal(t, "https://img/face", claims.PictureURL)
	require.Equal(t, "face@example.com", claims.Email)
}

func TestParseProviderRejectsUnknown(t *testing.T) {
	_, err := ParseProvider("twitter")
	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	require.Equal(t, http.StatusBadRequest, flowErr.Status)
	require.Equal(t, "invalid_provider", flowErr.Code)

	provider, err := ParseProvider(" Google ")
	require.NoError(t, err)
	require.Equal(t, Google, provider)
}
