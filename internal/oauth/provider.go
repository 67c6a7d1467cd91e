package oauth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Provider identifies one supported external identity provider. The set is
// closed; anything else is rejected before any I/O.
type Provider string

const (
	Google   Provider = "google"
	Github   Provider = "github"
	Facebook Provider = "facebook"
)

// ParseProvider validates membership in the supported set.
func ParseProvider(value string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(value))) {
	case Google:
		return Google, nil
	case Github:
		return Github, nil
	case Facebook:
		return Facebook, nil
	default:
		return "", &FlowError{Status: http.StatusBadRequest, Code: "invalid_provider",
			Message: fmt.Sprintf("Provider %q is not supported.", value)}
	}
}

// Endpoints describes how to talk to one provider. Adding a provider is a
// data-only change to the registry below plus its claim mapper.
type Endpoints struct {
	TokenURL      string
	ProfileURL    string
	ProfileMethod string
	// ProfileFields is appended as the "fields" query parameter when set
	// (facebook requires an explicit field list).
	ProfileFields string
	// EmailsURL is fetched separately when the primary profile omits the
	// email (github).
	EmailsURL string

	mapClaims func(profile map[string]any) Claims
}

// Claims is the provider-agnostic shape produced from a raw profile response.
type Claims struct {
	ID         string
	Name       string
	GivenName  string
	PictureURL string
	Email      string
}

func defaultEndpoints() map[Provider]Endpoints {
	return map[Provider]Endpoints{
		Google: {
			TokenURL:      "https://oauth2.googleapis.com/token",
			ProfileURL:    "https://www.googleapis.com/oauth2/v3/userinfo",
			ProfileMethod: http.MethodPost,
			mapClaims: func(profile map[string]any) Claims {
				return Claims{
					ID:         stringField(profile, "sub"),
					Name:       stringField(profile, "name"),
					GivenName:  stringField(profile, "given_name"),
					PictureURL: stringField(profile, "picture"),
					Email:      stringField(profile, "email"),
				}
			},
		},
		Github: {
			TokenURL:      "https://github.com/login/oauth/access_token",
			ProfileURL:    "https://api.github.com/user",
			ProfileMethod: http.MethodGet,
			EmailsURL:     "https://api.github.com/user/emails",
			mapClaims: func(profile map[string]any) Claims {
				// The primary github profile carries no email; the
				// orchestration fetches EmailsURL separately.
				return Claims{
					ID:         stringField(profile, "id"),
					Name:       stringField(profile, "name"),
					GivenName:  stringField(profile, "given_name"),
					PictureURL: stringField(profile, "avatar_url"),
				}
			},
		},
		Facebook: {
			TokenURL:      "https://graph.facebook.com/v14.0/oauth/access_token",
			ProfileURL:    "https://graph.facebook.com/v14.0/me",
			ProfileMethod: http.MethodPost,
			ProfileFields: "id,name,email,picture",
			mapClaims: func(profile map[string]any) Claims {
				return Claims{
					ID:         stringField(profile, "id"),
					Name:       stringField(profile, "name"),
					GivenName:  stringField(profile, "given_name"),
					PictureURL: nestedStringField(profile, "picture", "data", "url"),
					Email:      stringField(profile, "email"),
				}
			},
		},
	}
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		// github's numeric id among others; profiles are decoded with
		// UseNumber so ids survive verbatim.
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func nestedStringField(m map[string]any, keys ...string) string {
	current := m
	for i, key := range keys {
		if i == len(keys)-1 {
			return stringField(current, key)
		}
		next, ok := current[key].(map[string]any)
		if !ok {
			return ""
		}
		current = next
	}
	return ""
}
