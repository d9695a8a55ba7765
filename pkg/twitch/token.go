package twitch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTokenURL is the Twitch OAuth client-credentials endpoint.
const DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

// Credentials identify the application. They are supplied externally
// and never persisted.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// AccessToken is an app access token obtained through the
// client-credentials grant. It is held in memory only.
type AccessToken struct {
	Token      string
	ObtainedAt time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// ObtainToken exchanges application credentials for an app access token
// with a single POST. There are no retries; a failure here is fatal to
// the run. A non-2xx response yields an *AuthError carrying the response
// body, a network failure yields a *TransportError.
func ObtainToken(ctx context.Context, client *http.Client, tokenURL string, creds Credentials) (AccessToken, error) {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	form := url.Values{}
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return AccessToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := client.Do(req)
	if err != nil {
		return AccessToken{}, &TransportError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return AccessToken{}, &AuthError{Status: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var tr tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return AccessToken{}, err
	}
	if tr.AccessToken == "" {
		return AccessToken{}, &AuthError{Status: res.StatusCode, Body: "empty access_token in response"}
	}

	return AccessToken{Token: tr.AccessToken, ObtainedAt: time.Now()}, nil
}
