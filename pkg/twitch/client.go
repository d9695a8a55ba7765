package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the Helix API root.
const DefaultBaseURL = "https://api.twitch.tv/helix"

// Client issues authenticated queries against the Helix API. It is
// stateless beyond the client ID and the bearer token it was built with.
type Client struct {
	ClientID   string
	Token      AccessToken
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client bound to the given credentials and token.
func NewClient(clientID string, token AccessToken) *Client {
	return &Client{
		ClientID: clientID,
		Token:    token,
		BaseURL:  DefaultBaseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultBaseURL
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// do issues a request against a Helix resource and decodes the JSON
// response into out. Non-2xx responses become an *APIError with the
// message extracted from the body's "message" field when present.
func (c *Client) do(ctx context.Context, method, resource string, params url.Values, out any) error {
	u := c.base() + "/" + resource
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Client-ID", c.ClientID)
	req.Header.Set("Authorization", "Bearer "+c.Token.Token)

	res, err := c.http().Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return apiError(res)
	}

	if out == nil {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) get(ctx context.Context, resource string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, resource, params, out)
}

func apiError(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	var envelope struct {
		Message string `json:"message"`
	}
	msg := fmt.Sprintf("request failed with status %s", res.Status)
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		msg = envelope.Message
	}
	return &APIError{Status: res.StatusCode, Message: msg}
}

// Streams returns the live stream entries for the given channel logins.
// An offline channel simply has no entry in the response.
func (c *Client) Streams(ctx context.Context, logins ...string) (*StreamsResponse, error) {
	params := url.Values{}
	for _, l := range logins {
		params.Add("user_login", l)
	}
	var out StreamsResponse
	if err := c.get(ctx, "streams", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Users returns user records for the given logins.
func (c *Client) Users(ctx context.Context, logins ...string) (*UsersResponse, error) {
	params := url.Values{}
	for _, l := range logins {
		params.Add("login", l)
	}
	var out UsersResponse
	if err := c.get(ctx, "users", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserByID returns the user record for a single user ID.
func (c *Client) UserByID(ctx context.Context, id string) (*UsersResponse, error) {
	params := url.Values{}
	params.Set("id", id)
	var out UsersResponse
	if err := c.get(ctx, "users", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Page controls Helix pagination. A zero Page uses the API defaults.
type Page struct {
	First int
	After string
}

func (p Page) apply(params url.Values) {
	if p.First > 0 {
		params.Set("first", strconv.Itoa(p.First))
	}
	if p.After != "" {
		params.Set("after", p.After)
	}
}

// UserFollows lists the channels the given user follows.
func (c *Client) UserFollows(ctx context.Context, fromID string, page Page) (*FollowsResponse, error) {
	params := url.Values{}
	params.Set("from_id", fromID)
	page.apply(params)
	var out FollowsResponse
	if err := c.get(ctx, "users/follows", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChannelFollowers lists the followers of the given channel.
func (c *Client) ChannelFollowers(ctx context.Context, channelID string, page Page) (*FollowsResponse, error) {
	params := url.Values{}
	params.Set("to_id", channelID)
	page.apply(params)
	var out FollowsResponse
	if err := c.get(ctx, "users/follows", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserFollowsChannel reports whether fromID follows channelID.
func (c *Client) UserFollowsChannel(ctx context.Context, fromID, channelID string) (bool, error) {
	params := url.Values{}
	params.Set("from_id", fromID)
	params.Set("to_id", channelID)
	var out FollowsResponse
	if err := c.get(ctx, "users/follows", params, &out); err != nil {
		return false, err
	}
	return len(out.Data) > 0, nil
}

// TopGames returns the games with the most current viewers.
func (c *Client) TopGames(ctx context.Context, page Page) (*GamesResponse, error) {
	params := url.Values{}
	page.apply(params)
	var out GamesResponse
	if err := c.get(ctx, "games/top", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamsByGame returns live streams for the given game ID.
func (c *Client) StreamsByGame(ctx context.Context, gameID string, page Page) (*StreamsResponse, error) {
	params := url.Values{}
	params.Set("game_id", gameID)
	page.apply(params)
	var out StreamsResponse
	if err := c.get(ctx, "streams", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserBlocks lists the users blocked by the given broadcaster.
func (c *Client) UserBlocks(ctx context.Context, broadcasterID string, page Page) (*BlocksResponse, error) {
	params := url.Values{}
	params.Set("broadcaster_id", broadcasterID)
	page.apply(params)
	var out BlocksResponse
	if err := c.get(ctx, "users/blocks", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BlockUser blocks the user with the given login.
func (c *Client) BlockUser(ctx context.Context, targetLogin string) error {
	params := url.Values{}
	params.Set("target_user_login", targetLogin)
	return c.do(ctx, http.MethodPut, "users/blocks", params, nil)
}

// UnblockUser removes a block on the given user ID.
func (c *Client) UnblockUser(ctx context.Context, targetID string) error {
	params := url.Values{}
	params.Set("target_user_id", targetID)
	return c.do(ctx, http.MethodDelete, "users/blocks", params, nil)
}

// CreateClip creates a clip from the broadcaster's current live stream.
func (c *Client) CreateClip(ctx context.Context, broadcasterID string) (*ClipsResponse, error) {
	params := url.Values{}
	params.Set("broadcaster_id", broadcasterID)
	var out ClipsResponse
	if err := c.do(ctx, http.MethodPost, "clips", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChannelURL returns the public page URL for a channel login.
func ChannelURL(login string) string {
	return "https://www.twitch.tv/" + strings.ToLower(login)
}
