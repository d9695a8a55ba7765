package hls

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/grafov/m3u8"
)

const (
	// anonymousClientID is the client ID the Twitch web player uses. The
	// usher and GraphQL endpoints accept it without authentication.
	anonymousClientID = "kimne78kx3ncx6brgo4mv6wki5h1ko"

	usherURLMask = "https://usher.ttvnw.net/api/channel/hls/%s.m3u8"
	graphQLURL   = "https://gql.twitch.tv/gql"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:86.0) Gecko/20100101 Firefox/86.0"
)

// QualityNotFoundError reports that the requested quality label has no
// variant, which for a live channel almost always means the channel is
// offline. Callers surface it as "channel is not live".
type QualityNotFoundError struct {
	Channel string
	Quality string
}

func (e *QualityNotFoundError) Error() string {
	return fmt.Sprintf("no %q variant for channel %q", e.Quality, e.Channel)
}

// Variant is one quality entry of a master playlist.
type Variant struct {
	Name       string
	Resolution string
	FrameRate  float64
	URL        string
}

// Playlist is the resolved set of quality variants for a channel.
type Playlist struct {
	Channel  string
	Variants []Variant

	client *http.Client
}

// Resolver turns channel names into Playlists. The URL fields override
// the production endpoints; UsherURL is a printf mask with one %s for
// the channel name.
type Resolver struct {
	HTTPClient *http.Client
	GraphQLURL string
	UsherURL   string
}

// NewResolver returns a Resolver with a client tuned for the short
// token and playlist requests.
func NewResolver() *Resolver {
	return &Resolver{
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (r *Resolver) http() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

func (r *Resolver) gqlURL() string {
	if r.GraphQLURL != "" {
		return r.GraphQLURL
	}
	return graphQLURL
}

func (r *Resolver) usherMask() string {
	if r.UsherURL != "" {
		return r.UsherURL
	}
	return usherURLMask
}

// Resolve fetches a playback access token and the channel's master
// playlist, returning the decoded quality variants. An offline or
// unknown channel yields a Playlist with no variants; quality lookup
// then reports QualityNotFoundError.
func (r *Resolver) Resolve(ctx context.Context, channel string) (*Playlist, error) {
	token, err := r.playbackToken(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("playback access token: %w", err)
	}

	p := &Playlist{Channel: channel, client: r.http()}

	masterURL := usherURL(r.usherMask(), channel, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, masterURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := r.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("master playlist request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		// Usher answers 404 when the channel is offline; surfaced as a
		// missing quality at selection time.
		return p, nil
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("master playlist got http status %s", res.Status)
	}

	playlist, _, err := m3u8.DecodeFrom(res.Body, true)
	if err != nil {
		return nil, fmt.Errorf("decode master playlist: %w", err)
	}

	master, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok {
		return nil, fmt.Errorf("unexpected playlist type %T", playlist)
	}

	p.Variants = variantsOf(master)
	return p, nil
}

func variantsOf(master *m3u8.MasterPlaylist) []Variant {
	var out []Variant
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		name := ""
		if len(v.Alternatives) > 0 {
			name = v.Alternatives[0].Name
		}
		out = append(out, Variant{
			Name:       name,
			Resolution: v.Resolution,
			FrameRate:  v.FrameRate,
			URL:        v.URI,
		})
	}
	return out
}

// Variant selects a quality. "best" is the first (source) variant,
// "worst" the lowest video variant, "audio" the audio_only entry, and
// anything else is matched by name.
func (p *Playlist) Variant(quality string) (Variant, error) {
	if quality == "" {
		quality = "best"
	}
	if len(p.Variants) == 0 {
		return Variant{}, &QualityNotFoundError{Channel: p.Channel, Quality: quality}
	}

	switch quality {
	case "best":
		return p.Variants[0], nil
	case "worst":
		for i := len(p.Variants) - 1; i >= 0; i-- {
			if p.Variants[i].Name != "audio_only" {
				return p.Variants[i], nil
			}
		}
	case "audio":
		for _, v := range p.Variants {
			if v.Name == "audio_only" {
				return v, nil
			}
		}
	default:
		for _, v := range p.Variants {
			if v.Name == quality {
				return v, nil
			}
		}
	}

	return Variant{}, &QualityNotFoundError{Channel: p.Channel, Quality: quality}
}

func usherURL(mask, channel string, token playbackAccessToken) *url.URL {
	u, _ := url.Parse(fmt.Sprintf(mask, channel))

	query := u.Query()
	query.Set("allow_source", "true")
	query.Set("fast_bread", "true")
	query.Set("p", "1234567890")
	query.Set("player_backend", "mediaplayer")
	query.Set("sig", token.Signature)
	query.Set("supported_codecs", "vp09,avc1")
	query.Set("token", token.Value)
	query.Set("cdm", "wv")
	query.Set("player_version", "1.2.0")
	u.RawQuery = query.Encode()

	return u
}

func (r *Resolver) playbackToken(ctx context.Context, channel string) (playbackAccessToken, error) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(newPlaybackAccessTokenQuery(channel)); err != nil {
		return playbackAccessToken{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.gqlURL(), buf)
	if err != nil {
		return playbackAccessToken{}, err
	}
	req.Header.Set("Client-ID", anonymousClientID)
	req.Header.Set("User-Agent", userAgent)

	res, err := r.http().Do(req)
	if err != nil {
		return playbackAccessToken{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return playbackAccessToken{}, fmt.Errorf("graphql request got http status %s", res.Status)
	}

	var decoded playbackAccessTokenResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return playbackAccessToken{}, err
	}

	return decoded.Data.StreamPlaybackAccessToken, nil
}
