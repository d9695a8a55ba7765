package hls

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/grafov/m3u8"
)

const (
	// defaultPollInterval is how often the live media playlist is
	// re-fetched for new segments.
	defaultPollInterval = 2 * time.Second

	// maxSeenSegments bounds the de-duplication window for segment URLs.
	maxSeenSegments = 128
)

// Open selects a quality variant and returns a byte stream over it. The
// stream follows the live media playlist until the broadcast ends, at
// which point reads return io.EOF. A missing quality yields
// *QualityNotFoundError before any network read happens.
func (p *Playlist) Open(ctx context.Context, quality string) (io.ReadCloser, error) {
	v, err := p.Variant(quality)
	if err != nil {
		return nil, err
	}
	return openVariant(ctx, p.client, v, defaultPollInterval)
}

type segmentStream struct {
	r      *io.PipeReader
	cancel context.CancelFunc
}

func (s *segmentStream) Read(buf []byte) (int, error) { return s.r.Read(buf) }

func (s *segmentStream) Close() error {
	s.cancel()
	return s.r.Close()
}

func openVariant(ctx context.Context, client *http.Client, v Variant, poll time.Duration) (io.ReadCloser, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if poll <= 0 {
		poll = defaultPollInterval
	}

	base, err := url.Parse(v.URL)
	if err != nil {
		return nil, fmt.Errorf("variant URL: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	f := &follower{
		client: client,
		base:   base,
		poll:   poll,
		seen:   make(map[string]bool),
	}
	go f.run(ctx, pw)

	return &segmentStream{r: pr, cancel: cancel}, nil
}

// follower tails a live media playlist, writing each unseen segment's
// bytes to the pipe in playlist order.
type follower struct {
	client *http.Client
	base   *url.URL
	poll   time.Duration
	seen   map[string]bool
	order  []string
}

func (f *follower) run(ctx context.Context, pw *io.PipeWriter) {
	first := true
	for {
		segments, closed, err := f.fetchPlaylist(ctx)
		if err != nil {
			pw.CloseWithError(err)
			return
		}

		if first {
			// Start at the live edge: everything but the newest segment
			// is history we do not replay.
			if len(segments) > 1 {
				for _, u := range segments[:len(segments)-1] {
					f.mark(u)
				}
			}
			first = false
		}

		for _, u := range segments {
			if f.seen[u] {
				continue
			}
			f.mark(u)
			if err := f.copySegment(ctx, pw, u); err != nil {
				pw.CloseWithError(err)
				return
			}
		}

		if closed {
			// ENDLIST: the broadcast is over.
			pw.Close()
			return
		}

		select {
		case <-ctx.Done():
			pw.CloseWithError(ctx.Err())
			return
		case <-time.After(f.poll):
		}
	}
}

func (f *follower) mark(u string) {
	f.seen[u] = true
	f.order = append(f.order, u)
	if len(f.order) > maxSeenSegments {
		drop := len(f.order) - maxSeenSegments
		for _, old := range f.order[:drop] {
			delete(f.seen, old)
		}
		f.order = f.order[drop:]
	}
}

// fetchPlaylist returns the segment URLs in playlist order and whether
// the playlist carries ENDLIST. A 404 is treated as end of stream.
func (f *follower) fetchPlaylist(ctx context.Context) ([]string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base.String(), nil)
	if err != nil {
		return nil, false, err
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, true, nil
	}
	if res.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("media playlist got http status %s", res.Status)
	}

	playlist, _, err := m3u8.DecodeFrom(res.Body, true)
	if err != nil {
		return nil, false, fmt.Errorf("decode media playlist: %w", err)
	}

	media, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return nil, false, fmt.Errorf("unexpected playlist type %T", playlist)
	}

	var out []string
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		u, err := f.base.Parse(seg.URI)
		if err != nil {
			continue
		}
		out = append(out, u.String())
	}

	return out, media.Closed, nil
}

func (f *follower) copySegment(ctx context.Context, w io.Writer, segmentURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, segmentURL, nil)
	if err != nil {
		return err
	}

	res, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("segment got http status %s", res.Status)
	}

	_, err = io.Copy(w, res.Body)
	return err
}
