package player

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/grafana/dskit/modules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastofthedinosaurs/helixplay/pkg/hls"
	"github.com/lastofthedinosaurs/helixplay/pkg/mpv"
)

// fakeControl records every call made against the playback surface.
type fakeControl struct {
	mu sync.Mutex

	props     map[string][]any
	getProps  map[string]any
	seeks     []float64
	observers map[string]func(any)
	keys      map[string]func()
	logCh     chan mpv.LogMessage
	logLevel  string

	stdin       *blockRecorder
	played      bool
	quits       int
	screenshots []string
	waitErr     error
	closeCount  int
}

func newFakeControl() *fakeControl {
	return &fakeControl{
		props:     make(map[string][]any),
		getProps:  make(map[string]any),
		observers: make(map[string]func(any)),
		keys:      make(map[string]func()),
		logCh:     make(chan mpv.LogMessage),
		stdin:     &blockRecorder{},
	}
}

func (f *fakeControl) Play() error { f.played = true; return nil }

func (f *fakeControl) Quit() error { f.quits++; return nil }

func (f *fakeControl) SetProperty(name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.props[name] = append(f.props[name], value)
	return nil
}

func (f *fakeControl) GetProperty(name string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if vals := f.props[name]; len(vals) > 0 {
		return vals[len(vals)-1], nil
	}
	v, ok := f.getProps[name]
	if !ok {
		return nil, errors.New("mpv: property unavailable")
	}
	return v, nil
}

func (f *fakeControl) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeControl) ObserveProperty(name string, fn func(value any)) error {
	f.observers[name] = fn
	return nil
}

func (f *fakeControl) BindKey(key string, fn func()) error {
	f.keys[key] = fn
	return nil
}

func (f *fakeControl) RequestLogMessages(level string) error {
	f.logLevel = level
	return nil
}

func (f *fakeControl) LogMessages() <-chan mpv.LogMessage { return f.logCh }

func (f *fakeControl) ScreenshotToFile(path string) error {
	f.screenshots = append(f.screenshots, path)
	return nil
}

func (f *fakeControl) Stdin() io.WriteCloser { return f.stdin }

func (f *fakeControl) Wait(ctx context.Context) error { return f.waitErr }

func (f *fakeControl) Close() error {
	f.closeCount++
	return nil
}

// lastSet returns the most recent SetProperty value for name, or nil.
func (f *fakeControl) lastSet(name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	vals := f.props[name]
	if len(vals) == 0 {
		return nil
	}
	return vals[len(vals)-1]
}

func testPlayer(t *testing.T, cfg Config) *Player {
	t.Helper()
	p, err := New(cfg, *slog.Default())
	require.NoError(t, err)
	return p
}

func TestNewAppliesDefaults(t *testing.T) {
	p := testPlayer(t, Config{})

	assert.Equal(t, defaultQuality, p.cfg.Quality)
	assert.Equal(t, defaultBlockSize, p.cfg.BlockSize)
}

func TestConfigureAppliesOptionSet(t *testing.T) {
	p := testPlayer(t, Config{
		Fullscreen:      true,
		VideoOutput:     "gpu,",
		AudioOutput:     "alsa,",
		LoopPlaylist:    "inf",
		SubtitleTrack:   "auto",
		HardwareDecode:  "auto",
		StopScreensaver: true,
	})
	fake := newFakeControl()

	require.NoError(t, p.configure(fake))

	assert.Equal(t, true, fake.lastSet("fullscreen"))
	assert.Equal(t, "gpu,", fake.lastSet("vo"))
	assert.Equal(t, "alsa,", fake.lastSet("ao"))
	assert.Equal(t, "inf", fake.lastSet("loop-playlist"))
	assert.Equal(t, "auto", fake.lastSet("sid"))
	assert.Equal(t, "auto", fake.lastSet("hwdec"))
	assert.Equal(t, true, fake.lastSet("stop-screensaver"))
}

func TestConfigureRoundTrip(t *testing.T) {
	p := testPlayer(t, Config{
		Fullscreen:     true,
		VideoOutput:    "gpu,",
		AudioOutput:    "alsa,",
		LoopPlaylist:   "inf",
		SubtitleTrack:  "auto",
		HardwareDecode: "auto",
	})
	fake := newFakeControl()

	require.NoError(t, p.configure(fake))

	for _, opt := range p.optionSet() {
		got, err := fake.GetProperty(opt.name)
		require.NoError(t, err)
		assert.Equal(t, opt.value, got, opt.name)
	}
}

func TestRegisterCallbacks(t *testing.T) {
	p := testPlayer(t, Config{ScreenshotPath: "capture.png"})
	out := &bytes.Buffer{}
	p.out = out
	fake := newFakeControl()

	require.NoError(t, p.registerCallbacks(fake))

	require.Contains(t, fake.keys, "q")
	require.Contains(t, fake.keys, "s")
	require.Contains(t, fake.observers, "time-pos")

	fake.keys["s"]()
	assert.Equal(t, []string{"capture.png"}, fake.screenshots)

	// nil means no media loaded; must not panic.
	fake.observers["time-pos"](nil)
	fake.observers["time-pos"](12.5)
	assert.Contains(t, out.String(), "Now playing at 12.50s")
}

// The q binding displaces the player's builtin quit, so the handler
// must both print the banner and end playback itself.
func TestQuitKeyStillQuits(t *testing.T) {
	p := testPlayer(t, Config{})
	out := &bytes.Buffer{}
	p.out = out
	fake := newFakeControl()

	require.NoError(t, p.registerCallbacks(fake))

	fake.keys["q"]()

	assert.Contains(t, out.String(), "THERE IS NO ESCAPE")
	assert.Equal(t, 1, fake.quits)
}

func TestStoppingClosesStreamAndSession(t *testing.T) {
	p := testPlayer(t, Config{})
	fake := newFakeControl()

	stream := &closeRecorder{}
	p.stream = stream
	p.session = fake

	require.NoError(t, p.stopping(nil))
	assert.Equal(t, 1, stream.closes)
	assert.Equal(t, 1, fake.closeCount)
}

func TestStoppingWithoutSession(t *testing.T) {
	p := testPlayer(t, Config{})

	require.NoError(t, p.stopping(errors.New("earlier failure")))
}

type closeRecorder struct {
	closes int
	err    error
}

func (c *closeRecorder) Read(p []byte) (int, error) { return 0, io.EOF }
func (c *closeRecorder) Close() error               { c.closes++; return c.err }

// staticResolver hands back a fixed playlist for any channel.
type staticResolver struct {
	playlist *hls.Playlist
}

func (s staticResolver) Resolve(_ context.Context, _ string) (*hls.Playlist, error) {
	return s.playlist, nil
}

// setupPlayer points the token and Helix endpoints at fakes and
// installs the given resolver.
func setupPlayer(t *testing.T, channel string, streamsBody string, r channelResolver) (*Player, *bytes.Buffer) {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"access_token":"tok123","expires_in":5000,"token_type":"bearer"}`))
	}))
	t.Cleanup(tokenSrv.Close)

	helixSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(streamsBody))
	}))
	t.Cleanup(helixSrv.Close)

	p := testPlayer(t, Config{
		Channel:      channel,
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     tokenSrv.URL,
	})
	out := &bytes.Buffer{}
	p.out = out
	p.helixURL = helixSrv.URL
	p.resolver = r

	return p, out
}

func TestStartingOfflineChannel(t *testing.T) {
	resolver := staticResolver{playlist: &hls.Playlist{Channel: "sleepystreamer"}}
	p, out := setupPlayer(t, "sleepystreamer", `{"data":[]}`, resolver)

	err := p.starting(context.Background())
	require.ErrorIs(t, err, modules.ErrStopProcess)

	assert.Contains(t, out.String(), "sleepystreamer is not live")
	assert.Nil(t, p.stream, "playback must not start for an offline channel")
}

func TestStartingLiveChannel(t *testing.T) {
	// The variant points at a server with no playlist, which reads as
	// an immediately ended broadcast; opening still succeeds.
	endedSrv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	t.Cleanup(endedSrv.Close)

	resolver := staticResolver{playlist: &hls.Playlist{
		Channel:  "sovietwomble",
		Variants: []hls.Variant{{Name: "1080p60 (source)", URL: endedSrv.URL + "/chunked.m3u8"}},
	}}
	p, out := setupPlayer(t, "sovietwomble",
		`{"data":[{"user_login":"sovietwomble","game_name":"DayZ","title":"zzz"}]}`, resolver)

	require.NoError(t, p.starting(context.Background()))
	t.Cleanup(func() { p.stream.Close() })

	require.NotNil(t, p.stream)
	assert.Contains(t, out.String(), "sovietwomble - [DayZ] : zzz")
}

func TestStoppingCollectsErrors(t *testing.T) {
	p := testPlayer(t, Config{})

	p.stream = &closeRecorder{err: errors.New("stream close failed")}
	p.session = newFakeControl()

	err := p.stopping(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream close failed")
}
