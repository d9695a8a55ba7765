package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lastofthedinosaurs/helixplay/pkg/hls"
	"github.com/lastofthedinosaurs/helixplay/pkg/mpv"
	"github.com/lastofthedinosaurs/helixplay/pkg/twitch"
)

var module = "player"

var (
	metricBlocksDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "helixplay",
		Name:      "player_blocks_delivered_total",
		Help:      "Stream blocks handed to the media player.",
	})
	metricBytesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "helixplay",
		Name:      "player_bytes_delivered_total",
		Help:      "Stream bytes handed to the media player.",
	})
	metricSilenceSkips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "helixplay",
		Name:      "player_silence_skips_total",
		Help:      "Silence regions skipped over.",
	})
)

// control is the player surface the controller drives. *mpv.Player
// implements it; tests substitute a fake.
type control interface {
	Play() error
	Quit() error
	SetProperty(name string, value any) error
	GetProperty(name string) (any, error)
	Seek(seconds float64) error
	ObserveProperty(name string, fn func(value any)) error
	BindKey(key string, fn func()) error
	RequestLogMessages(level string) error
	LogMessages() <-chan mpv.LogMessage
	ScreenshotToFile(path string) error
	Stdin() io.WriteCloser
	Wait(ctx context.Context) error
	Close() error
}

// channelResolver is the slice of pkg/hls the controller needs; tests
// substitute a fake.
type channelResolver interface {
	Resolve(ctx context.Context, channel string) (*hls.Playlist, error)
}

// Player resolves a channel to a byte stream and drives a media player
// process through one playback session.
type Player struct {
	services.Service
	cfg    *Config
	logger *slog.Logger
	out    io.Writer

	httpClient *http.Client
	resolver   channelResolver
	helixURL   string
	session    control
	stream     io.ReadCloser
}

// New creates and returns a new Player service.
func New(cfg Config, logger slog.Logger) (*Player, error) {
	if cfg.Quality == "" {
		cfg.Quality = defaultQuality
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = defaultBlockSize
	}

	p := &Player{
		cfg:        &cfg,
		logger:     logger.With("module", module),
		out:        os.Stdout,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		resolver:   hls.NewResolver(),
	}

	p.Service = services.NewBasicService(p.starting, p.running, p.stopping)

	return p, nil
}

// starting performs all setup that must succeed before playback: token
// exchange, the now-playing query, and stream resolution. Every failure
// here is fatal to the run, except an absent quality variant, which
// means the channel is offline and stops the process cleanly.
func (p *Player) starting(ctx context.Context) error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}

	creds := twitch.Credentials{ClientID: p.cfg.ClientID, ClientSecret: p.cfg.ClientSecret}
	token, err := twitch.ObtainToken(ctx, p.httpClient, p.cfg.TokenURL, creds)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}

	client := twitch.NewClient(p.cfg.ClientID, token)
	if p.helixURL != "" {
		client.BaseURL = p.helixURL
	}
	streams, err := client.Streams(ctx, p.cfg.Channel)
	if err != nil {
		return fmt.Errorf("stream query: %w", err)
	}
	fmt.Fprintln(p.out, twitch.RenderNowPlaying(p.cfg.Channel, streams))

	p.logger.Info("resolving channel", "url", twitch.ChannelURL(p.cfg.Channel))
	playlist, err := p.resolver.Resolve(ctx, p.cfg.Channel)
	if err != nil {
		return fmt.Errorf("resolve channel: %w", err)
	}

	stream, err := playlist.Open(ctx, p.cfg.Quality)
	var qualityErr *hls.QualityNotFoundError
	if errors.As(err, &qualityErr) {
		fmt.Fprintf(p.out, "%s is not live\n", p.cfg.Channel)
		return modules.ErrStopProcess
	}
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}

	p.stream = stream
	return nil
}

func (p *Player) running(ctx context.Context) error {
	session, err := mpv.Start(ctx, p.cfg.PlayerBinary)
	if err != nil {
		return err
	}
	p.session = session

	if err := p.configure(session); err != nil {
		return fmt.Errorf("configure player: %w", err)
	}
	if err := p.registerCallbacks(session); err != nil {
		return fmt.Errorf("register callbacks: %w", err)
	}

	// The producer must not block callback registration; it feeds the
	// player for as long as the stream handle yields bytes.
	go func() {
		blocks, bytes, err := produce(p.stream, session.Stdin(), p.cfg.BlockSize)
		if err != nil {
			p.logger.Error("producer stopped", "err", err, "blocks", blocks, "bytes", bytes)
			return
		}
		p.logger.Info("stream exhausted", "blocks", blocks, "bytes", bytes)
	}()

	if err := session.Play(); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	if p.cfg.SkipSilence {
		p.skipSilence(ctx, session)
	}

	if err := session.Wait(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// optionSet is the player configuration applied before playback.
func (p *Player) optionSet() []struct {
	name  string
	value any
} {
	return []struct {
		name  string
		value any
	}{
		{"fullscreen", p.cfg.Fullscreen},
		{"loop-playlist", p.cfg.LoopPlaylist},
		{"sid", p.cfg.SubtitleTrack},
		{"hwdec", p.cfg.HardwareDecode},
		{"stop-screensaver", p.cfg.StopScreensaver},
		{"vo", p.cfg.VideoOutput},
		{"ao", p.cfg.AudioOutput},
	}
}

func (p *Player) configure(session control) error {
	for _, opt := range p.optionSet() {
		if err := session.SetProperty(opt.name, opt.value); err != nil {
			return fmt.Errorf("set %s: %w", opt.name, err)
		}
	}
	return nil
}

func (p *Player) registerCallbacks(session control) error {
	// Binding q displaces the player's builtin quit, so the handler
	// says goodbye and then quits on its behalf.
	if err := session.BindKey("q", func() {
		fmt.Fprintln(p.out, "THERE IS NO ESCAPE")
		if err := session.Quit(); err != nil {
			p.logger.Error("quit failed", "err", err)
		}
	}); err != nil {
		return err
	}

	if err := session.BindKey("s", func() {
		if err := session.ScreenshotToFile(p.cfg.ScreenshotPath); err != nil {
			p.logger.Error("screenshot failed", "err", err, "path", p.cfg.ScreenshotPath)
		}
	}); err != nil {
		return err
	}

	return session.ObserveProperty("time-pos", func(value any) {
		// nil means no media loaded yet.
		if seconds, ok := value.(float64); ok {
			fmt.Fprintf(p.out, "Now playing at %.2fs\n", seconds)
		}
	})
}

func (p *Player) stopping(_ error) error {
	p.logger.Info("stopping")

	var errs []error
	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	// Close releases the process exactly once even when the quit key
	// already ended playback.
	if p.session != nil {
		if err := p.session.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
