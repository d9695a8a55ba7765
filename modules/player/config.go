package player

import (
	"flag"
	"fmt"
	"os"

	"github.com/zachfi/zkit/pkg/util"
)

const (
	defaultQuality   = "best"
	defaultBlockSize = 1024 * 1024 // 1 MiB reads from the stream handle

	defaultScreenshotPath = "screenshot.png"
)

type Config struct {
	Channel      string `yaml:"channel,omitempty"`
	Quality      string `yaml:"quality,omitempty"`
	ClientID     string `yaml:"client-id,omitempty"`
	ClientSecret string `yaml:"client-secret,omitempty"`
	TokenURL     string `yaml:"token-url,omitempty"`

	PlayerBinary    string `yaml:"player-binary,omitempty"`
	Fullscreen      bool   `yaml:"fullscreen,omitempty"`
	VideoOutput     string `yaml:"video-output,omitempty"`     // priority list, trailing comma keeps mpv fallback
	AudioOutput     string `yaml:"audio-output,omitempty"`     // priority list, trailing comma keeps mpv fallback
	LoopPlaylist    string `yaml:"loop-playlist,omitempty"`
	SubtitleTrack   string `yaml:"subtitle-track,omitempty"`
	HardwareDecode  string `yaml:"hardware-decode,omitempty"`
	StopScreensaver bool   `yaml:"stop-screensaver,omitempty"`

	SkipSilence    bool   `yaml:"skip-silence,omitempty"`
	ScreenshotPath string `yaml:"screenshot-path,omitempty"`
	BlockSize      int    `yaml:"block-size,omitempty"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	// Secrets and the channel default from the environment so they can
	// stay out of config files and argv.
	f.StringVar(&cfg.Channel, util.PrefixConfig(prefix, "channel"), os.Getenv("STREAMER"), "The channel to play")
	f.StringVar(&cfg.Quality, util.PrefixConfig(prefix, "quality"), defaultQuality, "Stream quality label (best, worst, audio, or a named variant)")
	f.StringVar(&cfg.ClientID, util.PrefixConfig(prefix, "client-id"), os.Getenv("CLIENT_ID"), "Twitch application client ID")
	f.StringVar(&cfg.ClientSecret, util.PrefixConfig(prefix, "client-secret"), os.Getenv("CLIENT_SECRET"), "Twitch application client secret")
	f.StringVar(&cfg.TokenURL, util.PrefixConfig(prefix, "token-url"), os.Getenv("OAUTH_URL"), "OAuth token endpoint override")

	f.StringVar(&cfg.PlayerBinary, util.PrefixConfig(prefix, "player-binary"), "mpv", "The media player executable")
	f.BoolVar(&cfg.Fullscreen, util.PrefixConfig(prefix, "fullscreen"), false, "Start the player in fullscreen")
	f.StringVar(&cfg.VideoOutput, util.PrefixConfig(prefix, "video-output"), "gpu,", "Video output driver priority list")
	f.StringVar(&cfg.AudioOutput, util.PrefixConfig(prefix, "audio-output"), "alsa,", "Audio output driver priority list")
	f.StringVar(&cfg.LoopPlaylist, util.PrefixConfig(prefix, "loop-playlist"), "inf", "Playlist loop mode")
	f.StringVar(&cfg.SubtitleTrack, util.PrefixConfig(prefix, "subtitle-track"), "auto", "Subtitle track selection")
	f.StringVar(&cfg.HardwareDecode, util.PrefixConfig(prefix, "hardware-decode"), "auto", "Hardware decoding mode")
	f.BoolVar(&cfg.StopScreensaver, util.PrefixConfig(prefix, "stop-screensaver"), true, "Inhibit the screensaver while playing")

	f.BoolVar(&cfg.SkipSilence, util.PrefixConfig(prefix, "skip-silence"), false, "Fast-forward through a leading muted segment")
	f.StringVar(&cfg.ScreenshotPath, util.PrefixConfig(prefix, "screenshot-path"), defaultScreenshotPath, "Where the screenshot key writes its capture")
	f.IntVar(&cfg.BlockSize, util.PrefixConfig(prefix, "block-size"), defaultBlockSize, "Bytes read from the stream per block handed to the player")
}

// Validate catches missing required values at startup so they do not
// surface later as confusing API errors.
func (cfg *Config) Validate() error {
	if cfg.Channel == "" {
		return fmt.Errorf("no channel configured: set player.channel or the STREAMER environment variable")
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("no client ID configured: set player.client-id or the CLIENT_ID environment variable")
	}
	if cfg.ClientSecret == "" {
		return fmt.Errorf("no client secret configured: set player.client-secret or the CLIENT_SECRET environment variable")
	}
	return nil
}
