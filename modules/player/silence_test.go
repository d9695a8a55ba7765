package player

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastofthedinosaurs/helixplay/pkg/mpv"
)

func TestParseSilenceEnd(t *testing.T) {
	cases := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{"plain", "silence_end: 12.50 | silence_duration: 11.20", 12.5, true},
		{"prefixed", "[ffmpeg/audio] silencedetect: silence_end: 732.729 | silence_duration: 731.707", 732.729, true},
		{"integer seconds", "silence_end: 7", 7, true},
		{"unrelated line", "audio: -0.2 video: 0.0", 0, false},
		{"silence start only", "silence_start: 1.02", 0, false},
		{"missing value", "silence_end:", 0, false},
		{"garbage value", "silence_end: banana", 0, false},
		{"empty", "", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseSilenceEnd(tc.text)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func silencePlayer(t *testing.T) *Player {
	t.Helper()
	p, err := New(Config{}, *slog.Default())
	require.NoError(t, err)
	return p
}

func TestSkipSilenceSeeksToDetectedEnd(t *testing.T) {
	p := silencePlayer(t)
	fake := newFakeControl()

	go func() {
		fake.logCh <- mpv.LogMessage{Level: "v", Text: "audio: -0.2 video: 0.0"}
		fake.logCh <- mpv.LogMessage{Level: "v", Text: "silence_end: banana"}
		fake.logCh <- mpv.LogMessage{Level: "v", Text: "silence_end: 732.73 | silence_duration: 731.70"}
	}()

	p.skipSilence(context.Background(), fake)

	require.Len(t, fake.seeks, 1)
	assert.Equal(t, 732.73, fake.seeks[0])

	// Speed and filter restored after the one skip.
	assert.Equal(t, normalSpeed, fake.lastSet("speed"))
	assert.Equal(t, "", fake.lastSet("af"))
	assert.Equal(t, "v", fake.logLevel)
}

func TestSkipSilenceStreamEndsWithoutMatch(t *testing.T) {
	p := silencePlayer(t)
	fake := newFakeControl()

	go func() {
		fake.logCh <- mpv.LogMessage{Level: "v", Text: "no silence here"}
		close(fake.logCh)
	}()

	p.skipSilence(context.Background(), fake)

	assert.Empty(t, fake.seeks)
	assert.Equal(t, normalSpeed, fake.lastSet("speed"))
	assert.Equal(t, "", fake.lastSet("af"))
}

func TestSkipSilenceCanceled(t *testing.T) {
	p := silencePlayer(t)
	fake := newFakeControl()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.skipSilence(ctx, fake)

	assert.Empty(t, fake.seeks)
	assert.Equal(t, normalSpeed, fake.lastSet("speed"))
	assert.Equal(t, "", fake.lastSet("af"))
}
