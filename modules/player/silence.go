package player

import (
	"context"
	"strconv"
	"strings"
)

const (
	// silenceFilter makes the decoder log a "silence_end" line whenever
	// a region of at least 1 second below -20dB ends.
	silenceFilter = "lavfi=[silencedetect=n=-20dB:d=1]"

	silenceSpeed = 100
	normalSpeed  = 1
)

// skipSilence fast-forwards to the end of the first detected silence
// region: attach the detection filter, run at high speed, wait for a
// single matching log line, and seek to the timestamp it reports. Best
// effort only; if no matching line arrives before the stream ends,
// playback simply continues from wherever it was. Speed and filter are
// restored on every path.
func (p *Player) skipSilence(ctx context.Context, session control) {
	if err := session.RequestLogMessages("v"); err != nil {
		p.logger.Error("silence skip unavailable", "err", err)
		return
	}
	if err := session.SetProperty("af", silenceFilter); err != nil {
		p.logger.Error("silence skip unavailable", "err", err)
		return
	}
	if err := session.SetProperty("speed", silenceSpeed); err != nil {
		session.SetProperty("af", "")
		p.logger.Error("silence skip unavailable", "err", err)
		return
	}

	defer func() {
		session.SetProperty("speed", normalSpeed)
		session.SetProperty("af", "")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-session.LogMessages():
			if !ok {
				// Stream ended with no silence detected.
				return
			}
			seconds, ok := parseSilenceEnd(msg.Text)
			if !ok {
				continue
			}
			if err := session.Seek(seconds); err != nil {
				p.logger.Error("silence skip seek failed", "err", err)
				return
			}
			metricSilenceSkips.Inc()
			p.logger.Info("skipped silence", "to", seconds)
			return
		}
	}
}

// parseSilenceEnd extracts the seconds value from a silencedetect log
// line such as "silence_end: 12.50 | silence_duration: 11.20".
// Malformed lines are no-match, never an error.
func parseSilenceEnd(text string) (float64, bool) {
	toks := strings.Fields(text)
	for i, tok := range toks {
		if tok != "silence_end:" || i+1 >= len(toks) {
			continue
		}
		seconds, err := strconv.ParseFloat(toks[i+1], 64)
		if err != nil {
			return 0, false
		}
		return seconds, true
	}
	return 0, false
}
