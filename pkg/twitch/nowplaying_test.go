package twitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderNowPlaying(t *testing.T) {
	cases := []struct {
		name    string
		channel string
		resp    *StreamsResponse
		want    string
	}{
		{
			name:    "live",
			channel: "sovietwomble",
			resp: &StreamsResponse{Data: []Stream{{
				GameName: "DayZ",
				Title:    "zzzzz",
			}}},
			want: "sovietwomble - [DayZ] : zzzzz",
		},
		{
			name:    "offline",
			channel: "sovietwomble",
			resp:    &StreamsResponse{},
			want:    "sovietwomble is not live",
		},
		{
			name:    "nil response",
			channel: "sovietwomble",
			resp:    nil,
			want:    "sovietwomble is not live",
		},
		{
			name:    "missing optional fields",
			channel: "quietstream",
			resp:    &StreamsResponse{Data: []Stream{{}}},
			want:    "quietstream - [] : ",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RenderNowPlaying(tc.channel, tc.resp))
		})
	}
}
