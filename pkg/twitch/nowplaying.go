package twitch

import "fmt"

// RenderNowPlaying formats a one-line description of a channel's live
// state from a /streams response. The function is total: any shape
// other than exactly one stream entry renders the offline message, and
// optional fields like started_at are never required.
func RenderNowPlaying(channel string, resp *StreamsResponse) string {
	if resp == nil || len(resp.Data) != 1 {
		return fmt.Sprintf("%s is not live", channel)
	}
	s := resp.Data[0]
	return fmt.Sprintf("%s - [%s] : %s", channel, s.GameName, s.Title)
}
