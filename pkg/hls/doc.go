// Package hls resolves a Twitch channel into quality-labeled openable
// byte streams.
//
// Resolution fetches a playback access token from the GraphQL endpoint,
// asks the usher API for the channel's HLS master playlist, and decodes
// it into quality variants. An opened variant follows the live media
// playlist, fetching segments in order and exposing the result as a
// single io.ReadCloser.
package hls
