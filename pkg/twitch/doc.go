// Package twitch is a small client for the Twitch Helix API.
//
// It covers the two concerns playback setup needs:
//   - exchanging application credentials for an app access token
//   - authenticated GET queries against a fixed set of Helix resources
//     (streams, users, follows, games, blocks)
//
// The token is fetched once and reused for the lifetime of the run;
// there is no refresh handling.
package twitch
