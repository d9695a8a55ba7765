// Package mpv owns a single mpv process and its JSON IPC control
// channel.
//
// The process is started with --input-ipc-server and reads media from a
// pipe on its standard input; control flows over the unix socket as
// newline-delimited JSON commands and events. The package exposes the
// small surface playback control needs: property get/set, property
// observers, key bindings, log-message subscription, and a blocking
// wait for end of playback.
package mpv
