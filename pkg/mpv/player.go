package mpv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// DefaultBinary is the player executable looked up in PATH.
const DefaultBinary = "mpv"

// dialTimeout bounds how long we wait for mpv to create its IPC socket.
const dialTimeout = 5 * time.Second

// LogMessage is one player log line delivered over IPC.
type LogMessage struct {
	Prefix string
	Level  string
	Text   string
}

// Player is a handle on a running mpv process. A Player owns exactly
// one process for its lifetime; Close releases it and is safe to call
// more than once.
type Player struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	conn       net.Conn
	socketDir  string
	socketPath string

	mu      sync.Mutex
	nextReq int64
	pending map[int64]chan response

	obsMu     sync.Mutex
	nextObsID int
	observers map[int]func(any)
	keys      map[string]func()

	logCh chan LogMessage

	done     chan struct{} // closed when playback reaches end-file
	doneOnce sync.Once

	closed    chan struct{} // closed when the IPC connection is gone
	closeOnce sync.Once
	closeErr  error
}

type response struct {
	data json.RawMessage
	err  error
}

// ipcMessage is the union of everything mpv writes on the socket:
// command replies (request_id set) and asynchronous events.
type ipcMessage struct {
	Event     string          `json:"event"`
	RequestID *int64          `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Prefix    string          `json:"prefix"`
	Level     string          `json:"level"`
	Text      string          `json:"text"`
	Reason    string          `json:"reason"`
	Args      []string        `json:"args"`
}

// Start launches mpv in idle mode with an IPC socket and connects to
// it. Media is fed through Stdin once Play is called.
func Start(ctx context.Context, binary string, extraArgs ...string) (*Player, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("player binary %q not found in PATH: %w", binary, err)
	}

	dir, err := os.MkdirTemp("", "helixplay-mpv-")
	if err != nil {
		return nil, err
	}
	socket := filepath.Join(dir, "ipc.sock")

	args := append([]string{
		"--no-terminal",
		"--idle=yes",
		"--input-ipc-server=" + socket,
	}, extraArgs...)

	cmd := exec.Command(path, args...)
	cmd.Stdout = nil
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("start player: %w", err)
	}

	conn, err := dialSocket(ctx, socket)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("connect player ipc: %w", err)
	}

	p := &Player{
		cmd:        cmd,
		stdin:      stdin,
		conn:       conn,
		socketDir:  dir,
		socketPath: socket,
		pending:    make(map[int64]chan response),
		observers:  make(map[int]func(any)),
		keys:       make(map[string]func()),
		logCh:      make(chan LogMessage, 64),
		done:       make(chan struct{}),
		closed:     make(chan struct{}),
	}

	go p.readLoop()

	return p, nil
}

func dialSocket(ctx context.Context, socket string) (net.Conn, error) {
	deadline := time.Now().Add(dialTimeout)
	for {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Stdin is the byte sink the player decodes from once Play has been
// called. Closing it signals end of stream.
func (p *Player) Stdin() io.WriteCloser { return p.stdin }

// Play instructs the player to start consuming from its standard
// input.
func (p *Player) Play() error {
	_, err := p.command("loadfile", "fd://0")
	return err
}

// SetProperty sets a named player property or option.
func (p *Player) SetProperty(name string, value any) error {
	_, err := p.command("set_property", name, value)
	return err
}

// GetProperty reads back a named player property. A property with no
// current value (e.g. time-pos with nothing loaded) decodes as nil.
func (p *Player) GetProperty(name string) (any, error) {
	data, err := p.command("get_property", name)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Seek jumps playback to the given absolute position in seconds.
func (p *Player) Seek(seconds float64) error {
	return p.SetProperty("time-pos", seconds)
}

// ObserveProperty registers fn to run on every change of the named
// property. The value is nil when no media is loaded.
func (p *Player) ObserveProperty(name string, fn func(value any)) error {
	p.obsMu.Lock()
	p.nextObsID++
	id := p.nextObsID
	p.observers[id] = fn
	p.obsMu.Unlock()

	_, err := p.command("observe_property", id, name)
	return err
}

// BindKey routes presses of key to fn: the binding emits a
// script-message that comes back to us as a client-message event. The
// binding replaces the player's own for that key, so a handler that
// still wants the stock behavior issues the corresponding command
// itself (see Quit).
func (p *Player) BindKey(key string, fn func()) error {
	name := "helixplay-key-" + key

	p.obsMu.Lock()
	p.keys[name] = fn
	p.obsMu.Unlock()

	_, err := p.command("keybind", key, "script-message "+name)
	return err
}

// RequestLogMessages sets the minimum level of log lines delivered on
// LogMessages.
func (p *Player) RequestLogMessages(level string) error {
	_, err := p.command("request_log_messages", level)
	return err
}

// LogMessages is the stream of player log lines. The channel is closed
// when the IPC connection goes away. Slow consumers lose messages
// rather than stalling the event loop.
func (p *Player) LogMessages() <-chan LogMessage { return p.logCh }

// ScreenshotToFile captures the current video frame into path,
// overwriting any existing file.
func (p *Player) ScreenshotToFile(path string) error {
	_, err := p.command("screenshot-to-file", path, "video")
	return err
}

// Quit asks the player to exit. End of playback is then observed
// through Done; the process itself is reaped by Close.
func (p *Player) Quit() error {
	_, err := p.command("quit")
	return err
}

// Done is closed when playback reaches end of file, the player quits,
// or the IPC connection is lost.
func (p *Player) Done() <-chan struct{} { return p.done }

// Wait blocks until playback ends or ctx is canceled.
func (p *Player) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the player process. It asks mpv to quit, tears down
// the IPC connection and reaps the process. Safe to call multiple
// times; the process is released exactly once.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		// Best effort: the process may already be gone.
		p.command("quit")

		p.stdin.Close()
		p.conn.Close()

		done := make(chan struct{})
		go func() {
			p.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			p.cmd.Process.Kill()
			<-done
		}

		p.closeErr = os.RemoveAll(p.socketDir)
		p.signalDone()
	})
	return p.closeErr
}

func (p *Player) signalDone() {
	p.doneOnce.Do(func() { close(p.done) })
}
