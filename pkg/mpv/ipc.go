package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"time"
)

// ErrConnClosed is returned for commands issued after the IPC
// connection has gone away.
var ErrConnClosed = errors.New("mpv: ipc connection closed")

// commandTimeout bounds the wait for a single command reply.
const commandTimeout = 5 * time.Second

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// command sends one IPC command and waits for its reply.
func (p *Player) command(args ...any) (json.RawMessage, error) {
	select {
	case <-p.closed:
		return nil, ErrConnClosed
	default:
	}

	ch := make(chan response, 1)

	p.mu.Lock()
	p.nextReq++
	id := p.nextReq
	p.pending[id] = ch

	payload, err := json.Marshal(ipcRequest{Command: args, RequestID: id})
	if err != nil {
		delete(p.pending, id)
		p.mu.Unlock()
		return nil, err
	}
	_, err = p.conn.Write(append(payload, '\n'))
	if err != nil {
		delete(p.pending, id)
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()

	select {
	case res := <-ch:
		return res.data, res.err
	case <-p.closed:
		return nil, ErrConnClosed
	case <-time.After(commandTimeout):
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
		return nil, errors.New("mpv: command timed out")
	}
}

// readLoop dispatches replies and events from the socket until it
// closes. Lines that do not parse are ignored.
func (p *Player) readLoop() {
	defer p.teardownConn()

	scanner := bufio.NewScanner(p.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}

		if msg.RequestID != nil {
			p.dispatchReply(&msg)
			continue
		}

		switch msg.Event {
		case "property-change":
			p.dispatchPropertyChange(&msg)
		case "client-message":
			p.dispatchClientMessage(&msg)
		case "log-message":
			// Drop rather than stall the loop when the consumer lags.
			select {
			case p.logCh <- LogMessage{Prefix: msg.Prefix, Level: msg.Level, Text: msg.Text}:
			default:
			}
		case "end-file":
			p.signalDone()
		}
	}
}

func (p *Player) dispatchReply(msg *ipcMessage) {
	p.mu.Lock()
	ch, ok := p.pending[*msg.RequestID]
	delete(p.pending, *msg.RequestID)
	p.mu.Unlock()
	if !ok {
		return
	}

	res := response{data: msg.Data}
	if msg.Error != "" && msg.Error != "success" {
		res.err = errors.New("mpv: " + msg.Error)
	}
	ch <- res
}

func (p *Player) dispatchPropertyChange(msg *ipcMessage) {
	p.obsMu.Lock()
	fn := p.observers[msg.ID]
	p.obsMu.Unlock()
	if fn == nil {
		return
	}

	var value any
	if len(msg.Data) > 0 {
		// A failed decode leaves value nil, same as no media loaded.
		json.Unmarshal(msg.Data, &value)
	}
	fn(value)
}

func (p *Player) dispatchClientMessage(msg *ipcMessage) {
	if len(msg.Args) == 0 {
		return
	}
	p.obsMu.Lock()
	fn := p.keys[msg.Args[0]]
	p.obsMu.Unlock()
	if fn != nil {
		fn()
	}
}

// teardownConn fails outstanding commands and closes the event
// channels once the socket is gone.
func (p *Player) teardownConn() {
	close(p.closed)

	p.mu.Lock()
	for id, ch := range p.pending {
		delete(p.pending, id)
		ch <- response{err: ErrConnClosed}
	}
	p.mu.Unlock()

	close(p.logCh)
	p.signalDone()
}
