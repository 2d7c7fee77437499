package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"couple-cards/internal/hub"

	"github.com/gorilla/websocket"
)

const (
	stateIdle = iota
	stateConnected
	stateReconnecting
	stateClosed
)

// frame is the wire format of the remote game hub: invokes carry a
// correlation id that the matching result echoes back.
type frame struct {
	Type    string          `json:"type"`
	ID      uint64          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type invokeResult struct {
	payload json.RawMessage
	err     error
}

// Remote is the bridge over the persistent hub connection. On a dropped
// connection it reconnects with backoff, rejects invokes with
// ErrReconnecting in the meantime, and emits a reconnected event once the
// link is back so dependents re-fetch authoritative state.
type Remote struct {
	url        string
	dialer     *websocket.Dialer
	dispatcher *dispatcher
	baseDelay  time.Duration
	maxDelay   time.Duration

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	state   int
	nextID  uint64
	pending map[uint64]chan invokeResult
	closed  chan struct{}
	wg      sync.WaitGroup
}

func NewRemote(hubURL string, baseDelay, maxDelay time.Duration) *Remote {
	return &Remote{
		url:        hubURL,
		dialer:     websocket.DefaultDialer,
		dispatcher: newDispatcher(),
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		pending:    make(map[uint64]chan invokeResult),
		closed:     make(chan struct{}),
	}
}

// HubWebsocketURL derives the hub websocket endpoint from the backend's
// base URL.
func HubWebsocketURL(base string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("unsupported hub scheme: " + parsed.Scheme)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/hub"
	return parsed.String(), nil
}

func (r *Remote) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateClosed {
		return hub.ErrNotConnected
	}
	if r.state == stateConnected {
		return nil
	}
	conn, resp, err := r.dialer.DialContext(ctx, r.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return err
	}
	r.conn = conn
	r.state = stateConnected
	r.wg.Add(1)
	go r.readLoop(conn)
	return nil
}

func (r *Remote) Disconnect() {
	r.mu.Lock()
	if r.state == stateClosed {
		r.mu.Unlock()
		return
	}
	r.state = stateClosed
	close(r.closed)
	conn := r.conn
	r.conn = nil
	r.failPendingLocked(hub.ErrNotConnected)
	r.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	r.wg.Wait()
}

func (r *Remote) Invoke(ctx context.Context, procedure string, payload any) (json.RawMessage, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	switch r.state {
	case stateIdle, stateClosed:
		r.mu.Unlock()
		return nil, hub.ErrNotConnected
	case stateReconnecting:
		r.mu.Unlock()
		return nil, hub.ErrReconnecting
	}
	r.nextID++
	id := r.nextID
	reply := make(chan invokeResult, 1)
	r.pending[id] = reply
	conn := r.conn
	r.mu.Unlock()

	r.writeMu.Lock()
	err = conn.WriteJSON(frame{Type: "invoke", ID: id, Name: procedure, Payload: raw})
	r.writeMu.Unlock()
	if err != nil {
		r.dropPending(id)
		return nil, err
	}

	select {
	case result := <-reply:
		return result.payload, result.err
	case <-ctx.Done():
		r.dropPending(id)
		return nil, ctx.Err()
	case <-r.closed:
		return nil, hub.ErrNotConnected
	}
}

func (r *Remote) readLoop(conn *websocket.Conn) {
	defer r.wg.Done()
	for {
		var incoming frame
		if err := conn.ReadJSON(&incoming); err != nil {
			r.handleDrop(conn, err)
			return
		}
		switch incoming.Type {
		case "result":
			r.resolve(incoming)
		case "event":
			r.dispatcher.dispatch(incoming.Name, incoming.Payload)
		default:
			log.Printf("bridge: ignoring hub frame type=%q", incoming.Type)
		}
	}
}

func (r *Remote) resolve(incoming frame) {
	r.mu.Lock()
	reply, ok := r.pending[incoming.ID]
	delete(r.pending, incoming.ID)
	r.mu.Unlock()
	if !ok {
		return
	}
	if incoming.Error != "" {
		reply <- invokeResult{err: errors.New(incoming.Error)}
		return
	}
	reply <- invokeResult{payload: incoming.Payload}
}

func (r *Remote) handleDrop(conn *websocket.Conn, cause error) {
	r.mu.Lock()
	if r.state == stateClosed || r.conn != conn {
		r.mu.Unlock()
		return
	}
	log.Printf("bridge: hub connection lost, reconnecting: %v", cause)
	r.state = stateReconnecting
	r.conn = nil
	r.failPendingLocked(hub.ErrReconnecting)
	r.wg.Add(1)
	r.mu.Unlock()
	_ = conn.Close()
	go r.reconnectLoop()
}

func (r *Remote) reconnectLoop() {
	defer r.wg.Done()
	delay := r.baseDelay
	for {
		select {
		case <-r.closed:
			return
		case <-time.After(delay):
		}
		conn, resp, err := r.dialer.Dial(r.url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			delay *= 2
			if delay > r.maxDelay {
				delay = r.maxDelay
			}
			continue
		}
		r.mu.Lock()
		if r.state == stateClosed {
			r.mu.Unlock()
			_ = conn.Close()
			return
		}
		r.conn = conn
		r.state = stateConnected
		r.wg.Add(1)
		r.mu.Unlock()
		go r.readLoop(conn)
		log.Printf("bridge: hub connection re-established")
		r.dispatcher.dispatch(hub.EventReconnected, nil)
		return
	}
}

func (r *Remote) failPendingLocked(cause error) {
	for id, reply := range r.pending {
		reply <- invokeResult{err: cause}
		delete(r.pending, id)
	}
}

func (r *Remote) dropPending(id uint64) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

func (r *Remote) On(event string, handler hub.Handler) hub.Subscription {
	return r.dispatcher.On(event, handler)
}

func (r *Remote) Off(event string, sub hub.Subscription) {
	r.dispatcher.Off(event, sub)
}

func (r *Remote) Emit(event string, payload any) {
	r.dispatcher.Emit(event, payload)
}
