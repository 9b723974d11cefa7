package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"transfers-client/pkg/errno"
	"transfers-client/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	ackTimeout   = 10 * time.Second
	writeTimeout = 5 * time.Second
	eventBuffer  = 16
)

// TendermintSource subscribes to events over the tendermint RPC websocket.
// Every Subscribe opens its own connection, closed together with the stream.
type TendermintSource struct {
	endpoint string
	dialer   *websocket.Dialer
	log      *zap.Logger
}

// NewTendermintSource accepts the RPC url in http(s) or ws(s) form.
func NewTendermintSource(rpcURL string, log *zap.Logger) (*TendermintSource, error) {
	endpoint, err := websocketEndpoint(rpcURL)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Named("tendermint-ws")
	}
	return &TendermintSource{
		endpoint: endpoint,
		dialer:   &websocket.Dialer{HandshakeTimeout: ackTimeout},
		log:      log,
	}, nil
}

func websocketEndpoint(rpcURL string) (string, error) {
	u, err := url.Parse(rpcURL)
	if err != nil {
		return "", fmt.Errorf("parse rpc url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported rpc url scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/websocket") {
		u.Path = strings.TrimRight(u.Path, "/") + "/websocket"
	}
	return u.String(), nil
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	ID      string         `json:"id"`
	Params  map[string]any `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *rpcError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id"`
	Result struct {
		Query  string              `json:"query"`
		Events map[string][]string `json:"events"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// Subscribe dials, sends the subscribe request and waits for the node's
// acknowledgement before returning.
func (s *TendermintSource) Subscribe(ctx context.Context, query string) (EventStream, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, errno.Wrap(errno.ErrSubscriptionClosed, fmt.Errorf("dial %s: %w", s.endpoint, err))
	}

	id := uuid.NewString()

	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  "subscribe",
		ID:      id,
		Params:  map[string]any{"query": query},
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, errno.Wrap(errno.ErrSubscriptionClosed, fmt.Errorf("send subscribe: %w", err))
	}

	deadline := time.Now().Add(ackTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	var ack rpcResponse
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, errno.Wrap(errno.ErrSubscriptionClosed, fmt.Errorf("await subscribe ack: %w", err))
	}
	if ack.Error != nil {
		conn.Close()
		return nil, errno.Wrap(errno.ErrSubscriptionClosed, ack.Error)
	}
	_ = conn.SetReadDeadline(time.Time{})

	st := &wsStream{
		conn:    conn,
		query:   query,
		events:  make(chan Event, eventBuffer),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		log:     s.log.With(zap.String("query", query)),
	}
	go st.readLoop()

	s.log.Debug("subscribed", zap.String("query", query), zap.String("id", id))
	return st, nil
}

type wsStream struct {
	conn  *websocket.Conn
	query string

	events  chan Event
	closing chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error

	log *zap.Logger
}

func (s *wsStream) Events() <-chan Event {
	return s.events
}

func (s *wsStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close is idempotent and returns once the read loop has exited.
func (s *wsStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

func (s *wsStream) fail(err error) {
	select {
	case <-s.closing:
		return
	default:
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *wsStream) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		var resp rpcResponse
		if err := s.conn.ReadJSON(&resp); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				s.log.Warn("skipping malformed message", zap.Error(err))
				continue
			}
			s.fail(errno.Wrap(errno.ErrSubscriptionClosed, err))
			return
		}
		if resp.Error != nil {
			s.fail(errno.Wrap(errno.ErrSubscriptionClosed, resp.Error))
			return
		}
		if len(resp.Result.Events) == 0 {
			continue
		}

		ev := Event{Query: resp.Result.Query, Attributes: resp.Result.Events}
		select {
		case s.events <- ev:
		case <-s.closing:
			return
		}
	}
}
