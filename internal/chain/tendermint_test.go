package chain

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"transfers-client/pkg/errno"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeNode is a minimal tendermint websocket endpoint. After acking the
// subscribe request it forwards whatever is pushed on send.
type fakeNode struct {
	srv       *httptest.Server
	send      chan map[string]any
	drop      chan struct{}
	requests  chan rpcRequest
	ackError  bool
	closedByC chan struct{}
}

func newFakeNode(t *testing.T, ackError bool) *fakeNode {
	t.Helper()
	n := &fakeNode{
		send:      make(chan map[string]any, 8),
		drop:      make(chan struct{}),
		requests:  make(chan rpcRequest, 1),
		ackError:  ackError,
		closedByC: make(chan struct{}),
	}
	upgrader := websocket.Upgrader{}
	n.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		n.requests <- req

		if n.ackError {
			_ = conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "error": map[string]any{"code": -32603, "message": "bad query"}})
			return
		}
		_ = conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": map[string]any{}})

		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					close(n.closedByC)
					return
				}
			}
		}()

		for {
			select {
			case msg := <-n.send:
				msg["id"] = req.ID
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			case <-n.drop:
				return
			case <-n.closedByC:
				return
			}
		}
	}))
	t.Cleanup(n.srv.Close)
	return n
}

func eventMessage(events map[string][]string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"result": map[string]any{
			"query":  "q",
			"data":   map[string]any{"type": "tendermint/event/Tx"},
			"events": events,
		},
	}
}

func TestWebsocketEndpoint(t *testing.T) {
	cases := map[string]string{
		"http://localhost:26657":         "ws://localhost:26657/websocket",
		"https://rpc.example.com/":       "wss://rpc.example.com/websocket",
		"ws://localhost:26657/websocket": "ws://localhost:26657/websocket",
		"wss://rpc.example.com/sub/path": "wss://rpc.example.com/sub/path/websocket",
	}
	for in, want := range cases {
		got, err := websocketEndpoint(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := websocketEndpoint("ftp://x")
	assert.Error(t, err)
}

func TestTendermintSubscribe(t *testing.T) {
	node := newFakeNode(t, false)
	src, err := NewTendermintSource(node.srv.URL, zap.NewNop())
	require.NoError(t, err)

	stream, err := src.Subscribe(context.Background(), "tm.event='Tx'")
	require.NoError(t, err)
	defer stream.Close()

	req := <-node.requests
	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, "subscribe", req.Method)
	id, err := uuid.Parse(req.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
	assert.Equal(t, "tm.event='Tx'", req.Params["query"])

	node.send <- eventMessage(map[string][]string{"wasm-store_balance.address": {"wasm1me"}})
	node.send <- eventMessage(map[string][]string{"wasm-store_balance.address": {"wasm1you"}})

	for _, want := range []string{"wasm1me", "wasm1you"} {
		select {
		case ev := <-stream.Events():
			v, ok := ev.First("wasm-store_balance.address")
			assert.True(t, ok)
			assert.Equal(t, want, v)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestTendermintStreamDrop(t *testing.T) {
	node := newFakeNode(t, false)
	src, err := NewTendermintSource(node.srv.URL, zap.NewNop())
	require.NoError(t, err)

	stream, err := src.Subscribe(context.Background(), "q")
	require.NoError(t, err)

	close(node.drop)

	select {
	case _, ok := <-stream.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after drop")
	}
	assert.True(t, errors.Is(stream.Err(), errno.ErrSubscriptionClosed))
	assert.NoError(t, stream.Close())
}

func TestTendermintClose(t *testing.T) {
	node := newFakeNode(t, false)
	src, err := NewTendermintSource(node.srv.URL, zap.NewNop())
	require.NoError(t, err)

	stream, err := src.Subscribe(context.Background(), "q")
	require.NoError(t, err)

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	_, ok := <-stream.Events()
	assert.False(t, ok)
	assert.NoError(t, stream.Err())

	select {
	case <-node.closedByC:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not observe the close")
	}
}

func TestTendermintSubscribeRejected(t *testing.T) {
	node := newFakeNode(t, true)
	src, err := NewTendermintSource(node.srv.URL, zap.NewNop())
	require.NoError(t, err)

	_, err = src.Subscribe(context.Background(), "bad")
	assert.True(t, errors.Is(err, errno.ErrSubscriptionClosed))
	assert.Contains(t, err.Error(), "bad query")
}
