package wamp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// procedure handles one CALL on the test router.
type procedure func(c *routerConn, requestID uint64, args []any)

type routerConn struct {
	t    *testing.T
	conn *websocket.Conn
	ser  Serializer
	mu   sync.Mutex
}

func (c *routerConn) send(msg ...any) {
	data, err := c.ser.Marshal(msg)
	if err != nil {
		c.t.Errorf("router marshal: %v", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(c.ser.FrameType(), data)
}

func (c *routerConn) read() ([]any, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return c.ser.Unmarshal(data)
}

// testRouter is a minimal in-process WAMP dealer.
type testRouter struct {
	t      *testing.T
	ticket string
	procs  map[string]procedure

	mu       sync.Mutex
	hello    []any
	goodbyes []string
}

func newTestRouter(t *testing.T, procs map[string]procedure) *testRouter {
	return &testRouter{t: t, procs: procs}
}

func (r *testRouter) serve() *httptest.Server {
	upgrader := websocket.Upgrader{
		Subprotocols: []string{JSON.Subprotocol(), Msgpack.Subprotocol()},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ser, err := SerializerByName(conn.Subprotocol())
		if err != nil {
			return
		}
		rc := &routerConn{t: r.t, conn: conn, ser: ser}
		r.handle(rc)
	}))
	r.t.Cleanup(srv.Close)
	return srv
}

func (r *testRouter) handle(rc *routerConn) {
	hello, err := rc.read()
	if err != nil {
		return
	}
	r.mu.Lock()
	r.hello = hello
	r.mu.Unlock()

	if r.ticket != "" {
		rc.send(msgChallenge, "ticket", map[string]any{})
		auth, err := rc.read()
		if err != nil {
			return
		}
		if asString(element(auth, 1)) != r.ticket {
			rc.send(msgAbort, map[string]any{"message": "bad ticket"}, "wamp.error.not_authorized")
			return
		}
	}
	rc.send(msgWelcome, 4242, map[string]any{"roles": map[string]any{"dealer": map[string]any{}}})

	for {
		msg, err := rc.read()
		if err != nil {
			return
		}
		code, _ := toID(element(msg, 0))
		switch code {
		case msgCall:
			reqID, _ := toID(element(msg, 1))
			name := asString(element(msg, 3))
			proc, ok := r.procs[name]
			if !ok {
				rc.send(msgError, msgCall, reqID, map[string]any{}, "wamp.error.no_such_procedure")
				continue
			}
			go proc(rc, reqID, asList(element(msg, 4)))
		case msgGoodbye:
			r.mu.Lock()
			r.goodbyes = append(r.goodbyes, asString(element(msg, 2)))
			r.mu.Unlock()
			return
		}
	}
}

func (r *testRouter) goodbyeReasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.goodbyes...)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func echo(c *routerConn, id uint64, args []any) {
	c.send(msgResult, id, map[string]any{}, args)
}

func TestSessionCall(t *testing.T) {
	for _, ser := range []Serializer{JSON, Msgpack} {
		t.Run(ser.Subprotocol(), func(t *testing.T) {
			router := newTestRouter(t, map[string]procedure{"test.echo": echo})
			srv := router.serve()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			session, err := Dial(ctx, wsURL(srv), &Config{Serializer: ser})
			require.NoError(t, err)
			defer session.Close()

			assert.Equal(t, uint64(4242), session.ID())
			assert.True(t, session.IsOpen())

			result, err := session.Call(ctx, "test.echo", []any{"hello"}, nil).Wait(ctx)
			require.NoError(t, err)
			assert.Equal(t, "hello", result.Value())
			assert.False(t, result.IsProgress())
		})
	}
}

func TestSessionHello(t *testing.T) {
	router := newTestRouter(t, nil)
	srv := router.serve()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := Dial(ctx, wsURL(srv), &Config{AuthID: "tenant"})
	require.NoError(t, err)
	defer session.Close()

	router.mu.Lock()
	hello := router.hello
	router.mu.Unlock()

	require.Len(t, hello, 3)
	assert.Equal(t, DefaultRealm, hello[1])
	details := asDict(hello[2])
	assert.Equal(t, "tenant", details["authid"])
	caller := asDict(asDict(details["roles"])["caller"])
	assert.Equal(t, true, asDict(caller["features"])["progressive_call_results"])
}

func TestSessionCallProgress(t *testing.T) {
	router := newTestRouter(t, map[string]procedure{
		"test.count": func(c *routerConn, id uint64, args []any) {
			c.send(msgResult, id, map[string]any{"progress": true}, []any{1})
			c.send(msgResult, id, map[string]any{"progress": true}, []any{2})
			c.send(msgResult, id, map[string]any{}, []any{"done"})
		},
	})
	srv := router.serve()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer session.Close()

	call := session.Call(ctx, "test.count", nil, nil)

	var progress []any
	for r := range call.Progress() {
		assert.True(t, r.IsProgress())
		progress = append(progress, r.Value())
	}
	assert.Equal(t, []any{float64(1), float64(2)}, progress)

	result, err := call.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "done", result.Value())
}

func TestSessionCallError(t *testing.T) {
	router := newTestRouter(t, map[string]procedure{
		"test.fail": func(c *routerConn, id uint64, args []any) {
			c.send(msgError, msgCall, id, map[string]any{}, "test.error.failed", []any{"boom"}, map[string]any{"code": 7})
		},
	})
	srv := router.serve()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Call(ctx, "test.fail", nil, nil).Wait(ctx)
	require.Error(t, err)

	werr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "test.error.failed", werr.URI)
	assert.Equal(t, []any{"boom"}, werr.Args)
	assert.Equal(t, float64(7), werr.Kwargs["code"])
	assert.Equal(t, "wamp: test.error.failed: boom", werr.Error())

	_, err = session.Call(ctx, "test.missing", nil, nil).Wait(ctx)
	werr, ok = AsError(err)
	require.True(t, ok)
	assert.Equal(t, "wamp.error.no_such_procedure", werr.URI)
}

func TestSessionTicketAuth(t *testing.T) {
	router := newTestRouter(t, map[string]procedure{"test.echo": echo})
	router.ticket = "secret"
	srv := router.serve()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("accepted", func(t *testing.T) {
		session, err := Dial(ctx, wsURL(srv), &Config{Ticket: "secret"})
		require.NoError(t, err)
		defer session.Close()

		router.mu.Lock()
		details := asDict(router.hello[2])
		router.mu.Unlock()
		assert.Equal(t, []any{"ticket"}, details["authmethods"])
	})

	t.Run("rejected", func(t *testing.T) {
		_, err := Dial(ctx, wsURL(srv), &Config{Ticket: "wrong"})
		require.Error(t, err)

		var abort *AbortError
		require.True(t, errors.As(err, &abort))
		assert.Equal(t, "wamp.error.not_authorized", abort.Reason)
		assert.Contains(t, abort.Error(), "bad ticket")
	})
}

func TestSessionClose(t *testing.T) {
	router := newTestRouter(t, nil)
	srv := router.serve()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)

	require.NoError(t, session.Close())
	assert.False(t, session.IsOpen())
	<-session.Done()

	_, err = session.Call(ctx, "test.echo", nil, nil).Wait(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	assert.Eventually(t, func() bool {
		reasons := router.goodbyeReasons()
		return len(reasons) == 1 && reasons[0] == ReasonCloseRealm
	}, time.Second, 10*time.Millisecond)
}

func TestSessionPendingFailOnDisconnect(t *testing.T) {
	router := newTestRouter(t, map[string]procedure{
		"test.hangup": func(c *routerConn, id uint64, args []any) {
			c.conn.Close()
		},
	})
	srv := router.serve()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)

	_, err = session.Call(ctx, "test.hangup", nil, nil).Wait(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, session.IsOpen())
}

func TestSessionCallAfterPendingFailed(t *testing.T) {
	router := newTestRouter(t, map[string]procedure{
		"test.never": func(c *routerConn, id uint64, args []any) {},
	})
	srv := router.serve()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer session.Close()

	// Close has swept the pending calls but IsOpen still reports true.
	session.failPending(ErrClosed)
	require.True(t, session.IsOpen())

	callCtx, callCancel := context.WithTimeout(ctx, time.Second)
	defer callCancel()
	_, err = session.Call(callCtx, "test.never", nil, nil).Wait(callCtx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSessionCallContextCancel(t *testing.T) {
	router := newTestRouter(t, map[string]procedure{
		"test.never": func(c *routerConn, id uint64, args []any) {},
	})
	srv := router.serve()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer session.Close()

	callCtx, callCancel := context.WithCancel(ctx)
	call := session.Call(callCtx, "test.never", nil, nil)
	callCancel()

	_, err = call.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	session.pendingMu.Lock()
	assert.Empty(t, session.pending)
	session.pendingMu.Unlock()
}

func TestToID(t *testing.T) {
	tests := []struct {
		in      any
		want    uint64
		wantErr bool
	}{
		{float64(12), 12, false},
		{float64(1 << 53), 1 << 53, false},
		{float64(-1), 0, true},
		{float64(1.5), 0, true},
		{int8(5), 5, false},
		{int64(-3), 0, true},
		{uint16(300), 300, false},
		{uint64(1 << 40), 1 << 40, false},
		{"7", 0, true},
	}
	for _, tt := range tests {
		got, err := toID(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "toID(%#v)", tt.in)
			continue
		}
		require.NoError(t, err, "toID(%#v)", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestSerializerByName(t *testing.T) {
	for name, want := range map[string]Serializer{
		"":               JSON,
		"json":           JSON,
		"wamp.2.json":    JSON,
		"msgpack":        Msgpack,
		"wamp.2.msgpack": Msgpack,
	} {
		got, err := SerializerByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	_, err := SerializerByName("cbor")
	assert.Error(t, err)
}
