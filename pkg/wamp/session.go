package wamp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultRealm is the realm joined when Config.Realm is empty.
const DefaultRealm = "default"

// Config configures a WAMP session.
type Config struct {
	// Realm to join. Defaults to DefaultRealm.
	Realm string

	// AuthID is announced in HELLO when set.
	AuthID string

	// Ticket is answered to a "ticket" CHALLENGE. When set and AuthMethods
	// is empty, AuthMethods defaults to ["ticket"].
	Ticket string

	// AuthMethods announced in HELLO.
	AuthMethods []string

	// Serializer defaults to JSON.
	Serializer Serializer

	// Header is sent with the WebSocket handshake.
	Header http.Header

	// HandshakeTimeout bounds the WebSocket handshake. Default is 30 seconds.
	HandshakeTimeout time.Duration

	// ProgressBuffer is the per-call capacity of the progress channel.
	// Default is 16. Progress results that do not fit are dropped.
	ProgressBuffer int

	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Realm == "" {
		c.Realm = DefaultRealm
	}
	if c.Serializer == nil {
		c.Serializer = JSON
	}
	if c.Ticket != "" && len(c.AuthMethods) == 0 {
		c.AuthMethods = []string{"ticket"}
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 30 * time.Second
	}
	if c.ProgressBuffer <= 0 {
		c.ProgressBuffer = 16
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session is an established WAMP session.
type Session struct {
	conn    *websocket.Conn
	config  Config
	id      uint64
	details map[string]any
	logger  *slog.Logger

	mu sync.Mutex // protects writes

	pendingMu sync.Mutex
	pending   map[uint64]*Call
	nextID    atomic.Uint64

	closed    atomic.Bool
	closeCh   chan struct{}
	closeOnce sync.Once
}

// Dial opens a WebSocket to url and joins the configured realm.
func Dial(ctx context.Context, url string, config *Config) (*Session, error) {
	var cfg Config
	if config != nil {
		cfg = *config
	}
	cfg.setDefaults()

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Subprotocols:     []string{cfg.Serializer.Subprotocol()},
	}
	conn, resp, err := dialer.DialContext(ctx, url, cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("wamp: failed to connect (http_status=%d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("wamp: failed to connect: %w", err)
	}
	if sp := conn.Subprotocol(); sp != "" && sp != cfg.Serializer.Subprotocol() {
		conn.Close()
		return nil, fmt.Errorf("wamp: router selected unsupported subprotocol %q", sp)
	}

	s := &Session{
		conn:    conn,
		config:  cfg,
		logger:  cfg.Logger,
		pending: make(map[uint64]*Call),
		closeCh: make(chan struct{}),
	}

	if err := s.join(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

// join performs HELLO [CHALLENGE/AUTHENTICATE] WELCOME.
func (s *Session) join(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetReadDeadline(deadline)
		defer s.conn.SetReadDeadline(time.Time{})
	}

	details := map[string]any{
		"roles": map[string]any{
			"caller": map[string]any{
				"features": map[string]any{
					"progressive_call_results": true,
				},
			},
		},
	}
	if s.config.AuthID != "" {
		details["authid"] = s.config.AuthID
	}
	if len(s.config.AuthMethods) > 0 {
		details["authmethods"] = s.config.AuthMethods
	}
	if err := s.send([]any{msgHello, s.config.Realm, details}); err != nil {
		return fmt.Errorf("wamp: send hello: %w", err)
	}

	for {
		msg, err := s.read()
		if err != nil {
			return fmt.Errorf("wamp: read welcome: %w", err)
		}
		code, err := toID(element(msg, 0))
		if err != nil {
			return err
		}

		switch code {
		case msgWelcome:
			id, err := toID(element(msg, 1))
			if err != nil {
				return err
			}
			s.id = id
			s.details = asDict(element(msg, 2))
			s.logger.Debug("wamp: session joined", "realm", s.config.Realm, "session", id)
			return nil

		case msgAbort:
			return &AbortError{
				Details: asDict(element(msg, 1)),
				Reason:  asString(element(msg, 2)),
			}

		case msgChallenge:
			method := asString(element(msg, 1))
			if method != "ticket" {
				return fmt.Errorf("%w: unsupported auth method %q", ErrProtocolViolation, method)
			}
			if err := s.send([]any{msgAuthenticate, s.config.Ticket, map[string]any{}}); err != nil {
				return fmt.Errorf("wamp: send authenticate: %w", err)
			}

		default:
			return fmt.Errorf("%w: unexpected message %d during handshake", ErrProtocolViolation, code)
		}
	}
}

// ID returns the session id assigned by the router.
func (s *Session) ID() uint64 {
	return s.id
}

// Details returns the WELCOME details.
func (s *Session) Details() map[string]any {
	return s.details
}

// IsOpen reports whether the session can still issue calls.
func (s *Session) IsOpen() bool {
	return !s.closed.Load()
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.closeCh
}

// Call invokes procedure with positional and keyword arguments.
//
// The call is sent immediately; the returned Call resolves when the router
// answers with a final RESULT or an ERROR. Cancelling ctx only stops waiting,
// it does not cancel the remote invocation.
func (s *Session) Call(ctx context.Context, procedure string, args []any, kwargs map[string]any) *Call {
	call := newCall(procedure, s.config.ProgressBuffer)
	if !s.IsOpen() {
		call.finish(Result{}, ErrClosed)
		return call
	}

	call.requestID = s.nextID.Add(1)
	s.pendingMu.Lock()
	if s.pending == nil {
		s.pendingMu.Unlock()
		call.finish(Result{}, ErrClosed)
		return call
	}
	s.pending[call.requestID] = call
	s.pendingMu.Unlock()

	msg := []any{msgCall, call.requestID, map[string]any{"receive_progress": true}, procedure}
	if len(args) > 0 || len(kwargs) > 0 {
		if args == nil {
			args = []any{}
		}
		msg = append(msg, args)
	}
	if len(kwargs) > 0 {
		msg = append(msg, kwargs)
	}

	s.logger.Debug("wamp: call", "procedure", procedure, "request", call.requestID)
	if err := s.send(msg); err != nil {
		s.forget(call.requestID)
		call.finish(Result{}, fmt.Errorf("wamp: send call %s: %w", procedure, err))
		return call
	}

	go func() {
		select {
		case <-call.done:
		case <-ctx.Done():
			s.forget(call.requestID)
			call.finish(Result{}, ctx.Err())
		}
	}()
	return call
}

// Close leaves the realm and closes the connection.
// Pending calls fail with ErrClosed.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		_ = s.send([]any{msgGoodbye, map[string]any{}, ReasonCloseRealm})
		close(s.closeCh)
		err = s.conn.Close()
		s.failPending(ErrClosed)
	})
	return err
}

func (s *Session) send(msg []any) error {
	data, err := s.config.Serializer.Marshal(msg)
	if err != nil {
		return fmt.Errorf("wamp: encode message: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(s.config.Serializer.FrameType(), data)
}

func (s *Session) read() ([]any, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return s.config.Serializer.Unmarshal(data)
}

// readLoop dispatches router messages until the connection ends.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		msg, err := s.read()
		if err != nil {
			select {
			case <-s.closeCh:
			default:
				s.logger.Debug("wamp: read error", "error", err)
			}
			return
		}

		code, err := toID(element(msg, 0))
		if err != nil {
			s.logger.Warn("wamp: dropping malformed message", "error", err)
			continue
		}

		switch code {
		case msgResult:
			s.handleResult(msg)
		case msgError:
			s.handleError(msg)
		case msgGoodbye:
			s.logger.Debug("wamp: router said goodbye", "reason", asString(element(msg, 2)))
			_ = s.send([]any{msgGoodbye, map[string]any{}, ReasonGoodbyeAndOut})
			return
		case msgAbort:
			s.logger.Warn("wamp: session aborted", "reason", asString(element(msg, 2)))
			return
		default:
			s.logger.Debug("wamp: ignoring message", "type", code)
		}
	}
}

func (s *Session) handleResult(msg []any) {
	id, err := toID(element(msg, 1))
	if err != nil {
		s.logger.Warn("wamp: result with bad request id", "error", err)
		return
	}
	result := Result{
		Details: asDict(element(msg, 2)),
		Args:    asList(element(msg, 3)),
		Kwargs:  asDict(element(msg, 4)),
	}

	if result.IsProgress() {
		s.pendingMu.Lock()
		call := s.pending[id]
		s.pendingMu.Unlock()
		if call != nil && !call.notify(result) {
			s.logger.Debug("wamp: progress dropped", "procedure", call.Procedure)
		}
		return
	}

	if call := s.forget(id); call != nil {
		call.finish(result, nil)
	}
}

func (s *Session) handleError(msg []any) {
	reqType, _ := toID(element(msg, 1))
	if reqType != msgCall {
		return
	}
	id, err := toID(element(msg, 2))
	if err != nil {
		return
	}
	if call := s.forget(id); call != nil {
		call.finish(Result{}, &Error{
			Details: asDict(element(msg, 3)),
			URI:     asString(element(msg, 4)),
			Args:    asList(element(msg, 5)),
			Kwargs:  asDict(element(msg, 6)),
		})
	}
}

func (s *Session) forget(id uint64) *Call {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	call := s.pending[id]
	delete(s.pending, id)
	return call
}

// failPending fails every pending call. A nil map marks the session as
// closed for calls that raced past the IsOpen check.
func (s *Session) failPending(err error) {
	s.pendingMu.Lock()
	calls := s.pending
	s.pending = nil
	s.pendingMu.Unlock()
	for _, call := range calls {
		call.finish(Result{}, err)
	}
}

// Call is an in-flight remote procedure call.
type Call struct {
	Procedure string

	requestID uint64
	progress  chan Result
	done      chan struct{}

	mu       sync.Mutex
	finished bool
	result   Result
	err      error
}

func newCall(procedure string, buffer int) *Call {
	return &Call{
		Procedure: procedure,
		progress:  make(chan Result, buffer),
		done:      make(chan struct{}),
	}
}

// Progress delivers progressive results. It is closed when the call completes.
func (c *Call) Progress() <-chan Result {
	return c.progress
}

// Done is closed when the call completes.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call completes or ctx is done.
// A remote failure is returned as *Error.
func (c *Call) Wait(ctx context.Context) (Result, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (c *Call) notify(r Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return false
	}
	select {
	case c.progress <- r:
		return true
	default:
		return false
	}
}

func (c *Call) finish(r Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return
	}
	c.finished = true
	c.result = r
	c.err = err
	close(c.progress)
	close(c.done)
}
