package itslanguage

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joggienl/itslanguage-go/pkg/wamp"
)

type rpcCall struct {
	procedure string
	args      []any
}

type fakePendingCall struct {
	progress chan any
	value    any
	err      error
	gate     chan struct{}
}

func (c *fakePendingCall) Progress() <-chan any { return c.progress }

func (c *fakePendingCall) Wait(ctx context.Context) (any, error) {
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.value, c.err
}

// fakeChannel records calls and answers them from handlers.
type fakeChannel struct {
	mu       sync.Mutex
	open     bool
	calls    []rpcCall
	handlers map[string]func(args []any) (any, error)
	gates    map[string]chan struct{}
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		open: true,
		handlers: map[string]func([]any) (any, error){
			ProcInitRecording: func([]any) (any, error) { return "rec-1", nil },
			ProcClose: func([]any) (any, error) {
				return map[string]any{
					"created":  "2014-12-31T23:59:59Z",
					"updated":  "2014-12-31T23:59:59Z",
					"audioUrl": "https://api.itslanguage.nl/download/Ysjd7bUGseu8-bsJ",
				}, nil
			},
		},
	}
}

func (c *fakeChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeChannel) Call(ctx context.Context, procedure string, args ...any) PendingCall {
	c.mu.Lock()
	c.calls = append(c.calls, rpcCall{procedure: procedure, args: args})
	h := c.handlers[procedure]
	gate := c.gates[procedure]
	c.mu.Unlock()

	call := &fakePendingCall{progress: make(chan any, 1), gate: gate}
	call.progress <- procedure
	close(call.progress)
	if h != nil {
		call.value, call.err = h(args)
	}
	return call
}

func (c *fakeChannel) handle(procedure string, h func(args []any) (any, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[procedure] = h
}

// hold makes calls to procedure stay unresolved until a value is sent on
// the returned channel, one per call.
func (c *fakeChannel) hold(procedure string) chan<- struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gates == nil {
		c.gates = make(map[string]chan struct{})
	}
	gate := make(chan struct{})
	c.gates[procedure] = gate
	return gate
}

func (c *fakeChannel) procedures() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	for i, call := range c.calls {
		out[i] = call.procedure
	}
	return out
}

func (c *fakeChannel) callsTo(procedure string) []rpcCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []rpcCall
	for _, call := range c.calls {
		if call.procedure == procedure {
			out = append(out, call)
		}
	}
	return out
}

// fakeRecorder lets tests emit recorder events by hand.
type fakeRecorder struct {
	mu         sync.Mutex
	recording  bool
	approved   bool
	nextID     int
	subs       map[RecorderEvent]map[int]func(RecorderEventData)
	subscribed chan RecorderEvent
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		approved:   true,
		subs:       make(map[RecorderEvent]map[int]func(RecorderEventData)),
		subscribed: make(chan RecorderEvent, 16),
	}
}

func (r *fakeRecorder) IsRecording() bool { return r.recording }

func (r *fakeRecorder) HasUserMediaApproval() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.approved
}

func (r *fakeRecorder) AudioSpecs() AudioSpec {
	return AudioSpec{
		AudioFormat:     "audio/wave",
		AudioParameters: AudioParameters{Channels: 1, SampleWidth: 16, SampleRate: 48000},
	}
}

func (r *fakeRecorder) Subscribe(event RecorderEvent, fn func(RecorderEventData)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	if r.subs[event] == nil {
		r.subs[event] = make(map[int]func(RecorderEventData))
	}
	r.subs[event][id] = fn
	r.mu.Unlock()

	r.subscribed <- event
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs[event], id)
	}
}

func (r *fakeRecorder) emit(event RecorderEvent, data RecorderEventData) {
	r.mu.Lock()
	var fns []func(RecorderEventData)
	for _, fn := range r.subs[event] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(data)
	}
}

func (r *fakeRecorder) subscriptions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.subs {
		n += len(m)
	}
	return n
}

// waitSubscribed blocks until the session subscribes to event.
func (r *fakeRecorder) waitSubscribed(t *testing.T, event RecorderEvent) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-r.subscribed:
			if e == event {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s subscription", event)
		}
	}
}

func testChallenge() *SpeechChallenge {
	return &SpeechChallenge{ID: "4", OrganisationID: "fb"}
}

func waitStream(t *testing.T, stream *RecordingStream) (*SpeechRecording, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rec, err := stream.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "stream did not finish")
	return rec, err
}

func TestStartStreamingPreconditions(t *testing.T) {
	recording := newFakeRecorder()
	recording.recording = true

	tests := []struct {
		name      string
		challenge *SpeechChallenge
		recorder  Recorder
		check     func(t *testing.T, err error)
	}{
		{
			name:     "nil challenge",
			recorder: newFakeRecorder(),
			check: func(t *testing.T, err error) {
				var e *InvalidArgumentError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "challenge", e.Name)
				assert.Equal(t, `itslanguage: "challenge" parameter is required or invalid`, err.Error())
			},
		},
		{
			name:      "empty id",
			challenge: &SpeechChallenge{OrganisationID: "fb"},
			recorder:  newFakeRecorder(),
			check: func(t *testing.T, err error) {
				var e *MissingFieldError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "challenge.id", e.Field)
				assert.Equal(t, "itslanguage: challenge.id field is required", err.Error())
			},
		},
		{
			name:      "empty organisation id",
			challenge: &SpeechChallenge{ID: "4"},
			recorder:  newFakeRecorder(),
			check: func(t *testing.T, err error) {
				var e *MissingFieldError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "challenge.organisationId", e.Field)
			},
		},
		{
			name:      "nil recorder",
			challenge: testChallenge(),
			check: func(t *testing.T, err error) {
				var e *InvalidArgumentError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "recorder", e.Name)
			},
		},
		{
			name:      "recorder already recording",
			challenge: testChallenge(),
			recorder:  recording,
			check: func(t *testing.T, err error) {
				var e *InvalidStateError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "itslanguage: Recorder should not yet be recording", err.Error())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := newFakeChannel()
			s := NewRecordingStreamer(ch, nil)

			stream, err := s.StartStreaming(context.Background(), tt.challenge, tt.recorder)
			require.Error(t, err)
			assert.Nil(t, stream)
			tt.check(t, err)

			assert.Empty(t, ch.procedures())
			assert.False(t, s.Slot().Busy())
		})
	}
}

func TestStartStreamingSessionConflict(t *testing.T) {
	ch := newFakeChannel()
	s := NewRecordingStreamer(ch, nil)
	s.Slot().Set("5")

	rec := newFakeRecorder()
	_, err := s.StartStreaming(context.Background(), testChallenge(), rec)

	var e *SessionConflictError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "5", e.RecordingID)
	assert.Equal(t, "itslanguage: session with recordingId 5 still in progress", err.Error())
	assert.Empty(t, ch.procedures())
	assert.Zero(t, rec.subscriptions())
	assert.Equal(t, "5", s.Slot().RecordingID())
}

func TestStartStreamingChannelNotOpen(t *testing.T) {
	t.Run("closed", func(t *testing.T) {
		ch := newFakeChannel()
		ch.open = false
		s := NewRecordingStreamer(ch, nil)

		_, err := s.StartStreaming(context.Background(), testChallenge(), newFakeRecorder())

		var e *TransportError
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "itslanguage: WebSocket connection was not open", err.Error())
		assert.Empty(t, ch.procedures())
		assert.False(t, s.Slot().Busy())
	})

	t.Run("no channel", func(t *testing.T) {
		s := NewRecordingStreamer(nil, nil)
		_, err := s.StartStreaming(context.Background(), testChallenge(), newFakeRecorder())

		var e *TransportError
		require.ErrorAs(t, err, &e)
		assert.False(t, s.Slot().Busy())
	})
}

func TestStartStreaming(t *testing.T) {
	ch := newFakeChannel()
	s := NewRecordingStreamer(ch, nil)

	var slotDuringAudio string
	ch.handle(ProcInitAudio, func([]any) (any, error) {
		slotDuringAudio = s.Slot().RecordingID()
		return nil, nil
	})

	rec := newFakeRecorder()
	stream, err := s.StartStreaming(context.Background(), testChallenge(), rec)
	require.NoError(t, err)

	rec.waitSubscribed(t, EventDataAvailable)
	for _, chunk := range []string{"one", "two", "three"} {
		rec.emit(EventDataAvailable, RecorderEventData{Chunk: []byte(chunk)})
	}
	rec.emit(EventRecorded, RecorderEventData{})

	result, err := waitStream(t, stream)
	require.NoError(t, err)

	assert.Equal(t, []string{
		ProcInitChallenge,
		ProcInitRecording,
		ProcInitAudio,
		ProcWrite,
		ProcWrite,
		ProcWrite,
		ProcClose,
	}, ch.procedures())

	assert.Equal(t, []any{"fb", "4"}, ch.callsTo(ProcInitChallenge)[0].args)
	assert.Empty(t, ch.callsTo(ProcInitRecording)[0].args)
	assert.Equal(t, []any{"audio/wave", AudioParameters{Channels: 1, SampleWidth: 16, SampleRate: 48000}},
		ch.callsTo(ProcInitAudio)[0].args)

	var written []string
	for _, call := range ch.callsTo(ProcWrite) {
		require.Len(t, call.args, 1)
		written = append(written, string(call.args[0].([]byte)))
	}
	assert.Equal(t, []string{"one", "two", "three"}, written)
	assert.Empty(t, ch.callsTo(ProcClose)[0].args)

	assert.Equal(t, "rec-1", slotDuringAudio)
	assert.False(t, s.Slot().Busy())
	assert.Empty(t, s.Slot().RecordingID())
	assert.Zero(t, rec.subscriptions())

	created := time.Date(2014, 12, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "rec-1", result.ID)
	assert.Equal(t, "4", result.ChallengeID)
	assert.Equal(t, "fb", result.Student.OrganisationID)
	assert.True(t, created.Equal(result.Created))
	assert.True(t, created.Equal(result.Updated))
	assert.Equal(t, "https://api.itslanguage.nl/download/Ysjd7bUGseu8-bsJ", result.AudioURL)

	var progress []*SpeechRecording
	for p := range stream.Progress() {
		progress = append(progress, p)
	}
	require.NotEmpty(t, progress)
	assert.Equal(t, "rec-1", progress[0].ID)
	assert.Equal(t, "4", progress[0].ChallengeID)
}

func TestStartStreamingWaitsForReady(t *testing.T) {
	ch := newFakeChannel()
	s := NewRecordingStreamer(ch, nil)

	rec := newFakeRecorder()
	rec.approved = false

	stream, err := s.StartStreaming(context.Background(), testChallenge(), rec)
	require.NoError(t, err)

	rec.waitSubscribed(t, EventReady)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, ch.procedures(), "no call may be made before the recorder is ready")

	rec.mu.Lock()
	rec.approved = true
	rec.mu.Unlock()
	rec.emit(EventReady, RecorderEventData{})

	rec.waitSubscribed(t, EventDataAvailable)
	rec.emit(EventRecorded, RecorderEventData{})

	_, err = waitStream(t, stream)
	require.NoError(t, err)
	assert.Equal(t, []string{ProcInitChallenge, ProcInitRecording, ProcInitAudio, ProcClose}, ch.procedures())
	assert.Zero(t, rec.subscriptions())
}

func TestStartStreamingReadyTimeout(t *testing.T) {
	ch := newFakeChannel()
	s := NewRecordingStreamer(ch, &StreamerConfig{ReadyTimeout: 20 * time.Millisecond})

	rec := newFakeRecorder()
	rec.approved = false

	stream, err := s.StartStreaming(context.Background(), testChallenge(), rec)
	require.NoError(t, err)

	_, err = waitStream(t, stream)
	assert.ErrorIs(t, err, ErrReadyTimeout)
	assert.Empty(t, ch.procedures())
	assert.False(t, s.Slot().Busy())
	assert.Zero(t, rec.subscriptions())
}

func TestStartStreamingCancel(t *testing.T) {
	ch := newFakeChannel()
	s := NewRecordingStreamer(ch, nil)
	rec := newFakeRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := s.StartStreaming(ctx, testChallenge(), rec)
	require.NoError(t, err)

	rec.waitSubscribed(t, EventDataAvailable)
	assert.Equal(t, "rec-1", s.Slot().RecordingID())
	cancel()

	_, err = waitStream(t, stream)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.Slot().Busy())
	assert.Zero(t, rec.subscriptions())
	assert.NotContains(t, ch.procedures(), ProcClose)
}

// eagerRecorder emits a chunk and finishes as soon as dataavailable is
// subscribed.
type eagerRecorder struct {
	*fakeRecorder
}

func (r *eagerRecorder) Subscribe(event RecorderEvent, fn func(RecorderEventData)) func() {
	unsubscribe := r.fakeRecorder.Subscribe(event, fn)
	if event == EventDataAvailable {
		r.emit(EventDataAvailable, RecorderEventData{Chunk: []byte("all")})
		r.emit(EventRecorded, RecorderEventData{})
	}
	return unsubscribe
}

func TestStartStreamingRecorderFinishesOnSubscribe(t *testing.T) {
	ch := newFakeChannel()
	s := NewRecordingStreamer(ch, nil)

	rec := &eagerRecorder{newFakeRecorder()}
	stream, err := s.StartStreaming(context.Background(), testChallenge(), rec)
	require.NoError(t, err)

	result, err := waitStream(t, stream)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", result.ID)

	writes := ch.callsTo(ProcWrite)
	require.Len(t, writes, 1)
	assert.Equal(t, []byte("all"), writes[0].args[0])
	assert.Equal(t, ProcClose, ch.procedures()[len(ch.procedures())-1])
	assert.Zero(t, rec.subscriptions())
}

func TestStartStreamingWritesInSequence(t *testing.T) {
	ch := newFakeChannel()
	release := ch.hold(ProcWrite)
	s := NewRecordingStreamer(ch, nil)

	rec := newFakeRecorder()
	stream, err := s.StartStreaming(context.Background(), testChallenge(), rec)
	require.NoError(t, err)
	rec.waitSubscribed(t, EventDataAvailable)

	sent := func(procedure string) func() bool {
		return func() bool { return len(ch.callsTo(procedure)) > 0 }
	}
	writesSent := func() int { return len(ch.callsTo(ProcWrite)) }

	rec.emit(EventDataAvailable, RecorderEventData{Chunk: []byte("one")})
	require.Eventually(t, func() bool { return writesSent() == 1 }, time.Second, time.Millisecond)

	// recorded fires while the first write is still unresolved.
	rec.emit(EventDataAvailable, RecorderEventData{Chunk: []byte("two")})
	rec.emit(EventRecorded, RecorderEventData{})
	assert.Never(t, func() bool { return writesSent() > 1 || sent(ProcClose)() }, 50*time.Millisecond, 5*time.Millisecond)

	release <- struct{}{}
	require.Eventually(t, func() bool { return writesSent() == 2 }, time.Second, time.Millisecond)
	assert.Never(t, sent(ProcClose), 50*time.Millisecond, 5*time.Millisecond)

	release <- struct{}{}
	_, err = waitStream(t, stream)
	require.NoError(t, err)

	assert.Equal(t, []string{
		ProcInitChallenge,
		ProcInitRecording,
		ProcInitAudio,
		ProcWrite,
		ProcWrite,
		ProcClose,
	}, ch.procedures())
	var written []string
	for _, call := range ch.callsTo(ProcWrite) {
		written = append(written, string(call.args[0].([]byte)))
	}
	assert.Equal(t, []string{"one", "two"}, written)
}

func TestStartStreamingRPCFailure(t *testing.T) {
	procedures := []string{ProcInitChallenge, ProcInitRecording, ProcInitAudio, ProcWrite, ProcClose}

	for _, failing := range procedures {
		t.Run(failing, func(t *testing.T) {
			rpcErr := &wamp.Error{URI: "error123"}

			ch := newFakeChannel()
			ch.handle(failing, func([]any) (any, error) { return nil, rpcErr })
			s := NewRecordingStreamer(ch, nil)

			rec := newFakeRecorder()
			stream, err := s.StartStreaming(context.Background(), testChallenge(), rec)
			require.NoError(t, err)

			if failing == ProcWrite || failing == ProcClose {
				rec.waitSubscribed(t, EventDataAvailable)
				rec.emit(EventDataAvailable, RecorderEventData{Chunk: []byte{1}})
				rec.emit(EventRecorded, RecorderEventData{})
			}

			result, err := waitStream(t, stream)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.Same(t, rpcErr, err, "rpc error must be returned unchanged")

			assert.False(t, s.Slot().Busy())
			assert.Empty(t, s.Slot().RecordingID())
			assert.Zero(t, rec.subscriptions())

			calls := ch.procedures()
			assert.Equal(t, failing, calls[len(calls)-1], "no call after the failing one")
		})
	}
}

func TestStartStreamingOneSessionPerConnection(t *testing.T) {
	ch := newFakeChannel()
	s := NewRecordingStreamer(ch, nil)

	const n = 8
	recorders := make([]*fakeRecorder, n)
	streams := make([]*RecordingStream, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		recorders[i] = newFakeRecorder()
		recorders[i].approved = false
		wg.Add(1)
		go func() {
			defer wg.Done()
			streams[i], errs[i] = s.StartStreaming(context.Background(), testChallenge(), recorders[i])
		}()
	}
	wg.Wait()

	started := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, started, "only one session may start")
			started = i
			continue
		}
		var e *SessionConflictError
		assert.True(t, errors.As(err, &e))
	}
	require.NotEqual(t, -1, started)

	rec := recorders[started]
	rec.waitSubscribed(t, EventReady)
	rec.mu.Lock()
	rec.approved = true
	rec.mu.Unlock()
	rec.emit(EventReady, RecorderEventData{})
	rec.waitSubscribed(t, EventDataAvailable)
	rec.emit(EventRecorded, RecorderEventData{})

	_, err := waitStream(t, streams[started])
	require.NoError(t, err)

	_, err = s.StartStreaming(context.Background(), testChallenge(), newFakeRecorder())
	require.NoError(t, err, "slot is free again after the session ends")
}

func TestChunkQueue(t *testing.T) {
	q := newChunkQueue()
	q.push([]byte("a"))
	q.push([]byte("b"))
	q.close()
	q.push([]byte("dropped"))

	ctx := context.Background()
	for _, want := range []string{"a", "b"} {
		got, err := q.next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
	_, err := q.next(ctx)
	assert.ErrorIs(t, err, io.EOF)

	q = newChunkQueue()
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = q.next(cctx)
	assert.ErrorIs(t, err, context.Canceled)
}
