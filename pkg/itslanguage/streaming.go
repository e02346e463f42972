package itslanguage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
)

// StreamerConfig configures a RecordingStreamer.
type StreamerConfig struct {
	// ReadyTimeout bounds the wait for the recorder's ready event.
	// Zero waits until the context is done.
	ReadyTimeout time.Duration

	Logger *slog.Logger
}

// RecordingStreamer streams speech recordings over an RPC channel.
//
// A streamer belongs to one connection and owns its session slot, so at most
// one recording streams at a time.
type RecordingStreamer struct {
	slot         SessionSlot
	readyTimeout time.Duration
	logger       *slog.Logger

	mu      sync.RWMutex
	channel RPCChannel
}

// NewRecordingStreamer creates a streamer on ch. ch may be nil and set later
// with SetChannel.
func NewRecordingStreamer(ch RPCChannel, config *StreamerConfig) *RecordingStreamer {
	var cfg StreamerConfig
	if config != nil {
		cfg = *config
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RecordingStreamer{
		channel:      ch,
		readyTimeout: cfg.ReadyTimeout,
		logger:       cfg.Logger,
	}
}

// Slot returns the session slot of the streamer.
func (s *RecordingStreamer) Slot() *SessionSlot {
	return &s.slot
}

// SetChannel replaces the RPC channel. Sessions already running keep the
// channel they started on.
func (s *RecordingStreamer) SetChannel(ch RPCChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = ch
}

func (s *RecordingStreamer) rpcChannel() RPCChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel
}

// StartStreaming starts streaming a new recording for challenge from rec.
//
// Preconditions are checked before anything is sent and reported as the
// returned error. Once started, the session runs in the background:
//
//  1. wait for the recorder to be ready
//  2. init_challenge, init_recording, init_audio
//  3. one write per recorded chunk, in order
//  4. close once the recorder reports it is done
//
// The outcome is delivered on the returned RecordingStream. A failing remote
// call ends the stream with that call's error value, unwrapped. Cancelling
// ctx ends the stream with ctx.Err().
func (s *RecordingStreamer) StartStreaming(ctx context.Context, challenge *SpeechChallenge, rec Recorder) (*RecordingStream, error) {
	if challenge == nil {
		return nil, &InvalidArgumentError{Name: "challenge"}
	}
	if challenge.ID == "" {
		return nil, &MissingFieldError{Field: "challenge.id"}
	}
	if challenge.OrganisationID == "" {
		return nil, &MissingFieldError{Field: "challenge.organisationId"}
	}
	if rec == nil {
		return nil, &InvalidArgumentError{Name: "recorder"}
	}
	if rec.IsRecording() {
		return nil, &InvalidStateError{Message: "Recorder should not yet be recording"}
	}
	if id, ok := s.slot.acquire(); !ok {
		return nil, &SessionConflictError{RecordingID: id}
	}
	ch := s.rpcChannel()
	if ch == nil || !ch.IsOpen() {
		s.slot.Clear()
		return nil, &TransportError{Message: "WebSocket connection was not open"}
	}

	stream := newRecordingStream()
	sess := &recordingSession{
		streamer:  s,
		channel:   ch,
		challenge: *challenge,
		recorder:  rec,
		stream:    stream,
		logger:    s.logger.With("challenge", challenge.ID, "organisation", challenge.OrganisationID),
	}
	go sess.run(ctx)
	return stream, nil
}

// RecordingStream is the result channel of a streaming recording.
type RecordingStream struct {
	progress chan *SpeechRecording
	done     chan struct{}

	result *SpeechRecording
	err    error
}

func newRecordingStream() *RecordingStream {
	return &RecordingStream{
		progress: make(chan *SpeechRecording, 4),
		done:     make(chan struct{}),
	}
}

// Progress delivers partial recordings. The first one carries the recording
// id assigned by the backend. It is closed when the stream ends.
func (s *RecordingStream) Progress() <-chan *SpeechRecording {
	return s.progress
}

// Done is closed when the stream ends.
func (s *RecordingStream) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the stream ends or ctx is done.
func (s *RecordingStream) Wait(ctx context.Context) (*SpeechRecording, error) {
	select {
	case <-s.done:
		return s.result, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err returns the terminal error once Done is closed.
func (s *RecordingStream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *RecordingStream) notify(rec *SpeechRecording) {
	select {
	case s.progress <- rec:
	default:
	}
}

func (s *RecordingStream) finish(rec *SpeechRecording, err error) {
	s.result = rec
	s.err = err
	close(s.progress)
	close(s.done)
}

// recordingSession is one run of the recording protocol.
type recordingSession struct {
	streamer  *RecordingStreamer
	channel   RPCChannel
	challenge SpeechChallenge
	recorder  Recorder
	stream    *RecordingStream
	logger    *slog.Logger

	unsubscribes []func()
}

func (r *recordingSession) run(ctx context.Context) {
	rec, err := r.record(ctx)
	for _, unsubscribe := range r.unsubscribes {
		unsubscribe()
	}
	r.streamer.slot.Clear()

	if err != nil {
		r.logger.Debug("itslanguage: recording failed", "error", err)
	} else {
		r.logger.Debug("itslanguage: recording done", "recording", rec.ID)
	}
	r.stream.finish(rec, err)
}

func (r *recordingSession) subscribe(event RecorderEvent, fn func(RecorderEventData)) {
	r.unsubscribes = append(r.unsubscribes, r.recorder.Subscribe(event, fn))
}

func (r *recordingSession) record(ctx context.Context) (*SpeechRecording, error) {
	if err := r.waitReady(ctx); err != nil {
		return nil, err
	}

	if _, err := r.call(ctx, ProcInitChallenge, r.challenge.OrganisationID, r.challenge.ID); err != nil {
		return nil, err
	}

	v, err := r.call(ctx, ProcInitRecording)
	if err != nil {
		return nil, err
	}
	recordingID, ok := v.(string)
	if !ok || recordingID == "" {
		return nil, fmt.Errorf("itslanguage: %s returned %T, want recording id", ProcInitRecording, v)
	}
	r.streamer.slot.Set(recordingID)
	r.logger.Debug("itslanguage: recording initialised", "recording", recordingID)

	partial := &SpeechRecording{
		ID:          recordingID,
		ChallengeID: r.challenge.ID,
		Student:     Student{OrganisationID: r.challenge.OrganisationID},
	}
	r.stream.notify(partial)

	spec := r.recorder.AudioSpecs()
	if _, err := r.call(ctx, ProcInitAudio, spec.AudioFormat, spec.AudioParameters); err != nil {
		return nil, err
	}

	queue := newChunkQueue()
	// A recorder may start emitting as soon as dataavailable has a
	// subscriber, so recorded must be subscribed first.
	r.subscribe(EventRecorded, func(RecorderEventData) { queue.close() })
	r.subscribe(EventDataAvailable, func(d RecorderEventData) { queue.push(d.Chunk) })

	chunks := 0
	for {
		chunk, err := queue.next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if _, err := r.call(ctx, ProcWrite, chunk); err != nil {
			return nil, err
		}
		chunks++
	}

	v, err = r.call(ctx, ProcClose)
	if err != nil {
		return nil, err
	}
	resp, err := decodeCloseResponse(v)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("itslanguage: recording closed", "recording", recordingID, "chunks", chunks)

	result := *partial
	result.Created = resp.Created
	result.Updated = resp.Updated
	result.AudioURL = resp.AudioURL
	return &result, nil
}

// waitReady blocks until the recorder has user media approval.
func (r *recordingSession) waitReady(ctx context.Context) error {
	if r.recorder.HasUserMediaApproval() {
		return nil
	}

	ready := make(chan struct{})
	var once sync.Once
	r.subscribe(EventReady, func(RecorderEventData) {
		once.Do(func() { close(ready) })
	})
	// The recorder may have become ready before the subscription.
	if r.recorder.HasUserMediaApproval() {
		return nil
	}

	var timeout <-chan time.Time
	if d := r.streamer.readyTimeout; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	r.logger.Debug("itslanguage: waiting for recorder")
	select {
	case <-ready:
		return nil
	case <-timeout:
		return ErrReadyTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call invokes procedure and waits for it. A remote error is returned as-is.
func (r *recordingSession) call(ctx context.Context, procedure string, args ...any) (any, error) {
	pending := r.channel.Call(ctx, procedure, args...)
	for p := range pending.Progress() {
		r.logger.Debug("itslanguage: rpc progress", "procedure", procedure, "value", p)
	}
	return pending.Wait(ctx)
}

// closeResponse is the result of the close procedure.
type closeResponse struct {
	Created  time.Time `mapstructure:"created"`
	Updated  time.Time `mapstructure:"updated"`
	AudioURL string    `mapstructure:"audioUrl"`
}

func decodeCloseResponse(v any) (*closeResponse, error) {
	var resp closeResponse
	if v == nil {
		return &resp, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:     &resp,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(v); err != nil {
		return nil, fmt.Errorf("itslanguage: decode %s result: %w", ProcClose, err)
	}
	return &resp, nil
}
