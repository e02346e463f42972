package recorder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

// DefaultChunkSize is the size of dataavailable chunks.
const DefaultChunkSize = 16 << 10

var (
	// ErrNotOpen is returned by Record before Open.
	ErrNotOpen = errors.New("recorder: not open")

	// ErrRecording is returned by Record while already recording.
	ErrRecording = errors.New("recorder: already recording")
)

// Config configures a StreamRecorder.
type Config struct {
	// ChunkSize is the size of each dataavailable chunk. Default is
	// DefaultChunkSize.
	ChunkSize int

	// Realtime paces chunks at the audio's playback rate, as a live
	// microphone would deliver them.
	Realtime bool

	Logger *slog.Logger
}

// StreamRecorder replays a WAV stream as a recorder.
//
// The stream is forwarded byte for byte, header included, so the backend
// receives a complete WAV file.
type StreamRecorder struct {
	emitter Emitter
	r       *bufio.Reader
	spec    itslanguage.AudioSpec
	config  Config
	logger  *slog.Logger

	open      atomic.Bool
	recording atomic.Bool

	armed   chan struct{}
	armOnce sync.Once

	stopCh   chan struct{}
	stopOnce sync.Once
}

var _ itslanguage.Recorder = (*StreamRecorder)(nil)

// NewStreamRecorder creates a recorder reading WAV data from r. The audio
// spec is taken from the WAV header.
func NewStreamRecorder(r io.Reader, config *Config) (*StreamRecorder, error) {
	var cfg Config
	if config != nil {
		cfg = *config
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	br := bufio.NewReaderSize(r, maxHeaderSize)
	spec, err := peekWAVSpec(br)
	if err != nil {
		return nil, err
	}

	return &StreamRecorder{
		r:      br,
		spec:   spec,
		config: cfg,
		logger: cfg.Logger,
		armed:  make(chan struct{}),
		stopCh: make(chan struct{}),
	}, nil
}

// Open grants user media approval and emits the ready event.
func (s *StreamRecorder) Open() {
	if s.open.Swap(true) {
		return
	}
	s.emitter.Emit(itslanguage.EventReady, itslanguage.RecorderEventData{})
}

// IsRecording reports whether Record is running.
func (s *StreamRecorder) IsRecording() bool {
	return s.recording.Load()
}

// HasUserMediaApproval reports whether Open was called.
func (s *StreamRecorder) HasUserMediaApproval() bool {
	return s.open.Load()
}

// AudioSpecs returns the spec read from the WAV header.
func (s *StreamRecorder) AudioSpecs() itslanguage.AudioSpec {
	return s.spec
}

// Subscribe registers fn for event. The recorder is armed once something
// subscribes to dataavailable.
func (s *StreamRecorder) Subscribe(event itslanguage.RecorderEvent, fn func(itslanguage.RecorderEventData)) func() {
	unsubscribe := s.emitter.Subscribe(event, fn)
	if event == itslanguage.EventDataAvailable {
		s.armOnce.Do(func() { close(s.armed) })
	}
	return unsubscribe
}

// Armed is closed once a consumer subscribed to dataavailable, so chunks
// emitted from then on are not lost.
func (s *StreamRecorder) Armed() <-chan struct{} {
	return s.armed
}

// Stop ends a running Record after the current chunk.
func (s *StreamRecorder) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Record waits until the recorder is armed, then emits the input as
// dataavailable chunks and finally emits recorded. It returns at EOF, on
// Stop or when ctx is done. The recorded event is emitted in all cases
// except a read error.
func (s *StreamRecorder) Record(ctx context.Context) error {
	if !s.open.Load() {
		return ErrNotOpen
	}
	select {
	case <-s.armed:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.recording.Swap(true) {
		return ErrRecording
	}
	defer s.recording.Store(false)

	var (
		start = time.Now()
		sent  int
		buf   = make([]byte, s.config.ChunkSize)
	)
	for {
		select {
		case <-s.stopCh:
			s.logger.Debug("recorder: stopped", "bytes", sent)
			s.emitRecorded()
			return nil
		case <-ctx.Done():
			s.emitRecorded()
			return ctx.Err()
		default:
		}

		n, err := io.ReadFull(s.r, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.emitter.Emit(itslanguage.EventDataAvailable, itslanguage.RecorderEventData{Chunk: chunk})
			sent += n
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.logger.Debug("recorder: end of input", "bytes", sent)
			s.emitRecorded()
			return nil
		}
		if err != nil {
			return fmt.Errorf("recorder: read: %w", err)
		}

		if s.config.Realtime {
			if err := s.pace(ctx, start, sent); err != nil {
				s.emitRecorded()
				return err
			}
		}
	}
}

// pace sleeps until the audio sent so far would have been captured live.
func (s *StreamRecorder) pace(ctx context.Context, start time.Time, sent int) error {
	wait := time.Until(start.Add(duration(s.spec.AudioParameters, sent)))
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-s.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *StreamRecorder) emitRecorded() {
	s.emitter.Emit(itslanguage.EventRecorded, itslanguage.RecorderEventData{})
}
