package itslanguage

// RecorderEvent names an event emitted by a Recorder.
type RecorderEvent string

// Recorder events.
const (
	// EventReady fires once the recorder may capture audio.
	EventReady RecorderEvent = "ready"

	// EventDataAvailable fires for every captured audio chunk.
	EventDataAvailable RecorderEvent = "dataavailable"

	// EventRecorded fires when recording has stopped and all chunks were emitted.
	EventRecorded RecorderEvent = "recorded"
)

// RecorderEventData is the payload of a recorder event.
type RecorderEventData struct {
	// Chunk holds the audio of an EventDataAvailable event.
	Chunk []byte
}

// Recorder is an audio source a recording can be streamed from.
//
// Subscribe returns a function that removes the subscription. Handlers may
// be called from any goroutine but must not block.
type Recorder interface {
	IsRecording() bool
	HasUserMediaApproval() bool
	AudioSpecs() AudioSpec
	Subscribe(event RecorderEvent, fn func(RecorderEventData)) (unsubscribe func())
}
