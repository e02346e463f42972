// Package recorder provides audio sources for streaming ITSLanguage
// recordings.
//
// Emitter is the event subscription registry recorders are built on.
// StreamRecorder replays a WAV stream (a file, a pipe, stdin) as if it were
// captured live:
//
//	rec, err := recorder.NewStreamRecorder(f, &recorder.Config{Realtime: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rec.Open()
//
//	stream, err := client.SpeechRecordings.StartStreaming(ctx, challenge, rec)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go rec.Record(ctx)
//	recording, err := stream.Wait(ctx)
package recorder
