// Package itslanguage provides a Go client for the ITSLanguage speech
// technology platform.
//
// The administrative REST API (organisations, students, challenges and
// recordings) is exposed as services on Client. Speech recordings are
// streamed to the backend over a WAMP session.
//
// # Quick Start
//
//	client := itslanguage.NewClient(itslanguage.WithOAuth2Token(token))
//
//	challenge, err := client.SpeechChallenges.Get(ctx, "fb", "4")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	recordings, err := client.SpeechRecordings.List(ctx, "fb", challenge.ID)
//
// # Streaming a Recording
//
// Connect opens the RPC channel. A Recorder supplies the audio; the stream
// reports the recording id on Progress and the finished recording from Wait:
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	stream, err := client.SpeechRecordings.StartStreaming(ctx, challenge, rec)
//	if err != nil {
//	    log.Fatal(err) // precondition failed, nothing was sent
//	}
//	for partial := range stream.Progress() {
//	    fmt.Println("recording", partial.ID)
//	}
//	recording, err := stream.Wait(ctx)
//
// Only one recording streams per connection at a time. A failing remote
// procedure ends the stream with the *wamp.Error returned by the router.
//
// # Error Handling
//
//	if e, ok := itslanguage.AsAPIError(err); ok {
//	    fmt.Printf("API error: %s\n", e.Message)
//	}
package itslanguage
