// Package wamp implements the caller side of the WAMP v2 basic profile over
// WebSocket.
//
// It is the RPC channel used by the ITSLanguage streaming APIs: a session is
// opened against a router realm, authenticated with a ticket (the OAuth2
// access token), and remote procedures are invoked with Call. Progressive
// call results are delivered on the call's Progress channel before the
// terminal result.
//
// # Quick Start
//
//	session, err := wamp.Dial(ctx, "wss://ws.itslanguage.nl/ws", &wamp.Config{
//	    Realm:  "default",
//	    Ticket: token,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	call := session.Call(ctx, "nl.itslanguage.recording.init_recording", nil, nil)
//	result, err := call.Wait(ctx)
//
// # Serializers
//
// Both "wamp.2.json" (text frames) and "wamp.2.msgpack" (binary frames) are
// supported. JSON is the default.
package wamp
