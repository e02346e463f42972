package itslanguage

import (
	"context"

	"github.com/joggienl/itslanguage-go/pkg/wamp"
)

// Remote procedures of the recording protocol.
const (
	ProcInitChallenge = "nl.itslanguage.recording.init_challenge"
	ProcInitRecording = "nl.itslanguage.recording.init_recording"
	ProcInitAudio     = "nl.itslanguage.recording.init_audio"
	ProcWrite         = "nl.itslanguage.recording.write"
	ProcClose         = "nl.itslanguage.recording.close"
)

// RPCChannel invokes remote procedures.
type RPCChannel interface {
	IsOpen() bool
	Call(ctx context.Context, procedure string, args ...any) PendingCall
}

// PendingCall is an in-flight remote call.
//
// Progress delivers intermediate results and is closed when the call
// completes. Wait returns the terminal value or the remote error as-is.
type PendingCall interface {
	Progress() <-chan any
	Wait(ctx context.Context) (any, error)
}

// NewWAMPChannel adapts a WAMP session to an RPCChannel.
func NewWAMPChannel(session *wamp.Session) RPCChannel {
	return &wampChannel{session: session}
}

type wampChannel struct {
	session *wamp.Session
}

func (c *wampChannel) IsOpen() bool {
	return c.session.IsOpen()
}

func (c *wampChannel) Call(ctx context.Context, procedure string, args ...any) PendingCall {
	call := c.session.Call(ctx, procedure, args, nil)

	progress := make(chan any, cap(call.Progress()))
	go func() {
		defer close(progress)
		for r := range call.Progress() {
			select {
			case progress <- r.Value():
			default:
			}
		}
	}()

	return &wampPendingCall{call: call, progress: progress}
}

type wampPendingCall struct {
	call     *wamp.Call
	progress chan any
}

func (p *wampPendingCall) Progress() <-chan any {
	return p.progress
}

func (p *wampPendingCall) Wait(ctx context.Context) (any, error) {
	result, err := p.call.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return result.Value(), nil
}
