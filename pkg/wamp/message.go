package wamp

import (
	"encoding/json"
	"fmt"
	"math"
)

// Message type codes of the WAMP v2 basic profile used by a caller.
const (
	msgHello        = 1
	msgWelcome      = 2
	msgAbort        = 3
	msgChallenge    = 4
	msgAuthenticate = 5
	msgGoodbye      = 6
	msgError        = 8
	msgCall         = 48
	msgResult       = 50
)

// Close reasons.
const (
	ReasonCloseRealm     = "wamp.close.close_realm"
	ReasonGoodbyeAndOut  = "wamp.close.goodbye_and_out"
	ReasonSystemShutdown = "wamp.close.system_shutdown"
)

// maxID is the largest id WAMP allows (2^53), so ids survive float64 JSON numbers.
const maxID = 1 << 53

// Result is the payload of a RESULT message.
type Result struct {
	Args    []any
	Kwargs  map[string]any
	Details map[string]any
}

// Value returns the first positional argument, or the keyword arguments when
// there are no positional ones. It returns nil for an empty result.
func (r Result) Value() any {
	if len(r.Args) > 0 {
		return r.Args[0]
	}
	if len(r.Kwargs) > 0 {
		return r.Kwargs
	}
	return nil
}

// IsProgress reports whether the result is a progressive (intermediate) result.
func (r Result) IsProgress() bool {
	p, _ := r.Details["progress"].(bool)
	return p
}

// toID converts a decoded number into a WAMP id.
// JSON yields float64 while msgpack yields any of the sized integer types.
func toID(v any) (uint64, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n > maxID || n != math.Trunc(n) {
			return 0, fmt.Errorf("wamp: invalid id %v", n)
		}
		return uint64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 0 {
			return 0, fmt.Errorf("wamp: invalid id %v", n)
		}
		return uint64(i), nil
	case int:
		return nonNegative(int64(n))
	case int8:
		return nonNegative(int64(n))
	case int16:
		return nonNegative(int64(n))
	case int32:
		return nonNegative(int64(n))
	case int64:
		return nonNegative(n)
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	}
	return 0, fmt.Errorf("wamp: invalid id type %T", v)
}

func nonNegative(i int64) (uint64, error) {
	if i < 0 {
		return 0, fmt.Errorf("wamp: invalid id %d", i)
	}
	return uint64(i), nil
}

func asDict(v any) map[string]any {
	switch d := v.(type) {
	case map[string]any:
		return d
	case map[any]any:
		out := make(map[string]any, len(d))
		for k, val := range d {
			out[fmt.Sprint(k)] = val
		}
		return out
	}
	return nil
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// element returns msg[i] or nil when the message is shorter.
func element(msg []any, i int) any {
	if i < len(msg) {
		return msg[i]
	}
	return nil
}
