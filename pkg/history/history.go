// Package history keeps a local record of speech recordings made with the
// its CLI, so they can be listed and downloaded again without knowing their
// ids.
//
// Recordings are keyed by organisation, challenge and recording id
// ("fb:4:rec-1"), which keeps each challenge's recordings adjacent for
// prefix scans. Values are msgpack-encoded.
package history

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

var (
	// ErrNotFound is returned when a recording is not in the store.
	ErrNotFound = errors.New("history: not found")

	// ErrInvalidKey is returned when a key segment is empty or contains
	// the separator.
	ErrInvalidKey = errors.New("history: invalid key")
)

const separator = ":"

// Store is a local index of speech recordings.
type Store interface {
	// Put stores rec, replacing any earlier entry with the same key.
	// The recording's ID, ChallengeID and Student.OrganisationID must be
	// set.
	Put(ctx context.Context, rec *itslanguage.SpeechRecording) error

	// Get returns one recording. Returns ErrNotFound if not present.
	Get(ctx context.Context, org, challenge, id string) (*itslanguage.SpeechRecording, error)

	// List iterates over the recordings of a challenge in key order. An
	// empty challenge lists the whole organisation, an empty org lists
	// everything.
	List(ctx context.Context, org, challenge string) iter.Seq2[*itslanguage.SpeechRecording, error]

	// Delete removes a recording. No error if it does not exist.
	Delete(ctx context.Context, org, challenge, id string) error

	Close() error
}

// key encodes the segments of a full recording key.
func key(org, challenge, id string) ([]byte, error) {
	for _, seg := range []string{org, challenge, id} {
		if seg == "" || strings.Contains(seg, separator) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, seg)
		}
	}
	return []byte(org + separator + challenge + separator + id), nil
}

// prefix encodes a scan prefix. Segments after the first empty one are
// ignored. The trailing separator keeps "fb" from matching "fb2".
func prefix(org, challenge string) ([]byte, error) {
	var b strings.Builder
	for _, seg := range []string{org, challenge} {
		if seg == "" {
			break
		}
		if strings.Contains(seg, separator) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, seg)
		}
		b.WriteString(seg)
		b.WriteString(separator)
	}
	return []byte(b.String()), nil
}

func recordKey(rec *itslanguage.SpeechRecording) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil recording", ErrInvalidKey)
	}
	return key(rec.Student.OrganisationID, rec.ChallengeID, rec.ID)
}

// record is the stored form of a recording. Times are kept as UTC unix
// nanoseconds, zero meaning unset.
type record struct {
	ID             string `msgpack:"id"`
	ChallengeID    string `msgpack:"challenge"`
	OrganisationID string `msgpack:"organisation"`
	StudentID      string `msgpack:"student,omitempty"`
	AudioURL       string `msgpack:"audio_url,omitempty"`
	Created        int64  `msgpack:"created,omitempty"`
	Updated        int64  `msgpack:"updated,omitempty"`
}

func encode(rec *itslanguage.SpeechRecording) ([]byte, error) {
	return msgpack.Marshal(&record{
		ID:             rec.ID,
		ChallengeID:    rec.ChallengeID,
		OrganisationID: rec.Student.OrganisationID,
		StudentID:      rec.Student.ID,
		AudioURL:       rec.AudioURL,
		Created:        unixNano(rec.Created),
		Updated:        unixNano(rec.Updated),
	})
}

func decode(b []byte) (*itslanguage.SpeechRecording, error) {
	var r record
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("history: decode: %w", err)
	}
	return &itslanguage.SpeechRecording{
		ID:          r.ID,
		ChallengeID: r.ChallengeID,
		Student: itslanguage.Student{
			ID:             r.StudentID,
			OrganisationID: r.OrganisationID,
		},
		AudioURL: r.AudioURL,
		Created:  fromUnixNano(r.Created),
		Updated:  fromUnixNano(r.Updated),
	}, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
