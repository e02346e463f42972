package history

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

// Memory is an in-memory Store. It is safe for concurrent use and intended
// for tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, rec *itslanguage.SpeechRecording) error {
	k, err := recordKey(rec)
	if err != nil {
		return err
	}
	v, err := encode(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[string(k)] = v
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, org, challenge, id string) (*itslanguage.SpeechRecording, error) {
	k, err := key(org, challenge, id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	v, ok := m.data[string(k)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(v)
}

func (m *Memory) List(_ context.Context, org, challenge string) iter.Seq2[*itslanguage.SpeechRecording, error] {
	p, err := prefix(org, challenge)
	if err != nil {
		return func(yield func(*itslanguage.SpeechRecording, error) bool) { yield(nil, err) }
	}

	// Snapshot under the read lock; values are never mutated in place.
	m.mu.RLock()
	var keys []string
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), p) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = m.data[k]
	}
	m.mu.RUnlock()

	return func(yield func(*itslanguage.SpeechRecording, error) bool) {
		for _, v := range values {
			if !yield(decode(v)) {
				return
			}
		}
	}
}

func (m *Memory) Delete(_ context.Context, org, challenge, id string) error {
	k, err := key(org, challenge, id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, string(k))
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	return nil
}
