package itslanguage

import (
	"context"
	"io"
	"sync"
)

// chunkQueue is an unbounded FIFO of audio chunks fed by recorder callbacks
// and drained by the write loop.
type chunkQueue struct {
	mu          sync.Mutex
	chunks      [][]byte
	closeWrite  bool
	writeNotify chan struct{}
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{
		writeNotify: make(chan struct{}, 1),
	}
}

// push appends a chunk. Chunks pushed after closeWrite are dropped.
func (q *chunkQueue) push(chunk []byte) {
	q.mu.Lock()
	if q.closeWrite {
		q.mu.Unlock()
		return
	}
	q.chunks = append(q.chunks, chunk)
	q.mu.Unlock()
	q.notify()
}

// close marks the end of the stream. Queued chunks are still returned.
func (q *chunkQueue) close() {
	q.mu.Lock()
	q.closeWrite = true
	q.mu.Unlock()
	q.notify()
}

func (q *chunkQueue) notify() {
	select {
	case q.writeNotify <- struct{}{}:
	default:
	}
}

// next returns the oldest chunk, blocking until one is pushed.
// It returns io.EOF once the queue is closed and drained.
func (q *chunkQueue) next(ctx context.Context) ([]byte, error) {
	for {
		q.mu.Lock()
		if len(q.chunks) > 0 {
			chunk := q.chunks[0]
			q.chunks[0] = nil
			q.chunks = q.chunks[1:]
			q.mu.Unlock()
			return chunk, nil
		}
		if q.closeWrite {
			q.mu.Unlock()
			return nil, io.EOF
		}
		q.mu.Unlock()

		select {
		case <-q.writeNotify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
