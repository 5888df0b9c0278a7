package executor

// chunkQueue is an unbounded, order-preserving delivery channel between the
// streaming producer task and the consumer. Pushes never block the producer;
// a consumer that stops reading simply leaves chunks buffered until the
// producer finishes. Nothing is ever dropped.
type chunkQueue struct {
	in  chan CompletionChunk
	out chan CompletionChunk
}

func newChunkQueue() *chunkQueue {
	q := &chunkQueue{
		in:  make(chan CompletionChunk),
		out: make(chan CompletionChunk),
	}
	go q.pump()
	return q
}

// pump shuttles chunks from in to out through an elastic buffer, closing out
// once in is closed and the buffer is drained.
func (q *chunkQueue) pump() {
	var buf []CompletionChunk
	in := q.in

	for in != nil || len(buf) > 0 {
		var out chan CompletionChunk
		var next CompletionChunk
		if len(buf) > 0 {
			out = q.out
			next = buf[0]
		}

		select {
		case ck, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, ck)
		case out <- next:
			buf = buf[1:]
		}
	}
	close(q.out)
}

// push enqueues a chunk. The pump goroutine is always ready to receive, so
// this returns promptly regardless of consumer progress.
func (q *chunkQueue) push(ck CompletionChunk) {
	q.in <- ck
}

// close signals that no further chunks will be pushed. The out channel closes
// after the remaining buffer drains.
func (q *chunkQueue) close() {
	close(q.in)
}
