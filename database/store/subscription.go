package store

import "sync"

// snapshotQueue delivers snapshots to one subscriber on its own goroutine,
// strictly in the order they were pushed. Producers never block.
type snapshotQueue struct {
	mu      sync.Mutex
	pending [][]Document
	signal  chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newSnapshotQueue(onSnapshot SnapshotFunc) *snapshotQueue {
	q := &snapshotQueue{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run(onSnapshot)
	return q
}

func (q *snapshotQueue) push(docs []Document) {
	q.mu.Lock()
	q.pending = append(q.pending, docs)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *snapshotQueue) close() {
	q.once.Do(func() { close(q.done) })
}

func (q *snapshotQueue) run(onSnapshot SnapshotFunc) {
	for {
		select {
		case <-q.done:
			return
		case <-q.signal:
		}
		for {
			q.mu.Lock()
			if len(q.pending) == 0 {
				q.mu.Unlock()
				break
			}
			next := q.pending[0]
			q.pending = q.pending[1:]
			q.mu.Unlock()

			select {
			case <-q.done:
				return
			default:
			}
			onSnapshot(next)
		}
	}
}
