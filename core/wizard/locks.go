package wizard

import (
	"sync"

	"github.com/m3rciful/woofinder/core/state"
)

// keyLocks hands out one mutex per conversation and forgets it once no
// goroutine holds or waits for it.
type keyLocks struct {
	mu    sync.Mutex
	locks map[state.Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[state.Key]*keyLock)}
}

// lock blocks until key is free and returns the matching unlock func.
func (k *keyLocks) lock(key state.Key) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// maxBacklog bounds the events waiting behind a busy conversation.
const maxBacklog = 32

// queues runs jobs per conversation in push order. A conversation has a
// worker goroutine only while it has pending jobs.
type queues struct {
	mu      sync.Mutex
	closed  bool
	pending map[state.Key][]func()
	wg      sync.WaitGroup
}

func newQueues() *queues {
	return &queues{pending: make(map[state.Key][]func())}
}

func (q *queues) push(key state.Key, job func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrDispatcherClosed
	}
	jobs, running := q.pending[key]
	if len(jobs) >= maxBacklog {
		return ErrBacklogFull
	}
	q.pending[key] = append(jobs, job)
	if !running {
		q.wg.Add(1)
		go q.drain(key)
	}
	return nil
}

func (q *queues) drain(key state.Key) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		jobs := q.pending[key]
		if len(jobs) == 0 {
			delete(q.pending, key)
			q.mu.Unlock()
			return
		}
		job := jobs[0]
		jobs[0] = nil
		q.pending[key] = jobs[1:]
		q.mu.Unlock()
		job()
	}
}

// close refuses new jobs and waits for the queued ones.
func (q *queues) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *queues) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
