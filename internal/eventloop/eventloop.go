// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package eventloop is connd's single-threaded cooperative dispatcher
// (spec.md §2.A, §5). Every other component registers timers, fd-readiness
// watches and deferred tasks here instead of spawning its own goroutine
// loop; this keeps property-changed ordering and "never block the loop"
// guarantees centralized in one place, the way the teacher centralizes
// crash/lifecycle bookkeeping in internal/supervisor.
package eventloop

import (
	"container/heap"
	"sync"
	"time"
)

// Interest describes which fd conditions a Watch cares about.
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable
	Hangup
	ErrCond
	Invalid
)

// Result tells the Loop whether to keep a handler registered.
type Result int

const (
	Continue Result = iota
	Remove
)

// TimerFunc is invoked when a timer's deadline elapses.
type TimerFunc func() Result

// FDFunc is invoked when a watched fd becomes ready for one of its
// registered interests.
type FDFunc func(ready Interest) Result

// IdleFunc is invoked once, the next time the loop is otherwise idle.
type IdleFunc func()

type timerEntry struct {
	deadline time.Time
	fn       TimerFunc
	index    int
	interval time.Duration // 0 for one-shot
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x any)        { e := x.(*timerEntry); e.index = len(*h); *h = append(*h, e) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

type fdWatch struct {
	fd       int
	interest Interest
	fn       FDFunc
}

// Loop is the cooperative dispatcher. All methods except Run/Stop are safe
// to call from within a handler running on the loop (re-entrant
// registration, spec.md §4.A); calling them from another goroutine requires
// going through Post.
type Loop struct {
	mu      sync.Mutex
	timers  timerHeap
	watches map[int]*fdWatch
	idle    []IdleFunc
	posted  chan func()
	stop    chan struct{}
	wake    chan struct{}

	pollFDs PollFunc
}

// PollFunc abstracts the underlying readiness multiplexer (epoll/kqueue/
// select) so tests can inject a fake poller. It blocks until at least one
// watched fd in fds is ready or timeout elapses, returning the ready subset.
type PollFunc func(fds map[int]Interest, timeout time.Duration) map[int]Interest

// New creates a Loop. poll is the fd-readiness backend; pass nil to use a
// Loop driven purely by timers, idle tasks and Post (suitable for
// components that never register raw fds directly, such as the service
// model and firewall engine).
func New(poll PollFunc) *Loop {
	return &Loop{
		watches: make(map[int]*fdWatch),
		posted:  make(chan func(), 256),
		stop:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
		pollFDs: poll,
	}
}

// Post schedules fn to run on the loop goroutine, ASAP. Safe to call from
// any goroutine; this is the only thread-safe entry point into a running
// Loop from outside its own callbacks.
func (l *Loop) Post(fn func()) {
	select {
	case l.posted <- fn:
	default:
		// Backstop: never let Post block a caller indefinitely.
		go func() { l.posted <- fn }()
	}
	l.wakeUp()
}

// AddTimer arms fn to fire once after d.
func (l *Loop) AddTimer(d time.Duration, fn TimerFunc) {
	l.mu.Lock()
	heap.Push(&l.timers, &timerEntry{deadline: time.Now().Add(d), fn: fn})
	l.mu.Unlock()
	l.wakeUp()
}

// AddTicker arms fn to fire repeatedly every d until it returns Remove.
func (l *Loop) AddTicker(d time.Duration, fn TimerFunc) {
	l.mu.Lock()
	heap.Push(&l.timers, &timerEntry{deadline: time.Now().Add(d), fn: fn, interval: d})
	l.mu.Unlock()
	l.wakeUp()
}

// AddIdle queues fn to run the next time the loop has no ready timer, fd or
// posted work (spec.md §2.A "deferred idle tasks").
func (l *Loop) AddIdle(fn IdleFunc) {
	l.mu.Lock()
	l.idle = append(l.idle, fn)
	l.mu.Unlock()
	l.wakeUp()
}

// Watch registers fd for the given interests; fn fires whenever poll
// reports any of them ready. Returning Remove from fn detaches the watch.
func (l *Loop) Watch(fd int, interest Interest, fn FDFunc) {
	l.mu.Lock()
	l.watches[fd] = &fdWatch{fd: fd, interest: interest, fn: fn}
	l.mu.Unlock()
	l.wakeUp()
}

// Unwatch detaches any watch registered for fd.
func (l *Loop) Unwatch(fd int) {
	l.mu.Lock()
	delete(l.watches, fd)
	l.mu.Unlock()
}

func (l *Loop) wakeUp() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drives the loop until Stop is called. It is meant to be the last
// call in main(); all daemon components are wired up before calling Run.
func (l *Loop) Run() {
	for {
		select {
		case <-l.stop:
			return
		default:
		}
		l.runOnce()
	}
}

// Stop breaks Run out of its dispatch loop after the current iteration.
func (l *Loop) Stop() {
	close(l.stop)
	l.wakeUp()
}

func (l *Loop) runOnce() {
	// Drain posted work first; it has no deadline and represents
	// already-ready cross-goroutine completions (bus replies, DNS
	// resolutions, etc).
	for {
		select {
		case fn := <-l.posted:
			fn()
			continue
		default:
		}
		break
	}

	l.mu.Lock()
	var nextTimer *timerEntry
	if l.timers.Len() > 0 {
		nextTimer = l.timers[0]
	}
	idle := l.idle
	l.idle = nil
	fds := make(map[int]Interest, len(l.watches))
	for fd, w := range l.watches {
		fds[fd] = w.interest
	}
	l.mu.Unlock()

	now := time.Now()
	if nextTimer != nil && !nextTimer.deadline.After(now) {
		l.fireTimer(nextTimer)
		return
	}

	if len(idle) > 0 && nextTimer == nil && len(fds) == 0 {
		for _, fn := range idle {
			fn()
		}
		return
	}
	for _, fn := range idle {
		fn()
	}

	timeout := 100 * time.Millisecond
	if nextTimer != nil {
		if d := nextTimer.deadline.Sub(now); d < timeout {
			timeout = d
		}
	}

	if l.pollFDs == nil || len(fds) == 0 {
		select {
		case <-l.wake:
		case <-time.After(timeout):
		case <-l.stop:
		}
		return
	}

	ready := l.pollFDs(fds, timeout)
	for fd, interest := range ready {
		l.mu.Lock()
		w, ok := l.watches[fd]
		l.mu.Unlock()
		if !ok {
			continue
		}
		if w.fn(interest) == Remove {
			l.mu.Lock()
			if l.watches[fd] == w {
				delete(l.watches, fd)
			}
			l.mu.Unlock()
		}
	}
}

func (l *Loop) fireTimer(e *timerEntry) {
	l.mu.Lock()
	heap.Pop(&l.timers)
	l.mu.Unlock()

	if e.fn() == Continue && e.interval > 0 {
		l.mu.Lock()
		e.deadline = time.Now().Add(e.interval)
		heap.Push(&l.timers, e)
		l.mu.Unlock()
	}
}
