// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerFiresOnce(t *testing.T) {
	l := New(nil)
	fired := make(chan struct{}, 1)
	l.AddTimer(10*time.Millisecond, func() Result {
		fired <- struct{}{}
		return Remove
	})
	go l.Run()
	defer l.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestTickerRepeats(t *testing.T) {
	l := New(nil)
	count := make(chan int, 10)
	n := 0
	l.AddTicker(5*time.Millisecond, func() Result {
		n++
		count <- n
		if n >= 3 {
			return Remove
		}
		return Continue
	})
	go l.Run()
	defer l.Stop()

	for want := 1; want <= 3; want++ {
		select {
		case got := <-count:
			require.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("ticker did not reach %d", want)
		}
	}
}

func TestPostRunsOnLoop(t *testing.T) {
	l := New(nil)
	done := make(chan struct{})
	go l.Run()
	defer l.Stop()

	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("posted function did not run")
	}
}

func TestIdleRunsWhenQuiescent(t *testing.T) {
	l := New(nil)
	ran := make(chan struct{}, 1)
	l.AddIdle(func() { ran <- struct{}{} })
	go l.Run()
	defer l.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("idle task did not run")
	}
}
