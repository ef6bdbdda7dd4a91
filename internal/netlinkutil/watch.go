// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netlinkutil

import (
	"github.com/vishvananda/netlink"

	"grimm.is/connd/internal/errors"
)

// LinkEvent reports a link add/remove/state-change notification, the
// primitive ipconfig's up/down/lower-up/lower-down observers are built on
// (spec.md §4.F).
type LinkEvent struct {
	Link    LinkState
	Removed bool
}

// Watcher streams link-state change notifications from the kernel's
// RTNLGRP_LINK multicast group onto a channel, for the event loop to Post
// onward to whichever ipconfig state machine owns that interface.
type Watcher struct {
	updates chan netlink.LinkUpdate
	done    chan struct{}
}

// WatchLinks subscribes to link notifications. Callers should range over
// Events() from a single goroutine and hand each one to eventloop.Post so
// state transitions happen on the loop rather than this goroutine.
func WatchLinks() (*Watcher, error) {
	updates := make(chan netlink.LinkUpdate)
	done := make(chan struct{})
	if err := netlink.LinkSubscribe(updates, done); err != nil {
		close(done)
		return nil, errors.Wrap(err, errors.KindIO, "netlinkutil: link subscribe failed")
	}
	return &Watcher{updates: updates, done: done}, nil
}

// Events returns the channel of translated LinkEvents. The channel closes
// when Close is called.
func (w *Watcher) Events() <-chan LinkEvent {
	out := make(chan LinkEvent)
	go func() {
		defer close(out)
		for u := range w.updates {
			out <- LinkEvent{
				Link:    stateOf(u.Link),
				Removed: u.Header.Type == 17, // RTM_DELLINK
			}
		}
	}()
	return out
}

// Close stops the subscription.
func (w *Watcher) Close() {
	close(w.done)
}
