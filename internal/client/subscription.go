package client

import (
	"sync"

	"github.com/san-kum/pendlab/internal/chain"
)

// Subscription is a cancellable stream of full-state snapshots for one
// view-mount. The stream is conceptually infinite and non-restartable: once
// closed (by Unsubscribe or a connection failure) a new subscription must be
// opened.
//
// Delivery is latest-wins: the channel holds at most one snapshot and a
// newer one displaces an unconsumed older one, so a slow consumer always
// sees current state and never a backlog. Each received snapshot is a
// complete replacement of the previous, never a diff.
type Subscription struct {
	snapshots chan chain.Snapshot
	client    *Client

	mu     sync.Mutex
	closed bool
	err    error
}

// Snapshots is the stream. It closes when the subscription ends; check Err
// afterwards to distinguish teardown from failure.
func (s *Subscription) Snapshots() <-chan chain.Snapshot {
	return s.snapshots
}

// Err reports why the stream closed. Nil after a plain Unsubscribe.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Unsubscribe ends the stream and detaches it from the connection. Safe to
// call more than once and safe concurrently with delivery.
func (s *Subscription) Unsubscribe() {
	s.closeWith(nil)

	c := s.client
	c.mu.Lock()
	if c.sub == s {
		c.sub = nil
	}
	c.mu.Unlock()
}

func (s *Subscription) offer(snap chain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.snapshots <- snap:
			return
		default:
		}
		// drop the stale snapshot and retry
		select {
		case <-s.snapshots:
		default:
		}
	}
}

func (s *Subscription) closeWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.snapshots)
}
