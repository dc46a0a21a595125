package sim

import (
	"errors"
	"sync"

	"github.com/san-kum/motorsim/internal/config"
)

// ErrLinkClosed is returned by Publish after Close.
var ErrLinkClosed = errors.New("sim: link closed")

// Link carries config snapshots from the observer to the control loop. It
// holds at most one pending snapshot: publishing replaces an unread one, so
// the loop always resets to the latest config.
type Link struct {
	mu     sync.Mutex
	ch     chan config.Config
	closed bool
}

func NewLink() *Link {
	return &Link{ch: make(chan config.Config, 1)}
}

// Publish never blocks.
func (l *Link) Publish(cfg config.Config) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLinkClosed
	}
	for {
		select {
		case l.ch <- cfg:
			return nil
		default:
		}
		// drop the stale snapshot
		select {
		case <-l.ch:
		default:
		}
	}
}

func (l *Link) Updates() <-chan config.Config {
	return l.ch
}

// Close signals that the observer is gone. The control loop exits once it
// has drained any pending snapshot.
func (l *Link) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		l.closed = true
		close(l.ch)
	}
}
