package guard

import "sync"

// Navigator tracks the current view and is the single place redirects are performed.
type Navigator struct {
	mu      sync.Mutex
	current string
	onMove  func(from, to string)
}

// NewNavigator starts at path. onMove, if not nil, is called after every move.
func NewNavigator(path string, onMove func(from, to string)) *Navigator {
	return &Navigator{current: path, onMove: onMove}
}

func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Navigate moves to path and reports whether it moved: navigating to the current view is a no-op.
func (n *Navigator) Navigate(path string) bool {
	n.mu.Lock()
	from := n.current
	if from == path {
		n.mu.Unlock()
		return false
	}
	n.current = path
	n.mu.Unlock()

	if n.onMove != nil {
		n.onMove(from, path)
	}
	return true
}
