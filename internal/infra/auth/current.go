package auth

import "sync"

// CurrentUser holds the signed-in session as a reactive value: the
// route guard reads it, and change listeners fire on sign-in/sign-out.
type CurrentUser struct {
	mu        sync.RWMutex
	session   *Session
	listeners []func(*Session)
}

// NewCurrentUser creates an empty current-user holder.
func NewCurrentUser() *CurrentUser {
	return &CurrentUser{}
}

// Get returns the current session, or nil when signed out.
func (c *CurrentUser) Get() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return nil
	}
	cp := *c.session
	return &cp
}

// SignedIn returns true when a session is present.
func (c *CurrentUser) SignedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil
}

// Set replaces the session (nil signs out) and notifies listeners.
func (c *CurrentUser) Set(s *Session) {
	c.mu.Lock()
	if s == nil {
		c.session = nil
	} else {
		cp := *s
		c.session = &cp
	}
	listeners := make([]func(*Session), len(c.listeners))
	copy(listeners, c.listeners)
	current := c.session
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(current)
	}
}

// OnChange registers a listener invoked on every session change.
func (c *CurrentUser) OnChange(fn func(*Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}
