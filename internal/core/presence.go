package core

import (
	"sort"
	"sync"
)

// Presence maps usernames to their live connection. A username has at most
// one connection; a newer connect replaces the older one.
type Presence struct {
	mu       sync.RWMutex
	byName   map[string]*Client
	byClient map[*Client]string
}

// NewPresence returns an empty registry.
func NewPresence() *Presence {
	return &Presence{
		byName:   make(map[string]*Client),
		byClient: make(map[*Client]string),
	}
}

// Connect registers c under username. Any earlier name held by c is released.
// It returns the connection that previously held username, if it was a different one.
// A client that is already closed is not registered and ok is false.
func (p *Presence) Connect(username string, c *Client) (superseded *Client, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Close happens before Disconnect takes the lock, so a client closed
	// after this check is still removed by its Disconnect.
	select {
	case <-c.Done():
		return nil, false
	default:
	}

	if prev, ok := p.byClient[c]; ok && prev != username {
		delete(p.byName, prev)
	}
	if old, ok := p.byName[username]; ok && old != c {
		delete(p.byClient, old)
		superseded = old
	}
	p.byName[username] = c
	p.byClient[c] = username

	onlineUsers.Set(float64(len(p.byName)))
	return superseded, true
}

// Disconnect removes c. It is a no-op when c is not registered, which is the
// case after it was superseded.
func (p *Presence) Disconnect(c *Client) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	username, ok := p.byClient[c]
	if !ok {
		return "", false
	}
	delete(p.byClient, c)
	if p.byName[username] == c {
		delete(p.byName, username)
	}

	onlineUsers.Set(float64(len(p.byName)))
	return username, true
}

// IsOnline reports whether username has a live connection.
func (p *Presence) IsOnline(username string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byName[username]
	return ok
}

// Lookup returns the connection registered for username.
func (p *Presence) Lookup(username string) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.byName[username]
	return c, ok
}

// Snapshot returns the online usernames in sorted order.
func (p *Presence) Snapshot() []string {
	p.mu.RLock()
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	p.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Clients returns every registered connection.
func (p *Presence) Clients() []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Client, 0, len(p.byClient))
	for c := range p.byClient {
		out = append(out, c)
	}
	return out
}

// Len returns the number of online users.
func (p *Presence) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byName)
}

// Clear empties the registry and returns the connections it held.
func (p *Presence) Clear() []*Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Client, 0, len(p.byClient))
	for c := range p.byClient {
		out = append(out, c)
	}
	p.byName = make(map[string]*Client)
	p.byClient = make(map[*Client]string)

	onlineUsers.Set(0)
	return out
}
