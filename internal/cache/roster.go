package cache

import "sync"

// Roster maps guild member accounts to their rank
type Roster struct {
	mu      sync.RWMutex
	members map[string]string
}

// NewRoster creates an empty Roster
func NewRoster() *Roster {
	return &Roster{
		members: make(map[string]string),
	}
}

// Get retrieves a member's rank by account name
func (c *Roster) Get(account string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rank, ok := c.members[account]
	return rank, ok
}

// Set stores a member's rank
func (c *Roster) Set(account, rank string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[account] = rank
}

// Delete removes a member
func (c *Roster) Delete(account string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members, account)
}

// Len returns the number of members
func (c *Roster) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

// Reset clears all members
func (c *Roster) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members = make(map[string]string)
}
