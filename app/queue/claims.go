package queue

import (
	"sync"
	"time"
)

// Claims is a thread safe set of jobs taken by the watcher, prevents double execution of a descriptor
type Claims struct {
	active map[string]time.Time
	lock   sync.Mutex
}

// NewClaims makes empty Claims
func NewClaims() *Claims {
	return &Claims{active: make(map[string]time.Time)}
}

// Add claims the job, fails if already claimed
func (c *Claims) Add(jobID string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, found := c.active[jobID]; found {
		return false
	}
	c.active[jobID] = time.Now()
	return true
}

// Remove releases the job. Safe to call multiple times
func (c *Claims) Remove(jobID string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.active, jobID)
}

// Has reports whether the job is claimed
func (c *Claims) Has(jobID string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, found := c.active[jobID]
	return found
}

// Len returns number of claimed jobs
func (c *Claims) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.active)
}
