package schedule

import (
	"sync"
	"time"
)

// DeDup is a thread safe set of running schedules, prevents overlapping runs of the same schedule
type DeDup struct {
	active map[string]time.Time
	lock   sync.Mutex
}

// NewDeDup creates DeDup
func NewDeDup() *DeDup {
	return &DeDup{active: make(map[string]time.Time)}
}

// Add key to the set, fail if already in
func (d *DeDup) Add(key string) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	if _, found := d.active[key]; found {
		return false
	}
	d.active[key] = time.Now()
	return true
}

// Remove key from the set. Safe to call multiple times
func (d *DeDup) Remove(key string) {
	d.lock.Lock()
	defer d.lock.Unlock()
	delete(d.active, key)
}

// Since returns when the key was added, zero time if not in the set
func (d *DeDup) Since(key string) time.Time {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.active[key]
}
