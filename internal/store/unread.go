package store

import "sync"

// CountUnread returns how many notifications have read=false.
func CountUnread(notifications []Entity) int {
	n := 0
	for _, e := range notifications {
		if !e.Bool("read") {
			n++
		}
	}
	return n
}

// Unread is the badge count shown on a dashboard. It never goes below zero.
type Unread struct {
	mu sync.Mutex
	n  int
}

// Recount resets the badge to the unread notifications in the list.
func (u *Unread) Recount(notifications []Entity) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.n = CountUnread(notifications)
	return u.n
}

func (u *Unread) Increment() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.n++
	return u.n
}

// Decrement lowers the badge by one after the backend confirmed a
// mark-as-read.
func (u *Unread) Decrement() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.n > 0 {
		u.n--
	}
	return u.n
}

func (u *Unread) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.n = 0
}

func (u *Unread) Value() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.n
}
