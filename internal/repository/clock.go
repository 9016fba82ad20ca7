package repository

import (
	"fmt"
	"sync"
	"time"
)

// idClock hands out strictly increasing millisecond timestamps within one
// process, so two notes created in the same millisecond get distinct names.
type idClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newIDClock(now func() time.Time) *idClock {
	if now == nil {
		now = time.Now
	}
	return &idClock{now: now}
}

// Next returns a timestamp later than every previous one.
func (c *idClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}

// stamp formats t as YYYYMMDDhhmmssmmm.
func stamp(t time.Time) string {
	return t.Format("20060102150405") + fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
}
