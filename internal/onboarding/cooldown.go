package onboarding

import (
	"sync"
	"time"
)

// DefaultCooldownSeconds is how long resend stays disabled after a code is sent.
const DefaultCooldownSeconds = 60

// cooldown counts down once per interval on its own goroutine. Stop and
// Close wait for that goroutine, so onTick never runs after they return.
type cooldown struct {
	interval time.Duration
	onTick   func(remaining int)

	mu        sync.Mutex
	remaining int
	closed    bool
	stop      chan struct{}
	done      chan struct{}
}

func newCooldown(interval time.Duration, onTick func(int)) *cooldown {
	if interval <= 0 {
		interval = time.Second
	}
	return &cooldown{interval: interval, onTick: onTick}
}

// Start resets the counter to seconds and restarts the ticker. It does
// nothing once the cooldown is closed.
func (c *cooldown) Start(seconds int) {
	stop := make(chan struct{})
	done := make(chan struct{})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	oldStop, oldDone := c.stop, c.done
	c.stop, c.done = nil, nil
	c.remaining = 0
	if seconds > 0 {
		c.remaining = seconds
		c.stop, c.done = stop, done
	}
	c.mu.Unlock()

	halt(oldStop, oldDone)
	if seconds > 0 {
		go c.run(stop, done)
	}
}

// Remaining returns the seconds left.
func (c *cooldown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Stop cancels the ticker and zeroes the counter. It must not be called
// from onTick.
func (c *cooldown) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.remaining = 0
	c.mu.Unlock()

	halt(stop, done)
}

// Close stops the ticker for good.
func (c *cooldown) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.Stop()
}

func halt(stop, done chan struct{}) {
	if stop != nil {
		close(stop)
		<-done
	}
}

func (c *cooldown) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.remaining > 0 {
			c.remaining--
		}
		left := c.remaining
		c.mu.Unlock()

		if c.onTick != nil {
			c.onTick(left)
		}
		if left == 0 {
			return
		}
	}
}
