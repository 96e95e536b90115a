package session

import (
	"context"
	"sync"
	"time"

	"confhub-chat-client/internal/dto"
)

// TickerFactory lets tests drive the confirmation countdown manually.
// The returned func stops the ticker.
type TickerFactory func(d time.Duration) (<-chan time.Time, func())

func RealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// EmailConfirmation tracks the pending send-email confirmation dialog.
//
// idle -> pending (gateway asks for confirmation, countdown starts)
// pending -> resolved_confirmed / resolved_cancelled (user action)
// pending -> resolved_timeout (countdown hits zero, dismissed locally
// WITHOUT notifying the gateway; the gateway enforces its own timeout)
//
// Terminal states discard the record; a new request starts a fresh cycle.
type EmailConfirmation struct {
	mu        sync.Mutex
	pending   *dto.ConfirmSendEmailAction
	remaining int
	stop      chan struct{}

	newTicker TickerFactory
	onTick    func(remaining int)
	onTimeout func(action dto.ConfirmSendEmailAction)
}

func NewEmailConfirmation(newTicker TickerFactory, onTick func(int), onTimeout func(dto.ConfirmSendEmailAction)) *EmailConfirmation {
	if newTicker == nil {
		newTicker = RealTicker
	}
	return &EmailConfirmation{
		newTicker: newTicker,
		onTick:    onTick,
		onTimeout: onTimeout,
	}
}

// Pending returns a copy of the pending record, if any.
func (c *EmailConfirmation) Pending() (dto.ConfirmSendEmailAction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return dto.ConfirmSendEmailAction{}, false
	}
	return *c.pending, true
}

func (c *EmailConfirmation) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Begin starts a fresh confirmation cycle, replacing any stale one. The
// countdown ticks once per second from ceil(timeoutMs/1000) down to zero.
func (c *EmailConfirmation) Begin(ctx context.Context, action dto.ConfirmSendEmailAction) {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
	}
	stored := action
	c.pending = &stored
	c.remaining = (action.TimeoutMs + 999) / 1000
	c.stop = make(chan struct{})
	stop := c.stop
	c.mu.Unlock()

	go c.countdown(ctx, stop)
}

func (c *EmailConfirmation) countdown(ctx context.Context, stop chan struct{}) {
	tick, cancel := c.newTicker(time.Second)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-tick:
			c.mu.Lock()
			if c.stop != stop {
				// A newer cycle took over.
				c.mu.Unlock()
				return
			}
			c.remaining--
			remaining := c.remaining
			var timedOut *dto.ConfirmSendEmailAction
			if remaining <= 0 {
				expired := *c.pending
				timedOut = &expired
				c.pending = nil
				c.stop = nil
			}
			c.mu.Unlock()

			if timedOut != nil {
				if c.onTimeout != nil {
					c.onTimeout(*timedOut)
				}
				return
			}
			if c.onTick != nil {
				c.onTick(remaining)
			}
		}
	}
}

// Dismiss discards the pending record and stops the countdown. Used for
// explicit user confirm/cancel, which close the dialog immediately.
func (c *EmailConfirmation) Dismiss() (dto.ConfirmSendEmailAction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return dto.ConfirmSendEmailAction{}, false
	}
	action := *c.pending
	c.pending = nil
	close(c.stop)
	c.stop = nil
	return action, true
}

// Resolve handles a gateway-pushed result: only a matching confirmationId
// closes the dialog, so a stale result cannot tear down a newer, still
// pending confirmation.
func (c *EmailConfirmation) Resolve(confirmationId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil || c.pending.ConfirmationId != confirmationId {
		return false
	}
	c.pending = nil
	close(c.stop)
	c.stop = nil
	return true
}
