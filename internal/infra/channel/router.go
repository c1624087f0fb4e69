// Package channel routes reminder messages to the transport that owns an
// address and throttles delivery.
package channel

import (
	"context"
	"fmt"
	"strings"

	"reminder_service/internal/domain/reminder"

	"golang.org/x/time/rate"
)

var ErrUnsupportedAddress = fmt.Errorf("no notification channel for address")

// Router picks a channel by address form: "tg:<chat id>" goes to Telegram,
// anything containing "@" goes to email.
type Router struct {
	Email    reminder.Channel
	Telegram reminder.Channel
}

func (r *Router) Send(ctx context.Context, address string, msg reminder.Message) error {
	address = strings.TrimSpace(address)
	switch {
	case strings.HasPrefix(strings.ToLower(address), "tg:"):
		if r.Telegram == nil {
			return fmt.Errorf("%w: %s (telegram disabled)", ErrUnsupportedAddress, address)
		}
		return r.Telegram.Send(ctx, address, msg)
	case strings.Contains(address, "@"):
		if r.Email == nil {
			return fmt.Errorf("%w: %s (email disabled)", ErrUnsupportedAddress, address)
		}
		return r.Email.Send(ctx, address, msg)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAddress, address)
	}
}

// Throttled waits on a shared limiter before each send so one scan cannot
// flood the relay.
type Throttled struct {
	next    reminder.Channel
	limiter *rate.Limiter
}

// NewThrottled allows perSecond sends per second with a burst of the same size.
// A non-positive rate disables throttling.
func NewThrottled(next reminder.Channel, perSecond int) *Throttled {
	t := &Throttled{next: next}
	if perSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
	return t
}

func (t *Throttled) Send(ctx context.Context, address string, msg reminder.Message) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("send throttled: %w", err)
		}
	}
	return t.next.Send(ctx, address, msg)
}
