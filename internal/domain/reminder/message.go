package reminder

import "context"

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// TemplateRenderer renders a template by key. ok is false when the template
// is missing or disabled, which callers treat as a skip rather than a failure.
type TemplateRenderer interface {
	Render(ctx context.Context, key string, placeholders map[string]string) (msg Message, ok bool, err error)
}

// Channel delivers a rendered message to an address.
type Channel interface {
	Send(ctx context.Context, address string, msg Message) error
}
