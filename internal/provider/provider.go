package provider

import "context"

// Message is a fully rendered email ready for transport.
type Message struct {
	To       string
	Subject  string
	HTML     string
	Text     string
	Metadata map[string]string
}

// Response stores provider call metadata for audit and persistence.
type Response struct {
	MessageID  string
	StatusCode int
	Body       string
}

// Provider is the outbound email delivery port.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) (*Response, error)
}
