// Package channel defines the outbound delivery ports that configured
// integrations resolve to. Each capability has its own sender interface so
// callers depend only on the channel they dispatch through.
package channel

import "context"

// Instance is the common surface of every resolved channel sender.
type Instance interface {
	// IntegrationID returns the identifier of the configuration this
	// instance was created from.
	IntegrationID() string
}

// Receipt stores delivery call metadata for audit and persistence.
type Receipt struct {
	MessageID  string
	StatusCode int
	Body       string
}

// EmailMessage is the payload accepted by email senders.
type EmailMessage struct {
	To      []string
	Cc      []string
	Subject string
	Body    string
	HTML    bool
}

// SMSMessage is the payload accepted by SMS senders.
type SMSMessage struct {
	To   string
	Body string
}

// PushMessage is the payload accepted by push senders.
type PushMessage struct {
	DeviceToken string
	Title       string
	Body        string
	Data        map[string]string
}

// ChatMessage is the payload accepted by chat senders.
type ChatMessage struct {
	Room string
	Body string
}

// EmailSender delivers email messages.
type EmailSender interface {
	Instance
	SendEmail(ctx context.Context, msg EmailMessage) (*Receipt, error)
}

// SMSSender delivers SMS messages.
type SMSSender interface {
	Instance
	SendSMS(ctx context.Context, msg SMSMessage) (*Receipt, error)
}

// PushSender delivers push messages.
type PushSender interface {
	Instance
	SendPush(ctx context.Context, msg PushMessage) (*Receipt, error)
}

// ChatSender delivers chat messages.
type ChatSender interface {
	Instance
	SendChat(ctx context.Context, msg ChatMessage) (*Receipt, error)
}
