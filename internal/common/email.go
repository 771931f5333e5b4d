package common

// EmailSender delivers a single HTML message.
type EmailSender interface {
	Send(to, subject, html string) error
}

// Email is one message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// InMemoryEmail records messages instead of sending them. Used by tests
// asserting on receipt delivery.
type InMemoryEmail struct {
	Outbox []Email
}

func (m *InMemoryEmail) Send(to, subject, html string) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// NopEmailSender drops messages. Stands in when a store has no outbound
// mail configured.
type NopEmailSender struct{}

func (NopEmailSender) Send(string, string, string) error { return nil }
