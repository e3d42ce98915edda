// internal/errors/errors.go
package appErrors

import "fmt"

// ValidationError rejects a malformed request before any side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Helper constructor
func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// TemplateSyntaxError aborts the whole request when the template markup is
// malformed; nothing is sent partially.
type TemplateSyntaxError struct {
	Detail string
}

func (e *TemplateSyntaxError) Error() string {
	return fmt.Sprintf("template syntax error: %s", e.Detail)
}

// NoValidDestinations means every destination was dropped by the consent
// gate; nothing was sent or persisted.
type NoValidDestinations struct{}

func (e *NoValidDestinations) Error() string {
	return "there are no destinations or all destinations are unsubscribed"
}

// QuotaExceeded aborts the request before any send or persistence when the
// remaining daily allowance cannot cover the recipients.
type QuotaExceeded struct {
	Available  int
	Recipients int
}

func (e *QuotaExceeded) Error() string {
	return fmt.Sprintf("daily send quota exceeded: %d available, %d requested", e.Available, e.Recipients)
}

// ProviderSendError is a per-recipient dispatch failure. It does not abort
// sibling recipients; the aggregate response reports it per destination.
type ProviderSendError struct {
	Recipient string
	Err       error
}

func (e *ProviderSendError) Error() string {
	return fmt.Sprintf("provider send to %s failed: %v", e.Recipient, e.Err)
}

func (e *ProviderSendError) Unwrap() error { return e.Err }

// ConsumerParseError marks a feedback message that could not be parsed.
// Non-fatal: it is logged and the message is still acknowledged so it does
// not loop forever.
type ConsumerParseError struct {
	Detail string
}

func (e *ConsumerParseError) Error() string {
	return fmt.Sprintf("unparseable feedback notification: %s", e.Detail)
}
