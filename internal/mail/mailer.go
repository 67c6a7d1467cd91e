// Package mail sends transactional email. Delivery mechanics live behind the
// Mailer interface; the rest of the service only composes subjects and bodies.
package mail

import "context"

// Mailer delivers one HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
