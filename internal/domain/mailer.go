package domain

// Mailer sends plain notification email. Implementations may use SES or a
// no-op for development.
type Mailer interface {
	Send(to, subject, html, text string) error
}
