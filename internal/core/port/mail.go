package port

import "context"

// MailSender dispatches templated transactional email.
type MailSender interface {
	Send(ctx context.Context, template string, recipient string, vars map[string]string) error
}
