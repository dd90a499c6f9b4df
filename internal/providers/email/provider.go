package email

import "context"

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Provider interface {
	Send(ctx context.Context, to []string, subject, htmlBody string, attachments ...Attachment) error
	TestConnection(ctx context.Context) error
}

// NoOpProvider swallows sends. Wired when email is disabled so callers never
// branch on configuration.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject, htmlBody string, attachments ...Attachment) error {
	return nil
}

func (p *NoOpProvider) TestConnection(ctx context.Context) error {
	return nil
}
