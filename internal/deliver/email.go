package deliver

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/dwinston/dbaudit/internal/config"
	"github.com/dwinston/dbaudit/internal/logger"
)

// EmailSink mails the rendered report to each configured recipient. Every
// recipient gets an individual message; one bad address does not stop the
// rest. The sink fails only when no recipient could be reached.
type EmailSink struct {
	spec *config.EmailSpec
	log  logger.Logger

	// send is swapped out in tests.
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewEmailSink creates an email sink for the given spec. The spec must have
// a host; specs without one are rejected before the sink is constructed.
func NewEmailSink(log logger.Logger, spec *config.EmailSpec) *EmailSink {
	s := &EmailSink{spec: spec, log: log}
	s.send = s.smtpSend
	return s
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, d Delivery) error {
	// Mail clients want self-contained HTML.
	opts := d.Options
	opts.EmailMode = true
	body, err := d.Formatter.Format(d.Report, opts)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	contentType := mail.TypeTextPlain
	if d.Formatter.MIMEType() == "text/html" {
		contentType = mail.TypeTextHTML
	}

	subject := s.spec.Subject
	if subject == "" {
		subject = "dbaudit report"
	}

	sent := 0
	for _, rcpt := range s.spec.To {
		msg := mail.NewMsg()
		if err := msg.From(s.spec.From); err != nil {
			return fmt.Errorf("invalid sender %q: %w", s.spec.From, err)
		}
		if err := msg.To(rcpt); err != nil {
			s.log.Error("invalid recipient "+rcpt, err)
			continue
		}
		msg.Subject(subject)
		msg.SetBodyString(contentType, string(body))

		if err := s.send(ctx, msg); err != nil {
			s.log.Error("sending to "+rcpt+" failed", err)
			continue
		}
		sent++
	}

	if sent == 0 {
		return fmt.Errorf("no message delivered to any of %d recipient(s) via %s:%d",
			len(s.spec.To), s.spec.Host, s.spec.Port)
	}
	s.log.WithField("recipients", sent).Debug("report emailed")
	return nil
}

func (s *EmailSink) smtpSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.spec.Host,
		mail.WithPort(s.spec.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
