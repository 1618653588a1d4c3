package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// SMTPSender delivers messages through a plain SMTP relay.
type SMTPSender struct {
	Addr string // host:port of the relay
}

// Deliver sends the message, honoring ctx cancellation by running the SMTP
// exchange in a goroutine.
func (s *SMTPSender) Deliver(ctx context.Context, msg Message) error {
	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		msg.From, msg.Recipient, msg.Subject, msg.Body)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.Addr, nil, msg.From, []string{msg.Recipient}, []byte(raw))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// LogSender writes messages to the log instead of delivering them. Used in
// development and test environments where no relay is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Deliver(_ context.Context, msg Message) error {
	if s.Logger != nil {
		s.Logger.Info("notification (log sender)",
			slog.String("to", msg.Recipient),
			slog.String("subject", msg.Subject),
		)
	}
	return nil
}
