// Package notify delivers outbound notifications: templated email through the
// gateway and real-time UI refresh pushes over Redis and websockets.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"text/template"
	"time"

	"girder/internal/observability"
)

// Template identifiers the gateway knows how to render.
const (
	TemplateRequestSubmitted = "access_request_submitted"
	TemplateRequestApproved  = "access_request_approved"
	TemplateRequestRejected  = "access_request_rejected"
	TemplateRequestRevoked   = "access_request_revoked"
	TemplateAccountActivated = "account_activated"
	TemplateAccountDisabled  = "account_deactivated"
	TemplateTest             = "test_email"
)

var templates = map[string]struct {
	Subject string
	Body    string
}{
	TemplateRequestSubmitted: {
		Subject: "Access request received for {{.ProjectName}}",
		Body:    "Your request for {{.Role}} access to {{.ProjectName}} has been received and is awaiting review. Reference: {{.ReferenceID}}",
	},
	TemplateRequestApproved: {
		Subject: "Access granted to {{.ProjectName}}",
		Body:    "Your request for {{.Role}} access to {{.ProjectName}} has been approved. Reference: {{.ReferenceID}}",
	},
	TemplateRequestRejected: {
		Subject: "Access request declined for {{.ProjectName}}",
		Body:    "Your request for {{.Role}} access to {{.ProjectName}} was declined. Reference: {{.ReferenceID}}",
	},
	TemplateRequestRevoked: {
		Subject: "Access revoked for {{.ProjectName}}",
		Body:    "Your {{.Role}} access to {{.ProjectName}} has been revoked. Reference: {{.ReferenceID}}",
	},
	TemplateAccountActivated: {
		Subject: "Your account has been activated",
		Body:    "Your account is active again. You can sign in and access your projects.",
	},
	TemplateAccountDisabled: {
		Subject: "Your account has been deactivated",
		Body:    "Your account has been deactivated. Contact your project manager if you believe this is an error.",
	},
	TemplateTest: {
		Subject: "Girder delivery test",
		Body:    "This is a test message confirming the notification gateway can reach {{.Recipient}}.",
	},
}

// Message is a rendered notification ready for delivery.
type Message struct {
	From      string
	Recipient string
	Subject   string
	Body      string
}

// Result reports the outcome of a gateway send. Delivery failures are data,
// not errors; the workflow that triggered the send never fails because of
// them.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Sender performs the actual delivery of a rendered message.
type Sender interface {
	Deliver(ctx context.Context, msg Message) error
}

// Gateway renders templates and hands them to a Sender under a bounded
// timeout.
type Gateway struct {
	sender  Sender
	from    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGateway creates a notification gateway. A zero timeout defaults to 10
// seconds.
func NewGateway(sender Sender, from string, timeout time.Duration, logger *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{sender: sender, from: from, timeout: timeout, logger: logger}
}

// Send renders templateID with data and delivers it to recipient. It always
// returns a Result; the error return covers only caller mistakes (unknown
// template, bad recipient).
func (g *Gateway) Send(ctx context.Context, templateID, recipient string, data map[string]interface{}) (Result, error) {
	tmpl, ok := templates[templateID]
	if !ok {
		return Result{Success: false, Error: "unknown template"}, fmt.Errorf("unknown notification template %q", templateID)
	}

	if _, err := mail.ParseAddress(recipient); err != nil {
		return Result{Success: false, Error: "invalid recipient address"}, fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}

	if data == nil {
		data = map[string]interface{}{}
	}
	data["Recipient"] = recipient

	subject, err := renderTemplate(templateID+":subject", tmpl.Subject, data)
	if err != nil {
		return Result{Success: false, Error: "template render failed"}, err
	}
	body, err := renderTemplate(templateID+":body", tmpl.Body, data)
	if err != nil {
		return Result{Success: false, Error: "template render failed"}, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg := Message{From: g.from, Recipient: recipient, Subject: subject, Body: body}
	if err := g.sender.Deliver(sendCtx, msg); err != nil {
		observability.NotificationSends.WithLabelValues(templateID, "failure").Inc()
		if g.logger != nil {
			g.logger.Warn("notification delivery failed",
				slog.String("template", templateID),
				slog.String("recipient", recipient),
				slog.String("error", err.Error()),
			)
		}
		return Result{Success: false, Error: err.Error()}, nil
	}

	observability.NotificationSends.WithLabelValues(templateID, "success").Inc()
	return Result{Success: true}, nil
}

func renderTemplate(name, text string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
