package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"girder/internal/events"
	"girder/internal/models"
)

// Listeners connects the event bus to the notification gateway and the
// real-time refresh channels. Delivery failures are logged, never propagated
// back into the workflow that published the event.
type Listeners struct {
	gateway  *Gateway
	notifier *Notifier
	logger   *slog.Logger
}

// NewListeners creates the set of bus subscribers for outbound notifications.
func NewListeners(gateway *Gateway, notifier *Notifier, logger *slog.Logger) *Listeners {
	return &Listeners{gateway: gateway, notifier: notifier, logger: logger}
}

// Attach registers all subscribers on the bus.
func (l *Listeners) Attach(bus *events.Bus) {
	bus.Subscribe(events.KindAccessRequestSubmitted, "notify.request_submitted", l.onRequestSubmitted)
	bus.Subscribe(events.KindAccessRequestDecided, "notify.request_decided", l.onRequestDecided)
	bus.Subscribe(events.KindAccessRequestRevoked, "notify.request_revoked", l.onRequestRevoked)
	bus.Subscribe(events.KindUserActivated, "notify.user_activated", l.onUserActivated)
	bus.Subscribe(events.KindUserDeactivated, "notify.user_deactivated", l.onUserDeactivated)
}

func (l *Listeners) onRequestSubmitted(e events.Event) {
	l.sendRequestMail(e, TemplateRequestSubmitted)
	l.publishRefresh(e)
}

func (l *Listeners) onRequestDecided(e events.Event) {
	if e.Request == nil {
		return
	}
	switch e.Request.Status {
	case models.AccessRequestStatusApproved:
		l.sendRequestMail(e, TemplateRequestApproved)
	case models.AccessRequestStatusRejected:
		l.sendRequestMail(e, TemplateRequestRejected)
	}
	l.publishRefresh(e)
}

func (l *Listeners) onRequestRevoked(e events.Event) {
	l.sendRequestMail(e, TemplateRequestRevoked)
	l.publishRefresh(e)
}

func (l *Listeners) onUserActivated(e events.Event) {
	l.sendAccountMail(e, TemplateAccountActivated)
}

func (l *Listeners) onUserDeactivated(e events.Event) {
	l.sendAccountMail(e, TemplateAccountDisabled)
}

func (l *Listeners) sendRequestMail(e events.Event, templateID string) {
	if l.gateway == nil || e.Request == nil || e.Request.Contact == nil {
		return
	}

	projectName := ""
	if e.Request.Project != nil {
		projectName = e.Request.Project.Name
	}

	_, err := l.gateway.Send(context.Background(), templateID, e.Request.Contact.Email, map[string]interface{}{
		"ProjectName": projectName,
		"Role":        e.Request.RequestedRole,
		"ReferenceID": e.Request.ReferenceID,
	})
	if err != nil && l.logger != nil {
		l.logger.Warn("notification send rejected",
			slog.String("template", templateID),
			slog.String("event", e.Name),
			slog.String("error", err.Error()),
		)
	}
}

func (l *Listeners) sendAccountMail(e events.Event, templateID string) {
	if l.gateway == nil || e.User == nil {
		return
	}
	if _, err := l.gateway.Send(context.Background(), templateID, e.User.Email, nil); err != nil && l.logger != nil {
		l.logger.Warn("notification send rejected",
			slog.String("template", templateID),
			slog.String("event", e.Name),
			slog.String("error", err.Error()),
		)
	}
}

// publishRefresh pushes a small payload to the contact's refresh channel so
// open UIs can reload the request list.
func (l *Listeners) publishRefresh(e events.Event) {
	if l.notifier == nil || e.Request == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":         e.Name,
		"reference_id": e.Request.ReferenceID,
		"status":       e.Request.Status,
	})
	if err != nil {
		return
	}

	if err := l.notifier.PublishUser(context.Background(), e.Request.ContactID, string(payload)); err != nil && l.logger != nil {
		l.logger.Warn("refresh publish failed",
			slog.String("event", e.Name),
			slog.String("error", err.Error()),
		)
	}
}
