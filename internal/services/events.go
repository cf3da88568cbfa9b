package services

import (
	"context"
	"time"

	"github.com/coursehub/apiserver/internal/mq"
	"github.com/sirupsen/logrus"
)

// Event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Publisher is the subset of the message queue used to emit change events.
type Publisher interface {
	PublishEvent(ctx context.Context, ev mq.Event) (string, error)
}

// Events publishes change events. A nil *Events or one without a publisher
// drops events silently.
type Events struct {
	publisher Publisher
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewEvents(publisher Publisher, logger logrus.FieldLogger) *Events {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Events{publisher: publisher, logger: logger, now: time.Now}
}

// Emit publishes the event. The write it describes is already committed,
// so failures are logged and never returned.
func (e *Events) Emit(ctx context.Context, resource, action string, id int) {
	if e == nil || e.publisher == nil {
		return
	}

	ev := mq.Event{Resource: resource, Action: action, ID: id, At: e.now().UTC()}
	msgID, err := e.publisher.PublishEvent(ctx, ev)
	log := e.logger.WithFields(logrus.Fields{
		"resource": resource,
		"action":   action,
		"id":       id,
	})
	if err != nil {
		log.WithError(err).Warn("failed to publish change event")
		return
	}
	log.WithField("message_id", msgID).Debug("published change event")
}
