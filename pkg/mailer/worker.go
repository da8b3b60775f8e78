package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/scopeguard/internal/domain/entity"
	"github.com/oksasatya/scopeguard/pkg/helpers"
)

var (
	// ErrMalformed marks a message that can never be delivered and must be dropped.
	ErrMalformed = errors.New("malformed event")
	// ErrRejected marks a send the provider refused permanently.
	ErrRejected = errors.New("send rejected")
)

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Worker turns registration events into emails.
type Worker struct {
	sender      Sender
	appName     string
	adminEmail  string
	sendTimeout time.Duration
	log         *logrus.Logger
}

func NewWorker(sender Sender, appName, adminEmail string, log *logrus.Logger) *Worker {
	return &Worker{
		sender:      sender,
		appName:     appName,
		adminEmail:  adminEmail,
		sendTimeout: 15 * time.Second,
		log:         log,
	}
}

// Handle processes one message body. Errors wrapping ErrMalformed or
// ErrRejected should not be retried; any other error is transient.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var evt entity.UserRegisteredEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if evt.Type != entity.EventUserRegistered {
		return fmt.Errorf("%w: unexpected type %q", ErrMalformed, evt.Type)
	}
	if evt.Email == "" {
		return fmt.Errorf("%w: missing email", ErrMalformed)
	}

	job := JobForRegistration(evt, w.appName, w.adminEmail)
	subject, text, html, err := job.Render()
	if err != nil {
		return fmt.Errorf("%w: render %s: %v", ErrMalformed, job.Template, err)
	}

	c, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	return w.sender.Send(c, job.To, subject, text, html)
}

// Run consumes msgs until the channel closes or ctx is done. Malformed and
// rejected messages are nacked without requeue. A transient failure is
// requeued once; if the redelivery fails too the message is dropped, which
// dead-letters it when the queue has a dead-letter exchange.
func (w *Worker) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			w.settle(msg, w.Handle(ctx, msg.Body))
		}
	}
}

func (w *Worker) settle(msg amqp.Delivery, err error) {
	fields := logrus.Fields{"delivery_tag": msg.DeliveryTag, "redelivered": msg.Redelivered}
	switch {
	case err == nil:
		helpers.LogInfo(w.log, "notification sent", fields)
		_ = msg.Ack(false)
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrRejected):
		w.log.WithFields(fields).WithError(err).Warn("dropping message")
		_ = msg.Nack(false, false)
	case msg.Redelivered:
		helpers.LogError(w.log, "send failed after redelivery, dropping", err, fields)
		_ = msg.Nack(false, false)
	default:
		helpers.LogError(w.log, "send failed, requeueing", err, fields)
		_ = msg.Nack(false, true)
	}
}
