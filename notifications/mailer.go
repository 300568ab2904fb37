package notifications

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrPermanent marks a send failure that retrying cannot fix, such as a
// malformed recipient or a rejected API key.
var ErrPermanent = errors.New("permanent mail failure")

type Message struct {
	Subject string
	Body    string
	From    string
	To      []string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them. It stands in
// for Brevo when no API key is configured.
type LogMailer struct {
	Log *logrus.Logger
}

func (m LogMailer) Send(ctx context.Context, msg Message) error {
	m.Log.WithFields(logrus.Fields{
		"to":      strings.Join(msg.To, ","),
		"from":    msg.From,
		"subject": msg.Subject,
	}).Info("📧 Email (log only)\n" + msg.Body)
	return nil
}
