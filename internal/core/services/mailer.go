package services

import (
	"context"
	"time"

	"e2e-transit/internal/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Mailer delivers a plain-text email
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// mailTimeout bounds a single background delivery
const mailTimeout = 30 * time.Second

// dispatchFunc runs fn outside the request. Tests swap in a synchronous one.
type dispatchFunc func(fn func())

func goDispatch(fn func()) {
	go fn()
}

// sendMailAsync delivers in the background. Failures are logged only.
func sendMailAsync(dispatch dispatchFunc, mailer Mailer, to, subject, body string) {
	if mailer == nil {
		logger.Warnf("Mailer not configured, dropping mail to %s", to)
		return
	}

	dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		if err := mailer.Send(ctx, to, subject, body); err != nil {
			logger.WithFields(logrus.Fields{
				"to":      to,
				"subject": subject,
			}).WithError(err).Error("Mail delivery failed")
			return
		}
		logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Debug("Mail sent")
	})
}
