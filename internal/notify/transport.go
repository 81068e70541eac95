package notify

import "github.com/sirupsen/logrus"

// EmailSender delivers one email. The concrete provider lives outside
// this module; implementations report success with a bool and never
// panic into the dispatcher.
type EmailSender interface {
	SendEmail(to, subject, html, text string) bool
}

// SMSSender delivers one SMS.
type SMSSender interface {
	SendSMS(to, text string) bool
}

// LogEmailSender is the default transport: it only logs the attempt.
// Used in development and as a stand-in until a provider is wired.
type LogEmailSender struct{}

func (LogEmailSender) SendEmail(to, subject, html, text string) bool {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Email dispatched")
	return true
}

// LogSMSSender is the default SMS transport, logging only.
type LogSMSSender struct{}

func (LogSMSSender) SendSMS(to, text string) bool {
	logrus.WithFields(logrus.Fields{
		"to": to,
	}).Info("SMS dispatched")
	return true
}
