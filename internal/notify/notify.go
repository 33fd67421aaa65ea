// Package notify abstracts report delivery. The engine hands finished
// reports to a Sender; the SMTP transport itself lives outside this
// module, so the default implementation records deliveries in the log.
package notify

import (
	"context"

	"github.com/xldl/etf-rotor/pkg/logger"
)

// Message is one rendered report ready for delivery.
type Message struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers a report to subscribers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes deliveries to the structured log. Used wherever no
// real transport is wired in.
type LogSender struct {
	logger *logger.Logger
}

// NewLogSender creates a log-backed sender.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{logger: log.WithField("module", "notify")}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.WithFields(map[string]interface{}{
		"subject":    msg.Subject,
		"html_bytes": len(msg.HTMLBody),
	}).Info("Report ready for delivery")
	s.logger.Info("\n" + msg.TextBody)
	return nil
}
