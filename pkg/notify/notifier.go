package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers user-facing messages. Delivery is best-effort:
// callers log failures and never surface them.
type Notifier interface {
	// SendSMS sends a text message to a single phone number.
	SendSMS(ctx context.Context, phone, message string) error
	// Broadcast publishes a message to a named topic.
	Broadcast(ctx context.Context, topic, message string) error
}

// LogNotifier writes notifications to the log. It is the fallback when no
// broker is configured.
type LogNotifier struct{}

func (LogNotifier) SendSMS(_ context.Context, phone, message string) error {
	slog.Info("sms", "to", maskPhone(phone), "message", message)
	return nil
}

func (LogNotifier) Broadcast(_ context.Context, topic, message string) error {
	slog.Info("broadcast", "topic", topic, "message", message)
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
