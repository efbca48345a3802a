package push

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
)

// Pusher delivers a push message to a set of device tokens.
type Pusher interface {
	Push(ctx context.Context, tokens []string, title, body string) error
}

// FCM pushes through Firebase Cloud Messaging.
type FCM struct {
	Client *messaging.Client
	Logger *slog.Logger
}

func (f FCM) Push(ctx context.Context, tokens []string, title, body string) error {
	if len(tokens) == 0 {
		return nil
	}
	resp, err := f.Client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	})
	if err != nil {
		return fmt.Errorf("fcm multicast: %w", err)
	}
	if resp.FailureCount > 0 {
		f.Logger.Warn("fcm partial delivery", "sent", resp.SuccessCount, "failed", resp.FailureCount)
	}
	return nil
}

// Noop is used when Firebase is not configured.
type Noop struct{}

func (Noop) Push(ctx context.Context, tokens []string, title, body string) error {
	return nil
}
