package bot

import (
	"context"
	"fmt"

	"github.com/tbourn/go-request-bot/internal/telegram"
)

// Notifier announces completed requests back to the chat the request came
// from. It satisfies services.Notifier.
type Notifier struct {
	Channel Channel
}

// NotifyAvailable tells the requester their title is ready, with a direct
// link button.
func (n *Notifier) NotifyAvailable(ctx context.Context, chatID int64, title, link string) error {
	kb := telegram.Keyboard{{{Text: "View Link", URL: link}}}
	_, err := n.Channel.SendMessage(ctx, chatID, fmt.Sprintf("Great news! %q is available here: %s", title, link), kb)
	if err != nil {
		botNotifications.WithLabelValues("error").Inc()
		return err
	}
	botNotifications.WithLabelValues("ok").Inc()
	return nil
}
