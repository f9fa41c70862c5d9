package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskboss-api/internal/service"
)

// messageSender is the slice of the client the notifier needs.
type messageSender interface {
	SendMessage(ctx context.Context, chatID int64, threadID int64, text string, markup *InlineKeyboardMarkup) error
}

// Notifier delivers task messages into the configured group chat,
// routing by forum topic. It implements the service.Notifier interface.
type Notifier struct {
	sender messageSender
	chatID int64
	logger *slog.Logger
}

// Ensure Notifier implements service.Notifier interface
var _ service.Notifier = (*Notifier)(nil)

// NewNotifier creates a Notifier posting into the given group chat.
// It returns an error if any of the required dependencies are nil.
func NewNotifier(sender messageSender, chatID int64, logger *slog.Logger) (*Notifier, error) {
	if sender == nil {
		return nil, errors.New("sender cannot be nil")
	}
	if chatID == 0 {
		return nil, errors.New("chatID cannot be zero")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Notifier{
		sender: sender,
		chatID: chatID,
		logger: logger.With("component", "telegram_notifier"),
	}, nil
}

// Deliver implements service.Notifier.Deliver. The destination is the
// forum topic the message lands in; controls become the done / not-yet
// inline keyboard.
func (n *Notifier) Deliver(ctx context.Context, destination int64, body string, controls *service.AckControls) error {
	var markup *InlineKeyboardMarkup
	if controls != nil {
		markup = ackKeyboard(controls)
	}

	if err := n.sender.SendMessage(ctx, n.chatID, destination, body, markup); err != nil {
		return fmt.Errorf("failed to deliver message to topic %d: %w", destination, err)
	}
	return nil
}

// Reply implements service.Notifier.Reply.
func (n *Notifier) Reply(ctx context.Context, destination int64, body string) error {
	if err := n.sender.SendMessage(ctx, n.chatID, destination, body, nil); err != nil {
		return fmt.Errorf("failed to reply to topic %d: %w", destination, err)
	}
	return nil
}

// ackKeyboard builds the acknowledge / defer button row for a task.
func ackKeyboard(controls *service.AckControls) *InlineKeyboardMarkup {
	id := controls.TaskID.String()
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{
				{Text: "✅ Done", CallbackData: callbackDone + ":" + id},
				{Text: "❌ Not yet", CallbackData: callbackNotYet + ":" + id},
			},
		},
	}
}
