package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboss-api/internal/service"
	"github.com/phrazzld/taskboss-api/internal/session"
)

// Callback actions encoded in inline-button data as "<action>:<task id>".
const (
	callbackDone   = "done"
	callbackNotYet = "notyet"
)

// messageQueueSize bounds each user's ordered message queue. A full
// queue drops the newest message rather than stalling the poll loop.
const messageQueueSize = 16

// botAPI is the slice of the client the bot consumes.
type botAPI interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, threadID int64, text string, markup *InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error
}

// BotConfig holds the bot's wiring parameters.
type BotConfig struct {
	// OperatorID is the only Telegram account the bot listens to.
	OperatorID int64

	// ChatID is the supergroup all task traffic lives in.
	ChatID int64

	// GeneralTopicID is the inbox topic where plain text becomes a task.
	GeneralTopicID int64

	// PollTimeout is the long-poll timeout per getUpdates call.
	PollTimeout time.Duration
}

// Bot drives the Telegram side of the system: it long-polls for updates
// and translates them into task service calls. Incoming free text is
// disambiguated in priority order: an open pending-reason slot consumes
// it as a deferral reason; text in the inbox topic becomes a new task;
// private chat text becomes conversation.
type Bot struct {
	api       botAPI
	tasks     service.TaskService
	generator service.Generator
	sessions  *session.Store
	cfg       BotConfig
	logger    *slog.Logger

	callTimeout time.Duration

	// Per-user ordered message queues, so a slow LLM call for one
	// message never blocks callbacks or other users, while messages
	// from the same user keep their order and the pending-reason slot
	// always consumes the next message.
	mu            sync.Mutex
	messageQueues map[int64]chan *Message
	wg            sync.WaitGroup
}

// NewBot creates a Bot.
// It returns an error if any of the required dependencies are nil.
func NewBot(
	api botAPI,
	tasks service.TaskService,
	generator service.Generator,
	sessions *session.Store,
	cfg BotConfig,
	logger *slog.Logger,
) (*Bot, error) {
	if api == nil {
		return nil, errors.New("api cannot be nil")
	}
	if tasks == nil {
		return nil, errors.New("tasks cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if sessions == nil {
		return nil, errors.New("sessions cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.OperatorID == 0 {
		return nil, errors.New("operator ID cannot be zero")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("chat ID cannot be zero")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}

	return &Bot{
		api:           api,
		tasks:         tasks,
		generator:     generator,
		sessions:      sessions,
		cfg:           cfg,
		logger:        logger.With("component", "telegram_bot"),
		callTimeout:   20 * time.Second,
		messageQueues: make(map[int64]chan *Message),
	}, nil
}

// Run long-polls for updates until ctx is canceled. Transient poll
// errors are logged and retried after a short pause.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("telegram bot started", "poll_timeout", b.cfg.PollTimeout.String())
	defer b.wg.Wait()

	offset := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		updates, err := b.api.GetUpdates(ctx, offset, b.cfg.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			b.logger.Warn("getUpdates failed, retrying", "error", err)
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		for _, upd := range updates {
			offset = upd.UpdateID + 1
			b.handleUpdate(ctx, upd)
		}
	}
}

// handleUpdate dispatches one update off the poll loop. Callbacks run
// on their own goroutine; messages go through the sender's ordered
// queue. Failures are logged, never fatal to the poll loop.
func (b *Bot) handleUpdate(ctx context.Context, upd Update) {
	switch {
	case upd.CallbackQuery != nil:
		query := upd.CallbackQuery
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.handleCallback(ctx, query); err != nil {
				b.logger.Error("callback handling failed",
					"callback_data", query.Data,
					"error", err)
			}
		}()
	case upd.Message != nil && upd.Message.Text != "" && upd.Message.From != nil:
		b.enqueueMessage(ctx, upd.Message)
	}
}

// enqueueMessage hands the message to its sender's queue, starting the
// queue worker on first use.
func (b *Bot) enqueueMessage(ctx context.Context, msg *Message) {
	b.mu.Lock()
	queue, ok := b.messageQueues[msg.From.ID]
	if !ok {
		queue = make(chan *Message, messageQueueSize)
		b.messageQueues[msg.From.ID] = queue
		b.wg.Add(1)
		go b.consumeMessages(ctx, queue)
	}
	b.mu.Unlock()

	select {
	case queue <- msg:
	default:
		b.logger.Warn("message queue full, dropping message",
			"user_id", msg.From.ID)
	}
}

// consumeMessages processes one user's messages in arrival order until
// ctx is canceled.
func (b *Bot) consumeMessages(ctx context.Context, queue <-chan *Message) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-queue:
			if err := b.handleMessage(ctx, msg); err != nil {
				b.logger.Error("message handling failed",
					"chat_id", msg.Chat.ID,
					"error", err)
			}
		}
	}
}

// handleCallback processes a pressed inline button.
func (b *Bot) handleCallback(ctx context.Context, query *CallbackQuery) error {
	if query.From == nil || query.From.ID != b.cfg.OperatorID {
		return nil
	}

	// Dismiss the spinner regardless of the outcome.
	if err := b.api.AnswerCallbackQuery(ctx, query.ID); err != nil {
		b.logger.Warn("failed to answer callback query", "error", err)
	}

	action, taskID, err := parseCallback(query.Data)
	if err != nil {
		return err
	}

	threadID := int64(0)
	if query.Message != nil {
		threadID = query.Message.MessageThreadID
	}

	switch action {
	case callbackDone:
		_, err := b.tasks.Acknowledge(ctx, taskID)
		switch {
		case errors.Is(err, service.ErrAlreadyDone):
			return nil
		case errors.Is(err, service.ErrTaskNotFound):
			return b.api.SendMessage(ctx, b.cfg.ChatID, threadID, "❌ Task not found.", nil)
		case err != nil:
			return err
		}
		// The congratulation is sent by the task service.
		return nil

	case callbackNotYet:
		_, err := b.tasks.BeginDeferral(ctx, query.From.ID, taskID)
		switch {
		case errors.Is(err, service.ErrAlreadyDone):
			return b.api.SendMessage(ctx, b.cfg.ChatID, threadID, "That one is already done.", nil)
		case errors.Is(err, service.ErrTaskNotFound):
			return b.api.SendMessage(ctx, b.cfg.ChatID, threadID, "❌ Task not found.", nil)
		case err != nil:
			return err
		}
		return b.api.SendMessage(ctx, b.cfg.ChatID, threadID,
			"❌ Why not? Reply with the reason:", nil)

	default:
		return fmt.Errorf("unknown callback action %q", action)
	}
}

// handleMessage routes inbound text by priority: deferral reason first,
// then new-task submission in the inbox topic, then private conversation.
func (b *Bot) handleMessage(ctx context.Context, msg *Message) error {
	if msg.From == nil || msg.From.ID != b.cfg.OperatorID {
		return nil
	}

	// Commands are never consumed as deferral reasons or task text.
	switch command(msg.Text) {
	case "/start":
		return b.api.SendMessage(ctx, msg.Chat.ID, msg.MessageThreadID, startGreeting, nil)
	case "/topics":
		return b.replyTopicID(ctx, msg)
	}

	// An explicit reset abandons any open deferral without recording a
	// reason; in private chat it clears conversation history too.
	if isResetCommand(msg.Text) {
		b.sessions.CancelDeferral(msg.From.ID)
		if msg.Chat.Type == "private" {
			b.sessions.ClearHistory(msg.From.ID)
			return b.api.SendMessage(ctx, msg.Chat.ID, 0, "🔄 Conversation history cleared.", nil)
		}
		return nil
	}

	// An open pending-reason slot wins over every other interpretation.
	task, err := b.tasks.CompleteDeferral(ctx, msg.From.ID, msg.Text)
	if err == nil {
		b.logger.Info("deferral reason recorded", "task_id", task.ID)
		return nil
	}
	if !errors.Is(err, service.ErrNoPendingDeferral) {
		if errors.Is(err, service.ErrTaskNotFound) || errors.Is(err, service.ErrAlreadyDone) {
			return b.api.SendMessage(ctx, msg.Chat.ID, msg.MessageThreadID,
				"That task is gone; reason dropped.", nil)
		}
		return err
	}

	if msg.Chat.Type == "private" {
		return b.handlePrivate(ctx, msg)
	}

	// Group traffic: only plain text in the inbox topic becomes a task.
	if msg.Chat.ID != b.cfg.ChatID || msg.MessageThreadID != b.cfg.GeneralTopicID {
		return nil
	}
	if command(msg.Text) != "" {
		return nil
	}

	created, err := b.tasks.Create(ctx, msg.From.ID, msg.Text)
	if err != nil {
		b.logger.Error("task creation failed", "error", err)
		return b.api.SendMessage(ctx, msg.Chat.ID, msg.MessageThreadID,
			"Could not save that task, try again.", nil)
	}

	confirmation := fmt.Sprintf("✅ Task accepted!\n📂 Category: %s\n📨 Posted to the %s topic.",
		created.Category, created.Category)
	return b.api.SendMessage(ctx, msg.Chat.ID, msg.MessageThreadID, confirmation, nil)
}

// handlePrivate handles one-on-one conversation with bounded history.
func (b *Bot) handlePrivate(ctx context.Context, msg *Message) error {
	gctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	history := b.sessions.History(msg.From.ID)
	reply, err := b.generator.Chat(gctx, history, msg.Text)
	if err != nil || reply == "" {
		b.logger.Warn("chat generation failed, using fallback", "error", err)
		reply = service.FallbackChatReply
	} else {
		b.sessions.AppendTurn(msg.From.ID, msg.Text, reply)
	}

	return b.api.SendMessage(ctx, msg.Chat.ID, 0, reply, nil)
}

// parseCallback splits "<action>:<task id>" callback data.
func parseCallback(data string) (string, uuid.UUID, error) {
	action, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("malformed callback data %q", data)
	}
	taskID, err := uuid.Parse(rawID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("malformed task id in callback data %q: %w", data, err)
	}
	return action, taskID, nil
}

// startGreeting is the /start reply introducing the bot.
const startGreeting = "👋 Hi! I'm your personal task manager.\n\n" +
	"📌 Write a task in the group's general topic and I'll classify it and file it under the right topic.\n" +
	"⏰ Miss a deadline and I'll be on your case.\n" +
	"💬 Here in private chat we can just talk."

// replyTopicID echoes the current topic's thread ID, for wiring the
// per-category topic configuration. Outside a topic it reports the
// chat ID instead.
func (b *Bot) replyTopicID(ctx context.Context, msg *Message) error {
	if msg.MessageThreadID != 0 {
		text := fmt.Sprintf("📋 This topic's ID:\n\n%d\n\nPut it in the topics configuration.",
			msg.MessageThreadID)
		return b.api.SendMessage(ctx, msg.Chat.ID, msg.MessageThreadID, text, nil)
	}
	return b.api.SendMessage(ctx, msg.Chat.ID, 0,
		fmt.Sprintf("This is the main chat or the general topic.\nChat ID: %d", msg.Chat.ID), nil)
}

// command extracts a leading bot command ("/topics", "/topics@BotName"
// both yield "/topics"). Returns "" for ordinary text.
func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0]
	if at := strings.Index(cmd, "@"); at != -1 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

// isResetCommand reports whether the text is an explicit history reset.
func isResetCommand(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "/reset", "reset", "clear":
		return true
	}
	return false
}
