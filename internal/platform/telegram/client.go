package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a minimal Telegram Bot API client covering the calls this
// service needs: long-poll updates, message sending with an optional
// inline keyboard and forum topic, and callback query acknowledgement.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Telegram client for the given bot token.
// The HTTP timeout leaves headroom over the long-poll timeout.
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: "https://api.telegram.org",
		http: &http.Client{
			Timeout: 70 * time.Second,
		},
	}
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error) {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	u, err := url.Parse(fmt.Sprintf("%s/bot%s/getUpdates", c.baseURL, c.token))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("timeout", strconv.Itoa(int(timeout.Seconds())))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	q.Set("allowed_updates", `["message","callback_query"]`)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	var res apiResponse[[]Update]
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return res.Result, nil
}

// SendMessage posts text to a chat. A non-zero threadID targets a forum
// topic; a non-nil markup attaches an inline keyboard.
func (c *Client) SendMessage(
	ctx context.Context,
	chatID int64,
	threadID int64,
	text string,
	markup *InlineKeyboardMarkup,
) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if threadID != 0 {
		payload["message_thread_id"] = threadID
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.post(ctx, "sendMessage", payload)
}

// AnswerCallbackQuery acknowledges a pressed inline button so the client
// stops showing a spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error {
	return c.post(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackQueryID,
	})
}

func (c *Client) post(ctx context.Context, method string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method),
		bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	var res apiResponse[json.RawMessage]
	return c.do(req, &res)
}

type apiResponse[T any] struct {
	Ok          bool   `json:"ok"`
	Result      T      `json:"result"`
	Description string `json:"description"`
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("telegram http status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	switch v := out.(type) {
	case *apiResponse[[]Update]:
		if !v.Ok {
			return errors.New(v.Description)
		}
	case *apiResponse[json.RawMessage]:
		if !v.Ok {
			return errors.New(v.Description)
		}
	}
	return nil
}

// Update is one item from getUpdates.
type Update struct {
	UpdateID      int            `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID       int    `json:"message_id"`
	MessageThreadID int64  `json:"message_thread_id"`
	From            *User  `json:"from"`
	Chat            Chat   `json:"chat"`
	Text            string `json:"text"`
}

// CallbackQuery is an inline-button press.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

// User identifies a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Chat identifies a conversation.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// InlineKeyboardMarkup is an inline keyboard attached to a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton is one button of an inline keyboard.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}
