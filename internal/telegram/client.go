// Package telegram implements the messaging channel over the Telegram Bot
// API: long-poll update retrieval and the outbound send/edit/answer surface
// used by the bot flows. The wire layer is plain net/http with JSON
// envelopes; outbound calls share a token-bucket limiter so bursts of cards
// never trip Telegram's flood control.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.telegram.org"

// Button is one inline-keyboard button. Exactly one of CallbackData or URL
// should be set.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Keyboard is an inline keyboard: rows of buttons.
type Keyboard [][]Button

type inlineKeyboardMarkup struct {
	InlineKeyboard Keyboard `json:"inline_keyboard"`
}

// Wire types for the subset of the Bot API the bot consumes.

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// Update is one inbound event from getUpdates.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// CallbackQuery is a button press on an inline keyboard.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data"`
}

// User identifies a Telegram account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Chat identifies a conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// Client is a minimal Bot API client.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client

	// limiter paces every outbound API call.
	limiter *rate.Limiter
}

// NewClient constructs a Client. sendRPS/sendBurst bound outbound calls;
// values <= 0 fall back to Telegram's documented global limit (~30 msg/s).
func NewClient(token string, sendRPS float64, sendBurst int) *Client {
	if sendRPS <= 0 {
		sendRPS = 25
	}
	if sendBurst <= 0 {
		sendBurst = 5
	}
	return &Client{
		Token:      token,
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: 65 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(sendRPS), sendBurst),
	}
}

func (c *Client) endpoint(method string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return fmt.Sprintf("%s/bot%s/%s", base, c.Token, method)
}

// GetUpdates long-polls for updates after offset. timeoutSec is the server
// hold time; the HTTP client timeout must exceed it.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	v := url.Values{}
	v.Set("timeout", strconv.Itoa(timeoutSec))
	if offset > 0 {
		v.Set("offset", strconv.FormatInt(offset, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("getUpdates")+"?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp, "getUpdates")
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(env.Result, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to chatID, optionally with an inline keyboard.
// It returns the id of the sent message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (int64, error) {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if len(kb) > 0 {
		payload["reply_markup"] = inlineKeyboardMarkup{InlineKeyboard: kb}
	}

	env, err := c.post(ctx, "sendMessage", payload)
	if err != nil {
		return 0, err
	}
	var sent Message
	if err := json.Unmarshal(env.Result, &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessageText replaces the text (and keyboard) of an existing message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb Keyboard) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if len(kb) > 0 {
		payload["reply_markup"] = inlineKeyboardMarkup{InlineKeyboard: kb}
	}
	_, err := c.post(ctx, "editMessageText", payload)
	return err
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	_, err := c.post(ctx, "answerCallbackQuery", payload)
	return err
}

func (c *Client) post(ctx context.Context, method string, payload any) (*apiResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp, method)
}

func decodeEnvelope(resp *http.Response, method string) (*apiResponse, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, fmt.Errorf("telegram %s http %d: %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var env apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if !env.OK {
		if strings.TrimSpace(env.Description) == "" {
			return nil, fmt.Errorf("telegram %s failed", method)
		}
		return nil, fmt.Errorf("telegram %s failed: %s", method, env.Description)
	}
	return &env, nil
}
