package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/ports"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	serviceName    = "telegram"
	// pollSlack keeps the HTTP timeout above the long-poll wait.
	pollSlack = 10 * time.Second
)

// Notifier talks to one Telegram chat through the bot API.
type Notifier struct {
	baseURL  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.ChatClient = (*Notifier)(nil)

// Option customises a Notifier.
type Option func(*Notifier)

// WithBaseURL points the notifier at another bot API host.
func WithBaseURL(base string) Option {
	return func(n *Notifier) {
		if base != "" {
			n.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		if client != nil {
			n.client = client
		}
	}
}

// NewNotifier registers bot token and chat identifier. pollWait bounds the long poll.
func NewNotifier(botToken, chatID string, pollWait time.Duration, opts ...Option) *Notifier {
	n := &Notifier{
		baseURL:  defaultBaseURL,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: pollWait + pollSlack},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From *struct {
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		} `json:"from"`
	} `json:"message"`
}

// SendMessage posts a Markdown message to the configured chat.
func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err = n.do(req)
	return err
}

// Poll long-polls getUpdates. Updates without a text message are returned with empty Text
// so the caller can still advance past them.
func (n *Notifier) Poll(ctx context.Context, offset int64, wait time.Duration) ([]domain.InboundMessage, error) {
	if n.botToken == "" || n.client == nil {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}

	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(int(wait/time.Second)))
	params.Set("allowed_updates", `["message"]`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint("getUpdates")+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	raw, err := n.do(req)
	if err != nil {
		return nil, err
	}

	var updates []update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, domain.Upstream(serviceName, fmt.Errorf("decode updates: %w", err))
	}

	messages := make([]domain.InboundMessage, 0, len(updates))
	for _, u := range updates {
		msg := domain.InboundMessage{UpdateID: u.UpdateID}
		if u.Message != nil {
			msg.ChatID = strconv.FormatInt(u.Message.Chat.ID, 10)
			msg.Text = u.Message.Text
			if u.Message.From != nil {
				msg.From = u.Message.From.Username
				if msg.From == "" {
					msg.From = u.Message.From.FirstName
				}
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (n *Notifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", n.baseURL, n.botToken, method)
}

// do executes req and returns the result field of a successful response.
func (n *Notifier) do(req *http.Request) (json.RawMessage, error) {
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, domain.Upstream(serviceName, stripURL(err))
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, domain.Upstream(serviceName, fmt.Errorf("telegram error: %s", resp.Status))
		}
		return nil, domain.Upstream(serviceName, fmt.Errorf("decode response: %w", err))
	}

	if resp.StatusCode != http.StatusOK || !body.OK {
		return nil, domain.Upstream(serviceName, fmt.Errorf("telegram error: %s %s", resp.Status, body.Description))
	}
	return body.Result, nil
}

// stripURL drops the request URL, which embeds the bot token, from transport errors.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}
