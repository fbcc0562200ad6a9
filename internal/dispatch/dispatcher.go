// Package dispatch delivers rendered verification results to the
// conversation that requested them.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/util"
)

// ErrDeliveryFailed marks a result that could not be handed to the chat platform
var ErrDeliveryFailed = errors.New("delivery failed")

// TelegramLimit is the maximum message length accepted by sendMessage, in characters
const TelegramLimit = 4096

// Dispatcher hands a rendered report to a conversation. Delivery is attempted
// once; failures wrap ErrDeliveryFailed.
type Dispatcher interface {
	Name() string
	Deliver(ctx context.Context, conversationID, text string) error
}

// TelegramDispatcher posts plain-text messages through the Bot API
type TelegramDispatcher struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewTelegramDispatcher creates a Telegram dispatcher
func NewTelegramDispatcher(baseURL, token string, httpClient *http.Client) *TelegramDispatcher {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if httpClient == nil {
		httpClient = util.NewHTTPClient(10*time.Second, "")
	}
	return &TelegramDispatcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Name returns "telegram"
func (d *TelegramDispatcher) Name() string { return "telegram" }

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramReply struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// truncateUTF16 cuts s to at most limit UTF-16 code units, the unit
// Telegram measures message length in. Runes are never split.
func truncateUTF16(s string, limit int) string {
	n := 0
	for i, r := range s {
		w := len(utf16.Encode([]rune{r}))
		if w < 0 {
			w = 1
		}
		if n+w > limit {
			return s[:i]
		}
		n += w
	}
	return s
}

// Deliver strips markdown, truncates to TelegramLimit and sends the message
func (d *TelegramDispatcher) Deliver(ctx context.Context, conversationID, text string) error {
	if d.token == "" {
		return fmt.Errorf("%w: telegram bot token not configured", ErrDeliveryFailed)
	}
	msg := telegramMessage{
		ChatID: conversationID,
		Text:   truncateUTF16(PlainText(text), TelegramLimit),
	}

	endpoint := d.baseURL + "/bot" + d.token + "/sendMessage"
	body, status, err := postJSON(ctx, d.httpClient, endpoint, msg)
	if err != nil {
		// Transport errors quote the URL, which embeds the token.
		return fmt.Errorf("%w: telegram: %s", ErrDeliveryFailed, strings.ReplaceAll(err.Error(), d.token, "***"))
	}

	var reply telegramReply
	_ = json.Unmarshal(body, &reply)
	if status != http.StatusOK || !reply.OK {
		desc := reply.Description
		if desc == "" {
			desc = http.StatusText(status)
		}
		return fmt.Errorf("%w: telegram status %d: %s", ErrDeliveryFailed, status, desc)
	}
	return nil
}

// WebhookDispatcher posts {conversation_id, text} as JSON to a fixed URL
type WebhookDispatcher struct {
	url        string
	httpClient *http.Client
}

// NewWebhookDispatcher creates a webhook dispatcher
func NewWebhookDispatcher(url string, httpClient *http.Client) *WebhookDispatcher {
	if httpClient == nil {
		httpClient = util.NewHTTPClient(10*time.Second, "")
	}
	return &WebhookDispatcher{url: url, httpClient: httpClient}
}

// Name returns "webhook"
func (d *WebhookDispatcher) Name() string { return "webhook" }

type webhookPayload struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

// Deliver posts the report; any 2xx status is success
func (d *WebhookDispatcher) Deliver(ctx context.Context, conversationID, text string) error {
	_, status, err := postJSON(ctx, d.httpClient, d.url, webhookPayload{ConversationID: conversationID, Text: text})
	if err != nil {
		return fmt.Errorf("%w: webhook: %v", ErrDeliveryFailed, err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%w: webhook status %d", ErrDeliveryFailed, status)
	}
	return nil
}

// WriterDispatcher prints reports to a writer, stdout by default
type WriterDispatcher struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterDispatcher creates a dispatcher writing to w
func NewWriterDispatcher(w io.Writer) *WriterDispatcher {
	if w == nil {
		w = os.Stdout
	}
	return &WriterDispatcher{w: w}
}

// Name returns "stdout"
func (d *WriterDispatcher) Name() string { return "stdout" }

// Deliver writes a header line and the report
func (d *WriterDispatcher) Deliver(ctx context.Context, conversationID, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := fmt.Fprintf(d.w, "── conversation %s ──\n%s\n\n", conversationID, text); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, endpoint string, v any) ([]byte, int, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, 0, fmt.Errorf("encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// NewFromConfig builds the configured dispatcher
func NewFromConfig(cfg model.DispatchConfig, logger *slog.Logger) (Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := util.NewHTTPClient(cfg.Timeout, "")

	switch cfg.Kind {
	case "telegram":
		if cfg.TelegramToken == "" {
			logger.Warn("TELEGRAM_BOT_TOKEN not set; every delivery will fail")
		}
		return NewTelegramDispatcher(cfg.TelegramURL, cfg.TelegramToken, client), nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, errors.New("dispatch.webhook_url is required for the webhook dispatcher")
		}
		return NewWebhookDispatcher(cfg.WebhookURL, client), nil
	case "stdout", "":
		return NewWriterDispatcher(os.Stdout), nil
	default:
		return nil, fmt.Errorf("unknown dispatcher %q", cfg.Kind)
	}
}
