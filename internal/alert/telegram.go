package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
)

const telegramAPIURL = "https://api.telegram.org"

// The built-in layout is plain text, so it is sent without a parse mode and
// alert text never needs escaping.
const defaultTelegramLayout = `ALERT FIRING: {{.Title}}

id: {{.ID}}
time: {{formatTime .Timestamp "2006-01-02 15:04:05"}}
severity: {{.Severity}}
source: {{.Source}}
description: {{.Description}}`

var defaultTelegramTemplate = template.Must(parseTelegramTemplate(defaultTelegramLayout))

var errTelegramRejected = errors.New("telegram rejected the message")

// TelegramOptions configures a TelegramNotifier.
type TelegramOptions struct {
	BotToken string
	ChatID   string
	// ParseMode only applies to a custom Template.
	ParseMode string
	Enabled   bool
	// Template is a text/template over model.Alert with a formatTime helper.
	Template string
	Attempts int
	Timeout  time.Duration
}

// TelegramNotifier posts alerts to a chat through the Bot API sendMessage
// method.
type TelegramNotifier struct {
	opts      TelegramOptions
	message   *template.Template
	parseMode string
	client    *http.Client
	apiURL    string
	backoff   time.Duration
	logger    *logrus.Logger
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type botAPIResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

func NewTelegramNotifier(opts TelegramOptions, logger *logrus.Logger) *TelegramNotifier {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	tn := &TelegramNotifier{
		opts:    opts,
		message: defaultTelegramTemplate,
		client:  &http.Client{Timeout: opts.Timeout},
		apiURL:  telegramAPIURL,
		backoff: time.Second,
		logger:  logger,
	}

	if strings.TrimSpace(opts.Template) != "" {
		tmpl, err := parseTelegramTemplate(opts.Template)
		if err != nil {
			logger.Warnf("Failed to parse Telegram message template: %v, using default format", err)
		} else {
			tn.message = tmpl
			tn.parseMode = opts.ParseMode
		}
	}

	return tn
}

func parseTelegramTemplate(text string) (*template.Template, error) {
	return template.New("telegram_message").Funcs(template.FuncMap{
		"formatTime": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}).Parse(text)
}

func (tn *TelegramNotifier) SendAlert(alert model.Alert) error {
	if !tn.opts.Enabled {
		tn.logger.Debug("Telegram notifier is disabled, skipping alert")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(tn.opts.Attempts)*tn.opts.Timeout)
	defer cancel()

	if err := tn.deliver(ctx, tn.render(alert), tn.parseMode); err != nil {
		return fmt.Errorf("telegram alert %s: %w", alert.ID, err)
	}
	return nil
}

// SendTestMessage checks the bot token and chat id with a single message.
func (tn *TelegramNotifier) SendTestMessage(ctx context.Context) error {
	if !tn.opts.Enabled {
		return fmt.Errorf("telegram notifier is disabled")
	}
	return tn.post(ctx, "Test Message\n\nnetinsight alerting is working correctly!", "")
}

func (tn *TelegramNotifier) IsEnabled() bool {
	return tn.opts.Enabled
}

func (tn *TelegramNotifier) render(alert model.Alert) string {
	var buf bytes.Buffer
	err := tn.message.Execute(&buf, alert)
	if err == nil {
		return buf.String()
	}
	tn.logger.Warnf("Failed to execute message template: %v, using default format", err)

	buf.Reset()
	_ = defaultTelegramTemplate.Execute(&buf, alert)
	return buf.String()
}

// deliver retries transient failures with a linear backoff. A message the
// API rejects outright is not retried.
func (tn *TelegramNotifier) deliver(ctx context.Context, text, parseMode string) error {
	var err error
	for attempt := 1; attempt <= tn.opts.Attempts; attempt++ {
		err = tn.post(ctx, text, parseMode)
		if err == nil || errors.Is(err, errTelegramRejected) {
			return err
		}
		tn.logger.Warnf("Failed to send alert (attempt %d/%d): %v", attempt, tn.opts.Attempts, err)

		if attempt == tn.opts.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * tn.backoff):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", tn.opts.Attempts, err)
}

func (tn *TelegramNotifier) post(ctx context.Context, text, parseMode string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: tn.opts.ChatID, Text: text, ParseMode: parseMode})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", tn.apiURL, tn.opts.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tn.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result botAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if result.OK {
		tn.logger.Debugf("Message delivered to Telegram chat %s", tn.opts.ChatID)
		return nil
	}

	// 4xx other than 429 means the request itself is wrong, e.g. an unknown chat.
	if result.ErrorCode >= 400 && result.ErrorCode < 500 && result.ErrorCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %d %s", errTelegramRejected, result.ErrorCode, result.Description)
	}
	return fmt.Errorf("telegram API error %d: %s", result.ErrorCode, result.Description)
}
