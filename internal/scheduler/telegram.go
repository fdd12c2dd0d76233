package scheduler

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramSender sends messages via Telegram Bot API.
type TelegramSender struct {
	botToken string
	chatID   string
	client   *resty.Client
	logger   *zap.Logger
}

var _ Notifier = (*TelegramSender)(nil)

// NewTelegramSender creates a new Telegram sender. An empty baseURL uses the
// public Bot API endpoint.
func NewTelegramSender(baseURL, botToken, chatID string, logger *zap.Logger) *TelegramSender {
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &TelegramSender{
		botToken: botToken,
		chatID:   chatID,
		client:   client,
		logger:   logger,
	}
}

type telegramSendRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (t *TelegramSender) Name() string {
	return "telegram"
}

// Notify formats a due reminder as Telegram HTML and sends it.
func (t *TelegramSender) Notify(ctx context.Context, n Notification) error {
	return t.SendMessage(ctx, formatTelegram(n))
}

// SendMessage sends an HTML message to the configured chat.
func (t *TelegramSender) SendMessage(ctx context.Context, text string) error {
	payload := telegramSendRequest{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	var tgResp telegramResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetPathParam("token", t.botToken).
		SetBody(payload).
		SetResult(&tgResp).
		SetError(&tgResp).
		Post("/bot{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	if !tgResp.OK {
		t.logger.Error("telegram API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("description", tgResp.Description))
		return fmt.Errorf("telegram API error: %s", tgResp.Description)
	}

	return nil
}

func formatTelegram(n Notification) string {
	return fmt.Sprintf("<b>💊 %s</b> %s\n%s\n<i>Scheduled %s</i>",
		html.EscapeString(n.Assignment.MedicineName),
		html.EscapeString(n.Assignment.Dosage),
		html.EscapeString(n.Message),
		n.Reminder.ScheduledTime.Format("02 Jan 15:04"))
}
