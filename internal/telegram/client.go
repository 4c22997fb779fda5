// Package telegram provides a client for sending notifications via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/marketsentry/btcsentry/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a cycle error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Evaluation error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Evaluation recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendAlert sends a notification for an ALERT decision.
func (c *Client) SendAlert(d models.Decision) error {
	return c.sendMarkdownV2(formatAlert(d))
}

// formatAlert formats an ALERT decision into a Telegram MarkdownV2 message.
func formatAlert(d models.Decision) string {
	directionEmoji := "📈"
	if d.Direction == models.DirectionDown {
		directionEmoji = "📉"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚨 %s *Movement Alert*\n\n", directionEmoji))
	b.WriteString(fmt.Sprintf("📅 %s\n", escapeMarkdownV2(d.EvaluatedAt.Format("2006-01-02 15:04:05"))))
	b.WriteString(fmt.Sprintf("%s\n\n", escapeMarkdownV2(d.Message)))

	b.WriteString(fmt.Sprintf("Spot: %s\n", escapeMarkdownV2(fmt.Sprintf("%.2f", d.CurrentPrice))))
	b.WriteString(fmt.Sprintf("Reference: %s\n", escapeMarkdownV2(fmt.Sprintf("%.2f", d.ReferencePrice))))
	b.WriteString(fmt.Sprintf("Move: %s\n", escapeMarkdownV2(fmt.Sprintf("%+.2f%%", d.MovePercent))))
	b.WriteString(fmt.Sprintf("Target premium: %s, lots: %d\n", escapeMarkdownV2(fmt.Sprintf("%.0f", d.TargetPremium)), d.TargetLots))

	if opt := d.SelectedOption; opt != nil {
		b.WriteString(fmt.Sprintf("\n🎯 `%s`\n", escapeMarkdownV2(opt.Symbol)))
		b.WriteString(fmt.Sprintf("Strike: %s, premium: %s\n",
			escapeMarkdownV2(fmt.Sprintf("%.0f", opt.StrikePrice)),
			escapeMarkdownV2(fmt.Sprintf("%.2f", opt.Premium()))))
		if opt.Greeks != nil {
			b.WriteString(fmt.Sprintf("Delta: %s, IV: %s\n",
				escapeMarkdownV2(fmt.Sprintf("%.3f", opt.Greeks.Delta)),
				escapeMarkdownV2(fmt.Sprintf("%.1f", opt.Greeks.IV))))
		}
	} else {
		b.WriteString("\n🎯 no contract selected\n")
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
