package notify

import (
	"context"
	"fmt"
	"strings"

	"healthportal/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxPreviewRunes = 300

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts complaint alerts into one ops chat.
type Telegram struct {
	bot    Sender
	chatID int64
}

func NewTelegram(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

// NewTelegramFromToken connects to the Bot API.
func NewTelegramFromToken(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return NewTelegram(bot, chatID), nil
}

func (t *Telegram) ComplaintSubmitted(ctx context.Context, c *models.Complaint, requester *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, complaintText(c, requester))
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func complaintText(c *models.Complaint, requester *models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New complaint #%d [%s]\n", c.ID, c.Category)
	fmt.Fprintf(&b, "%s\n", c.Title)
	if requester != nil {
		fmt.Fprintf(&b, "From: %s\n", requester.Username)
	}
	b.WriteString("\n")
	b.WriteString(preview(c.Content))
	return b.String()
}

func preview(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= maxPreviewRunes {
		return string(runes)
	}
	return string(runes[:maxPreviewRunes]) + "..."
}
