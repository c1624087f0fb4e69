package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"reminder_service/internal/domain/reminder"

	"gopkg.in/telebot.v3"
)

// Client is the bot operation the reminder channel needs. Tests substitute a fake.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to a user or group chat.
func (tba *TelebotAdapter) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}
	_, err := tba.bot.Send(telebot.ChatID(chatID), text, options)
	return err
}

// Channel delivers reminders to "tg:<chat id>" addresses.
type Channel struct {
	client Client
}

func NewChannel(client Client) *Channel {
	return &Channel{client: client}
}

func (c *Channel) Send(ctx context.Context, address string, msg reminder.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := ParseAddress(address)
	if err != nil {
		return err
	}
	text := msg.Body
	if msg.Subject != "" {
		text = msg.Subject + "\n\n" + msg.Body
	}
	if err := c.client.SendMessage(chatID, text, &telebot.SendOptions{DisableWebPagePreview: true}); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}

// ParseAddress extracts the chat id from "tg:<chat id>".
func ParseAddress(address string) (int64, error) {
	raw := strings.TrimSpace(address)
	if len(raw) < 3 || !strings.EqualFold(raw[:3], "tg:") {
		return 0, fmt.Errorf("not a telegram address: %q", address)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw[3:]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id in %q: %w", address, err)
	}
	return id, nil
}
