// Package telegram delivers complaint notifications to Telegram chats and
// handles the bot commands operators use to opt chats in and out.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the dispatcher needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Dispatcher implements notify.Dispatcher over the Bot API.
type Dispatcher struct {
	BotAPI *tgbotapi.BotAPI
	Sender Sender
	Chats  ChatStore
}

// NewDispatcher authorizes the bot and seeds the chat store with chatIDs.
func NewDispatcher(ctx context.Context, token string, chats ChatStore, chatIDs []int64) (*Dispatcher, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram authorization failed: %w", err)
	}
	bot.Debug = false
	log.Printf("✅ Authorized on account %s", bot.Self.UserName)

	for _, id := range chatIDs {
		if err := chats.AddChat(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to register chat %d: %w", id, err)
		}
	}

	return &Dispatcher{BotAPI: bot, Sender: bot, Chats: chats}, nil
}

// Notify sends title and body to every registered chat.
func (d *Dispatcher) Notify(ctx context.Context, title, body string) error {
	chatIDs, err := d.Chats.Chats(ctx)
	if err != nil {
		return fmt.Errorf("failed to list notification chats: %w", err)
	}

	text := FormatMessage(title, body)
	var errs []error
	for _, chatID := range chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := d.Sender.Send(msg); err != nil {
			log.Printf("ERROR: Failed to send notification to chat %d: %v", chatID, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Listen handles bot commands until ctx is done.
func (d *Dispatcher) Listen(ctx context.Context) {
	if d.BotAPI == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := d.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			reply := HandleCommand(ctx, d.Chats, update.Message.Chat.ID, update.Message.Command())
			if reply == "" {
				continue
			}
			if _, err := d.Sender.Send(tgbotapi.NewMessage(update.Message.Chat.ID, reply)); err != nil {
				log.Printf("Error sending command reply: %v", err)
			}
		}
	}
}

// Close stops the update poller.
func (d *Dispatcher) Close() error {
	if d.BotAPI != nil {
		d.BotAPI.StopReceivingUpdates()
	}
	return nil
}

// FormatMessage renders a notification as Markdown with a bold title.
func FormatMessage(title, body string) string {
	t := tgbotapi.EscapeText(tgbotapi.ModeMarkdown, title)
	if body == "" {
		return "*" + t + "*"
	}
	return "*" + t + "*\n" + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, body)
}
