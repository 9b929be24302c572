package notify

import (
	"context"
	"fmt"
	"html"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier sends reminder messages to a fixed chat and remembers the
// last message per task so Withdraw can delete a still-visible reminder.
type TelegramNotifier struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	mu       sync.Mutex
	messages map[uint]int
}

func NewTelegramNotifier(api *tgbotapi.BotAPI, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		api:      api,
		chatID:   chatID,
		messages: make(map[uint]int),
	}
}

func (n *TelegramNotifier) Notify(_ context.Context, taskID uint, taskName string) error {
	text := fmt.Sprintf(
		"🎯 <b>Priority Task Reminder</b>\n\nDon't forget: %s\nComplete your 1%% improvement today!",
		html.EscapeString(taskName),
	)
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	sent, err := n.api.Send(msg)
	if err != nil {
		return fmt.Errorf("send reminder for task %d: %w", taskID, err)
	}

	n.mu.Lock()
	n.messages[taskID] = sent.MessageID
	n.mu.Unlock()
	return nil
}

// Withdraw deletes the last reminder message shown for the task, if any.
// Telegram errors are ignored: the message may already be gone.
func (n *TelegramNotifier) Withdraw(taskID uint) {
	n.mu.Lock()
	messageID, ok := n.messages[taskID]
	delete(n.messages, taskID)
	n.mu.Unlock()
	if !ok {
		return
	}
	_, _ = n.api.Request(tgbotapi.NewDeleteMessage(n.chatID, messageID))
}
