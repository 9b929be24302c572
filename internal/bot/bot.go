// Package bot is the thin Telegram surface over the tracker core. It only
// issues task commands and renders reactive snapshots; all scheduling and
// reset behavior lives in the service layer.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"one-percent/internal/model"
	"one-percent/internal/period"
	"one-percent/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stagePriority
	stageReminder
)

const (
	cbTogglePrefix = "toggle:"
	cbDeletePrefix = "delete:"
)

const (
	btnYes  = "Yes"
	btnNo   = "No"
	btnSkip = "Skip"

	heatmapDays = 14
)

type conversationState struct {
	stage      conversationStage
	name       string
	isPriority bool
}

// Bot aggregates the Telegram API with the tracker services.
type Bot struct {
	api     *tgbotapi.BotAPI
	tasks   *service.TaskService
	reset   *service.ResetService
	history *service.HistoryService
	feed    *service.FeedService
	chatID  int64

	mu            sync.Mutex
	conversations map[int64]*conversationState
	lastListMsg   int
}

func New(api *tgbotapi.BotAPI, tasks *service.TaskService, reset *service.ResetService, history *service.HistoryService, feed *service.FeedService, chatID int64) *Bot {
	log.Printf("[info] bot authorized on account %s", api.Self.UserName)
	return &Bot{
		api:           api,
		tasks:         tasks,
		reset:         reset,
		history:       history,
		feed:          feed,
		chatID:        chatID,
		conversations: make(map[int64]*conversationState),
	}
}

// Start begins polling updates until ctx is cancelled. Background mutations
// (period reset, reminder edits) arrive via the feed and refresh the last
// rendered task list.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	go b.watchFeed(ctx)

	log.Println("[info] start polling updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return errors.New("updates channel closed")
			}
			if update.Message != nil {
				if err := b.handleMessage(ctx, update.Message); err != nil {
					log.Printf("[error] handle message: %v", err)
				}
			}
			if update.CallbackQuery != nil {
				if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
					log.Printf("[error] handle callback: %v", err)
				}
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Chat == nil || msg.Chat.ID != b.chatID {
		return nil
	}

	if msg.IsCommand() {
		b.clearConversation(msg.Chat.ID)
		return b.handleCommand(ctx, msg)
	}

	if state := b.getConversation(msg.Chat.ID); state != nil {
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText("Use /add to create a task or /tasks to see the list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start", "help":
		return b.sendText(helpText())
	case "add":
		b.setConversation(msg.Chat.ID, &conversationState{stage: stageName})
		return b.sendText("What is the task called?")
	case "tasks":
		return b.sendTaskList(ctx)
	case "history":
		return b.sendHistory(ctx)
	case "resetnow":
		if err := b.reset.ForceReset(ctx); err != nil {
			log.Printf("[error] force reset: %v", err)
			return b.sendText("Could not reset tasks, try again.")
		}
		return b.sendText("All priority tasks are unchecked. History kept.")
	case "clearhistory":
		if err := b.tasks.ClearCompletionHistory(ctx); err != nil {
			log.Printf("[error] clear history: %v", err)
			return b.sendText("Could not clear history, try again.")
		}
		return b.sendText("Completion history cleared.")
	case "deleteall":
		if err := b.tasks.DeleteAllTasks(ctx); err != nil {
			log.Printf("[error] delete all: %v", err)
			return b.sendText("Could not delete tasks, try again.")
		}
		return b.sendText("All tasks deleted.")
	default:
		return b.sendText("Unknown command. See /help.")
	}
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)

	switch state.stage {
	case stageName:
		if text == "" {
			return b.sendText("The name cannot be empty. What is the task called?")
		}
		state.name = text
		state.stage = stagePriority
		b.setConversation(msg.Chat.ID, state)
		return b.sendWithKeyboard("Is this a daily priority task?", yesNoKeyboard())

	case stagePriority:
		state.isPriority = strings.EqualFold(text, btnYes)
		if !state.isPriority {
			b.clearConversation(msg.Chat.ID)
			return b.createTask(ctx, state.name, false, nil)
		}
		state.stage = stageReminder
		b.setConversation(msg.Chat.ID, state)
		return b.sendWithKeyboard("Daily reminder time? Send HH:MM or skip.", skipKeyboard())

	case stageReminder:
		b.clearConversation(msg.Chat.ID)
		if strings.EqualFold(text, btnSkip) {
			return b.createTask(ctx, state.name, true, nil)
		}
		boundary, err := period.ParseBoundary(text)
		if err != nil {
			b.setConversation(msg.Chat.ID, state)
			return b.sendText("That is not a valid time. Send HH:MM or Skip.")
		}
		return b.createTask(ctx, state.name, true, &boundary)
	}

	return nil
}

func (b *Bot) createTask(ctx context.Context, name string, isPriority bool, reminder *period.Boundary) error {
	var hour, minute *int
	if reminder != nil {
		hour, minute = &reminder.Hour, &reminder.Minute
	}

	task, err := b.tasks.AddTask(ctx, name, isPriority, hour, minute)
	switch {
	case errors.Is(err, service.ErrEmptyName), errors.Is(err, service.ErrInvalidReminderConfig):
		return b.sendText(fmt.Sprintf("Could not add the task: %v", err))
	case err != nil:
		log.Printf("[error] add task: %v", err)
		return b.sendText("Could not add the task, try again.")
	}

	confirmation := fmt.Sprintf("Added %q.", task.Name)
	if task.HasReminder() {
		confirmation = fmt.Sprintf("Added %q with a daily reminder at %02d:%02d.",
			task.Name, *task.ReminderHour, *task.ReminderMinute)
	}
	if err := b.sendText(confirmation); err != nil {
		return err
	}
	return b.sendTaskList(ctx)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Message == nil || cb.Message.Chat.ID != b.chatID {
		return nil
	}
	defer func() {
		_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, ""))
	}()

	switch {
	case strings.HasPrefix(cb.Data, cbTogglePrefix):
		taskID, err := parseTaskID(cb.Data, cbTogglePrefix)
		if err != nil {
			return err
		}
		if _, err := b.tasks.ToggleCompletion(ctx, taskID); err != nil && !errors.Is(err, service.ErrTaskNotFound) {
			log.Printf("[error] toggle task %d: %v", taskID, err)
		}
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		taskID, err := parseTaskID(cb.Data, cbDeletePrefix)
		if err != nil {
			return err
		}
		if err := b.tasks.DeleteTask(ctx, taskID); err != nil {
			log.Printf("[error] delete task %d: %v", taskID, err)
		}
	}
	// The feed refreshes the rendered list after the mutation.
	return nil
}

// watchFeed re-renders the last task list message whenever the core pushes a
// new snapshot, keeping the visible list in step with background resets.
func (b *Bot) watchFeed(ctx context.Context) {
	for snap := range b.feed.Subscribe(ctx) {
		b.mu.Lock()
		messageID := b.lastListMsg
		b.mu.Unlock()
		if messageID == 0 {
			continue
		}

		text, keyboard := renderTaskList(snap)
		edit := tgbotapi.NewEditMessageText(b.chatID, messageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.ReplyMarkup = &keyboard
		if _, err := b.api.Send(edit); err != nil {
			log.Printf("[warn] refresh task list: %v", err)
		}
	}
}

func (b *Bot) sendTaskList(ctx context.Context) error {
	snap, err := b.feed.Current(ctx)
	if err != nil {
		log.Printf("[error] load tasks: %v", err)
		return b.sendText("Could not load tasks, try again.")
	}

	text, keyboard := renderTaskList(snap)
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard

	sent, err := b.api.Send(msg)
	if err != nil {
		return fmt.Errorf("send task list: %w", err)
	}

	b.mu.Lock()
	b.lastListMsg = sent.MessageID
	b.mu.Unlock()
	return nil
}

func (b *Bot) sendHistory(ctx context.Context) error {
	records, err := b.history.History(ctx)
	if err != nil {
		log.Printf("[error] load history: %v", err)
		return b.sendText("Could not load history, try again.")
	}

	var sb strings.Builder
	sb.WriteString("📈 <b>Completion history</b>\n\n")
	sb.WriteString(fmt.Sprintf("🔥 Current streak: %d day(s)\n", b.history.CurrentStreak(records)))
	sb.WriteString(fmt.Sprintf("Last %d days:\n%s\n", heatmapDays, b.history.HeatmapRow(records, heatmapDays)))

	if len(records) > 0 {
		sb.WriteString("\nRecent completions:\n")
		limit := len(records)
		if limit > 10 {
			limit = 10
		}
		for _, record := range records[:limit] {
			sb.WriteString(fmt.Sprintf("✅ %s — %s\n",
				record.PeriodKey.Format("2006-01-02"), html.EscapeString(record.TaskName)))
		}
	}

	msg := tgbotapi.NewMessage(b.chatID, strings.TrimSpace(sb.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func renderTaskList(snap service.Snapshot) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton

	sb.WriteString("🎯 <b>Priority tasks</b>\n")
	if len(snap.Priority) == 0 {
		sb.WriteString("— none yet\n")
	}
	for _, task := range snap.Priority {
		sb.WriteString(formatTask(task))
		rows = append(rows, taskButtons(task))
	}

	sb.WriteString("\n📋 <b>Normal tasks</b>\n")
	if len(snap.Normal) == 0 {
		sb.WriteString("— none yet\n")
	}
	for _, task := range snap.Normal {
		sb.WriteString(formatTask(task))
		rows = append(rows, taskButtons(task))
	}

	if len(rows) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add a task with /add", "noop"),
		))
	}
	return strings.TrimSpace(sb.String()), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatTask(task model.Task) string {
	icon := "⬜"
	if task.IsCompleted {
		icon = "✅"
	}
	line := fmt.Sprintf("%s %s", icon, html.EscapeString(task.Name))
	if task.HasReminder() {
		line += fmt.Sprintf(" 🔔%02d:%02d", *task.ReminderHour, *task.ReminderMinute)
	}
	return line + "\n"
}

func taskButtons(task model.Task) []tgbotapi.InlineKeyboardButton {
	toggleLabel := "✅ Done"
	if task.IsCompleted {
		toggleLabel = "↩️ Undo"
	}
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %s", toggleLabel, shortTitle(task.Name, 20)),
			fmt.Sprintf("%s%d", cbTogglePrefix, task.ID)),
		tgbotapi.NewInlineKeyboardButtonData("🗑",
			fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
	)
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimPrefix(data, prefix)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse task id %q: %w", raw, err)
	}
	return uint(id), nil
}

func shortTitle(title string, maxLen int) string {
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen-1]) + "…"
}

func helpText() string {
	return strings.Join([]string{
		"One-Percent tracks daily priority tasks and one-off normal tasks.",
		"",
		"/add — create a task",
		"/tasks — show tasks with toggle/delete buttons",
		"/history — streak and heatmap",
		"/resetnow — uncheck all priority tasks now",
		"/clearhistory — wipe the heatmap data",
		"/deleteall — delete every task",
	}, "\n")
}

func (b *Bot) sendText(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) sendWithKeyboard(text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnYes),
			tgbotapi.NewKeyboardButton(btnNo),
		),
	)
	keyboard.OneTimeKeyboard = true
	return keyboard
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
	)
	keyboard.OneTimeKeyboard = true
	return keyboard
}
