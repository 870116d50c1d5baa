// Package bot is the Telegram front end: learners take quizzes from inline
// keyboards and admins upload word lists as documents.
package bot

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/wordace/internal/ingest"
	"github.com/example/wordace/internal/logger"
	"github.com/example/wordace/internal/quiz"
	"github.com/example/wordace/internal/study"
	"github.com/example/wordace/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Study is the learner side the bot drives
type Study interface {
	Lists(ctx context.Context, userID string) ([]study.ListSummary, error)
	StartQuiz(ctx context.Context, userID, listID string, questions int) (*quiz.Session, error)
	Session(ctx context.Context, sessionID, userID string) (*quiz.Session, error)
	Answer(ctx context.Context, sessionID, userID string, index int, optionID string) (*study.AnswerResult, error)
	Example(ctx context.Context, entryID, sessionID string) (string, error)
	Progress(ctx context.Context, userID string) ([]study.ListProgress, error)
	Learners(ctx context.Context) ([]models.LearnerSummary, error)
}

// Importer ingests uploaded word lists
type Importer interface {
	ImportText(ctx context.Context, text string, reporter ingest.Reporter) (*ingest.Report, error)
	ImportWorkbook(ctx context.Context, src io.Reader, reporter ingest.Reporter) (*ingest.Report, error)
}

// Bot represents the Telegram bot application
type Bot struct {
	api          *tgbotapi.BotAPI
	study        Study
	importer     Importer
	adminUserIDs map[int64]bool
	config       *BotConfig
	log          *logger.Logger

	wg sync.WaitGroup // in-flight updates
}

// New authorizes against Telegram and creates a bot. cfg may be nil.
func New(token string, adminIDs []int64, svc Study, importer Importer, cfg *BotConfig, log *logger.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is not set")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}

	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}

	b := &Bot{
		api:          api,
		study:        svc,
		importer:     importer,
		adminUserIDs: admins,
		config:       cfg,
		log:          log.With("component", "bot"),
	}
	b.log.Info("authorized", "account", api.Self.UserName, "admins", len(admins))
	return b, nil
}

// Start polls for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// NotifyImport tells every admin how an inbox import went
func (b *Bot) NotifyImport(name string, report *ingest.Report, err error) {
	text := formatReport(name, report, err)
	for id := range b.adminUserIDs {
		if sendErr := b.sendMessage(tgbotapi.NewMessage(id, text)); sendErr != nil {
			b.log.Warn("failed to notify admin", "admin_id", id, "error", sendErr)
		}
	}
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(userID int64) bool {
	return b.adminUserIDs[userID]
}

// userKey maps a Telegram account onto a learner id
func userKey(telegramID int64) string {
	return "tg:" + strconv.FormatInt(telegramID, 10)
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		err = b.HandleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Document != nil:
		err = b.handleDocument(ctx, update.Message)
	case update.Message != nil:
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, "I don't understand. Use /menu to show the main menu.")
		msg.ReplyMarkup = createKeyboard(MainMenuButtons())
		err = b.sendMessage(msg)
	}
	if err != nil {
		b.log.Error("update failed", "update_id", update.UpdateID, "error", err)
	}
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) error {
	_, err := b.api.Send(msg)
	return err
}
