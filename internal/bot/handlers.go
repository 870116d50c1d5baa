package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/wordace/internal/database"
	"github.com/example/wordace/internal/excel"
	"github.com/example/wordace/internal/ingest"
	"github.com/example/wordace/internal/quiz"
	"github.com/example/wordace/internal/session"
	"github.com/example/wordace/internal/study"
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	switch message.Command() {
	case "start", "help":
		msg := tgbotapi.NewMessage(chatID, welcomeText)
		msg.ReplyMarkup = createKeyboard(MainMenuButtons())
		return b.sendMessage(msg)
	case "menu":
		return b.showMainMenu(chatID)
	case "lists":
		return b.showLists(ctx, chatID, message.From.ID)
	case "progress":
		return b.showProgress(ctx, chatID, message.From.ID)
	case "import":
		if !b.isAdmin(message.From.ID) {
			return b.sendMessage(tgbotapi.NewMessage(chatID, "This command is only available for administrators."))
		}
		return b.sendMessage(tgbotapi.NewMessage(chatID,
			"Send a CSV or XLSX file as a document.\nColumns: list title, number, term, definition. The first row is a header."))
	case "learners":
		if !b.isAdmin(message.From.ID) {
			return b.sendMessage(tgbotapi.NewMessage(chatID, "This command is only available for administrators."))
		}
		return b.showLearners(ctx, chatID)
	default:
		msg := tgbotapi.NewMessage(chatID, "Unknown command. Use /menu to show the main menu.")
		msg.ReplyMarkup = createKeyboard(MainMenuButtons())
		return b.sendMessage(msg)
	}
}

const welcomeText = `Welcome to WordAce! 🎓

Pick a word list and answer multiple choice questions. Every word you get right is added to your progress.

/lists - Choose a word list
/progress - Show your progress
/menu - Show the main menu`

// MainMenuButtons returns the buttons for the main menu
func MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🎯 Start a quiz", CallbackData: actionLists},
			{Text: "📊 Progress", CallbackData: actionProgress},
		},
	}
}

func (b *Bot) showMainMenu(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Main Menu - choose an option:")
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) showLists(ctx context.Context, chatID, telegramID int64) error {
	lists, err := b.study.Lists(ctx, userKey(telegramID))
	if err != nil {
		return err
	}
	if len(lists) == 0 {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "No word lists have been imported yet."))
	}

	var rows [][]MenuButton
	for _, l := range lists {
		data, err := callback{Action: actionQuiz, ListID: l.ID}.encode()
		if err != nil {
			b.log.Warn("list cannot be offered in chat", "list_id", l.ID, "error", err)
			continue
		}
		rows = append(rows, []MenuButton{{Text: listButtonText(l), CallbackData: data}})
	}
	msg := tgbotapi.NewMessage(chatID, "Choose a word list:")
	msg.ReplyMarkup = createKeyboard(rows)
	return b.sendMessage(msg)
}

func (b *Bot) showProgress(ctx context.Context, chatID, telegramID int64) error {
	progress, err := b.study.Progress(ctx, userKey(telegramID))
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, formatProgress(progress))
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) showLearners(ctx context.Context, chatID int64) error {
	learners, err := b.study.Learners(ctx)
	if err != nil {
		return err
	}
	if len(learners) == 0 {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "Nobody has completed a quiz yet."))
	}
	var sb strings.Builder
	sb.WriteString("👥 Learners\n\n")
	for _, l := range learners {
		fmt.Fprintf(&sb, "%s: %d words in %d lists, last %s\n",
			l.UserID, l.LearnedCount, l.ListCount, l.LastStudiedAt.Format("2006-01-02"))
	}
	return b.sendMessage(tgbotapi.NewMessage(chatID, sb.String()))
}

// HandleCallback handles inline button presses
func (b *Bot) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	if cq == nil || cq.Message == nil || cq.From == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	// Always answer the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Warn("failed to answer callback", "error", err)
	}

	chatID := cq.Message.Chat.ID
	c, err := parseCallback(cq.Data)
	if err != nil {
		b.log.Warn("ignoring callback", "data", cq.Data, "error", err)
		return b.sendMessage(tgbotapi.NewMessage(chatID, "⚠️ Unknown action"))
	}

	switch c.Action {
	case actionMenu:
		err = b.showMainMenu(chatID)
	case actionLists:
		err = b.showLists(ctx, chatID, cq.From.ID)
	case actionProgress:
		err = b.showProgress(ctx, chatID, cq.From.ID)
	case actionQuiz:
		err = b.startQuiz(ctx, chatID, cq.From.ID, c.ListID)
	case actionAnswer:
		err = b.answer(ctx, cq, c)
	case actionExample:
		err = b.example(ctx, chatID, cq.From.ID, c)
	}
	if err != nil {
		b.log.Warn("callback failed", "data", cq.Data, "error", err)
		return b.sendMessage(tgbotapi.NewMessage(chatID, userMessage(err)))
	}
	return nil
}

func (b *Bot) startQuiz(ctx context.Context, chatID, telegramID int64, listID string) error {
	sess, err := b.study.StartQuiz(ctx, userKey(telegramID), listID, b.config.QuestionCount)
	if err != nil {
		return err
	}
	if err := b.sendMessage(tgbotapi.NewMessage(chatID,
		fmt.Sprintf("📚 %s: %d questions", sess.List.Title, len(sess.Questions)))); err != nil {
		return err
	}
	return b.sendQuestion(chatID, sess)
}

func (b *Bot) sendQuestion(chatID int64, sess *quiz.Session) error {
	q, ok := sess.CurrentQuestion()
	if !ok {
		return nil
	}
	var rows [][]MenuButton
	for i, o := range q.Options {
		data, err := callback{Action: actionAnswer, SessionID: sess.ID, Question: sess.Current, Option: i}.encode()
		if err != nil {
			return err
		}
		rows = append(rows, []MenuButton{{Text: o.Definition, CallbackData: data}})
	}
	msg := tgbotapi.NewMessage(chatID, formatQuestion(sess.Current, len(sess.Questions), q))
	msg.ReplyMarkup = createKeyboard(rows)
	return b.sendMessage(msg)
}

func (b *Bot) answer(ctx context.Context, cq *tgbotapi.CallbackQuery, c callback) error {
	userID := userKey(cq.From.ID)
	chatID := cq.Message.Chat.ID

	sess, err := b.study.Session(ctx, c.SessionID, userID)
	if err != nil {
		return err
	}
	if c.Question >= len(sess.Questions) || c.Option >= len(sess.Questions[c.Question].Options) {
		return quiz.ErrUnknownOption
	}
	q := sess.Questions[c.Question]

	res, err := b.study.Answer(ctx, c.SessionID, userID, c.Question, q.Options[c.Option].ID)
	if err != nil {
		return err
	}

	exampleData, err := callback{Action: actionExample, SessionID: c.SessionID, Question: c.Question}.encode()
	if err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cq.Message.MessageID,
		formatQuestion(c.Question, len(sess.Questions), q)+"\n\n"+formatVerdict(res.Correct, q),
		createKeyboard([][]MenuButton{{{Text: "💬 Example", CallbackData: exampleData}}}))
	if err := b.sendMessage(edit); err != nil {
		b.log.Warn("failed to reveal answer", "session_id", c.SessionID, "error", err)
	}

	if !res.Complete {
		next, err := b.study.Session(ctx, c.SessionID, userID)
		if err != nil {
			return err
		}
		return b.sendQuestion(chatID, next)
	}

	msg := tgbotapi.NewMessage(chatID, formatResult(res))
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) example(ctx context.Context, chatID, telegramID int64, c callback) error {
	sess, err := b.study.Session(ctx, c.SessionID, userKey(telegramID))
	if err != nil {
		return err
	}
	if c.Question >= len(sess.Questions) {
		return quiz.ErrUnknownQuestion
	}
	target := sess.Questions[c.Question].Target

	sentence, err := b.study.Example(ctx, target.ID, c.SessionID)
	if err != nil {
		return err
	}
	if sentence == "" {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "No example is available for "+target.Term+"."))
	}
	return b.sendMessage(tgbotapi.NewMessage(chatID, "💬 "+sentence))
}

// handleDocument imports an uploaded word list sent by an admin
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	if !b.isAdmin(message.From.ID) {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "Only administrators can import word lists."))
	}
	doc := message.Document
	if doc.FileSize > b.config.MaxUploadBytes {
		return b.sendMessage(tgbotapi.NewMessage(chatID,
			fmt.Sprintf("❌ %s is too large (limit %d MB).", doc.FileName, b.config.MaxUploadBytes>>20)))
	}

	data, err := b.download(ctx, doc.FileID)
	if err != nil {
		b.log.Error("download failed", "file", doc.FileName, "error", err)
		return b.sendMessage(tgbotapi.NewMessage(chatID, "❌ Could not download "+doc.FileName+"."))
	}

	status, err := b.api.Send(tgbotapi.NewMessage(chatID, "⏳ Importing "+doc.FileName+"... 0%"))
	if err != nil {
		return err
	}
	reporter := &chatReporter{bot: b, chatID: chatID, messageID: status.MessageID, name: doc.FileName, percent: -1}

	var report *ingest.Report
	if excel.IsWorkbook(doc.FileName) {
		report, err = b.importer.ImportWorkbook(ctx, bytes.NewReader(data), reporter)
	} else {
		report, err = b.importer.ImportText(ctx, string(data), reporter)
	}
	return b.sendMessage(tgbotapi.NewMessage(chatID, formatReport(doc.FileName, report, err)))
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, b.config.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, int64(b.config.MaxUploadBytes)+1))
}

// chatReporter edits one status message as an import advances
type chatReporter struct {
	bot       *Bot
	chatID    int64
	messageID int
	name      string
	percent   int
}

func (r *chatReporter) Progress(percent int) {
	if percent == r.percent {
		return
	}
	r.percent = percent
	edit := tgbotapi.NewEditMessageText(r.chatID, r.messageID, fmt.Sprintf("⏳ Importing %s... %d%%", r.name, percent))
	if err := r.bot.sendMessage(edit); err != nil {
		r.bot.log.Debug("progress update failed", "error", err)
	}
}

func (r *chatReporter) Log(line string) {
	r.bot.log.Debug("import", "file", r.name, "line", line)
}

// userMessage turns a service error into something a learner can act on
func userMessage(err error) string {
	var insufficient *quiz.InsufficientDataError
	switch {
	case errors.As(err, &insufficient):
		return fmt.Sprintf("⚠️ This list has %d words; a quiz needs at least %d.", insufficient.Have, insufficient.Need)
	case errors.Is(err, quiz.ErrAlreadyAnswered):
		return "You already answered this question."
	case errors.Is(err, quiz.ErrSessionComplete):
		return "This quiz is already finished. Use /lists to start another one."
	case errors.Is(err, database.ErrNotFound), errors.Is(err, session.ErrNotFound):
		return "⚠️ That quiz or list no longer exists. Use /lists to start again."
	case errors.Is(err, study.ErrForbidden):
		return "⚠️ This quiz belongs to someone else."
	default:
		return "❌ Something went wrong. Please try again later."
	}
}
