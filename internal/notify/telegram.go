// Package notify sends run summaries and scraped jobs to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-hopeforjob-automation/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Notifier is told about finished sessions. Failures to notify never fail a run.
type Notifier interface {
	SessionFinished(ctx context.Context, sess *models.AutomationSession) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) SessionFinished(context.Context, *models.AutomationSession) error { return nil }

// sender is the slice of *tgbotapi.BotAPI we use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	api    sender
	chatID int64
	log    *logrus.Entry
}

func NewTelegram(token string, chatID int64, log *logrus.Entry) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	//turn this on in case of debug
	//api.Debug = true
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
		")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
		"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
		"}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}

var statusIcon = map[models.SessionStatus]string{
	models.SessionCompleted: "✅",
	models.SessionFailed:    "❌",
	models.SessionCancelled: "🛑",
}

func (t *Telegram) SessionFinished(ctx context.Context, sess *models.AutomationSession) error {
	icon := statusIcon[sess.Status]
	if icon == "" {
		icon = "ℹ️"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s %s*\n", icon, escapeMarkdown(string(sess.Kind)), escapeMarkdown(string(sess.Status)))
	if sess.Platform != "" {
		fmt.Fprintf(&b, "🌐 %s\n", escapeMarkdown(sess.Platform))
	}

	switch sess.Kind {
	case models.KindScrape:
		fmt.Fprintf(&b, "📄 Jobs found: %d\n", sess.JobsProcessed)
		if v, ok := sess.Results["new_jobs"]; ok {
			fmt.Fprintf(&b, "🆕 New: %s\n", escapeMarkdown(fmt.Sprint(v)))
		}
	default:
		fmt.Fprintf(&b, "📨 Submitted: %d / %d\n", sess.ApplicationsSubmitted, sess.JobsProcessed)
		fmt.Fprintf(&b, "❌ Failed: %d\n", sess.ApplicationsFailed)
		fmt.Fprintf(&b, "📈 Success rate: %s%%\n", escapeMarkdown(fmt.Sprintf("%.0f", sess.SuccessRate())))
	}
	if d := sess.Duration(); d > 0 {
		fmt.Fprintf(&b, "⏱️ %s\n", escapeMarkdown(d.Round(time.Second).String()))
	}
	if sess.ErrorMessage != "" {
		fmt.Fprintf(&b, "⚠️ %s\n", escapeMarkdown(sess.ErrorMessage))
	}
	fmt.Fprintf(&b, "🔖 Session: `%s`", sess.ID)

	return t.send(b.String())
}

// SendJob posts one scraped listing with a link button.
func (t *Telegram) SendJob(job models.JobListing) error {
	msgText := fmt.Sprintf("🔥 *%s*\n", escapeMarkdown(job.Title))
	msgText += fmt.Sprintf("🏢 %s\n", escapeMarkdown(job.Company))

	loc := job.Location
	if loc == "" {
		loc = "N/A"
	}
	msgText += fmt.Sprintf("📍 %s\n", escapeMarkdown(loc))
	if job.PostedDate != "" {
		msgText += fmt.Sprintf("📅 %s\n", escapeMarkdown(job.PostedDate))
	}
	msgText += fmt.Sprintf("🤖 Match Score: %d/10\n", job.MatchScore)
	msgText += fmt.Sprintf("🔖 Source: %s\n", escapeMarkdown(job.Source))

	msg := tgbotapi.NewMessage(t.chatID, msgText)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if job.URL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔗 View Job", job.URL)),
		)
	}
	_, err := t.api.Send(msg)
	return err
}

// SendError reports a run that could not produce results, as plain text.
func (t *Telegram) SendError(err error) error {
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("❌ Error: %v", err))
	_, sendErr := t.api.Send(msg)
	return sendErr
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := t.api.Send(msg); err != nil {
		t.log.WithError(err).Warn("⚠️ Telegram send failed")
		return err
	}
	return nil
}
