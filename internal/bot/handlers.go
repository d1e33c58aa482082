package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/repository"
	"github.com/Houeta/offerhunt/internal/services/tracker"
	"gopkg.in/telebot.v4"
)

// trackTimeout bounds a /track command, which runs a full ingestion pass.
const trackTimeout = 3 * time.Minute

const (
	helpText = "Hola! Te aviso cuando baje el precio de lo que buscás.\n\n" +
		"/track <producto> [<precio] - seguir un producto, ej. /track iphone 15 <5000000\n" +
		"/list - ver tu alerta\n" +
		"/clear - borrar tu alerta"
	usageText     = "Uso: /track <producto> [<precio]\nEj.: /track iphone 15 <=5.000.000"
	noAlertText   = "No tenés alertas activas."
	clearedText   = "Alerta eliminada."
	searchingText = "Buscando ofertas para %q..."
	failureText   = "Algo salió mal, intentá de nuevo más tarde."
)

// startHandler process command /start.
func (b *Bot) startHandler(c telebot.Context) error {
	b.log.Info("User started the bot", "username", c.Sender().Username)

	if err := c.Send(helpText); err != nil {
		return fmt.Errorf("failed to send greeting message: %w", err)
	}

	return nil
}

// trackHandler process command /track.
func (b *Bot) trackHandler(c telebot.Context) error {
	keyword, _, err := parseTrackArgs(c.Message().Payload)
	if err == nil {
		if err = c.Send(fmt.Sprintf(searchingText, keyword)); err != nil {
			return fmt.Errorf("failed to send progress message: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
	defer cancel()

	if err = c.Send(b.trackReply(ctx, c.Chat().ID, c.Message().Payload)); err != nil {
		return fmt.Errorf("failed to send track reply: %w", err)
	}
	return nil
}

// listHandler process commands /list and /lista.
func (b *Bot) listHandler(c telebot.Context) error {
	if err := c.Send(b.listReply(context.Background(), c.Chat().ID)); err != nil {
		return fmt.Errorf("failed to send list reply: %w", err)
	}
	return nil
}

// clearHandler process commands /clear and /borrar.
func (b *Bot) clearHandler(c telebot.Context) error {
	if err := c.Send(b.clearReply(context.Background(), c.Chat().ID)); err != nil {
		return fmt.Errorf("failed to send clear reply: %w", err)
	}
	return nil
}

func (b *Bot) trackReply(ctx context.Context, chatID int64, payload string) string {
	const op = "bot.trackReply"
	log := b.log.With("op", op, "chat_id", chatID)

	keyword, target, err := parseTrackArgs(payload)
	if err != nil {
		return usageText
	}

	match, err := b.tracker.Track(ctx, chatID, keyword, target)
	switch {
	case errors.Is(err, tracker.ErrEmptyKeyword), errors.Is(err, tracker.ErrInvalidTarget):
		return usageText
	case errors.Is(err, tracker.ErrKeywordTooLong):
		return "La búsqueda es demasiado larga."
	case err != nil:
		log.ErrorContext(ctx, "Failed to track keyword", "keyword", keyword, "error", err)
		return failureText
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Alerta guardada para %q", keyword)
	if target != nil {
		fmt.Fprintf(&sb, " (hasta %s)", formatPrice(*target))
	}
	sb.WriteString(".\n")

	if match == nil {
		sb.WriteString("Todavía no encontré productos, te aviso cuando aparezcan.")
		return sb.String()
	}

	sb.WriteString("Mejor precio ahora:\n")
	sb.WriteString(formatMatch(*match))
	return sb.String()
}

func (b *Bot) listReply(ctx context.Context, chatID int64) string {
	alert, err := b.tracker.Current(ctx, chatID)
	if errors.Is(err, repository.ErrAlertNotFound) {
		return noAlertText
	}
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to get alert", "op", "bot.listReply", "chat_id", chatID, "error", err)
		return failureText
	}

	reply := fmt.Sprintf("Tu alerta: %q", alert.Keyword)
	if alert.TargetPrice != nil {
		reply += " hasta " + formatPrice(*alert.TargetPrice)
	}
	return reply
}

func (b *Bot) clearReply(ctx context.Context, chatID int64) string {
	err := b.tracker.Clear(ctx, chatID)
	if errors.Is(err, repository.ErrAlertNotFound) {
		return noAlertText
	}
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to clear alert", "op", "bot.clearReply", "chat_id", chatID, "error", err)
		return failureText
	}
	return clearedText
}

// Notify sends the daily report for alert to its chat.
func (b *Bot) Notify(_ context.Context, alert models.TrackingAlert, match models.SearchResult) error {
	text := fmt.Sprintf("Reporte diario para %q:\n%s", alert.Keyword, formatMatch(match))

	if _, err := b.bot.Send(&telebot.Chat{ID: alert.ChatID}, text); err != nil {
		return fmt.Errorf("bot.Notify: %w", err)
	}
	return nil
}
