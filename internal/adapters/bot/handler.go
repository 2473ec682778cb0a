package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-chat-stats-bot/internal/adapters/telegram"
	"tg-chat-stats-bot/internal/domain"
	"tg-chat-stats-bot/internal/infra/metrics"
	"tg-chat-stats-bot/internal/usecase/stats"
)

// Handler разбирает команды чата и доставляет ответы сервиса отчётов.
type Handler struct {
	bot   *tgbotapi.BotAPI
	log   zerolog.Logger
	stats *stats.Service
}

// NewHandler создаёт обработчик.
func NewHandler(bot *tgbotapi.BotAPI, log zerolog.Logger, statsService *stats.Service) *Handler {
	return &Handler{bot: bot, log: log, stats: statsService}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || !upd.Message.IsCommand() {
		return
	}
	msg := upd.Message
	command := msg.Command()
	args := strings.Fields(msg.CommandArguments())
	userID := int64(0)
	if msg.From != nil {
		userID = msg.From.ID
	}

	metrics.IncCommand(command)

	var replies []domain.Reply
	switch command {
	case "summary":
		replies = h.stats.Summary(ctx, args)
	case "top":
		replies = h.stats.TopMessages(ctx, args, domain.EmojiAll)
	case "sad":
		replies = h.stats.TopMessages(ctx, args, domain.EmojiNegative)
	case "images":
		replies = h.stats.TopMedia(ctx, args, domain.KindImage, domain.EmojiAll)
	case "videos":
		replies = h.stats.TopMedia(ctx, args, domain.KindVideo, domain.EmojiAll)
	case "audio":
		replies = h.stats.TopMedia(ctx, args, domain.KindAudio, domain.EmojiAll)
	case "gifs":
		replies = h.stats.TopMedia(ctx, args, domain.KindGIF, domain.EmojiAll)
	case "sadimages":
		replies = h.stats.TopMedia(ctx, args, domain.KindImage, domain.EmojiNegative)
	case "last":
		replies = h.stats.LastMessages(ctx, args)
	case "fun":
		replies = h.stats.Fun(ctx, args)
	case "wholesome":
		replies = h.stats.Wholesome(ctx, args)
	case "funchart":
		replies = h.stats.FunChart(ctx, args)
	case "spamchart":
		replies = h.stats.SpamChart(ctx, args)
	case "likechart":
		replies = h.stats.LikeChart(ctx, args)
	case "users":
		replies = h.stats.ListUsers(ctx)
	case "addnickname":
		replies = h.stats.AddNickname(ctx, userID, args)
	case "setusername":
		replies = h.stats.SetUsername(ctx, userID, args)
	case "help", "start":
		replies = []domain.Reply{domain.TextReply(helpMessage)}
	default:
		replies = []domain.Reply{domain.TextReply("Unknown command. Use /help.")}
	}

	h.deliver(msg.Chat.ID, replies)
}

// deliver отправляет ответы по порядку; доставка fire-and-forget, ошибки
// только логируются и считаются в метрике.
func (h *Handler) deliver(chatID int64, replies []domain.Reply) {
	for _, reply := range replies {
		for _, c := range h.chattables(chatID, reply) {
			if _, err := h.bot.Send(c); err != nil {
				metrics.BotSendErrors.Inc()
				h.log.Error().Err(err).Int64("chat_id", chatID).Msg("не удалось отправить ответ")
			}
		}
	}
}

func (h *Handler) chattables(chatID int64, reply domain.Reply) []tgbotapi.Chattable {
	switch reply.Kind {
	case domain.ReplyPhoto:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(reply.MediaPath))
		photo.Caption = reply.Text
		return []tgbotapi.Chattable{photo}
	case domain.ReplyVideo:
		video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(reply.MediaPath))
		video.Caption = reply.Text
		return []tgbotapi.Chattable{video}
	case domain.ReplyVideoNote:
		note := tgbotapi.NewVideoNote(chatID, 0, tgbotapi.FilePath(reply.MediaPath))
		return []tgbotapi.Chattable{note}
	case domain.ReplyAudio:
		audio := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(reply.MediaPath))
		audio.Caption = reply.Text
		return []tgbotapi.Chattable{audio}
	case domain.ReplyAnimation:
		animation := tgbotapi.NewAnimation(chatID, tgbotapi.FilePath(reply.MediaPath))
		animation.Caption = reply.Text
		return []tgbotapi.Chattable{animation}
	default:
		text := reply.Text
		if reply.Markdown {
			text = telegram.EscapeMarkdownV2(text)
		}
		parts := telegram.SplitMessage(text)
		out := make([]tgbotapi.Chattable, 0, len(parts))
		for _, part := range parts {
			msg := tgbotapi.NewMessage(chatID, part)
			if reply.Markdown {
				msg.ParseMode = tgbotapi.ModeMarkdownV2
			}
			out = append(out, msg)
		}
		return out
	}
}

const helpMessage = `Chat statistics bot. Commands:
/summary [user] [period] — chat summary with deltas
/top [user] [period] — top messages by reactions
/sad [user] [period] — top messages by negative reactions
/images /videos /audio /gifs [user] [period] — top media
/last [user] [n] — last n messages
/fun [period], /wholesome [period] — meters
/funchart /spamchart /likechart [user] [period] — charts
/users — list users, /addnickname <name>, /setusername <name>
Periods: today, yesterday, week, month, year, total or hours as a number.`
