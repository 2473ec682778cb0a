package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-chat-stats-bot/internal/domain"
	"tg-chat-stats-bot/internal/infra/metrics"
)

// MaxNicknames ограничивает количество никнеймов у одного пользователя.
const MaxNicknames = 5

const summaryTop = 3

// Service собирает отчёты по архиву чата и отдаёт готовые ответы транспорту.
type Service struct {
	cache       *TableCache
	store       domain.TableStore
	charts      domain.ChartRenderer
	log         zerolog.Logger
	loc         *time.Location
	now         func() time.Time
	topCount    int
	numberLimit int
}

// NewService создаёт сервис отчётов.
func NewService(cache *TableCache, store domain.TableStore, charts domain.ChartRenderer, log zerolog.Logger, loc *time.Location, topCount, numberLimit int) *Service {
	if topCount <= 0 {
		topCount = 5
	}
	return &Service{
		cache:       cache,
		store:       store,
		charts:      charts,
		log:         log,
		loc:         loc,
		now:         time.Now,
		topCount:    topCount,
		numberLimit: numberLimit,
	}
}

// preprocess выполняет общий для всех отчётов шаг: перечитывает таблицы по
// сигналу, разбирает аргументы, режет окна и сортирует сообщения по реакциям.
func (s *Service) preprocess(ctx context.Context, args []string, spec CommandSpec, kind domain.EmojiKind) ([]domain.Message, []domain.Reaction, Request) {
	if err := s.cache.ReloadIfStale(ctx); err != nil {
		s.log.Warn().Err(err).Msg("не удалось перечитать таблицы, работаем по старым")
	}

	req := Resolve(s.cache.Users(), spec, args)
	if req.Err != "" {
		return nil, nil, req
	}

	now := s.now()
	messages := WindowOf(s.cache.Messages(), req, now, s.loc)
	reactions := WindowOf(s.cache.Reactions(), req, now, s.loc)

	messages = FilterMessageReactions(messages, kind)
	messages = SortByReactions(messages)

	if req.User != "" {
		filtered := messages[:0]
		for _, m := range messages {
			if m.Username == req.User {
				filtered = append(filtered, m)
			}
		}
		messages = filtered
	}

	return messages, reactions, req
}

func userPeriodSpec() CommandSpec {
	return CommandSpec{Args: []ArgSpec{{Kind: ArgUser, Optional: true}, {Kind: ArgPeriod, Optional: true}}}
}

func periodSpec() CommandSpec {
	return CommandSpec{Args: []ArgSpec{{Kind: ArgPeriod, Optional: true}}}
}

// Summary строит общий отчёт: тоталы с дельтами к прошлому окну, топы
// спамеров, фан- и душевность-метры, самые любимые и нелюбимые, топ-сообщение.
func (s *Service) Summary(ctx context.Context, args []string) []domain.Reply {
	defer metrics.ObserveReportBuild(s.now())
	messages, reactions, req := s.preprocess(ctx, args, userPeriodSpec(), domain.EmojiAll)
	if req.Err != "" {
		return errorReply(req)
	}

	now := s.now()
	shiftedMessages := ShiftedWindowOf(s.cache.Messages(), req, now, s.loc)
	shiftedReactions := ShiftedWindowOf(s.cache.Reactions(), req, now, s.loc)

	sadReactions := FilterReactions(reactions, domain.EmojiNegative)

	imagesNum := 0
	for _, m := range messages {
		if m.Kind == domain.KindImage {
			imagesNum++
		}
	}

	messageCounts := MessageCounts(messages)
	receivedCounts := ReactionsReceivedCounts(reactions)
	givenCounts := ReactionsGivenCounts(reactions)
	sadReceivedCounts := ReactionsReceivedCounts(sadReactions)
	sadGivenCounts := ReactionsGivenCounts(sadReactions)
	funMetric := FunMetric(messages, reactions)
	wholesomeMetric := WholesomeMetric(reactions)

	messageDelta := FormatDelta(PercentDelta(len(messages), len(shiftedMessages)))
	reactionDelta := FormatDelta(PercentDelta(len(reactions), len(shiftedReactions)))

	var b strings.Builder
	fmt.Fprintf(&b, "*Chat summary* (%s):", req.PeriodLabel())
	fmt.Fprintf(&b, "\n- *Total*: *%d (%s)* messages, *%d (%s)* reactions and *%d* images",
		len(messages), messageDelta, len(reactions), reactionDelta, imagesNum)
	b.WriteString("\n- *Top spammer*: " + FormatRankedCounts(messageCounts, summaryTop))
	b.WriteString("\n- *Fun meter*: " + FormatRankedRatios(funMetric, summaryTop))
	b.WriteString("\n- *Wholesome meter*: " + FormatRankedRatios(wholesomeMetric, summaryTop))
	b.WriteString("\n- *Unwholesome meter*: " + FormatRankedRatios(AscendingRatios(wholesomeMetric), summaryTop))
	b.WriteString("\n- *Most liked*: " + FormatRankedCounts(receivedCounts, summaryTop))
	b.WriteString("\n- *Most liking*: " + FormatRankedCounts(givenCounts, summaryTop))
	b.WriteString("\n- *Most disliked*: " + FormatRankedCounts(sadReceivedCounts, summaryTop))
	b.WriteString("\n- *Most disliking*: " + FormatRankedCounts(sadGivenCounts, summaryTop))

	if top, ok := firstTextMessage(messages); ok {
		fmt.Fprintf(&b, "\n- *Top message*: %s [%s]: %s [%s]",
			top.Username, FormatTimestamp(top.Timestamp, s.loc), top.Text, strings.Join(top.ReactionEmojis, ""))
	}

	return []domain.Reply{domain.MarkdownReply(b.String())}
}

// TopMessages строит листинг лучших (или худших, для негативного среза)
// текстовых сообщений окна по числу реакций.
func (s *Service) TopMessages(ctx context.Context, args []string, kind domain.EmojiKind) []domain.Reply {
	defer metrics.ObserveReportBuild(s.now())
	messages, _, req := s.preprocess(ctx, args, userPeriodSpec(), kind)
	if req.Err != "" {
		return errorReply(req)
	}

	textOnly := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Text != "" {
			textOnly = append(textOnly, m)
		}
	}

	var b strings.Builder
	b.WriteString(Headline(sentimentLabel(kind)+" Cinco messages", req))
	for i, m := range textOnly {
		if i >= s.topCount || len(m.ReactionEmojis) == 0 {
			break
		}
		b.WriteString("\n" + FormatMessageLine(i+1, m, req.User == "", s.loc))
	}

	return []domain.Reply{domain.TextReply(CapLength(b.String()))}
}

// TopMedia строит листинг лучших медиа окна и отправляет сами файлы.
// Видео и видеосообщения считаются одним типом.
func (s *Service) TopMedia(ctx context.Context, args []string, media domain.MessageKind, kind domain.EmojiKind) []domain.Reply {
	defer metrics.ObserveReportBuild(s.now())
	messages, _, req := s.preprocess(ctx, args, userPeriodSpec(), kind)
	if req.Err != "" {
		return errorReply(req)
	}

	matched := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Kind == media || (media == domain.KindVideo && m.Kind == domain.KindVideoNote) {
			matched = append(matched, m)
		}
	}

	label := fmt.Sprintf("%s Cinco %s", sentimentLabel(kind), media)
	replies := []domain.Reply{domain.TextReply(Headline(label, req))}

	for i, m := range matched {
		if i >= s.topCount {
			break
		}
		line := FormatMessageLine(i+1, m, req.User == "", s.loc)
		replies = append(replies, mediaReply(m.Kind, s.store.MediaPath(m.ID, m.Kind), line)...)
	}

	return replies
}

// LastMessages показывает последние N сообщений окна, свежие сверху.
func (s *Service) LastMessages(ctx context.Context, args []string) []domain.Reply {
	defer metrics.ObserveReportBuild(s.now())
	spec := CommandSpec{
		Args:        []ArgSpec{{Kind: ArgUser, Optional: true}, {Kind: ArgNumber, Optional: true}},
		NumberLimit: s.numberLimit,
	}
	messages, _, req := s.preprocess(ctx, args, spec, domain.EmojiAll)
	if req.Err != "" {
		return errorReply(req)
	}

	// preprocess отдаёт сортировку по реакциям, здесь нужна по времени
	recentFirst := SortByTimestampDesc(messages)

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d messages", req.Number)
	if req.User != "" {
		b.WriteString(" by " + req.User)
	} else {
		b.WriteString(":")
	}
	for i, m := range recentFirst {
		if i >= req.Number {
			break
		}
		b.WriteString("\n" + FormatMessageLine(i+1, m, req.User == "", s.loc))
	}

	return []domain.Reply{domain.TextReply(CapLength(b.String()))}
}

// Fun печатает фан-метр окна моноширинным листингом.
func (s *Service) Fun(ctx context.Context, args []string) []domain.Reply {
	defer metrics.ObserveReportBuild(s.now())
	messages, reactions, req := s.preprocess(ctx, args, periodSpec(), domain.EmojiAll)
	if req.Err != "" {
		return errorReply(req)
	}

	ratios := FunMetric(messages, reactions)
	text := FormatMonospaceRatios(Headline("Funmeter", req), ratios)
	return []domain.Reply{domain.MarkdownReply(text)}
}

// Wholesome печатает душевность-метр окна моноширинным листингом.
func (s *Service) Wholesome(ctx context.Context, args []string) []domain.Reply {
	defer metrics.ObserveReportBuild(s.now())
	_, reactions, req := s.preprocess(ctx, args, periodSpec(), domain.EmojiAll)
	if req.Err != "" {
		return errorReply(req)
	}

	ratios := WholesomeMetric(reactions)
	text := FormatMonospaceRatios(Headline("Wholesome meter", req), ratios)
	return []domain.Reply{domain.MarkdownReply(text)}
}

// FunChart строит график дневной фан-метрики.
func (s *Service) FunChart(ctx context.Context, args []string) []domain.Reply {
	return s.chart(ctx, args, "Funmeter", "funratio", func(messages []domain.Message, reactions []domain.Reaction) []domain.SeriesPoint {
		return PeriodizedFunMetric(messages, reactions, s.loc)
	})
}

// SpamChart строит график числа сообщений по дням.
func (s *Service) SpamChart(ctx context.Context, args []string) []domain.Reply {
	return s.chart(ctx, args, "Spamchart", "messages", func(messages []domain.Message, _ []domain.Reaction) []domain.SeriesPoint {
		return MessageCountSeries(messages, s.loc)
	})
}

// LikeChart строит график полученных реакций по дням.
func (s *Service) LikeChart(ctx context.Context, args []string) []domain.Reply {
	return s.chart(ctx, args, "Likechart", "likes received", func(_ []domain.Message, reactions []domain.Reaction) []domain.SeriesPoint {
		return ReactionCountSeries(reactions, s.loc)
	})
}

func (s *Service) chart(ctx context.Context, args []string, label, yLabel string, build func([]domain.Message, []domain.Reaction) []domain.SeriesPoint) []domain.Reply {
	defer metrics.ObserveReportBuild(s.now())
	messages, reactions, req := s.preprocess(ctx, args, userPeriodSpec(), domain.EmojiAll)
	if req.Err != "" {
		return errorReply(req)
	}

	users := []string{req.User}
	if req.User == "" {
		users = users[:0]
		for _, u := range s.cache.Users() {
			users = append(users, u.Username)
		}
	}

	series := build(messages, reactions)
	title := Headline(label, req)
	path, err := s.charts.Render(series, users, title, "time", yLabel)
	if err != nil {
		s.log.Error().Err(err).Str("chart", label).Msg("не удалось построить график")
		return []domain.Reply{domain.TextReply("No data to display.")}
	}

	return []domain.Reply{{Kind: domain.ReplyPhoto, Text: title, MediaPath: path}}
}

// ListUsers перечисляет участников чата с их никнеймами.
func (s *Service) ListUsers(ctx context.Context) []domain.Reply {
	if err := s.cache.ReloadIfStale(ctx); err != nil {
		s.log.Warn().Err(err).Msg("не удалось перечитать таблицы, работаем по старым")
	}

	var b strings.Builder
	b.WriteString("All ye who dost partake in this discourse:")
	for _, u := range s.cache.Users() {
		fmt.Fprintf(&b, "\n- *%s*: [%s]", u.Username, strings.Join(u.Nicknames, ", "))
	}
	return []domain.Reply{domain.MarkdownReply(b.String())}
}

// AddNickname добавляет пользователю никнейм, не больше MaxNicknames штук.
func (s *Service) AddNickname(ctx context.Context, userID int64, args []string) []domain.Reply {
	spec := CommandSpec{
		Args:       []ArgSpec{{Kind: ArgText}},
		MinTextLen: 3,
		MaxTextLen: 20,
		TextLabel:  "Nickname",
	}
	req := Resolve(s.cache.Users(), spec, args)
	if req.Err != "" {
		return errorReply(req)
	}

	users := append([]domain.User(nil), s.cache.Users()...)
	idx := indexOfUser(users, userID)
	if idx < 0 {
		return []domain.Reply{domain.TextReply("Unknown user.")}
	}

	user := users[idx]
	if len(user.Nicknames) >= MaxNicknames {
		text := fmt.Sprintf("Nickname *%s* not added for *%s*. Nicknames limit is %d.", req.Text, user.Username, MaxNicknames)
		return []domain.Reply{domain.MarkdownReply(text)}
	}

	user.Nicknames = append(append([]string(nil), user.Nicknames...), req.Text)
	users[idx] = user
	if err := s.cache.SaveUsers(ctx, users); err != nil {
		s.log.Error().Err(err).Msg("не удалось сохранить пользователей")
		return []domain.Reply{domain.TextReply("Could not save the nickname, try again later.")}
	}

	text := fmt.Sprintf("Nickname *%s* added for *%s*. Resulting in the following nicknames: *%s*. It will get updated in a few minutes.",
		req.Text, user.Username, strings.Join(user.Nicknames, ", "))
	return []domain.Reply{domain.MarkdownReply(text)}
}

// SetUsername меняет отображаемое имя пользователя с проверкой уникальности.
func (s *Service) SetUsername(ctx context.Context, userID int64, args []string) []domain.Reply {
	spec := CommandSpec{
		Args:       []ArgSpec{{Kind: ArgText}},
		MinTextLen: 3,
		MaxTextLen: MaxUsernameLength,
		TextLabel:  "Username",
	}
	req := Resolve(s.cache.Users(), spec, args)
	if req.Err != "" {
		return errorReply(req)
	}

	users := append([]domain.User(nil), s.cache.Users()...)
	idx := indexOfUser(users, userID)
	if idx < 0 {
		return []domain.Reply{domain.TextReply("Unknown user.")}
	}

	for i, u := range users {
		if i != idx && strings.EqualFold(u.Username, req.Text) {
			text := fmt.Sprintf("Username *%s* is already taken.", req.Text)
			return []domain.Reply{domain.MarkdownReply(text)}
		}
	}

	previous := users[idx].Username
	users[idx].Username = req.Text
	if err := s.cache.SaveUsers(ctx, users); err != nil {
		s.log.Error().Err(err).Msg("не удалось сохранить пользователей")
		return []domain.Reply{domain.TextReply("Could not save the username, try again later.")}
	}

	text := fmt.Sprintf("Username changed from: *%s* to *%s*. It will get updated in a few minutes.", previous, req.Text)
	return []domain.Reply{domain.MarkdownReply(text)}
}

func errorReply(req Request) []domain.Reply {
	metrics.IncArgumentError()
	return []domain.Reply{domain.TextReply(req.Err)}
}

func sentimentLabel(kind domain.EmojiKind) string {
	if kind == domain.EmojiNegative {
		return "Sad"
	}
	return "Top"
}

func firstTextMessage(messages []domain.Message) (domain.Message, bool) {
	for _, m := range messages {
		if m.Text != "" {
			return m, true
		}
	}
	return domain.Message{}, false
}

func mediaReply(kind domain.MessageKind, path, caption string) []domain.Reply {
	switch kind {
	case domain.KindGIF:
		return []domain.Reply{{Kind: domain.ReplyAnimation, Text: caption, MediaPath: path}}
	case domain.KindVideo:
		return []domain.Reply{{Kind: domain.ReplyVideo, Text: caption, MediaPath: path}}
	case domain.KindVideoNote:
		// видеосообщения не несут подписи, текст уходит отдельно
		return []domain.Reply{
			{Kind: domain.ReplyVideoNote, MediaPath: path},
			domain.TextReply(caption),
		}
	case domain.KindAudio:
		return []domain.Reply{{Kind: domain.ReplyAudio, Text: caption, MediaPath: path}}
	default:
		return []domain.Reply{{Kind: domain.ReplyPhoto, Text: caption, MediaPath: path}}
	}
}

func indexOfUser(users []domain.User, id int64) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}
