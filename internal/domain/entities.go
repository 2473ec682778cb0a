package domain

import "time"

// MessageKind описывает тип сообщения в архиве чата.
type MessageKind string

// Поддерживаемые типы сообщений.
const (
	KindText      MessageKind = "text"
	KindImage     MessageKind = "image"
	KindVideo     MessageKind = "video"
	KindVideoNote MessageKind = "video_note"
	KindAudio     MessageKind = "audio"
	KindGIF       MessageKind = "gif"
)

// PeriodMode задаёт режим временного окна запроса.
type PeriodMode string

// Фиксированные режимы окна. ModeHours хранит число часов отдельно.
const (
	ModeToday     PeriodMode = "today"
	ModeYesterday PeriodMode = "yesterday"
	ModeWeek      PeriodMode = "week"
	ModeMonth     PeriodMode = "month"
	ModeYear      PeriodMode = "year"
	ModeTotal     PeriodMode = "total"
	ModeHours     PeriodMode = "hours"
)

// ParsePeriodMode возвращает фиксированный режим по токену команды.
func ParsePeriodMode(token string) (PeriodMode, bool) {
	switch PeriodMode(token) {
	case ModeToday, ModeYesterday, ModeWeek, ModeMonth, ModeYear, ModeTotal:
		return PeriodMode(token), true
	}
	return "", false
}

// EmojiKind выбирает срез реакций по тональности эмодзи.
type EmojiKind int

// Срезы реакций.
const (
	EmojiAll EmojiKind = iota
	EmojiNegative
	EmojiPositive
)

// Message описывает одно сообщение архива чата.
type Message struct {
	ID             int64
	Username       string
	Timestamp      time.Time
	Kind           MessageKind
	Text           string
	ReactionEmojis []string
}

// Time возвращает момент отправки сообщения.
func (m Message) Time() time.Time { return m.Timestamp }

// Reaction описывает одно событие реакции.
type Reaction struct {
	ReactingUsername  string
	ReactedToUsername string
	Emoji             string
	Timestamp         time.Time
}

// Time возвращает момент реакции.
func (r Reaction) Time() time.Time { return r.Timestamp }

// User описывает участника чата.
type User struct {
	ID        int64
	Username  string
	Nicknames []string
}

// SeriesPoint — точка временного ряда для графиков: день, пользователь, значение.
type SeriesPoint struct {
	Day      time.Time
	Username string
	Value    float64
}

// ReplyKind задаёт способ доставки ответа в чат.
type ReplyKind int

// Виды ответов.
const (
	ReplyText ReplyKind = iota
	ReplyPhoto
	ReplyVideo
	ReplyVideoNote
	ReplyAudio
	ReplyAnimation
)

// Reply — единица ответа бота: текст и, опционально, путь к медиафайлу.
type Reply struct {
	Kind      ReplyKind
	Text      string
	Markdown  bool
	MediaPath string
}

// TextReply создаёт простой текстовый ответ.
func TextReply(text string) Reply { return Reply{Kind: ReplyText, Text: text} }

// MarkdownReply создаёт текстовый ответ с разметкой MarkdownV2.
func MarkdownReply(text string) Reply { return Reply{Kind: ReplyText, Text: text, Markdown: true} }
