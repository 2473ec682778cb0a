package stats

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tg-chat-stats-bot/internal/domain"
)

// MaxReplyLength — лимит Telegram на длину одного сообщения.
const MaxReplyLength = 4096

// TooMuchText подменяет слишком длинную выдачу вместо молчаливой обрезки.
const TooMuchText = "Too much text to display. Lower the number of messages."

const timestampLayout = "02-01-2006 15:04"

// FormatTimestamp печатает момент времени в гражданском часовом поясе чата.
func FormatTimestamp(ts time.Time, loc *time.Location) string {
	return ts.In(loc).Format(timestampLayout)
}

// Headline строит первую строку отчёта: подпись, пользователь, окно.
func Headline(label string, req Request) string {
	text := label
	if req.User != "" {
		text += " for " + req.User
	} else {
		text += " "
	}
	return fmt.Sprintf("%s (%s):", text, req.PeriodLabel())
}

// FormatRankedCounts печатает верх таблицы количеств одной строкой:
// "alice: *10*, bob: *5*".
func FormatRankedCounts(rows []Count, top int) string {
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("%s: *%d*", row.Username, row.Count))
	}
	return strings.Join(parts, ", ")
}

// FormatRankedRatios печатает верх таблицы отношений одной строкой.
func FormatRankedRatios(rows []Ratio, top int) string {
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("%s: *%s*", row.Username, trimFloat(row.Ratio)))
	}
	return strings.Join(parts, ", ")
}

// FormatMessageLine печатает одну строку листинга сообщений:
// "1. alice [02-01-2006 15:04]: text [🔥👍]". Имя автора опускается,
// когда листинг и так отфильтрован по одному пользователю.
func FormatMessageLine(position int, m domain.Message, withUsername bool, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.", position)
	if withUsername {
		b.WriteString(" " + m.Username)
	}
	fmt.Fprintf(&b, " [%s]:", FormatTimestamp(m.Timestamp, loc))
	if m.Text != "" {
		b.WriteString(" " + m.Text)
	}
	fmt.Fprintf(&b, " [%s]", strings.Join(m.ReactionEmojis, ""))
	return b.String()
}

// FormatMonospaceRatios строит моноширинный листинг отношений с выравниванием
// колонок, пригодный для блока кода MarkdownV2.
func FormatMonospaceRatios(headline string, rows []Ratio) string {
	var b strings.Builder
	b.WriteString("``` " + headline)
	for i, row := range rows {
		prefix := padRight(fmt.Sprintf("%d.", i+1), 4)
		name := padRight(fmt.Sprintf(" %s:", row.Username), MaxUsernameLength+5)
		b.WriteString("\n" + prefix + name + trimFloat(row.Ratio))
	}
	b.WriteString("```")
	return b.String()
}

// CapLength заменяет слишком длинный текст единым пояснением.
func CapLength(text string) string {
	if len([]rune(text)) > MaxReplyLength {
		return TooMuchText
	}
	return text
}

func padRight(s string, width int) string {
	if pad := width - len([]rune(s)); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// trimFloat печатает число без хвостовых нулей: 0.8, 1.25, 3.
func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
