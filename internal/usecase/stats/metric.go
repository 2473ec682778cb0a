package stats

import (
	"math"
	"sort"
	"time"

	"tg-chat-stats-bot/internal/domain"
)

// negativeEmojis — реакции, считающиеся негативными при срезе EmojiNegative.
var negativeEmojis = map[string]struct{}{
	"👎": {}, "😢": {}, "😭": {}, "🤬": {}, "🤡": {}, "💩": {}, "😫": {}, "😩": {},
	"🥶": {}, "🤨": {}, "🧐": {}, "🙃": {}, "😒": {}, "😠": {}, "😣": {}, "🗿": {},
}

// IsNegativeEmoji сообщает, относится ли эмодзи к негативному набору.
func IsNegativeEmoji(emoji string) bool {
	_, ok := negativeEmojis[emoji]
	return ok
}

func emojiMatches(emoji string, kind domain.EmojiKind) bool {
	switch kind {
	case domain.EmojiNegative:
		return IsNegativeEmoji(emoji)
	case domain.EmojiPositive:
		return !IsNegativeEmoji(emoji)
	default:
		return true
	}
}

// FilterReactions оставляет реакции выбранного среза тональности.
func FilterReactions(reactions []domain.Reaction, kind domain.EmojiKind) []domain.Reaction {
	if kind == domain.EmojiAll {
		return append([]domain.Reaction(nil), reactions...)
	}
	out := make([]domain.Reaction, 0, len(reactions))
	for _, r := range reactions {
		if emojiMatches(r.Emoji, kind) {
			out = append(out, r)
		}
	}
	return out
}

// FilterMessageReactions пересобирает список эмодзи каждого сообщения под
// выбранный срез. Сообщения копируются, исходная таблица не изменяется.
func FilterMessageReactions(messages []domain.Message, kind domain.EmojiKind) []domain.Message {
	out := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if kind != domain.EmojiAll {
			kept := make([]string, 0, len(m.ReactionEmojis))
			for _, e := range m.ReactionEmojis {
				if emojiMatches(e, kind) {
					kept = append(kept, e)
				}
			}
			m.ReactionEmojis = kept
		} else {
			m.ReactionEmojis = append([]string(nil), m.ReactionEmojis...)
		}
		out = append(out, m)
	}
	return out
}

// Count — строка таблицы ранжирования по количеству.
type Count struct {
	Username string
	Count    int
}

// Ratio — строка таблицы ранжирования по отношению.
type Ratio struct {
	Username string
	Ratio    float64
}

// orderedCounts группирует значения по ключу, сохраняя порядок первого
// появления. Таблицы отсортированы по времени, поэтому порядок вставки
// совпадает с порядком самых ранних записей — он же и tie-break.
type orderedCounts struct {
	order  []string
	counts map[string]int
}

func newOrderedCounts() *orderedCounts {
	return &orderedCounts{counts: make(map[string]int)}
}

func (c *orderedCounts) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *orderedCounts) ranked() []Count {
	out := make([]Count, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, Count{Username: key, Count: c.counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// MessageCounts считает сообщения по авторам, по убыванию.
func MessageCounts(messages []domain.Message) []Count {
	counts := newOrderedCounts()
	for _, m := range messages {
		counts.add(m.Username)
	}
	return counts.ranked()
}

// ReactionsReceivedCounts считает полученные реакции по адресатам.
func ReactionsReceivedCounts(reactions []domain.Reaction) []Count {
	counts := newOrderedCounts()
	for _, r := range reactions {
		counts.add(r.ReactedToUsername)
	}
	return counts.ranked()
}

// ReactionsGivenCounts считает поставленные реакции по авторам.
func ReactionsGivenCounts(reactions []domain.Reaction) []Count {
	counts := newOrderedCounts()
	for _, r := range reactions {
		counts.add(r.ReactingUsername)
	}
	return counts.ranked()
}

// FunMetric считает «фан»: полученные реакции на одно отправленное сообщение.
// Пользователи без сообщений в окне исключаются: их отношение не определено,
// а не равно нулю.
func FunMetric(messages []domain.Message, reactions []domain.Reaction) []Ratio {
	messageCounts := make(map[string]int, len(messages))
	for _, m := range messages {
		messageCounts[m.Username]++
	}

	received := newOrderedCounts()
	for _, r := range reactions {
		received.add(r.ReactedToUsername)
	}

	out := make([]Ratio, 0, len(received.order))
	for _, username := range received.order {
		sent, ok := messageCounts[username]
		if !ok || sent == 0 {
			continue
		}
		out = append(out, Ratio{Username: username, Ratio: round2(float64(received.counts[username]) / float64(sent))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio > out[j].Ratio })
	return out
}

// WholesomeMetric считает «душевность»: поставленные реакции на одну
// полученную. В таблицу попадают только пользователи, которые и получали,
// и ставили реакции в окне.
func WholesomeMetric(reactions []domain.Reaction) []Ratio {
	given := make(map[string]int, len(reactions))
	for _, r := range reactions {
		given[r.ReactingUsername]++
	}

	received := newOrderedCounts()
	for _, r := range reactions {
		received.add(r.ReactedToUsername)
	}

	out := make([]Ratio, 0, len(received.order))
	for _, username := range received.order {
		got := received.counts[username]
		gave, ok := given[username]
		if !ok || got == 0 {
			continue
		}
		out = append(out, Ratio{Username: username, Ratio: round2(float64(gave) / float64(got))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio > out[j].Ratio })
	return out
}

// AscendingRatios возвращает копию таблицы, отсортированную по возрастанию —
// «антидушевный» взгляд на ту же таблицу.
func AscendingRatios(ratios []Ratio) []Ratio {
	out := append([]Ratio(nil), ratios...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio < out[j].Ratio })
	return out
}

type dayUser struct {
	day      int64
	username string
}

type orderedDayCounts struct {
	order  []dayUser
	counts map[dayUser]int
}

func newOrderedDayCounts() *orderedDayCounts {
	return &orderedDayCounts{counts: make(map[dayUser]int)}
}

func (c *orderedDayCounts) add(key dayUser) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func dayOf(ts time.Time, loc *time.Location) time.Time {
	local := ts.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// PeriodizedFunMetric считает фан-метрику по дням. Соединение внутреннее:
// пары (день, пользователь) без сообщений или без реакций выпадают из ряда.
func PeriodizedFunMetric(messages []domain.Message, reactions []domain.Reaction, loc *time.Location) []domain.SeriesPoint {
	messageCounts := newOrderedDayCounts()
	for _, m := range messages {
		messageCounts.add(dayUser{day: dayOf(m.Timestamp, loc).Unix(), username: m.Username})
	}

	reactionCounts := make(map[dayUser]int, len(reactions))
	for _, r := range reactions {
		key := dayUser{day: dayOf(r.Timestamp, loc).Unix(), username: r.ReactedToUsername}
		reactionCounts[key]++
	}

	out := make([]domain.SeriesPoint, 0, len(messageCounts.order))
	for _, key := range messageCounts.order {
		got, ok := reactionCounts[key]
		if !ok {
			continue
		}
		sent := messageCounts.counts[key]
		out = append(out, domain.SeriesPoint{
			Day:      time.Unix(key.day, 0).In(loc),
			Username: key.username,
			Value:    round2(float64(got) / float64(sent)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].Value > out[j].Value
	})
	return out
}

// MessageCountSeries считает сообщения по дням и авторам для графиков.
func MessageCountSeries(messages []domain.Message, loc *time.Location) []domain.SeriesPoint {
	counts := newOrderedDayCounts()
	for _, m := range messages {
		counts.add(dayUser{day: dayOf(m.Timestamp, loc).Unix(), username: m.Username})
	}
	return daySeries(counts, loc)
}

// ReactionCountSeries считает полученные реакции по дням и адресатам.
func ReactionCountSeries(reactions []domain.Reaction, loc *time.Location) []domain.SeriesPoint {
	counts := newOrderedDayCounts()
	for _, r := range reactions {
		counts.add(dayUser{day: dayOf(r.Timestamp, loc).Unix(), username: r.ReactedToUsername})
	}
	return daySeries(counts, loc)
}

func daySeries(counts *orderedDayCounts, loc *time.Location) []domain.SeriesPoint {
	out := make([]domain.SeriesPoint, 0, len(counts.order))
	for _, key := range counts.order {
		out = append(out, domain.SeriesPoint{
			Day:      time.Unix(key.day, 0).In(loc),
			Username: key.username,
			Value:    float64(counts.counts[key]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].Username < out[j].Username
	})
	return out
}

// SortByReactions сортирует копию таблицы сообщений по числу реакций
// (по убыванию), при равенстве — по времени отправки (по возрастанию).
func SortByReactions(messages []domain.Message) []domain.Message {
	out := append([]domain.Message(nil), messages...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := len(out[i].ReactionEmojis), len(out[j].ReactionEmojis)
		if ri != rj {
			return ri > rj
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// SortByTimestampDesc сортирует копию таблицы сообщений от свежих к старым.
func SortByTimestampDesc(messages []domain.Message) []domain.Message {
	out := append([]domain.Message(nil), messages...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// round2 округляет до двух знаков банковским округлением.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
