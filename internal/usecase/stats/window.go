package stats

import (
	"math"
	"time"

	"tg-chat-stats-bot/internal/domain"
)

// Timed реализуют записи таблиц с отметкой времени.
type Timed interface {
	Time() time.Time
}

// Смещения фиксированных режимов в днях от локальной полуночи.
// Год считается как 365 дней, без привязки к календарным границам.
var modeDayOffsets = map[domain.PeriodMode]int{
	domain.ModeToday:     0,
	domain.ModeYesterday: 1,
	domain.ModeWeek:      7,
	domain.ModeMonth:     30,
	domain.ModeYear:      365,
}

// WindowOf возвращает срез таблицы в запрошенном окне. Исходная таблица не
// изменяется; результат — всегда независимая копия, включая режим total.
func WindowOf[T Timed](rows []T, req Request, now time.Time, loc *time.Location) []T {
	from, to, all := windowBounds(req, now, loc, false)
	return selectRange(rows, from, to, all)
}

// ShiftedWindowOf возвращает предыдущее окно той же длительности — базу для
// процентных дельт. Для total базы нет, результат пуст.
func ShiftedWindowOf[T Timed](rows []T, req Request, now time.Time, loc *time.Location) []T {
	if req.Mode == domain.ModeTotal {
		return nil
	}
	from, to, all := windowBounds(req, now, loc, true)
	return selectRange(rows, from, to, all)
}

// windowBounds вычисляет полуинтервал [from, to) окна запроса. Нулевое to
// означает отсутствие верхней границы, all — окно без ограничений.
func windowBounds(req Request, now time.Time, loc *time.Location, shifted bool) (from, to time.Time, all bool) {
	switch req.Mode {
	case domain.ModeTotal:
		return time.Time{}, time.Time{}, true
	case domain.ModeHours:
		d := time.Duration(req.Hours) * time.Hour
		if shifted {
			return now.Add(-2 * d), now.Add(-d), false
		}
		return now.Add(-d), time.Time{}, false
	}

	offset := modeDayOffsets[req.Mode]
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch req.Mode {
	case domain.ModeToday:
		// база «сегодня» — весь вчерашний день
		if shifted {
			return midnight.AddDate(0, 0, -1), midnight, false
		}
		return midnight, time.Time{}, false
	case domain.ModeYesterday:
		if shifted {
			return midnight.AddDate(0, 0, -2), midnight.AddDate(0, 0, -1), false
		}
		return midnight.AddDate(0, 0, -1), midnight, false
	default:
		if shifted {
			return midnight.AddDate(0, 0, -2*offset), midnight.AddDate(0, 0, -offset), false
		}
		return midnight.AddDate(0, 0, -offset), time.Time{}, false
	}
}

func selectRange[T Timed](rows []T, from, to time.Time, all bool) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if all {
			out = append(out, row)
			continue
		}
		ts := row.Time()
		if ts.Before(from) {
			continue
		}
		if !to.IsZero() && !ts.Before(to) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// PercentDelta считает изменение в процентах относительно базы предыдущего
// окна, округлённое до одного знака. Пустая база даёт 0, а не деление на ноль.
func PercentDelta(current, baseline int) float64 {
	if baseline == 0 {
		return 0
	}
	change := float64(current-baseline) / float64(baseline) * 100
	return math.RoundToEven(change*10) / 10
}

// FormatDelta печатает дельту с явным плюсом для положительных значений.
func FormatDelta(delta float64) string {
	if delta > 0 {
		return "+" + trimFloat(delta) + "%"
	}
	return trimFloat(delta) + "%"
}
