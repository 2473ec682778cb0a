package stats

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"tg-chat-stats-bot/internal/domain"
)

// MaxHours — верхняя граница для режима «последние N часов»: число часов в 20 годах.
// Тот же предел используется как «никогда не истекает» для числовых аргументов.
const MaxHours = 24 * 365 * 20

// MaxUsernameLength ограничивает длину отображаемого имени пользователя.
const MaxUsernameLength = 20

const defaultNumber = 5

// ArgKind — вид позиционного аргумента команды.
type ArgKind int

// Виды аргументов.
const (
	ArgUser ArgKind = iota
	ArgPeriod
	ArgNumber
	ArgText
)

// ArgSpec описывает один ожидаемый аргумент.
type ArgSpec struct {
	Kind     ArgKind
	Optional bool
}

// CommandSpec задаёт ожидаемую форму аргументов команды.
type CommandSpec struct {
	Args        []ArgSpec
	NumberLimit int // 0 — значит MaxHours
	MinTextLen  int
	MaxTextLen  int
	TextLabel   string
}

// Request — разобранный запрос команды. Если Err непустой, запрос терминален:
// никакая фильтрация и агрегация по нему выполняться не должна.
type Request struct {
	Mode   domain.PeriodMode
	Hours  int // только для ModeHours, иначе -1
	User   string
	Number int
	Text   string
	Err    string
}

// PeriodLabel возвращает человекочитаемую подпись окна запроса.
func (r Request) PeriodLabel() string {
	if r.Mode == domain.ModeHours {
		return fmt.Sprintf("past %dh", r.Hours)
	}
	return string(r.Mode)
}

type declinedArg struct {
	order int
	msg   string
}

// Resolve разбирает позиционные аргументы команды в Request. Скалярные виды
// (PERIOD, NUMBER) снимаются с хвоста списка токенов, USER и FREE-TEXT
// забирают оставшееся начало целиком. Ошибки никогда не паникуют: первая
// отказавшая позиция в объявленном порядке попадает в Request.Err.
func Resolve(users []domain.User, spec CommandSpec, tokens []string) Request {
	req := Request{Mode: domain.ModeTotal, Hours: -1, Number: defaultNumber}
	rest := append([]string(nil), tokens...)
	var declined []declinedArg

	for i := len(spec.Args) - 1; i >= 0; i-- {
		arg := spec.Args[i]
		switch arg.Kind {
		case ArgPeriod:
			if len(rest) == 0 {
				continue
			}
			token := rest[len(rest)-1]
			mode, hours, ok := parsePeriodToken(token)
			if ok {
				req.Mode, req.Hours = mode, hours
				rest = rest[:len(rest)-1]
				continue
			}
			msg := fmt.Sprintf("There is no such command mode as %s.", token)
			if !arg.Optional {
				req.Err = msg
				return req
			}
			declined = append(declined, declinedArg{order: i, msg: msg})
		case ArgNumber:
			limit := spec.NumberLimit
			if limit <= 0 {
				limit = MaxHours
			}
			if len(rest) == 0 {
				continue
			}
			token := rest[len(rest)-1]
			n, err := strconv.Atoi(token)
			if err == nil && n >= 0 && n <= limit {
				req.Number = n
				rest = rest[:len(rest)-1]
				continue
			}
			msg := fmt.Sprintf("Wrong number: %s. Give a number between 0 and %d.", token, limit)
			if !arg.Optional {
				req.Err = msg
				return req
			}
			declined = append(declined, declinedArg{order: i, msg: msg})
		}
	}

	for i, arg := range spec.Args {
		switch arg.Kind {
		case ArgUser:
			if len(rest) == 0 {
				continue
			}
			raw := strings.Join(rest, " ")
			query := strings.ReplaceAll(raw, "@", "")
			username, ok := matchUsername(users, query)
			if ok {
				req.User = username
				rest = nil
				continue
			}
			msg := fmt.Sprintf("There is no such user as %s. Known users: %s.", query, knownUsernames(users))
			if !arg.Optional {
				req.Err = msg
				return req
			}
			declined = append(declined, declinedArg{order: i, msg: msg})
		case ArgText:
			text := strings.Join(rest, " ")
			rest = nil
			length := len([]rune(text))
			if length < spec.MinTextLen || (spec.MaxTextLen > 0 && length > spec.MaxTextLen) {
				req.Err = fmt.Sprintf("%s must be between %d and %d characters long.", spec.TextLabel, spec.MinTextLen, spec.MaxTextLen)
				return req
			}
			req.Text = text
		}
	}

	if len(rest) > 0 {
		if len(declined) > 0 {
			sort.Slice(declined, func(a, b int) bool { return declined[a].order < declined[b].order })
			req.Err = declined[0].msg
			return req
		}
		req.Err = leftoverError(spec, rest[0])
	}
	return req
}

// leftoverError строит ошибку для токенов, которые не забрал ни один вид
// аргумента: лишние слова в команде не пропадают молча.
func leftoverError(spec CommandSpec, token string) string {
	for _, arg := range spec.Args {
		switch arg.Kind {
		case ArgPeriod:
			return fmt.Sprintf("There is no such command mode as %s.", token)
		case ArgNumber:
			limit := spec.NumberLimit
			if limit <= 0 {
				limit = MaxHours
			}
			return fmt.Sprintf("Wrong number: %s. Give a number between 0 and %d.", token, limit)
		}
	}
	return fmt.Sprintf("There is no such command mode as %s.", token)
}

// parsePeriodToken распознаёт фиксированный режим или положительное число часов.
func parsePeriodToken(token string) (domain.PeriodMode, int, bool) {
	if mode, ok := domain.ParsePeriodMode(strings.ToLower(token)); ok {
		return mode, -1, true
	}
	if n, err := strconv.Atoi(token); err == nil && n > 0 && n <= MaxHours {
		return domain.ModeHours, n, true
	}
	return "", 0, false
}

// matchUsername ищет имя сначала точным совпадением без учёта регистра,
// затем — подстрокой (для запросов от 3 символов). Побеждает первая строка
// таблицы пользователей.
func matchUsername(users []domain.User, query string) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "", false
	}
	for _, u := range users {
		if strings.ToLower(u.Username) == q {
			return u.Username, true
		}
	}
	if len([]rune(q)) >= 3 {
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.Username), q) {
				return u.Username, true
			}
		}
	}
	return "", false
}

func knownUsernames(users []domain.User) string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return strings.Join(names, ", ")
}
