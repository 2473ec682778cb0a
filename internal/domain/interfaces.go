package domain

import "context"

// TableStore читает и сохраняет таблицы архива чата. Отсутствие данных на
// диске — валидное состояние «данных ещё нет», а не ошибка.
type TableStore interface {
	LoadMessages(ctx context.Context) ([]Message, error)
	LoadReactions(ctx context.Context) ([]Reaction, error)
	LoadUsers(ctx context.Context) ([]User, error)
	SaveMessages(ctx context.Context, messages []Message) error
	SaveReactions(ctx context.Context, reactions []Reaction) error
	SaveUsers(ctx context.Context, users []User) error

	// UpdateRequired сообщает, что таблицы были изменены коллектором
	// и их нужно перечитать. ClearUpdateFlag снимает сигнал.
	UpdateRequired() (bool, error)
	ClearUpdateFlag() error

	// MediaPath возвращает путь к медиафайлу сообщения.
	MediaPath(messageID int64, kind MessageKind) string
}

// ChartRenderer строит изображение по временному ряду и возвращает путь к файлу.
type ChartRenderer interface {
	Render(series []SeriesPoint, users []string, title, xLabel, yLabel string) (string, error)
}
