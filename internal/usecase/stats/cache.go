package stats

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"tg-chat-stats-bot/internal/domain"
	"tg-chat-stats-bot/internal/infra/metrics"
)

// TableCache держит таблицы архива в памяти и перечитывает их целиком, когда
// хранилище сигналит об обновлении. Проверка выполняется в начале каждой
// команды; бот однопроцессный, команды сериализуются диспетчером транспорта.
type TableCache struct {
	store     domain.TableStore
	log       zerolog.Logger
	messages  []domain.Message
	reactions []domain.Reaction
	users     []domain.User
}

// NewTableCache загружает таблицы и создаёт кэш.
func NewTableCache(ctx context.Context, store domain.TableStore, log zerolog.Logger) (*TableCache, error) {
	c := &TableCache{store: store, log: log}
	if err := c.reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// ReloadIfStale перечитывает таблицы, если коллектор пометил их изменёнными,
// и снимает сигнал.
func (c *TableCache) ReloadIfStale(ctx context.Context) error {
	required, err := c.store.UpdateRequired()
	if err != nil {
		return fmt.Errorf("проверка сигнала обновления: %w", err)
	}
	if !required {
		return nil
	}

	c.log.Info().Msg("перечитываем таблицы архива после обновления")
	if err := c.reload(ctx); err != nil {
		return err
	}
	metrics.TableReloads.Inc()
	return c.store.ClearUpdateFlag()
}

func (c *TableCache) reload(ctx context.Context) error {
	messages, err := c.store.LoadMessages(ctx)
	if err != nil {
		return fmt.Errorf("чтение сообщений: %w", err)
	}
	reactions, err := c.store.LoadReactions(ctx)
	if err != nil {
		return fmt.Errorf("чтение реакций: %w", err)
	}
	users, err := c.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("чтение пользователей: %w", err)
	}
	c.messages, c.reactions, c.users = messages, reactions, users
	return nil
}

// Messages возвращает таблицу сообщений целиком.
func (c *TableCache) Messages() []domain.Message { return c.messages }

// Reactions возвращает таблицу реакций целиком.
func (c *TableCache) Reactions() []domain.Reaction { return c.reactions }

// Users возвращает актуальную таблицу пользователей. Имена перепроверяются
// на каждом запросе: таблица может меняться между командами.
func (c *TableCache) Users() []domain.User { return c.users }

// SaveUsers записывает таблицу пользователей в хранилище и в кэш.
func (c *TableCache) SaveUsers(ctx context.Context, users []domain.User) error {
	if err := c.store.SaveUsers(ctx, users); err != nil {
		return fmt.Errorf("сохранение пользователей: %w", err)
	}
	c.users = users
	return nil
}
