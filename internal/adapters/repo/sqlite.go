package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tg-chat-stats-bot/internal/domain"
)

const dbFileName = "chatstats.db"

// updateFlagName — файл-сигнал «таблицы обновлены», его кладёт коллектор.
const updateFlagName = "update_required"

// SQLite хранит таблицы архива чата в одном файле БД в каталоге данных.
// Отсутствие файла — валидное состояние «данных ещё нет»: пустая база с той
// же схемой создаётся на первом открытии.
type SQLite struct {
	sql     *sql.DB
	dataDir string
}

var _ domain.TableStore = (*SQLite)(nil)

// Open открывает (или создаёт) хранилище в каталоге данных.
func Open(dataDir string) (*SQLite, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("каталог данных: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &SQLite{sql: db, dataDir: dataDir}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close закрывает базу.
func (s *SQLite) Close() error { return s.sql.Close() }

func (s *SQLite) migrate() error {
	_, err := s.sql.Exec(`
	CREATE TABLE IF NOT EXISTS messages (
	  id INTEGER PRIMARY KEY,
	  username TEXT NOT NULL,
	  ts INTEGER NOT NULL,
	  kind TEXT NOT NULL,
	  text TEXT NOT NULL DEFAULT '',
	  reaction_emojis TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts);
	CREATE TABLE IF NOT EXISTS reactions (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  reacting_username TEXT NOT NULL,
	  reacted_to_username TEXT NOT NULL,
	  emoji TEXT NOT NULL,
	  ts INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reactions_ts ON reactions(ts);
	CREATE TABLE IF NOT EXISTS users (
	  id INTEGER PRIMARY KEY,
	  username TEXT NOT NULL UNIQUE,
	  nicknames TEXT NOT NULL DEFAULT '[]'
	);
	`)
	return err
}

// LoadMessages читает таблицу сообщений целиком, от старых к новым.
func (s *SQLite) LoadMessages(ctx context.Context) ([]domain.Message, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT id, username, ts, kind, text, reaction_emojis FROM messages ORDER BY ts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		var ts int64
		var kind, emojis string
		if err := rows.Scan(&m.ID, &m.Username, &ts, &kind, &m.Text, &emojis); err != nil {
			return nil, err
		}
		m.Timestamp = unixUTC(ts)
		m.Kind = domain.MessageKind(kind)
		if err := json.Unmarshal([]byte(emojis), &m.ReactionEmojis); err != nil {
			return nil, fmt.Errorf("реакции сообщения %d: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveMessages перезаписывает таблицу сообщений целиком.
func (s *SQLite) SaveMessages(ctx context.Context, messages []domain.Message) error {
	return s.replaceAll(ctx, "messages", func(tx *sql.Tx) error {
		for _, m := range messages {
			emojis, err := json.Marshal(emptyIfNil(m.ReactionEmojis))
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO messages(id, username, ts, kind, text, reaction_emojis) VALUES(?,?,?,?,?,?)`,
				m.ID, m.Username, m.Timestamp.Unix(), string(m.Kind), m.Text, string(emojis))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadReactions читает таблицу реакций целиком, от старых к новым.
func (s *SQLite) LoadReactions(ctx context.Context) ([]domain.Reaction, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT reacting_username, reacted_to_username, emoji, ts FROM reactions ORDER BY ts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reaction
	for rows.Next() {
		var r domain.Reaction
		var ts int64
		if err := rows.Scan(&r.ReactingUsername, &r.ReactedToUsername, &r.Emoji, &ts); err != nil {
			return nil, err
		}
		r.Timestamp = unixUTC(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveReactions перезаписывает таблицу реакций целиком.
func (s *SQLite) SaveReactions(ctx context.Context, reactions []domain.Reaction) error {
	return s.replaceAll(ctx, "reactions", func(tx *sql.Tx) error {
		for _, r := range reactions {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO reactions(reacting_username, reacted_to_username, emoji, ts) VALUES(?,?,?,?)`,
				r.ReactingUsername, r.ReactedToUsername, r.Emoji, r.Timestamp.Unix())
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadUsers читает таблицу пользователей в порядке добавления.
func (s *SQLite) LoadUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT id, username, nicknames FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		var nicknames string
		if err := rows.Scan(&u.ID, &u.Username, &nicknames); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(nicknames), &u.Nicknames); err != nil {
			return nil, fmt.Errorf("никнеймы пользователя %d: %w", u.ID, err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SaveUsers перезаписывает таблицу пользователей целиком.
func (s *SQLite) SaveUsers(ctx context.Context, users []domain.User) error {
	return s.replaceAll(ctx, "users", func(tx *sql.Tx) error {
		for _, u := range users {
			nicknames, err := json.Marshal(emptyIfNil(u.Nicknames))
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO users(id, username, nicknames) VALUES(?,?,?)`,
				u.ID, u.Username, string(nicknames))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateRequired проверяет файл-сигнал обновления.
func (s *SQLite) UpdateRequired() (bool, error) {
	_, err := os.Stat(s.flagPath())
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ClearUpdateFlag снимает сигнал обновления.
func (s *SQLite) ClearUpdateFlag() error {
	if err := os.Remove(s.flagPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MarkUpdated выставляет сигнал обновления. Им пользуется коллектор,
// в тестах он же имитирует внешнее обновление данных.
func (s *SQLite) MarkUpdated() error {
	f, err := os.OpenFile(s.flagPath(), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// MediaPath возвращает путь к медиафайлу сообщения в каталоге данных.
func (s *SQLite) MediaPath(messageID int64, kind domain.MessageKind) string {
	return filepath.Join(s.dataDir, "media", fmt.Sprintf("%d%s", messageID, mediaExt(kind)))
}

func (s *SQLite) flagPath() string {
	return filepath.Join(s.dataDir, updateFlagName)
}

func (s *SQLite) replaceAll(ctx context.Context, table string, insert func(tx *sql.Tx) error) error {
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insert(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func mediaExt(kind domain.MessageKind) string {
	switch kind {
	case domain.KindImage:
		return ".jpg"
	case domain.KindVideo, domain.KindVideoNote:
		return ".mp4"
	case domain.KindAudio:
		return ".ogg"
	case domain.KindGIF:
		return ".gif"
	default:
		return ""
	}
}

func unixUTC(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
