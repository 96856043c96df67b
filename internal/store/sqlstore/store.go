package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/ghostnote/ghost-note/backend/internal/model/user"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	verify_code TEXT NOT NULL,
	verify_code_expiry DATETIME NOT NULL,
	is_verified BOOLEAN NOT NULL DEFAULT 0,
	is_accepting_messages BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_user_id ON messages(user_id);`

const userColumns = `id, username, email, password, verify_code, verify_code_expiry, is_verified, is_accepting_messages, created_at`

// Store persists users and messages in a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "unable to open sqlite database")
	}
	// One writer keeps SQLite happy and makes ":memory:" databases behave.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to apply sqlite schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Create(ctx context.Context, u user.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.VerifyCode, u.VerifyCodeExpiry,
		u.IsVerified, u.IsAcceptingMessages, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrConflict
		}
		return errors.Wrap(err, "unable to insert user "+u.Username)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (user.User, error) {
	return s.findOne(ctx, `id = ?`, id)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (user.User, error) {
	return s.findOne(ctx, `username = ?`, username)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return s.findOne(ctx, `email = ?`, email)
}

func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (user.User, error) {
	return s.findOne(ctx, `email = ? OR username = ?`, identifier, identifier)
}

func (s *Store) Update(ctx context.Context, u user.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET username = ?, email = ?, password = ?, verify_code = ?,
			verify_code_expiry = ?, is_verified = ?, is_accepting_messages = ?
		WHERE id = ?`,
		u.Username, u.Email, u.PasswordHash, u.VerifyCode, u.VerifyCodeExpiry,
		u.IsVerified, u.IsAcceptingMessages, u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrConflict
		}
		return errors.Wrap(err, "unable to update user "+u.ID)
	}
	return requireRow(res, user.ErrNotFound)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "unable to delete user "+id)
	}
	return requireRow(res, user.ErrNotFound)
}

func (s *Store) SetAcceptingMessages(ctx context.Context, id string, accepting bool) (user.User, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_accepting_messages = ? WHERE id = ?`, accepting, id)
	if err != nil {
		return user.User{}, errors.Wrap(err, "unable to update message acceptance for user "+id)
	}
	if err := requireRow(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return s.FindByID(ctx, id)
}

func (s *Store) AppendMessage(ctx context.Context, id string, msg user.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		msg.ID, id, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return user.ErrNotFound
		}
		return errors.Wrap(err, "unable to save message for user "+id)
	}
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, id, messageID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ? AND user_id = ?`, messageID, id)
	if err != nil {
		return errors.Wrap(err, "unable to delete message "+messageID)
	}
	return requireRow(res, user.ErrMessageNotFound)
}

func (s *Store) Messages(ctx context.Context, id string) ([]user.Message, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, created_at FROM messages WHERE user_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load messages for user "+id)
	}
	defer rows.Close()

	messages := make([]user.Message, 0, 16)
	for rows.Next() {
		var msg user.Message
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "unable to scan message")
		}
		messages = append(messages, msg)
	}
	return messages, errors.Wrap(rows.Err(), "unable to iterate messages")
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func (s *Store) findOne(ctx context.Context, where string, args ...any) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`, args...)

	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.VerifyCode,
		&u.VerifyCodeExpiry, &u.IsVerified, &u.IsAcceptingMessages, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "unable to find user")
	}
	return u, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "unable to read affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
