// Package store persists guestbook messages and is the only writer of their
// vote counters.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"guestbook/internal/model"
	"guestbook/internal/vote"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("message not found")
	ErrStorage    = errors.New("storage failure")
)

const selectColumns = "id, name, message, created_at, likes, dislikes"

// Store reads and writes the messages table. Every call goes to the
// database; rows are never cached.
type Store struct {
	db  *sql.DB
	now func() time.Time

	// afterUpdate runs between the counter UPDATE and the read-back. Tests
	// use it to fail a vote mid-transaction.
	afterUpdate func()
}

// New returns a Store backed by db. The schema must already exist
// (see database.Migrate).
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (model.Message, error) {
	var msg model.Message
	err := row.Scan(&msg.ID, &msg.Name, &msg.Message, &msg.CreatedAt, &msg.Likes, &msg.Dislikes)
	return msg, err
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// List returns every message, newest first.
func (s *Store) List(ctx context.Context) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM messages ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	defer rows.Close()

	msgList := []model.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, storageErr("scan message", err)
		}
		msgList = append(msgList, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate messages", err)
	}

	return msgList, nil
}

// Get returns a single message or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (model.Message, error) {
	msg, err := scanMessage(s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM messages WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, ErrNotFound
	}
	if err != nil {
		return model.Message{}, storageErr("get message", err)
	}
	return msg, nil
}

// Create stores a new message with zeroed counters. Name and body are
// trimmed and must both be non-empty.
func (s *Store) Create(ctx context.Context, name, body string) (model.Message, error) {
	name = strings.TrimSpace(name)
	body = strings.TrimSpace(body)
	if name == "" || body == "" {
		return model.Message{}, fmt.Errorf("%w: name and message are required", ErrValidation)
	}

	// MySQL の DATETIME(6) に合わせてマイクロ秒で切り捨てる
	createdAt := s.now().UTC().Truncate(time.Microsecond)

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (name, message, created_at, likes, dislikes) VALUES (?, ?, ?, 0, 0)",
		name, body, createdAt)
	if err != nil {
		return model.Message{}, storageErr("insert message", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Message{}, storageErr("read inserted id", err)
	}

	return s.Get(ctx, id)
}

// Delete removes the message if it exists. Deleting an absent id succeeds.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id); err != nil {
		return storageErr("delete message", err)
	}
	return nil
}

// ApplyVoteDelta applies d to both counters of one message in a single
// transaction and returns the row as committed. Each retraction stops at
// zero before the cast is added. The UPDATE takes the row's write lock, so
// concurrent calls for the same id are serialized.
func (s *Store) ApplyVoteDelta(ctx context.Context, id int64, d vote.Delta) (msg model.Message, err error) {
	// none -> none は何も変えないので読むだけ
	if d.IsZero() {
		return s.Get(ctx, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Message{}, storageErr("begin vote", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE messages SET
			likes = CASE WHEN likes > ? THEN likes - ? ELSE 0 END + ?,
			dislikes = CASE WHEN dislikes > ? THEN dislikes - ? ELSE 0 END + ?
		WHERE id = ?`,
		d.Likes.Retract, d.Likes.Retract, d.Likes.Cast,
		d.Dislikes.Retract, d.Dislikes.Retract, d.Dislikes.Cast,
		id,
	)
	if err != nil {
		return model.Message{}, storageErr("update counters", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return model.Message{}, storageErr("read affected rows", err)
	}
	if affected == 0 {
		return model.Message{}, ErrNotFound
	}

	if s.afterUpdate != nil {
		s.afterUpdate()
	}

	msg, err = scanMessage(tx.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM messages WHERE id = ?", id))
	if err != nil {
		return model.Message{}, storageErr("read voted message", err)
	}

	if err = tx.Commit(); err != nil {
		return model.Message{}, storageErr("commit vote", err)
	}

	return msg, nil
}

// ReconcileVote retracts prev and casts next on message id as one atomic
// change. Invalid choices fail with ErrValidation before storage is touched.
func (s *Store) ReconcileVote(ctx context.Context, id int64, next, prev vote.Choice) (model.Message, error) {
	d, err := vote.Reconcile(prev, next)
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return s.ApplyVoteDelta(ctx, id, d)
}
