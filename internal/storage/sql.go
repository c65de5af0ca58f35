package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/schoolbot/core/logger"
)

const postColumns = `id, channel_id, channel_message_id, text, caption, COALESCE(media_ref, '') AS media_ref`

// SQL implements Store with sqlx. Queries use ? placeholders and are rebound
// for the connected driver.
type SQL struct {
	db *sqlx.DB
}

// NewSQL wraps an open database.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db}
}

// PingContext checks the connection.
func (s *SQL) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQL) q(query string) string {
	return s.db.Rebind(query)
}

func (s *SQL) AddSubscriber(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO subscribers (chat_id) VALUES (?) ON CONFLICT (chat_id) DO NOTHING`), chatID)
	if err != nil {
		return fmt.Errorf("add subscriber: %w", err)
	}
	return nil
}

func (s *SQL) ListSubscribers(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT chat_id FROM subscribers ORDER BY chat_id`); err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return ids, nil
}

func (s *SQL) RemoveSubscriber(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM subscribers WHERE chat_id = ?`), chatID); err != nil {
		return fmt.Errorf("remove subscriber: %w", err)
	}
	return nil
}

func (s *SQL) InsertPost(ctx context.Context, p Post) (int64, error) {
	start := time.Now()
	var media any
	if p.MediaRef != "" {
		media = p.MediaRef
	}
	var id int64
	err := s.db.QueryRowxContext(ctx,
		s.q(`INSERT INTO posts (channel_id, channel_message_id, text, caption, media_ref)
			VALUES (?, ?, ?, ?, ?) RETURNING id`),
		p.ChannelID, p.ChannelMessageID, p.Text, p.Caption, media,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	logger.DB.Debug("post inserted",
		slog.String("event", "db.insert"),
		slog.Int64("post_id", id),
		slog.Duration("duration", logger.Took(start)),
	)
	return id, nil
}

func (s *SQL) RecentPosts(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		return nil, nil
	}
	var posts []Post
	err := s.db.SelectContext(ctx, &posts,
		s.q(`SELECT `+postColumns+` FROM posts ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("recent posts: %w", err)
	}
	return posts, nil
}

func (s *SQL) GetPost(ctx context.Context, id int64) (Post, error) {
	var p Post
	err := s.db.GetContext(ctx, &p, s.q(`SELECT `+postColumns+` FROM posts WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, fmt.Errorf("get post %d: %w", id, err)
	}
	return p, nil
}

func (s *SQL) UpdatePost(ctx context.Context, p Post) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE posts SET text = ?, caption = ? WHERE id = ?`), p.Text, p.Caption, p.ID)
	if err != nil {
		return fmt.Errorf("update post %d: %w", p.ID, err)
	}
	return affected(res)
}

func (s *SQL) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return affected(res)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
