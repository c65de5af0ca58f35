// Package storage persists subscribers and channel posts.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Post is an announcement mirrored to the public channel. A post with a
// MediaRef keeps its content in Caption and leaves Text empty, and the other
// way round.
type Post struct {
	ID               int64  `db:"id"`
	ChannelID        int64  `db:"channel_id"`
	ChannelMessageID int    `db:"channel_message_id"`
	Text             string `db:"text"`
	Caption          string `db:"caption"`
	MediaRef         string `db:"media_ref"`
}

// HasMedia reports whether the post is a photo post.
func (p Post) HasMedia() bool { return p.MediaRef != "" }

// Body returns the visible content of the post.
func (p Post) Body() string {
	if p.Text != "" {
		return p.Text
	}
	return p.Caption
}

// SubscriberStore keeps the broadcast audience.
type SubscriberStore interface {
	// AddSubscriber is idempotent.
	AddSubscriber(ctx context.Context, chatID int64) error
	ListSubscribers(ctx context.Context) ([]int64, error)
	RemoveSubscriber(ctx context.Context, chatID int64) error
}

// PostStore keeps posts.
type PostStore interface {
	// InsertPost stores p and returns the assigned id.
	InsertPost(ctx context.Context, p Post) (int64, error)
	// RecentPosts returns up to limit posts, newest first.
	RecentPosts(ctx context.Context, limit int) ([]Post, error)
	GetPost(ctx context.Context, id int64) (Post, error)
	// UpdatePost rewrites the text and caption of the post.
	UpdatePost(ctx context.Context, p Post) error
	DeletePost(ctx context.Context, id int64) error
}

// Store is the full persistence contract.
type Store interface {
	SubscriberStore
	PostStore
}
