// Package posts keeps the stored posts and their public channel copies in sync.
package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf16"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/internal/channel"
	"github.com/m3rciful/schoolbot/internal/storage"
)

// ErrNoPost is returned when the referenced post no longer exists.
var ErrNoPost = errors.New("posts: no such post")

// AnnouncementTitle heads every broadcast copy of a new post.
const AnnouncementTitle = "📢 New Announcement"

// PreviewRunes bounds the post preview shown in pickers.
const PreviewRunes = 50

// Draft is the content of a new post. For a photo post Text is the caption.
type Draft struct {
	Text     string
	Entities tele.Entities
	PhotoID  string
}

// Service manages posts.
type Service struct {
	store   storage.PostStore
	client  channel.Client
	channel tele.Recipient
}

// New returns a service publishing to channel.
func New(store storage.PostStore, client channel.Client, ch tele.Recipient) *Service {
	return &Service{store: store, client: client, channel: ch}
}

// Create publishes d to the channel and records it. Nothing is stored when
// publishing fails.
func (s *Service) Create(ctx context.Context, d Draft) (storage.Post, error) {
	start := time.Now()
	msg, err := s.client.Send(ctx, s.channel, channel.Content{
		Text:     d.Text,
		PhotoID:  d.PhotoID,
		Entities: d.Entities,
	})
	if err != nil {
		logger.LogEvent(ctx, logger.SVCPosts, slog.LevelError, "posts.create",
			slog.String("status", "fail"),
			slog.String("cause", "channel"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return storage.Post{}, fmt.Errorf("publish post: %w", err)
	}

	p := storage.Post{ChannelID: msg.ChatID, ChannelMessageID: msg.ID}
	if d.PhotoID != "" {
		p.MediaRef = d.PhotoID
		p.Caption = d.Text
	} else {
		p.Text = d.Text
	}
	id, err := s.store.InsertPost(ctx, p)
	if err != nil {
		return storage.Post{}, fmt.Errorf("record post: %w", err)
	}
	p.ID = id
	logger.LogEvent(ctx, logger.SVCPosts, slog.LevelInfo, "posts.create",
		slog.String("status", "ok"),
		slog.Int64("post_id", id),
		slog.Int("channel_message_id", msg.ID),
		slog.Bool("media", p.HasMedia()),
		slog.Duration("duration", logger.Took(start)),
	)
	return p, nil
}

// ListRecent returns up to limit posts, newest first.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]storage.Post, error) {
	list, err := s.store.RecentPosts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return list, nil
}

// Edit replaces the content of the post on the channel and in the store.
// A photo post keeps its photo and gets text as the new caption.
func (s *Service) Edit(ctx context.Context, id int64, text string, entities tele.Entities) (storage.Post, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return storage.Post{}, err
	}
	msg := channel.Message{ChatID: p.ChannelID, ID: p.ChannelMessageID}
	if err := s.client.Edit(ctx, msg, channel.Content{Text: text, PhotoID: p.MediaRef, Entities: entities}); err != nil {
		logger.LogEvent(ctx, logger.SVCPosts, slog.LevelError, "posts.edit",
			slog.String("status", "fail"),
			slog.Int64("post_id", id),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return storage.Post{}, fmt.Errorf("edit channel post: %w", err)
	}

	if p.HasMedia() {
		p.Text, p.Caption = "", text
	} else {
		p.Text, p.Caption = text, ""
	}
	if err := s.store.UpdatePost(ctx, p); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Post{}, ErrNoPost
		}
		return storage.Post{}, fmt.Errorf("update post: %w", err)
	}
	logger.LogEvent(ctx, logger.SVCPosts, slog.LevelInfo, "posts.edit",
		slog.String("status", "ok"),
		slog.Int64("post_id", id),
	)
	return p, nil
}

// Delete removes the channel copy, ignoring failures, and then the record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	p, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, channel.Message{ChatID: p.ChannelID, ID: p.ChannelMessageID}); err != nil {
		logger.LogEvent(ctx, logger.SVCPosts, slog.LevelWarn, "posts.delete.channel",
			slog.String("status", "skip"),
			slog.Int64("post_id", id),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoPost
		}
		return fmt.Errorf("delete post: %w", err)
	}
	logger.LogEvent(ctx, logger.SVCPosts, slog.LevelInfo, "posts.delete",
		slog.String("status", "ok"),
		slog.Int64("post_id", id),
	)
	return nil
}

func (s *Service) get(ctx context.Context, id int64) (storage.Post, error) {
	p, err := s.store.GetPost(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Post{}, ErrNoPost
	}
	if err != nil {
		return storage.Post{}, fmt.Errorf("load post %d: %w", id, err)
	}
	return p, nil
}

// Announcement builds the message broadcast to subscribers for a new post:
// a bold title followed by the post text with its formatting preserved.
func Announcement(d Draft) channel.Content {
	prefix := AnnouncementTitle + "\n\n"
	shift := utf16Len(prefix)

	ents := make(tele.Entities, 0, len(d.Entities)+1)
	ents = append(ents, tele.MessageEntity{Type: tele.EntityBold, Offset: 0, Length: utf16Len(AnnouncementTitle)})
	for _, e := range d.Entities {
		e.Offset += shift
		ents = append(ents, e)
	}
	return channel.Content{Text: prefix + d.Text, Entities: ents}
}

// Preview shortens the post body to a single line of at most PreviewRunes runes.
func Preview(p storage.Post) string {
	body := strings.Join(strings.Fields(p.Body()), " ")
	if body == "" && p.HasMedia() {
		return "[photo]"
	}
	r := []rune(body)
	if len(r) <= PreviewRunes {
		return body
	}
	return string(r[:PreviewRunes]) + "…"
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
