// Package auth guards student access by channel membership and admin access
// by a shared secret.
package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/telegram/state"
)

// Members reads a user's status in a chat.
type Members interface {
	MemberStatus(ctx context.Context, chat tele.Recipient, userID int64) (tele.MemberStatus, error)
}

// Gate holds the public channel and the admin secret.
type Gate struct {
	members Members
	channel tele.Recipient
	secret  []byte
}

// NewGate returns a gate checking membership of channel.
func NewGate(members Members, channel tele.Recipient, secret string) *Gate {
	return &Gate{members: members, channel: channel, secret: []byte(secret)}
}

// IsMember reports whether the user joined the channel. Lookup errors deny access.
func (g *Gate) IsMember(ctx context.Context, userID int64) bool {
	st, err := g.members.MemberStatus(ctx, g.channel, userID)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCAuth, slog.LevelWarn, "auth.membership",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return false
	}
	switch st {
	case tele.Member, tele.Administrator, tele.Creator:
		return true
	}
	logger.LogEvent(ctx, logger.SVCAuth, slog.LevelDebug, "auth.membership",
		slog.String("status", "ok"),
		slog.String("outcome", "denied"),
		slog.String("member_status", string(st)),
	)
	return false
}

// Elevate grants the admin role when input equals the secret. On success
// every trail is drained and scratch is cleared. Attempts are not limited.
func (g *Gate) Elevate(ctx context.Context, sess *state.Session, input string, del state.Deleter) bool {
	if len(g.secret) == 0 || subtle.ConstantTimeCompare([]byte(input), g.secret) != 1 {
		logger.LogEvent(ctx, logger.SVCAuth, slog.LevelInfo, "auth.elevate",
			slog.String("status", "ok"),
			slog.String("outcome", "denied"),
		)
		return false
	}
	sess.DrainAll(ctx, del)
	sess.Admin = true
	sess.Wipe()
	logger.LogEvent(ctx, logger.SVCAuth, slog.LevelInfo, "auth.elevate", slog.String("status", "ok"))
	return true
}

// Logout drops the admin role, drains every trail and clears scratch.
func (g *Gate) Logout(ctx context.Context, sess *state.Session, del state.Deleter) {
	sess.DrainAll(ctx, del)
	sess.Admin = false
	sess.Wipe()
	logger.LogEvent(ctx, logger.SVCAuth, slog.LevelInfo, "auth.logout", slog.String("status", "ok"))
}
