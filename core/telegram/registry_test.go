package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Main menu"}))
	require.NoError(t, reg.RegisterCommand("/admin", commands.Command{Handler: noop, Description: "Admin login", Hidden: true}))
	require.NoError(t, reg.RegisterCommand("/cancel", commands.Command{Handler: noop, Description: "Cancel", Aliases: []string{"stop"}}))
	assert.ErrorIs(t, reg.RegisterCommand("noslash", commands.Command{Handler: noop, Description: "skipped"}), ErrInvalidRegistration)
	assert.ErrorIs(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "duplicate"}), ErrDuplicate)

	assert.Len(t, reg.Commands(), 3)
	assert.Equal(t, []tele.Command{
		{Text: "cancel", Description: "Cancel"},
		{Text: "start", Description: "Main menu"},
	}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)

	key, cmd, ok := reg.LookupCommand("/stop")
	require.True(t, ok)
	assert.Equal(t, "/cancel", key)
	assert.Equal(t, "Cancel", cmd.Description)

	key, _, ok = reg.LookupCommand("admin")
	require.True(t, ok)
	assert.Equal(t, "/admin", key)

	_, _, ok = reg.LookupCommand("/nope")
	assert.False(t, ok)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallbacks([]string{"results", "back"}, noop))
	assert.ErrorIs(t, reg.RegisterCallback("back", noop), ErrDuplicate)
	assert.ErrorIs(t, reg.RegisterCallback("", noop), ErrInvalidRegistration)
	assert.Error(t, reg.RegisterCallbacks([]string{"menu", "results"}, noop))

	_, ok := reg.GetCallback("results")
	assert.True(t, ok)
	assert.Equal(t, []string{"back", "menu", "results"}, reg.ListCallbacks())
}
