package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/bootstrap"
	coreconfig "github.com/m3rciful/schoolbot/core/config"
	coredatabase "github.com/m3rciful/schoolbot/core/database"
	coretelegram "github.com/m3rciful/schoolbot/core/telegram"
	"github.com/m3rciful/schoolbot/internal/flow"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		Config: coreconfig.Config{
			Telegram: coreconfig.TelegramConfig{Token: "123:abc"},
		},
		Database: coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: ":memory:"},
		School: SchoolConfig{
			AdminSecret: "s3cret",
			ChannelID:   "@stanthony",
			ResultsFile: filepath.Join(t.TempDir(), "data", "results.csv"),
		},
	}
	require.NoError(t, cfg.Normalize())
	return cfg
}

func buildApp(t *testing.T) *App {
	t.Helper()
	a, err := Build(context.Background(), testConfig(t), bootstrap.Options{
		LoggerInit: func(*coreconfig.Config) error { return nil },
	})
	require.NoError(t, err)
	return a
}

func TestBuildSeedsResultsFile(t *testing.T) {
	a := buildApp(t)
	t.Cleanup(func() { _ = a.db.Close() })

	data, err := os.ReadFile(a.cfg.School.ResultsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "STD001,Abel Tesfaye,95,88,92,90,87")
	require.NoError(t, a.store.PingContext(context.Background()))
}

func TestRegistry(t *testing.T) {
	a := buildApp(t)
	t.Cleanup(func() { _ = a.db.Close() })

	reg, err := a.Registry()
	require.NoError(t, err)

	var visible []string
	for _, c := range reg.ListCommands(true) {
		visible = append(visible, c.Text)
	}
	assert.Equal(t, []string{"cancel", "start"}, visible)
	_, _, ok := reg.LookupCommand(flow.CmdAdmin)
	assert.True(t, ok)
	assert.ElementsMatch(t, flow.CallbackKeys(), reg.ListCallbacks())
}

func TestTelegramRunOptions(t *testing.T) {
	a := buildApp(t)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, &a.cfg.Config, opts.Config)
	assert.NotEmpty(t, opts.Middlewares)
	assert.NotNil(t, opts.DispatcherOptions.OnFailure)

	endpoints := make(map[any]bool)
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	for _, ep := range []string{"/start", "/cancel", "/admin", tele.OnCallback, tele.OnText, tele.OnPhoto, tele.OnDocument} {
		assert.True(t, endpoints[ep], ep)
	}

	b, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	rt := coretelegram.Runtime{Bot: b}
	require.NoError(t, opts.OnStart(context.Background(), rt))
	require.NoError(t, opts.OnStop(context.Background(), rt))
	assert.Error(t, a.db.Ping())
}
