package cli_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepwise/internal/cli"
	"github.com/aretw0/stepwise/internal/config"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/internal/testutils"
	"github.com/aretw0/stepwise/pkg/adapters/file"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/adapters/sqlite"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/persistence/middleware"
)

const onboarding = `
id: onboarding
title: Onboarding
steps:
  - id: about
    questions:
      - {id: q1, type: text, prompt: "Name?", required: true}
  - id: role
    questions:
      - {id: role, type: single-choice, prompt: "Role?", options: [dev, ops], required: true}
  - id: stack
    when: {question: role, equals: dev}
    questions:
      - {id: langs, type: multi-choice, prompt: "Languages?", options: [go, rust, zig]}
`

func newApp(t *testing.T, store, input string) (*cli.App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &cli.App{
		Config: testutils.TestConfig(t, store),
		Logger: logging.NewNop(),
		In:     strings.NewReader(input),
		Out:    &out,
	}, &out
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		app, _ := newApp(t, config.BackendMemory, "")
		b, err := cli.OpenBackend(ctx, app.Config, app.Logger)
		require.NoError(t, err)
		defer b.Close()

		assert.IsType(t, &memory.Store{}, b.Store)
		assert.IsType(t, &memory.Sink{}, b.Sink)
		assert.Nil(t, b.Locker)
	})

	t.Run("file", func(t *testing.T) {
		app, _ := newApp(t, config.BackendFile, "")
		b, err := cli.OpenBackend(ctx, app.Config, app.Logger)
		require.NoError(t, err)
		defer b.Close()

		assert.IsType(t, &file.Store{}, b.Store)
		assert.IsType(t, &sqlite.Store{}, b.Sink)
		assert.FileExists(t, app.Config.SQLiteFile())
	})

	t.Run("sqlite", func(t *testing.T) {
		app, _ := newApp(t, config.BackendSQLite, "")
		b, err := cli.OpenBackend(ctx, app.Config, app.Logger)
		require.NoError(t, err)

		assert.Same(t, b.Store, b.Sink)
		assert.NoError(t, b.Close())
	})
}

func TestOpenBackend_Encrypted(t *testing.T) {
	ctx := context.Background()
	locator := testutils.WriteSurvey(t, "onboarding.yaml", onboarding)
	app, _ := newApp(t, config.BackendFile, "Ann\n:quit\n")
	app.Config.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	require.NoError(t, cli.RunSurvey(ctx, app, cli.RunOptions{Locator: locator, SessionID: "sealed", Plain: true}))

	raw, err := file.NewStore(app.Config.SessionsDir()).Load(ctx, "sealed")
	require.NoError(t, err)
	assert.NotContains(t, raw.Responses, "q1")
	assert.Contains(t, raw.Responses, middleware.EnvelopeKey)

	var out bytes.Buffer
	app.Out = &out
	require.NoError(t, cli.InspectSession(ctx, app, "sealed"))
	assert.Contains(t, out.String(), `"q1": "Ann"`)

	app.Config.EncryptionKey = "short"
	_, err = cli.OpenBackend(ctx, app.Config, app.Logger)
	assert.Error(t, err)
}

func TestRunSurvey_CompletesAndArchives(t *testing.T) {
	ctx := context.Background()
	locator := testutils.WriteSurvey(t, "onboarding.yaml", onboarding)
	app, out := newApp(t, config.BackendSQLite, "Ann\n2\n")

	require.NoError(t, cli.RunSurvey(ctx, app, cli.RunOptions{Locator: locator, Plain: true}))
	assert.Contains(t, out.String(), "local-onboarding")
	assert.Contains(t, out.String(), "Thank you!")

	out.Reset()
	require.NoError(t, cli.ListSubmissions(ctx, app, "onboarding"))
	assert.Contains(t, out.String(), `"q1": "Ann"`)
	assert.Contains(t, out.String(), `"role": "ops"`)
	assert.NotContains(t, out.String(), "langs")
}

func TestRunSurvey_QuitThenManageSessions(t *testing.T) {
	ctx := context.Background()
	locator := testutils.WriteSurvey(t, "onboarding.yaml", onboarding)
	app, out := newApp(t, config.BackendFile, "Ann\n:quit\n")

	require.NoError(t, cli.RunSurvey(ctx, app, cli.RunOptions{Locator: locator, SessionID: "s1", Plain: true}))
	assert.Contains(t, out.String(), "Progress saved")

	out.Reset()
	require.NoError(t, cli.ListSessions(ctx, app))
	assert.Contains(t, out.String(), "- s1")

	out.Reset()
	require.NoError(t, cli.InspectSession(ctx, app, "s1"))
	assert.Contains(t, out.String(), `"q1": "Ann"`)

	out.Reset()
	require.NoError(t, cli.PrintGraph(ctx, app, locator, "s1"))
	assert.Contains(t, out.String(), "graph TD")
	assert.Contains(t, out.String(), "class about visited")

	out.Reset()
	require.NoError(t, cli.RemoveSessions(ctx, app, []string{"s1"}))
	assert.Contains(t, out.String(), "Removed session 's1'")

	err := cli.InspectSession(ctx, app, "s1")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}

func TestRunSurvey_ResumeAndFresh(t *testing.T) {
	ctx := context.Background()
	locator := testutils.WriteSurvey(t, "onboarding.yaml", onboarding)

	app, _ := newApp(t, config.BackendFile, "Ann\n:quit\n")
	require.NoError(t, cli.RunSurvey(ctx, app, cli.RunOptions{Locator: locator, Plain: true}))

	// Resuming lands on the role step.
	var out bytes.Buffer
	app.In = strings.NewReader("")
	app.Out = &out
	require.NoError(t, cli.RunSurvey(ctx, app, cli.RunOptions{Locator: locator, Plain: true}))
	assert.Contains(t, out.String(), "Role?")

	out.Reset()
	app.In = strings.NewReader("")
	require.NoError(t, cli.RunSurvey(ctx, app, cli.RunOptions{Locator: locator, Plain: true, Fresh: true}))
	assert.Contains(t, out.String(), "Name?")
	assert.NotContains(t, out.String(), "Role?")
}

func TestValidateSurvey(t *testing.T) {
	ctx := context.Background()
	app, out := newApp(t, config.BackendMemory, "")

	require.NoError(t, cli.ValidateSurvey(ctx, app, testutils.WriteSurvey(t, "ok.yaml", onboarding)))
	assert.Contains(t, out.String(), `Survey "onboarding" is valid: 3 step(s), 1 conditional, 3 question(s).`)

	broken := testutils.WriteSurvey(t, "broken.yaml", `
id: broken
title: Broken
steps:
  - id: a
    questions:
      - {id: x, type: single-choice, prompt: "X?"}
`)
	err := cli.ValidateSurvey(ctx, app, broken)
	var defErr *domain.DefinitionError
	require.True(t, errors.As(err, &defErr))
	assert.NotEmpty(t, defErr.Problems)
}

func TestBuildServices(t *testing.T) {
	ctx := context.Background()
	app, _ := newApp(t, config.BackendMemory, "")

	services, err := cli.BuildServices(ctx, app, testutils.WriteSurvey(t, "onboarding.yaml", onboarding))
	require.NoError(t, err)
	defer services.Close()

	view, err := services.Service.Start(ctx, "web-1")
	require.NoError(t, err)
	require.NotNil(t, view)

	_, err = services.Service.Next(ctx, "web-1", domain.ResponseMap{"q1": "Ann"})
	require.NoError(t, err)

	families, err := services.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "stepwise_step_visits_total")
	assert.Contains(t, names, "go_goroutines")
}

func TestServeMCP_UnknownTransport(t *testing.T) {
	app, _ := newApp(t, config.BackendMemory, "")
	err := cli.ServeMCP(context.Background(), app, testutils.WriteSurvey(t, "onboarding.yaml", onboarding), "carrier-pigeon", 0)
	assert.ErrorContains(t, err, "unknown transport")
}
