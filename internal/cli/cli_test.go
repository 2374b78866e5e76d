package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/assistant"
	"github.com/soyeahso/concierge/internal/config"
	"github.com/soyeahso/concierge/internal/domain"
	"github.com/soyeahso/concierge/internal/logging"
	"github.com/soyeahso/concierge/internal/mail"
	"github.com/soyeahso/concierge/internal/store"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// execute runs the root command against an isolated home directory.
func execute(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONCIERGE_HOME", home)
	t.Setenv("CONCIERGE_API_KEY", "")
	t.Setenv("CONCIERGE_ASSISTANT_PROVIDER", "")
	t.Setenv("CONCIERGE_TIMEZONE", "UTC")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "silent"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func sampleEvent() *action.Proposed {
	start := time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC)
	return &action.Proposed{
		ID:      "a1",
		Kind:    action.CreateEvent,
		Summary: "Create 'Team Sync'",
		Event:   &action.EventData{Title: "Team Sync", Start: start, End: start.Add(time.Hour)},
	}
}

func TestRenderCard(t *testing.T) {
	var buf bytes.Buffer
	renderCard(&buf, sampleEvent())

	out := buf.String()
	assert.Contains(t, out, "Create 'Team Sync'")
	assert.Contains(t, out, "  Title: Team Sync")
	assert.Contains(t, out, "(1h)")
	assert.True(t, strings.HasSuffix(out, "Add to Calendar? [y/n]\n"))
}

func TestRenderCardDestructive(t *testing.T) {
	var buf bytes.Buffer
	renderCard(&buf, &action.Proposed{
		Kind:    action.SendEmail,
		Summary: "Send email to bob@example.com",
		Email:   &action.EmailData{To: "bob@example.com", Subject: "Hi"},
	})
	assert.Contains(t, buf.String(), "To:      bob@example.com")
	assert.Contains(t, buf.String(), "Send Email? [y/n]")
}

func TestRenderTurn(t *testing.T) {
	var buf bytes.Buffer
	renderTurn(&buf, &assistant.Turn{Reply: "Sure.", Proposed: sampleEvent()})
	assert.True(t, strings.HasPrefix(buf.String(), "Sure.\n"))
	assert.Contains(t, buf.String(), "[y/n]")

	buf.Reset()
	renderTurn(&buf, &assistant.Turn{Reply: "ignored", Result: &action.Result{Success: true, Message: "Created 'Team Sync'"}})
	assert.Equal(t, "✓ Created 'Team Sync'\n", buf.String())

	buf.Reset()
	renderTurn(&buf, &assistant.Turn{Reply: "Okay, I won't do that.", Declined: true})
	assert.Equal(t, "Okay, I won't do that.\n", buf.String())

	buf.Reset()
	renderResult(&buf, action.Result{Message: "calendar unavailable"})
	assert.Equal(t, "✗ calendar unavailable\n", buf.String())
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n  b", indent("a\nb\n", "  "))
	assert.Equal(t, "> x", indent("x", "> "))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"FALSE", false},
		{"42", 42},
		{"-7", -7},
		{"0.5", 0.5},
		{"1e3", 1000.0},
		{"12abc", "12abc"},
		{"google", "google"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseValue(tt.in), "input %q", tt.in)
	}
}

func TestPrintValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printValue(&buf, map[string]any{"backend": "smtp"}))
	assert.Equal(t, "backend: smtp\n", buf.String())

	buf.Reset()
	require.NoError(t, printValue(&buf, 8080))
	assert.Equal(t, "8080\n", buf.String())
}

func TestReadAuthCode(t *testing.T) {
	var out bytes.Buffer
	code, err := readAuthCode(strings.NewReader("4/abc\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "4/abc", code)
	assert.Equal(t, "Authorization code: ", out.String())

	code, err = readAuthCode(strings.NewReader("http://localhost/?state=s&code=4/xyz&scope=a"), &out)
	require.NoError(t, err)
	assert.Equal(t, "4/xyz", code)

	_, err = readAuthCode(strings.NewReader("\n"), &out)
	assert.Error(t, err)
}

func TestInferAction(t *testing.T) {
	b := &action.Builder{Now: func() time.Time { return time.Date(2024, 3, 13, 10, 30, 0, 0, time.UTC) }, Location: time.UTC}

	p, err := inferAction(b, "[CREATE_EVENT] I’ll create 'Team Sync' tomorrow at 3pm.", "", "", nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Team Sync", p.Event.Title)
	assert.Equal(t, time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC), p.Event.Start)

	p, err = inferAction(b, "The weather is nice.", "", "", nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = inferAction(b, "", "", action.ToolSendEmail, []string{"to=carol@example.com", "body=See you"})
	require.NoError(t, err)
	assert.Equal(t, action.SendEmail, p.Kind)
	assert.Equal(t, "See you", p.Email.Body)

	_, err = inferAction(b, "", "", action.ToolSendEmail, []string{"to"})
	assert.ErrorContains(t, err, "want key=value")

	_, err = inferAction(b, "  ", "", "", nil)
	assert.Error(t, err)
}

func TestWriteStatus(t *testing.T) {
	cfg := config.Defaults()
	cfg.Assistant.Provider = "echo"
	cfg.Email.Backend = "smtp"
	cfg.Email.SMTP.Host = "smtp.example.com"
	cfg.Email.From = "me@example.com"
	cfg.Store.Path = "/tmp/c.db"
	cfg.Gateway.Token = "secret"

	var buf bytes.Buffer
	writeStatus(&buf, cfg)
	out := buf.String()
	assert.Contains(t, out, "provider=echo")
	assert.Contains(t, out, "Email:    smtp (smtp.example.com:587)")
	assert.Contains(t, out, "Store:    sqlite (/tmp/c.db)")
	assert.Contains(t, out, "auth=token")
	assert.NotContains(t, out, "Validation issues")

	buf.Reset()
	cfg.Assistant.Provider = "claude"
	writeStatus(&buf, cfg)
	assert.Contains(t, buf.String(), "assistant.apiKey: required for provider claude")
}

func TestWriteHistory(t *testing.T) {
	var buf bytes.Buffer
	writeConversations(&buf, nil)
	assert.Equal(t, "no conversations\n", buf.String())

	buf.Reset()
	writeMessages(&buf, []domain.Message{
		{Role: domain.RoleUser, Text: "book lunch", Timestamp: time.Now()},
		{Role: domain.RoleAssistant, ToolCall: &domain.ToolCall{Name: action.ToolCreateEvent}, Timestamp: time.Now()},
	})
	assert.Contains(t, buf.String(), "  book lunch\n")
	assert.Contains(t, buf.String(), "(tool call create_calendar_event)")

	buf.Reset()
	writeActionEntries(&buf, []store.ActionEntry{{Status: "failed", Kind: action.SendEmail, Summary: "Send email to x@y.z", Detail: "smtp down", CreatedAt: time.Now()}})
	assert.Contains(t, buf.String(), "Send email to x@y.z  (smtp down)")
}

func TestBuildServicesBackends(t *testing.T) {
	log := logging.New(nil, "silent")
	cfg := config.Defaults()

	services, err := buildServices(context.Background(), cfg, log)
	require.NoError(t, err)
	assert.Nil(t, services.Calendar)
	assert.Nil(t, services.Email)
	assert.Nil(t, services.Drafts)

	cfg.Email.Backend = "smtp"
	cfg.Drafts.Backend = "imap"
	services, err = buildServices(context.Background(), cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &mail.SMTPSender{}, services.Email)
	assert.IsType(t, &mail.IMAPDrafter{}, services.Drafts)

	cfg.Calendar.Backend = "google"
	cfg.Google.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = buildServices(context.Background(), cfg, log)
	assert.ErrorContains(t, err, "google auth")
}

func TestNewAppMemoryStore(t *testing.T) {
	cfg := config.Defaults()
	cfg.Assistant.Provider = "echo"
	cfg.Store.Backend = "memory"
	cfg.Actions.Timezone = "UTC"

	a, err := newApp(context.Background(), cfg, logging.New(nil, "silent"))
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.db)

	turn, err := a.runner.Send(context.Background(), "c1", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "You said: hello there", turn.Reply)
	assert.Nil(t, turn.Proposed)
	assert.Len(t, a.runner.History("c1"), 2)
}

func TestNewAppSQLiteStore(t *testing.T) {
	cfg := config.Defaults()
	cfg.Assistant.Provider = "echo"
	cfg.Store.Path = filepath.Join(t.TempDir(), "concierge.db")

	a, err := newApp(context.Background(), cfg, logging.New(nil, "silent"))
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.db)
	_, err = os.Stat(cfg.Store.Path)
	assert.NoError(t, err)
}

func TestNewAppRejectsMissingAPIKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Backend = "memory"

	_, err := newApp(context.Background(), cfg, logging.New(nil, "silent"))
	assert.ErrorContains(t, err, "no API key")
}

func TestConfigCommands(t *testing.T) {
	home := t.TempDir()

	out, err := execute(t, home, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.yaml")+"\n", out)

	out, err = execute(t, home, "config", "validate")
	assert.Error(t, err)
	assert.Contains(t, out, "assistant.apiKey")

	_, err = execute(t, home, "config", "set", "assistant.provider", "echo")
	require.NoError(t, err)
	out, err = execute(t, home, "config", "set", "gateway.port", "9000")
	require.NoError(t, err)
	assert.Equal(t, "Set gateway.port = 9000\n", out)

	out, err = execute(t, home, "config", "get", "assistant.provider")
	require.NoError(t, err)
	assert.Equal(t, "echo\n", out)

	out, err = execute(t, home, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, ": ok")

	_, err = execute(t, home, "config", "unset", "gateway.port")
	require.NoError(t, err)
	_, err = execute(t, home, "config", "get", "gateway.port")
	assert.ErrorContains(t, err, "not found")

	_, err = execute(t, home, "config", "get", "a..b")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "concierge "))
}

func TestExtractCommand(t *testing.T) {
	home := t.TempDir()

	out, err := execute(t, home, "extract", "--now", "2024-03-13 10:30", "[CREATE_EVENT] I'll create 'Team Sync' tomorrow at 3pm.")
	require.NoError(t, err)

	var got struct {
		Kind   action.Kind      `json:"kind"`
		Event  action.EventData `json:"event"`
		Effect action.Effect    `json:"effect"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, action.CreateEvent, got.Kind)
	assert.Equal(t, "Team Sync", got.Event.Title)
	assert.Equal(t, time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC), got.Event.Start.UTC())
	assert.Equal(t, "Add to Calendar", got.Effect.ConfirmLabel)

	out, err = execute(t, home, "extract", "Happy to help.")
	require.NoError(t, err)
	assert.Equal(t, "no action\n", out)

	_, err = execute(t, home, "extract", "--now", "tomorrow", "x")
	assert.ErrorContains(t, err, "--now")
}

func TestSendCommand(t *testing.T) {
	home := t.TempDir()
	_, err := execute(t, home, "config", "set", "assistant.provider", "echo")
	require.NoError(t, err)
	_, err = execute(t, home, "config", "set", "store.backend", "memory")
	require.NoError(t, err)

	out, err := execute(t, home, "send", "hi")
	require.NoError(t, err)
	assert.Equal(t, "You said: hi\n", out)

	out, err = execute(t, home, "send", "--json", "please email bob@example.com")
	require.NoError(t, err)
	var turn assistant.Turn
	require.NoError(t, json.Unmarshal([]byte(out), &turn))
	require.NotNil(t, turn.Proposed)
	assert.Equal(t, action.SendEmail, turn.Proposed.Kind)
	assert.Equal(t, "bob@example.com", turn.Proposed.Email.To)
	assert.Nil(t, turn.Result)
}
