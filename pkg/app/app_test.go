package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ankimcp/internal/ankiconnect/ankitest"
	"ankimcp/internal/config"
)

type reply struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type toolReply struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func testConfig(url string) config.Config {
	return config.Config{
		Anki:   config.AnkiConfig{URL: url, Version: 6, Timeout: 2 * time.Second},
		Server: config.ServerConfig{Name: "anki-mcp", Version: "2.0.0"},
	}
}

func session(t *testing.T, a *App, lines ...string) []reply {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, a.Serve(context.Background(), in, &out))

	var replies []reply
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var r reply
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r), sc.Text())
		replies = append(replies, r)
	}
	return replies
}

func toolText(t *testing.T, r reply) (string, bool) {
	t.Helper()
	require.Nil(t, r.Error)
	var tr toolReply
	require.NoError(t, json.Unmarshal(r.Result, &tr))
	require.Len(t, tr.Content, 1)
	return tr.Content[0].Text, tr.IsError
}

const handshake = `{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`

func TestCreateDeckSession(t *testing.T) {
	backend := ankitest.NewServer(t)
	a, err := New(testConfig(backend.URL))
	require.NoError(t, err)

	backend.Result("createDeck", 1700000000000)
	replies := session(t, a,
		handshake,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"createDeck","arguments":{"deckName":"Japanese"}}}`,
	)
	require.Len(t, replies, 2, "the acknowledgement gets no reply")

	var init struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(replies[0].Result, &init))
	assert.Equal(t, "2025-06-18", init.ProtocolVersion)
	assert.Equal(t, "anki-mcp", init.ServerInfo.Name)
	assert.Equal(t, "2.0.0", init.ServerInfo.Version)
	assert.True(t, a.Server().Session().Initialized())

	text, isErr := toolText(t, replies[1])
	assert.False(t, isErr)
	assert.Equal(t, "Created deck 'Japanese' with ID 1700000000000.", text)
}

func TestExistingDeckIsNotAnError(t *testing.T) {
	backend := ankitest.NewServer(t)
	a, err := New(testConfig(backend.URL))
	require.NoError(t, err)
	backend.Result("createDeck", nil)

	replies := session(t, a,
		`{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"createDeck","arguments":{"deckName":"Default"}}}`)
	require.Len(t, replies, 1)
	assert.JSONEq(t, `"a"`, string(replies[0].ID))
	text, isErr := toolText(t, replies[0])
	assert.False(t, isErr)
	assert.Equal(t, "Deck 'Default' already exists.", text)
}

func TestUnreachableBackend(t *testing.T) {
	a, err := New(testConfig(ankitest.UnreachableURL(t)))
	require.NoError(t, err)

	replies := session(t, a,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"listDecks","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"anki://decks/1"}}`,
	)
	require.Len(t, replies, 3)

	text, isErr := toolText(t, replies[0])
	assert.True(t, isErr)
	assert.Contains(t, text, "Could not connect to AnkiConnect")

	require.Nil(t, replies[1].Error)
	assert.JSONEq(t, `{"resources":[]}`, string(replies[1].Result))

	require.NotNil(t, replies[2].Error)
	assert.Equal(t, -32603, replies[2].Error.Code)
}

func TestToolsListAndResources(t *testing.T) {
	backend := ankitest.NewServer(t)
	backend.Result("deckNamesAndIds", map[string]int64{"Default": 1})
	backend.Result("modelNamesAndIds", map[string]int64{"Basic": 2})
	a, err := New(testConfig(backend.URL))
	require.NoError(t, err)

	replies := session(t, a,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"anki://bogus/1"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/read","params":{"uri":"anki://models/99"}}`,
	)
	require.Len(t, replies, 4)

	var tools struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(replies[0].Result, &tools))
	assert.Len(t, tools.Tools, 12)

	var resources struct {
		Resources []struct {
			URI  string `json:"uri"`
			Name string `json:"name"`
		} `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(replies[1].Result, &resources))
	require.Len(t, resources.Resources, 2)
	assert.Equal(t, "anki://decks/1", resources.Resources[0].URI)
	assert.Equal(t, "Model: Basic", resources.Resources[1].Name)

	require.NotNil(t, replies[2].Error)
	assert.Equal(t, -32602, replies[2].Error.Code)
	require.NotNil(t, replies[3].Error)
	assert.Equal(t, -32002, replies[3].Error.Code)
	assert.Equal(t, "Model ID 99 not found", replies[3].Error.Message)
}

func TestRequireInitialized(t *testing.T) {
	backend := ankitest.NewServer(t)
	cfg := testConfig(backend.URL)
	cfg.Server.RequireInitialized = true
	a, err := New(cfg)
	require.NoError(t, err)

	replies := session(t, a, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].Error)
	assert.Equal(t, -32600, replies[0].Error.Code)
	assert.Equal(t, "server not initialized", replies[0].Error.Message)
}

func TestPing(t *testing.T) {
	backend := ankitest.NewServer(t)
	backend.Result("version", 6)
	backend.Result("deckNames", []string{"Spanish", "Default"})
	a, err := New(testConfig(backend.URL))
	require.NoError(t, err)

	report, err := a.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, report.Version)
	assert.Equal(t, []string{"Default", "Spanish"}, report.Decks)
	out := report.String()
	assert.Contains(t, out, "is reachable (API version 6")
	assert.Contains(t, out, "  - Default\n")

	down, err := New(testConfig(ankitest.UnreachableURL(t)))
	require.NoError(t, err)
	_, err = down.Ping(context.Background())
	assert.ErrorContains(t, err, "Could not connect to AnkiConnect")
}

func TestCatalog(t *testing.T) {
	a, err := New(testConfig("http://127.0.0.1:1"))
	require.NoError(t, err)
	cat := a.Catalog()
	assert.True(t, strings.HasPrefix(cat, "# Tools\n"))
	assert.Contains(t, cat, "## addNotesBatch\n")
	assert.Contains(t, cat, "- `deckName` (required): Name of the new deck\n")
	assert.Less(t, strings.Index(cat, "## listDecks"), strings.Index(cat, "## guiCurrentCard"))
	assert.NotEmpty(t, a.RenderCatalog(80))
}

func TestParseLevel(t *testing.T) {
	t.Setenv("DEBUG", "")
	assert.Equal(t, logrus.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, logrus.TraceLevel, ParseLevel(" trace "))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))

	t.Setenv("DEBUG", "1")
	assert.Equal(t, logrus.DebugLevel, ParseLevel(""))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel("error"))
}

func TestConfigureLoggingToFile(t *testing.T) {
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })
	path := filepath.Join(t.TempDir(), "logs", "anki-mcp.log")
	closeLog := ConfigureLogging(config.LogConfig{Level: "debug", File: path})
	logrus.Info("hello from test")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestServeTreatsCancellationAsCleanStop(t *testing.T) {
	a, err := New(testConfig("http://127.0.0.1:1"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pr, pw := io.Pipe()
	defer pw.Close()
	var out bytes.Buffer
	assert.NoError(t, a.Serve(ctx, pr, &out))
	assert.Empty(t, out.String())
}
