package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"text/template"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"calingen/internal/config"
	"calingen/internal/generation"
	"calingen/internal/model"
	"calingen/internal/plugin"
	"calingen/internal/recurrence"
	"calingen/internal/resolution"
	"calingen/internal/session"
	"calingen/internal/storage"
)

type echoCompiler struct{}

func (echoCompiler) ID() string    { return "compiler.webtest" }
func (echoCompiler) Title() string { return "Echo" }

func (echoCompiler) GetResponse(source string, layoutType string) (*plugin.Artifact, error) {
	return &plugin.Artifact{
		ContentType: "text/plain; charset=utf-8",
		Filename:    "out.txt",
		Body:        []byte(source),
	}, nil
}

// registerTestPlugins populates the package-level registries once per test
// binary.
func registerTestPlugins(t *testing.T) {
	t.Helper()
	if _, err := plugin.Compilers.Get("compiler.webtest"); err == nil {
		return
	}
	require.NoError(t, plugin.Compilers.Register(echoCompiler{}))
	require.NoError(t, plugin.Layouts.Register(&plugin.TemplateLayout{
		Ident:    "layout.webtest",
		Name:     "Web Test",
		Type:     "plain",
		Template: template.Must(template.New("t").Parse("year={{ .TargetYear }} entries={{ len .Entries }}")),
	}))
	require.NoError(t, plugin.Events.Register(&plugin.StaticEventProvider{
		Ident: "provider.webtest",
		Name:  "Web Test Provider",
		Entries: []plugin.EntryDefinition{
			{Title: "Fixed Day", Category: model.CategoryHoliday, Rule: recurrence.Yearly{Month: time.June, Day: 6}},
		},
	}))
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *storage.Store) {
	t.Helper()
	registerTestPlugins(t)

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Compiler = map[string]string{"default": "compiler.webtest"}

	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	resolver, err := resolution.NewResolver(store, 8)
	require.NoError(t, err)

	flow := generation.NewFlow(session.NewMemoryStore(time.Minute), resolver, cfg.Compiler)
	srv := httptest.NewServer(NewServer(cfg, store, flow).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEventLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/events", map[string]string{
		"title": "Birthday",
		"start": "1990-05-17",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[map[string]string](t, resp)
	require.NotEmpty(t, created["id"])
	assert.Equal(t, "ANNUAL_ANNIVERSARY", created["category"])

	resp = doJSON(t, client, http.MethodGet, srv.URL+"/api/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeBody[[]map[string]string](t, resp)
	require.Len(t, listed, 1)
	assert.Equal(t, "1990-05-17", listed[0]["start"])

	resp = doJSON(t, client, http.MethodPut, srv.URL+"/api/events/"+created["id"], map[string]string{
		"title":    "Alice's Birthday",
		"category": "ANNUAL_ANNIVERSARY",
		"start":    "1990-05-17",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, client, http.MethodDelete, srv.URL+"/api/events/"+created["id"], nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, client, http.MethodGet, srv.URL+"/api/events/"+created["id"], nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateEventValidation(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/events", map[string]string{
		"start": "1990-05-17",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, client, http.MethodPost, srv.URL+"/api/events", map[string]string{
		"title":    "Strange",
		"category": "LUNAR",
		"start":    "1990-05-17",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProfileReconciliationAndMessages(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MissingProviderNotification = config.NotificationMessages
	srv, _ := newTestServer(t, cfg)
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPut, srv.URL+"/api/profile", map[string]any{
		"active": []string{"provider.webtest", "provider.ghost"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodeBody[profileResponse](t, resp)

	assert.Equal(t, []string{"provider.webtest"}, state.Active)
	assert.Equal(t, []string{"provider.ghost"}, state.Unavailable)
	assert.Equal(t, []string{"provider.ghost"}, state.NewlyUnavailable)
	require.Len(t, state.Messages, 1)
	assert.Contains(t, state.Messages[0], "provider.ghost")
}

func TestProfileMessagesSuppressedByDefault(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPut, srv.URL+"/api/profile", map[string]any{
		"active": []string{"provider.ghost"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodeBody[profileResponse](t, resp)
	assert.Empty(t, state.Messages)
	assert.Equal(t, []string{"provider.ghost"}, state.NewlyUnavailable)
}

func TestListingEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	client := newClient(t)

	for _, path := range []string{"/api/providers", "/api/layouts", "/api/compilers"} {
		resp := doJSON(t, client, http.MethodGet, srv.URL+path, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		infos := decodeBody[[]plugin.Info](t, resp)
		assert.NotEmpty(t, infos, path)
	}
}

func TestGenerationFlow(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	client := newClient(t)

	// Compile before selecting: the flow rejects the deep link.
	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/generation/compile", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, client, http.MethodPost, srv.URL+"/api/generation/select", map[string]any{
		"layout":      "layout.webtest",
		"target_year": 2024,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The layout has no configuration form; the step is skipped.
	resp = doJSON(t, client, http.MethodGet, srv.URL+"/api/generation/form", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, client, http.MethodPost, srv.URL+"/api/generation/compile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "year=2024 entries=0", string(body))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "out.txt")

	// The session was consumed by the compile step.
	resp = doJSON(t, client, http.MethodPost, srv.URL+"/api/generation/compile", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestSelectUnknownLayout(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/generation/select", map[string]any{
		"layout": "layout.gone",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "alice", Password: string(hash)}
	srv, _ := newTestServer(t, cfg)

	// /health stays open.
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/events")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	req.SetBasicAuth("alice", "s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req.SetBasicAuth("alice", "wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRequestUserScopesEvents(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "alice", Password: "pw"}
	srv, store := newTestServer(t, cfg)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/events",
		bytes.NewReader([]byte(`{"title":"Mine","start":"2000-01-01"}`)))
	require.NoError(t, err)
	req.SetBasicAuth("alice", "pw")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	events, err := store.ListEvents("alice")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Mine", events[0].Title)

	other, err := store.ListEvents("default")
	require.NoError(t, err)
	assert.Empty(t, other)
}
