package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/forma/internal/auth"
	"github.com/yanizio/forma/internal/clock"
	"github.com/yanizio/forma/internal/component"
	"github.com/yanizio/forma/internal/config"
	"github.com/yanizio/forma/internal/credential"
	"github.com/yanizio/forma/internal/storage"
)

// payload mirrors State with wire-level types.
type payload struct {
	Flow string `json:"flow"`
	View struct {
		IsLogin bool   `json:"isLogin"`
		State   string `json:"state"`
		Form    struct {
			Values map[string]string `json:"values"`
			Errors map[string]string `json:"errors"`
		} `json:"form"`
		Strength struct {
			Level      string `json:"level"`
			Percentage int    `json:"percentage"`
		} `json:"strength"`
	} `json:"view"`
	Route   string        `json:"route"`
	Prompt  *Prompt       `json:"prompt"`
	Events  []Event       `json:"events"`
	Outcome *auth.Outcome `json:"outcome"`
}

type harness struct {
	t     *testing.T
	clk   *clock.Manual
	comp  *Component
	creds *credential.Service
	h     http.Handler
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Defaults()
	if mutate != nil {
		mutate(&cfg)
	}
	kv := storage.New(storage.NewMemory())
	creds, err := credential.New(kv, credential.Options{
		Account:  credential.Account{Email: cfg.Auth.DevEmail, Password: cfg.Auth.DevPassword},
		HashCost: bcrypt.MinCost,
	})
	require.NoError(t, err)

	clk := clock.NewManual()
	comp := &Component{}
	require.NoError(t, comp.Init(component.Deps{
		Config:      &cfg,
		Store:       kv,
		Credentials: creds,
		Clock:       clk,
	}))
	t.Cleanup(comp.Close)
	return &harness{t: t, clk: clk, comp: comp, creds: creds, h: comp.Routes()}
}

// client carries one cookie jar.
type client struct {
	h       *harness
	cookies map[string]*http.Cookie
}

func (h *harness) client() *client {
	return &client{h: h, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.h.t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.h.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) state(method, path string, body any) payload {
	c.h.t.Helper()
	rec := c.do(method, path, body)
	require.Equal(c.h.t, http.StatusOK, rec.Code, rec.Body.String())
	var p payload
	require.NoError(c.h.t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func hasEvent(events []Event, want Event) bool {
	for _, e := range events {
		e.Seq = 0
		if e == want {
			return true
		}
	}
	return false
}

func TestState_IssuesStableFlow(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client()

	first := c.state(http.MethodGet, "/state", nil)
	require.NotEmpty(t, first.Flow)
	assert.True(t, first.View.IsLogin)
	assert.Equal(t, "idle", first.View.State)

	second := c.state(http.MethodGet, "/state", nil)
	assert.Equal(t, first.Flow, second.Flow)
	assert.Equal(t, 1, h.comp.flows.Len())

	other := h.client().state(http.MethodGet, "/state", nil)
	assert.NotEqual(t, first.Flow, other.Flow)
}

func TestField_DebouncedValidation(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client()

	p := c.state(http.MethodPost, "/field", map[string]string{"field": "email", "value": "bad"})
	assert.Empty(t, p.View.Form.Errors, "validation waits for the quiet period")

	h.clk.Advance(300 * time.Millisecond)
	p = c.state(http.MethodGet, "/state", nil)
	assert.Equal(t, "Please enter a valid email", p.View.Form.Errors["email"])

	c.state(http.MethodPost, "/field", map[string]string{"field": "email", "value": "ok@example.com"})
	h.clk.Advance(300 * time.Millisecond)
	p = c.state(http.MethodGet, "/state", nil)
	assert.Empty(t, p.View.Form.Errors["email"])
}

func TestSubmit_InvalidForm(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client()

	p := c.state(http.MethodPost, "/submit", nil)
	require.NotNil(t, p.Outcome)
	assert.Equal(t, auth.OutcomeInvalidForm, p.Outcome.Kind)
	assert.Equal(t, "Email is required", p.View.Form.Errors["email"])
	assert.Equal(t, "Password is required", p.View.Form.Errors["password"])
	assert.True(t, hasEvent(p.Events, Event{Kind: EventNotify, Notify: auth.NotifyError}))
	assert.Equal(t, "idle", p.View.State)
}

func TestSubmit_DemoLogin(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client()

	p := c.state(http.MethodPost, "/demo", nil)
	assert.Equal(t, "dev@example.com", p.View.Form.Values["email"])
	h.clk.Advance(100 * time.Millisecond)

	p = c.state(http.MethodPost, "/submit", nil)
	require.NotNil(t, p.Outcome)
	assert.Equal(t, auth.OutcomeSuccess, p.Outcome.Kind)
	assert.Equal(t, string(auth.RouteMainApp), p.Route)
	assert.True(t, hasEvent(p.Events, Event{Kind: EventImpact, Impact: auth.ImpactMedium}))
	assert.True(t, hasEvent(p.Events, Event{Kind: EventNavigate, Route: auth.RouteMainApp}))
	assert.Equal(t, "idle", p.View.State)

	var s SessionState
	rec := c.do(http.MethodGet, "/session", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, "dev@example.com", s.Email)
	assert.Equal(t, auth.RouteMainApp, s.Route)
}

func TestSubmit_LoginFailureOpensPrompt(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client()

	c.state(http.MethodPost, "/field", map[string]string{"field": "email", "value": "dev@example.com"})
	c.state(http.MethodPost, "/field", map[string]string{"field": "password", "value": "wrongpass"})
	p := c.state(http.MethodPost, "/submit", nil)

	require.NotNil(t, p.Outcome)
	assert.Equal(t, auth.OutcomeServiceFailure, p.Outcome.Kind)
	require.NotNil(t, p.Prompt)
	assert.Equal(t, "Login Failed", p.Prompt.Title)
	assert.Equal(t, []string{DismissLabel}, p.Prompt.Actions)
	assert.Empty(t, p.Route)

	p = c.state(http.MethodPost, "/prompt", map[string]string{"action": DismissLabel})
	assert.Nil(t, p.Prompt)
}

func TestSubmit_RegisterThenGetStarted(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client()

	p := c.state(http.MethodPost, "/toggle", nil)
	require.False(t, p.View.IsLogin)

	c.state(http.MethodPost, "/field", map[string]string{"field": "email", "value": "New@User.io"})
	c.state(http.MethodPost, "/field", map[string]string{"field": "password", "value": "Abc12!"})
	c.state(http.MethodPost, "/field", map[string]string{"field": "confirmPassword", "value": "Abc12!"})
	p = c.state(http.MethodPost, "/submit", nil)

	require.NotNil(t, p.Outcome)
	assert.Equal(t, auth.OutcomeSuccess, p.Outcome.Kind)
	assert.Equal(t, "new@user.io", p.Outcome.Email)
	require.NotNil(t, p.Prompt)
	assert.Equal(t, []string{"Get Started"}, p.Prompt.Actions)
	assert.Empty(t, p.Route, "register waits for the prompt")

	rec := c.do(http.MethodPost, "/prompt", map[string]string{"action": "Nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	p = c.state(http.MethodPost, "/prompt", map[string]string{"action": "Get Started"})
	assert.Equal(t, string(auth.RouteMainApp), p.Route)
	assert.Nil(t, p.Prompt)

	rec = c.do(http.MethodPost, "/prompt", map[string]string{"action": "Get Started"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestToggle_ClearsPasswords(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client()

	c.state(http.MethodPost, "/field", map[string]string{"field": "email", "value": "a@b.co"})
	c.state(http.MethodPost, "/field", map[string]string{"field": "password", "value": "secret"})
	c.state(http.MethodPost, "/visibility", map[string]string{"field": "password"})

	p := c.state(http.MethodPost, "/toggle", nil)
	assert.Equal(t, "a@b.co", p.View.Form.Values["email"])
	assert.Empty(t, p.View.Form.Values["password"])
	assert.Empty(t, p.View.Form.Errors)
}

func TestBack_NavigatesToOnboarding(t *testing.T) {
	h := newHarness(t, nil)
	p := h.client().state(http.MethodPost, "/back", nil)
	assert.Equal(t, string(auth.RouteOnboarding), p.Route)
	assert.True(t, hasEvent(p.Events, Event{Kind: EventImpact, Impact: auth.ImpactLight}))
}

func TestRequests_Rejected(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client()

	rec := c.do(http.MethodPost, "/field", map[string]string{"field": "age", "value": "3"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "oneof", body.Fields["field"])

	rec = c.do(http.MethodPost, "/field", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/field", `{"field":"email","value":"x","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/visibility", map[string]string{"field": "email"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.do(http.MethodPost, "/prompt", map[string]string{"action": "OK"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogout_ClearsSessionAndFlow(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client()
	ctx := context.Background()

	c.state(http.MethodPost, "/demo", nil)
	c.state(http.MethodPost, "/submit", nil)
	require.NoError(t, h.creds.MarkOnboardingSeen(ctx))
	require.True(t, h.creds.IsAuthenticated(ctx))

	rec := c.do(http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var s SessionState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.False(t, s.IsAuthenticated)
	assert.False(t, s.HasSeenOnboarding)
	assert.True(t, s.ShouldLogout)
	assert.Equal(t, auth.RouteOnboarding, s.Route)

	assert.Equal(t, 0, h.comp.flows.Len())
	assert.Empty(t, c.cookies, "flow cookie cleared")
}

func TestFlows_EvictedAndClosed(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Flows.MaxActive = 1 })

	a := h.client()
	first := a.state(http.MethodGet, "/state", nil)
	old, ok := h.comp.flows.Lookup(first.Flow)
	require.True(t, ok)

	h.client().state(http.MethodGet, "/state", nil)
	assert.Equal(t, 1, h.comp.flows.Len())
	_, ok = h.comp.flows.Lookup(first.Flow)
	assert.False(t, ok)

	_, err := old.Controller().Submit(context.Background())
	assert.ErrorIs(t, err, auth.ErrClosed)

	// The evicted client keeps its cookie and gets a fresh flow under it.
	again := a.state(http.MethodGet, "/state", nil)
	assert.Equal(t, first.Flow, again.Flow)
	assert.True(t, again.View.IsLogin)
}
