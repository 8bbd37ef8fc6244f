// components/auth/handlers.go
//
// HTTP handlers.  Each one resolves the caller's Flow, applies one screen
// action, and answers with the state payload.

package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yanizio/forma/internal/auth"
	"github.com/yanizio/forma/internal/credential"
	"github.com/yanizio/forma/internal/formstate"
	"github.com/yanizio/forma/internal/logger"
	"github.com/yanizio/forma/internal/session"
)

// State is the payload every flow endpoint returns.
type State struct {
	Flow    string        `json:"flow"`
	View    auth.View     `json:"view"`
	Route   auth.Route    `json:"route,omitempty"`
	Prompt  *Prompt       `json:"prompt,omitempty"`
	Events  []Event       `json:"events,omitempty"`
	Outcome *auth.Outcome `json:"outcome,omitempty"`
}

// SessionState is the payload of /session and /logout.
type SessionState struct {
	credential.Session
	Route auth.Route `json:"route"`
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

/*──────────────────────────── flow actions ─────────────────────────────────*/

func (c *Component) handleState(w http.ResponseWriter, r *http.Request) {
	c.respond(w, c.flow(w, r), nil)
}

func (c *Component) handleField(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := c.decode(w, r, &req); err != nil {
		c.fail(w, r, err)
		return
	}
	fld, err := formstate.ParseField(req.Field)
	if err != nil {
		c.fail(w, r, &requestError{status: http.StatusUnprocessableEntity, msg: err.Error()})
		return
	}
	f := c.flow(w, r)
	f.Controller().SetField(fld, req.Value)
	c.respond(w, f, nil)
}

func (c *Component) handleTouch(w http.ResponseWriter, r *http.Request) {
	var req touchRequest
	if err := c.decode(w, r, &req); err != nil {
		c.fail(w, r, err)
		return
	}
	fld, err := formstate.ParseField(req.Field)
	if err != nil {
		c.fail(w, r, &requestError{status: http.StatusUnprocessableEntity, msg: err.Error()})
		return
	}
	f := c.flow(w, r)
	f.Controller().Touch(fld)
	c.respond(w, f, nil)
}

func (c *Component) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := c.decode(w, r, &req); err != nil {
		c.fail(w, r, err)
		return
	}
	fld, err := formstate.ParseField(req.Field)
	if err != nil {
		c.fail(w, r, &requestError{status: http.StatusUnprocessableEntity, msg: err.Error()})
		return
	}
	f := c.flow(w, r)
	f.Controller().ToggleVisibility(fld)
	c.respond(w, f, nil)
}

func (c *Component) handleSubmit(w http.ResponseWriter, r *http.Request) {
	f := c.flow(w, r)
	out, err := f.Controller().Submit(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Infow("auth submit", "flow", f.ID, "outcome", out.Kind)
	c.respond(w, f, &out)
}

func (c *Component) handleToggle(w http.ResponseWriter, r *http.Request) {
	f := c.flow(w, r)
	if err := f.Controller().ToggleMode(); err != nil {
		c.fail(w, r, err)
		return
	}
	c.respond(w, f, nil)
}

func (c *Component) handleDemo(w http.ResponseWriter, r *http.Request) {
	f := c.flow(w, r)
	if err := f.Controller().UseDemo(); err != nil {
		c.fail(w, r, err)
		return
	}
	c.respond(w, f, nil)
}

func (c *Component) handleBack(w http.ResponseWriter, r *http.Request) {
	f := c.flow(w, r)
	f.Controller().Back()
	c.respond(w, f, nil)
}

func (c *Component) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := c.decode(w, r, &req); err != nil {
		c.fail(w, r, err)
		return
	}
	f := c.flow(w, r)
	if err := f.Press(req.Action); err != nil {
		c.fail(w, r, err)
		return
	}
	c.respond(w, f, nil)
}

/*──────────────────────────── session ──────────────────────────────────────*/

func (c *Component) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := c.creds.Logout(r.Context()); err != nil {
		c.fail(w, r, err)
		return
	}
	if id, ok := session.FlowID(r); ok {
		c.flows.Remove(id)
	}
	session.ClearFlow(w)
	logger.FromContext(r.Context()).Infow("auth logout")
	c.respondSession(w, r)
}

func (c *Component) handleSession(w http.ResponseWriter, r *http.Request) {
	c.respondSession(w, r)
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

// flow returns the caller's Flow, issuing a cookie for first-time callers.
func (c *Component) flow(w http.ResponseWriter, r *http.Request) *Flow {
	id, ok := session.FlowID(r)
	if !ok {
		id = session.NewFlowID()
		session.SetFlow(w, r, id)
	}
	return c.flows.Get(id)
}

func (c *Component) respond(w http.ResponseWriter, f *Flow, out *auth.Outcome) {
	writeJSON(w, http.StatusOK, State{
		Flow:    f.ID,
		View:    f.Controller().View(),
		Route:   f.Route(),
		Prompt:  f.OpenPrompt(),
		Events:  f.Drain(),
		Outcome: out,
	})
}

func (c *Component) respondSession(w http.ResponseWriter, r *http.Request) {
	s := c.creds.Session(r.Context())
	writeJSON(w, http.StatusOK, SessionState{Session: s, Route: auth.InitialRoute(s)})
}

// fail maps err to a status code and writes the error body.
func (c *Component) fail(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: err.Error()}
	status := http.StatusInternalServerError

	var rerr *requestError
	switch {
	case errors.As(err, &rerr):
		status, body.Fields = rerr.status, rerr.fields
	case errors.Is(err, auth.ErrSubmitting), errors.Is(err, ErrNoPrompt):
		status = http.StatusConflict
	case errors.Is(err, ErrUnknownAction):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrClosed):
		status = http.StatusGone
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Errorw("auth request failed", "path", r.URL.Path, "err", err)
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
