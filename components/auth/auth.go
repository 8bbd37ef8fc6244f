// components/auth/auth.go
//
// Forma authentication component – login and registration screen.
//
// Context
// -------
// The screen runs headless: each client owns one Flow (cookie “forma_flow”)
// whose auth.Controller keeps the form, validation, and submission state
// server-side.  Every endpoint answers with the same state payload: the
// render View, the current route, any open prompt, and the screen-side
// events (haptics, navigation, alerts) emitted since the last response.
//
// Routes (mounted under /auth)
// ----------------------------
//
//	GET  /state        current payload
//	POST /field        {"field","value"}  write + debounced validation
//	POST /touch        {"field"}          mark a field touched
//	POST /visibility   {"field"}          toggle password masking
//	POST /submit                          login or register
//	POST /toggle                          switch login ⇄ register
//	POST /demo                            fill the development account
//	POST /back                            return to onboarding
//	POST /prompt       {"action"}         press an alert button
//	POST /logout                          clear the persisted session
//	GET  /session                         persisted session flags
//
//------------------------------------------------------------------------------

package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/yanizio/forma/internal/auth"
	"github.com/yanizio/forma/internal/clock"
	"github.com/yanizio/forma/internal/component"
	"github.com/yanizio/forma/internal/config"
	"github.com/yanizio/forma/internal/credential"
	"github.com/yanizio/forma/internal/formstate"
	"github.com/yanizio/forma/internal/message"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the auth screen.
type Component struct {
	cfg      config.Auth
	creds    *credential.Service
	msgs     *message.Catalog
	clk      clock.Clock
	flows    *Registry
	validate *validator.Validate
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Init wires the shared credential service and builds the flow registry.
func (c *Component) Init(d component.Deps) error {
	if d.Config == nil || d.Credentials == nil {
		return errors.New("auth: config and credentials are required")
	}
	c.cfg = d.Config.Auth
	c.creds = d.Credentials
	c.msgs = d.Messages
	if c.msgs == nil {
		c.msgs = message.Default()
	}
	c.clk = d.Clock
	if c.clk == nil {
		c.clk = clock.Real{}
	}
	c.validate = newValidator()
	if c.flows != nil {
		c.flows.Close()
	}
	c.flows = NewRegistry(d.Config.Flows.MaxActive, c.newFlow)
	return nil
}

// Routes builds and returns the router mounted at “/auth”.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/state", c.handleState)
	r.Post("/field", c.handleField)
	r.Post("/touch", c.handleTouch)
	r.Post("/visibility", c.handleVisibility)
	r.Post("/submit", c.handleSubmit)
	r.Post("/toggle", c.handleToggle)
	r.Post("/demo", c.handleDemo)
	r.Post("/back", c.handleBack)
	r.Post("/prompt", c.handlePrompt)
	r.Post("/logout", c.handleLogout)
	r.Get("/session", c.handleSession)
	return r
}

// Close closes every live flow.
func (c *Component) Close() {
	if c.flows != nil {
		c.flows.Close()
	}
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── flow factory ─────────────────────────────────*/

func (c *Component) newFlow(id string) *Flow {
	f := &Flow{ID: id}
	store := formstate.New(formstate.Options{
		MinPasswordLength: c.cfg.MinPasswordLength,
		DebounceDelay:     c.cfg.DebounceDelay,
		Clock:             c.clk,
	})
	f.ctl = auth.New(store, c.creds, auth.Options{
		Feedback:  f,
		Navigator: f,
		Prompter:  f,
		Messages:  c.msgs,
		DemoAccount: credential.Account{
			Email:    c.cfg.DevEmail,
			Password: c.cfg.DevPassword,
		},
		ChoreographyDelay: c.cfg.ChoreographyDelay,
		Clock:             c.clk,
	})
	return f
}
