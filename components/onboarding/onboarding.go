// components/onboarding/onboarding.go
//
// Forma onboarding component.
//
// The carousel itself is client-side.  The server only records that it was
// completed, which moves the user's first screen from Onboarding to Auth.
//
// Routes (mounted under /onboarding)
// ----------------------------------
//
//	GET  /status     persisted session flags and the first screen
//	POST /complete   mark onboarding as seen
//
//------------------------------------------------------------------------------

package onboarding

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/forma/internal/auth"
	"github.com/yanizio/forma/internal/component"
	"github.com/yanizio/forma/internal/credential"
	"github.com/yanizio/forma/internal/logger"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component records onboarding completion.
type Component struct {
	creds *credential.Service
}

// Status is the payload of both routes.
type Status struct {
	credential.Session
	Route auth.Route `json:"route"`
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "onboarding" }

// Init keeps the shared credential service.
func (c *Component) Init(d component.Deps) error {
	if d.Credentials == nil {
		return errors.New("onboarding: credentials are required")
	}
	c.creds = d.Credentials
	return nil
}

// Routes builds and returns the router mounted at “/onboarding”.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", c.handleStatus)
	r.Post("/complete", c.handleComplete)
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

func (c *Component) handleStatus(w http.ResponseWriter, r *http.Request) {
	c.writeStatus(w, r)
}

func (c *Component) handleComplete(w http.ResponseWriter, r *http.Request) {
	if err := c.creds.MarkOnboardingSeen(r.Context()); err != nil {
		logger.FromContext(r.Context()).Errorw("onboarding complete failed", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	c.writeStatus(w, r)
}

func (c *Component) writeStatus(w http.ResponseWriter, r *http.Request) {
	s := c.creds.Session(r.Context())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(Status{Session: s, Route: auth.InitialRoute(s)})
}
