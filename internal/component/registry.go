// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/forma calls Mount once
// at boot: every component receives the shared Deps through Init() and its
// Routes() are mounted at “/<name>”.

package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/forma/internal/clock"
	"github.com/yanizio/forma/internal/config"
	"github.com/yanizio/forma/internal/credential"
	"github.com/yanizio/forma/internal/message"
	"github.com/yanizio/forma/internal/storage"
)

// Deps are the process-wide resources handed to every component.  Clock
// may be nil, meaning real time.
type Deps struct {
	Config      *config.Config
	Store       storage.Store
	Credentials *credential.Service
	Messages    *message.Catalog
	Clock       clock.Clock
}

// Initializer receives Deps once, before Routes() is called.
type Initializer interface {
	Init(Deps) error
}

// Component contract.
//
// Routes() are relative to the component prefix, e.g. for “auth”:
//
//	r := chi.NewRouter()
//	r.Get("/state", c.handleState)   // GET /auth/state
//	r.Post("/submit", c.handleSubmit) // POST /auth/submit
//	return r
type Component interface {
	Name() string
	Routes() chi.Router
	Initializer
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount initialises every registered component with d and mounts its
// routes on r under “/<name>”.  The first Init failure aborts.
func Mount(r chi.Router, d Deps) error {
	for _, c := range All() {
		if err := c.Init(d); err != nil {
			return fmt.Errorf("component %s: %w", c.Name(), err)
		}
		r.Mount("/"+c.Name(), c.Routes())
	}
	return nil
}
