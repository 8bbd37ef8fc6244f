package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/forma/internal/auth"
	"github.com/yanizio/forma/internal/component"
	"github.com/yanizio/forma/internal/credential"
	"github.com/yanizio/forma/internal/storage"
)

// readOnly rejects every write.
type readOnly struct{ *storage.KV }

func (readOnly) Set(context.Context, string, any) error { return errors.New("read-only") }

func newComponent(t *testing.T, st credential.Store) http.Handler {
	t.Helper()
	creds, err := credential.New(st, credential.Options{
		Account:  credential.Account{Email: "dev@example.com", Password: "devpass"},
		HashCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	c := &Component{}
	require.NoError(t, c.Init(component.Deps{Credentials: creds}))
	return c.Routes()
}

func get(t *testing.T, h http.Handler, method, path string) (int, Status) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var s Status
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	}
	return rec.Code, s
}

func TestComplete_MovesToAuth(t *testing.T) {
	h := newComponent(t, storage.New(storage.NewMemory()))

	code, s := get(t, h, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, s.HasSeenOnboarding)
	assert.Equal(t, auth.RouteOnboarding, s.Route)

	code, s = get(t, h, http.MethodPost, "/complete")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, s.HasSeenOnboarding)
	assert.Equal(t, auth.RouteAuth, s.Route)
}

func TestComplete_StorageFailure(t *testing.T) {
	h := newComponent(t, readOnly{storage.New(storage.NewMemory())})
	code, _ := get(t, h, http.MethodPost, "/complete")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestInit_RequiresCredentials(t *testing.T) {
	assert.Error(t, (&Component{}).Init(component.Deps{}))
}
