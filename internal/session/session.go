// internal/session/session.go
//
// Forma – flow cookie helpers.
//
// Context
//   Each client works through one auth flow at a time.  The flow lives in
//   server memory (components/auth); the browser only holds its random
//   UUID in a cookie named “forma_flow”.  The ID carries no user data, so
//   it needs no signing: an unknown or evicted ID simply starts a new flow.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	cookieName = "forma_flow"
	flowTTL    = 24 * time.Hour
)

// NewFlowID returns a fresh random flow ID.
func NewFlowID() string { return uuid.NewString() }

// SetFlow stores the flow ID in the response cookie.
func SetFlow(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil, // only send over HTTPS
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(flowTTL),
	})
}

// ClearFlow expires the flow cookie.
func ClearFlow(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// FlowID returns the flow ID carried by the request, if any.
//
// ok == false when the cookie is missing or does not hold a UUID.
func FlowID(r *http.Request) (id string, ok bool) {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	u, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
