package auth

import (
	"context"

	"github.com/yanizio/forma/internal/credential"
)

// Credentials checks or creates an account.  *credential.Service satisfies
// it.
type Credentials interface {
	Login(ctx context.Context, email, password string) (credential.Result, error)
	Register(ctx context.Context, email, password string) (credential.Result, error)
}

// ImpactStyle is the weight of a tap-feedback pulse.
type ImpactStyle string

const (
	ImpactLight  ImpactStyle = "light"
	ImpactMedium ImpactStyle = "medium"
)

// NotifyKind is the kind of an outcome-feedback pattern.
type NotifyKind string

const (
	NotifySuccess NotifyKind = "success"
	NotifyError   NotifyKind = "error"
)

// Feedback emits haptic signals.
type Feedback interface {
	Impact(style ImpactStyle)
	Notify(kind NotifyKind)
}

// Route names a top-level screen.
type Route string

const (
	RouteOnboarding Route = "Onboarding"
	RouteAuth       Route = "Auth"
	RouteMainApp    Route = "MainApp"
)

// InitialRoute picks the first screen for a stored session: the main app
// when signed in, the auth screen once onboarding is done, and onboarding
// otherwise.
func InitialRoute(s credential.Session) Route {
	switch {
	case s.IsAuthenticated:
		return RouteMainApp
	case s.HasSeenOnboarding:
		return RouteAuth
	default:
		return RouteOnboarding
	}
}

// Navigator replaces the current screen.
type Navigator interface {
	Replace(route Route)
}

// Action is one button on an alert.
type Action struct {
	Label   string
	OnPress func()
}

// Prompter shows a modal alert.  An alert with no actions has an implicit
// dismiss button.
type Prompter interface {
	Alert(title, message string, actions ...Action)
}

type nopFeedback struct{}

func (nopFeedback) Impact(ImpactStyle) {}
func (nopFeedback) Notify(NotifyKind)  {}

type nopNavigator struct{}

func (nopNavigator) Replace(Route) {}

type nopPrompter struct{}

func (nopPrompter) Alert(string, string, ...Action) {}
