// internal/credential/credential.go
//
// Credential service.
//
// Context
// -------
// There is no auth server.  Login waits out a simulated network delay and
// then accepts exactly one development account: the email is compared
// trimmed and case-insensitively, the password must match exactly.  Register
// always succeeds after the same kind of delay.  Both persist the session
// flags through the storage port:
//
//	isAuthenticated = "true"
//	userEmail       = lower-cased, trimmed email
//
// The two writes are not transactional.
//
// Error policy
// ------------
//   - A wrong account yields Result{Success: false} and a nil error.
//   - A storage failure while persisting the session is logged and also
//     yields Result{Success: false}.
//   - Context cancellation during the delay is returned as an error; the
//     submission controller treats it as unexpected.
//   - Session reads degrade to "not authenticated" / "no value".
//   - Logout returns storage errors, since logging out only counts when the
//     flags are really gone.
//
// Notes
// -----
//   - The development password is bcrypt-hashed once in New and checked
//     with CompareHashAndPassword.
//   - Oxford commas, two spaces after periods.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/forma/internal/storage"
)

// DefaultLatency is the simulated round-trip of a credential call.
const DefaultLatency = 500 * time.Millisecond

// Account is the single development account accepted by Login.
type Account struct {
	Email    string
	Password string
}

// Options tunes a Service.
type Options struct {
	Account         Account
	LoginLatency    time.Duration
	RegisterLatency time.Duration
	HashCost        int // bcrypt cost; 0 means bcrypt.DefaultCost
}

// Result is the outcome of Login or Register.
type Result struct {
	Success bool   `json:"success"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message,omitempty"`
}

// Store is the storage surface the Service needs: the shared Store plus raw
// string reads for the session flags.  *storage.KV satisfies it.
type Store interface {
	storage.Store
	GetString(ctx context.Context, key string) (string, bool)
}

// Service checks credentials and manages the persisted session flags.
type Service struct {
	store    Store
	devEmail string
	devHash  []byte
	loginLat time.Duration
	regLat   time.Duration
}

// New hashes the development password and returns a Service.  Negative
// latencies are treated as zero.
func New(store Store, o Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("credential: nil store")
	}
	cost := o.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(o.Account.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("credential: hash development password: %w", err)
	}
	return &Service{
		store:    store,
		devEmail: NormalizeEmail(o.Account.Email),
		devHash:  hash,
		loginLat: max(o.LoginLatency, 0),
		regLat:   max(o.RegisterLatency, 0),
	}, nil
}

// NormalizeEmail trims and lower-cases an email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

/*──────────────────────────── login / register ─────────────────────────────*/

// Login succeeds only for the development account.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	if err := wait(ctx, s.loginLat); err != nil {
		return Result{}, err
	}
	if !s.matches(email, password) {
		return Result{Success: false}, nil
	}
	return s.persist(ctx, "login", email), nil
}

// Register accepts any email and password.
func (s *Service) Register(ctx context.Context, email, _ string) (Result, error) {
	if err := wait(ctx, s.regLat); err != nil {
		return Result{}, err
	}
	return s.persist(ctx, "register", email), nil
}

func (s *Service) matches(email, password string) bool {
	if NormalizeEmail(email) != s.devEmail {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.devHash, []byte(password)) == nil
}

func (s *Service) persist(ctx context.Context, op, email string) Result {
	norm := NormalizeEmail(email)
	if err := s.store.Set(ctx, storage.KeyIsAuthenticated, "true"); err != nil {
		zap.S().Errorw("session persist failed", "op", op, "key", storage.KeyIsAuthenticated, "err", err)
		return Result{Success: false}
	}
	if err := s.store.Set(ctx, storage.KeyUserEmail, norm); err != nil {
		zap.S().Errorw("session persist failed", "op", op, "key", storage.KeyUserEmail, "err", err)
		return Result{Success: false}
	}
	return Result{Success: true, Email: norm}
}

/*──────────────────────────── session flags ────────────────────────────────*/

// IsAuthenticated reports whether the authenticated flag is set.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	v, _ := s.store.GetString(ctx, storage.KeyIsAuthenticated)
	return v == "true"
}

// CurrentUser returns the stored email, if any.
func (s *Service) CurrentUser(ctx context.Context) (string, bool) {
	v, ok := s.store.GetString(ctx, storage.KeyUserEmail)
	return v, ok && v != ""
}

// Logout removes the session and onboarding flags in one call and then sets
// shouldLogout.  Either failure is returned.
func (s *Service) Logout(ctx context.Context) error {
	err := s.store.RemoveMany(ctx,
		storage.KeyIsAuthenticated,
		storage.KeyUserEmail,
		storage.KeyHasSeenOnboarding,
	)
	if err != nil {
		zap.S().Errorw("logout failed", "err", err)
		return err
	}
	if err := s.store.Set(ctx, storage.KeyShouldLogout, "true"); err != nil {
		zap.S().Errorw("logout failed", "err", err)
		return err
	}
	return nil
}

// ShouldLogout reports whether a logout is pending acknowledgement.
func (s *Service) ShouldLogout(ctx context.Context) bool {
	v, _ := s.store.GetString(ctx, storage.KeyShouldLogout)
	return v == "true"
}

// MarkOnboardingSeen records that the onboarding carousel was completed.
func (s *Service) MarkOnboardingSeen(ctx context.Context) error {
	return s.store.Set(ctx, storage.KeyHasSeenOnboarding, "true")
}

// HasSeenOnboarding reports whether onboarding was completed.
func (s *Service) HasSeenOnboarding(ctx context.Context) bool {
	v, _ := s.store.GetString(ctx, storage.KeyHasSeenOnboarding)
	return v == "true"
}

// Session is a read of every persisted session flag.
type Session struct {
	IsAuthenticated   bool   `json:"isAuthenticated"`
	Email             string `json:"email,omitempty"`
	HasSeenOnboarding bool   `json:"hasSeenOnboarding"`
	ShouldLogout      bool   `json:"shouldLogout"`
}

// Session reads the flags.  Missing or unreadable keys read as unset.
func (s *Service) Session(ctx context.Context) Session {
	email, _ := s.CurrentUser(ctx)
	return Session{
		IsAuthenticated:   s.IsAuthenticated(ctx),
		Email:             email,
		HasSeenOnboarding: s.HasSeenOnboarding(ctx),
		ShouldLogout:      s.ShouldLogout(ctx),
	}
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
