// internal/formstate/store_test.go
//
// Unit-tests for the Form State Store.
//
// Context
// -------
// These tests cover the error-map contract (entries removed, never nil),
// ValidateAll including the empty-confirmation bypass, debounced write-back
// through the manual clock, and teardown behaviour after Close.
//
// Run: go test ./internal/formstate -v

package formstate

import (
	"sync"
	"testing"
	"time"

	"github.com/yanizio/forma/internal/clock"
	"github.com/yanizio/forma/internal/validation"
)

func newStore(clk clock.Clock) *Store {
	return New(Options{Clock: clk})
}

func TestSetFieldError_NilRemovesKey(t *testing.T) {
	s := newStore(clock.NewManual())
	s.SetFieldError(Email, &validation.Error{Kind: validation.InvalidFormat, Message: "bad"})
	s.SetFieldError(Email, nil)
	once := s.Snapshot()
	s.SetFieldError(Email, nil)
	twice := s.Snapshot()

	if _, ok := once.Errors[Email]; ok {
		t.Fatalf("email error still present after nil")
	}
	if len(once.Errors) != len(twice.Errors) || len(twice.Errors) != 0 {
		t.Fatalf("repeat nil changed state: %v vs %v", once.Errors, twice.Errors)
	}
}

func TestClearFieldErrorAndClearErrors(t *testing.T) {
	s := newStore(clock.NewManual())
	s.SetFieldError(Email, validation.Email(""))
	s.SetFieldError(Password, validation.Password("", 5))

	s.ClearFieldError(Email)
	if s.Error(Email) != nil || s.Error(Password) == nil {
		t.Fatalf("ClearFieldError touched the wrong field: %v", s.Snapshot().Errors)
	}
	s.ClearErrors()
	if len(s.Snapshot().Errors) != 0 {
		t.Fatalf("ClearErrors left %v", s.Snapshot().Errors)
	}
}

func TestSetFieldTouched_Idempotent(t *testing.T) {
	s := newStore(clock.NewManual())
	s.SetFieldTouched(Password)
	s.SetFieldTouched(Password)
	if got := s.Snapshot().Touched; len(got) != 1 || got[0] != Password {
		t.Fatalf("touched = %v", got)
	}
	s.ResetTouched()
	if s.Touched(Password) {
		t.Fatalf("ResetTouched kept password")
	}
}

func TestValidateAll(t *testing.T) {
	cases := []struct {
		name    string
		v       Values
		isLogin bool
		ok      bool
		failed  []Field
	}{
		{"login ok", Values{Email: "dev@example.com", Password: "devpass"}, true, true, nil},
		{"login empty", Values{}, true, false, []Field{Email, Password}},
		{"login ignores confirm", Values{Email: "a@b.c", Password: "12345", ConfirmPassword: "zzz"}, true, true, nil},
		{"register mismatch", Values{Email: "a@b.c", Password: "12345", ConfirmPassword: "54321"}, false, false, []Field{ConfirmPassword}},
		{"register match", Values{Email: "a@b.c", Password: "12345", ConfirmPassword: "12345"}, false, true, nil},
		// An empty confirmation skips the match check entirely.
		{"register empty confirm", Values{Email: "a@b.c", Password: "12345"}, false, true, nil},
		{"register short", Values{Email: "a@b.c", Password: "123"}, false, false, []Field{Password}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(clock.NewManual())
			s.SetFieldError(ConfirmPassword, validation.Confirmation("", "x")) // stale, must be replaced

			if got := s.ValidateAll(tc.v, tc.isLogin); got != tc.ok {
				t.Fatalf("ValidateAll = %v, want %v", got, tc.ok)
			}
			errs := s.Snapshot().Errors
			if len(errs) != len(tc.failed) {
				t.Fatalf("errors = %v, want fields %v", errs, tc.failed)
			}
			for _, f := range tc.failed {
				if _, ok := errs[f]; !ok {
					t.Fatalf("missing error for %s in %v", f, errs)
				}
			}
		})
	}
}

func TestDispatch_DebouncedWriteBack(t *testing.T) {
	clk := clock.NewManual()
	s := newStore(clk)

	for _, v := range []string{"d", "de", "dev"} {
		s.SetField(Email, v)
		s.Dispatch(Email)
		clk.Advance(100 * time.Millisecond)
	}
	if s.Error(Email) != nil {
		t.Fatalf("validated before the quiet period")
	}
	clk.Advance(DefaultDebounceDelay)
	if e := s.Error(Email); e == nil || e.Kind != validation.InvalidFormat {
		t.Fatalf("email error = %v, want invalid format", e)
	}

	// A passing value clears the earlier error.
	s.SetField(Email, "dev@example.com")
	s.Dispatch(Email)
	clk.Advance(DefaultDebounceDelay)
	if e := s.Error(Email); e != nil {
		t.Fatalf("email error = %v, want nil", e)
	}
}

func TestDispatch_ConfirmUsesPasswordAtScheduleTime(t *testing.T) {
	clk := clock.NewManual()
	s := newStore(clk)
	s.SetField(Password, "secret")
	s.SetField(ConfirmPassword, "secret")
	s.Dispatch(ConfirmPassword)
	s.SetField(Password, "changed")
	clk.Advance(DefaultDebounceDelay)

	if e := s.Error(ConfirmPassword); e != nil {
		t.Fatalf("confirm error = %v, want nil", e)
	}
}

func TestSubscribe(t *testing.T) {
	s := newStore(clock.NewManual())
	var seen []Snapshot
	unsub := s.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })

	s.SetField(Email, "a@b.c")
	s.SetFieldError(Password, validation.Password("", 5))
	unsub()
	s.ClearErrors()

	if len(seen) != 2 {
		t.Fatalf("notifications = %d, want 2", len(seen))
	}
	if seen[0].Values.Email != "a@b.c" || seen[1].Errors[Password] == "" {
		t.Fatalf("unexpected snapshots: %+v", seen)
	}
}

func TestSubscribe_SlowSubscriberEndsOnLatestSnapshot(t *testing.T) {
	s := newStore(clock.NewManual())
	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var last string
	calls := 0
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
		mu.Lock()
		last = snap.Values.Email
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.SetField(Email, "old@x.y")
	}()
	<-entered
	go func() {
		defer wg.Done()
		s.SetField(Email, "new@x.y")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.Value(Email) != "new@x.y" {
		if time.Now().After(deadline) {
			t.Fatalf("second write never landed")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if last != "new@x.y" {
		t.Fatalf("last delivered email = %q, want %q", last, "new@x.y")
	}
	if calls != 2 {
		t.Fatalf("subscriber calls = %d, want 2", calls)
	}
}

func TestClose_LateCallbacksAreDropped(t *testing.T) {
	clk := clock.NewManual()
	s := newStore(clk)
	notified := 0
	s.Subscribe(func(Snapshot) { notified++ })

	s.SetField(Password, "ab")
	s.Dispatch(Password)
	before := notified
	s.Close()
	clk.Advance(time.Second)
	s.SetField(Email, "ignored")

	if notified != before {
		t.Fatalf("notified after Close")
	}
	if s.Error(Password) != nil || s.Value(Email) != "" {
		t.Fatalf("state changed after Close: %+v", s.Snapshot())
	}
}

func TestIsFieldValid(t *testing.T) {
	s := newStore(clock.NewManual())
	if s.IsFieldValid(Email) {
		t.Fatalf("empty email reported valid")
	}
	s.SetField(Email, "a@b.c")
	if !s.IsFieldValid(Email) {
		t.Fatalf("good email reported invalid")
	}
	s.SetFieldError(Email, &validation.Error{Kind: validation.InvalidFormat, Message: "stale"})
	if s.IsFieldValid(Email) {
		t.Fatalf("stored error ignored")
	}
}

func TestParseField(t *testing.T) {
	if f, err := ParseField("confirmPassword"); err != nil || f != ConfirmPassword {
		t.Fatalf("ParseField = %v, %v", f, err)
	}
	if _, err := ParseField("username"); err != ErrUnknownField {
		t.Fatalf("err = %v, want ErrUnknownField", err)
	}
}
