// internal/message/message.go
//
// User-facing copy catalog.
//
// Context
// -------
// Every string the auth screen shows (titles, button labels, alert text)
// lives in messages.yaml, embedded at build time.  Default() parses the
// embedded file once; Load parses an override file so a build can ship
// different copy without touching code.  Every field is required, so a
// catalog with a missing key is rejected at load rather than rendering an
// empty alert.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package message

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var embedded []byte

// Catalog holds the auth screen copy.
type Catalog struct {
	LogoText            string `yaml:"logo_text"             validate:"required"`
	LogoSubtextLogin    string `yaml:"logo_subtext_login"    validate:"required"`
	LogoSubtextRegister string `yaml:"logo_subtext_register" validate:"required"`

	FormTitleLogin    string `yaml:"form_title_login"    validate:"required"`
	FormTitleRegister string `yaml:"form_title_register" validate:"required"`

	EmailLabel                 string `yaml:"email_label"                  validate:"required"`
	PasswordLabel              string `yaml:"password_label"               validate:"required"`
	ConfirmPasswordLabel       string `yaml:"confirm_password_label"       validate:"required"`
	EmailPlaceholder           string `yaml:"email_placeholder"            validate:"required"`
	PasswordPlaceholder        string `yaml:"password_placeholder"         validate:"required"`
	ConfirmPasswordPlaceholder string `yaml:"confirm_password_placeholder" validate:"required"`

	SubmitLogin      string `yaml:"submit_login"       validate:"required"`
	SubmitRegister   string `yaml:"submit_register"    validate:"required"`
	Loading          string `yaml:"loading"            validate:"required"`
	UseDemo          string `yaml:"use_demo"           validate:"required"`
	ToggleNoAccount  string `yaml:"toggle_no_account"  validate:"required"`
	ToggleHasAccount string `yaml:"toggle_has_account" validate:"required"`
	ToggleSignUp     string `yaml:"toggle_sign_up"     validate:"required"`
	ToggleSignIn     string `yaml:"toggle_sign_in"     validate:"required"`

	RegisterSuccessTitle  string `yaml:"register_success_title"  validate:"required"`
	RegisterSuccess       string `yaml:"register_success"        validate:"required"`
	RegisterSuccessAction string `yaml:"register_success_action" validate:"required"`

	LoginFailed        string `yaml:"login_failed"        validate:"required"`
	RegisterFailed     string `yaml:"register_failed"     validate:"required"`
	InvalidCredentials string `yaml:"invalid_credentials" validate:"required"`
	RegisterError      string `yaml:"register_error"      validate:"required"`
	GenericErrorTitle  string `yaml:"generic_error_title" validate:"required"`
	GenericError       string `yaml:"generic_error"       validate:"required"`
}

var v = validator.New()

// Parse decodes and validates a YAML catalog.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse message catalog: %w", err)
	}
	if err := v.Struct(&c); err != nil {
		return nil, fmt.Errorf("message catalog incomplete: %w", err)
	}
	return &c, nil
}

// Load reads a catalog file from disk.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read message catalog %s: %w", path, err)
	}
	return Parse(raw)
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Parse(embedded)
	if err != nil {
		panic(err) // embedded file is part of the build
	}
	return c
})

// Default returns the embedded catalog.
func Default() *Catalog { return defaultCatalog() }

// FormTitle returns the form heading for the mode.
func (c *Catalog) FormTitle(isLogin bool) string {
	if isLogin {
		return c.FormTitleLogin
	}
	return c.FormTitleRegister
}

// Submit returns the submit button label for the mode.
func (c *Catalog) Submit(isLogin bool) string {
	if isLogin {
		return c.SubmitLogin
	}
	return c.SubmitRegister
}

// FailureTitle returns the alert title for a rejected submission.
func (c *Catalog) FailureTitle(isLogin bool) string {
	if isLogin {
		return c.LoginFailed
	}
	return c.RegisterFailed
}

// FailureMessage returns the default alert text for a rejected submission.
func (c *Catalog) FailureMessage(isLogin bool) string {
	if isLogin {
		return c.InvalidCredentials
	}
	return c.RegisterError
}
